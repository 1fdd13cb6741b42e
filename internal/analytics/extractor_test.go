package analytics

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shortlink-backend/internal/domain"
	"shortlink-backend/pkg/geo"
	"shortlink-backend/pkg/referrer"
	"shortlink-backend/pkg/useragent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type panickyLocator struct{}

func (panickyLocator) Locate(http.Header, net.IP) (geo.Location, bool) {
	panic("corrupted database")
}

func newTestExtractor(t *testing.T, locator geo.Locator) *Extractor {
	t.Helper()
	ua, err := useragent.NewParser("", zap.NewNop())
	require.NoError(t, err)
	e := NewExtractor(ua, locator, "sho.rt", zap.NewNop())
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExtractor_Extract(t *testing.T) {
	e := newTestExtractor(t, geo.NewHeaderLocator())

	r := httptest.NewRequest(http.MethodGet, "/abc12345", nil)
	r.Header.Set("User-Agent", chromeUA)
	r.Header.Set("Referer", "https://www.google.com/search?q=x")
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.Header.Set("CF-IPCountry", "DE")

	event := e.Extract(r, "abc12345")

	assert.Equal(t, "abc12345", event.ShortCode)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), event.ClickedAt)
	assert.Equal(t, "203.0.113.7", event.IPAddress)
	assert.Equal(t, chromeUA, event.UserAgent)
	assert.Equal(t, "https://www.google.com/search?q=x", event.Referer)
	assert.Equal(t, "DE", event.CountryCode)
	assert.Equal(t, "Germany", event.CountryName)
	assert.Equal(t, useragent.DeviceDesktop, event.DeviceType)
	assert.Equal(t, "Chrome", event.Browser)
	assert.Equal(t, "Windows", event.OS)
	assert.False(t, event.IsBot)
	assert.Equal(t, referrer.TypeSearch, event.ReferrerType)
	assert.Equal(t, "google.com", event.ReferrerDomain)
	assert.Equal(t, "google", event.ReferrerSource)
}

func TestExtractor_BareRequest(t *testing.T) {
	e := newTestExtractor(t, geo.NewHeaderLocator())

	r := httptest.NewRequest(http.MethodGet, "/abc12345", nil)
	r.RemoteAddr = "198.51.100.1:54321"

	event := e.Extract(r, "abc12345")

	assert.Equal(t, "198.51.100.1", event.IPAddress)
	assert.Empty(t, event.UserAgent)
	assert.Empty(t, event.DeviceType)
	assert.Empty(t, event.CountryCode)
	assert.Equal(t, referrer.TypeDirect, event.ReferrerType)
	assert.Empty(t, event.ReferrerDomain)
}

func TestExtractor_DegradesOnFailure(t *testing.T) {
	e := newTestExtractor(t, panickyLocator{})

	r := httptest.NewRequest(http.MethodGet, "/abc12345", nil)
	r.Header.Set("User-Agent", chromeUA)
	r.Header.Set("Referer", "%%%not-a-url")

	var event *Event
	require.NotPanics(t, func() { event = e.Extract(r, "abc12345") })

	assert.Empty(t, event.CountryCode)
	assert.Equal(t, useragent.DeviceDesktop, event.DeviceType)
	assert.Equal(t, referrer.TypeDirect, event.ReferrerType)
}

func TestExtractor_NilDependencies(t *testing.T) {
	e := NewExtractor(nil, nil, "", zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/abc12345", nil)
	r.Header.Set("User-Agent", chromeUA)

	event := e.Extract(r, "abc12345")
	assert.Empty(t, event.DeviceType)
	assert.Empty(t, event.CountryCode)
	assert.Equal(t, chromeUA, event.UserAgent)
}

func TestExtractor_TruncatesRawFields(t *testing.T) {
	e := newTestExtractor(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/abc12345", nil)
	r.Header.Set("User-Agent", strings.Repeat("я", 400))
	r.Header.Set("Referer", "https://example.com/"+strings.Repeat("a", 1000))

	event := e.Extract(r, "abc12345")
	assert.LessOrEqual(t, len(event.UserAgent), maxUserAgentLength)
	assert.True(t, strings.HasPrefix(event.UserAgent, "яя"))
	assert.Equal(t, maxUserAgentLength, len(event.UserAgent)) // 250 двухбайтовых символов
	assert.Len(t, event.Referer, maxRefererLength)
}

type fixedLocator geo.Location

func (l fixedLocator) Locate(http.Header, net.IP) (geo.Location, bool) {
	return geo.Location(l), true
}

func TestExtractor_TruncatesDerivedFields(t *testing.T) {
	e := newTestExtractor(t, fixedLocator{CountryCode: "DE", CountryName: strings.Repeat("Z", 300)})

	r := httptest.NewRequest(http.MethodGet, "/abc12345", nil)
	r.Header.Set("User-Agent", strings.Repeat("a", 50)+"Crawler/1.0 (+https://"+strings.Repeat("b", 60)+".example)")

	event := e.Extract(r, "abc12345")
	assert.LessOrEqual(t, len(event.Browser), maxFamilyLength)
	assert.LessOrEqual(t, len(event.OS), maxFamilyLength)
	assert.Len(t, event.CountryName, maxCountryNameLength)
	assert.Equal(t, "DE", event.CountryCode)

	click := event.Click("link-1")
	if click.Browser != nil {
		assert.LessOrEqual(t, len(*click.Browser), maxFamilyLength)
	}
	require.NotNil(t, click.CountryName)
	assert.Len(t, *click.CountryName, maxCountryNameLength)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", truncate("", 5))
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
	// 3 байта приходятся на середину второй буквы
	assert.Equal(t, "я", truncate("яяя", 3))
}

func TestExtractIPAddress(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, want: "1.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 3.3.3.3 "}, want: "3.3.3.3"},
		{name: "client ip", headers: map[string]string{"X-Client-IP": "4.4.4.4"}, want: "4.4.4.4"},
		{name: "empty forwarded falls through", headers: map[string]string{"X-Forwarded-For": " , 5.5.5.5", "X-Real-IP": "6.6.6.6"}, want: "6.6.6.6"},
		{name: "remote addr", remoteAddr: "7.7.7.7:1234", want: "7.7.7.7"},
		{name: "remote addr without port", remoteAddr: "8.8.8.8", want: "8.8.8.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remoteAddr != "" {
				r.RemoteAddr = tt.remoteAddr
			}
			assert.Equal(t, tt.want, extractIPAddress(r))
		})
	}
}

func TestEvent_Click(t *testing.T) {
	event := &Event{
		ShortCode:    "abc12345",
		ClickedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		IPAddress:    "1.2.3.4",
		DeviceType:   domain.DeviceMobile,
		IsBot:        false,
		ReferrerType: referrer.TypeSocial,
	}

	click := event.Click("link-1")
	assert.Equal(t, "link-1", click.LinkID)
	assert.Equal(t, event.ClickedAt, click.ClickedAt)
	require.NotNil(t, click.IPAddress)
	assert.Equal(t, "1.2.3.4", *click.IPAddress)
	assert.Equal(t, domain.DeviceMobile, click.GetDeviceType())
	assert.Nil(t, click.UserAgent)
	assert.Nil(t, click.CountryCode)
	assert.Nil(t, click.Browser)
	assert.Equal(t, domain.ReferrerSocial, click.ReferrerType)
}
