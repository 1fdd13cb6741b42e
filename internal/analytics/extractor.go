package analytics

import (
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"shortlink-backend/internal/domain"
	"shortlink-backend/pkg/geo"
	"shortlink-backend/pkg/referrer"
	"shortlink-backend/pkg/useragent"

	"go.uber.org/zap"
)

// Column widths of the clicks table
const (
	maxIPLength          = 45
	maxUserAgentLength   = 500
	maxRefererLength     = 500
	maxDomainLength      = 255
	maxCountryNameLength = 100
	maxFamilyLength      = 50
	maxSourceLength      = 50
)

// Event is a click derived from an inbound request, before it is bound to a link
type Event struct {
	ShortCode string
	ClickedAt time.Time

	IPAddress string
	UserAgent string
	Referer   string

	CountryCode string
	CountryName string

	DeviceType string
	Browser    string
	OS         string
	IsBot      bool

	ReferrerType   string
	ReferrerDomain string
	ReferrerSource string
}

// Click binds the event to a resolved link. Empty derived fields become NULL.
func (e *Event) Click(linkID string) *domain.Click {
	return &domain.Click{
		LinkID:         linkID,
		ClickedAt:      e.ClickedAt,
		IPAddress:      optional(e.IPAddress),
		UserAgent:      optional(e.UserAgent),
		Referer:        optional(e.Referer),
		CountryCode:    optional(e.CountryCode),
		CountryName:    optional(e.CountryName),
		DeviceType:     optional(e.DeviceType),
		Browser:        optional(e.Browser),
		OS:             optional(e.OS),
		IsBot:          e.IsBot,
		ReferrerType:   e.ReferrerType,
		ReferrerDomain: optional(e.ReferrerDomain),
		ReferrerSource: optional(e.ReferrerSource),
	}
}

// Extractor derives click events from requests. Every derivation is best-effort.
type Extractor struct {
	ua      *useragent.Parser
	locator geo.Locator
	ownHost string
	log     *zap.Logger
	now     func() time.Time
}

// NewExtractor creates an extractor. ua and locator may be nil; ownHost marks internal referrers.
func NewExtractor(ua *useragent.Parser, locator geo.Locator, ownHost string, log *zap.Logger) *Extractor {
	return &Extractor{
		ua:      ua,
		locator: locator,
		ownHost: ownHost,
		log:     log.With(zap.String("component", "analytics_extractor")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Extract builds the click event for a request to code. It never fails.
func (e *Extractor) Extract(r *http.Request, code string) *Event {
	event := &Event{
		ShortCode:    code,
		ClickedAt:    e.now(),
		IPAddress:    truncate(extractIPAddress(r), maxIPLength),
		UserAgent:    truncate(r.UserAgent(), maxUserAgentLength),
		Referer:      truncate(r.Referer(), maxRefererLength),
		ReferrerType: referrer.TypeDirect,
	}

	e.derive("user_agent", func() {
		if event.UserAgent == "" {
			return
		}
		info := e.ua.Parse(event.UserAgent)
		event.DeviceType = known(info.DeviceType)
		// семейства берутся из самого User-Agent и бывают длиннее колонки
		event.Browser = truncate(known(info.Browser), maxFamilyLength)
		event.OS = truncate(known(info.OS), maxFamilyLength)
		event.IsBot = info.IsBot
	})

	e.derive("geo", func() {
		if e.locator == nil {
			return
		}
		if loc, ok := e.locator.Locate(r.Header, net.ParseIP(event.IPAddress)); ok {
			event.CountryCode = loc.CountryCode
			event.CountryName = truncate(loc.CountryName, maxCountryNameLength)
		}
	})

	e.derive("referrer", func() {
		res := referrer.Classify(event.Referer, e.ownHost)
		event.ReferrerType = res.Type
		event.ReferrerDomain = truncate(res.Domain, maxDomainLength)
		event.ReferrerSource = truncate(res.Source, maxSourceLength)
	})

	e.log.Debug("click event extracted",
		zap.String("short_code", code),
		zap.String("device_type", event.DeviceType),
		zap.String("country", event.CountryCode),
		zap.String("referrer_type", event.ReferrerType),
	)

	return event
}

// derive runs one derivation; a panic leaves its fields empty
func (e *Extractor) derive(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn("click derivation failed", zap.String("derivation", name), zap.Any("panic", rec))
		}
	}()
	fn()
}

// extractIPAddress извлекает IP адрес из запроса с учетом прокси
func extractIPAddress(r *http.Request) string {
	// X-Forwarded-For может содержать список IP через запятую
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	for _, header := range []string{"X-Real-IP", "X-Client-IP"} {
		if ip := strings.TrimSpace(r.Header.Get(header)); ip != "" {
			return ip
		}
	}

	// Fallback к RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// known drops the parser's "unknown" placeholder so the column stays NULL
func known(s string) string {
	if s == useragent.DeviceUnknown {
		return ""
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// не режем посередине UTF-8 последовательности
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
