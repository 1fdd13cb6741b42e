// Package geo resolves the country of a visitor from CDN headers or a MaxMind database.
package geo

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Location страна посетителя
type Location struct {
	CountryCode string // ISO 3166-1 alpha-2, верхний регистр
	CountryName string
}

// Locator определяет страну по заголовкам запроса или IP.
// ok == false означает, что страна неизвестна.
type Locator interface {
	Locate(header http.Header, ip net.IP) (loc Location, ok bool)
}

// Chain опрашивает локаторы по порядку до первого успешного
type Chain []Locator

func (c Chain) Locate(header http.Header, ip net.IP) (Location, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if loc, ok := l.Locate(header, ip); ok {
			return loc, true
		}
	}
	return Location{}, false
}

// DefaultCountryHeaders заголовки, которые проставляют CDN перед приложением
var DefaultCountryHeaders = []string{
	"CF-IPCountry",
	"X-Vercel-IP-Country",
	"CloudFront-Viewer-Country",
}

// HeaderLocator читает код страны из заголовков CDN
type HeaderLocator struct {
	Headers []string
}

func NewHeaderLocator(headers ...string) *HeaderLocator {
	if len(headers) == 0 {
		headers = DefaultCountryHeaders
	}
	return &HeaderLocator{Headers: headers}
}

func (l *HeaderLocator) Locate(header http.Header, _ net.IP) (Location, bool) {
	for _, name := range l.Headers {
		if loc, ok := NewLocation(header.Get(name)); ok {
			return loc, true
		}
	}
	return Location{}, false
}

// MaxMindLocator ищет страну по IP в базе GeoLite2/GeoIP2 Country
type MaxMindLocator struct {
	reader *geoip2.Reader
	log    *zap.Logger
}

// OpenMaxMind открывает mmdb-файл
func OpenMaxMind(path string, log *zap.Logger) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", path, err)
	}
	log.Info("GeoIP database loaded", zap.String("path", path))
	return &MaxMindLocator{reader: reader, log: log.With(zap.String("component", "geoip"))}, nil
}

func (l *MaxMindLocator) Locate(_ http.Header, ip net.IP) (Location, bool) {
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return Location{}, false
	}
	record, err := l.reader.Country(ip)
	if err != nil {
		l.log.Debug("geoip lookup failed", zap.String("ip", ip.String()), zap.Error(err))
		return Location{}, false
	}
	loc, ok := NewLocation(record.Country.IsoCode)
	if ok && record.Country.Names["en"] != "" {
		loc.CountryName = record.Country.Names["en"]
	}
	return loc, ok
}

func (l *MaxMindLocator) Close() error {
	return l.reader.Close()
}

// NewLocation нормализует код страны и подставляет английское название.
// Пустые, служебные ("XX", "T1") и некорректные коды отбрасываются.
func NewLocation(code string) (Location, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 || code == "XX" || code == "ZZ" {
		return Location{}, false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return Location{}, false
		}
	}
	return Location{CountryCode: code, CountryName: CountryName(code)}, true
}

// CountryName возвращает английское название страны или пустую строку
func CountryName(code string) string {
	region, err := language.ParseRegion(code)
	if err != nil {
		return ""
	}
	return display.English.Regions().Name(region)
}
