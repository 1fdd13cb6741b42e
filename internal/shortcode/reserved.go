package shortcode

import (
	"regexp"
	"strings"
)

const (
	// MinLength is the shortest path segment that can ever be a short code.
	MinLength = 3
	// MaxLength is the longest short code accepted anywhere.
	MaxLength = 20

	// MinCustomLength is the shortest code a user may request explicitly.
	MinCustomLength = 6
)

// reserved are top-level route segments owned by the application itself.
var reserved = map[string]struct{}{
	"api":         {},
	"auth":        {},
	"dashboard":   {},
	"docs":        {},
	"not-found":   {},
	"health":      {},
	"ready":       {},
	"metrics":     {},
	"swagger":     {},
	"login":       {},
	"logout":      {},
	"signup":      {},
	"register":    {},
	"profile":     {},
	"settings":    {},
	"links":       {},
	"analytics":   {},
	"qr":          {},
	"pricing":     {},
	"about":       {},
	"static":      {},
	"assets":      {},
	"public":      {},
	"favicon.ico": {},
	"robots.txt":  {},
	"sitemap.xml": {},
}

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsReserved reports whether candidate must never be treated as a short code:
// empty or too short segments and segments that shadow system routes.
func IsReserved(candidate string) bool {
	if len(candidate) < MinLength {
		return true
	}
	_, ok := reserved[strings.ToLower(candidate)]
	return ok
}

// ReservedPaths returns the reserved route segments.
func ReservedPaths() []string {
	out := make([]string, 0, len(reserved))
	for p := range reserved {
		out = append(out, p)
	}
	return out
}

// HasValidShape reports whether s looks like a short code at all:
// 3 to 20 characters from [A-Za-z0-9_-].
func HasValidShape(s string) bool {
	return len(s) >= MinLength && len(s) <= MaxLength && codePattern.MatchString(s)
}

// ValidCustom reports whether a user supplied code is acceptable before any store lookup.
func ValidCustom(s string) bool {
	return len(s) >= MinCustomLength && HasValidShape(s) && !IsReserved(s)
}
