// Package referrer classifies the Referer header of a click.
package referrer

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Referrer types
const (
	TypeDirect   = "direct"
	TypeSearch   = "search"
	TypeSocial   = "social"
	TypeEmail    = "email"
	TypeInternal = "internal"
	TypeExternal = "external"
)

// Result классификация источника перехода
type Result struct {
	Type   string
	Domain string // регистрируемый домен (eTLD+1), пусто для direct
	Source string // известная площадка: google, twitter, gmail...; пусто если не распознана
}

type platform struct {
	typ    string
	source string
}

// known площадки по регистрируемому домену
var known = map[string]platform{
	"t.co":             {TypeSocial, "twitter"},
	"twitter.com":      {TypeSocial, "twitter"},
	"x.com":            {TypeSocial, "twitter"},
	"facebook.com":     {TypeSocial, "facebook"},
	"fb.com":           {TypeSocial, "facebook"},
	"fb.me":            {TypeSocial, "facebook"},
	"instagram.com":    {TypeSocial, "instagram"},
	"linkedin.com":     {TypeSocial, "linkedin"},
	"lnkd.in":          {TypeSocial, "linkedin"},
	"reddit.com":       {TypeSocial, "reddit"},
	"pinterest.com":    {TypeSocial, "pinterest"},
	"tiktok.com":       {TypeSocial, "tiktok"},
	"youtube.com":      {TypeSocial, "youtube"},
	"youtu.be":         {TypeSocial, "youtube"},
	"vk.com":           {TypeSocial, "vk"},
	"t.me":             {TypeSocial, "telegram"},
	"telegram.org":     {TypeSocial, "telegram"},
	"whatsapp.com":     {TypeSocial, "whatsapp"},
	"discord.com":      {TypeSocial, "discord"},
	"threads.net":      {TypeSocial, "threads"},
	"mastodon.social":  {TypeSocial, "mastodon"},
	"ycombinator.com":  {TypeSocial, "hackernews"},
	"outlook.com":      {TypeEmail, "outlook"},
	"live.com":         {TypeEmail, "outlook"},
	"proton.me":        {TypeEmail, "protonmail"},
	"protonmail.com":   {TypeEmail, "protonmail"},
	"gmx.net":          {TypeEmail, "gmx"},
	"mail.ru":          {TypeEmail, "mailru"},
	"duckduckgo.com":   {TypeSearch, "duckduckgo"},
	"ecosia.org":       {TypeSearch, "ecosia"},
	"startpage.com":    {TypeSearch, "startpage"},
	"search.brave.com": {TypeSearch, "brave"},
}

// searchEngines распознаются по первой метке домена на любых национальных зонах (google.de, yandex.kz)
var searchEngines = map[string]bool{
	"google": true,
	"bing":   true,
	"yahoo":  true,
	"yandex": true,
	"baidu":  true,
	"naver":  true,
	"ask":    true,
}

// webmail почтовые веб-интерфейсы по хосту
var webmail = map[string]string{
	"mail.google.com":    "gmail",
	"mail.yahoo.com":     "yahoo",
	"mail.yandex.ru":     "yandex",
	"outlook.live.com":   "outlook",
	"outlook.office.com": "outlook",
}

// Classify определяет тип источника перехода по заголовку Referer.
// ownHost - хост самого сервиса; переходы с него и его поддоменов считаются internal.
func Classify(referer, ownHost string) Result {
	referer = strings.TrimSpace(referer)
	if referer == "" {
		return Result{Type: TypeDirect}
	}

	u, err := url.Parse(referer)
	if err != nil || u.Hostname() == "" {
		return Result{Type: TypeDirect}
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	domain := registrableDomain(host)

	if own := normalizeHost(ownHost); own != "" && (host == own || strings.HasSuffix(host, "."+own)) {
		return Result{Type: TypeInternal, Domain: domain}
	}

	if source, ok := webmail[host]; ok {
		return Result{Type: TypeEmail, Domain: domain, Source: source}
	}
	if p, ok := known[host]; ok {
		return Result{Type: p.typ, Domain: domain, Source: p.source}
	}
	if p, ok := known[domain]; ok {
		return Result{Type: p.typ, Domain: domain, Source: p.source}
	}
	if strings.HasPrefix(host, "mail.") || strings.HasPrefix(host, "webmail.") {
		return Result{Type: TypeEmail, Domain: domain}
	}

	label, _, _ := strings.Cut(domain, ".")
	if searchEngines[label] {
		return Result{Type: TypeSearch, Domain: domain, Source: label}
	}

	return Result{Type: TypeExternal, Domain: domain}
}

// registrableDomain возвращает eTLD+1; для IP и одноуровневых хостов - сам хост
func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if strings.Contains(h, "://") {
		if u, err := url.Parse(h); err == nil {
			h = u.Host
		}
	}
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.TrimSuffix(h, ".")
}
