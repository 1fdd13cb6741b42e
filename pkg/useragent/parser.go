package useragent

import (
	"fmt"
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Device types reported by the parser
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// maxUserAgentLength bounds the input handed to the regex engine
const maxUserAgentLength = 1024

// Parser wraps the uap-go parser with device type and bot detection
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// DeviceInfo represents parsed device information
type DeviceInfo struct {
	DeviceType string // mobile, desktop, tablet, bot, unknown
	Browser    string // Chrome, Firefox, Safari, etc.
	OS         string // Windows, iOS, Android, etc.
	IsBot      bool
}

var (
	botIndicators = []string{
		"googlebot", "bingbot", "slurp", "duckduckbot", "baiduspider",
		"yandexbot", "facebookexternalhit", "twitterbot", "linkedinbot",
		"whatsapp", "telegrambot", "skypeuripreview", "slackbot", "discordbot",
		"headlesschrome", "bot", "crawler", "spider", "scraper",
		"curl/", "wget/", "python-requests", "go-http-client",
	}
	mobileDevices = []string{"iphone", "android", "blackberry", "windows phone", "mobile", "phone"}
	tabletDevices = []string{"ipad", "tablet", "kindle", "surface"}
	mobileOS      = []string{"ios", "android", "windows phone", "blackberry os", "firefox os", "sailfish os"}
	desktopOS     = []string{
		"windows", "mac os x", "macos", "linux", "ubuntu",
		"chrome os", "freebsd", "openbsd", "netbsd",
	}
)

// NewParser creates a parser from a uap-core regexes.yaml file.
// An empty path selects the definitions bundled with uap-go.
func NewParser(regexFilePath string, log *zap.Logger) (*Parser, error) {
	log = log.With(zap.String("component", "useragent"))

	if regexFilePath == "" {
		log.Info("User-Agent parser initialized with bundled regexes")
		return &Parser{parser: uaparser.NewFromSaved(), log: log}, nil
	}

	regexBytes, err := os.ReadFile(regexFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regexes file %s: %w", regexFilePath, err)
	}

	parser, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}

	log.Info("User-Agent parser initialized successfully", zap.String("regexes_file", regexFilePath))

	return &Parser{parser: parser, log: log}, nil
}

// Parse classifies a User-Agent string. It never fails: unparseable input yields "unknown" fields.
func (p *Parser) Parse(userAgent string) *DeviceInfo {
	if userAgent == "" || p == nil || p.parser == nil {
		return &DeviceInfo{DeviceType: DeviceUnknown, Browser: DeviceUnknown, OS: DeviceUnknown}
	}
	if len(userAgent) > maxUserAgentLength {
		userAgent = userAgent[:maxUserAgentLength]
	}

	client := p.parser.Parse(userAgent)

	info := &DeviceInfo{
		Browser: formatFamily(client.UserAgent.Family),
		OS:      formatFamily(client.Os.Family),
	}
	info.IsBot = isBot(client, userAgent)
	info.DeviceType = determineDeviceType(client, userAgent, info.IsBot)

	p.log.Debug("parsed User-Agent",
		zap.String("device_type", info.DeviceType),
		zap.String("browser", info.Browser),
		zap.String("os", info.OS),
		zap.Bool("is_bot", info.IsBot),
	)

	return info
}

// determineDeviceType determines the device type based on parsed client info and raw User-Agent
func determineDeviceType(client *uaparser.Client, userAgent string, bot bool) string {
	if bot {
		return DeviceBot
	}

	// Check if device family indicates mobile/tablet
	deviceFamily := client.Device.Family
	if deviceFamily != "" && deviceFamily != "Other" {
		if containsAny(deviceFamily, tabletDevices) {
			return DeviceTablet
		}
		if containsAny(deviceFamily, mobileDevices) {
			return DeviceMobile
		}
	}

	osFamily := client.Os.Family
	if containsAny(osFamily, mobileOS) {
		if isTabletOS(osFamily, userAgent) {
			return DeviceTablet
		}
		return DeviceMobile
	}

	if containsAny(osFamily, desktopOS) {
		return DeviceDesktop
	}

	return DeviceUnknown
}

// isBot checks if the User-Agent represents a bot/crawler
func isBot(client *uaparser.Client, userAgent string) bool {
	if client.Device.Family == "Spider" {
		return true
	}
	return containsAny(client.UserAgent.Family, botIndicators) || containsAny(userAgent, botIndicators)
}

// isTabletOS checks if the OS/User-Agent indicates a tablet
func isTabletOS(osFamily, userAgent string) bool {
	// iOS: iPad vs iPhone
	if containsFold(osFamily, "ios") {
		return containsFold(userAgent, "ipad")
	}
	// Android tablets typically don't have "Mobile" in User-Agent
	if containsFold(osFamily, "android") {
		return !containsFold(userAgent, "mobile")
	}
	return false
}

// containsAny reports whether s contains any of the lower-case needles, ignoring case
func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, needle := range needles {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

// formatFamily replaces empty or "Other" with "unknown"
func formatFamily(family string) string {
	if family == "" || family == "Other" {
		return DeviceUnknown
	}
	return family
}
