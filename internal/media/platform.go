package media

import (
	"net/url"
	"strings"
)

type Platform string

const (
	PlatformUnknown   Platform = ""
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformPinterest Platform = "pinterest"
)

// Platforms is the menu order.
var Platforms = []Platform{
	PlatformYouTube,
	PlatformInstagram,
	PlatformTikTok,
	PlatformPinterest,
}

var platformDomains = map[Platform][]string{
	PlatformYouTube:   {"youtube.com", "youtu.be"},
	PlatformInstagram: {"instagram.com"},
	PlatformTikTok:    {"tiktok.com"},
	PlatformPinterest: {"pinterest.com"},
}

func (p Platform) Label() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	case PlatformTikTok:
		return "TikTok"
	case PlatformPinterest:
		return "Pinterest"
	default:
		return "Unknown"
	}
}

func ParsePlatform(s string) (Platform, bool) {
	for _, p := range Platforms {
		if string(p) == s {
			return p, true
		}
	}
	return PlatformUnknown, false
}

// Classify labels a link by its host. It never rejects anything: unknown
// links are still handed to the fetcher.
func Classify(link string) Platform {
	host := hostOf(link)
	for _, p := range Platforms {
		for _, domain := range platformDomains[p] {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return p
			}
		}
	}
	// Fall back to substring matching for text that is not a parseable URL.
	lowered := strings.ToLower(link)
	if host == "" {
		for _, p := range Platforms {
			for _, domain := range platformDomains[p] {
				if strings.Contains(lowered, domain) {
					return p
				}
			}
		}
	}
	return PlatformUnknown
}

func hostOf(link string) string {
	raw := strings.TrimSpace(link)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
