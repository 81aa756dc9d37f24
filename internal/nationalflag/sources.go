package nationalflag

import (
	"fmt"
	"strings"
)

// Sources holds the base URLs flag images are fetched from.
type Sources struct {
	FlagCDN   string
	Flagpedia string
	Commons   string // upload host of Wikimedia Commons
}

// DefaultSources points at the public flag services.
var DefaultSources = Sources{
	FlagCDN:   "https://flagcdn.com",
	Flagpedia: "https://flagpedia.net",
	Commons:   "https://upload.wikimedia.org",
}

// URLs returns the candidate image URLs for an ISO 3166-1 alpha-2 code,
// in the order they should be tried.
func (s Sources) URLs(iso string) []string {
	lower := strings.ToLower(iso)
	cdn := strings.TrimSuffix(s.FlagCDN, "/")
	pedia := strings.TrimSuffix(s.Flagpedia, "/")
	commons := strings.TrimSuffix(s.Commons, "/")

	return []string{
		fmt.Sprintf("%s/w80/%s.png", cdn, lower),
		fmt.Sprintf("%s/h60/%s.png", cdn, lower),
		fmt.Sprintf("%s/%s.svg", cdn, lower),
		fmt.Sprintf("%s/data/flags/w160/%s.png", pedia, lower),
		fmt.Sprintf("%s/data/flags/icon/%s.png", pedia, lower),
		fmt.Sprintf("%s/wikipedia/commons/thumb/a/a9/Flag_of_%s.svg/80px-Flag_of_%s.svg.png", commons, iso, iso),
	}
}

// extension derives the file extension of a saved flag from its source URL.
func extension(rawURL string) string {
	switch {
	case strings.HasSuffix(rawURL, ".svg"):
		return "svg"
	case strings.HasSuffix(rawURL, ".webp"):
		return "webp"
	default:
		return "png"
	}
}

// fallbackSVG is a placeholder flag showing the country code on a blue field.
func fallbackSVG(code string) []byte {
	return fmt.Appendf(nil, `<?xml version="1.0" encoding="UTF-8"?>
<svg width="160" height="107" viewBox="0 0 160 107" xmlns="http://www.w3.org/2000/svg">
  <rect width="160" height="107" fill="#4a90e2" stroke="#ffffff" stroke-width="2"/>
  <text x="80" y="60" text-anchor="middle" fill="white" font-family="Arial, sans-serif" font-size="24" font-weight="bold">%s</text>
</svg>
`, code)
}
