package util

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeURL resolves raw against base so the fetcher always works with an
// absolute URL: protocol-relative links get https, site-relative paths get
// the base prefix, absolute URLs pass through untouched.
func NormalizeURL(raw, base string) string {
	switch {
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return strings.TrimSuffix(base, "/") + raw
	default:
		return raw
	}
}

var trailingDigitsRegex = regexp.MustCompile(`(\d+)/?$`)

// DealID derives a stable identifier from a deal URL: the trailing numeric
// path segment when present, otherwise the full URL.
func DealID(rawURL string) string {
	target := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		target = parsed.Path
	}
	if m := trailingDigitsRegex.FindStringSubmatch(target); m != nil {
		return m[1]
	}
	return rawURL
}

// StoreDomain returns the registrable domain of an outbound store link,
// e.g. "https://sub.example.co.uk/x" -> "example.co.uk". Empty on failure.
func StoreDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(parsed.Hostname())
	if err != nil {
		return ""
	}
	return domain
}
