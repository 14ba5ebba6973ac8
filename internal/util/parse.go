package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numericTokenRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseAmount extracts the first numeric token from a price-like string,
// stripping currency symbols and thousands separators and normalizing the
// decimal separator. "1 299,99 zł" parses as 1299.99.
func ParseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		// Comma-decimal locale: dots are thousands separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	token := numericTokenRegex.FindString(s)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var percentTokenRegex = regexp.MustCompile(`-?\d+(?:[.,]\d+)?\s*%`)

// FindPercentToken returns the first percentage-looking token in s, or "".
func FindPercentToken(s string) string {
	return percentTokenRegex.FindString(s)
}

// NormalizeDiscount formats any discount-ish string as "-N%". The magnitude
// is the first numeric token, rounded; an empty or tokenless input yields "".
func NormalizeDiscount(s string) string {
	v, ok := ParseAmount(s)
	if !ok {
		return ""
	}
	return "-" + strconv.Itoa(int(math.Round(math.Abs(v)))) + "%"
}
