package extract

import (
	"regexp"
	"strings"

	"mailledger/internal/core"
)

// FindMerchant applies patterns in priority order and returns the cleaned
// first capture of the first pattern whose cleaned capture is non-empty.
// DefaultMerchantPatterns is used when none are given.
func FindMerchant(text string, patterns ...*regexp.Regexp) string {
	if len(patterns) == 0 {
		patterns = DefaultMerchantPatterns
	}
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if merchant := CleanMerchant(firstGroup(m)); merchant != "" {
			return merchant
		}
	}
	return ""
}

// CleanMerchant trims a raw capture, drops trailing boilerplate and
// normalises the result.
func CleanMerchant(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = TrailingBoilerplate.ReplaceAllString(raw, "")
	return core.NormalizeMerchant(raw)
}
