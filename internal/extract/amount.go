package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"mailledger/internal/core"
)

// Amount is a parsed monetary value with its detected currency.
type Amount struct {
	Money    core.Money
	Currency string
}

var (
	crcMarker = regexp.MustCompile(`(?i)CRC|₡|colones`)
	usdMarker = regexp.MustCompile(`(?i)USD|\$|d[óo]lares`)
	nonNumber = regexp.MustCompile(`[^\d.,]`)
)

// DetectCurrency returns CRC when text carries a colón marker, USD otherwise.
func DetectCurrency(text string) string {
	if crcMarker.MatchString(text) {
		return core.CurrencyCRC
	}
	return core.CurrencyUSD
}

// ParseAmount parses a locale-mixed amount token such as "CRC 1,500",
// "$1,234.56" or "1.234,56". A token that cannot be parsed yields a zero
// amount with the detected currency.
func ParseAmount(token string) Amount {
	a := Amount{Currency: DetectCurrency(token)}
	// Trailing separators are sentence punctuation; a leading one is a
	// decimal point with the integer part left out.
	numeric := strings.TrimRight(nonNumber.ReplaceAllString(token, ""), ".,")
	if strings.Trim(numeric, ".,") == "" {
		return a
	}
	if numeric[0] == '.' || numeric[0] == ',' {
		numeric = "0" + numeric
	}

	lastComma := strings.LastIndex(numeric, ",")
	lastDot := strings.LastIndex(numeric, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			numeric = strings.ReplaceAll(numeric, ".", "")
			numeric = strings.ReplaceAll(numeric, ",", ".")
		} else {
			numeric = strings.ReplaceAll(numeric, ",", "")
		}
	case lastComma >= 0:
		if len(numeric)-lastComma-1 == 2 {
			numeric = strings.ReplaceAll(numeric, ",", ".")
		} else {
			numeric = strings.ReplaceAll(numeric, ",", "")
		}
	}

	d, err := decimal.NewFromString(numeric)
	if err != nil {
		return a
	}
	cents, err := core.DecimalToCents(d)
	if err != nil {
		return a
	}
	a.Money = core.Money{Cents: cents}
	return a
}

// FindAmount applies patterns in order and parses the first capture of the
// first match. A currency marker inside the match wins; otherwise the
// currency is detected over the whole text. ok is false when no pattern
// matched.
func FindAmount(text string, patterns ...*regexp.Regexp) (Amount, bool) {
	if len(patterns) == 0 {
		patterns = DefaultAmountPatterns
	}
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		token := firstGroup(m)
		a := ParseAmount(token)
		a.Currency = currencyFor(m[0], text)
		return a, true
	}
	return Amount{Currency: DetectCurrency(text)}, false
}

func currencyFor(match, text string) string {
	switch {
	case crcMarker.MatchString(match):
		return core.CurrencyCRC
	case usdMarker.MatchString(match):
		return core.CurrencyUSD
	}
	return DetectCurrency(text)
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return m[0]
}
