package core

import "strings"

// MerchantPrefixes are stripped from the start of merchant names.
var MerchantPrefixes = []string{"COMPRA EN ", "PAGO A ", "PURCHASE AT "}

// NormalizeMerchant collapses whitespace and strips known purchase prefixes.
func NormalizeMerchant(merchant string) string {
	merchant = strings.Join(strings.Fields(merchant), " ")
	for _, prefix := range MerchantPrefixes {
		if strings.HasPrefix(strings.ToUpper(merchant), prefix) {
			merchant = merchant[len(prefix):]
		}
	}
	return strings.TrimSpace(merchant)
}

// CategoryKey is the lookup key for merchant category mappings.
func CategoryKey(merchant string) string {
	return strings.ToLower(strings.TrimSpace(merchant))
}
