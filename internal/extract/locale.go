// Package extract holds the field extractors shared by every institution
// parser: amount and currency, card suffix, timestamp and merchant.
//
// All functions are pure and never panic on malformed input. Patterns and
// locale tables are exported so parsers compose them per institution.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// SpanishMonths maps three-letter Spanish month abbreviations to month numbers.
var SpanishMonths = map[string]int{
	"ene": 1, "feb": 2, "mar": 3, "abr": 4, "may": 5, "jun": 6,
	"jul": 7, "ago": 8, "sep": 9, "oct": 10, "nov": 11, "dic": 12,
}

// Label sets used to locate values in flattened notification tables.
var (
	MerchantLabels = []string{"Comercio", "Establecimiento", "Merchant"}
	AmountLabels   = []string{"Monto", "Amount", "Total"}
	CardLabels     = []string{"Tarjeta", "Card"}
	DateLabels     = []string{"Fecha", "Date"}
)

// TrailingBoilerplate matches phrases that bleed into a merchant capture.
var TrailingBoilerplate = regexp.MustCompile(`(?is)\s+(?:por un monto|por|monto|tarjeta)\b.*$`)

const (
	amountToken   = `(\d[\d.,]*)`
	merchantChars = `[\p{L}\p{N} \t\-.&'*/#]`
	ampmToken     = `(?P<ampm>[AaPp]\.?\s?[Mm]\b\.?)`
	clockToken    = `(?P<hour>\d{1,2}):(?P<minute>\d{2})(?::(?P<second>\d{2}))?`
	numericDate   = `(?P<day>\d{1,2})[/-](?P<month>\d{1,2})[/-](?P<year>\d{2,4})`
)

// Amount patterns. The first capture group is the numeric token.
var (
	AmountLabeled        = regexp.MustCompile(`(?i)(?:Monto|Amount|Total)[:\s]*(?:USD|CRC|₡|\$)?\s*` + amountToken)
	AmountCurrencyPrefix = regexp.MustCompile(`(?i)(?:USD|CRC|₡|\$)\s*` + amountToken)
	AmountCurrencySuffix = regexp.MustCompile(`(?i)` + amountToken + `\s*(?:USD|CRC|colones|d[óo]lares)`)

	DefaultAmountPatterns = []*regexp.Regexp{AmountLabeled, AmountCurrencyPrefix, AmountCurrencySuffix}
)

// Card patterns. Masked forms are always tried before labelled ones.
var (
	CardAsterisks = regexp.MustCompile(`\*{4,}(\d{4})`)
	CardXMask     = regexp.MustCompile(`[Xx]{4,}(\d{4})`)

	CardTarjeta   = regexp.MustCompile(`[Tt]arjeta[:\s]*\*+(\d{4})`)
	CardCard      = regexp.MustCompile(`[Cc]ard[:\s]*\*+(\d{4})`)
	CardTerminada = regexp.MustCompile(`(?i)terminada\s+en\s+(\d{4})`)
	CardEndingIn  = regexp.MustCompile(`(?i)ending\s+in\s+(\d{4})`)
	CardTrailing4 = regexp.MustCompile(`(\d{4})\s*$`)

	DefaultCardLabels = []*regexp.Regexp{CardTarjeta, CardCard, CardTerminada, CardEndingIn}
)

// Timestamp patterns use named groups: day, month or mon, year, hour,
// minute, second and ampm.
var (
	TimestampDavibank = regexp.MustCompile(`(?i)el\s+d[íi]a\s+` + numericDate + `\s+a\s+las?\s+` + clockToken + `\s*` + ampmToken + `?`)
	TimestampLabeled  = regexp.MustCompile(`(?i)(?:Fecha|Date)[:\s]*` + numericDate + `(?:[\sT]+` + clockToken + `\s*` + ampmToken + `?)?`)
	TimestampNumeric  = regexp.MustCompile(numericDate + `\s+` + clockToken + `\s*` + ampmToken + `?`)
	TimestampDateOnly = regexp.MustCompile(numericDate + `(?:[\sT]+` + clockToken + `\s*` + ampmToken + `?)?`)
	TimestampSpanish  = regexp.MustCompile(`(?i)\b(?P<mon>` + monthAlternation() + `)\p{L}*\.?\s+(?P<day>\d{1,2}),?\s+(?P<year>\d{4})(?:,?\s+` + clockToken + `\s*` + ampmToken + `?)?`)

	DefaultTimestampPatterns = []*regexp.Regexp{TimestampLabeled, TimestampNumeric, TimestampSpanish}
)

// Merchant patterns. The first capture group is the raw merchant.
var (
	MerchantLabeled     = regexp.MustCompile(`(?i)(?:Comercio|Establecimiento|Merchant)[:\s]+(` + merchantChars + `+)`)
	MerchantCompraEn    = regexp.MustCompile(`(?i)compra\s+(?:en|at)\s+(` + merchantChars + `+)`)
	MerchantEnAt        = regexp.MustCompile(`(?i)\b(?:en|at)\s+(\p{L}` + merchantChars + `{3,30})`)
	MerchantRealizadaEn = regexp.MustCompile(`(?i)transacci[óo]n\s+realizada\s+en\s+(.+?),\s*el\s+d[íi]a`)

	DefaultMerchantPatterns = []*regexp.Regexp{MerchantLabeled, MerchantCompraEn}
)

func monthAlternation() string {
	keys := make([]string, 0, len(SpanishMonths))
	for k := range SpanishMonths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}
