package core

// CurrencyAmount is a total for one currency.
type CurrencyAmount struct {
	Currency string
	Amount   Money
}

// Summary aggregates a ledger snapshot.
type Summary struct {
	Count              int
	ByInstitution      map[string]int
	ByCurrency         map[string]int
	ByCategory         map[string]int
	TotalByCurrency    map[string]Money
	TotalByCategory    map[string]Money
	USDToCRC           float64
	TotalUSDEquivalent Money
}

const Uncategorized = "Uncategorized"

// Summarize builds a Summary from txs. Categories must already be resolved.
// usdToCRC converts CRC totals into the USD equivalent; zero skips them.
func Summarize(txs []Transaction, usdToCRC float64) Summary {
	s := Summary{
		Count:           len(txs),
		ByInstitution:   map[string]int{},
		ByCurrency:      map[string]int{},
		ByCategory:      map[string]int{},
		TotalByCurrency: map[string]Money{},
		TotalByCategory: map[string]Money{},
		USDToCRC:        usdToCRC,
	}
	for _, t := range txs {
		category := t.Category
		if category == "" {
			category = Uncategorized
		}
		s.ByInstitution[t.Institution]++
		s.ByCurrency[t.Currency]++
		s.ByCategory[category]++

		cur := s.TotalByCurrency[t.Currency]
		cur.Cents += t.Amount.Cents
		s.TotalByCurrency[t.Currency] = cur

		cat := s.TotalByCategory[category]
		cat.Cents += t.Amount.Cents
		s.TotalByCategory[category] = cat
	}

	s.TotalUSDEquivalent.Cents = s.TotalByCurrency[CurrencyUSD].Cents
	if usdToCRC > 0 {
		crc := float64(s.TotalByCurrency[CurrencyCRC].Cents) / usdToCRC
		s.TotalUSDEquivalent.Cents += int64(crc + 0.5)
	}
	return s
}
