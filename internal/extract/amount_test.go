package extract

import (
	"testing"

	"mailledger/internal/core"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		token    string
		cents    int64
		currency string
	}{
		{"1,234.56", 123456, core.CurrencyUSD},
		{"1.234,56", 123456, core.CurrencyUSD},
		{"12,34", 1234, core.CurrencyUSD},
		{"CRC 1,500", 150000, core.CurrencyCRC},
		{"₡25.000,00", 2500000, core.CurrencyCRC},
		{"15 000 colones", 1500000, core.CurrencyCRC},
		{"$ 45.999", 4600, core.CurrencyUSD},
		{"USD 12.50.", 1250, core.CurrencyUSD},
		{"1,234,567", 123456700, core.CurrencyUSD},
		{",50", 50, core.CurrencyUSD},
		{"USD .50", 50, core.CurrencyUSD},
		{"$0.50", 50, core.CurrencyUSD},
		{"CRC ,75.", 75, core.CurrencyCRC},
		{".,", 0, core.CurrencyUSD},
		{"abc", 0, core.CurrencyUSD},
		{"CRC", 0, core.CurrencyCRC},
		{"1.2.3", 0, core.CurrencyUSD},
		{"", 0, core.CurrencyUSD},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.token)
		if got.Money.Cents != tc.cents || got.Currency != tc.currency {
			t.Errorf("ParseAmount(%q) = %d %s, want %d %s", tc.token, got.Money.Cents, got.Currency, tc.cents, tc.currency)
		}
	}
}

func TestDetectCurrency(t *testing.T) {
	cases := map[string]string{
		"Monto: CRC 5,000":      core.CurrencyCRC,
		"pagó ₡3 500":           core.CurrencyCRC,
		"la suma de 10 Colones": core.CurrencyCRC,
		"Amount: USD 10":        core.CurrencyUSD,
		"no currency at all 10": core.CurrencyUSD,
	}
	for text, want := range cases {
		if got := DetectCurrency(text); got != want {
			t.Errorf("DetectCurrency(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestFindAmount(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		cents    int64
		currency string
		found    bool
	}{
		{"labelled", "Comercio: SUPER\nMonto: USD 1,234.56\n", 123456, core.CurrencyUSD, true},
		{"labelled european", "Monto: 1.234,56", 123456, core.CurrencyUSD, true},
		{"prefix colones", "Se realizó un cargo de ₡12.500,00 en su tarjeta", 1250000, core.CurrencyCRC, true},
		{"suffix", "por 8,50 dólares", 850, core.CurrencyUSD, true},
		{"currency elsewhere in text", "Total: 5,000\nMoneda: CRC", 500000, core.CurrencyCRC, true},
		{"marker in match wins", "Monto: USD 20.00\nTipo de cambio CRC 515", 2000, core.CurrencyUSD, true},
		{"nothing", "hola mundo", 0, core.CurrencyUSD, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := FindAmount(tc.text)
			if found != tc.found {
				t.Fatalf("found = %v, want %v", found, tc.found)
			}
			if got.Money.Cents != tc.cents || got.Currency != tc.currency {
				t.Fatalf("got %d %s, want %d %s", got.Money.Cents, got.Currency, tc.cents, tc.currency)
			}
		})
	}
}

func TestFindCard(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"****1234", "1234"},
		{"XXXX5678", "5678"},
		{"xxxxxx4321", "4321"},
		{"Tarjeta terminada en 9012", "9012"},
		{"card ending in 3456", "3456"},
		{"Tarjeta: *7890", "7890"},
		{"Card: **1111", "1111"},
		{"Tarjeta: *2222 y ****3333", "3333"},
		{"sin tarjeta", ""},
		{"***123", ""},
	}
	for _, tc := range cases {
		if got := FindCard(tc.text); got != tc.want {
			t.Errorf("FindCard(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestFindCardCustomLabels(t *testing.T) {
	if got := FindCard("Cuenta 4455", CardTrailing4); got != "4455" {
		t.Fatalf("got %q", got)
	}
	if got := FindCard("terminada en 9012", CardTrailing4); got != "9012" {
		t.Fatalf("got %q", got)
	}
}
