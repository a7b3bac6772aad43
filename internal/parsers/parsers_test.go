package parsers

import (
	"errors"
	"testing"
	"time"

	"mailledger/internal/core"
)

var msgDate = time.Date(2025, 3, 20, 16, 45, 0, 0, time.UTC)

const bacTableHTML = `<html><body>
<p>Hola JUAN PEREZ</p>
<p>A continuación le detallamos la transacción realizada:</p>
<table>
<tr><td>Comercio:</td><td>AUTO MERCADO ESCAZU</td></tr>
<tr><td>Ciudad y país:</td><td>SAN JOSE, Costa Rica</td></tr>
<tr><td>Fecha:</td><td>Ene 15, 2025, 14:30</td></tr>
<tr><td>VISA</td><td>************1234</td></tr>
<tr><td>Autorización:</td><td>123456</td></tr>
<tr><td>Monto:</td><td>CRC 12,500.00</td></tr>
</table>
</body></html>`

const bacLookalikeLabelsHTML = `<html><body>
<p>Comercios afiliados le ofrecen descuentos</p>
<p>Tarjetahabiente: JUAN PEREZ</p>
<p>Totales del mes disponibles en línea</p>
<table>
<tr><td>Comercio:</td><td>AUTOMERCADO</td></tr>
<tr><td>Fecha:</td><td>Ene 15, 2025, 14:30</td></tr>
<tr><td>Tarjeta:</td><td>****4455</td></tr>
<tr><td>Monto:</td><td>USD 18.75</td></tr>
</table>
</body></html>`

const bacFallbackHTML = `<html><body>
<p><b>BAC Credomatic</b></p>
<p>Compra en <strong>PIZZA HUT</strong></p>
<p>Se cargó USD 25.50 a su tarjeta XXXX9876</p>
</body></html>`

const davibankText = `Estimado cliente,
Le informamos que se ha registrado una transacción realizada en AUTOMERCADO LINDORA, el día 02/01/2026 a las 08:54 PM, con su tarjeta de crédito terminada en 4321 por un monto de USD 45.90.
`

const daviviendaText = `Davivienda le informa
Comercio: FARMACIA FISCHEL
Monto: CRC 8.500,00
Tarjeta: ****5678
Fecha: 10/03/2025 09:15:00
`

func TestBACParse(t *testing.T) {
	tests := []struct {
		name string
		html string
		want core.Transaction
	}{
		{
			name: "labelled table",
			html: bacTableHTML,
			want: core.Transaction{
				Timestamp:         time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC),
				Merchant:          "AUTO MERCADO ESCAZU",
				Amount:            core.Money{Cents: 1250000},
				Currency:          core.CurrencyCRC,
				Institution:       "BAC",
				PaymentInstrument: "1234",
			},
		},
		{
			name: "lines that only start like a label",
			html: bacLookalikeLabelsHTML,
			want: core.Transaction{
				Timestamp:         time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC),
				Merchant:          "AUTOMERCADO",
				Amount:            core.Money{Cents: 1875},
				Currency:          core.CurrencyUSD,
				Institution:       "BAC",
				PaymentInstrument: "4455",
			},
		},
		{
			name: "emphasis and free text fallbacks",
			html: bacFallbackHTML,
			want: core.Transaction{
				Timestamp:         time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
				Merchant:          "PIZZA HUT",
				Amount:            core.Money{Cents: 2550},
				Currency:          core.CurrencyUSD,
				Institution:       "BAC",
				PaymentInstrument: "9876",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := core.Message{Subject: "Notificación de transacción", Date: msgDate, HTMLBody: tt.html}
			got, err := NewBAC().Parse(msg)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBACParseFailures(t *testing.T) {
	tests := []struct {
		name string
		msg  core.Message
		want error
	}{
		{"no html body", core.Message{TextBody: "Comercio: X"}, ErrNoBody},
		{"no card", core.Message{HTMLBody: "<p>Comercio: SODA</p><p>Monto: USD 3.00</p>"}, ErrMissingCard},
		{"no amount", core.Message{HTMLBody: "<p>Comercio: SODA</p><p>****1234</p>"}, ErrMissingAmount},
		{"no merchant", core.Message{HTMLBody: "<p>Monto: USD 3.00</p><p>****1234</p>"}, ErrMissingMerchant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBAC().Parse(tt.msg)
			if !errors.Is(err, ErrParseFailed) || !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Institution != "BAC" {
				t.Fatalf("expected *ParseError for BAC, got %T", err)
			}
		})
	}
}

func TestDavibankParse(t *testing.T) {
	msg := core.Message{
		Subject:  "Alerta Transacción Tarjeta de Crédito Titular",
		Date:     msgDate,
		TextBody: davibankText,
	}
	got, err := NewDavibank().Parse(msg)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := core.Transaction{
		Timestamp:         time.Date(2026, 1, 2, 20, 54, 0, 0, time.UTC),
		Merchant:          "AUTOMERCADO LINDORA",
		Amount:            core.Money{Cents: 4590},
		Currency:          core.CurrencyUSD,
		Institution:       "Davibank",
		PaymentInstrument: "4321",
	}
	if got != want {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestDavibankParseFromHTML(t *testing.T) {
	msg := core.Message{
		Subject:  "Alerta Transacción Tarjeta de Crédito Titular",
		Date:     msgDate,
		HTMLBody: "<div>" + davibankText + "</div>",
	}
	got, err := NewDavibank().Parse(msg)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Merchant != "AUTOMERCADO LINDORA" || got.PaymentInstrument != "4321" {
		t.Errorf("Parse() = %+v", got)
	}
}

func TestDaviviendaParse(t *testing.T) {
	msg := core.Message{
		Sender:   "Davivienda <Notificaciones@Davivienda.com>",
		Subject:  "Compra aprobada",
		Date:     msgDate,
		TextBody: daviviendaText,
	}
	s := NewDavivienda()
	if !s.CanParse(msg) {
		t.Fatal("CanParse() = false for a Davivienda sender")
	}
	got, err := s.Parse(msg)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := core.Transaction{
		Timestamp:         time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC),
		Merchant:          "FARMACIA FISCHEL",
		Amount:            core.Money{Cents: 850000},
		Currency:          core.CurrencyCRC,
		Institution:       "Davivienda",
		PaymentInstrument: "5678",
		Notes:             "Compra aprobada",
	}
	if got != want {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestDaviviendaTimestampFallback(t *testing.T) {
	msg := core.Message{
		Sender:   "alertas@davivienda.cr",
		Date:     msgDate,
		TextBody: "Comercio: SODA LA U\nMonto: USD 4.00\nTarjeta: ****1111\n",
	}
	got, err := NewDavivienda().Parse(msg)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if want := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC); !got.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want)
	}
}

func TestCanParse(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		msg      core.Message
		want     bool
	}{
		{"bac subject", NewBAC(), core.Message{Subject: "Notificación de transacción AUTO MERCADO 15-01-2025"}, true},
		{"bac other subject", NewBAC(), core.Message{Subject: "Estado de cuenta"}, false},
		{"davibank subject", NewDavibank(), core.Message{Subject: "Alerta Transacción Tarjeta de Crédito Titular"}, true},
		{"davibank sender only", NewDavibank(), core.Message{Sender: "alertas@davibank.com"}, false},
		{"davivienda sender", NewDavivienda(), core.Message{Sender: "avisos@davivienda.com"}, true},
		{"davivienda subject only", NewDavivienda(), core.Message{Subject: "Davivienda"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.strategy.CanParse(tt.msg); got != tt.want {
				t.Errorf("CanParse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecoverParse(t *testing.T) {
	parse := func() (err error) {
		defer recoverParse("Test", &err)
		var m map[string]int
		m["boom"]++
		return nil
	}
	err := parse()
	if !errors.Is(err, ErrParseFailed) || !errors.Is(err, ErrPanic) {
		t.Fatalf("expected panic to become a parse failure, got %v", err)
	}
}
