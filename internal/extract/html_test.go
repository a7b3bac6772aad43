package extract

import (
	"reflect"
	"testing"
)

const sampleHTML = `<html><head><title>BAC</title><style>td{color:red}</style></head>
<body>
<p>Estimado cliente:</p>
<table>
<tr><td>Comercio:</td><td><b>AUTO  MERCADO</b></td></tr>
<tr><td>Monto:</td><td>CRC&nbsp;12,500.00</td></tr>
</table>
<div>Gracias<br>BAC Credomatic</div>
<script>var x = 1;</script>
</body></html>`

func TestHTMLToText(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "notification layout",
			doc:  sampleHTML,
			want: "Estimado cliente:\nComercio:\nAUTO MERCADO\nMonto:\nCRC 12,500.00\nGracias\nBAC Credomatic",
		},
		{
			name: "table cells on their own lines",
			doc:  `<table><tr><td>Comercio</td><td>AUTOMERCADO</td></tr><tr><td>Monto</td><td>CRC 1,500.00</td></tr></table>`,
			want: "Comercio\nAUTOMERCADO\nMonto\nCRC 1,500.00",
		},
		{
			name: "script and style dropped",
			doc:  `<html><head><style>p{color:red}</style></head><body><p>Hola <b>Juan</b></p><script>track()</script></body></html>`,
			want: "Hola Juan",
		},
		{
			name: "whitespace collapsed",
			doc:  "<div>  Tarjeta:   ****1234  </div><br><div>\n</div>",
			want: "Tarjeta: ****1234",
		},
		{
			name: "plain text",
			doc:  "just text",
			want: "just text",
		},
		{
			name: "empty",
			doc:  "",
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTMLToText(tc.doc); got != tc.want {
				t.Errorf("HTMLToText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEmphasizedText(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want []string
	}{
		{"notification layout", sampleHTML, []string{"AUTO MERCADO"}},
		{
			name: "document order, nested and blank",
			doc:  `<p><strong>AUTOMERCADO   ESCAZU</strong> por <b>Total</b></p><b> </b><strong><span>A</span><span>B</span></strong>`,
			want: []string{"AUTOMERCADO ESCAZU", "Total", "A B"},
		},
		{"nothing bold", "<p>nothing bold</p>", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EmphasizedText(tc.doc); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("EmphasizedText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLabeledValue(t *testing.T) {
	detail := "Detalle\nMonto:\n\nUSD 12.00\nTarjeta: ****1234\nfecha 01/02/2025"
	cases := []struct {
		name   string
		text   string
		labels []string
		want   string
	}{
		{"value on next non-empty line", detail, AmountLabels, "USD 12.00"},
		{"card label", detail, CardLabels, "****1234"},
		{"whitespace after label", detail, DateLabels, "01/02/2025"},
		{"absent label", detail, MerchantLabels, ""},
		{"same line", "Comercio: AUTOMERCADO\nMonto: 10", MerchantLabels, "AUTOMERCADO"},
		{"next line", "Comercio\n\nAUTOMERCADO\nMonto", MerchantLabels, "AUTOMERCADO"},
		{"case insensitive", "COMERCIO: SODA TICA", MerchantLabels, "SODA TICA"},
		{"english label", "Merchant: AMAZON", MerchantLabels, "AMAZON"},
		{"first labelled line wins", "Fecha: 01/02/2024\nDate: ignored", DateLabels, "01/02/2024"},
		{"label at end", "Monto", AmountLabels, ""},
		{"longer word skipped", "Comercios afiliados le ofrecen descuentos\nComercio: AUTOMERCADO", MerchantLabels, "AUTOMERCADO"},
		{"cardholder is not card", "Tarjetahabiente: JUAN PEREZ", CardLabels, ""},
		{"totals are not total", "Totales del mes\nTotal: USD 5.00", AmountLabels, "USD 5.00"},
		{"missing", "nothing here", CardLabels, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LabeledValue(tc.text, tc.labels...); got != tc.want {
				t.Errorf("LabeledValue() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLabeledValues(t *testing.T) {
	text := "Comercio:\n\nComercio: AUTOMERCADO\nComercios afiliados\nMerchant: AMAZON"
	// The bare label takes the next non-empty line, which is the next label line.
	want := []string{"Comercio: AUTOMERCADO", "AUTOMERCADO", "AMAZON"}
	if got := LabeledValues(text, MerchantLabels...); !reflect.DeepEqual(got, want) {
		t.Errorf("LabeledValues() = %q, want %q", got, want)
	}
	if got := LabeledValues("no labels", MerchantLabels...); got != nil {
		t.Errorf("LabeledValues() = %q, want nil", got)
	}
}
