package parsers

import (
	"strings"

	"mailledger/internal/core"
	"mailledger/internal/extract"
)

const davibankSubject = "Alerta Transacción Tarjeta de Crédito Titular"

// Davibank parses credit card alerts of the form
// "transacción realizada en X, el día DD/MM/YYYY a las HH:MM PM".
type Davibank struct{}

func NewDavibank() *Davibank { return &Davibank{} }

func (*Davibank) Institution() string { return "Davibank" }

func (*Davibank) CanParse(msg core.Message) bool {
	return strings.Contains(msg.Subject, davibankSubject)
}

func (d *Davibank) Parse(msg core.Message) (tx core.Transaction, err error) {
	defer recoverParse(d.Institution(), &err)

	text := bodyText(msg)
	if text == "" {
		return tx, failure(d.Institution(), ErrNoBody)
	}

	amount, _ := extract.FindAmount(text)
	f := fields{
		merchant: extract.FindMerchant(text,
			extract.MerchantRealizadaEn, extract.MerchantLabeled, extract.MerchantCompraEn),
		amount: amount,
		card:   extract.FindCard(text),
		timestamp: extract.FindTimestamp(text, msg.MessageDate(),
			extract.TimestampDavibank, extract.TimestampLabeled, extract.TimestampNumeric),
	}
	return f.transaction(d.Institution())
}
