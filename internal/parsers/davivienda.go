package parsers

import (
	"strings"

	"mailledger/internal/core"
	"mailledger/internal/extract"
)

// DaviviendaSenders are the notification addresses Davivienda mails from.
var DaviviendaSenders = []string{
	"notificaciones@davivienda.com",
	"alertas@davivienda.cr",
	"avisos@davivienda.com",
}

// Davivienda is matched by sender, so it accepts every subject variant.
// The subject is kept in the transaction notes.
type Davivienda struct{}

func NewDavivienda() *Davivienda { return &Davivienda{} }

func (*Davivienda) Institution() string { return "Davivienda" }

func (*Davivienda) CanParse(msg core.Message) bool {
	sender := strings.ToLower(msg.Sender)
	for _, s := range DaviviendaSenders {
		if strings.Contains(sender, s) {
			return true
		}
	}
	return false
}

func (d *Davivienda) Parse(msg core.Message) (tx core.Transaction, err error) {
	defer recoverParse(d.Institution(), &err)

	text := bodyText(msg)
	if text == "" {
		return tx, failure(d.Institution(), ErrNoBody)
	}

	amount, _ := extract.FindAmount(text)
	f := fields{
		merchant: extract.FindMerchant(text,
			extract.MerchantLabeled, extract.MerchantEnAt, extract.MerchantCompraEn),
		amount:    amount,
		card:      extract.FindCard(text),
		timestamp: extract.FindTimestamp(text, msg.MessageDate(), extract.TimestampLabeled, extract.TimestampNumeric),
		notes:     msg.Subject,
	}
	return f.transaction(d.Institution())
}
