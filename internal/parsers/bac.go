package parsers

import (
	"strings"
	"time"

	"mailledger/internal/core"
	"mailledger/internal/extract"
)

const bacSubject = "Notificación de transacción"

// bacEmphasisStopWords disqualify emphasised text as a merchant fallback.
var bacEmphasisStopWords = []string{"bac", "monto", "tarjeta", "fecha"}

// BAC parses BAC Credomatic notifications. They are HTML tables of
// label/value cells and are recognised by subject.
type BAC struct{}

func NewBAC() *BAC { return &BAC{} }

func (*BAC) Institution() string { return "BAC" }

func (*BAC) CanParse(msg core.Message) bool {
	return strings.Contains(msg.Subject, bacSubject)
}

func (b *BAC) Parse(msg core.Message) (tx core.Transaction, err error) {
	defer recoverParse(b.Institution(), &err)

	if strings.TrimSpace(msg.HTMLBody) == "" {
		return tx, failure(b.Institution(), ErrNoBody)
	}
	text := extract.HTMLToText(msg.HTMLBody)

	f := fields{
		merchant:  b.merchant(msg.HTMLBody, text),
		amount:    b.amount(text),
		card:      b.card(text),
		timestamp: b.timestamp(text, msg.MessageDate()),
	}
	return f.transaction(b.Institution())
}

func (*BAC) merchant(doc, text string) string {
	for _, v := range extract.LabeledValues(text, extract.MerchantLabels...) {
		if m := extract.CleanMerchant(v); m != "" {
			return m
		}
	}
	for _, candidate := range extract.EmphasizedText(doc) {
		if len(candidate) > 3 && !containsAny(strings.ToLower(candidate), bacEmphasisStopWords) {
			return core.NormalizeMerchant(candidate)
		}
	}
	return extract.FindMerchant(text)
}

func (*BAC) amount(text string) extract.Amount {
	for _, v := range extract.LabeledValues(text, extract.AmountLabels...) {
		if a := extract.ParseAmount(v); a.Money.Cents > 0 {
			return a
		}
	}
	a, _ := extract.FindAmount(text, extract.AmountCurrencyPrefix, extract.AmountCurrencySuffix)
	return a
}

func (*BAC) card(text string) string {
	for _, v := range extract.LabeledValues(text, extract.CardLabels...) {
		if c := extract.FindCard(v, extract.CardTrailing4); c != "" {
			return c
		}
	}
	return extract.FindCard(text)
}

func (*BAC) timestamp(text string, fallback time.Time) time.Time {
	for _, v := range extract.LabeledValues(text, extract.DateLabels...) {
		if ts, ok := extract.MatchTimestamp(v, extract.TimestampDateOnly, extract.TimestampSpanish); ok {
			return ts
		}
	}
	return extract.FindTimestamp(text, fallback, extract.TimestampSpanish, extract.TimestampLabeled, extract.TimestampNumeric)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
