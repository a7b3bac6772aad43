package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const isoLayout = "2006-01-02T15:04:05"

// FormatISO renders a naive wall-clock timestamp without zone, adding
// microseconds only when they are non-zero.
func FormatISO(t time.Time) string {
	s := t.Format(isoLayout)
	if us := t.Nanosecond() / 1000; us != 0 {
		s += "." + leftPad(strconv.Itoa(us), 6)
	}
	return s
}

// ParseISO is the inverse of FormatISO. Timestamps are read as UTC wall clock.
func ParseISO(s string) (time.Time, error) {
	return time.ParseInLocation(isoLayout, strings.TrimSpace(s), time.UTC)
}

// GlobalID is the content fingerprint of a transaction. Notes and category
// are not part of it.
func (t Transaction) GlobalID() string {
	h := sha256.New()
	h.Write([]byte(FormatISO(t.Timestamp)))
	h.Write([]byte(t.Merchant))
	h.Write([]byte(strconv.FormatInt(t.Amount.Cents, 10)))
	h.Write([]byte(t.Currency))
	h.Write([]byte(t.Institution))
	h.Write([]byte(t.PaymentInstrument))
	return hex.EncodeToString(h.Sum(nil))
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
