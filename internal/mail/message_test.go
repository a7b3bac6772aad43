package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

const multipartRaw = "From: Davivienda <notificaciones@davivienda.com>\r\n" +
	"To: user@example.com\r\n" +
	"Subject: =?UTF-8?Q?Notificaci=C3=B3n_de_transacci=C3=B3n?=\r\n" +
	"Date: Wed, 15 Jan 2025 14:31:02 -0600\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Comercio: SODA\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Comercio: SODA</p>\r\n" +
	"--b1--\r\n"

const plainRaw = "From: alertas@davibank.com\r\n" +
	"Subject: Alerta\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Monto: USD 10.00\r\n"

func TestParseMessageMultipart(t *testing.T) {
	msg, err := ParseMessage(42, strings.NewReader(multipartRaw), time.Time{})
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.UID != 42 {
		t.Errorf("UID = %d", msg.UID)
	}
	if msg.Sender != "Davivienda <notificaciones@davivienda.com>" {
		t.Errorf("Sender = %q", msg.Sender)
	}
	if msg.Subject != "Notificación de transacción" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if y, m, d := msg.Date.Date(); y != 2025 || m != time.January || d != 15 {
		t.Errorf("Date = %v", msg.Date)
	}
	if !strings.Contains(msg.TextBody, "Comercio: SODA") {
		t.Errorf("TextBody = %q", msg.TextBody)
	}
	if !strings.Contains(msg.HTMLBody, "<p>Comercio: SODA</p>") {
		t.Errorf("HTMLBody = %q", msg.HTMLBody)
	}
}

func TestParseMessageSinglePartUsesFallbackDate(t *testing.T) {
	fallback := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	msg, err := ParseMessage(7, strings.NewReader(plainRaw), fallback)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if !msg.Date.Equal(fallback) {
		t.Errorf("Date = %v, want %v", msg.Date, fallback)
	}
	if msg.Sender != "alertas@davibank.com" {
		t.Errorf("Sender = %q", msg.Sender)
	}
	if !strings.Contains(msg.TextBody, "Monto: USD 10.00") || msg.HTMLBody != "" {
		t.Errorf("bodies = %q / %q", msg.TextBody, msg.HTMLBody)
	}
}

func TestSearchCriteria(t *testing.T) {
	unseen := UnseenCriteria()
	if len(unseen.WithoutFlags) != 1 || unseen.WithoutFlags[0] != imap.SeenFlag {
		t.Errorf("UnseenCriteria().WithoutFlags = %v", unseen.WithoutFlags)
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	r := RangeCriteria(start, end)
	if !r.Since.Equal(start) || !r.Before.Equal(end) {
		t.Errorf("RangeCriteria() = %v..%v", r.Since, r.Before)
	}
}
