// Package mail fetches bank notifications over IMAP and converts them into
// core.Message values.
package mail

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"

	"mailledger/internal/core"
)

// ParseMessage reads an RFC 5322 message. fallbackDate is used when the
// message carries no parseable Date header.
func ParseMessage(uid uint32, r io.Reader, fallbackDate time.Time) (core.Message, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return core.Message{}, fmt.Errorf("read message %d: %w", uid, err)
	}
	defer mr.Close()

	msg := core.Message{UID: uid, Date: fallbackDate}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = mr.Header.Get("Subject")
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.Sender = formatAddress(from[0])
	} else {
		msg.Sender = mr.Header.Get("From")
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		msg.Date = date
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
				continue
			}
			return msg, fmt.Errorf("read part of message %d: %w", uid, err)
		}
		h, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch contentType {
		case "text/html":
			if msg.HTMLBody == "" {
				msg.HTMLBody = string(body)
			}
		case "text/plain", "":
			if msg.TextBody == "" {
				msg.TextBody = string(body)
			}
		}
	}
	return msg, nil
}

func formatAddress(a *gomail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}
