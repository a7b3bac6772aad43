package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"mailledger/internal/core"
)

var ErrNotConfigured = errors.New("imap is not configured")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Folder   string
	Timeout  time.Duration
}

// IMAPClient opens one authenticated session per operation.
type IMAPClient struct {
	cfg    Config
	logger *slog.Logger
}

func NewIMAPClient(cfg Config, logger *slog.Logger) *IMAPClient {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IMAPClient{cfg: cfg, logger: logger}
}

// FetchUnseen returns every message without the \Seen flag. Bodies are
// fetched with PEEK so the flag is left untouched.
func (c *IMAPClient) FetchUnseen(ctx context.Context) ([]core.Message, error) {
	return c.fetch(ctx, UnseenCriteria())
}

// FetchRange returns messages dated on or after start and before end.
func (c *IMAPClient) FetchRange(ctx context.Context, start, end time.Time) ([]core.Message, error) {
	return c.fetch(ctx, RangeCriteria(start, end))
}

// MarkSeen sets \Seen on the given UIDs.
func (c *IMAPClient) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	return c.session(ctx, func(cl *client.Client) error {
		seqset := new(imap.SeqSet)
		seqset.AddNum(uids...)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := cl.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return fmt.Errorf("mark seen: %w", err)
		}
		c.logger.InfoContext(ctx, "Messages marked as seen", "count", len(uids))
		return nil
	})
}

// UnseenCriteria matches messages without the \Seen flag.
func UnseenCriteria() *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	return criteria
}

// RangeCriteria matches messages in [start, end) by internal date.
func RangeCriteria(start, end time.Time) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.Since = start
	criteria.Before = end
	return criteria
}

func (c *IMAPClient) fetch(ctx context.Context, criteria *imap.SearchCriteria) ([]core.Message, error) {
	var out []core.Message
	err := c.session(ctx, func(cl *client.Client) error {
		uids, err := cl.UidSearch(criteria)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if len(uids) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		seqset := new(imap.SeqSet)
		seqset.AddNum(uids...)
		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

		messages := make(chan *imap.Message, 16)
		done := make(chan error, 1)
		go func() {
			done <- cl.UidFetch(seqset, items, messages)
		}()

		for m := range messages {
			body := m.GetBody(section)
			if body == nil {
				c.logger.WarnContext(ctx, "Message without body skipped", "uid", m.Uid)
				continue
			}
			msg, err := ParseMessage(m.Uid, body, m.InternalDate)
			if err != nil {
				c.logger.WarnContext(ctx, "Unreadable message skipped", "uid", m.Uid, "error", err)
				continue
			}
			out = append(out, msg)
		}
		if err := <-done; err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Messages fetched", "count", len(out), "folder", c.cfg.Folder)
	return out, nil
}

func (c *IMAPClient) session(ctx context.Context, fn func(*client.Client) error) error {
	if c.cfg.Host == "" || c.cfg.User == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	cl, err := client.DialWithDialerTLS(&net.Dialer{Timeout: c.cfg.Timeout}, addr, nil)
	if err != nil {
		return fmt.Errorf("dial imap %s: %w", addr, err)
	}
	cl.Timeout = c.cfg.Timeout
	defer cl.Logout()

	if err := cl.Login(c.cfg.User, c.cfg.Password); err != nil {
		return fmt.Errorf("imap login: %w", err)
	}
	if _, err := cl.Select(c.cfg.Folder, false); err != nil {
		return fmt.Errorf("select %s: %w", c.cfg.Folder, err)
	}
	return fn(cl)
}
