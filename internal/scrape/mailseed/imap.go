package mailseed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPMailbox reads job-alert mail over IMAPS. It never marks messages seen.
type IMAPMailbox struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	// Max caps how many messages one call pulls, newest first.
	Max int
}

func (m IMAPMailbox) addr() string {
	port := m.Port
	if port == 0 {
		port = 993
	}
	return net.JoinHostPort(m.Host, strconv.Itoa(port))
}

// Messages returns messages received on or after since.
func (m IMAPMailbox) Messages(ctx context.Context, since time.Time) ([]Message, error) {
	c, stop, err := dialAndLogin(ctx, m.addr(), m.Username, m.Password, &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: m.Host,
	})
	if err != nil {
		return nil, err
	}
	defer stop()
	defer logoutAndClose(c)

	box := m.Mailbox
	if box == "" {
		box = "INBOX"
	}
	if _, err := c.Select(box, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %q: %w", box, err)
	}
	return fetchSince(ctx, c, since, m.Max)
}

// dialAndLogin connects and logs in. The returned stop func detaches the
// close-on-cancel hook.
func dialAndLogin(ctx context.Context, addr, username, password string, tlsCfg *tls.Config) (*imapclient.Client, func() bool, error) {
	if username == "" || password == "" {
		return nil, nil, errors.New("imap username/password is required")
	}
	c, err := imapclient.DialTLS(addr, &imapclient.Options{TLSConfig: tlsCfg})
	if err != nil {
		return nil, nil, fmt.Errorf("imap dial tls: %w", err)
	}
	// close on cancel so blocked commands return
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })

	if err := c.Login(username, password).Wait(); err != nil {
		stop()
		_ = c.Close()
		return nil, nil, fmt.Errorf("imap login: %w", err)
	}
	return c, stop, nil
}

// fetchSince pulls up to max messages newer than since with envelope and the
// raw RFC822 body. BODY.PEEK[] leaves \Seen untouched.
func fetchSince(ctx context.Context, c *imapclient.Client, since time.Time, max int) ([]Message, error) {
	if max <= 0 {
		max = 200
	}
	searchData, err := c.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	// newest first
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	cmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = cmd.Close() }()

	out := make([]Message, 0, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgData := cmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}
		var msg Message
		if buf.Envelope != nil {
			msg.Subject = buf.Envelope.Subject
			msg.Date = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				msg.From = buf.Envelope.From[0].Addr()
			}
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			msg.Raw = append([]byte(nil), b...)
		}
		out = append(out, msg)
	}
	if err := cmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

func logoutAndClose(c *imapclient.Client) {
	if err := c.Logout().Wait(); err != nil {
		log.Printf("[mailseed] imap logout: %v", err)
	}
	_ = c.Close()
}
