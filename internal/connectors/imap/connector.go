package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"caremind/internal"
	"caremind/internal/config"
)

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	mailbox  string
	now      func() time.Time
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	mailbox := cfg.IMAPDrafts
	if mailbox == "" {
		mailbox = "Drafts"
	}
	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		mailbox:  mailbox,
		now:      time.Now,
	}, nil
}

func (c *Connector) Provider() string {
	return "imap"
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	if c.secure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	}
	return imapclient.Dial(addr)
}

// SaveDraft appends the message to the drafts mailbox with the \Draft flag.
// IMAP has no server-side id for an appended message, so the Message-Id
// header is returned.
func (c *Connector) SaveDraft(ctx context.Context, msg internal.OutgoingMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client, err := c.dial()
	if err != nil {
		return "", err
	}
	defer client.Logout()

	if deadline, ok := ctx.Deadline(); ok {
		client.Timeout = time.Until(deadline)
	}

	if err := client.Login(c.user, c.password); err != nil {
		return "", err
	}

	flags := []string{imap.DraftFlag, imap.SeenFlag}
	if err := client.Append(c.mailbox, flags, c.now(), bytes.NewBuffer(msg.Raw)); err != nil {
		return "", fmt.Errorf("append to %s: %w", c.mailbox, err)
	}
	return msg.MessageID, nil
}
