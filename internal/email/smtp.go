package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Client struct {
	sender  Sender
	from    string
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

// WithSender replaces the SMTP dialer.
func WithSender(s Sender) Option {
	return func(c *Client) {
		c.sender = s
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds an SMTP client. An empty host leaves the client
// unconfigured; sends are then logged instead of delivered.
func NewClient(host string, port int, username, password, from string, opts ...Option) *Client {
	c := &Client{
		from:    from,
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	if host != "" {
		c.sender = gomail.NewDialer(host, port, username, password)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if an SMTP server is set.
func (c *Client) Configured() bool {
	return c.sender != nil
}

// ErrTimeout is returned when the SMTP exchange outlives the send timeout.
var ErrTimeout = errors.New("smtp send timed out")

func (c *Client) send(ctx context.Context, m *gomail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.sender.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// SendPartnerInvite mails the one-time signup link to a prospective partner.
func (c *Client) SendPartnerInvite(ctx context.Context, toEmail, link string, expiresAt time.Time) error {
	if !c.Configured() {
		c.logger.Info("smtp not configured, invite not mailed", "to", toEmail, "link", link)
		return nil
	}

	expires := expiresAt.UTC().Format("Jan 2, 2006")
	textBody := fmt.Sprintf(
		"You've been invited to join the partner portal.\n\nCreate your account here:\n\n%s\n\nThis link can be used once and expires on %s.",
		link, expires,
	)
	htmlBody := fmt.Sprintf(
		`<p>You've been invited to join the partner portal.</p><p><a href="%s">Create your account</a></p><p>This link can be used once and expires on %s.</p>`,
		html.EscapeString(link), expires,
	)

	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your partner portal invitation")
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	return c.send(ctx, m)
}
