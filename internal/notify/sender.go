package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Config holds the mail transport settings.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	AdminEmail string
	BaseURL    string
	Workers    int
	QueueSize  int
}

// Enabled reports whether an SMTP relay is configured.
func (c Config) Enabled() bool {
	return c.Host != ""
}

// SMTPSender relays through a submission server with PLAIN auth.
type SMTPSender struct {
	host   string
	addr   string
	auth   sasl.Client
	from   string
	dialer net.Dialer
}

func NewSMTPSender(cfg Config) *SMTPSender {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	var auth sasl.Client
	if cfg.User != "" {
		auth = sasl.NewPlainClient("", cfg.User, cfg.Password)
	}
	return &SMTPSender{
		host: cfg.Host,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		auth: auth,
		from: cfg.From,
	}
}

// Send delivers m over one connection. The whole exchange, dial included,
// is bounded by ctx.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	var buf bytes.Buffer
	if err := WriteMIME(&buf, s.from, m, time.Now()); err != nil {
		return err
	}
	envelopeFrom, err := bareAddress(s.from)
	if err != nil {
		return err
	}
	to, err := bareAddress(m.To)
	if err != nil {
		return err
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	// Closing the connection unblocks whatever command is in flight.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c := smtp.NewClient(conn)
	defer c.Close()
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		c.CommandTimeout = remaining
		c.SubmissionTimeout = remaining
	}

	if err := s.deliver(c, envelopeFrom, to, &buf); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send: %w", ctxErr)
		}
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) deliver(c *smtp.Client, from, to string, body io.Reader) error {
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("server does not support AUTH")
		}
		if err := c.Auth(s.auth); err != nil {
			return err
		}
	}
	if err := c.SendMail(from, []string{to}, body); err != nil {
		return err
	}
	return c.Quit()
}

// LogSender only logs; it stands in when no relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, m Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email not sent, no SMTP host configured",
		slog.String("to", m.To),
		slog.String("subject", m.Subject))
	return nil
}
