package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/jordan-wright/email"
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	From               string        `yaml:"from"`
	Connections        int           `yaml:"connections"`
	SendTimeout        time.Duration `yaml:"send_timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

// Enabled reports whether enough settings are present to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type mailPool interface {
	Send(e *email.Email, timeout time.Duration) error
	Close()
}

// SMTPSender sends notifications as email through a pooled SMTP connection.
type SMTPSender struct {
	pool    mailPool
	from    string
	timeout time.Duration
}

// NewSMTPSender builds an SMTP connection pool. Connections are opened
// lazily on first send.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, errors.New("smtp host and port are required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	conns := cfg.Connections
	if conns <= 0 {
		conns = 2
	}

	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	pool, err := email.NewPool(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), conns, auth, tlsConfig)
	if err != nil {
		return nil, err
	}
	return newSMTPSender(pool, cfg), nil
}

func newSMTPSender(pool mailPool, cfg SMTPConfig) *SMTPSender {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	return &SMTPSender{pool: pool, from: cfg.From, timeout: timeout}
}

// Send delivers message as a plain-text email. A context deadline shorter
// than the configured timeout wins.
func (s *SMTPSender) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	e := &email.Email{
		To:      []string{message.Destination},
		From:    s.from,
		Subject: message.Subject,
		Text:    []byte(message.Body),
		Headers: textproto.MIMEHeader{},
	}
	return s.pool.Send(e, timeout)
}

// Close releases pooled connections.
func (s *SMTPSender) Close() {
	s.pool.Close()
}
