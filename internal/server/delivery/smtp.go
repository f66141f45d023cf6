package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

// TLS modes for SMTP submission.
const (
	TLSModeNone     = "none"
	TLSModeStartTLS = "starttls"
	TLSModeImplicit = "tls"
)

type SMTPConfig struct {
	Host               string
	Port               int
	TLSMode            string
	InsecureSkipVerify bool
	Timeout            time.Duration
	// MessageIDDomain is used when the sender address has no domain.
	MessageIDDomain string
}

// smtpClient is the part of *smtp.Client the transport drives.
type smtpClient interface {
	StartTLS(config *tls.Config) error
	Auth(a sasl.Client) error
	SendMail(from string, to []string, r io.Reader) error
	Quit() error
	Close() error
}

var dialSMTP = func(addr string, implicitTLS bool, cfg *tls.Config) (smtpClient, error) {
	var (
		c   *smtp.Client
		err error
	)
	if implicitTLS {
		c, err = smtp.DialTLS(addr, cfg)
	} else {
		c, err = smtp.Dial(addr)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SMTPTransport submits messages over SMTP, authenticating with SASL PLAIN
// as the sending user.
type SMTPTransport struct {
	cfg SMTPConfig
	now func() time.Time
}

func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	switch cfg.TLSMode {
	case "":
		cfg.TLSMode = TLSModeStartTLS
	case TLSModeNone, TLSModeStartTLS, TLSModeImplicit:
	default:
		return nil, fmt.Errorf("unknown smtp tls mode %q", cfg.TLSMode)
	}
	if cfg.MessageIDDomain == "" {
		cfg.MessageIDDomain = DefaultCIDDomain
	}
	return &SMTPTransport{cfg: cfg, now: time.Now}, nil
}

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: t.cfg.Host, InsecureSkipVerify: t.cfg.InsecureSkipVerify}
}

// connect dials, upgrades and authenticates. The returned release func must
// be called once the session is over; until then the connection is closed if
// ctx is done.
func (t *SMTPTransport) connect(ctx context.Context, creds Credentials) (smtpClient, func(), error) {
	c, err := dialSMTP(t.addr(), t.cfg.TLSMode == TLSModeImplicit, t.tlsConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("smtp dial %s: %w", t.addr(), err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()
	release := func() { close(done) }

	fail := func(err error) (smtpClient, func(), error) {
		release()
		_ = c.Close()
		return nil, nil, err
	}

	if t.cfg.TLSMode == TLSModeStartTLS {
		if err := c.StartTLS(t.tlsConfig()); err != nil {
			return fail(fmt.Errorf("smtp starttls: %w", err))
		}
	}

	if creds.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", creds.Username, creds.Password)); err != nil {
			return fail(fmt.Errorf("smtp auth: %w", err))
		}
	}
	return c, release, nil
}

func (t *SMTPTransport) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, t.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (t *SMTPTransport) messageID(from string) string {
	domain := t.cfg.MessageIDDomain
	if _, d, ok := strings.Cut(from, "@"); ok && d != "" {
		domain = d
	}
	return uuid.NewString() + "@" + domain
}

// Send renders env and submits it to every recipient. The returned
// Message-ID has no angle brackets.
func (t *SMTPTransport) Send(ctx context.Context, env *Envelope, creds Credentials) (string, error) {
	id := t.messageID(env.From.Address)

	var buf bytes.Buffer
	if err := WriteMIME(&buf, env, id, t.now()); err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	c, release, err := t.connect(ctx, creds)
	if err != nil {
		return "", err
	}
	defer release()

	if err := c.SendMail(env.From.Address, env.Recipients(), &buf); err != nil {
		_ = c.Close()
		return "", fmt.Errorf("smtp send: %w", err)
	}
	if err := c.Quit(); err != nil {
		_ = c.Close()
	}
	return id, nil
}

// Verify checks that creds can log in to the submission server.
func (t *SMTPTransport) Verify(ctx context.Context, creds Credentials) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	c, release, err := t.connect(ctx, creds)
	if err != nil {
		return err
	}
	defer release()

	if err := c.Quit(); err != nil {
		_ = c.Close()
	}
	return nil
}
