// Package delivery turns a composed message into a MIME submission: inline
// data-URL images are rewritten to cid: references and attached, a plain
// text alternative is derived, and the result is handed to a Transport that
// authenticates as the sending user.
package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/metrics"
	"github.com/emersion/go-message/mail"
)

const DefaultCIDDomain = "webmail.local"

// InlineImage is an image embedded in the HTML body as a data: URL.
type InlineImage struct {
	ID       string `json:"id"`
	DataURL  string `json:"dataUrl"`
	Filename string `json:"filename"`
}

// Attachment is a regular attachment. Content wins over ContentBase64.
type Attachment struct {
	Filename      string `json:"filename"`
	Content       []byte `json:"-"`
	ContentBase64 string `json:"content,omitempty"`
	ContentType   string `json:"contentType"`
}

// Outbound is the plaintext message to send. Address fields are RFC 5322
// address lists.
type Outbound struct {
	From         string
	FromName     string
	To           string
	Cc           string
	Bcc          string
	Subject      string
	HTMLBody     string
	TextBody     string
	Attachments  []Attachment
	InlineImages []InlineImage
}

// Part is one binary MIME part of an Envelope.
type Part struct {
	Filename    string
	ContentType string
	// ContentID is set for inline parts, without angle brackets.
	ContentID string
	Inline    bool
	Data      []byte
}

// Envelope is a prepared message ready for a Transport.
type Envelope struct {
	From    *mail.Address
	ReplyTo *mail.Address
	To      []*mail.Address
	Cc      []*mail.Address
	// Bcc only receives the message, it never appears in headers.
	Bcc     []*mail.Address
	Subject string
	HTML    string
	Text    string
	Parts   []Part
}

// Recipients is to, cc and bcc without duplicates.
func (e *Envelope) Recipients() []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]*mail.Address{e.To, e.Cc, e.Bcc} {
		for _, a := range list {
			key := strings.ToLower(a.Address)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a.Address)
		}
	}
	return out
}

// InlineParts returns the parts that carry a content id.
func (e *Envelope) InlineParts() []Part {
	var out []Part
	for _, p := range e.Parts {
		if p.Inline {
			out = append(out, p)
		}
	}
	return out
}

// Credentials are the sending user's own mailbox credentials.
type Credentials struct {
	Username string
	Password string
}

// Result reports a delivery. A failed delivery is data, not an error.
type Result struct {
	Sent      bool   `json:"sent"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Transport submits one prepared message and returns its Message-ID.
type Transport interface {
	Send(ctx context.Context, env *Envelope, creds Credentials) (string, error)
}

type Pipeline struct {
	transport Transport
	cidDomain string
	logger    logging.Logger
	now       func() time.Time
}

func NewPipeline(transport Transport, cidDomain string, logger logging.Logger) *Pipeline {
	if cidDomain == "" {
		cidDomain = DefaultCIDDomain
	}
	return &Pipeline{transport: transport, cidDomain: cidDomain, logger: logger, now: time.Now}
}

// Prepare rewrites inline images, assembles parts and derives the text body.
func (p *Pipeline) Prepare(ctx context.Context, out *Outbound) (*Envelope, error) {
	from, err := mail.ParseAddress(out.From)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sender %q", common.ErrValidation, out.From)
	}
	if out.FromName != "" {
		from.Name = out.FromName
	}

	env := &Envelope{From: from, ReplyTo: &mail.Address{Name: from.Name, Address: from.Address}, Subject: out.Subject}
	for _, f := range []struct {
		name string
		raw  string
		dst  *[]*mail.Address
	}{
		{"to", out.To, &env.To},
		{"cc", out.Cc, &env.Cc},
		{"bcc", out.Bcc, &env.Bcc},
	} {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		list, err := mail.ParseAddressList(f.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s address list: %v", common.ErrValidation, f.name, err)
		}
		*f.dst = list
	}
	if len(env.Recipients()) == 0 {
		return nil, fmt.Errorf("%w: no recipients", common.ErrValidation)
	}

	for _, a := range out.Attachments {
		part, err := regularPart(a)
		if err != nil {
			return nil, err
		}
		env.Parts = append(env.Parts, part)
	}

	html := TextToHTML(out.HTMLBody)

	images := out.InlineImages
	if len(images) == 0 {
		images = p.discoverInlineImages(ctx, html)
	}

	html, inline := p.rewriteInlineImages(ctx, html, images)
	env.HTML = html
	env.Parts = append(env.Parts, inline...)

	env.Text = out.TextBody
	if env.Text == "" {
		env.Text = HTMLToText(html)
	}
	return env, nil
}

// Deliver prepares and submits out. It never returns an error; failures are
// reported in the Result.
func (p *Pipeline) Deliver(ctx context.Context, out *Outbound, creds Credentials) Result {
	env, err := p.Prepare(ctx, out)
	if err != nil {
		p.logger.Warn(ctx, "delivery rejected", "error", err)
		metrics.ObserveDelivery(false)
		return Result{Sent: false, Error: err.Error()}
	}

	id, err := p.transport.Send(ctx, env, creds)
	if err != nil {
		p.logger.Error(ctx, "delivery failed", "from", env.From.Address, "recipients", len(env.Recipients()), "error", err)
		metrics.ObserveDelivery(false)
		return Result{Sent: false, Error: err.Error()}
	}

	p.logger.Info(ctx, "message delivered", "from", env.From.Address, "message_id", id,
		"recipients", len(env.Recipients()), "parts", len(env.Parts))
	metrics.ObserveDelivery(true)
	return Result{Sent: true, MessageID: id}
}
