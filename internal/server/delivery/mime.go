package delivery

import (
	"io"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// WriteMIME writes env as multipart/mixed holding a multipart/related body
// (multipart/alternative text and html, then inline images) followed by
// regular attachments. Bcc is not written.
func WriteMIME(w io.Writer, env *Envelope, messageID string, date time.Time) error {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{env.From})
	if env.ReplyTo != nil {
		h.SetAddressList("Reply-To", []*mail.Address{env.ReplyTo})
	}
	if len(env.To) > 0 {
		h.SetAddressList("To", env.To)
	}
	if len(env.Cc) > 0 {
		h.SetAddressList("Cc", env.Cc)
	}
	h.SetSubject(env.Subject)
	if messageID != "" {
		h.SetMessageID(messageID)
	}
	h.Set("MIME-Version", "1.0")
	h.SetContentType("multipart/mixed", nil)

	mixed, err := message.CreateWriter(w, h.Header)
	if err != nil {
		return err
	}

	if err := writeBody(mixed, env); err != nil {
		return err
	}

	for _, p := range env.Parts {
		if p.Inline {
			continue
		}
		var ah message.Header
		ah.SetContentType(p.ContentType, nil)
		ah.SetContentDisposition("attachment", map[string]string{"filename": p.Filename})
		ah.Set("Content-Transfer-Encoding", "base64")
		if err := writePart(mixed, ah, p.Data); err != nil {
			return err
		}
	}

	return mixed.Close()
}

func writeBody(mixed *message.Writer, env *Envelope) error {
	var rh message.Header
	rh.SetContentType("multipart/related", map[string]string{"type": "multipart/alternative"})
	related, err := mixed.CreatePart(rh)
	if err != nil {
		return err
	}

	var alth message.Header
	alth.SetContentType("multipart/alternative", nil)
	alt, err := related.CreatePart(alth)
	if err != nil {
		return err
	}

	for _, body := range []struct {
		mediaType string
		content   string
	}{
		{"text/plain", env.Text},
		{"text/html", env.HTML},
	} {
		var th message.Header
		th.SetContentType(body.mediaType, map[string]string{"charset": "utf-8"})
		th.Set("Content-Transfer-Encoding", "quoted-printable")
		if err := writePart(alt, th, []byte(body.content)); err != nil {
			return err
		}
	}
	if err := alt.Close(); err != nil {
		return err
	}

	for _, p := range env.InlineParts() {
		var ih message.Header
		ih.SetContentType(p.ContentType, nil)
		ih.SetContentDisposition("inline", map[string]string{"filename": p.Filename})
		ih.Set("Content-ID", "<"+p.ContentID+">")
		ih.Set("Content-Transfer-Encoding", "base64")
		if err := writePart(related, ih, p.Data); err != nil {
			return err
		}
	}
	return related.Close()
}

func writePart(parent *message.Writer, h message.Header, data []byte) error {
	pw, err := parent.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := pw.Write(data); err != nil {
		_ = pw.Close()
		return err
	}
	return pw.Close()
}
