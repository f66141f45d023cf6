package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
)

// MessageInput is the caller-facing shape of message fields. Booleans and
// attachments accept several encodings; Normalize turns them into a
// MessagePatch. A nil field means "not provided".
type MessageInput struct {
	Folder      *string `json:"folder,omitempty"`
	MessageID   *string `json:"messageId,omitempty"`
	FromAddress *string `json:"fromAddress,omitempty"`
	FromName    *string `json:"fromName,omitempty"`
	ToAddress   *string `json:"toAddress,omitempty"`
	ToName      *string `json:"toName,omitempty"`
	CcAddress   *string `json:"ccAddress,omitempty"`
	BccAddress  *string `json:"bccAddress,omitempty"`
	Subject     *string `json:"subject,omitempty"`
	Body        *string `json:"body,omitempty"`
	BodyHTML    *string `json:"bodyHtml,omitempty"`

	IsRead        json.RawMessage `json:"isRead,omitempty"`
	IsStarred     json.RawMessage `json:"isStarred,omitempty"`
	IsDraft       json.RawMessage `json:"isDraft,omitempty"`
	IsActiveDraft json.RawMessage `json:"isActiveDraft,omitempty"`

	// Attachments is an array, its JSON string serialisation, or null.
	Attachments json.RawMessage `json:"attachments,omitempty"`

	Priority          *string    `json:"priority,omitempty"`
	ReceivedAt        *time.Time `json:"receivedAt,omitempty"`
	IfUnmodifiedSince *time.Time `json:"ifUnmodifiedSince,omitempty"`
}

// MessagePatch is the strict form services work with. Attachments set to a
// pointer to an empty slice clears them; nil leaves them untouched.
type MessagePatch struct {
	Folder      *string
	MessageID   *string
	FromAddress *string
	FromName    *string
	ToAddress   *string
	ToName      *string
	CcAddress   *string
	BccAddress  *string
	Subject     *string
	Body        *string
	BodyHTML    *string

	IsRead        *bool
	IsStarred     *bool
	IsDraft       *bool
	IsActiveDraft *bool

	Attachments *[]Attachment
	// AttachmentsMalformed is set when a string form could not be parsed and
	// was treated as null.
	AttachmentsMalformed bool

	Priority          *Priority
	ReceivedAt        *time.Time
	IfUnmodifiedSince *time.Time
}

// Normalize validates the loose input shapes and returns the strict patch.
func (in *MessageInput) Normalize() (MessagePatch, error) {
	p := MessagePatch{
		Folder:            in.Folder,
		MessageID:         in.MessageID,
		FromAddress:       in.FromAddress,
		FromName:          in.FromName,
		ToAddress:         in.ToAddress,
		ToName:            in.ToName,
		CcAddress:         in.CcAddress,
		BccAddress:        in.BccAddress,
		Subject:           in.Subject,
		Body:              in.Body,
		BodyHTML:          in.BodyHTML,
		ReceivedAt:        in.ReceivedAt,
		IfUnmodifiedSince: in.IfUnmodifiedSince,
	}

	var err error
	for _, f := range []struct {
		name string
		raw  json.RawMessage
		dst  **bool
	}{
		{"isRead", in.IsRead, &p.IsRead},
		{"isStarred", in.IsStarred, &p.IsStarred},
		{"isDraft", in.IsDraft, &p.IsDraft},
		{"isActiveDraft", in.IsActiveDraft, &p.IsActiveDraft},
	} {
		if *f.dst, err = ParseFlexBool(f.raw); err != nil {
			return MessagePatch{}, fmt.Errorf("%w: %s: %v", common.ErrValidation, f.name, err)
		}
	}

	if p.Attachments, p.AttachmentsMalformed, err = ParseAttachments(in.Attachments); err != nil {
		return MessagePatch{}, fmt.Errorf("%w: attachments: %v", common.ErrValidation, err)
	}

	if in.Priority != nil {
		pr := Priority(strings.ToLower(strings.TrimSpace(*in.Priority)))
		if pr == "" {
			pr = PriorityNormal
		}
		if !pr.Valid() {
			return MessagePatch{}, fmt.Errorf("%w: priority %q", common.ErrValidation, *in.Priority)
		}
		p.Priority = &pr
	}

	return p, nil
}

// ParseFlexBool accepts true/false, 1/0 and their quoted forms. Absent and
// null values yield nil.
func ParseFlexBool(raw json.RawMessage) (*bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
	}

	var v bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		v = true
	case "false", "0", "":
		v = false
	default:
		return nil, fmt.Errorf("invalid boolean %s", raw)
	}
	return &v, nil
}

// ParseAttachments accepts a JSON array, a JSON string holding an array, or
// null (meaning "clear"). An absent value yields nil. A string that does not
// parse is reported through malformed and treated as null.
func ParseAttachments(raw json.RawMessage) (list *[]Attachment, malformed bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false, nil
	}

	empty := []Attachment{}
	switch raw[0] {
	case 'n':
		if string(raw) != "null" {
			return nil, false, fmt.Errorf("unexpected value %s", raw)
		}
		return &empty, false, nil
	case '[':
		var out []Attachment
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, false, err
		}
		return &out, false, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false, err
		}
		s = strings.TrimSpace(s)
		if s == "" || s == "null" {
			return &empty, false, nil
		}
		var out []Attachment
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return &empty, true, nil
		}
		return &out, false, nil
	default:
		return nil, false, fmt.Errorf("unexpected value %s", raw)
	}
}
