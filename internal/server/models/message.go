package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Priority of a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// Attachment is the metadata of one stored file. Path is the store-generated
// name inside the owner's attachment area.
type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}

// AttachmentList is stored as a JSON array.
type AttachmentList []Attachment

func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Attachment(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *AttachmentList) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("attachments: unsupported column type %T", src)
	}

	var out []Attachment
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("attachments: %w", err)
	}
	if len(out) == 0 {
		out = nil
	}
	*l = out
	return nil
}

// Message is one stored mail. Address, subject and body fields hold
// ciphertext while inside repositories and plaintext everywhere else.
type Message struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Folder    FolderRef `json:"folder"`
	MessageID string    `json:"messageId"`

	FromAddress string `json:"fromAddress"`
	FromName    string `json:"fromName"`
	ToAddress   string `json:"toAddress"`
	ToName      string `json:"toName"`
	CcAddress   string `json:"ccAddress"`
	BccAddress  string `json:"bccAddress"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	BodyHTML    string `json:"bodyHtml"`

	IsRead         bool           `json:"isRead"`
	IsStarred      bool           `json:"isStarred"`
	IsDraft        bool           `json:"isDraft"`
	IsActiveDraft  bool           `json:"isActiveDraft"`
	HasAttachments bool           `json:"hasAttachments"`
	Attachments    AttachmentList `json:"attachments"`
	Priority       Priority       `json:"priority"`
	Tags           []string       `json:"tags"`

	ReceivedAt *time.Time `json:"receivedAt"`
	SentAt     *time.Time `json:"sentAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// EncryptedFields returns pointers to the fields kept as ciphertext at rest.
func (m *Message) EncryptedFields() []*string {
	return []*string{
		&m.FromAddress, &m.ToAddress, &m.CcAddress, &m.BccAddress,
		&m.Subject, &m.Body, &m.BodyHTML,
	}
}

// Clone returns a deep copy.
func (m *Message) Clone() *Message {
	c := *m
	if m.Attachments != nil {
		c.Attachments = append(AttachmentList(nil), m.Attachments...)
	}
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	if m.ReceivedAt != nil {
		t := *m.ReceivedAt
		c.ReceivedAt = &t
	}
	if m.SentAt != nil {
		t := *m.SentAt
		c.SentAt = &t
	}
	return &c
}
