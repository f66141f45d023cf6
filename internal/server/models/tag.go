package models

import "time"

type Tag struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

// BlockedSender redirects future mail from Email to Junk.
type BlockedSender struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Email     string    `json:"email"`
	MessageID *int64    `json:"messageId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
