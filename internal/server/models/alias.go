package models

import "time"

// Alias is a generated address whose mail is forwarded to ForwardTo while
// IsActive holds. AliasName is unique across all users.
type Alias struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	AliasName   string    `json:"aliasName"`
	ForwardTo   string    `json:"forwardTo"`
	IsActive    bool      `json:"isActive"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
