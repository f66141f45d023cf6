package models

import "time"

// User is an account. MailboxSecret is the mailbox password encrypted with
// the user's field key; it is used to authenticate outbound submission.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	MailboxSecret string    `json:"-"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Signature     string    `json:"signature"`
	StorageQuota  int64     `json:"storageQuota"`
	StorageUsed   int64     `json:"storageUsed"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DisplayName is "First Last", or the email when both are empty.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}
