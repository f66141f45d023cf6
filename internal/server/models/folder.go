// Package models defines the server-side data models: what repositories
// persist and what services hand to callers.
package models

import (
	"strconv"
	"strings"
	"time"
)

// SystemFolder names one of the fixed folders every user has.
type SystemFolder string

const (
	FolderInbox   SystemFolder = "inbox"
	FolderArchive SystemFolder = "archive"
	FolderSent    SystemFolder = "sent"
	FolderDrafts  SystemFolder = "drafts"
	FolderJunk    SystemFolder = "junk"
	FolderTrash   SystemFolder = "trash"
)

// VirtualStarred is the folder identifier of the cross-folder starred view.
const VirtualStarred = "starred"

// SystemFolders lists the system folders in display order.
var SystemFolders = []SystemFolder{FolderInbox, FolderArchive, FolderSent, FolderDrafts, FolderJunk, FolderTrash}

// ParseSystemFolder matches name case-insensitively against the system
// folders.
func ParseSystemFolder(name string) (SystemFolder, bool) {
	n := SystemFolder(strings.ToLower(strings.TrimSpace(name)))
	for _, f := range SystemFolders {
		if f == n {
			return f, true
		}
	}
	return "", false
}

// FolderRef points at exactly one folder: a system folder or a custom one.
type FolderRef struct {
	System   SystemFolder `json:"system,omitempty"`
	CustomID int64        `json:"customId,omitempty"`
}

func SystemRef(f SystemFolder) FolderRef { return FolderRef{System: f} }

func CustomRef(id int64) FolderRef { return FolderRef{CustomID: id} }

// Valid reports whether exactly one member is set.
func (r FolderRef) Valid() bool {
	return (r.System != "") != (r.CustomID != 0)
}

func (r FolderRef) Is(f SystemFolder) bool { return r.System == f }

func (r FolderRef) IsCustom() bool { return r.System == "" && r.CustomID != 0 }

func (r FolderRef) String() string {
	if r.IsCustom() {
		return "custom:" + strconv.FormatInt(r.CustomID, 10)
	}
	return string(r.System)
}

// FolderKind distinguishes static system folders from persisted ones.
type FolderKind string

const (
	FolderKindSystem FolderKind = "system"
	FolderKindCustom FolderKind = "custom"
)

// Folder is a listing entry. System folders have ID 0 and no timestamps.
type Folder struct {
	ID        int64        `json:"id,omitempty"`
	UserID    int64        `json:"-"`
	Name      string       `json:"name"`
	Kind      FolderKind   `json:"kind"`
	System    SystemFolder `json:"system,omitempty"`
	Color     string       `json:"color,omitempty"`
	Icon      string       `json:"icon,omitempty"`
	CreatedAt time.Time    `json:"createdAt,omitzero"`
	UpdatedAt time.Time    `json:"updatedAt,omitzero"`
}

func (f *Folder) Ref() FolderRef {
	if f.Kind == FolderKindSystem {
		return SystemRef(f.System)
	}
	return CustomRef(f.ID)
}
