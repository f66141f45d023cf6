package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexBool(t *testing.T) {
	tests := []struct {
		raw     string
		want    *bool
		wantErr bool
	}{
		{raw: "", want: nil},
		{raw: "null", want: nil},
		{raw: "true", want: ptr(true)},
		{raw: "false", want: ptr(false)},
		{raw: `"true"`, want: ptr(true)},
		{raw: `"FALSE"`, want: ptr(false)},
		{raw: "1", want: ptr(true)},
		{raw: `"0"`, want: ptr(false)},
		{raw: `"yes please"`, wantErr: true},
		{raw: "2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseFlexBool(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAttachments(t *testing.T) {
	a := Attachment{Filename: "a.pdf", Path: "1-a.pdf", Size: 3, MimeType: "application/pdf"}

	got, bad, err := ParseAttachments(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, bad)

	got, _, err = ParseAttachments(json.RawMessage(`[{"filename":"a.pdf","path":"1-a.pdf","size":3,"mimetype":"application/pdf"}]`))
	require.NoError(t, err)
	assert.Equal(t, []Attachment{a}, *got)

	got, _, err = ParseAttachments(json.RawMessage(`"[{\"filename\":\"a.pdf\",\"path\":\"1-a.pdf\",\"size\":3,\"mimetype\":\"application/pdf\"}]"`))
	require.NoError(t, err)
	assert.Equal(t, []Attachment{a}, *got)

	got, bad, err = ParseAttachments(json.RawMessage(`"not json"`))
	require.NoError(t, err)
	assert.True(t, bad)
	assert.Empty(t, *got)

	got, _, err = ParseAttachments(json.RawMessage(`null`))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, *got)

	_, _, err = ParseAttachments(json.RawMessage(`42`))
	assert.Error(t, err)
}

func TestMessageInput_Normalize(t *testing.T) {
	var in MessageInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"subject": "Hi",
		"isRead": "true",
		"isDraft": 0,
		"priority": "HIGH",
		"attachments": "[]"
	}`), &in))

	p, err := in.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Hi", *p.Subject)
	assert.True(t, *p.IsRead)
	assert.False(t, *p.IsDraft)
	assert.Nil(t, p.IsStarred)
	assert.Equal(t, PriorityHigh, *p.Priority)
	require.NotNil(t, p.Attachments)
	assert.Empty(t, *p.Attachments)
	assert.Nil(t, p.Body)
}

func TestMessageInput_NormalizeRejectsBadInput(t *testing.T) {
	bad := "urgent"
	_, err := (&MessageInput{Priority: &bad}).Normalize()
	assert.True(t, errors.Is(err, common.ErrValidation))

	_, err = (&MessageInput{IsStarred: json.RawMessage(`"maybe"`)}).Normalize()
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestAttachmentList_ValueScan(t *testing.T) {
	l := AttachmentList{{Filename: "x", Path: "p", Size: 1, MimeType: "text/plain"}}
	v, err := l.Value()
	require.NoError(t, err)

	var back AttachmentList
	require.NoError(t, back.Scan([]byte(v.(string))))
	assert.Equal(t, l, back)

	v, _ = AttachmentList(nil).Value()
	assert.Equal(t, "[]", v)

	require.NoError(t, back.Scan("[]"))
	assert.Nil(t, back)
}

func TestFolderRef(t *testing.T) {
	assert.True(t, SystemRef(FolderInbox).Valid())
	assert.True(t, CustomRef(5).Valid())
	assert.False(t, FolderRef{}.Valid())
	assert.False(t, FolderRef{System: FolderInbox, CustomID: 1}.Valid())
	assert.Equal(t, "custom:5", CustomRef(5).String())

	f, ok := ParseSystemFolder(" Junk ")
	assert.True(t, ok)
	assert.Equal(t, FolderJunk, f)
	_, ok = ParseSystemFolder("starred")
	assert.False(t, ok)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{FirstName: "Ada", LastName: "Lovelace", Email: "a@x"}).DisplayName())
	assert.Equal(t, "a@x", (&User{Email: "a@x"}).DisplayName())
}

func ptr[T any](v T) *T { return &v }
