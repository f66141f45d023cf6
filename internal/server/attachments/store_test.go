package attachments

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredName_Format(t *testing.T) {
	name := StoredName("../../etc/my report.pdf")
	assert.Regexp(t, regexp.MustCompile(`^\d+-[0-9a-f]{8}-my_report\.pdf$`), name)
	assert.NoError(t, ValidateStoredName(name))
	assert.NotEqual(t, name, StoredName("../../etc/my report.pdf"))
}

func TestValidateStoredName(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "../up"} {
		assert.ErrorIs(t, ValidateStoredName(bad), common.ErrValidation, bad)
	}
}

func TestLocalStore_Lifecycle(t *testing.T) {
	base := t.TempDir()
	s := NewLocalStore(base, logging.NewDiscard())
	ctx := context.Background()

	require.NoError(t, s.CreateUserArea(ctx, 7))
	require.NoError(t, s.CreateUserArea(ctx, 7))
	assert.DirExists(t, filepath.Join(base, "user_7"))

	name, err := s.Save(ctx, 7, "notes.txt", []byte("hello"))
	require.NoError(t, err)

	ok, err := s.Exists(ctx, 7, name)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, 8, name)
	require.NoError(t, err)
	assert.False(t, ok, "other users must not see the file")

	data, err := s.Load(ctx, 7, name)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	used, err := s.UsageBytes(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), used)

	removed, err := s.Delete(ctx, 7, name)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, 7, name)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.Load(ctx, 7, name)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLocalStore_SaveCreatesArea(t *testing.T) {
	s := NewLocalStore(t.TempDir(), logging.NewDiscard())

	_, err := s.Save(context.Background(), 3, "a.bin", []byte{1, 2, 3})
	require.NoError(t, err)

	used, err := s.UsageBytes(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), used)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s := NewLocalStore(t.TempDir(), logging.NewDiscard())
	ctx := context.Background()

	_, err := s.Load(ctx, 1, "../user_2/secret")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Delete(ctx, 1, "..")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLocalStore_CleanupSkipsFailures(t *testing.T) {
	base := t.TempDir()
	s := NewLocalStore(base, logging.NewDiscard())
	ctx := context.Background()

	a, err := s.Save(ctx, 1, "a.txt", []byte("a"))
	require.NoError(t, err)
	b, err := s.Save(ctx, 1, "b.txt", []byte("b"))
	require.NoError(t, err)

	s.Cleanup(ctx, 1, []string{a, "../bad", "missing.txt", b})

	entries, err := os.ReadDir(filepath.Join(base, "user_1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_UsageOfMissingArea(t *testing.T) {
	s := NewLocalStore(t.TempDir(), logging.NewDiscard())

	used, err := s.UsageBytes(context.Background(), 99)
	require.NoError(t, err)
	assert.Zero(t, used)
}
