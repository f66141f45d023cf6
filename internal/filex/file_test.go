package filex

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedAndIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeName("report.pdf"))
	assert.Equal(t, "passwd", SanitizeName("../../etc/passwd"))
	assert.Equal(t, "evil.exe", SanitizeName(`C:\tmp\evil.exe`))
	assert.Equal(t, "my_photo__1_.png", SanitizeName("my photo (1).png"))
	assert.Equal(t, "file", SanitizeName(".."))
	assert.Equal(t, "file", SanitizeName(""))
}

func TestSafeJoin(t *testing.T) {
	p, err := SafeJoin("/base", "x.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/base", "x.txt"), p)

	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := SafeJoin("/base", bad)
		assert.True(t, errors.Is(err, ErrUnsafeName), bad)
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 10), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), make([]byte, 5), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	n, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)

	n, err = DirSize(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
