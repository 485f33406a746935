package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(t.TempDir())
	require.NoError(t, err)
	return r
}

func TestEnsureLayout_CreatesTopLevelDirs(t *testing.T) {
	r := newResolver(t)
	require.NoError(t, r.EnsureLayout())

	for _, dir := range []string{"users", "shared", "backups"} {
		info, err := os.Stat(filepath.Join(r.Root(), dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestUserDir_CreatesSubtree(t *testing.T) {
	r := newResolver(t)

	dir, err := r.UserDir("abc123")
	require.NoError(t, err)

	for _, sub := range []string{
		dir,
		filepath.Join(dir, "uploads"),
		filepath.Join(dir, "uploads", "files"),
		filepath.Join(dir, "preferences"),
	} {
		info, err := os.Stat(sub)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestUserDir_EmptyKey(t *testing.T) {
	r := newResolver(t)

	_, err := r.UserDir("")
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestValidate(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"inside root", filepath.Join(r.Root(), "users", "k", "x.json"), true},
		{"root itself", r.Root(), true},
		{"traversal", filepath.Join(r.Root(), "..", "etc", "passwd"), false},
		{"absolute outside", "/etc/passwd", false},
		{"sibling prefix", r.Root() + "-evil/x", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Validate(tc.path))
		})
	}
}
