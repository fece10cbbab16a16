package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("keys")
	require.NoError(t, err)

	want := filepath.Join(tmp, "keys")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_AbsolutePath(t *testing.T) {
	want := filepath.Join(t.TempDir(), "a", "b")

	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestEnsureDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	first, err := EnsureDir("keys")
	require.NoError(t, err)

	second, err := EnsureDir("keys")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	require.NoError(t, os.WriteFile("keys", []byte("x"), 0o660))

	_, err := EnsureDir("keys")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestWriteNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.pem")

	require.NoError(t, WriteNew(path, []byte("one"), 0o600))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "one", string(b))

	err = WriteNew(path, []byte("two"), 0o600)
	require.ErrorIs(t, err, ErrExists)

	b, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "one", string(b), "existing file must not be overwritten")
}

func TestWriteNew_MissingDir(t *testing.T) {
	err := WriteNew(filepath.Join(t.TempDir(), "nope", "f"), []byte("x"), 0o600)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrExists)
}
