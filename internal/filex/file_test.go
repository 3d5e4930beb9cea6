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

func TestEnsureDir_CreatesRelativeToCWD(t *testing.T) {
	tmp, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	defer chdir(t, tmp)()

	got, err := EnsureDir("backups")
	require.NoError(t, err)

	want := filepath.Join(tmp, "backups")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backups")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureDir(path)
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFileAtomic(dir, "snap.json", []byte(`{"users":{}}`))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "snap.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"users":{}}`, string(data))

	_, err = WriteFileAtomic(dir, "snap.json", []byte("second"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")

	_, err = WriteFileAtomic(filepath.Join(dir, "missing"), "x.json", nil)
	require.Error(t, err)
}
