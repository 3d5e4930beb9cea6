package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/bot/repositories/categories"
	"github.com/dmitrijs2005/filestash/internal/common"
	"github.com/dmitrijs2005/filestash/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	names []string
	data  [][]byte
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, name string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	f.data = append(f.data, data)
	return "filestash/" + name, nil
}

// tick returns a clock that advances one second per call.
func tick() func() time.Time {
	t := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func seeded(t *testing.T) *categories.MemoryRepository {
	t.Helper()
	repo := categories.NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.AddFile(ctx, "42", "Trip", models.FileRecord{MessageID: 100, Kind: models.KindPhoto})
	require.NoError(t, err)
	_, err = repo.CreateCategory(ctx, "42", "Docs")
	require.NoError(t, err)
	_, err = repo.AddFile(ctx, "7", "Music", models.FileRecord{MessageID: 5, Kind: models.KindAudio, FileName: "a.mp3"})
	require.NoError(t, err)
	return repo
}

func newManager(t *testing.T, repo categories.Snapshotter, max int, up Uploader) *Manager {
	m := NewManager(repo, t.TempDir(), max, up, logging.Nop())
	m.now = tick()
	return m
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seeded(t)
	m := newManager(t, src, 10, nil)

	var buf bytes.Buffer
	require.NoError(t, m.Export(ctx, &buf))
	assert.Contains(t, buf.String(), `"users"`)

	dst := categories.NewMemoryRepository()
	n, err := newManager(t, dst, 10, nil).Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want, err := src.ExportUsers(ctx)
	require.NoError(t, err)
	got, err := dst.ExportUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImport_ReadsUsersFormatAndSkipsBadNames(t *testing.T) {
	ctx := context.Background()
	repo := categories.NewMemoryRepository()
	m := newManager(t, repo, 10, nil)

	raw := `{"users":{"42":{"categories":{"Trip":[{"message_id":100,"file_type":"photo"}],"a.b":[],"Docs":[]}}}}`
	n, err := m.Import(ctx, strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	names, err := repo.ListCategories(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"Trip", "Docs"}, names)

	_, err = m.Import(ctx, strings.NewReader("not json"))
	assert.ErrorContains(t, err, "decode snapshot")
}

func TestBackup_RotatesAndUploads(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	m := newManager(t, seeded(t), 3, up)

	var created []Info
	for i := 0; i < 5; i++ {
		info, err := m.Backup(ctx)
		require.NoError(t, err)
		created = append(created, info)
	}

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, created[2].Path, list[0].Path)
	assert.Equal(t, created[4].Path, list[2].Path)
	assert.True(t, strings.HasPrefix(list[0].Name(), "filestash.backup.20240301_120003"))

	_, err = os.Stat(created[0].Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.Len(t, up.names, 5)
	assert.Equal(t, created[4].Name(), up.names[4])

	latest, err := m.Latest()
	require.NoError(t, err)
	assert.Equal(t, created[4].Path, latest.Path)
}

func TestBackup_UploadFailureKeepsLocalCopy(t *testing.T) {
	m := newManager(t, seeded(t), 3, &fakeUploader{err: errors.New("denied")})

	info, err := m.Backup(context.Background())
	assert.ErrorContains(t, err, "upload backup")
	_, statErr := os.Stat(info.Path)
	assert.NoError(t, statErr)
}

func TestList_IgnoresOtherFiles(t *testing.T) {
	m := newManager(t, seeded(t), 3, nil)
	require.NoError(t, os.WriteFile(filepath.Join(m.dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(m.dir, restorePrefix+"x.json"), []byte("{}"), 0o600))

	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = m.Latest()
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_MissingDir(t *testing.T) {
	m := NewManager(categories.NewMemoryRepository(), filepath.Join(t.TempDir(), "nope"), 3, nil, logging.Nop())
	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRestore_LatestWithSafetyCopy(t *testing.T) {
	ctx := context.Background()
	repo := seeded(t)
	m := newManager(t, repo, 10, nil)

	_, err := m.Backup(ctx)
	require.NoError(t, err)

	_, err = repo.DeleteCategory(ctx, "42", "Trip")
	require.NoError(t, err)
	_, err = repo.AddFile(ctx, "42", "New", models.FileRecord{MessageID: 1, Kind: models.KindVoice})
	require.NoError(t, err)

	n, err := m.Restore(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	names, err := repo.ListCategories(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"Trip", "Docs"}, names)

	matches, err := filepath.Glob(filepath.Join(m.dir, restorePrefix+"*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	saved, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"New"`)
}

func TestRestore_Errors(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, categories.NewMemoryRepository(), 10, nil)

	_, err := m.Restore(ctx, "")
	assert.ErrorIs(t, err, common.ErrNotFound)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = m.Restore(ctx, bad)
	assert.ErrorContains(t, err, "not valid JSON")
}
