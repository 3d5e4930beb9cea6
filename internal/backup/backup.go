// Package backup exports the category store to JSON snapshots, keeps a
// rotating set of them on disk, optionally copies each one to S3, and
// restores a snapshot back into the store.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/bot/repositories/categories"
	"github.com/dmitrijs2005/filestash/internal/common"
	"github.com/dmitrijs2005/filestash/internal/filex"
	"github.com/dmitrijs2005/filestash/internal/logging"
)

const (
	backupPrefix  = "filestash.backup."
	restorePrefix = "filestash.before_restore."
	suffix        = ".json"

	// timestamps sort lexically in creation order
	stampLayout = "20060102_150405.000"
)

// Uploader copies a finished backup off-site.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Info describes one backup file.
type Info struct {
	Path    string
	Size    int64
	ModTime time.Time
}

func (i Info) Name() string { return filepath.Base(i.Path) }

type Manager struct {
	store      categories.Snapshotter
	dir        string
	maxBackups int
	uploader   Uploader
	logger     logging.Logger
	now        func() time.Time
}

// NewManager keeps at most maxBackups snapshots in dir. uploader may be nil.
func NewManager(store categories.Snapshotter, dir string, maxBackups int, uploader Uploader, logger logging.Logger) *Manager {
	if maxBackups < 1 {
		maxBackups = 10
	}
	return &Manager{
		store:      store,
		dir:        dir,
		maxBackups: maxBackups,
		uploader:   uploader,
		logger:     logger.With("module", "backup"),
		now:        time.Now,
	}
}

// Export writes the whole store as a snapshot to w.
func (m *Manager) Export(ctx context.Context, w io.Writer) error {
	users, err := m.store.ExportUsers(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(models.Snapshot{Users: users}); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Import replaces every user found in the snapshot read from r. Users absent
// from the snapshot are left alone. Categories whose names the store cannot
// hold are skipped with a warning. It returns the number of users written.
func (m *Manager) Import(ctx context.Context, r io.Reader) (int, error) {
	var snap models.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}

	for _, u := range snap.Users {
		doc := models.UserDocument{ID: u.ID, Categories: models.Categories{}}
		for _, c := range u.Categories {
			if n, err := models.NormalizeCategoryName(c.Name); err != nil || n != c.Name {
				m.logger.Warn(ctx, "skipping category", "user", u.ID, "category", c.Name)
				continue
			}
			doc.Categories = append(doc.Categories, c)
		}
		if err := m.store.ReplaceUser(ctx, doc); err != nil {
			return 0, fmt.Errorf("import user %s: %w", u.ID, err)
		}
	}
	return len(snap.Users), nil
}

// Backup writes a new snapshot, prunes the oldest ones beyond the limit and
// uploads the new file when an uploader is configured. The local file is
// kept even if the upload fails.
func (m *Manager) Backup(ctx context.Context) (Info, error) {
	info, data, err := m.writeSnapshot(ctx, backupPrefix)
	if err != nil {
		return Info{}, err
	}
	m.logger.Info(ctx, "Backup created", "path", info.Path, "size", info.Size)

	if err := m.rotate(ctx); err != nil {
		m.logger.Warn(ctx, "backup rotation failed", "error", err)
	}

	if m.uploader != nil {
		key, err := m.uploader.Upload(ctx, info.Name(), data)
		if err != nil {
			return info, fmt.Errorf("upload backup: %w", err)
		}
		m.logger.Info(ctx, "Backup uploaded", "key", key)
	}
	return info, nil
}

func (m *Manager) writeSnapshot(ctx context.Context, prefix string) (Info, []byte, error) {
	dir, err := filex.EnsureDir(m.dir)
	if err != nil {
		return Info{}, nil, fmt.Errorf("create backup dir: %w", err)
	}

	var buf bytes.Buffer
	if err := m.Export(ctx, &buf); err != nil {
		return Info{}, nil, err
	}

	name := prefix + m.now().UTC().Format(stampLayout) + suffix
	path, err := filex.WriteFileAtomic(dir, name, buf.Bytes())
	if err != nil {
		return Info{}, nil, fmt.Errorf("write backup file: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return Info{}, nil, err
	}
	return Info{Path: path, Size: st.Size(), ModTime: st.ModTime()}, buf.Bytes(), nil
}

func (m *Manager) rotate(ctx context.Context) error {
	list, err := m.List()
	if err != nil {
		return err
	}
	if len(list) <= m.maxBackups {
		return nil
	}

	var errs []error
	for _, old := range list[:len(list)-m.maxBackups] {
		if err := os.Remove(old.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		m.logger.Info(ctx, "Removed old backup", "path", old.Path)
	}
	return errors.Join(errs...)
}

// List returns the rotating backups, oldest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var out []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Path: filepath.Join(m.dir, name), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Latest returns the newest backup, or common.ErrNotFound.
func (m *Manager) Latest() (Info, error) {
	list, err := m.List()
	if err != nil {
		return Info{}, err
	}
	if len(list) == 0 {
		return Info{}, fmt.Errorf("no backups in %s: %w", m.dir, common.ErrNotFound)
	}
	return list[len(list)-1], nil
}

// Restore loads the snapshot at path into the store. The current contents
// are saved to a before_restore file first, which is not subject to
// rotation. An empty path restores the latest backup.
func (m *Manager) Restore(ctx context.Context, path string) (int, error) {
	if path == "" {
		latest, err := m.Latest()
		if err != nil {
			return 0, err
		}
		path = latest.Path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read backup: %w", err)
	}
	if !json.Valid(data) {
		return 0, fmt.Errorf("backup %s is not valid JSON", path)
	}

	safety, _, err := m.writeSnapshot(ctx, restorePrefix)
	if err != nil {
		return 0, fmt.Errorf("save current state: %w", err)
	}
	m.logger.Info(ctx, "Saved current state", "path", safety.Path)

	n, err := m.Import(ctx, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	m.logger.Info(ctx, "Restored backup", "path", path, "users", n)
	return n, nil
}
