// Package categories implements the per-user category store: an ordered set
// of named categories, each holding an ordered list of file records.
//
// Backends: in-memory, MongoDB (one document per user), and SQL (PostgreSQL
// via pgx, SQLite via modernc.org/sqlite). Every backend failure to reach the
// underlying database is wrapped with common.ErrStoreUnavailable.
package categories

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/common"
)

// Repository is the category store used by the conversation layer. All
// methods provision the user record on first use.
type Repository interface {
	// ListCategories returns category names in insertion order.
	ListCategories(ctx context.Context, userID string) ([]string, error)

	// CreateCategory inserts an empty category. It reports false, without
	// error, when the category already exists.
	CreateCategory(ctx context.Context, userID, name string) (bool, error)

	// AddFile appends rec to the category, creating the category if needed.
	// It reports false when a record with the same MessageID is already there.
	AddFile(ctx context.Context, userID, category string, rec models.FileRecord) (bool, error)

	// ListFiles returns the category's records in insertion order; empty when
	// the category does not exist.
	ListFiles(ctx context.Context, userID, category string) ([]models.FileRecord, error)

	// DeleteCategory removes the category with all its records and reports
	// whether it existed.
	DeleteCategory(ctx context.Context, userID, category string) (bool, error)

	// GetUser returns the whole user document.
	GetUser(ctx context.Context, userID string) (*models.UserDocument, error)
}

// Snapshotter is implemented by backends that support whole-store export and
// import for backups and migrations.
type Snapshotter interface {
	ExportUsers(ctx context.Context) ([]models.UserDocument, error)

	// ReplaceUser overwrites the stored document of doc.ID.
	ReplaceUser(ctx context.Context, doc models.UserDocument) error
}

// checkName rejects names a user could not have typed; stored names are
// always in normalized form.
func checkName(name string) error {
	if n, err := models.NormalizeCategoryName(name); err != nil || n != name {
		return fmt.Errorf("%w: %q", common.ErrInvalidCategoryName, name)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrStoreUnavailable, err)
}
