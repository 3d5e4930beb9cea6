package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/dbx"
)

// SQLRepository implements the store over the users/categories/files schema.
// Query texts use '?' and are rebound for the target dialect. Insertion order
// is the order of the serial ids.
type SQLRepository struct {
	db *sql.DB
	ph dbx.Placeholder
}

// NewPostgresRepository binds the repository to a pgx-backed *sql.DB.
func NewPostgresRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, ph: dbx.Dollar}
}

// NewSQLiteRepository binds the repository to a modernc sqlite *sql.DB.
func NewSQLiteRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, ph: dbx.Question}
}

func (r *SQLRepository) q(query string) string {
	return dbx.Rebind(r.ph, query)
}

func (r *SQLRepository) ensureUser(ctx context.Context, db dbx.DBTX, userID string) error {
	_, err := db.ExecContext(ctx, r.q(`INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`), userID)
	return err
}

func (r *SQLRepository) ListCategories(ctx context.Context, userID string) ([]string, error) {
	if err := r.ensureUser(ctx, r.db, userID); err != nil {
		return nil, unavailable("list categories", err)
	}

	rows, err := r.db.QueryContext(ctx, r.q(`SELECT name FROM categories WHERE user_id = ? ORDER BY id`), userID)
	if err != nil {
		return nil, unavailable("list categories", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable("list categories", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list categories", err)
	}
	return names, nil
}

func (r *SQLRepository) CreateCategory(ctx context.Context, userID, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	var created bool
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			r.q(`INSERT INTO categories (user_id, name) VALUES (?, ?) ON CONFLICT (user_id, name) DO NOTHING`),
			userID, name)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}
		created = n == 1
		return nil
	})
	if err != nil {
		return false, unavailable("create category", err)
	}
	return created, nil
}

func (r *SQLRepository) AddFile(ctx context.Context, userID, category string, rec models.FileRecord) (bool, error) {
	if err := checkName(category); err != nil {
		return false, err
	}
	var added bool
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			r.q(`INSERT INTO categories (user_id, name) VALUES (?, ?) ON CONFLICT (user_id, name) DO NOTHING`),
			userID, category); err != nil {
			return err
		}

		var categoryID int64
		if err := tx.QueryRowContext(ctx,
			r.q(`SELECT id FROM categories WHERE user_id = ? AND name = ?`),
			userID, category).Scan(&categoryID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			r.q(`INSERT INTO files (category_id, message_id, file_type, file_name) VALUES (?, ?, ?, ?)
				ON CONFLICT (category_id, message_id) DO NOTHING`),
			categoryID, rec.MessageID, string(rec.Kind), rec.FileName)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}
		added = n == 1
		return nil
	})
	if err != nil {
		return false, unavailable("add file", err)
	}
	return added, nil
}

func (r *SQLRepository) ListFiles(ctx context.Context, userID, category string) ([]models.FileRecord, error) {
	if err := r.ensureUser(ctx, r.db, userID); err != nil {
		return nil, unavailable("list files", err)
	}

	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT f.message_id, f.file_type, f.file_name
		FROM files f JOIN categories c ON c.id = f.category_id
		WHERE c.user_id = ? AND c.name = ?
		ORDER BY f.id`), userID, category)
	if err != nil {
		return nil, unavailable("list files", err)
	}
	defer rows.Close()

	files := []models.FileRecord{}
	for rows.Next() {
		var (
			rec  models.FileRecord
			kind string
		)
		if err := rows.Scan(&rec.MessageID, &kind, &rec.FileName); err != nil {
			return nil, unavailable("list files", err)
		}
		rec.Kind = models.ParseFileKind(kind)
		files = append(files, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list files", err)
	}
	return files, nil
}

func (r *SQLRepository) DeleteCategory(ctx context.Context, userID, category string) (bool, error) {
	var existed bool
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var categoryID int64
		err := tx.QueryRowContext(ctx,
			r.q(`SELECT id FROM categories WHERE user_id = ? AND name = ?`),
			userID, category).Scan(&categoryID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM files WHERE category_id = ?`), categoryID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM categories WHERE id = ?`), categoryID); err != nil {
			return err
		}
		existed = true
		return nil
	})
	if err != nil {
		return false, unavailable("delete category", err)
	}
	return existed, nil
}

func (r *SQLRepository) GetUser(ctx context.Context, userID string) (*models.UserDocument, error) {
	if err := r.ensureUser(ctx, r.db, userID); err != nil {
		return nil, unavailable("get user", err)
	}
	doc, err := r.loadUser(ctx, r.db, userID)
	if err != nil {
		return nil, unavailable("get user", err)
	}
	return doc, nil
}

func (r *SQLRepository) loadUser(ctx context.Context, db dbx.DBTX, userID string) (*models.UserDocument, error) {
	rows, err := db.QueryContext(ctx, r.q(`
		SELECT c.name, f.message_id, f.file_type, f.file_name
		FROM categories c LEFT JOIN files f ON f.category_id = c.id
		WHERE c.user_id = ?
		ORDER BY c.id, f.id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doc := &models.UserDocument{ID: userID, Categories: models.Categories{}}
	for rows.Next() {
		var (
			name      string
			messageID sql.NullInt64
			kind      sql.NullString
			fileName  sql.NullString
		)
		if err := rows.Scan(&name, &messageID, &kind, &fileName); err != nil {
			return nil, err
		}

		last := len(doc.Categories) - 1
		if last < 0 || doc.Categories[last].Name != name {
			doc.Categories = append(doc.Categories, models.Category{Name: name, Files: []models.FileRecord{}})
			last++
		}
		if messageID.Valid {
			doc.Categories[last].Files = append(doc.Categories[last].Files, models.FileRecord{
				MessageID: messageID.Int64,
				Kind:      models.ParseFileKind(kind.String),
				FileName:  fileName.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *SQLRepository) ExportUsers(ctx context.Context) ([]models.UserDocument, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, unavailable("export users", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, unavailable("export users", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, unavailable("export users", err)
	}

	out := make([]models.UserDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := r.loadUser(ctx, r.db, id)
		if err != nil {
			return nil, unavailable("export users", err)
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (r *SQLRepository) ReplaceUser(ctx context.Context, doc models.UserDocument) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.ensureUser(ctx, tx, doc.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			r.q(`DELETE FROM files WHERE category_id IN (SELECT id FROM categories WHERE user_id = ?)`),
			doc.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM categories WHERE user_id = ?`), doc.ID); err != nil {
			return err
		}

		for _, cat := range doc.Categories {
			var categoryID int64
			if err := tx.QueryRowContext(ctx,
				r.q(`INSERT INTO categories (user_id, name) VALUES (?, ?) RETURNING id`),
				doc.ID, cat.Name).Scan(&categoryID); err != nil {
				return err
			}
			for _, f := range cat.Files {
				if _, err := tx.ExecContext(ctx,
					r.q(`INSERT INTO files (category_id, message_id, file_type, file_name) VALUES (?, ?, ?, ?)
						ON CONFLICT (category_id, message_id) DO NOTHING`),
					categoryID, f.MessageID, string(f.Kind), f.FileName); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("replace user", err)
	}
	return nil
}
