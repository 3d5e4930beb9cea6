package categories

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/filestash/internal/bot/migrations"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, migrations.SQLiteDir))
	return db
}

func TestSQLiteRepository_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) backend { return NewSQLiteRepository(setupSQLite(t)) })
}
