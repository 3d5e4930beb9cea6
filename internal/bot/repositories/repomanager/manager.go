// Package repomanager opens the configured category store backend, runs its
// schema migrations and owns the underlying connection.
package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filestash/internal/bot/migrations"
	"github.com/dmitrijs2005/filestash/internal/bot/repositories/categories"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	_ "modernc.org/sqlite"
)

// Backend names reported by Manager.Backend.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongodb"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

var ErrUnsupportedDSN = errors.New("unsupported store DSN")

// Store is what the rest of the bot needs from a backend.
type Store interface {
	categories.Repository
	categories.Snapshotter
}

// Manager holds an opened backend.
type Manager struct {
	backend string
	store   Store
	db      *sql.DB
	client  *mongo.Client
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// mongoConnect is a seam for testing mongo.Connect.
var mongoConnect = func(ctx context.Context, uri string) (*mongo.Client, error) {
	return mongo.Connect(ctx, options.Client().ApplyURI(uri))
}

// Open picks the backend from the DSN scheme:
//
//	memory:                    in-process store
//	mongodb://, mongodb+srv:// MongoDB, using database
//	postgres://, postgresql:// PostgreSQL via pgx
//	sqlite:<path>              SQLite file (or sqlite::memory:)
func Open(ctx context.Context, dsn, database string) (*Manager, error) {
	switch {
	case dsn == "memory:" || dsn == "memory":
		return &Manager{backend: BackendMemory, store: categories.NewMemoryRepository()}, nil

	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return openMongo(ctx, dsn, database)

	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := sqlOpen("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		m := &Manager{backend: BackendPostgres, db: db, store: categories.NewPostgresRepository(db)}
		if err := m.RunMigrations(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		return m, nil

	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		if path == "" {
			return nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedDSN)
		}
		db, err := sqlOpen("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		// one writer at a time; also keeps :memory: on a single connection
		db.SetMaxOpenConns(1)
		m := &Manager{backend: BackendSQLite, db: db, store: categories.NewSQLiteRepository(db)}
		if err := m.RunMigrations(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		return m, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, Redact(dsn))
}

func openMongo(ctx context.Context, uri, database string) (*Manager, error) {
	if database == "" {
		return nil, errors.New("mongodb: database name is required")
	}
	client, err := mongoConnect(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect error: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping error: %w", err)
	}
	return &Manager{
		backend: BackendMongo,
		client:  client,
		store:   categories.NewMongoRepository(client.Database(database)),
	}, nil
}

// RunMigrations applies the embedded goose migrations for SQL backends and is
// a no-op for the others.
func (m *Manager) RunMigrations(ctx context.Context) error {
	var dialect, dir string
	switch m.backend {
	case BackendPostgres:
		dialect, dir = "pgx", migrations.PostgresDir
	case BackendSQLite:
		dialect, dir = "sqlite3", migrations.SQLiteDir
	default:
		return nil
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, dir)
}

func (m *Manager) Backend() string { return m.backend }

func (m *Manager) Categories() categories.Repository { return m.store }

func (m *Manager) Snapshotter() categories.Snapshotter { return m.store }

// Ping checks that the backend is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	switch {
	case m.db != nil:
		return m.db.PingContext(ctx)
	case m.client != nil:
		return m.client.Ping(ctx, readpref.Primary())
	}
	return nil
}

func (m *Manager) Close(ctx context.Context) error {
	switch {
	case m.db != nil:
		return m.db.Close()
	case m.client != nil:
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Redact hides the userinfo part of a DSN so it can be logged.
func Redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
