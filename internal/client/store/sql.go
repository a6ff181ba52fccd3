package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/dmitrijs2005/omgclient/internal/client/migrations"
	"github.com/dmitrijs2005/omgclient/internal/client/models"
	"github.com/dmitrijs2005/omgclient/internal/dbx"
	"github.com/dmitrijs2005/omgclient/internal/filex"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store over a SQL database holding a single records table.
type SQLStore struct {
	db    *sql.DB
	bind  dbx.Placeholder
	now   func() time.Time
	owned bool
}

// NewSQLiteStore wraps an already migrated SQLite handle.
func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, bind: dbx.Question, now: time.Now}
}

// NewPostgresStore wraps an already migrated PostgreSQL handle.
func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, bind: dbx.Dollar, now: time.Now}
}

// newProvider is a seam for tests that must not run goose.
var newProvider = func(dialect goose.Dialect, db *sql.DB, fsys fs.FS) (migrator, error) {
	return goose.NewProvider(dialect, db, fsys)
}

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// RunMigrations applies the embedded migrations for the dialect of db.
func RunMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect) error {
	var fsys fs.FS
	switch dialect {
	case goose.DialectSQLite3:
		fsys = migrations.SQLite()
	case goose.DialectPostgres:
		fsys = migrations.Postgres()
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	p, err := newProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// OpenSQLite opens (creating if needed) a SQLite database file and migrates it.
// ":memory:" is accepted.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	if f := filex.SQLiteFile(dsn); f != "" {
		if err := filex.EnsureParentDir(f); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY and keeps
	// :memory: databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(ctx, db, goose.DialectSQLite3); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := NewSQLiteStore(db)
	s.owned = true
	return s, nil
}

// OpenPostgres connects with pgx and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := RunMigrations(ctx, db, goose.DialectPostgres); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := NewPostgresStore(db)
	s.owned = true
	return s, nil
}

func (s *SQLStore) q(query string) string { return dbx.Rebind(s.bind, query) }

func (s *SQLStore) Read(ctx context.Context, key models.CacheKey) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.q(`SELECT data FROM records WHERE key = ?`), key.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("read", key, err)
	}
	return data, nil
}

const upsertRecord = `
	INSERT INTO records (key, kind, address, item_id, data, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at
`

func (s *SQLStore) upsert(ctx context.Context, db dbx.DBTX, key models.CacheKey, data []byte) error {
	_, err := db.ExecContext(ctx, s.q(upsertRecord),
		key.String(), string(key.Kind), string(key.Address), key.ID, data, s.now().UnixMilli())
	if err != nil {
		return wrap("write", key, err)
	}
	return nil
}

func (s *SQLStore) Write(ctx context.Context, key models.CacheKey, data []byte) error {
	return s.upsert(ctx, s.db, key, data)
}

// WriteBatch writes every row in one transaction.
func (s *SQLStore) WriteBatch(ctx context.Context, rows map[models.CacheKey][]byte) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, k := range sortedKeys(rows) {
			if err := s.upsert(ctx, tx, k, rows[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) Delete(ctx context.Context, key models.CacheKey) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM records WHERE key = ?`), key.String()); err != nil {
		return wrap("delete", key, err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, kind models.Kind) ([]models.CacheKey, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT kind, address, item_id FROM records WHERE kind = ?`), string(kind))
	if err != nil {
		return nil, wrap("list", models.CacheKey{Kind: kind}, err)
	}
	defer rows.Close()

	var keys []models.CacheKey
	for rows.Next() {
		var k, addr string
		var id string
		if err := rows.Scan(&k, &addr, &id); err != nil {
			return nil, wrap("list", models.CacheKey{Kind: kind}, err)
		}
		keys = append(keys, models.CacheKey{Kind: models.Kind(k), Address: models.AddressName(addr), ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list", models.CacheKey{Kind: kind}, err)
	}
	return keys, nil
}

// Close closes the database only when the store opened it.
func (s *SQLStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
