package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register sqlite3 database driver
	"github.com/pressly/goose/v3"

	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite stores artifacts in a single database file.
type SQLite struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

var _ hillshade.TileCache = (*SQLite)(nil)

func NewSQLite(path string, l logger.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	s := &SQLite{
		db:     db,
		path:   path,
		logger: l,
	}

	err = s.runMigrations()
	if err != nil {
		db.Close()
		return nil, err
	}

	l.Info("sqlite cache initialized", "path", path)

	return s, nil
}

func (s *SQLite) runMigrations() error {
	goose.SetBaseFS(migrations)

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	return goose.Up(s.db, "migrations")
}

func (s *SQLite) Lookup(ctx context.Context, key string) hillshade.LookupResult {
	defer observe("sqlite", "lookup", time.Now())

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM artifacts WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return hillshade.Miss()
		}
		s.logger.Error("sqlite cache lookup failed", "key", key, "error", err)
		return hillshade.LookupError(err)
	}

	return hillshade.Hit(data)
}

func (s *SQLite) Put(ctx context.Context, a hillshade.Artifact) error {
	defer observe("sqlite", "put", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO artifacts (key, data, content_type, cache_control, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		data = excluded.data,
		content_type = excluded.content_type,
		cache_control = excluded.cache_control,
		updated_at = excluded.updated_at`, a.Key, a.Data, a.ContentType, a.CacheControl)
	if err != nil {
		s.logger.Error("sqlite cache put failed", "key", a.Key, "error", err)
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM artifact_metadata WHERE key = ?`, a.Key)
	if err != nil {
		return err
	}

	for name, value := range a.Metadata {
		_, err = tx.ExecContext(ctx, `INSERT INTO artifact_metadata (key, name, value) VALUES (?, ?, ?)`, a.Key, name, value)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Metadata returns the metadata stored with key.
func (s *SQLite) Metadata(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM artifact_metadata WHERE key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	md := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		md[name] = value
	}
	return md, rows.Err()
}

func (s *SQLite) Location(key string) string {
	return "sqlite://" + s.path + "#" + key
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
