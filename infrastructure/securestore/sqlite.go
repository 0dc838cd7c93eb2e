package securestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	apperrors "citypulse/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS secure_items (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
)`

// SQLiteStore persists sealed values in a local SQLite database. The
// database is opened and closed per call, so no handle outlives the
// operation that needed it.
type SQLiteStore struct {
	path   string
	sealer *sealer
}

// NewSQLiteStore creates a store backed by the database file at path.
// Values are sealed with a key derived from secret before they are written.
func NewSQLiteStore(path, secret string) *SQLiteStore {
	return &SQLiteStore{
		path:   path,
		sealer: newSealer(secret),
	}
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	db, err := s.open(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var sealed []byte
	row := db.QueryRowContext(ctx, `SELECT value FROM secure_items WHERE key = ?`, key)
	if err := row.Scan(&sealed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", apperrors.NewStorageError("get", err)
	}

	plaintext, err := s.sealer.open(sealed)
	if err != nil {
		return "", apperrors.NewStorageError("get", err)
	}
	return string(plaintext), nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	sealed, err := s.sealer.seal([]byte(value))
	if err != nil {
		return apperrors.NewStorageError("set", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO secure_items (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		key, sealed,
	)
	if err != nil {
		return apperrors.NewStorageError("set", err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `DELETE FROM secure_items WHERE key = ?`, key); err != nil {
		return apperrors.NewStorageError("delete", err)
	}
	return nil
}

func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, apperrors.NewStorageError("open", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("open", fmt.Errorf("ensure schema: %w", err))
	}
	return db, nil
}
