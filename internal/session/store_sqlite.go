package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore keeps the credential in a one-row-per-name table so it
// survives restarts of the CLI.
type SQLiteStore struct {
	db   *sql.DB
	name string
}

func NewSQLiteStore(ctx context.Context, db *sql.DB, name string) (*SQLiteStore, error) {
	if name == "" {
		name = DefaultKey
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS credentials (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`); err != nil {
		return nil, fmt.Errorf("migrate credentials: %w", err)
	}
	return &SQLiteStore{db: db, name: name}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE name = ?`, s.name).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return token, nil
}

func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		s.name, token,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, s.name); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
