package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// IssueToken stores a fresh opaque bearer token for userID.
func (s *Store) IssueToken(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	expires := s.now().Add(ttl).Unix()
	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expires,
	); err != nil {
		return "", err
	}
	return token, nil
}

// UserForToken resolves a bearer token to its user id.
func (s *Store) UserForToken(ctx context.Context, token string) (int64, error) {
	var (
		userID  int64
		expires int64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM tokens WHERE token = ?`, token,
	).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTokenInvalid
	}
	if err != nil {
		return 0, err
	}
	if s.now().Unix() >= expires {
		_, _ = s.DB.ExecContext(ctx, `DELETE FROM tokens WHERE token = ?`, token)
		return 0, ErrTokenInvalid
	}
	return userID, nil
}
