package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CreateUser stores a new account with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, username, email, password string) (User, error) {
	var exists int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username = ?`, username).Scan(&exists)
	switch {
	case err == nil:
		return User{}, ErrUsernameTaken
	case !errors.Is(err, sql.ErrNoRows):
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (username, email, hashed_password) VALUES (?, ?, ?)`,
		username, email, string(hashed),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return User{ID: id, Username: username, Email: email}, nil
}

// Authenticate checks a username/password pair.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		u      User
		hashed string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, username, email, hashed_password FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &hashed)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
