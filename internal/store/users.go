package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// User is an account that owns documents and chat history.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// EnsureUser returns the user with email, creating it on first use. The
// display name defaults to the local part of the address.
func (s *SQLiteStore) EnsureUser(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("store: ensure user: email must not be empty")
	}
	name, _, _ := strings.Cut(email, "@")

	const ins = `INSERT OR IGNORE INTO users (email, name, created_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, ins, email, name, time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("store: ensure user: %w", err)
	}

	const q = `SELECT id, email, name, created_at FROM users WHERE email = ?`
	var u User
	var ts int64
	if err := s.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Email, &u.Name, &ts); err != nil {
		return nil, fmt.Errorf("store: ensure user: %w", err)
	}
	u.CreatedAt = time.Unix(ts, 0)
	return &u, nil
}

// DeleteUser removes a user and, by cascade, every document and message the
// user owns.
func (s *SQLiteStore) DeleteUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("store: delete user: %w", err)
	}
	return affected(res, "delete user")
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
