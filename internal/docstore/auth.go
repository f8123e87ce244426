package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/treefix50/recapadmin/internal/auth"
)

var _ auth.Store = (*Store)(nil)

const userColumns = `id, email, password_hash, is_admin, created_at, last_login`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*auth.User, error) {
	var user auth.User
	var createdAt, lastLogin sql.NullInt64
	var isAdmin int

	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &isAdmin, &createdAt, &lastLogin); err != nil {
		return nil, err
	}

	user.IsAdmin = isAdmin == 1
	if createdAt.Valid {
		user.CreatedAt = time.Unix(createdAt.Int64, 0)
	}
	if lastLogin.Valid {
		user.LastLogin = time.Unix(lastLogin.Int64, 0)
	}
	return &user, nil
}

// CreateUser creates a new user
func (s *Store) CreateUser(ctx context.Context, user auth.User) error {
	if err := s.writable(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, boolInt(user.IsAdmin), user.CreatedAt.Unix(), nullInt64FromTime(user.LastLogin))
	return err
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*auth.User, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM auth_users
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	return user, err
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM auth_users
		WHERE LOWER(email) = LOWER(?)
	`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	return user, err
}

// UpdateUser updates a user
func (s *Store) UpdateUser(ctx context.Context, user auth.User) error {
	if err := s.writable(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE auth_users
		SET email = ?, password_hash = ?, is_admin = ?, last_login = ?
		WHERE id = ?
	`, user.Email, user.PasswordHash, boolInt(user.IsAdmin), nullInt64FromTime(user.LastLogin), user.ID)
	return err
}

// ListUsers lists all users
func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM auth_users
		ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("storage: missing database connection")
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_users`).Scan(&count)
	return count, err
}

// CreateSession creates a new session
func (s *Store) CreateSession(ctx context.Context, session auth.Session) error {
	if err := s.writable(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (token, user_id, email, is_admin, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.Token, session.UserID, session.Email, boolInt(session.IsAdmin), session.CreatedAt.Unix(), session.ExpiresAt.Unix())
	return err
}

// GetSession retrieves a session by token
func (s *Store) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}

	var session auth.Session
	var createdAt, expiresAt int64
	var isAdmin int

	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, email, is_admin, created_at, expires_at
		FROM auth_sessions
		WHERE token = ?
	`, token).Scan(&session.Token, &session.UserID, &session.Email, &isAdmin, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}

	session.IsAdmin = isAdmin == 1
	session.CreatedAt = time.Unix(createdAt, 0)
	session.ExpiresAt = time.Unix(expiresAt, 0)
	return &session, nil
}

// DeleteSession deletes a session
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if err := s.writable(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = ?`, token)
	return err
}

// DeleteUserSessions deletes all sessions for a user
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	if err := s.writable(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE user_id = ?`, userID)
	return err
}

// CleanExpiredSessions removes expired sessions
func (s *Store) CleanExpiredSessions(ctx context.Context) error {
	if err := s.writable(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at < ?`, s.now().Unix())
	return err
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullInt64FromTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
