package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	database "github.com/sebuszqo/ExpenseTracker/internal/db"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

type Repository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx database.DBTX) Repository
	createUser(ctx context.Context, user *User) error
	getUserByID(ctx context.Context, id int64) (*User, error)
	getUserByUsername(ctx context.Context, username string) (*User, error)
	getUserByRefreshToken(ctx context.Context, refreshToken string) (*User, error)
	listUsers(ctx context.Context) ([]User, error)
	updateUser(ctx context.Context, user *User) error
	updateRefreshToken(ctx context.Context, id int64, refreshToken string, expiresAt *time.Time) error
	endSession(ctx context.Context, id int64, logoutAt time.Time) error
	deleteUser(ctx context.Context, id int64) error
	clearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type userRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) Repository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) WithTx(tx database.DBTX) Repository {
	return &userRepository{db: tx}
}

const userColumns = `id, username, display_name, password_hash, role, refresh_token, refresh_expires_at, logout_timestamp, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		user             User
		refreshExpiresAt sql.NullTime
		logoutTimestamp  sql.NullTime
	)
	err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &user.Role,
		&user.RefreshToken, &refreshExpiresAt, &logoutTimestamp, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if refreshExpiresAt.Valid {
		t := refreshExpiresAt.Time.UTC()
		user.RefreshExpiresAt = &t
	}
	if logoutTimestamp.Valid {
		t := logoutTimestamp.Time.UTC()
		user.LogoutTimestamp = &t
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func (r *userRepository) createUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (username, username_key, display_name, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, user.Username, usernameKey(user.Username), user.DisplayName, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("could not create user: %w", err)
	}

	user.ID = id
	return nil
}

func (r *userRepository) getUser(ctx context.Context, where string, arg any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not find user: %w", err)
	}
	return user, nil
}

func (r *userRepository) getUserByID(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, `id = $1`, id)
}

func (r *userRepository) getUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx, `username_key = $1`, usernameKey(username))
}

func (r *userRepository) getUserByRefreshToken(ctx context.Context, refreshToken string) (*User, error) {
	// an empty stored token means "no session" and must never match
	if refreshToken == "" {
		return nil, ErrUserNotFound
	}
	return r.getUser(ctx, `refresh_token = $1`, refreshToken)
}

func (r *userRepository) listUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("could not list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *userRepository) updateUser(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET username = $1,
		    username_key = $2,
		    display_name = $3,
		    password_hash = $4,
		    role = $5,
		    updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query, user.Username, usernameKey(user.Username), user.DisplayName, user.PasswordHash, user.Role, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("could not update user: %w", err)
	}
	return nil
}

func (r *userRepository) updateRefreshToken(ctx context.Context, id int64, refreshToken string, expiresAt *time.Time) error {
	query := `
		UPDATE users
		SET refresh_token = $1,
		    refresh_expires_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, refreshToken, expiresAt, id)
	if err != nil {
		return fmt.Errorf("could not update refresh token: %w", err)
	}
	return nil
}

func (r *userRepository) endSession(ctx context.Context, id int64, logoutAt time.Time) error {
	query := `
		UPDATE users
		SET refresh_token = '',
		    refresh_expires_at = NULL,
		    logout_timestamp = $1
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, logoutAt, id)
	if err != nil {
		return fmt.Errorf("could not end session: %w", err)
	}
	return nil
}

// deleteUser removes the user together with everything they own. It issues
// several statements and is meant to run inside a transaction.
func (r *userRepository) deleteUser(ctx context.Context, id int64) error {
	statements := []string{
		`DELETE FROM transactions WHERE user_id = $1`,
		`DELETE FROM categories WHERE user_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	}
	for _, statement := range statements {
		if _, err := r.db.ExecContext(ctx, statement, id); err != nil {
			return fmt.Errorf("could not delete user: %w", err)
		}
	}
	return nil
}

func (r *userRepository) clearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET refresh_token = '',
		    refresh_expires_at = NULL
		WHERE refresh_token <> '' AND refresh_expires_at IS NOT NULL AND refresh_expires_at <= $1
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("could not clear expired refresh tokens: %w", err)
	}
	return result.RowsAffected()
}
