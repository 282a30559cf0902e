package user

import (
	"strings"
	"time"
	"unicode/utf8"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

const (
	maxUsernameLength    = 30
	minUsernameLength    = 3
	maxDisplayNameLength = 60
	minPasswordLength    = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordLength = 72
)

var (
	ErrUsernameLength    = appErrors.NewValidationError("username must be between 3 and 30 characters long")
	ErrDisplayNameLength = appErrors.NewValidationError("display name must be at most 60 characters long")
	ErrPasswordLength    = appErrors.NewValidationError("password must be between 8 and 72 bytes long")
)

type User struct {
	ID               int64       `json:"id"`
	Username         string      `json:"username"`
	DisplayName      string      `json:"display_name"`
	PasswordHash     string      `json:"-"`
	Role             policy.Role `json:"role"`
	RefreshToken     string      `json:"-"`
	RefreshExpiresAt *time.Time  `json:"-"`
	LogoutTimestamp  *time.Time  `json:"-"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (u *User) Owner() policy.Owner {
	return policy.Owner{ID: u.ID, Role: u.Role}
}

func (u *User) Actor() policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role}
}

type CreateUserInput struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// UpdateUserInput is a patch: nil fields are left untouched.
type UpdateUserInput struct {
	Username    *string      `json:"username,omitempty"`
	DisplayName *string      `json:"display_name,omitempty"`
	Password    *string      `json:"password,omitempty"`
	Role        *policy.Role `json:"role,omitempty"`
}

func (in *CreateUserInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validateUsername(in.Username); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.DisplayName) > maxDisplayNameLength {
		return ErrDisplayNameLength
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}
	return validatePassword(in.Password)
}

// usernameKey is the case-folded form usernames are unique by.
func usernameKey(username string) string {
	return strings.ToLower(username)
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return ErrUsernameLength
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrPasswordLength
	}
	return nil
}
