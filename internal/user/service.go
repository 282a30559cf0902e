package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/clock"
	database "github.com/sebuszqo/ExpenseTracker/internal/db"
	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/logging"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

var (
	ErrInternalError          = errors.New("internal Server Error")
	ErrPasswordRequired       = appErrors.NewValidationError("Password confirmation is required to delete your account")
	ErrInvalidPassword        = appErrors.NewValidationError("Password confirmation does not match")
	errUserToUpdateNotFound   = appErrors.NewNotFoundError("User you want to update does not exist")
	errUserToDeleteNotFound   = appErrors.NewNotFoundError("User you want to delete does not exist")
	errUserNotFound           = appErrors.NewNotFoundError("User not found")
	errUsernameAlreadyInUse   = appErrors.NewConflictError("Another user with same username already exists, please choose another username")
	errUnknownRole            = appErrors.NewValidationError("role must be USER or ADMIN")
)

const (
	msgCannotDeleteOtherAdmin = "You can't delete another Administrator"
	msgCannotUpdateOtherAdmin = "You are not allowed to update another Administrator"
)

// CategoryProvisioner seeds the categories every new user starts with. It
// runs on the same transaction as the user insert.
type CategoryProvisioner interface {
	ProvisionDefaults(ctx context.Context, tx database.DBTX, userID int64) error
}

type Service interface {
	Register(ctx context.Context, input CreateUserInput) (*User, error)
	CreateAdmin(ctx context.Context, input CreateUserInput) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUser(ctx context.Context, id int64, actor policy.Actor) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByRefreshToken(ctx context.Context, refreshToken string) (*User, error)
	ListUsers(ctx context.Context, actor policy.Actor) ([]User, error)
	UpdateUser(ctx context.Context, id int64, input UpdateUserInput, actor policy.Actor) (*User, error)
	DeleteUser(ctx context.Context, id int64, password string, actor policy.Actor) error
	CheckPassword(user *User, password string) bool
	StoreRefreshToken(ctx context.Context, id int64, refreshToken string, expiresAt time.Time) error
	EndSession(ctx context.Context, id int64, at time.Time) error
	ClearExpiredSessions(ctx context.Context) (int64, error)
}

type service struct {
	repo        Repository
	db          database.TxRunner
	hasher      PasswordHasher
	provisioner CategoryProvisioner
	clock       clock.Clock
	logger      *slog.Logger
}

func NewUserService(repo Repository, db database.TxRunner, hasher PasswordHasher, provisioner CategoryProvisioner, clk clock.Clock, logger *slog.Logger) Service {
	return &service{
		repo:        repo,
		db:          db,
		hasher:      hasher,
		provisioner: provisioner,
		clock:       clock.Resolve(clk),
		logger:      logging.Resolve(logger),
	}
}

func (s *service) Register(ctx context.Context, input CreateUserInput) (*User, error) {
	return s.createUser(ctx, input, policy.RoleUser)
}

func (s *service) CreateAdmin(ctx context.Context, input CreateUserInput) (*User, error) {
	return s.createUser(ctx, input, policy.RoleAdmin)
}

// createUser inserts the user and provisions its default categories in one
// unit of work, so a user never exists without them.
func (s *service) createUser(ctx context.Context, input CreateUserInput, role policy.Role) (*User, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	existingUser, err := s.repo.getUserByUsername(ctx, input.Username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.logger.Error("Error with database request", "error", err)
		return nil, ErrInternalError
	}
	if existingUser != nil {
		return nil, appErrors.NewConflictError(fmt.Sprintf("username %s is already in use", input.Username))
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error("Error during hashing the password", "error", err)
		return nil, ErrInternalError
	}

	now := s.clock.Now()
	user := &User{
		Username:     input.Username,
		DisplayName:  input.DisplayName,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithTx(ctx, func(tx database.DBTX) error {
		if err := s.repo.WithTx(tx).createUser(ctx, user); err != nil {
			return err
		}
		return s.provisioner.ProvisionDefaults(ctx, tx, user.ID)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.NewConflictError(fmt.Sprintf("username %s is already in use", input.Username))
		}
		s.logger.Error("Error during creating the user", "username", input.Username, "error", err)
		return nil, ErrInternalError
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *service) lookup(ctx context.Context, id int64, notFound error) (*User, error) {
	user, err := s.repo.getUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, notFound
		}
		s.logger.Error("Error getting user from db", "user_id", id, "error", err)
		return nil, ErrInternalError
	}
	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return s.lookup(ctx, id, errUserNotFound)
}

func (s *service) GetUser(ctx context.Context, id int64, actor policy.Actor) (*User, error) {
	if actor.ID != id {
		if err := policy.RequireAdmin(actor).Err(); err != nil {
			return nil, err
		}
	}
	return s.lookup(ctx, id, errUserNotFound)
}

func (s *service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.repo.getUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, errUserNotFound
		}
		s.logger.Error("Error getting user from db", "error", err)
		return nil, ErrInternalError
	}
	return user, nil
}

func (s *service) GetUserByRefreshToken(ctx context.Context, refreshToken string) (*User, error) {
	user, err := s.repo.getUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, errUserNotFound
		}
		s.logger.Error("Error getting user by refresh token", "error", err)
		return nil, ErrInternalError
	}
	return user, nil
}

func (s *service) ListUsers(ctx context.Context, actor policy.Actor) ([]User, error) {
	if err := policy.RequireAdmin(actor).Err(); err != nil {
		return nil, err
	}
	users, err := s.repo.listUsers(ctx)
	if err != nil {
		s.logger.Error("Error listing users", "error", err)
		return nil, ErrInternalError
	}
	return users, nil
}

func (s *service) UpdateUser(ctx context.Context, id int64, input UpdateUserInput, actor policy.Actor) (*User, error) {
	user, err := s.lookup(ctx, id, errUserToUpdateNotFound)
	if err != nil {
		return nil, err
	}

	if decision := policy.CanAct(actor, policy.ActionUpdate, user.Owner()); !decision.Allowed {
		if user.Role == policy.RoleAdmin {
			return nil, appErrors.NewForbiddenError(msgCannotUpdateOtherAdmin)
		}
		return nil, decision.Err()
	}

	if input.Role != nil && !input.Role.Valid() {
		return nil, errUnknownRole
	}
	if input.Role != nil && *input.Role != user.Role {
		if err := policy.CanSetRole(actor, user.Owner(), *input.Role).Err(); err != nil {
			return nil, err
		}
		user.Role = *input.Role
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			existingUser, err := s.repo.getUserByUsername(ctx, username)
			if err != nil && !errors.Is(err, ErrUserNotFound) {
				s.logger.Error("Error with database request", "error", err)
				return nil, ErrInternalError
			}
			if existingUser != nil && existingUser.ID != user.ID {
				return nil, errUsernameAlreadyInUse
			}
			user.Username = username
		}
	}

	if input.DisplayName != nil {
		displayName := strings.TrimSpace(*input.DisplayName)
		if len([]rune(displayName)) > maxDisplayNameLength {
			return nil, ErrDisplayNameLength
		}
		if displayName != "" {
			user.DisplayName = displayName
		}
	}

	if input.Password != nil {
		if err := validatePassword(*input.Password); err != nil {
			return nil, err
		}
		passwordHash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			s.logger.Error("Error during hashing the password", "error", err)
			return nil, ErrInternalError
		}
		user.PasswordHash = passwordHash
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.repo.updateUser(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errUsernameAlreadyInUse
		}
		s.logger.Error("Error updating user", "user_id", id, "error", err)
		return nil, ErrInternalError
	}
	return user, nil
}

func (s *service) DeleteUser(ctx context.Context, id int64, password string, actor policy.Actor) error {
	user, err := s.lookup(ctx, id, errUserToDeleteNotFound)
	if err != nil {
		return err
	}

	if decision := policy.CanAct(actor, policy.ActionDelete, user.Owner()); !decision.Allowed {
		if user.Role == policy.RoleAdmin {
			return appErrors.NewForbiddenError(msgCannotDeleteOtherAdmin)
		}
		return decision.Err()
	}

	if policy.RequiresPasswordConfirmation(actor, user.Owner()) {
		if password == "" {
			return ErrPasswordRequired
		}
		if !s.hasher.Compare(user.PasswordHash, password) {
			return ErrInvalidPassword
		}
	}

	err = s.db.WithTx(ctx, func(tx database.DBTX) error {
		return s.repo.WithTx(tx).deleteUser(ctx, id)
	})
	if err != nil {
		s.logger.Error("Error deleting user", "user_id", id, "error", err)
		return ErrInternalError
	}

	s.logger.Info("User deleted", "user_id", id, "actor_id", actor.ID)
	return nil
}

func (s *service) CheckPassword(user *User, password string) bool {
	if user == nil || password == "" {
		return false
	}
	return s.hasher.Compare(user.PasswordHash, password)
}

func (s *service) StoreRefreshToken(ctx context.Context, id int64, refreshToken string, expiresAt time.Time) error {
	expiresAt = expiresAt.UTC().Truncate(time.Second)
	if err := s.repo.updateRefreshToken(ctx, id, refreshToken, &expiresAt); err != nil {
		s.logger.Error("Error storing refresh token", "user_id", id, "error", err)
		return ErrInternalError
	}
	return nil
}

// EndSession clears the stored refresh token and records the logout time.
// The logout timestamp never moves backwards.
func (s *service) EndSession(ctx context.Context, id int64, at time.Time) error {
	user, err := s.lookup(ctx, id, errUserNotFound)
	if err != nil {
		return err
	}

	logoutAt := at.UTC()
	if user.LogoutTimestamp != nil && user.LogoutTimestamp.After(logoutAt) {
		logoutAt = *user.LogoutTimestamp
	}

	if err := s.repo.endSession(ctx, id, logoutAt); err != nil {
		s.logger.Error("Error ending session", "user_id", id, "error", err)
		return ErrInternalError
	}
	return nil
}

func (s *service) ClearExpiredSessions(ctx context.Context) (int64, error) {
	cleared, err := s.repo.clearExpiredRefreshTokens(ctx, s.clock.Now().Truncate(time.Second))
	if err != nil {
		s.logger.Error("Error clearing expired refresh tokens", "error", err)
		return 0, ErrInternalError
	}
	return cleared, nil
}
