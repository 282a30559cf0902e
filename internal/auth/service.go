package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/clock"
	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/logging"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
	"github.com/sebuszqo/ExpenseTracker/internal/user"
)

var (
	ErrInvalidCredentials = appErrors.NewUnauthorizedError("Invalid credentials")
	ErrInvalidToken       = appErrors.NewUnauthorizedError("Invalid or expired token")
	ErrInternalError      = errors.New("internal Server Error")
)

// Session is what a successful register or login hands back to the client.
type Session struct {
	User             *user.User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type Service interface {
	Register(ctx context.Context, input user.CreateUserInput) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (policy.Actor, error)
	JWTAccessTokenMiddleware() func(http.Handler) http.Handler
	JWTRefreshTokenMiddleware() func(http.Handler) http.Handler
}

type service struct {
	userService user.Service
	jwtManager  JWTManagerInterface
	clock       clock.Clock
	logger      *slog.Logger
}

func NewAuthService(userService user.Service, jwtManager JWTManagerInterface, clk clock.Clock, logger *slog.Logger) Service {
	return &service{
		userService: userService,
		jwtManager:  jwtManager,
		clock:       clock.Resolve(clk),
		logger:      logging.Resolve(logger),
	}
}

func payloadOf(u *user.User) Payload {
	return Payload{ID: u.ID, Username: u.Username, Role: u.Role}
}

// startSession issues both tokens and persists the refresh token on the user.
func (s *service) startSession(ctx context.Context, u *user.User) (*Session, error) {
	payload := payloadOf(u)
	accessToken, err := s.jwtManager.IssueAccess(payload)
	if err != nil {
		s.logger.Error("Error during JWT generation", "user_id", u.ID, "error", err)
		return nil, ErrInternalError
	}
	refreshToken, expiresAt, err := s.jwtManager.IssueRefresh(payload)
	if err != nil {
		s.logger.Error("Error during refresh JWT generation", "user_id", u.ID, "error", err)
		return nil, ErrInternalError
	}
	if err := s.userService.StoreRefreshToken(ctx, u.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}

	return &Session{
		User:             u,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

func (s *service) Register(ctx context.Context, input user.CreateUserInput) (*Session, error) {
	u, err := s.userService.Register(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered", "user_id", u.ID)
	return s.startSession(ctx, u)
}

func (s *service) Login(ctx context.Context, username, password string) (*Session, error) {
	existingUser, err := s.userService.GetUserByUsername(ctx, username)
	if err != nil {
		if appErrors.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.userService.CheckPassword(existingUser, password) {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, existingUser)
}

// sessionOwner resolves the user a refresh token belongs to. The stored token
// is authoritative: a token that verifies but is no longer stored is rejected,
// as is one issued before the user's last logout.
func (s *service) sessionOwner(ctx context.Context, refreshToken string) (*user.User, error) {
	claims, err := s.jwtManager.Verify(refreshToken, RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	owner, err := s.userService.GetUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		if appErrors.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if owner.ID != claims.ID {
		return nil, ErrInvalidToken
	}
	if owner.LogoutTimestamp != nil && claims.IssuedAt < owner.LogoutTimestamp.Unix() {
		return nil, ErrInvalidToken
	}
	if owner.RefreshExpiresAt != nil && s.clock.Now().After(*owner.RefreshExpiresAt) {
		return nil, ErrInvalidToken
	}
	return owner, nil
}

// Refresh mints a new access token. The refresh token itself is not rotated.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	owner, err := s.sessionOwner(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	accessToken, err := s.jwtManager.IssueAccess(payloadOf(owner))
	if err != nil {
		s.logger.Error("Error during JWT generation", "user_id", owner.ID, "error", err)
		return "", ErrInternalError
	}
	return accessToken, nil
}

// Logout blocks further refreshes. Access tokens already handed out stay
// valid until they expire.
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	owner, err := s.sessionOwner(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.userService.EndSession(ctx, owner.ID, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Info("User logged out", "user_id", owner.ID)
	return nil
}

// Authenticate turns an access token into the actor of the request. The role
// is taken from the stored user so a demotion applies immediately.
func (s *service) Authenticate(ctx context.Context, accessToken string) (policy.Actor, error) {
	claims, err := s.jwtManager.Verify(accessToken, AccessToken)
	if err != nil {
		return policy.Actor{}, ErrInvalidToken
	}

	existingUser, err := s.userService.GetUserByID(ctx, claims.ID)
	if err != nil {
		if appErrors.IsNotFoundError(err) {
			return policy.Actor{}, ErrInvalidToken
		}
		return policy.Actor{}, err
	}
	return existingUser.Actor(), nil
}
