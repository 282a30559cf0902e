package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/sebuszqo/ExpenseTracker/internal/clock"
	"github.com/sebuszqo/ExpenseTracker/internal/config"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

var ErrInvalidJWTToken = errors.New("JWT token is invalid")

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Payload is shared by access and refresh tokens. Only the signing key and
// the lifetime differ between the two kinds.
type Payload struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     policy.Role `json:"role"`
}

func (p Payload) Actor() policy.Actor {
	return policy.Actor{ID: p.ID, Role: p.Role}
}

type Claims struct {
	Payload
	Kind TokenKind `json:"kind"`
	jwt.StandardClaims
}

type JWTManagerInterface interface {
	IssueAccess(payload Payload) (string, error)
	IssueRefresh(payload Payload) (string, time.Time, error)
	Verify(tokenString string, kind TokenKind) (*Claims, error)
}

type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         clock.Clock
}

func NewJWTManager(cfg config.JWTConfig, clk clock.Clock) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		clock:         clock.Resolve(clk),
	}
}

func (j *JWTManager) secret(kind TokenKind) ([]byte, error) {
	switch kind {
	case AccessToken:
		return j.accessSecret, nil
	case RefreshToken:
		return j.refreshSecret, nil
	default:
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
}

func (j *JWTManager) issue(payload Payload, kind TokenKind, duration time.Duration) (string, time.Time, error) {
	secret, err := j.secret(kind)
	if err != nil {
		return "", time.Time{}, err
	}
	now := j.clock.Now()
	expiresAt := now.Add(duration)

	claims := &Claims{
		Payload: payload,
		Kind:    kind,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(payload.ID),
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}
	// every refresh token is unique, so one issued in the same second as a
	// logout never equals the token that logout cleared
	if kind == RefreshToken {
		claims.Id = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, time.Unix(expiresAt.Unix(), 0).UTC(), nil
}

func (j *JWTManager) IssueAccess(payload Payload) (string, error) {
	token, _, err := j.issue(payload, AccessToken, j.accessTTL)
	return token, err
}

// IssueRefresh also returns the expiry so it can be stored with the token.
func (j *JWTManager) IssueRefresh(payload Payload) (string, time.Time, error) {
	return j.issue(payload, RefreshToken, j.refreshTTL)
}

// Verify checks signature, kind and expiry against the manager's clock. Every
// failure is reported as ErrInvalidJWTToken.
func (j *JWTManager) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret, err := j.secret(kind)
	if err != nil {
		return nil, ErrInvalidJWTToken
	}

	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidJWTToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Kind != kind || claims.ID <= 0 || !claims.Role.Valid() {
		return nil, ErrInvalidJWTToken
	}

	now := j.clock.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyIssuedAt(now, false) {
		return nil, ErrInvalidJWTToken
	}
	return claims, nil
}
