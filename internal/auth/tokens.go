package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
	issuer      = "exam-attempt-service"
)

// Token is either an AccessToken or a RefreshToken. Consumers switch on the
// concrete type; the unexported method keeps the set closed.
type Token interface {
	TokenID() string
	Expiry() time.Time
	sealed()
}

// AccessToken authorizes API calls.
type AccessToken struct {
	ID        string
	Subject   uuid.UUID
	Role      models.UserRole
	ExpiresAt time.Time
}

// RefreshToken can only be exchanged for a new token pair.
type RefreshToken struct {
	ID        string
	Subject   uuid.UUID
	ExpiresAt time.Time
}

func (t AccessToken) TokenID() string    { return t.ID }
func (t AccessToken) Expiry() time.Time  { return t.ExpiresAt }
func (AccessToken) sealed()              {}
func (t RefreshToken) TokenID() string   { return t.ID }
func (t RefreshToken) Expiry() time.Time { return t.ExpiresAt }
func (RefreshToken) sealed()             {}

type claims struct {
	Kind string `json:"kind"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// IssuePair signs a fresh access/refresh pair for user.
func (m *TokenManager) IssuePair(userID uuid.UUID, role models.UserRole) (*TokenPair, error) {
	now := m.now().UTC()
	access := AccessToken{ID: uuid.NewString(), Subject: userID, Role: role, ExpiresAt: now.Add(m.accessTTL)}
	refresh := RefreshToken{ID: uuid.NewString(), Subject: userID, ExpiresAt: now.Add(m.refreshTTL)}

	accessStr, err := m.Sign(access, now)
	if err != nil {
		return nil, err
	}
	refreshStr, err := m.Sign(refresh, now)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessStr,
		RefreshToken:     refreshStr,
		TokenType:        "Bearer",
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// Sign encodes token as an HS256 JWT issued at issuedAt.
func (m *TokenManager) Sign(token Token, issuedAt time.Time) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.TokenID(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(token.Expiry()),
		},
	}

	switch t := token.(type) {
	case AccessToken:
		c.Kind = kindAccess
		c.Role = string(t.Role)
		c.Subject = t.Subject.String()
	case RefreshToken:
		c.Kind = kindRefresh
		c.Subject = t.Subject.String()
	default:
		return "", fmt.Errorf("%w: unsupported token type %T", ErrInvalidToken, token)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the variant named by its kind claim.
func (m *TokenManager) Parse(raw string) (Token, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	switch c.Kind {
	case kindAccess:
		role := models.UserRole(c.Role)
		if !role.IsValid() {
			return nil, fmt.Errorf("%w: bad role", ErrInvalidToken)
		}
		return AccessToken{ID: c.ID, Subject: subject, Role: role, ExpiresAt: c.ExpiresAt.Time}, nil
	case kindRefresh:
		return RefreshToken{ID: c.ID, Subject: subject, ExpiresAt: c.ExpiresAt.Time}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, c.Kind)
	}
}
