package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JLTC3111/Quyenhair/pkg/middleware"
)

const issuer = "quyenhair-reviews"

// Values of the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrWrongTokenType means a refresh token was presented where an access
// token was expected, or the reverse.
var ErrWrongTokenType = errors.New("wrong token type")

// Claims is the payload of an access token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. RegisteredClaims.ID is a
// random jti.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// JWTManager issues and checks HS256 tokens for one secret.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
	parser        *jwt.Parser
}

func NewJWTManager(secret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	m := &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           func() time.Time { return time.Now().UTC() },
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	return m
}

func (m *JWTManager) AccessExpiry() time.Duration  { return m.accessExpiry }
func (m *JWTManager) RefreshExpiry() time.Duration { return m.refreshExpiry }

// GenerateAccessToken signs a short-lived token identifying the user and role.
func (m *JWTManager) GenerateAccessToken(userID, email, role string) (string, error) {
	return m.sign("access", &Claims{
		UserID:           userID,
		Email:            email,
		Role:             role,
		Type:             TypeAccess,
		RegisteredClaims: m.registered(userID, "", m.accessExpiry),
	})
}

// GenerateRefreshToken signs a long-lived token. Two tokens for the same user
// never collide, even within one second.
func (m *JWTManager) GenerateRefreshToken(userID string) (string, error) {
	return m.sign("refresh", &RefreshClaims{
		UserID:           userID,
		Type:             TypeRefresh,
		RegisteredClaims: m.registered(userID, uuid.NewString(), m.refreshExpiry),
	})
}

func (m *JWTManager) ValidateAccessToken(token string) (*Claims, error) {
	c := new(Claims)
	if err := m.parse("access", token, c); err != nil {
		return nil, err
	}
	if c.Type != TypeAccess {
		return nil, ErrWrongTokenType
	}
	return c, nil
}

func (m *JWTManager) ValidateRefreshToken(token string) (*RefreshClaims, error) {
	c := new(RefreshClaims)
	if err := m.parse("refresh", token, c); err != nil {
		return nil, err
	}
	if c.Type != TypeRefresh {
		return nil, ErrWrongTokenType
	}
	return c, nil
}

// Validator adapts the manager to the HTTP auth middleware.
func (m *JWTManager) Validator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		c, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: c.UserID, Email: c.Email, Role: c.Role}, nil
	}
}

func (m *JWTManager) registered(subject, id string, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	return jwt.RegisteredClaims{
		ID:        id,
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *JWTManager) sign(kind string, claims jwt.Claims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return s, nil
}

func (m *JWTManager) parse(kind, token string, claims jwt.Claims) error {
	_, err := m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parse %s token: %w", kind, err)
	}
	return nil
}
