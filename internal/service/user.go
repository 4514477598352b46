package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JLTC3111/Quyenhair/internal/auth"
	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/repository"
	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
	"github.com/JLTC3111/Quyenhair/pkg/validator"
)

const defaultPasswordCost = 12

const errBadCredentials = "invalid email or password"

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72,strongpassword"`
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput changes only the fields that are set.
type UpdateProfileInput struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=255"`
	Email  *string `json:"email" validate:"omitempty,email,max=255"`
	Avatar *string `json:"avatar" validate:"omitempty,url,max=2048"`
}

func (in *UpdateProfileInput) normalize() {
	if in.Name != nil {
		in.Name = ptr(strings.TrimSpace(*in.Name))
	}
	if in.Email != nil {
		in.Email = ptr(normalizeEmail(*in.Email))
	}
}

func (in UpdateProfileInput) apply(u *domain.User) {
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Avatar != nil {
		u.Avatar = *in.Avatar
	}
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,strongpassword"`
}

// UserService owns salon accounts and their sessions. A session is a
// refresh token whose SHA-256 digest is stored server side so it can be
// rotated and revoked.
type UserService struct {
	users    repository.UserRepository
	sessions repository.RefreshTokenRepository
	tokens   *auth.JWTManager
	cost     int
	now      func() time.Time
	logger   *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	sessions repository.RefreshTokenRepository,
	tokens *auth.JWTManager,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		cost:     defaultPasswordCost,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Register creates a customer account and opens its first session.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.TokenPair, error) {
	in.normalize()
	if err := validator.Validate(in); err != nil {
		return nil, nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.openSession(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", u.ID))
	return u, pair, nil
}

// Login checks the password and opens a new session. Unknown emails and
// wrong passwords produce the same error.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*domain.User, *domain.TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validator.Validate(in); err != nil {
		return nil, nil, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, nil, apperrors.Unauthorized(errBadCredentials)
	case err != nil:
		return nil, nil, fmt.Errorf("get user for login: %w", err)
	}
	if !passwordMatches(u.PasswordHash, in.Password) {
		return nil, nil, apperrors.Unauthorized(errBadCredentials)
	}

	pair, err := s.openSession(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	at := s.now()
	if err := s.users.TouchLastLogin(ctx, u.ID, at); err != nil {
		// Login still succeeds; only the "last seen" column is stale.
		s.logger.WarnContext(ctx, "record last login", slog.String("user_id", u.ID), slog.Any("error", err))
	} else {
		u.LastLogin = &at
	}
	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", u.ID))
	return u, pair, nil
}

// Refresh rotates a session: the presented refresh token is revoked and a
// new pair is issued for the same user.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	digest := hashToken(refreshToken)
	if err := s.checkSession(ctx, digest); err != nil {
		return nil, err
	}
	if err := s.sessions.Revoke(ctx, digest); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, apperrors.Unauthorized("account no longer exists")
	case err != nil:
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	pair, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "session rotated", slog.String("user_id", u.ID))
	return pair, nil
}

// checkSession rejects a refresh token the server does not know, has
// revoked, or has let expire.
func (s *UserService) checkSession(ctx context.Context, digest string) error {
	stored, err := s.sessions.GetByHash(ctx, digest)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.Unauthorized("refresh token not found")
	case err != nil:
		return fmt.Errorf("get refresh token: %w", err)
	case stored.RevokedAt != nil:
		return apperrors.Unauthorized("refresh token has been revoked")
	case s.now().After(stored.ExpiresAt):
		return apperrors.Unauthorized("refresh token has expired")
	}
	return nil
}

// Logout revokes one session. Unknown or already revoked tokens are fine.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperrors.InvalidInput("refresh token is required")
	}
	if err := s.sessions.Revoke(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, apperrors.NotFound("user", userID)
	case err != nil:
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error) {
	in.normalize()
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	in.apply(u)
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user %s: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "profile updated", slog.String("user_id", userID))
	return u, nil
}

// ChangePassword swaps the password and ends every open session of the user.
func (s *UserService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := validator.Validate(in); err != nil {
		return err
	}
	if in.CurrentPassword == in.NewPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !passwordMatches(u.PasswordHash, in.CurrentPassword) {
		return apperrors.Unauthorized("current password is incorrect")
	}
	if u.PasswordHash, err = s.hashPassword(in.NewPassword); err != nil {
		return err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("store new password: %w", err)
	}

	if err := s.sessions.RevokeByUserID(ctx, u.ID); err != nil {
		s.logger.ErrorContext(ctx, "revoke sessions after password change",
			slog.String("user_id", u.ID), slog.Any("error", err))
	}
	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", u.ID))
	return nil
}

// DeleteAccount removes the user. The schema cascades to reviews, replies
// and sessions.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "account deleted", slog.String("user_id", userID))
	return nil
}

// SetVerified grants or removes the verified-customer badge.
func (s *UserService) SetVerified(ctx context.Context, userID string, verified bool) error {
	if err := s.users.SetVerified(ctx, userID, verified); err != nil {
		return fmt.Errorf("set verified on %s: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "verified badge changed",
		slog.String("user_id", userID), slog.Bool("verified", verified))
	return nil
}

// openSession signs a token pair for u and records the refresh digest.
func (s *UserService) openSession(ctx context.Context, u *domain.User) (*domain.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(s.tokens.RefreshExpiry())
	if err := s.sessions.Create(ctx, u.ID, hashToken(refresh), expires); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.AccessExpiry() / time.Second),
	}, nil
}

func (s *UserService) hashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func passwordMatches(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// hashToken is the hex SHA-256 of a refresh token, the form kept in storage.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func ptr[T any](v T) *T { return &v }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
