package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/pkg/database"
	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
)

const (
	userSelect = `SELECT id, name, email, password_hash, role, verified, avatar, last_login, created_at, updated_at FROM users`

	userInsert = `
		INSERT INTO users (id, name, email, password_hash, role, verified, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	userUpdate = `
		UPDATE users SET name = $1, email = $2, password_hash = $3, avatar = $4, updated_at = $5
		WHERE id = $6`
)

// UserRepository stores salon customers and admins.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository returns a UserRepository over db.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u. A taken email is apperrors.ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, userInsert,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Verified, u.Avatar, u.CreatedAt, u.UpdatedAt)
	return userWriteError("insert user", u.Email, err)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, userSelect+` WHERE email = $1`, email))
}

// Update writes the profile fields and password hash, stamping UpdatedAt.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, userUpdate, u.Name, u.Email, u.PasswordHash, u.Avatar, u.UpdatedAt, u.ID)
	if err != nil {
		return userWriteError("update user", u.Email, err)
	}
	return userAffected(tag.RowsAffected(), u.ID)
}

// TouchLastLogin records a successful login. A vanished user is ignored.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// SetVerified flips the verified-customer badge shown next to reviews.
func (r *UserRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET verified = $1, updated_at = NOW() WHERE id = $2`, verified, id)
	if err != nil {
		return fmt.Errorf("set user verified: %w", err)
	}
	return userAffected(tag.RowsAffected(), id)
}

// Delete removes the user; reviews, replies and tokens cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return userAffected(tag.RowsAffected(), id)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := new(domain.User)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Verified,
		&u.Avatar, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func userWriteError(op, email string, err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return apperrors.AlreadyExists("user", "email", email)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func userAffected(affected int64, id string) error {
	if affected == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// RefreshTokenRepository keeps SHA-256 hashes of issued refresh tokens.
type RefreshTokenRepository struct {
	db database.DBTX
}

// NewRefreshTokenRepository returns a RefreshTokenRepository over db.
func NewRefreshTokenRepository(db database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES (gen_random_uuid(), $1, $2, $3)`
	if _, err := r.db.Exec(ctx, q, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetByHash returns the token row, revoked or not. Callers check RevokedAt
// and ExpiresAt.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, created_at, revoked_at FROM refresh_tokens WHERE token_hash = $1`

	var t domain.RefreshToken
	err := r.db.QueryRow(ctx, q, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.RevokedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}

// Revoke is idempotent.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, "token_hash", tokenHash)
}

// RevokeByUserID revokes every live token of a user, e.g. after a password change.
func (r *RefreshTokenRepository) RevokeByUserID(ctx context.Context, userID string) error {
	return r.revoke(ctx, "user_id", userID)
}

// revoke takes column from the two call sites above, never from input.
func (r *RefreshTokenRepository) revoke(ctx context.Context, column, value string) error {
	q := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE ` + column + ` = $1 AND revoked_at IS NULL`
	if _, err := r.db.Exec(ctx, q, value); err != nil {
		return fmt.Errorf("revoke refresh tokens by %s: %w", column, err)
	}
	return nil
}
