package repository

import (
	"context"
	"errors"
	"time"

	"github.com/JLTC3111/Quyenhair/internal/domain"
)

// ErrCacheMiss is returned by StatsCache.Get when nothing is cached.
var ErrCacheMiss = errors.New("cache miss")

// Sort keys accepted by ReviewFilter.Sort.
const (
	SortCreatedAt = "created_at"
	SortRating    = "rating"
	SortHelpful   = "helpful"
)

// ReviewFilter selects reviews. Zero values mean "no constraint".
type ReviewFilter struct {
	Status       domain.ReviewStatus
	Rating       int
	VerifiedOnly bool
	Since        time.Time
	Search       string
	UserID       string
	Sort         string
	Ascending    bool
	Limit        int
	Offset       int
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	UserID    string
	Action    string
	Table     string
	RecordID  int64
	NewValues map[string]any
}

// ReviewRepository persists reviews and their replies.
type ReviewRepository interface {
	// Create inserts r unless its user already owns a review, in which case
	// it returns apperrors.ErrDuplicate. On success r.ID and timestamps are set.
	Create(ctx context.Context, r *domain.Review) error

	// GetByID returns the review with its author fields, without replies.
	GetByID(ctx context.Context, id int64) (*domain.Review, error)

	// List returns one page of reviews matching f plus the total match count.
	List(ctx context.Context, f ReviewFilter) ([]domain.Review, int, error)

	// UpdateContent replaces rating and comment.
	UpdateContent(ctx context.Context, id int64, rating int, comment string) error

	// SetStatus moves a review to status.
	SetStatus(ctx context.Context, id int64, status domain.ReviewStatus) error

	// IncrementHelpful adds one helpful vote and returns the new count.
	IncrementHelpful(ctx context.Context, id int64) (int, error)

	// Delete removes a review; replies cascade.
	Delete(ctx context.Context, id int64) error

	// CreateReply inserts reply, returning apperrors.ErrNotFound when the
	// review does not exist.
	CreateReply(ctx context.Context, reply *domain.Reply) error

	// RepliesFor returns the replies of every id in ids, oldest first.
	RepliesFor(ctx context.Context, ids []int64) (map[int64][]domain.Reply, error)

	// Statistics tallies approved reviews; since anchors the recent window.
	Statistics(ctx context.Context, since time.Time) (domain.StatsInput, error)

	// TopReviewers ranks users by approved review count, then helpful votes.
	TopReviewers(ctx context.Context, limit int) ([]domain.TopReviewer, error)

	// RecordAudit appends an audit log row.
	RecordAudit(ctx context.Context, e AuditEntry) error
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository persists refresh token hashes.
type RefreshTokenRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeByUserID(ctx context.Context, userID string) error
}

// BookingRepository persists appointment requests.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error
}

// StatsCache caches the computed review statistics. Get reports the cache
// generation it looked at, also on a miss; Set must be given that same
// generation so a result computed before an Invalidate is never served
// after it.
type StatsCache interface {
	Get(ctx context.Context) (*domain.RatingStatistics, int64, error)
	Set(ctx context.Context, gen int64, stats *domain.RatingStatistics) error
	Invalidate(ctx context.Context) error
}
