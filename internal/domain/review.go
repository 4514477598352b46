package domain

import (
	"slices"
	"time"

	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
)

// ReviewStatus is the moderation state of a review.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// RecentWindow is how far back a review counts as recent.
const RecentWindow = 30 * 24 * time.Hour

// ReviewStatuses returns every moderation status.
func ReviewStatuses() []ReviewStatus {
	return []ReviewStatus{StatusApproved, StatusRejected, StatusPending}
}

// ParseReviewStatus validates a moderation target. Any status may move to any
// other; only unknown values are rejected.
func ParseReviewStatus(s string) (ReviewStatus, error) {
	status := ReviewStatus(s)
	if !slices.Contains(ReviewStatuses(), status) {
		return "", apperrors.InvalidStatus(s, "approved", "rejected", "pending")
	}
	return status, nil
}

// ValidRating reports whether r is within [MinRating, MaxRating].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Review is a user-submitted rating and comment.
type Review struct {
	ID           int64        `json:"id"`
	UserID       string       `json:"user_id,omitempty"`
	AuthorName   string       `json:"author_name"`
	AuthorEmail  string       `json:"author_email,omitempty"`
	AuthorAvatar string       `json:"author_avatar,omitempty"`
	Rating       int          `json:"rating"`
	Comment      string       `json:"comment"`
	Verified     bool         `json:"verified"`
	Helpful      int          `json:"helpful"`
	Status       ReviewStatus `json:"status"`
	Replies      []Reply      `json:"replies"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsRecent reports whether the review was created within RecentWindow of now.
func (r *Review) IsRecent(now time.Time) bool {
	return !r.CreatedAt.Before(now.Add(-RecentWindow))
}

// Reply is a threaded response to a review.
type Reply struct {
	ID           int64     `json:"id"`
	ReviewID     int64     `json:"review_id"`
	UserID       string    `json:"user_id,omitempty"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	Text         string    `json:"text"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// TopReviewer is one row of the reviewer leaderboard.
type TopReviewer struct {
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	Avatar        string  `json:"avatar,omitempty"`
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
	TotalHelpful  int     `json:"total_helpful"`
}
