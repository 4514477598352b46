package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/event"
	"github.com/JLTC3111/Quyenhair/internal/repository"
	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
	"github.com/JLTC3111/Quyenhair/pkg/pagination"
	"github.com/JLTC3111/Quyenhair/pkg/validator"
)

const msgDuplicateReview = "You have already submitted a review"

// Limits for the non-paginated listings.
const (
	DefaultFeaturedLimit = 3
	MaxFeaturedLimit     = 20
	DefaultRecentLimit   = 5
	DefaultRecentDays    = 30
	MaxRecentLimit       = 50
	DefaultTopReviewers  = 10
	MaxTopReviewers      = 50
	maxOwnReviews        = 50
)

// FilterKind selects one of the public filtered listings.
type FilterKind string

const (
	FilterByRating FilterKind = "by-rating"
	FilterVerified FilterKind = "verified"
	FilterRecent   FilterKind = "recent"
	FilterSearch   FilterKind = "search"
)

// ReviewFilter parameterises ListByFilter. Only the field matching Kind is read.
type ReviewFilter struct {
	Kind   FilterKind
	Rating int
	Days   int
	Query  string
}

// ListInput parameterises ListApproved.
type ListInput struct {
	Rating int
	Sort   string
	Order  string
	Page   pagination.Params
}

// CreateReviewInput holds the fields of a new review.
type CreateReviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,min=10,max=1000"`
}

// UpdateReviewInput holds an owner edit. Nil fields are left unchanged.
type UpdateReviewInput struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,min=10,max=1000"`
}

// ReplyInput holds a reply body.
type ReplyInput struct {
	Reply string `json:"reply" validate:"required,max=1000"`
}

// ModerateInput holds a moderation decision.
type ModerateInput struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// ReviewOptions tunes ReviewService.
type ReviewOptions struct {
	// AutoApprove publishes new reviews immediately instead of queueing them.
	AutoApprove bool
}

// ReviewService implements review submission, listing, statistics and moderation.
type ReviewService struct {
	reviews  repository.ReviewRepository
	cache    repository.StatsCache
	producer *event.Producer
	metrics  *Metrics
	opts     ReviewOptions
	now      func() time.Time
	logger   *slog.Logger
}

// NewReviewService creates a new review service. cache may be nil.
func NewReviewService(
	reviews repository.ReviewRepository,
	cache repository.StatsCache,
	producer *event.Producer,
	metrics *Metrics,
	opts ReviewOptions,
	logger *slog.Logger,
) *ReviewService {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &ReviewService{
		reviews:  reviews,
		cache:    cache,
		producer: producer,
		metrics:  metrics,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// --- Submission ---

// Create stores a review for userID. A second review by the same user is a
// Duplicate error; the storage constraint decides, so concurrent submissions
// cannot both succeed.
func (s *ReviewService) Create(ctx context.Context, userID string, in CreateReviewInput) (*domain.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	status := domain.StatusPending
	if s.opts.AutoApprove {
		status = domain.StatusApproved
	}

	rev := &domain.Review{UserID: userID, Rating: in.Rating, Comment: in.Comment, Status: status}
	if err := s.reviews.Create(ctx, rev); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.Duplicate(msgDuplicateReview)
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	created, err := s.reviews.GetByID(ctx, rev.ID)
	if err != nil {
		return nil, fmt.Errorf("load created review: %w", err)
	}
	created.Replies = []domain.Reply{}

	s.metrics.submitted.WithLabelValues(string(status)).Inc()
	if status == domain.StatusApproved {
		s.invalidateStats(ctx)
	}
	if err := s.producer.PublishReviewSubmitted(ctx, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
			slog.Int64("review_id", created.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.Int64("review_id", created.ID),
		slog.String("user_id", userID),
		slog.String("status", string(status)),
	)
	return created, nil
}

// --- Reads ---

// Get returns a review with its replies. Reviews that are not approved are
// only visible to their author and to admins.
func (s *ReviewService) Get(ctx context.Context, id int64, viewerID string, viewerIsAdmin bool) (*domain.Review, error) {
	rev, err := s.getReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if rev.Status != domain.StatusApproved && !viewerIsAdmin && rev.UserID != viewerID {
		return nil, reviewNotFound(id)
	}

	list, err := s.withReplies(ctx, []domain.Review{*rev})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListApproved returns one page of approved reviews, optionally of one rating.
func (s *ReviewService) ListApproved(ctx context.Context, in ListInput) (pagination.Result[domain.Review], error) {
	if in.Rating != 0 && !domain.ValidRating(in.Rating) {
		return pagination.Result[domain.Review]{}, apperrors.InvalidInput("Valid rating (1-5) required")
	}
	return s.page(ctx, repository.ReviewFilter{
		Status:    domain.StatusApproved,
		Rating:    in.Rating,
		Sort:      sortKey(in.Sort),
		Ascending: strings.EqualFold(in.Order, "asc"),
	}, in.Page)
}

// ListByFilter returns one page of approved reviews selected by f.
func (s *ReviewService) ListByFilter(ctx context.Context, f ReviewFilter, page pagination.Params) (pagination.Result[domain.Review], error) {
	rf := repository.ReviewFilter{Status: domain.StatusApproved}

	switch f.Kind {
	case FilterByRating:
		if !domain.ValidRating(f.Rating) {
			return pagination.Result[domain.Review]{}, apperrors.InvalidInput("Valid rating (1-5) required")
		}
		rf.Rating = f.Rating
	case FilterVerified:
		rf.VerifiedOnly = true
	case FilterRecent:
		days := f.Days
		if days <= 0 {
			days = DefaultRecentDays
		}
		rf.Since = s.now().AddDate(0, 0, -days)
	case FilterSearch:
		q := strings.TrimSpace(f.Query)
		if q == "" {
			return pagination.Result[domain.Review]{}, apperrors.InvalidInput("Search query required")
		}
		rf.Search = q
	default:
		return pagination.Result[domain.Review]{}, apperrors.InvalidInput("unknown filter " + strconv.Quote(string(f.Kind)))
	}

	return s.page(ctx, rf, page)
}

// Featured returns the most helpful five-star reviews.
func (s *ReviewService) Featured(ctx context.Context, limit int) ([]domain.Review, error) {
	limit = clamp(limit, DefaultFeaturedLimit, MaxFeaturedLimit)
	return s.list(ctx, repository.ReviewFilter{
		Status: domain.StatusApproved,
		Rating: domain.MaxRating,
		Sort:   repository.SortHelpful,
		Limit:  limit,
	})
}

// Recent returns the newest approved reviews created within days.
func (s *ReviewService) Recent(ctx context.Context, limit, days int) ([]domain.Review, error) {
	limit = clamp(limit, DefaultRecentLimit, MaxRecentLimit)
	if days <= 0 {
		days = DefaultRecentDays
	}
	return s.list(ctx, repository.ReviewFilter{
		Status: domain.StatusApproved,
		Since:  s.now().AddDate(0, 0, -days),
		Limit:  limit,
	})
}

// ListMine returns every review written by userID, whatever its status.
func (s *ReviewService) ListMine(ctx context.Context, userID string) ([]domain.Review, error) {
	return s.list(ctx, repository.ReviewFilter{UserID: userID, Limit: maxOwnReviews})
}

// ListPending returns the moderation queue, newest first.
func (s *ReviewService) ListPending(ctx context.Context, page pagination.Params) (pagination.Result[domain.Review], error) {
	return s.page(ctx, repository.ReviewFilter{Status: domain.StatusPending, Sort: repository.SortCreatedAt}, page)
}

// TopReviewers ranks users by approved review count, then helpful votes.
func (s *ReviewService) TopReviewers(ctx context.Context, limit int) ([]domain.TopReviewer, error) {
	limit = clamp(limit, DefaultTopReviewers, MaxTopReviewers)
	top, err := s.reviews.TopReviewers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top reviewers: %w", err)
	}
	if top == nil {
		top = []domain.TopReviewer{}
	}
	return top, nil
}

// Statistics returns rating statistics over approved reviews. Results are
// served from the cache when possible; cache failures only cost a query.
func (s *ReviewService) Statistics(ctx context.Context) (*domain.RatingStatistics, error) {
	var (
		gen       int64
		cacheable = s.cache != nil
	)
	if cacheable {
		cached, g, err := s.cache.Get(ctx)
		switch {
		case err == nil:
			s.metrics.statsHits.WithLabelValues("hit").Inc()
			return cached, nil
		case errors.Is(err, repository.ErrCacheMiss):
			s.metrics.statsHits.WithLabelValues("miss").Inc()
			gen = g
		default:
			// Without a known generation a write could outlive an invalidation.
			cacheable = false
			s.metrics.statsHits.WithLabelValues("error").Inc()
			s.logger.WarnContext(ctx, "stats cache read failed", slog.String("error", err.Error()))
		}
	}

	in, err := s.reviews.Statistics(ctx, s.now().Add(-domain.RecentWindow))
	if err != nil {
		return nil, fmt.Errorf("compute statistics: %w", err)
	}
	stats := domain.NewRatingStatistics(in)

	if cacheable {
		if err := s.cache.Set(ctx, gen, &stats); err != nil {
			s.logger.WarnContext(ctx, "stats cache write failed", slog.String("error", err.Error()))
		}
	}
	return &stats, nil
}

// --- Mutations ---

// Update applies an owner edit to a review.
func (s *ReviewService) Update(ctx context.Context, id int64, userID string, in UpdateReviewInput) (*domain.Review, error) {
	if in.Comment != nil {
		trimmed := strings.TrimSpace(*in.Comment)
		in.Comment = &trimmed
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	rev, err := s.getReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if rev.UserID != userID {
		return nil, apperrors.Forbidden("Not authorized to update this comment")
	}

	if in.Rating != nil {
		rev.Rating = *in.Rating
	}
	if in.Comment != nil {
		rev.Comment = *in.Comment
	}
	if err := s.reviews.UpdateContent(ctx, id, rev.Rating, rev.Comment); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, reviewNotFound(id)
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	if rev.Status == domain.StatusApproved {
		s.invalidateStats(ctx)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.Int64("review_id", id),
		slog.String("user_id", userID),
	)
	return s.Get(ctx, id, userID, false)
}

// Delete removes a review. Owners may delete their own; admins any.
func (s *ReviewService) Delete(ctx context.Context, id int64, userID string, isAdmin bool) error {
	rev, err := s.getReview(ctx, id)
	if err != nil {
		return err
	}
	if rev.UserID != userID && !isAdmin {
		return apperrors.Forbidden("Not authorized to delete this comment")
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return reviewNotFound(id)
		}
		return fmt.Errorf("delete review: %w", err)
	}
	if rev.Status == domain.StatusApproved {
		s.invalidateStats(ctx)
	}
	if err := s.producer.PublishReviewDeleted(ctx, id, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.Int64("review_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.Int64("review_id", id),
		slog.String("deleted_by", userID),
	)
	return nil
}

// MarkHelpful adds one helpful vote and returns the new count. Votes are not
// deduplicated.
func (s *ReviewService) MarkHelpful(ctx context.Context, id int64) (int, error) {
	n, err := s.reviews.IncrementHelpful(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, reviewNotFound(id)
		}
		return 0, fmt.Errorf("mark helpful: %w", err)
	}
	s.metrics.helpful.Inc()
	s.invalidateStats(ctx)
	return n, nil
}

// Reply appends a reply to a review. isAdmin marks staff answers.
func (s *ReviewService) Reply(ctx context.Context, id int64, userID string, isAdmin bool, in ReplyInput) (*domain.Reply, error) {
	in.Reply = strings.TrimSpace(in.Reply)
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	reply := &domain.Reply{ReviewID: id, UserID: userID, Text: in.Reply, IsAdmin: isAdmin}
	if err := s.reviews.CreateReply(ctx, reply); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, reviewNotFound(id)
		}
		return nil, fmt.Errorf("create reply: %w", err)
	}

	s.logger.InfoContext(ctx, "reply added",
		slog.Int64("review_id", id),
		slog.Int64("reply_id", reply.ID),
		slog.Bool("is_admin", isAdmin),
	)
	return reply, nil
}

// Moderate moves a review to a new status. Any status may move to any other.
// The audit row and the event are best effort.
func (s *ReviewService) Moderate(ctx context.Context, id int64, adminID string, in ModerateInput) (domain.ReviewStatus, error) {
	status, err := domain.ParseReviewStatus(in.Status)
	if err != nil {
		return "", err
	}
	if err := validator.Validate(in); err != nil {
		return "", err
	}

	if err := s.reviews.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", reviewNotFound(id)
		}
		return "", fmt.Errorf("moderate review: %w", err)
	}

	audit := repository.AuditEntry{
		UserID:    adminID,
		Action:    "moderate_review",
		Table:     "reviews",
		RecordID:  id,
		NewValues: map[string]any{"status": status, "notes": in.Notes},
	}
	if err := s.reviews.RecordAudit(ctx, audit); err != nil {
		s.logger.ErrorContext(ctx, "failed to record moderation audit",
			slog.Int64("review_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.moderated.WithLabelValues(string(status)).Inc()
	s.invalidateStats(ctx)
	if err := s.producer.PublishReviewModerated(ctx, id, adminID, status, in.Notes); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.moderated event",
			slog.Int64("review_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review moderated",
		slog.Int64("review_id", id),
		slog.String("admin_id", adminID),
		slog.String("status", string(status)),
	)
	return status, nil
}

// --- helpers ---

func (s *ReviewService) getReview(ctx context.Context, id int64) (*domain.Review, error) {
	rev, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, reviewNotFound(id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rev, nil
}

func (s *ReviewService) list(ctx context.Context, f repository.ReviewFilter) ([]domain.Review, error) {
	reviews, _, err := s.reviews.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return s.withReplies(ctx, reviews)
}

func (s *ReviewService) page(ctx context.Context, f repository.ReviewFilter, p pagination.Params) (pagination.Result[domain.Review], error) {
	f.Limit, f.Offset = p.Limit, p.Offset
	reviews, total, err := s.reviews.List(ctx, f)
	if err != nil {
		return pagination.Result[domain.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	reviews, err = s.withReplies(ctx, reviews)
	if err != nil {
		return pagination.Result[domain.Review]{}, err
	}
	return pagination.NewResult(reviews, total, p), nil
}

// withReplies attaches replies with one query for the whole slice.
func (s *ReviewService) withReplies(ctx context.Context, reviews []domain.Review) ([]domain.Review, error) {
	if len(reviews) == 0 {
		return []domain.Review{}, nil
	}
	ids := make([]int64, len(reviews))
	for i := range reviews {
		ids[i] = reviews[i].ID
	}
	replies, err := s.reviews.RepliesFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}
	for i := range reviews {
		reviews[i].Replies = replies[reviews[i].ID]
		if reviews[i].Replies == nil {
			reviews[i].Replies = []domain.Reply{}
		}
	}
	return reviews, nil
}

func (s *ReviewService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "stats cache invalidation failed", slog.String("error", err.Error()))
	}
}

func reviewNotFound(id int64) error {
	return apperrors.NotFound("review", strconv.FormatInt(id, 10))
}

func sortKey(s string) string {
	switch s {
	case repository.SortRating, repository.SortHelpful:
		return s
	default:
		return repository.SortCreatedAt
	}
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
