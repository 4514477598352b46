// Package engine keeps a local, persisted working set of reviews and answers
// filtered, paginated and statistical queries over it.
package engine

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JLTC3111/Quyenhair/internal/domain"
)

// SubmitInput holds the fields of a locally submitted review.
type SubmitInput struct {
	AuthorName  string `json:"author_name" validate:"required,max=100"`
	AuthorEmail string `json:"author_email" validate:"omitempty,email"`
	Rating      int    `json:"rating" validate:"gte=1,lte=5"`
	Comment     string `json:"comment" validate:"required,max=1000"`
	Verified    bool   `json:"verified"`
}

// ReplyInput holds the fields of a reply.
type ReplyInput struct {
	AuthorName string `json:"author_name" validate:"required,max=100"`
	Text       string `json:"text" validate:"required,max=1000"`
	IsAdmin    bool   `json:"is_admin"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, which anchors timestamps and the recent window.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine is safe for concurrent use. Mutations build a new collection, save
// it and only then swap it in, so a failed save leaves the previous state
// untouched and sequences handed out by Filter never observe a later write.
type Engine struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	reviews []domain.Review

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

// New creates an engine over store. Call Load to read existing reviews.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		now:       time.Now,
		logger:    slog.Default(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load replaces the working set with the stored collection.
func (e *Engine) Load(ctx context.Context) error {
	reviews, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load reviews: %w", err)
	}
	for i := range reviews {
		if reviews[i].Replies == nil {
			reviews[i].Replies = []domain.Reply{}
		}
	}

	e.mu.Lock()
	e.reviews = reviews
	stats := computeStatistics(reviews, e.now())
	e.mu.Unlock()

	e.notify(Event{Kind: EventLoaded, Stats: stats})
	return nil
}

// Submit validates input and prepends a new review, newest first.
func (e *Engine) Submit(ctx context.Context, input SubmitInput) (domain.Review, error) {
	input.AuthorName = strings.TrimSpace(input.AuthorName)
	input.AuthorEmail = strings.TrimSpace(input.AuthorEmail)
	input.Comment = strings.TrimSpace(input.Comment)
	if err := validate(input); err != nil {
		return domain.Review{}, err
	}

	e.mu.Lock()
	now := e.now().UTC()
	review := domain.Review{
		ID:          nextID(e.reviews),
		AuthorName:  input.AuthorName,
		AuthorEmail: input.AuthorEmail,
		Rating:      input.Rating,
		Comment:     input.Comment,
		Verified:    input.Verified,
		Status:      domain.StatusPending,
		Replies:     []domain.Reply{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	next := make([]domain.Review, 0, len(e.reviews)+1)
	next = append(next, review)
	next = append(next, e.reviews...)

	stats, err := e.commit(ctx, next)
	e.mu.Unlock()
	if err != nil {
		return domain.Review{}, err
	}

	e.notify(Event{Kind: EventSubmitted, Review: &review, Stats: stats})
	return review, nil
}

// MarkHelpful adds one helpful vote. Repeated calls keep counting.
func (e *Engine) MarkHelpful(ctx context.Context, id int64) (domain.Review, error) {
	return e.update(ctx, id, EventHelpful, func(r *domain.Review) error {
		r.Helpful++
		return nil
	})
}

// AppendReply adds a reply to the end of a review's thread.
func (e *Engine) AppendReply(ctx context.Context, id int64, input ReplyInput) (domain.Review, error) {
	input.AuthorName = strings.TrimSpace(input.AuthorName)
	input.Text = strings.TrimSpace(input.Text)

	return e.update(ctx, id, EventReplied, func(r *domain.Review) error {
		if err := validate(input); err != nil {
			return err
		}
		var lastID int64
		if n := len(r.Replies); n > 0 {
			lastID = r.Replies[n-1].ID
		}
		// Clip so the append never writes into a backing array shared with
		// the previous collection.
		r.Replies = append(slices.Clip(r.Replies), domain.Reply{
			ID:         lastID + 1,
			ReviewID:   r.ID,
			AuthorName: input.AuthorName,
			Text:       input.Text,
			IsAdmin:    input.IsAdmin,
			CreatedAt:  e.now().UTC(),
		})
		return nil
	})
}

func (e *Engine) update(ctx context.Context, id int64, kind EventKind, mutate func(*domain.Review) error) (domain.Review, error) {
	e.mu.Lock()
	idx := slices.IndexFunc(e.reviews, func(r domain.Review) bool { return r.ID == id })
	if idx < 0 {
		e.mu.Unlock()
		return domain.Review{}, notFound(id)
	}

	next := slices.Clone(e.reviews)
	if err := mutate(&next[idx]); err != nil {
		e.mu.Unlock()
		return domain.Review{}, err
	}
	review := next[idx]

	stats, err := e.commit(ctx, next)
	e.mu.Unlock()
	if err != nil {
		return domain.Review{}, err
	}

	e.notify(Event{Kind: kind, Review: &review, Stats: stats})
	return review, nil
}

// commit persists next and makes it current. Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, next []domain.Review) (domain.RatingStatistics, error) {
	if err := e.store.Save(ctx, next); err != nil {
		e.logger.WarnContext(ctx, "save reviews failed, keeping previous state",
			slog.Int("reviews", len(e.reviews)),
			slog.String("error", err.Error()),
		)
		return domain.RatingStatistics{}, fmt.Errorf("save reviews: %w", err)
	}
	e.reviews = next
	return computeStatistics(next, e.now()), nil
}

// Get returns the review with the given id.
func (e *Engine) Get(id int64) (domain.Review, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.reviews {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Review{}, notFound(id)
}

// Len returns the number of reviews in the working set.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.reviews)
}

// Filter returns a lazy sequence of the reviews matching c, in collection
// order. The sequence reads the collection as it was when Filter was called.
func (e *Engine) Filter(c Criterion) iter.Seq[domain.Review] {
	e.mu.RLock()
	snapshot := e.reviews
	e.mu.RUnlock()
	now := e.now()

	return func(yield func(domain.Review) bool) {
		for i := range snapshot {
			if !c.match(&snapshot[i], now) {
				continue
			}
			if !yield(snapshot[i]) {
				return
			}
		}
	}
}

// Statistics scans the current collection. The recent window is measured
// from the engine clock at call time, and the result belongs to the caller.
func (e *Engine) Statistics() domain.RatingStatistics {
	e.mu.RLock()
	snapshot := e.reviews
	e.mu.RUnlock()
	return computeStatistics(snapshot, e.now())
}

func computeStatistics(reviews []domain.Review, now time.Time) domain.RatingStatistics {
	var in domain.StatsInput
	for _, r := range reviews {
		in.Add(r, now)
	}
	return domain.NewRatingStatistics(in)
}

func nextID(reviews []domain.Review) int64 {
	var maxID int64
	for _, r := range reviews {
		maxID = max(maxID, r.ID)
	}
	return maxID + 1
}
