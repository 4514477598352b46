package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/repository"
	"github.com/JLTC3111/Quyenhair/pkg/database"
	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
)

const reviewColumns = `r.id, r.user_id, u.name, u.email, u.avatar, r.rating, r.comment,
		       u.verified, r.helpful, r.status, r.created_at, r.updated_at`

const statsQuery = `
	SELECT
		COUNT(*) FILTER (WHERE r.rating = 1),
		COUNT(*) FILTER (WHERE r.rating = 2),
		COUNT(*) FILTER (WHERE r.rating = 3),
		COUNT(*) FILTER (WHERE r.rating = 4),
		COUNT(*) FILTER (WHERE r.rating = 5),
		COUNT(*) FILTER (WHERE r.rating = 1 AND r.created_at >= $1),
		COUNT(*) FILTER (WHERE r.rating = 2 AND r.created_at >= $1),
		COUNT(*) FILTER (WHERE r.rating = 3 AND r.created_at >= $1),
		COUNT(*) FILTER (WHERE r.rating = 4 AND r.created_at >= $1),
		COUNT(*) FILTER (WHERE r.rating = 5 AND r.created_at >= $1),
		COALESCE(SUM(r.helpful), 0),
		COUNT(*) FILTER (WHERE u.verified)
	FROM reviews r
	JOIN users u ON u.id = r.user_id
	WHERE r.status = 'approved'`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review. The unique constraint on user_id makes the
// one-review-per-user check atomic: a conflicting insert returns no row.
func (r *ReviewRepository) Create(ctx context.Context, rev *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (user_id, rating, comment, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id, helpful, created_at, updated_at`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx, query, rev.UserID, rev.Rating, rev.Comment, rev.Status).
		Scan(&rev.ID, &rev.Helpful, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review and its author's public fields.
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1`

	rev, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rev, nil
}

// List returns reviews matching the filter with the total match count.
func (r *ReviewRepository) List(ctx context.Context, f repository.ReviewFilter) (_ []domain.Review, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", argIndex))
		args = append(args, f.Status)
		argIndex++
	}
	if f.Rating != 0 {
		conditions = append(conditions, fmt.Sprintf("r.rating = $%d", argIndex))
		args = append(args, f.Rating)
		argIndex++
	}
	if f.VerifiedOnly {
		conditions = append(conditions, "u.verified = TRUE")
	}
	if !f.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("r.created_at >= $%d", argIndex))
		args = append(args, f.Since)
		argIndex++
	}
	if f.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", argIndex))
		args = append(args, f.UserID)
		argIndex++
	}
	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(r.comment ILIKE $%d OR u.name ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+escapeLike(f.Search)+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		reviewColumns, whereClause, orderClause(f.Sort, f.Ascending), argIndex, argIndex+1)
	args = append(args, f.Limit, f.Offset)

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews []domain.Review
		total   int
	)
	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(
			&rev.ID, &rev.UserID, &rev.AuthorName, &rev.AuthorEmail, &rev.AuthorAvatar,
			&rev.Rating, &rev.Comment, &rev.Verified, &rev.Helpful, &rev.Status,
			&rev.CreatedAt, &rev.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	// A page past the end carries no window count.
	if len(reviews) == 0 && f.Offset > 0 {
		total, err = r.count(ctx, whereClause, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}
	return reviews, total, nil
}

func (r *ReviewRepository) count(ctx context.Context, whereClause string, args []any) (int, error) {
	query := `SELECT COUNT(*) FROM reviews r JOIN users u ON u.id = r.user_id ` + whereClause

	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

// UpdateContent replaces the rating and comment of a review.
func (r *ReviewRepository) UpdateContent(ctx context.Context, id int64, rating int, comment string) error {
	query := `UPDATE reviews SET rating = $1, comment = $2, updated_at = NOW() WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, rating, comment, id)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetStatus changes the moderation status of a review.
func (r *ReviewRepository) SetStatus(ctx context.Context, id int64, status domain.ReviewStatus) error {
	query := `UPDATE reviews SET status = $1, updated_at = NOW() WHERE id = $2`

	ct, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("set review status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// IncrementHelpful adds one helpful vote in a single statement.
func (r *ReviewRepository) IncrementHelpful(ctx context.Context, id int64) (int, error) {
	query := `UPDATE reviews SET helpful = helpful + 1 WHERE id = $1 RETURNING helpful`

	var helpful int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&helpful); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("increment helpful: %w", err)
	}
	return helpful, nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CreateReply inserts a reply and fills in its id, timestamp and author.
func (r *ReviewRepository) CreateReply(ctx context.Context, reply *domain.Reply) error {
	query := `
		WITH ins AS (
			INSERT INTO review_replies (review_id, user_id, reply, is_admin)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, created_at
		)
		SELECT ins.id, ins.created_at, u.name, u.avatar
		FROM ins
		JOIN users u ON u.id = ins.user_id`

	err := r.pool.QueryRow(ctx, query, reply.ReviewID, reply.UserID, reply.Text, reply.IsAdmin).
		Scan(&reply.ID, &reply.CreatedAt, &reply.AuthorName, &reply.AuthorAvatar)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("insert reply: %w", err)
	}
	return nil
}

// RepliesFor loads the replies of several reviews in one query.
func (r *ReviewRepository) RepliesFor(ctx context.Context, ids []int64) (map[int64][]domain.Reply, error) {
	out := make(map[int64][]domain.Reply, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT rr.id, rr.review_id, rr.user_id, u.name, u.avatar, rr.reply, rr.is_admin, rr.created_at
		FROM review_replies rr
		JOIN users u ON u.id = rr.user_id
		WHERE rr.review_id = ANY($1)
		ORDER BY rr.created_at ASC, rr.id ASC`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rp domain.Reply
		if err := rows.Scan(
			&rp.ID, &rp.ReviewID, &rp.UserID, &rp.AuthorName, &rp.AuthorAvatar,
			&rp.Text, &rp.IsAdmin, &rp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reply row: %w", err)
		}
		out[rp.ReviewID] = append(out[rp.ReviewID], rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reply rows: %w", err)
	}
	return out, nil
}

// Statistics tallies approved reviews in a single aggregate query.
func (r *ReviewRepository) Statistics(ctx context.Context, since time.Time) (in domain.StatsInput, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewStatistics", statsQuery)
	defer func() { end(err) }()

	c, rc := &in.Counts, &in.RecentCounts
	err = r.pool.QueryRow(ctx, statsQuery, since).Scan(
		&c[0], &c[1], &c[2], &c[3], &c[4],
		&rc[0], &rc[1], &rc[2], &rc[3], &rc[4],
		&in.Helpful, &in.Verified,
	)
	if err != nil {
		return domain.StatsInput{}, fmt.Errorf("review statistics: %w", err)
	}
	return in, nil
}

// TopReviewers ranks authors of approved reviews.
func (r *ReviewRepository) TopReviewers(ctx context.Context, limit int) ([]domain.TopReviewer, error) {
	query := `
		SELECT u.id, u.name, u.avatar,
		       COUNT(r.id) AS review_count,
		       AVG(r.rating)::float8 AS avg_rating,
		       COALESCE(SUM(r.helpful), 0) AS total_helpful
		FROM users u
		JOIN reviews r ON r.user_id = u.id
		WHERE r.status = 'approved'
		GROUP BY u.id, u.name, u.avatar
		ORDER BY review_count DESC, total_helpful DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top reviewers: %w", err)
	}
	defer rows.Close()

	var out []domain.TopReviewer
	for rows.Next() {
		var t domain.TopReviewer
		if err := rows.Scan(&t.UserID, &t.Name, &t.Avatar, &t.ReviewCount, &t.AverageRating, &t.TotalHelpful); err != nil {
			return nil, fmt.Errorf("scan top reviewer: %w", err)
		}
		t.AverageRating = domain.Round1(t.AverageRating)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top reviewers: %w", err)
	}
	return out, nil
}

// RecordAudit appends a row to the audit log.
func (r *ReviewRepository) RecordAudit(ctx context.Context, e repository.AuditEntry) error {
	values, err := json.Marshal(e.NewValues)
	if err != nil {
		return fmt.Errorf("marshal audit values: %w", err)
	}

	query := `
		INSERT INTO audit_logs (user_id, action, table_name, record_id, new_values)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, e.UserID, e.Action, e.Table, e.RecordID, values); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rev domain.Review
	err := row.Scan(
		&rev.ID, &rev.UserID, &rev.AuthorName, &rev.AuthorEmail, &rev.AuthorAvatar,
		&rev.Rating, &rev.Comment, &rev.Verified, &rev.Helpful, &rev.Status,
		&rev.CreatedAt, &rev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func orderClause(sort string, ascending bool) string {
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	switch sort {
	case repository.SortRating:
		return "r.rating " + dir + ", r.created_at DESC, r.id DESC"
	case repository.SortHelpful:
		return "r.helpful " + dir + ", r.created_at DESC, r.id DESC"
	default:
		return "r.created_at " + dir + ", r.id " + dir
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23503")
}
