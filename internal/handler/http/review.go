package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/service"
	"github.com/JLTC3111/Quyenhair/pkg/httputil"
	"github.com/JLTC3111/Quyenhair/pkg/middleware"
	"github.com/JLTC3111/Quyenhair/pkg/pagination"
)

// ReviewHandler handles HTTP requests for the comment endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// HelpfulResponse is the data returned by MarkHelpful.
type HelpfulResponse struct {
	ID      int64 `json:"id"`
	Helpful int   `json:"helpful"`
}

// ModerateResponse is the data returned by Moderate.
type ModerateResponse struct {
	ID     int64               `json:"id"`
	Status domain.ReviewStatus `json:"status"`
}

// --- Public reads ---

// Stats handles GET /api/comments/stats
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", stats)
}

// Featured handles GET /api/comments/featured
func (h *ReviewHandler) Featured(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.Featured(r.Context(), httputil.QueryInt(r, "limit", service.DefaultFeaturedLimit))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", reviews)
}

// Recent handles GET /api/comments/recent
func (h *ReviewHandler) Recent(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.Recent(r.Context(),
		httputil.QueryInt(r, "limit", service.DefaultRecentLimit),
		httputil.QueryInt(r, "days", service.DefaultRecentDays),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", reviews)
}

// TopReviewers handles GET /api/comments/top-reviewers
func (h *ReviewHandler) TopReviewers(w http.ResponseWriter, r *http.Request) {
	top, err := h.service.TopReviewers(r.Context(), httputil.QueryInt(r, "limit", service.DefaultTopReviewers))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", top)
}

// ByRating handles GET /api/comments/by-rating
func (h *ReviewHandler) ByRating(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, service.ReviewFilter{Kind: service.FilterByRating, Rating: httputil.QueryInt(r, "rating", 0)})
}

// Verified handles GET /api/comments/verified
func (h *ReviewHandler) Verified(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, service.ReviewFilter{Kind: service.FilterVerified})
}

// Search handles GET /api/comments/search
func (h *ReviewHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	if q == "" {
		q = r.URL.Query().Get("q")
	}
	h.filtered(w, r, service.ReviewFilter{Kind: service.FilterSearch, Query: q})
}

// List handles GET /api/comments
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.ListApproved(r.Context(), service.ListInput{
		Rating: httputil.QueryInt(r, "rating", 0),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
		Page:   pagination.FromRequest(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WritePage(w, result)
}

// Get handles GET /api/comments/{id}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	review, err := h.service.Get(r.Context(), id, middleware.UserIDFromContext(r.Context()), isAdmin(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", review)
}

// --- Authenticated ---

// ListMine handles GET /api/comments/user/my-comments
func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListMine(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", reviews)
}

// Create handles POST /api/comments
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateReviewInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Create(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	message := "Comment created successfully"
	if review.Status == domain.StatusPending {
		message = "Comment submitted for moderation"
	}
	httputil.WriteSuccess(w, http.StatusCreated, message, review)
}

// Update handles PUT /api/comments/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.UpdateReviewInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Update(r.Context(), id, middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Comment updated successfully", review)
}

// Delete handles DELETE /api/comments/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, middleware.UserIDFromContext(r.Context()), isAdmin(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Comment deleted successfully", nil)
}

// MarkHelpful handles POST /api/comments/{id}/helpful
func (h *ReviewHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	n, err := h.service.MarkHelpful(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Marked as helpful", HelpfulResponse{ID: id, Helpful: n})
}

// Reply handles POST /api/comments/{id}/reply
func (h *ReviewHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.ReplyInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	reply, err := h.service.Reply(r.Context(), id, middleware.UserIDFromContext(r.Context()), isAdmin(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "Reply added successfully", reply)
}

// --- Admin ---

// Moderate handles PATCH /api/comments/{id}/moderate
func (h *ReviewHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req service.ModerateInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	status, err := h.service.Moderate(r.Context(), id, middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Review %s successfully", status), ModerateResponse{ID: id, Status: status})
}

// Pending handles GET /api/comments/admin/pending
func (h *ReviewHandler) Pending(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListPending(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WritePage(w, result)
}

func (h *ReviewHandler) filtered(w http.ResponseWriter, r *http.Request, f service.ReviewFilter) {
	result, err := h.service.ListByFilter(r.Context(), f, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WritePage(w, result)
}
