package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JLTC3111/Quyenhair/internal/auth"
	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/event"
	"github.com/JLTC3111/Quyenhair/internal/repository"
	"github.com/JLTC3111/Quyenhair/internal/repository/mocks"
	"github.com/JLTC3111/Quyenhair/internal/service"
	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
	"github.com/JLTC3111/Quyenhair/pkg/health"
	"github.com/JLTC3111/Quyenhair/pkg/httputil"
	"github.com/JLTC3111/Quyenhair/pkg/middleware"
)

const (
	customerID = "0b5e7f1e-6f0a-4a53-9d3c-2f8a4c1d9e01"
	adminID    = "7d2c1a9b-3e4f-4b6a-8c5d-1e2f3a4b5c6d"
)

// ============================================================================
// Test Helpers
// ============================================================================

type testServer struct {
	handler  http.Handler
	reviews  *mocks.ReviewRepository
	cache    *mocks.StatsCache
	users    *mocks.UserRepository
	tokens   *mocks.RefreshTokenRepository
	bookings *mocks.BookingRepository
	jwt      *auth.JWTManager
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()
	ts := &testServer{
		reviews:  new(mocks.ReviewRepository),
		cache:    new(mocks.StatsCache),
		users:    new(mocks.UserRepository),
		tokens:   new(mocks.RefreshTokenRepository),
		bookings: new(mocks.BookingRepository),
		jwt:      auth.NewJWTManager("router-test-secret", 15*time.Minute, time.Hour),
	}

	producer := event.NewProducer(nil, logger)
	reg := prometheus.NewRegistry()
	httpMetrics, err := middleware.NewHTTPMetrics(reg, "review-api")
	require.NoError(t, err)

	ts.handler = NewRouter(Services{
		Reviews:  service.NewReviewService(ts.reviews, ts.cache, producer, service.NewMetrics(reg), service.ReviewOptions{}, logger),
		Users:    service.NewUserService(ts.users, ts.tokens, ts.jwt, logger),
		Bookings: service.NewBookingService(ts.bookings, producer, logger),
		Health:   health.NewHandler(),
		Tokens:   ts.jwt.Validator(),
	}, RouterConfig{
		ServiceName:  "review-api",
		CORS:         middleware.DefaultCORSConfig("http://localhost:3000"),
		Metrics:      httpMetrics,
		Gatherer:     reg,
		PublicMaxAge: time.Minute,
	}, logger)
	return ts
}

func (ts *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := ts.jwt.GenerateAccessToken(userID, "someone@example.com", role)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func approved(id int64, userID string) domain.Review {
	return domain.Review{
		ID:         id,
		UserID:     userID,
		AuthorName: "Lan",
		Rating:     5,
		Comment:    "Wonderful colour work, thank you",
		Status:     domain.StatusApproved,
		CreatedAt:  time.Now().UTC(),
	}
}

// ============================================================================
// Operations
// ============================================================================

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.do(t, http.MethodGet, "/health/ready", "", nil)
	rec = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

// ============================================================================
// Comments
// ============================================================================

func TestStats_PublicAndCacheable(t *testing.T) {
	ts := newTestServer(t)
	ts.cache.On("Get", mock.Anything).Return(&domain.RatingStatistics{TotalReviews: 3, AverageRating: 4.7}, int64(0), nil)

	rec := ts.do(t, http.MethodGet, "/api/comments/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	var body struct {
		Success bool                    `json:"success"`
		Data    domain.RatingStatistics `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 3, body.Data.TotalReviews)
	assert.Equal(t, 4.7, body.Data.AverageRating)
}

func TestList_Pagination(t *testing.T) {
	ts := newTestServer(t)
	ts.reviews.On("List", mock.Anything, mock.MatchedBy(func(f repository.ReviewFilter) bool {
		return f.Status == domain.StatusApproved && f.Limit == 1 && f.Offset == 1 && f.Sort == repository.SortRating
	})).Return([]domain.Review{approved(2, customerID)}, 3, nil)
	ts.reviews.On("RepliesFor", mock.Anything, []int64{2}).Return(map[int64][]domain.Reply{}, nil)

	rec := ts.do(t, http.MethodGet, "/api/comments?page=2&limit=1&sort=rating", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 3, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.Pages)
}

func TestFilteredListings_InvalidInput(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path    string
		message string
	}{
		{"/api/comments/by-rating?rating=9", "Valid rating (1-5) required"},
		{"/api/comments/by-rating", "Valid rating (1-5) required"},
		{"/api/comments/search?query=", "Search query required"},
	}
	for _, tt := range tests {
		rec := ts.do(t, http.MethodGet, tt.path, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.path)
		assert.Equal(t, tt.message, decodeResponse(t, rec).Message, tt.path)
	}
}

func TestCreateComment_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/comments", "", map[string]any{"rating": 5, "comment": "Lovely visit overall"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	ts.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateComment_Success(t *testing.T) {
	ts := newTestServer(t)
	ts.reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.UserID == customerID
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Review).ID = 10
	}).Return(nil)
	pending := approved(10, customerID)
	pending.Status = domain.StatusPending
	ts.reviews.On("GetByID", mock.Anything, int64(10)).Return(&pending, nil)

	rec := ts.do(t, http.MethodPost, "/api/comments", ts.token(t, customerID, domain.RoleCustomer),
		map[string]any{"rating": 5, "comment": "Lovely visit overall"})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Comment submitted for moderation", resp.Message)
}

func TestCreateComment_Duplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.reviews.On("Create", mock.Anything, mock.Anything).Return(apperrors.ErrDuplicate)

	rec := ts.do(t, http.MethodPost, "/api/comments", ts.token(t, customerID, domain.RoleCustomer),
		map[string]any{"rating": 4, "comment": "Trying to review twice"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "DUPLICATE", resp.Code)
	assert.Equal(t, "You have already submitted a review", resp.Message)
}

func TestCreateComment_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/comments", ts.token(t, customerID, domain.RoleCustomer),
		map[string]any{"rating": 7, "comment": "short"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Contains(t, resp.Errors, "rating")
	assert.Contains(t, resp.Errors, "comment")
}

func TestCreateComment_RejectsNonJSON(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/comments", bytes.NewReader([]byte("rating=5")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+ts.token(t, customerID, domain.RoleCustomer))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestGetComment_PendingHiddenFromAnonymous(t *testing.T) {
	ts := newTestServer(t)
	pending := approved(12, customerID)
	pending.Status = domain.StatusPending
	ts.reviews.On("GetByID", mock.Anything, int64(12)).Return(&pending, nil)
	ts.reviews.On("RepliesFor", mock.Anything, []int64{12}).Return(map[int64][]domain.Reply{}, nil)

	rec := ts.do(t, http.MethodGet, "/api/comments/12", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/comments/12", ts.token(t, customerID, domain.RoleCustomer), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMarkHelpful(t *testing.T) {
	ts := newTestServer(t)
	ts.reviews.On("IncrementHelpful", mock.Anything, int64(3)).Return(6, nil)
	ts.reviews.On("IncrementHelpful", mock.Anything, int64(404)).Return(0, apperrors.ErrNotFound)
	ts.cache.On("Invalidate", mock.Anything).Return(nil)

	rec := ts.do(t, http.MethodPost, "/api/comments/3/helpful", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Message string          `json:"message"`
		Data    HelpfulResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Marked as helpful", body.Message)
	assert.Equal(t, 6, body.Data.Helpful)

	rec = ts.do(t, http.MethodPost, "/api/comments/404/helpful", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/comments/abc/helpful", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decodeResponse(t, rec).Code)
}

func TestReply_UnknownComment(t *testing.T) {
	ts := newTestServer(t)
	ts.reviews.On("CreateReply", mock.Anything, mock.Anything).Return(apperrors.ErrNotFound)

	rec := ts.do(t, http.MethodPost, "/api/comments/99/reply", ts.token(t, customerID, domain.RoleCustomer),
		map[string]string{"reply": "Same here!"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModerate(t *testing.T) {
	ts := newTestServer(t)
	ts.reviews.On("SetStatus", mock.Anything, int64(5), domain.StatusApproved).Return(nil)
	ts.reviews.On("RecordAudit", mock.Anything, mock.Anything).Return(nil)
	ts.cache.On("Invalidate", mock.Anything).Return(nil)

	body := map[string]string{"status": "approved"}

	rec := ts.do(t, http.MethodPatch, "/api/comments/5/moderate", ts.token(t, customerID, domain.RoleCustomer), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/comments/5/moderate", ts.token(t, adminID, domain.RoleAdmin), body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Review approved successfully", decodeResponse(t, rec).Message)

	rec = ts.do(t, http.MethodPatch, "/api/comments/5/moderate", ts.token(t, adminID, domain.RoleAdmin), map[string]string{"status": "deleted"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATUS", decodeResponse(t, rec).Code)
}

func TestPendingQueue_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.reviews.On("List", mock.Anything, mock.MatchedBy(func(f repository.ReviewFilter) bool {
		return f.Status == domain.StatusPending && f.Sort == repository.SortCreatedAt && !f.Ascending
	})).Return([]domain.Review{}, 0, nil)

	rec := ts.do(t, http.MethodGet, "/api/comments/admin/pending", ts.token(t, customerID, domain.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/comments/admin/pending", ts.token(t, adminID, domain.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestDeleteComment_Forbidden(t *testing.T) {
	ts := newTestServer(t)
	review := approved(8, adminID)
	ts.reviews.On("GetByID", mock.Anything, int64(8)).Return(&review, nil)

	rec := ts.do(t, http.MethodDelete, "/api/comments/8", ts.token(t, customerID, domain.RoleCustomer), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to delete this comment", decodeResponse(t, rec).Message)
}

// ============================================================================
// Auth, users and bookings
// ============================================================================

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "whatever1A"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "invalid email or password", decodeResponse(t, rec).Message)
}

func TestProfile_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/users/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetVerified_Admin(t *testing.T) {
	ts := newTestServer(t)
	ts.users.On("SetVerified", mock.Anything, customerID, true).Return(nil)

	path := "/api/users/" + customerID + "/verified"
	rec := ts.do(t, http.MethodPatch, path, ts.token(t, adminID, domain.RoleAdmin), map[string]bool{"verified": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPatch, path, ts.token(t, adminID, domain.RoleAdmin), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.users.AssertNumberOfCalls(t, "SetVerified", 1)
}

func TestCreateBooking_Anonymous(t *testing.T) {
	ts := newTestServer(t)
	ts.bookings.On("Create", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool { return b.UserID == "" })).Return(nil)

	rec := ts.do(t, http.MethodPost, "/api/bookings", "", map[string]string{
		"name":         "Mai Tran",
		"phone":        "0912 345 678",
		"service":      "Haircut",
		"booking_date": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Booking created successfully", decodeResponse(t, rec).Message)
}

func TestCancelBooking_NotOwner(t *testing.T) {
	ts := newTestServer(t)
	bookingID := "3f1c2b4a-5d6e-4f70-8a9b-0c1d2e3f4a5b"
	ts.bookings.On("GetByID", mock.Anything, bookingID).Return(&domain.Booking{ID: bookingID, UserID: adminID}, nil)

	rec := ts.do(t, http.MethodDelete, "/api/bookings/"+bookingID, ts.token(t, customerID, domain.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	ts.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
