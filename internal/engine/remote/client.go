// Package remote talks to the review API for server-side statistics,
// featured reviews and submissions.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
	"github.com/JLTC3111/Quyenhair/pkg/httpclient"
)

const serviceName = "review-api"

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the review API. It has no timeout of its own beyond the
// transport's; callers bound calls through ctx.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// New returns a client for the API rooted at baseURL.
func New(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{http: doer, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// NewWithBreaker builds the retrying, circuit-broken transport and returns a
// client over it.
func NewWithBreaker(baseURL string, httpCfg httpclient.Config, cbCfg httpclient.CircuitBreakerConfig, logger *slog.Logger) *Client {
	cb := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, logger)
	return New(cb, baseURL, logger)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Stats fetches the approved-review statistics.
func (c *Client) Stats(ctx context.Context) (domain.RatingStatistics, error) {
	var stats domain.RatingStatistics
	err := c.do(ctx, http.MethodGet, "/api/comments/stats", nil, "", nil, &stats)
	return stats, err
}

// Featured fetches up to limit featured five-star reviews.
func (c *Client) Featured(ctx context.Context, limit int) ([]domain.Review, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var reviews []domain.Review
	err := c.do(ctx, http.MethodGet, "/api/comments/featured", q, "", nil, &reviews)
	return reviews, err
}

// Recent fetches up to limit reviews from the last days days.
func (c *Client) Recent(ctx context.Context, limit, days int) ([]domain.Review, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var reviews []domain.Review
	err := c.do(ctx, http.MethodGet, "/api/comments/recent", q, "", nil, &reviews)
	return reviews, err
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Tokens domain.TokenPair `json:"tokens"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, "", body, &resp)
	return resp.Tokens, err
}

// Submit creates a review on behalf of the user owning accessToken.
func (c *Client) Submit(ctx context.Context, accessToken string, rating int, comment string) (domain.Review, error) {
	if accessToken == "" {
		return domain.Review{}, apperrors.Unauthorized("an access token is required to submit reviews")
	}
	body := map[string]any{"rating": rating, "comment": comment}
	var review domain.Review
	err := c.do(ctx, http.MethodPost, "/api/comments", nil, accessToken, body, &review)
	if err == nil {
		c.logger.InfoContext(ctx, "review submitted to server",
			slog.Int64("review_id", review.ID),
			slog.String("status", string(review.Status)),
		)
	}
	return review, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	var (
		req *http.Request
		err error
	)
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, http.NoBody)
	}
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return apperrors.Unavailable("review api is temporarily unavailable", err)
		}
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if !env.Success {
		return fmt.Errorf("%s %s: unsuccessful response: %s", method, path, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}
