package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns the first page with the default limit.
func DefaultParams() Params {
	return Params{Page: 1, Limit: DefaultLimit}
}

// New builds Params from raw values, falling back to defaults for anything
// out of range.
func New(page, limit int) Params {
	p := DefaultParams()
	if page > 0 {
		p.Page = page
	}
	if limit > 0 && limit <= MaxLimit {
		p.Limit = limit
	}
	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// FromRequest extracts ?page= and ?limit= from an HTTP request.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return New(page, limit)
}

// Meta is the pagination block returned alongside a page of results.
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewMeta computes the page count for total items under params.
func NewMeta(total int, params Params) Meta {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	return Meta{Page: params.Page, Limit: limit, Total: total, Pages: pages}
}

// Result wraps a page of items with its Meta.
type Result[T any] struct {
	Items []T
	Meta  Meta
}

// NewResult creates a paginated result. A nil slice is replaced with an empty
// one so it encodes as [].
func NewResult[T any](items []T, total int, params Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Meta: NewMeta(total, params)}
}
