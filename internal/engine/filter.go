package engine

import (
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/JLTC3111/Quyenhair/internal/domain"
)

// DefaultPageSize is used when a page size below 1 is requested.
const DefaultPageSize = 5

type criterionKind int

const (
	kindAll criterionKind = iota
	kindRating
	kindVerified
	kindRecent
)

// Criterion selects which reviews Filter yields.
type Criterion struct {
	kind   criterionKind
	rating int
}

// All matches every review.
func All() Criterion { return Criterion{kind: kindAll} }

// ByRating matches reviews with exactly the given rating.
func ByRating(rating int) Criterion { return Criterion{kind: kindRating, rating: rating} }

// VerifiedOnly matches reviews from verified authors.
func VerifiedOnly() Criterion { return Criterion{kind: kindVerified} }

// RecentOnly matches reviews created within domain.RecentWindow.
func RecentOnly() Criterion { return Criterion{kind: kindRecent} }

// ParseCriterion maps a filter name as shown in the review widget ("all",
// "verified", "recent" or a star count "1".."5") to a Criterion.
func ParseCriterion(s string) (Criterion, error) {
	switch s {
	case "", "all":
		return All(), nil
	case "verified":
		return VerifiedOnly(), nil
	case "recent":
		return RecentOnly(), nil
	}
	rating, err := strconv.Atoi(s)
	if err != nil || !domain.ValidRating(rating) {
		return Criterion{}, &ValidationError{Field: "filter", Message: fmt.Sprintf("unknown filter %q", s)}
	}
	return ByRating(rating), nil
}

func (c Criterion) String() string {
	switch c.kind {
	case kindRating:
		return strconv.Itoa(c.rating)
	case kindVerified:
		return "verified"
	case kindRecent:
		return "recent"
	default:
		return "all"
	}
}

func (c Criterion) match(r *domain.Review, now time.Time) bool {
	switch c.kind {
	case kindRating:
		return r.Rating == c.rating
	case kindVerified:
		return r.Verified
	case kindRecent:
		return r.IsRecent(now)
	default:
		return true
	}
}

// Page is one slice of a filtered sequence.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// Paginate returns items [(page-1)*pageSize, page*pageSize) of seq. It stops
// pulling from seq after one item past the page, which is how HasMore is
// known. An empty first page means there is nothing to show; an empty later
// page means the caller went past the end.
func Paginate[T any](seq iter.Seq[T], page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	result := Page[T]{Items: []T{}, Page: page, PageSize: pageSize}
	start := (page - 1) * pageSize

	i := 0
	for item := range seq {
		switch {
		case i < start:
		case len(result.Items) < pageSize:
			result.Items = append(result.Items, item)
		default:
			result.HasMore = true
			return result
		}
		i++
	}
	return result
}
