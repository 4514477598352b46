package domain

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// StarCounts holds the number of reviews per star; index 0 is one star.
type StarCounts [MaxRating]int

// Add counts one review with the given rating. Out of range ratings are ignored.
func (c *StarCounts) Add(rating int) {
	if ValidRating(rating) {
		c[rating-1]++
	}
}

// Total returns the number of counted reviews.
func (c StarCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Mean returns the average rating, or 0 when nothing was counted.
func (c StarCounts) Mean() float64 {
	total, sum := 0, 0
	for i, v := range c {
		total += v
		sum += (i + 1) * v
	}
	if total == 0 {
		return 0
	}
	return float64(sum) / float64(total)
}

// StatsInput is the raw tally statistics are computed from. The engine fills
// it by scanning reviews; the server fills it from one aggregate query.
type StatsInput struct {
	Counts       StarCounts
	RecentCounts StarCounts
	Helpful      int
	Verified     int
}

// Add tallies one review. now anchors the recent window.
func (in *StatsInput) Add(r Review, now time.Time) {
	if !ValidRating(r.Rating) {
		return
	}
	in.Counts.Add(r.Rating)
	if r.IsRecent(now) {
		in.RecentCounts.Add(r.Rating)
	}
	if r.Verified {
		in.Verified++
	}
	in.Helpful += r.Helpful
}

// StarBucket is one row of the rating breakdown.
type StarBucket struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// RecentTrend summarises the reviews inside RecentWindow.
type RecentTrend struct {
	Last30Days    int     `json:"last_30_days"`
	RecentAverage float64 `json:"recent_average"`
}

// RatingStatistics is the derived view shown next to the review list.
type RatingStatistics struct {
	TotalReviews      int                `json:"total_reviews"`
	AverageRating     float64            `json:"average_rating"`
	RatingBreakdown   map[int]StarBucket `json:"rating_breakdown"`
	TotalHelpfulVotes int                `json:"total_helpful_votes"`
	RecentTrend       RecentTrend        `json:"recent_trend"`
	VerifiedReviews   int                `json:"verified_reviews"`
}

// NewRatingStatistics computes statistics from a tally. Means and percentages
// are rounded to one decimal and the percentages of a non-empty tally add up
// to exactly 100.0. Every field is zero when the tally is empty.
func NewRatingStatistics(in StatsInput) RatingStatistics {
	total := in.Counts.Total()
	stats := RatingStatistics{
		TotalReviews:    total,
		AverageRating:   Round1(in.Counts.Mean()),
		RatingBreakdown: make(map[int]StarBucket, MaxRating),
		RecentTrend: RecentTrend{
			Last30Days:    in.RecentCounts.Total(),
			RecentAverage: Round1(in.RecentCounts.Mean()),
		},
	}
	tenths := in.Counts.percentTenths()
	for star := MinRating; star <= MaxRating; star++ {
		stats.RatingBreakdown[star] = StarBucket{
			Count:      in.Counts[star-1],
			Percentage: float64(tenths[star-1]) / 10,
		}
	}
	if total > 0 {
		stats.TotalHelpfulVotes = in.Helpful
		stats.VerifiedReviews = in.Verified
	}
	return stats
}

// percentTenths splits 1000 tenths of a percent across the stars by the
// largest remainder method. Ties go to the higher star.
func (c StarCounts) percentTenths() [MaxRating]int {
	var out [MaxRating]int
	total := c.Total()
	if total == 0 {
		return out
	}
	rem := make([]int, MaxRating)
	left := 1000
	for i, n := range c {
		out[i] = n * 1000 / total
		left -= out[i]
		rem[i] = i
	}
	slices.SortStableFunc(rem, func(a, b int) int {
		if d := cmp.Compare(c[b]*1000%total, c[a]*1000%total); d != 0 {
			return d
		}
		return cmp.Compare(b, a)
	})
	for _, i := range rem[:left] {
		out[i]++
	}
	return out
}

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
