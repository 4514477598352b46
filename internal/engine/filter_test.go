package engine

import (
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func numbers(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 1; i <= n; i++ {
			if !yield(i) {
				return
			}
		}
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		page     int
		size     int
		want     []int
		wantMore bool
	}{
		{"first page", 12, 1, 5, []int{1, 2, 3, 4, 5}, true},
		{"middle page", 12, 2, 5, []int{6, 7, 8, 9, 10}, true},
		{"last partial page", 12, 3, 5, []int{11, 12}, false},
		{"exact fit has no more", 10, 2, 5, []int{6, 7, 8, 9, 10}, false},
		{"past the end", 12, 4, 5, []int{}, false},
		{"empty first page", 0, 1, 5, []int{}, false},
		{"page below one", 3, 0, 2, []int{1, 2}, true},
		{"default size", 7, 1, 0, []int{1, 2, 3, 4, 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(numbers(tt.total), tt.page, tt.size)
			assert.Equal(t, tt.want, p.Items)
			assert.Equal(t, tt.wantMore, p.HasMore)
			assert.LessOrEqual(t, len(p.Items), p.PageSize)
		})
	}
}

func TestPaginate_PagesConcatenateToSequence(t *testing.T) {
	for _, size := range []int{1, 2, 3, 5, 7, 20} {
		var all []int
		for page := 1; ; page++ {
			p := Paginate(numbers(17), page, size)
			all = append(all, p.Items...)
			if !p.HasMore {
				break
			}
		}
		assert.Equal(t, slices.Collect(numbers(17)), all, "size %d", size)
	}
}

func TestPaginate_StopsPullingAfterPage(t *testing.T) {
	pulled := 0
	seq := func(yield func(int) bool) {
		for i := 0; i < 1000; i++ {
			pulled++
			if !yield(i) {
				return
			}
		}
	}

	Paginate(seq, 2, 5)
	assert.Equal(t, 11, pulled)
}
