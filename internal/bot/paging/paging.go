// Package paging slices ordered lists into fixed-size pages.
package paging

// DefaultSize is the number of files delivered per page.
const DefaultSize = 10

// Page is one window over a list. Number is 1-based and always within
// [1, TotalPages]; TotalPages is at least 1 even for an empty list.
type Page[T any] struct {
	Items      []T
	Number     int
	TotalPages int
	Total      int

	// Start and End are the 0-based half-open bounds of Items in the list.
	Start int
	End   int
}

// Paginate returns the requested page of items. Out-of-range page numbers are
// clamped and size < 1 is treated as 1. The returned Items alias items.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size < 1 {
		size = 1
	}

	n := len(items)
	total := (n + size - 1) / size
	if total < 1 {
		total = 1
	}

	switch {
	case page < 1:
		page = 1
	case page > total:
		page = total
	}

	start := (page - 1) * size
	end := min(page*size, n)
	if start > n {
		start = n
	}

	return Page[T]{
		Items:      items[start:end],
		Number:     page,
		TotalPages: total,
		Total:      n,
		Start:      start,
		End:        end,
	}
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }

func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

// Ordinal returns the 1-based position in the whole list of the i-th item on
// this page.
func (p Page[T]) Ordinal(i int) int { return p.Start + i + 1 }
