package store

const (
	// DefaultPageSize applies when a query does not set one.
	DefaultPageSize = 20
	// MaxPageSize caps the page size of any single query.
	MaxPageSize = 100
)

// Predicate filters entities; predicates compose conjunctively.
type Predicate[T any] func(T) bool

// Query describes a filtered, sorted, paged read over a collection.
type Query[T any] struct {
	Filters    []Predicate[T]
	Less       func(a, b T) bool
	Descending bool
	Page       int // 1-based; values < 1 mean page 1
	PageSize   int // values < 1 mean DefaultPageSize
}

func matchesAll[T any](item T, preds []Predicate[T]) bool {
	for _, p := range preds {
		if p != nil && !p(item) {
			return false
		}
	}
	return true
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}
