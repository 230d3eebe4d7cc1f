package encounter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchParams filter and order an encounter search. Filters compose
// conjunctively; zero values mean "any".
type SearchParams struct {
	Statuses   []Status
	Class      Class
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	From       *time.Time
	To         *time.Time
	Text       string // matched against chief complaint and name snapshots

	SortBy     string // "start_time", "created_at", "status"
	Descending bool
	Page       int
	PageSize   int
}

type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	Get(ctx context.Context, id uuid.UUID) (*Encounter, error)
	// Update applies an optimistic write: the encounter's version must
	// match the stored one or the write fails with Conflict.
	Update(ctx context.Context, e *Encounter) error
	Search(ctx context.Context, p SearchParams) ([]*Encounter, int, error)
}
