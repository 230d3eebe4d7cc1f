package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchParams filter and order an appointment search. Filters compose
// conjunctively; zero values mean "any".
type SearchParams struct {
	Statuses   []Status
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	From       *time.Time
	To         *time.Time
	Text       string // matched against reason and name snapshots

	SortBy     string // "start", "created_at", "status"
	Descending bool
	Page       int
	PageSize   int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Update applies an optimistic write: the appointment's version must
	// match the stored one or the write fails with Conflict.
	Update(ctx context.Context, a *Appointment) error
	Search(ctx context.Context, p SearchParams) ([]*Appointment, int, error)
	// ListActiveByProviderOnDay returns the provider's calendar-blocking
	// appointments starting on the given day, for slot computation.
	ListActiveByProviderOnDay(ctx context.Context, providerID uuid.UUID, day time.Time) ([]*Appointment, error)
}
