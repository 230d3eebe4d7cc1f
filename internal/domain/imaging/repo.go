package imaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchParams filter and order an imaging order search. Filters compose
// conjunctively; zero values mean "any".
type SearchParams struct {
	Statuses   []Status
	Modality   string
	Priority   Priority
	PatientID  uuid.UUID
	ProviderID uuid.UUID // matches the ordering provider
	From       *time.Time
	To         *time.Time
	Text       string // matched against procedure, body region, accession number

	// AwaitingCriticalAck restricts results to orders with a critical
	// finding nobody has acknowledged yet.
	AwaitingCriticalAck bool

	SortBy     string // "ordered_date", "priority", "status"
	Descending bool
	Page       int
	PageSize   int
}

type Repository interface {
	Create(ctx context.Context, o *ImagingOrder) error
	Get(ctx context.Context, id uuid.UUID) (*ImagingOrder, error)
	// Update applies an optimistic write: the order's version must match
	// the stored one or the write fails with Conflict.
	Update(ctx context.Context, o *ImagingOrder) error
	Search(ctx context.Context, p SearchParams) ([]*ImagingOrder, int, error)
	// NextAccessionNumber reserves the next number in the accession
	// sequence.
	NextAccessionNumber(ctx context.Context) (string, error)
}
