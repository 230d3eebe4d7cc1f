package imaging

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/store"
)

type memoryRepo struct {
	coll      *store.Collection[*ImagingOrder]
	accession atomic.Int64
}

// NewMemoryRepository creates an in-memory imaging order repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{coll: store.NewCollection[*ImagingOrder]("imaging_order")}
}

func (r *memoryRepo) Create(_ context.Context, o *ImagingOrder) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if err := r.coll.Insert(o); err != nil {
		return err
	}
	o.VersionID = 1
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*ImagingOrder, error) {
	return r.coll.Get(id)
}

func (r *memoryRepo) Update(_ context.Context, o *ImagingOrder) error {
	o.UpdatedAt = time.Now().UTC()
	return r.coll.Update(o)
}

func (r *memoryRepo) Search(_ context.Context, p SearchParams) ([]*ImagingOrder, int, error) {
	q := store.Query[*ImagingOrder]{
		Filters:    searchPredicates(p),
		Less:       sortComparator(p.SortBy),
		Descending: p.Descending,
		Page:       p.Page,
		PageSize:   p.PageSize,
	}
	items, total := r.coll.Search(q)
	return items, total, nil
}

func (r *memoryRepo) NextAccessionNumber(_ context.Context) (string, error) {
	return fmt.Sprintf("ACC%08d", r.accession.Add(1)), nil
}

// priorityRank orders stat before urgent before routine.
var priorityRank = map[Priority]int{
	PriorityStat:    0,
	PriorityUrgent:  1,
	PriorityRoutine: 2,
}

func searchPredicates(p SearchParams) []store.Predicate[*ImagingOrder] {
	var preds []store.Predicate[*ImagingOrder]
	if len(p.Statuses) > 0 {
		set := make(map[Status]bool, len(p.Statuses))
		for _, s := range p.Statuses {
			set[s] = true
		}
		preds = append(preds, func(o *ImagingOrder) bool { return set[o.Status] })
	}
	if p.Modality != "" {
		preds = append(preds, func(o *ImagingOrder) bool { return o.Modality == p.Modality })
	}
	if p.Priority != "" {
		preds = append(preds, func(o *ImagingOrder) bool { return o.Priority == p.Priority })
	}
	if p.PatientID != uuid.Nil {
		preds = append(preds, func(o *ImagingOrder) bool { return o.PatientID == p.PatientID })
	}
	if p.ProviderID != uuid.Nil {
		preds = append(preds, func(o *ImagingOrder) bool { return o.OrderingProviderID == p.ProviderID })
	}
	if p.From != nil {
		preds = append(preds, func(o *ImagingOrder) bool { return !o.OrderedDate.Before(*p.From) })
	}
	if p.To != nil {
		preds = append(preds, func(o *ImagingOrder) bool { return o.OrderedDate.Before(*p.To) })
	}
	if p.Text != "" {
		needle := strings.ToLower(p.Text)
		preds = append(preds, func(o *ImagingOrder) bool {
			return strings.Contains(strings.ToLower(o.ProcedureDescription), needle) ||
				strings.Contains(strings.ToLower(o.ProcedureCode), needle) ||
				strings.Contains(strings.ToLower(o.BodyRegion), needle) ||
				strings.Contains(strings.ToLower(o.AccessionNumber), needle)
		})
	}
	if p.AwaitingCriticalAck {
		preds = append(preds, func(o *ImagingOrder) bool { return o.AwaitingCriticalAck() })
	}
	return preds
}

func sortComparator(sortBy string) func(a, b *ImagingOrder) bool {
	switch sortBy {
	case "priority":
		return func(a, b *ImagingOrder) bool { return priorityRank[a.Priority] < priorityRank[b.Priority] }
	case "status":
		return func(a, b *ImagingOrder) bool { return a.Status < b.Status }
	default: // "ordered_date"
		return func(a, b *ImagingOrder) bool { return a.OrderedDate.Before(b.OrderedDate) }
	}
}
