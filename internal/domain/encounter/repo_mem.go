package encounter

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/store"
)

type memoryRepo struct {
	coll *store.Collection[*Encounter]
}

// NewMemoryRepository creates an in-memory encounter repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{coll: store.NewCollection[*Encounter]("encounter")}
}

func (r *memoryRepo) Create(_ context.Context, e *Encounter) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if err := r.coll.Insert(e); err != nil {
		return err
	}
	e.VersionID = 1
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Encounter, error) {
	return r.coll.Get(id)
}

func (r *memoryRepo) Update(_ context.Context, e *Encounter) error {
	e.UpdatedAt = time.Now().UTC()
	return r.coll.Update(e)
}

func (r *memoryRepo) Search(_ context.Context, p SearchParams) ([]*Encounter, int, error) {
	q := store.Query[*Encounter]{
		Filters:    searchPredicates(p),
		Less:       sortComparator(p.SortBy),
		Descending: p.Descending,
		Page:       p.Page,
		PageSize:   p.PageSize,
	}
	items, total := r.coll.Search(q)
	return items, total, nil
}

func searchPredicates(p SearchParams) []store.Predicate[*Encounter] {
	var preds []store.Predicate[*Encounter]
	if len(p.Statuses) > 0 {
		set := make(map[Status]bool, len(p.Statuses))
		for _, s := range p.Statuses {
			set[s] = true
		}
		preds = append(preds, func(e *Encounter) bool { return set[e.Status] })
	}
	if p.Class != "" {
		preds = append(preds, func(e *Encounter) bool { return e.Class == p.Class })
	}
	if p.PatientID != uuid.Nil {
		preds = append(preds, func(e *Encounter) bool { return e.PatientID == p.PatientID })
	}
	if p.ProviderID != uuid.Nil {
		preds = append(preds, func(e *Encounter) bool { return e.ProviderID == p.ProviderID })
	}
	if p.From != nil {
		preds = append(preds, func(e *Encounter) bool { return !e.StartTime.Before(*p.From) })
	}
	if p.To != nil {
		preds = append(preds, func(e *Encounter) bool { return e.StartTime.Before(*p.To) })
	}
	if p.Text != "" {
		needle := strings.ToLower(p.Text)
		preds = append(preds, func(e *Encounter) bool {
			return strings.Contains(strings.ToLower(e.ChiefComplaint), needle) ||
				strings.Contains(strings.ToLower(e.PatientName), needle) ||
				strings.Contains(strings.ToLower(e.ProviderName), needle)
		})
	}
	return preds
}

func sortComparator(sortBy string) func(a, b *Encounter) bool {
	switch sortBy {
	case "created_at":
		return func(a, b *Encounter) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "status":
		return func(a, b *Encounter) bool { return a.Status < b.Status }
	default: // "start_time"
		return func(a, b *Encounter) bool { return a.StartTime.Before(b.StartTime) }
	}
}
