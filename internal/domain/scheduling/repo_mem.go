package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/store"
)

type memoryRepo struct {
	coll *store.Collection[*Appointment]
}

// NewMemoryRepository creates an in-memory appointment repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{coll: store.NewCollection[*Appointment]("appointment")}
}

func (r *memoryRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := r.coll.Insert(a); err != nil {
		return err
	}
	a.VersionID = 1
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	return r.coll.Get(id)
}

func (r *memoryRepo) Update(_ context.Context, a *Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	return r.coll.Update(a)
}

func (r *memoryRepo) Search(_ context.Context, p SearchParams) ([]*Appointment, int, error) {
	q := store.Query[*Appointment]{
		Filters:    searchPredicates(p),
		Less:       sortComparator(p.SortBy),
		Descending: p.Descending,
		Page:       p.Page,
		PageSize:   p.PageSize,
	}
	items, total := r.coll.Search(q)
	return items, total, nil
}

func (r *memoryRepo) ListActiveByProviderOnDay(_ context.Context, providerID uuid.UUID, day time.Time) ([]*Appointment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	return r.coll.All(
		func(a *Appointment) bool { return a.ProviderID == providerID },
		func(a *Appointment) bool { return a.Active() },
		func(a *Appointment) bool { return !a.Start.Before(dayStart) && a.Start.Before(dayEnd) },
	), nil
}

func searchPredicates(p SearchParams) []store.Predicate[*Appointment] {
	var preds []store.Predicate[*Appointment]
	if len(p.Statuses) > 0 {
		set := make(map[Status]bool, len(p.Statuses))
		for _, s := range p.Statuses {
			set[s] = true
		}
		preds = append(preds, func(a *Appointment) bool { return set[a.Status] })
	}
	if p.PatientID != uuid.Nil {
		preds = append(preds, func(a *Appointment) bool { return a.PatientID == p.PatientID })
	}
	if p.ProviderID != uuid.Nil {
		preds = append(preds, func(a *Appointment) bool { return a.ProviderID == p.ProviderID })
	}
	if p.From != nil {
		preds = append(preds, func(a *Appointment) bool { return !a.Start.Before(*p.From) })
	}
	if p.To != nil {
		preds = append(preds, func(a *Appointment) bool { return a.Start.Before(*p.To) })
	}
	if p.Text != "" {
		needle := strings.ToLower(p.Text)
		preds = append(preds, func(a *Appointment) bool {
			return strings.Contains(strings.ToLower(a.Reason), needle) ||
				strings.Contains(strings.ToLower(a.PatientName), needle) ||
				strings.Contains(strings.ToLower(a.ProviderName), needle)
		})
	}
	return preds
}

func sortComparator(sortBy string) func(a, b *Appointment) bool {
	switch sortBy {
	case "created_at":
		return func(a, b *Appointment) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "status":
		return func(a, b *Appointment) bool { return a.Status < b.Status }
	default: // "start"
		return func(a, b *Appointment) bool { return a.Start.Before(b.Start) }
	}
}
