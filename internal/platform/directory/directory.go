// Package directory supplies display details for patients and providers.
// The engine consumes it only at creation time to denormalize name/photo
// snapshots onto new records; it never joins against it at read time.
package directory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperror"
)

// Person is a directory entry snapshot.
type Person struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	PhotoURL string    `json:"photo_url,omitempty"`
}

// Directory resolves patient and provider display details.
type Directory interface {
	Patient(id uuid.UUID) (Person, error)
	Provider(id uuid.UUID) (Person, error)
}

// InMemory is a map-backed Directory.
type InMemory struct {
	mu        sync.RWMutex
	patients  map[uuid.UUID]Person
	providers map[uuid.UUID]Person
}

// NewInMemory creates an empty directory.
func NewInMemory() *InMemory {
	return &InMemory{
		patients:  make(map[uuid.UUID]Person),
		providers: make(map[uuid.UUID]Person),
	}
}

// AddPatient registers a patient entry.
func (d *InMemory) AddPatient(p Person) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patients[p.ID] = p
}

// AddProvider registers a provider entry.
func (d *InMemory) AddProvider(p Person) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.providers[p.ID] = p
}

// Patient returns the patient entry for id.
func (d *InMemory) Patient(id uuid.UUID) (Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.patients[id]
	if !ok {
		return Person{}, apperror.NotFound("patient %s not found in directory", id)
	}
	return p, nil
}

// Provider returns the provider entry for id.
func (d *InMemory) Provider(id uuid.UUID) (Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.providers[id]
	if !ok {
		return Person{}, apperror.NotFound("provider %s not found in directory", id)
	}
	return p, nil
}

// Patients returns all patient entries.
func (d *InMemory) Patients() []Person {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Person, 0, len(d.patients))
	for _, p := range d.patients {
		out = append(out, p)
	}
	return out
}

// Providers returns all provider entries.
func (d *InMemory) Providers() []Person {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Person, 0, len(d.providers))
	for _, p := range d.providers {
		out = append(out, p)
	}
	return out
}
