// Package sandbox generates synthetic demo data for development
// environments: a populated directory plus realistic appointments,
// encounters and imaging orders.
package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/encounter"
	"github.com/careflow/careflow/internal/domain/imaging"
	"github.com/careflow/careflow/internal/domain/scheduling"
	"github.com/careflow/careflow/internal/platform/apperror"
	"github.com/careflow/careflow/internal/platform/directory"
)

// SeedConfig controls the volume of generated data.
type SeedConfig struct {
	Patients      int
	Providers     int
	Appointments  int
	Encounters    int
	ImagingOrders int
	Seed          uint64
}

// DefaultSeedConfig returns a config sized for local development.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Patients:      50,
		Providers:     8,
		Appointments:  120,
		Encounters:    40,
		ImagingOrders: 25,
	}
}

// Seeder populates the engine with synthetic clinical data.
type Seeder struct {
	dir      *directory.InMemory
	appts    *scheduling.Service
	encs     *encounter.Service
	orders   *imaging.Service
	facility uuid.UUID
	logger   zerolog.Logger
}

// NewSeeder creates a Seeder over the given services.
func NewSeeder(dir *directory.InMemory, appts *scheduling.Service, encs *encounter.Service, orders *imaging.Service, logger zerolog.Logger) *Seeder {
	return &Seeder{
		dir:      dir,
		appts:    appts,
		encs:     encs,
		orders:   orders,
		facility: uuid.New(),
		logger:   logger,
	}
}

var visitReasons = []string{
	"annual physical", "follow-up visit", "new patient consult",
	"medication review", "back pain", "persistent cough",
	"hypertension follow-up", "skin rash", "headache", "knee pain",
}

var imagingProcedures = []struct {
	modality, code, description, region string
}{
	{"CT", "71260", "CT chest with contrast", "chest"},
	{"CT", "70450", "CT head without contrast", "head"},
	{"MR", "72148", "MRI lumbar spine without contrast", "spine"},
	{"XR", "71046", "Chest x-ray 2 views", "chest"},
	{"XR", "73562", "Knee x-ray 3 views", "knee"},
	{"US", "76700", "Abdominal ultrasound complete", "abdomen"},
	{"MG", "77067", "Screening mammography bilateral", "breast"},
}

// Run generates and stores the full demo data set.
func (s *Seeder) Run(ctx context.Context, cfg SeedConfig) error {
	faker := gofakeit.New(cfg.Seed)

	patients := make([]uuid.UUID, 0, cfg.Patients)
	for i := 0; i < cfg.Patients; i++ {
		p := directory.Person{ID: uuid.New(), Name: faker.Name()}
		s.dir.AddPatient(p)
		patients = append(patients, p.ID)
	}

	providers := make([]uuid.UUID, 0, cfg.Providers)
	for i := 0; i < cfg.Providers; i++ {
		p := directory.Person{
			ID:   uuid.New(),
			Name: fmt.Sprintf("Dr. %s %s", faker.FirstName(), faker.LastName()),
		}
		s.dir.AddProvider(p)
		providers = append(providers, p.ID)
	}

	pick := func(ids []uuid.UUID) uuid.UUID { return ids[faker.Number(0, len(ids)-1)] }

	if err := s.seedAppointments(ctx, faker, cfg.Appointments, patients, providers); err != nil {
		return fmt.Errorf("seed appointments: %w", err)
	}
	if err := s.seedEncounters(ctx, faker, cfg.Encounters, patients, providers, pick); err != nil {
		return fmt.Errorf("seed encounters: %w", err)
	}
	if err := s.seedImagingOrders(ctx, faker, cfg.ImagingOrders, patients, providers, pick); err != nil {
		return fmt.Errorf("seed imaging orders: %w", err)
	}

	s.logger.Info().
		Int("patients", cfg.Patients).
		Int("providers", cfg.Providers).
		Int("appointments", cfg.Appointments).
		Int("encounters", cfg.Encounters).
		Int("imaging_orders", cfg.ImagingOrders).
		Msg("sandbox data seeded")
	return nil
}

func (s *Seeder) seedAppointments(ctx context.Context, faker *gofakeit.Faker, count int, patients, providers []uuid.UUID) error {
	durations := []int{15, 30, 45, 60}
	for created, attempts := 0, 0; created < count; {
		attempts++
		if attempts > count*50 {
			return fmt.Errorf("provider calendars full after %d attempts", attempts)
		}
		// Spread over the next two weeks of working mornings/afternoons.
		day := time.Now().UTC().AddDate(0, 0, faker.Number(0, 13))
		hour := []int{8, 9, 10, 11, 13, 14, 15, 16}[faker.Number(0, 7)]
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)

		a, err := s.appts.Create(ctx, scheduling.CreateInput{
			PatientID:       patients[faker.Number(0, len(patients)-1)],
			ProviderID:      providers[faker.Number(0, len(providers)-1)],
			FacilityID:      s.facility,
			Reason:          visitReasons[faker.Number(0, len(visitReasons)-1)],
			Start:           start,
			DurationMinutes: durations[faker.Number(0, 3)],
			Status:          scheduling.StatusPending,
		})
		if apperror.IsConflict(err) {
			// Slot already taken, roll another one.
			continue
		}
		if err != nil {
			return err
		}
		created++
		if faker.Bool() {
			if _, err := s.appts.Confirm(ctx, a.ID, "seed"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedEncounters(ctx context.Context, faker *gofakeit.Faker, count int, patients, providers []uuid.UUID, pick func([]uuid.UUID) uuid.UUID) error {
	classes := []encounter.Class{
		encounter.ClassAmbulatory, encounter.ClassAmbulatory,
		encounter.ClassVirtual, encounter.ClassEmergency,
	}
	for i := 0; i < count; i++ {
		e, err := s.encs.Create(ctx, encounter.CreateInput{
			PatientID:      pick(patients),
			ProviderID:     pick(providers),
			Class:          classes[faker.Number(0, len(classes)-1)],
			ChiefComplaint: visitReasons[faker.Number(0, len(visitReasons)-1)],
			StartTime:      time.Now().UTC().Add(-time.Duration(faker.Number(0, 72)) * time.Hour),
		})
		if err != nil {
			return err
		}
		// Walk a third of them into active or signed states.
		switch faker.Number(0, 2) {
		case 1:
			if _, err := s.encs.Start(ctx, e.ID); err != nil {
				return err
			}
		case 2:
			if _, err := s.encs.Start(ctx, e.ID); err != nil {
				return err
			}
			if _, err := s.encs.ApplyTemplate(ctx, e.ID, "annual-physical"); err != nil {
				return err
			}
			provider, err := s.dir.Provider(e.ProviderID)
			if err != nil {
				return err
			}
			if _, err := s.encs.Sign(ctx, e.ID, provider.Name, "Reviewed and signed."); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedImagingOrders(ctx context.Context, faker *gofakeit.Faker, count int, patients, providers []uuid.UUID, pick func([]uuid.UUID) uuid.UUID) error {
	priorities := []imaging.Priority{
		imaging.PriorityRoutine, imaging.PriorityRoutine,
		imaging.PriorityUrgent, imaging.PriorityStat,
	}
	for i := 0; i < count; i++ {
		proc := imagingProcedures[faker.Number(0, len(imagingProcedures)-1)]
		o, err := s.orders.Create(ctx, imaging.CreateInput{
			PatientID:            pick(patients),
			OrderingProviderID:   pick(providers),
			Modality:             proc.modality,
			ProcedureCode:        proc.code,
			ProcedureDescription: proc.description,
			BodyRegion:           proc.region,
			Priority:             priorities[faker.Number(0, len(priorities)-1)],
			RequiresContrast:     proc.modality == "CT" && faker.Bool(),
			ClinicalIndication:   faker.Sentence(6),
		})
		if err != nil {
			return err
		}
		// Walk some through the study and reporting pipeline.
		if faker.Number(0, 2) == 0 {
			continue
		}
		if _, err := s.orders.Schedule(ctx, o.ID, time.Now().UTC().AddDate(0, 0, faker.Number(1, 7)), s.facility); err != nil {
			return err
		}
		if faker.Bool() {
			continue
		}
		if _, err := s.orders.Start(ctx, o.ID); err != nil {
			return err
		}
		if _, err := s.orders.Complete(ctx, o.ID); err != nil {
			return err
		}
		if _, err := s.orders.SubmitReport(ctx, o.ID, "Dr. "+faker.LastName(), imaging.ReportInput{
			Findings:            faker.Sentence(12),
			Impression:          faker.Sentence(8),
			HasCriticalFindings: faker.Number(0, 9) == 0,
			Final:               faker.Bool(),
		}); err != nil {
			return err
		}
	}
	return nil
}
