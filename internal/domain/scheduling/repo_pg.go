package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/apperror"
)

type pgRepo struct{ pool *pgxpool.Pool }

// NewPGRepository creates a Postgres-backed appointment repository.
func NewPGRepository(pool *pgxpool.Pool) Repository { return &pgRepo{pool: pool} }

const apptCols = `id, status, patient_id, provider_id, facility_id, room_id,
	patient_name, provider_name, reason, start_time, end_time, duration_minutes,
	recurrence, reminder_sent, reminder_sent_at, confirmed_at, confirmed_by,
	arrived_at, checked_in_at, checked_in_by, no_show_at,
	cancelled_at, cancelled_by, cancellation_reason,
	version_id, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var recurrence []byte
	err := row.Scan(&a.ID, &a.Status, &a.PatientID, &a.ProviderID, &a.FacilityID, &a.RoomID,
		&a.PatientName, &a.ProviderName, &a.Reason, &a.Start, &a.End, &a.DurationMinutes,
		&recurrence, &a.ReminderSent, &a.ReminderSentAt, &a.ConfirmedAt, &a.ConfirmedBy,
		&a.ArrivedAt, &a.CheckedInAt, &a.CheckedInBy, &a.NoShowAt,
		&a.CancelledAt, &a.CancelledBy, &a.CancellationReason,
		&a.VersionID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(recurrence) > 0 {
		if err := json.Unmarshal(recurrence, &a.Recurrence); err != nil {
			return nil, fmt.Errorf("decode recurrence: %w", err)
		}
	}
	return &a, nil
}

func (r *pgRepo) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.VersionID = 1

	var recurrence []byte
	if a.Recurrence != nil {
		var err error
		recurrence, err = json.Marshal(a.Recurrence)
		if err != nil {
			return fmt.Errorf("encode recurrence: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment (`+apptCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		a.ID, a.Status, a.PatientID, a.ProviderID, a.FacilityID, a.RoomID,
		a.PatientName, a.ProviderName, a.Reason, a.Start, a.End, a.DurationMinutes,
		recurrence, a.ReminderSent, a.ReminderSentAt, a.ConfirmedAt, a.ConfirmedBy,
		a.ArrivedAt, a.CheckedInAt, a.CheckedInBy, a.NoShowAt,
		a.CancelledAt, a.CancelledBy, a.CancellationReason,
		a.VersionID, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *pgRepo) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("appointment %s not found", id)
	}
	return a, err
}

func (r *pgRepo) Update(ctx context.Context, a *Appointment) error {
	var recurrence []byte
	if a.Recurrence != nil {
		var err error
		recurrence, err = json.Marshal(a.Recurrence)
		if err != nil {
			return fmt.Errorf("encode recurrence: %w", err)
		}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE appointment SET
			status=$3, room_id=$4, reason=$5, start_time=$6, end_time=$7,
			duration_minutes=$8, recurrence=$9, reminder_sent=$10, reminder_sent_at=$11,
			confirmed_at=$12, confirmed_by=$13, arrived_at=$14, checked_in_at=$15,
			checked_in_by=$16, no_show_at=$17, cancelled_at=$18, cancelled_by=$19,
			cancellation_reason=$20, version_id = version_id + 1, updated_at=NOW()
		WHERE id = $1 AND version_id = $2`,
		a.ID, a.VersionID,
		a.Status, a.RoomID, a.Reason, a.Start, a.End,
		a.DurationMinutes, recurrence, a.ReminderSent, a.ReminderSentAt,
		a.ConfirmedAt, a.ConfirmedBy, a.ArrivedAt, a.CheckedInAt,
		a.CheckedInBy, a.NoShowAt, a.CancelledAt, a.CancelledBy,
		a.CancellationReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM appointment WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return apperror.Conflict("appointment %s version %d is stale", a.ID, a.VersionID)
		}
		return apperror.NotFound("appointment %s not found", a.ID)
	}
	a.VersionID++
	return nil
}

var apptSortColumns = map[string]string{
	"start":      "start_time",
	"created_at": "created_at",
	"status":     "status",
}

func (r *pgRepo) Search(ctx context.Context, p SearchParams) ([]*Appointment, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(p.Statuses) > 0 {
		placeholders := make([]string, len(p.Statuses))
		for i, s := range p.Statuses {
			placeholders[i] = arg(string(s))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if p.PatientID != uuid.Nil {
		where = append(where, "patient_id = "+arg(p.PatientID))
	}
	if p.ProviderID != uuid.Nil {
		where = append(where, "provider_id = "+arg(p.ProviderID))
	}
	if p.From != nil {
		where = append(where, "start_time >= "+arg(*p.From))
	}
	if p.To != nil {
		where = append(where, "start_time < "+arg(*p.To))
	}
	if p.Text != "" {
		needle := arg("%" + strings.ToLower(p.Text) + "%")
		where = append(where, fmt.Sprintf(
			"(LOWER(reason) LIKE %s OR LOWER(patient_name) LIKE %s OR LOWER(provider_name) LIKE %s)",
			needle, needle, needle))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := apptSortColumns[p.SortBy]
	if !ok {
		sortCol = "start_time"
	}
	dir := "ASC"
	if p.Descending {
		dir = "DESC"
	}
	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT `+apptCols+` FROM appointment WHERE %s ORDER BY %s %s, id %s LIMIT %s OFFSET %s`,
		whereSQL, sortCol, dir, dir, arg(size), arg((page-1)*size)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *pgRepo) ListActiveByProviderOnDay(ctx context.Context, providerID uuid.UUID, day time.Time) ([]*Appointment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE provider_id = $1
		  AND status NOT IN ('cancelled', 'noshow')
		  AND start_time >= $2 AND start_time < $3
		ORDER BY start_time`,
		providerID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
