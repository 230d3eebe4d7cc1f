package encounter

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

// NewPGRepository creates a Postgres-backed encounter repository.
func NewPGRepository(pool *pgxpool.Pool) Repository { return &pgRepo{pool: pool} }

const encCols = `id, status, class, patient_id, provider_id, appointment_id,
	patient_name, provider_name, chief_complaint, start_time, end_time,
	sections, addenda, signed_at, signed_by, attestation,
	cancelled_at, cancellation_reason, version_id, created_at, updated_at`

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	var sections, addenda []byte
	err := row.Scan(&e.ID, &e.Status, &e.Class, &e.PatientID, &e.ProviderID, &e.AppointmentID,
		&e.PatientName, &e.ProviderName, &e.ChiefComplaint, &e.StartTime, &e.EndTime,
		&sections, &addenda, &e.SignedAt, &e.SignedBy, &e.Attestation,
		&e.CancelledAt, &e.CancellationReason, &e.VersionID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &e.Sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
	}
	if len(addenda) > 0 {
		if err := json.Unmarshal(addenda, &e.Addenda); err != nil {
			return nil, fmt.Errorf("decode addenda: %w", err)
		}
	}
	return &e, nil
}

func (r *pgRepo) encodeNote(e *Encounter) (sections, addenda []byte, err error) {
	sections, err = json.Marshal(e.Sections)
	if err != nil {
		return nil, nil, fmt.Errorf("encode sections: %w", err)
	}
	if len(e.Addenda) > 0 {
		addenda, err = json.Marshal(e.Addenda)
		if err != nil {
			return nil, nil, fmt.Errorf("encode addenda: %w", err)
		}
	}
	return sections, addenda, nil
}

func (r *pgRepo) Create(ctx context.Context, e *Encounter) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.VersionID = 1

	sections, addenda, err := r.encodeNote(e)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO encounter (`+encCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		e.ID, e.Status, e.Class, e.PatientID, e.ProviderID, e.AppointmentID,
		e.PatientName, e.ProviderName, e.ChiefComplaint, e.StartTime, e.EndTime,
		sections, addenda, e.SignedAt, e.SignedBy, e.Attestation,
		e.CancelledAt, e.CancellationReason, e.VersionID, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *pgRepo) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	e, err := scanEncounter(r.pool.QueryRow(ctx,
		`SELECT `+encCols+` FROM encounter WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("encounter %s not found", id)
	}
	return e, err
}

func (r *pgRepo) Update(ctx context.Context, e *Encounter) error {
	sections, addenda, err := r.encodeNote(e)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE encounter SET
			status=$3, chief_complaint=$4, start_time=$5, end_time=$6,
			sections=$7, addenda=$8, signed_at=$9, signed_by=$10, attestation=$11,
			cancelled_at=$12, cancellation_reason=$13,
			version_id = version_id + 1, updated_at=NOW()
		WHERE id = $1 AND version_id = $2`,
		e.ID, e.VersionID,
		e.Status, e.ChiefComplaint, e.StartTime, e.EndTime,
		sections, addenda, e.SignedAt, e.SignedBy, e.Attestation,
		e.CancelledAt, e.CancellationReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM encounter WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return apperror.Conflict("encounter %s version %d is stale", e.ID, e.VersionID)
		}
		return apperror.NotFound("encounter %s not found", e.ID)
	}
	e.VersionID++
	return nil
}

var encSortColumns = map[string]string{
	"start_time": "start_time",
	"created_at": "created_at",
	"status":     "status",
}

func (r *pgRepo) Search(ctx context.Context, p SearchParams) ([]*Encounter, int, error) {
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
	if p.Class != "" {
		where = append(where, "class = "+arg(string(p.Class)))
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
			"(LOWER(chief_complaint) LIKE %s OR LOWER(patient_name) LIKE %s OR LOWER(provider_name) LIKE %s)",
			needle, needle, needle))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := encSortColumns[p.SortBy]
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
		`SELECT `+encCols+` FROM encounter WHERE %s ORDER BY %s %s, id %s LIMIT %s OFFSET %s`,
		whereSQL, sortCol, dir, dir, arg(size), arg((page-1)*size)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*Encounter{}
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
