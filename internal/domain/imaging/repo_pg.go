package imaging

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

// NewPGRepository creates a Postgres-backed imaging order repository.
func NewPGRepository(pool *pgxpool.Pool) Repository { return &pgRepo{pool: pool} }

const orderCols = `id, status, accession_number, patient_id, ordering_provider_id,
	reading_provider_id, patient_name, ordering_provider_name,
	modality, procedure_code, procedure_description, body_region, priority,
	requires_contrast, clinical_indication, facility_id,
	ordered_date, scheduled_date, performed_date, reported_date,
	safety_screening, report, cancelled_at, cancelled_by, cancellation_reason,
	version_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*ImagingOrder, error) {
	var o ImagingOrder
	var safety, report []byte
	err := row.Scan(&o.ID, &o.Status, &o.AccessionNumber, &o.PatientID, &o.OrderingProviderID,
		&o.ReadingProviderID, &o.PatientName, &o.OrderingProviderName,
		&o.Modality, &o.ProcedureCode, &o.ProcedureDescription, &o.BodyRegion, &o.Priority,
		&o.RequiresContrast, &o.ClinicalIndication, &o.FacilityID,
		&o.OrderedDate, &o.ScheduledDate, &o.PerformedDate, &o.ReportedDate,
		&safety, &report, &o.CancelledAt, &o.CancelledBy, &o.CancellationReason,
		&o.VersionID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(safety) > 0 {
		if err := json.Unmarshal(safety, &o.Safety); err != nil {
			return nil, fmt.Errorf("decode safety screening: %w", err)
		}
	}
	if len(report) > 0 {
		if err := json.Unmarshal(report, &o.Report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
	}
	return &o, nil
}

func encodePayloads(o *ImagingOrder) (safety, report []byte, err error) {
	if o.Safety != nil {
		safety, err = json.Marshal(o.Safety)
		if err != nil {
			return nil, nil, fmt.Errorf("encode safety screening: %w", err)
		}
	}
	if o.Report != nil {
		report, err = json.Marshal(o.Report)
		if err != nil {
			return nil, nil, fmt.Errorf("encode report: %w", err)
		}
	}
	return safety, report, nil
}

func (r *pgRepo) Create(ctx context.Context, o *ImagingOrder) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.VersionID = 1

	safety, report, err := encodePayloads(o)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO imaging_order (`+orderCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`,
		o.ID, o.Status, o.AccessionNumber, o.PatientID, o.OrderingProviderID,
		o.ReadingProviderID, o.PatientName, o.OrderingProviderName,
		o.Modality, o.ProcedureCode, o.ProcedureDescription, o.BodyRegion, o.Priority,
		o.RequiresContrast, o.ClinicalIndication, o.FacilityID,
		o.OrderedDate, o.ScheduledDate, o.PerformedDate, o.ReportedDate,
		safety, report, o.CancelledAt, o.CancelledBy, o.CancellationReason,
		o.VersionID, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *pgRepo) Get(ctx context.Context, id uuid.UUID) (*ImagingOrder, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderCols+` FROM imaging_order WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("imaging order %s not found", id)
	}
	return o, err
}

func (r *pgRepo) Update(ctx context.Context, o *ImagingOrder) error {
	safety, report, err := encodePayloads(o)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE imaging_order SET
			status=$3, reading_provider_id=$4, priority=$5, facility_id=$6,
			scheduled_date=$7, performed_date=$8, reported_date=$9,
			safety_screening=$10, report=$11,
			cancelled_at=$12, cancelled_by=$13, cancellation_reason=$14,
			version_id = version_id + 1, updated_at=NOW()
		WHERE id = $1 AND version_id = $2`,
		o.ID, o.VersionID,
		o.Status, o.ReadingProviderID, o.Priority, o.FacilityID,
		o.ScheduledDate, o.PerformedDate, o.ReportedDate,
		safety, report,
		o.CancelledAt, o.CancelledBy, o.CancellationReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM imaging_order WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return apperror.Conflict("imaging order %s version %d is stale", o.ID, o.VersionID)
		}
		return apperror.NotFound("imaging order %s not found", o.ID)
	}
	o.VersionID++
	return nil
}

func (r *pgRepo) NextAccessionNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('imaging_accession_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("ACC%08d", n), nil
}

var orderSortColumns = map[string]string{
	"ordered_date": "ordered_date",
	"status":       "status",
	// stat sorts before urgent before routine
	"priority": "array_position(ARRAY['stat','urgent','routine'], priority)",
}

func (r *pgRepo) Search(ctx context.Context, p SearchParams) ([]*ImagingOrder, int, error) {
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
	if p.Modality != "" {
		where = append(where, "modality = "+arg(p.Modality))
	}
	if p.Priority != "" {
		where = append(where, "priority = "+arg(string(p.Priority)))
	}
	if p.PatientID != uuid.Nil {
		where = append(where, "patient_id = "+arg(p.PatientID))
	}
	if p.ProviderID != uuid.Nil {
		where = append(where, "ordering_provider_id = "+arg(p.ProviderID))
	}
	if p.From != nil {
		where = append(where, "ordered_date >= "+arg(*p.From))
	}
	if p.To != nil {
		where = append(where, "ordered_date < "+arg(*p.To))
	}
	if p.Text != "" {
		needle := arg("%" + strings.ToLower(p.Text) + "%")
		where = append(where, fmt.Sprintf(
			"(LOWER(procedure_description) LIKE %s OR LOWER(procedure_code) LIKE %s OR LOWER(body_region) LIKE %s OR LOWER(accession_number) LIKE %s)",
			needle, needle, needle, needle))
	}
	if p.AwaitingCriticalAck {
		where = append(where,
			"(report->>'has_critical_findings')::boolean AND NOT (report->>'critical_finding_communicated')::boolean")
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM imaging_order WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := orderSortColumns[p.SortBy]
	if !ok {
		sortCol = "ordered_date"
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
		`SELECT `+orderCols+` FROM imaging_order WHERE %s ORDER BY %s %s, id %s LIMIT %s OFFSET %s`,
		whereSQL, sortCol, dir, dir, arg(size), arg((page-1)*size)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*ImagingOrder{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}
