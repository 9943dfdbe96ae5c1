package servicejob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bengkelmitra/bengkelmitra/internal/catalog"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/platform/db"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// PgRepository persists service jobs in PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const selectJobCols = `
	id, tx_code, name, technician, labor_cost, note, status, cancel_reason,
	completed_at, completed_by, created_by, created_at, updated_at`

// Get returns one job with its parts.
func (r *PgRepository) Get(ctx context.Context, id int64) (Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx,
		`SELECT `+selectJobCols+` FROM service_jobs WHERE id = $1`, id))
	if err != nil {
		return Job{}, err
	}
	parts, err := loadParts(ctx, r.pool, id)
	if err != nil {
		return Job{}, err
	}
	job.Parts = parts
	return job, nil
}

// List returns jobs matching the filter, newest first. Parts are not loaded.
func (r *PgRepository) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	query := `SELECT ` + selectJobCols + ` FROM service_jobs`
	var args []interface{}
	argPos := 1
	if filter.Status != "" {
		query += fmt.Sprintf(" WHERE status = $%d", argPos)
		args = append(args, string(filter.Status))
		argPos++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("servicejob: list: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListCharges returns all charges tagged to a job's transaction code.
func (r *PgRepository) ListCharges(ctx context.Context, serviceTxCode string) ([]Charge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, service_tx_code, label, amount, status, created_by, created_at
		FROM charges WHERE service_tx_code = $1 ORDER BY id`, serviceTxCode)
	if err != nil {
		return nil, fmt.Errorf("servicejob: list charges: %w", err)
	}
	defer rows.Close()

	var charges []Charge
	for rows.Next() {
		var c Charge
		if err := rows.Scan(&c.ID, &c.ServiceTxCode, &c.Label, &c.Amount, &c.Status, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("servicejob: scan charge: %w", err)
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) GetItemForUpdate(ctx context.Context, id int64) (catalog.Item, error) {
	return catalog.GetItemForUpdate(ctx, r.tx, id)
}

func (r *txRepo) SetItemStock(ctx context.Context, id int64, stock int64) error {
	return catalog.SetItemStock(ctx, r.tx, id, stock)
}

func (r *txRepo) InsertEntry(ctx context.Context, e ledger.Entry) (int64, error) {
	return ledger.Insert(ctx, r.tx, e)
}

func (r *txRepo) InsertJob(ctx context.Context, job Job) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO service_jobs (tx_code, name, technician, labor_cost, note, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		job.TxCode, job.Name, job.Technician, job.LaborCost, job.Note,
		string(job.Status), job.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("servicejob: insert job: %w", err)
	}
	return id, nil
}

func (r *txRepo) ReplaceParts(ctx context.Context, jobID int64, parts []Part) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM service_job_parts WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("servicejob: clear parts: %w", err)
	}
	for _, part := range parts {
		_, err := r.tx.Exec(ctx, `
			INSERT INTO service_job_parts (job_id, item_id, qty, unit_price)
			VALUES ($1,$2,$3,$4)`,
			jobID, part.ItemID, part.Qty, part.UnitPrice)
		if err != nil {
			return fmt.Errorf("servicejob: insert part: %w", err)
		}
	}
	return nil
}

func (r *txRepo) GetJobForUpdate(ctx context.Context, id int64) (Job, error) {
	job, err := scanJob(r.tx.QueryRow(ctx,
		`SELECT `+selectJobCols+` FROM service_jobs WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Job{}, err
	}
	parts, err := loadParts(ctx, r.tx, id)
	if err != nil {
		return Job{}, err
	}
	job.Parts = parts
	return job, nil
}

func (r *txRepo) SetLaborCost(ctx context.Context, id int64, cost int64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE service_jobs SET labor_cost = $1, updated_at = NOW() WHERE id = $2`, cost, id)
	if err != nil {
		return fmt.Errorf("servicejob: set labor cost: %w", err)
	}
	return nil
}

func (r *txRepo) MarkCompleted(ctx context.Context, id int64, completedBy string, completedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE service_jobs
		SET status = 'completed', completed_by = $1, completed_at = $2, updated_at = NOW()
		WHERE id = $3`,
		completedBy, completedAt, id)
	if err != nil {
		return fmt.Errorf("servicejob: mark completed: %w", err)
	}
	return nil
}

func (r *txRepo) MarkCanceled(ctx context.Context, id int64, reason string) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE service_jobs
		SET status = 'canceled', cancel_reason = $1, updated_at = NOW()
		WHERE id = $2`,
		reason, id)
	if err != nil {
		return fmt.Errorf("servicejob: mark canceled: %w", err)
	}
	return nil
}

func (r *txRepo) InsertCharge(ctx context.Context, charge Charge) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO charges (service_tx_code, label, amount, status, created_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		charge.ServiceTxCode, charge.Label, charge.Amount, string(charge.Status), charge.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("servicejob: insert charge: %w", err)
	}
	return id, nil
}

func (r *txRepo) GetChargeForUpdate(ctx context.Context, id int64) (Charge, error) {
	var c Charge
	err := r.tx.QueryRow(ctx, `
		SELECT id, service_tx_code, label, amount, status, created_by, created_at
		FROM charges WHERE id = $1 FOR UPDATE`, id,
	).Scan(&c.ID, &c.ServiceTxCode, &c.Label, &c.Amount, &c.Status, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Charge{}, shared.ErrNotFound
		}
		return Charge{}, fmt.Errorf("servicejob: get charge: %w", err)
	}
	return c, nil
}

func (r *txRepo) ListActiveCharges(ctx context.Context, serviceTxCode string) ([]Charge, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, service_tx_code, label, amount, status, created_by, created_at
		FROM charges WHERE service_tx_code = $1 AND status = 'active'
		ORDER BY id FOR UPDATE`, serviceTxCode)
	if err != nil {
		return nil, fmt.Errorf("servicejob: list active charges: %w", err)
	}
	defer rows.Close()

	var charges []Charge
	for rows.Next() {
		var c Charge
		if err := rows.Scan(&c.ID, &c.ServiceTxCode, &c.Label, &c.Amount, &c.Status, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("servicejob: scan charge: %w", err)
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

func (r *txRepo) SetChargeCanceled(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE charges SET status = 'canceled' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("servicejob: cancel charge: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (Job, error) {
	var job Job
	var cancelReason, completedBy pgtype.Text
	var completedAt pgtype.Timestamptz
	err := row.Scan(
		&job.ID, &job.TxCode, &job.Name, &job.Technician, &job.LaborCost,
		&job.Note, &job.Status, &cancelReason, &completedAt, &completedBy,
		&job.CreatedBy, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, shared.ErrNotFound
		}
		return Job{}, fmt.Errorf("servicejob: scan job: %w", err)
	}
	if cancelReason.Valid {
		job.CancelReason = cancelReason.String
	}
	if completedBy.Valid {
		job.CompletedBy = completedBy.String
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

func loadParts(ctx context.Context, db catalog.DBTX, jobID int64) ([]Part, error) {
	rows, err := db.Query(ctx, `
		SELECT item_id, qty, unit_price FROM service_job_parts
		WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("servicejob: load parts: %w", err)
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.ItemID, &p.Qty, &p.UnitPrice); err != nil {
			return nil, fmt.Errorf("servicejob: scan part: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}
