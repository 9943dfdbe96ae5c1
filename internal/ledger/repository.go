package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so entry writers can
// insert inside their own transactions.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const insertEntrySQL = `
	INSERT INTO ledger_entries
		(tx_code, entry_type, item_id, item_name, qty_delta, unit_price, cost_price, note, actor, service_tx_code, old_stock, new_stock, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	RETURNING id`

// Insert appends one entry. This is the only write the ledger table ever
// sees; there is no UPDATE or DELETE statement anywhere in this package.
func Insert(ctx context.Context, db DBTX, e Entry) (int64, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var id int64
	err := db.QueryRow(ctx, insertEntrySQL,
		e.TxCode,
		string(e.Type),
		pgtype.Int8{Int64: derefInt64(e.ItemID), Valid: e.ItemID != nil},
		e.ItemName,
		e.QtyDelta,
		e.UnitPrice,
		e.CostPrice,
		e.Note,
		e.Actor,
		pgtype.Text{String: derefString(e.ServiceTxCode), Valid: e.ServiceTxCode != nil},
		pgtype.Int8{Int64: derefInt64(e.OldStock), Valid: e.OldStock != nil},
		pgtype.Int8{Int64: derefInt64(e.NewStock), Valid: e.NewStock != nil},
		createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ledger: insert entry: %w", err)
	}
	return id, nil
}

// Repository reads ledger rows from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectEntryCols = `
	id, tx_code, entry_type, item_id, item_name, qty_delta, unit_price, cost_price,
	note, actor, service_tx_code, old_stock, new_stock, created_at`

// ByTransaction returns every entry sharing a transaction code, in insert order.
func (r *Repository) ByTransaction(ctx context.Context, txCode string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectEntryCols+` FROM ledger_entries WHERE tx_code = $1 ORDER BY id`, txCode)
	if err != nil {
		return nil, fmt.Errorf("ledger: by transaction: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByServiceTransaction returns entries tagged to a service job's code.
func (r *Repository) ByServiceTransaction(ctx context.Context, serviceTxCode string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectEntryCols+` FROM ledger_entries WHERE service_tx_code = $1 ORDER BY id`, serviceTxCode)
	if err != nil {
		return nil, fmt.Errorf("ledger: by service transaction: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// List returns entries matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("entry_type = $%d", argPos))
		args = append(args, string(filter.Type))
		argPos++
	}
	if filter.ItemID != 0 {
		conditions = append(conditions, fmt.Sprintf("item_id = $%d", argPos))
		args = append(args, filter.ItemID)
		argPos++
	}
	if filter.Actor != "" {
		conditions = append(conditions, fmt.Sprintf("actor = $%d", argPos))
		args = append(args, filter.Actor)
		argPos++
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, filter.From)
		argPos++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, filter.To)
		argPos++
	}

	query := `SELECT ` + selectEntryCols + ` FROM ledger_entries`
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// SumOutByActorSince totals stock-out revenue recorded by one actor since a
// point in time. Quantity deltas are negative on stock-out, hence the sign flip.
func (r *Repository) SumOutByActorSince(ctx context.Context, actor string, since time.Time) (int64, error) {
	var total pgtype.Int8
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM((-qty_delta) * unit_price), 0)
		FROM ledger_entries
		WHERE entry_type = 'stock_out' AND actor = $1 AND created_at >= $2`,
		actor, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ledger: sum out by actor: %w", err)
	}
	return total.Int64, nil
}

// SumOutSince totals all stock-out revenue since a point in time.
func (r *Repository) SumOutSince(ctx context.Context, since time.Time) (int64, error) {
	var total pgtype.Int8
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM((-qty_delta) * unit_price), 0)
		FROM ledger_entries
		WHERE entry_type = 'stock_out' AND created_at >= $1`,
		since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ledger: sum out: %w", err)
	}
	return total.Int64, nil
}

const summarySQL = `
	SELECT to_char(created_at, %s) AS bucket,
	       COALESCE(SUM(CASE WHEN entry_type = 'stock_out' THEN (-qty_delta) * unit_price ELSE 0 END), 0) AS sales,
	       COALESCE(SUM(CASE WHEN entry_type = 'stock_out' THEN (-qty_delta) * cost_price ELSE 0 END), 0) AS cost,
	       COALESCE(SUM(CASE WHEN entry_type = 'service' THEN unit_price ELSE 0 END), 0) AS service,
	       COALESCE(SUM(CASE WHEN entry_type = 'charge' THEN unit_price ELSE 0 END), 0) AS charges
	FROM ledger_entries
	WHERE created_at >= $1 AND created_at < $2
	GROUP BY 1
	ORDER BY 1`

// SummaryByDay aggregates money flows per calendar day within [from, to).
func (r *Repository) SummaryByDay(ctx context.Context, from, to time.Time) ([]SummaryRow, error) {
	return r.summary(ctx, fmt.Sprintf(summarySQL, "'YYYY-MM-DD'"), from, to)
}

// SummaryByMonth aggregates money flows per calendar month within [from, to).
func (r *Repository) SummaryByMonth(ctx context.Context, from, to time.Time) ([]SummaryRow, error) {
	return r.summary(ctx, fmt.Sprintf(summarySQL, "'YYYY-MM'"), from, to)
}

func (r *Repository) summary(ctx context.Context, query string, from, to time.Time) ([]SummaryRow, error) {
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("ledger: summary: %w", err)
	}
	defer rows.Close()

	var result []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.Bucket, &row.Sales, &row.Cost, &row.Service, &row.Charges); err != nil {
			return nil, fmt.Errorf("ledger: scan summary: %w", err)
		}
		row.Profit = row.Sales + row.Service + row.Charges - row.Cost
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var itemID, oldStock, newStock pgtype.Int8
		var serviceTxCode pgtype.Text
		err := rows.Scan(
			&e.ID, &e.TxCode, &e.Type, &itemID, &e.ItemName, &e.QtyDelta,
			&e.UnitPrice, &e.CostPrice, &e.Note, &e.Actor, &serviceTxCode,
			&oldStock, &newStock, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		if itemID.Valid {
			e.ItemID = &itemID.Int64
		}
		if serviceTxCode.Valid {
			e.ServiceTxCode = &serviceTxCode.String
		}
		if oldStock.Valid {
			e.OldStock = &oldStock.Int64
		}
		if newStock.Valid {
			e.NewStock = &newStock.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
