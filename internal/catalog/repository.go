package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx; the transactional item
// helpers below run against whichever the caller is holding.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const selectItemCols = `id, code, name, category, price, cost_price, stock, photo, description, created_at, updated_at`

// Repository persists catalog items in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns one item by id.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx,
		`SELECT `+selectItemCols+` FROM items WHERE id = $1`, id))
}

// List returns items matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Query+"%")
		argPos++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argPos))
		args = append(args, filter.Category)
		argPos++
	}

	query := `SELECT ` + selectItemCols + ` FROM items`
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
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Create inserts a new catalog entry and returns its id.
func (r *Repository) Create(ctx context.Context, item Item) (int64, error) {
	return CreateItem(ctx, r.pool, item)
}

// updatableColumns are the catalog fields a partial update may set. Stock is
// deliberately absent: stock changes go through the movement processor only.
var updatableColumns = map[string]struct{}{
	"code":        {},
	"name":        {},
	"category":    {},
	"price":       {},
	"cost_price":  {},
	"photo":       {},
	"description": {},
}

// BuildUpdate turns a field patch into a SET clause and args, rejecting any
// column outside the whitelist with ErrInvalidInput.
func BuildUpdate(fields map[string]any) (string, []interface{}, error) {
	if len(fields) == 0 {
		return "", nil, shared.Invalidf("nothing to update")
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := updatableColumns[name]; !ok {
			return "", nil, shared.Invalidf("field %q is not updatable", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	clause := "UPDATE items SET updated_at = NOW()"
	var args []interface{}
	for i, name := range names {
		clause += fmt.Sprintf(", %s = $%d", name, i+1)
		args = append(args, fields[name])
	}
	return clause, args, nil
}

// UpdateFields applies a partial update to non-stock catalog columns.
func (r *Repository) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	clause, args, err := BuildUpdate(fields)
	if err != nil {
		return err
	}
	clause += fmt.Sprintf(" WHERE id = $%d", len(args)+1)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, clause, args...)
	if err != nil {
		return fmt.Errorf("catalog: update item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a catalog entry. Ledger history for the item survives; it
// carries its own name snapshot.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Transactional helpers. These take a DBTX so the movement processor and the
// service job manager can call them under their own row-locking transaction.

// GetItemForUpdate loads an item and locks its row for the transaction.
func GetItemForUpdate(ctx context.Context, db DBTX, id int64) (Item, error) {
	return scanItem(db.QueryRow(ctx,
		`SELECT `+selectItemCols+` FROM items WHERE id = $1 FOR UPDATE`, id))
}

// FindItemIDByCode resolves an item id from its code.
func FindItemIDByCode(ctx context.Context, db DBTX, code string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `SELECT id FROM items WHERE code = $1 LIMIT 1`, code).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("catalog: find by code: %w", err)
	}
	return id, nil
}

// FindItemIDByName resolves an item id from its exact name.
func FindItemIDByName(ctx context.Context, db DBTX, name string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `SELECT id FROM items WHERE name = $1 LIMIT 1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("catalog: find by name: %w", err)
	}
	return id, nil
}

// CreateItem inserts an item and returns its id.
func CreateItem(ctx context.Context, db DBTX, item Item) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO items (code, name, category, price, cost_price, stock, photo, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		item.Code, item.Name, item.Category, item.Price, item.CostPrice,
		item.Stock, item.Photo, item.Description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: create item: %w", err)
	}
	return id, nil
}

// SetItemStock writes the authoritative stock value for a locked row.
func SetItemStock(ctx context.Context, db DBTX, id int64, stock int64) error {
	if stock < 0 {
		return &shared.InsufficientStockError{ItemID: id, Available: 0}
	}
	tag, err := db.Exec(ctx,
		`UPDATE items SET stock = $1, updated_at = NOW() WHERE id = $2`, stock, id)
	if err != nil {
		return fmt.Errorf("catalog: set stock for item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(
		&item.ID, &item.Code, &item.Name, &item.Category, &item.Price,
		&item.CostPrice, &item.Stock, &item.Photo, &item.Description,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, fmt.Errorf("catalog: scan item: %w", err)
	}
	return item, nil
}

func scanItemRow(rows pgx.Rows) (Item, error) {
	var item Item
	err := rows.Scan(
		&item.ID, &item.Code, &item.Name, &item.Category, &item.Price,
		&item.CostPrice, &item.Stock, &item.Photo, &item.Description,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return Item{}, fmt.Errorf("catalog: scan item: %w", err)
	}
	return item, nil
}
