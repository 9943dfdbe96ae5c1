package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bengkelmitra/bengkelmitra/internal/catalog"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/platform/db"
)

// PgRepository runs movement requests against PostgreSQL.
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

func (r *txRepo) FindItemIDByCode(ctx context.Context, code string) (int64, error) {
	return catalog.FindItemIDByCode(ctx, r.tx, code)
}

func (r *txRepo) FindItemIDByName(ctx context.Context, name string) (int64, error) {
	return catalog.FindItemIDByName(ctx, r.tx, name)
}

func (r *txRepo) CreateItem(ctx context.Context, item catalog.Item) (int64, error) {
	return catalog.CreateItem(ctx, r.tx, item)
}

func (r *txRepo) InsertAudit(ctx context.Context, rec AuditRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO stock_audits (item_id, old_stock, new_stock, note, actor, tx_code, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ItemID, rec.OldStock, rec.NewStock, rec.Note, rec.Actor, rec.TxCode, createdAt)
	if err != nil {
		return fmt.Errorf("stock: insert audit record: %w", err)
	}
	return nil
}
