// Package stock validates and applies stock movements. Every mutation of an
// item's stock level in the whole system funnels through this package's
// transactional apply path, so the row-lock discipline cannot be bypassed.
package stock

import (
	"context"
	"time"

	"github.com/bengkelmitra/bengkelmitra/internal/catalog"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
)

// InLine is one stock-in request line. The item is resolved by id, then
// code, then name; an unknown name creates the item on the fly.
type InLine struct {
	ItemID    int64  `json:"item_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Qty       int64  `json:"quantity" validate:"required,gt=0"`
	Price     int64  `json:"price" validate:"gte=0"`
	CostPrice int64  `json:"cost_price" validate:"gte=0"`
	Note      string `json:"note"`
}

// OutLine is one stock-out (sale) request line.
type OutLine struct {
	ItemID    int64  `json:"item_id" validate:"required,gt=0"`
	Qty       int64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
	Note      string `json:"note"`
}

// AuditLine carries an authoritative stock value, not a delta.
type AuditLine struct {
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
	NewStock int64  `json:"new_stock" validate:"gte=0"`
	Note     string `json:"note"`
}

// StockInRequest groups stock-in lines under one actor.
type StockInRequest struct {
	Lines []InLine
	Actor string
}

// StockOutRequest groups stock-out lines under one actor.
type StockOutRequest struct {
	Lines []OutLine
	Actor string
}

// AuditRequest groups audit corrections under one actor.
type AuditRequest struct {
	Lines []AuditLine
	Actor string
}

// Result reports the transaction code shared by every ledger entry the
// operation produced.
type Result struct {
	TxCode string `json:"transaction_id"`
}

// AuditRecord pairs with exactly one audit ledger entry.
type AuditRecord struct {
	ItemID    int64
	OldStock  int64
	NewStock  int64
	Note      string
	Actor     string
	TxCode    string
	CreatedAt time.Time
}

// Mover is the minimal transactional capability needed to move stock: lock
// the item row, write the new level, append the ledger entry. The service
// job manager satisfies it with its own transaction during completion.
type Mover interface {
	GetItemForUpdate(ctx context.Context, id int64) (catalog.Item, error)
	SetItemStock(ctx context.Context, id int64, stock int64) error
	InsertEntry(ctx context.Context, e ledger.Entry) (int64, error)
}

// TxRepository is the full transactional surface for movement requests.
type TxRepository interface {
	Mover
	FindItemIDByCode(ctx context.Context, code string) (int64, error)
	FindItemIDByName(ctx context.Context, name string) (int64, error)
	CreateItem(ctx context.Context, item catalog.Item) (int64, error)
	InsertAudit(ctx context.Context, rec AuditRecord) error
}

// Repository opens the transaction a movement request runs in.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
