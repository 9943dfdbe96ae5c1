package stock

import (
	"context"

	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// OutParams describes one outbound movement applied under a held transaction.
type OutParams struct {
	TxCode        string
	ServiceTxCode *string
	Actor         string
	ItemID        int64
	Qty           int64
	UnitPrice     int64
	Note          string
}

// ApplyOut performs the row-locked read-modify-write for a single outbound
// line: lock the item, re-check availability inside the transaction, write
// the new level and append the stock_out entry. The availability check lives
// here, after the lock, so concurrent sales cannot both pass a stale read.
func ApplyOut(ctx context.Context, m Mover, p OutParams) (ledger.Entry, error) {
	item, err := m.GetItemForUpdate(ctx, p.ItemID)
	if err != nil {
		return ledger.Entry{}, err
	}
	if item.Stock < p.Qty {
		return ledger.Entry{}, &shared.InsufficientStockError{
			ItemID:    item.ID,
			Requested: p.Qty,
			Available: item.Stock,
		}
	}
	if err := m.SetItemStock(ctx, item.ID, item.Stock-p.Qty); err != nil {
		return ledger.Entry{}, err
	}

	unitPrice := p.UnitPrice
	if unitPrice == 0 {
		unitPrice = item.Price
	}
	entry := ledger.Entry{
		TxCode:        p.TxCode,
		Type:          ledger.EntryStockOut,
		ItemID:        &item.ID,
		ItemName:      item.Name,
		QtyDelta:      -p.Qty,
		UnitPrice:     unitPrice,
		CostPrice:     item.CostPrice,
		Note:          p.Note,
		Actor:         p.Actor,
		ServiceTxCode: p.ServiceTxCode,
	}
	id, err := m.InsertEntry(ctx, entry)
	if err != nil {
		return ledger.Entry{}, err
	}
	entry.ID = id
	return entry, nil
}
