// Package ledger is the append-only log of stock and monetary events.
// Entries are immutable: the repository exposes no update or delete path,
// corrections always land as new entries.
package ledger

import "time"

// EntryType enumerates recorded event kinds.
type EntryType string

const (
	// EntryStockIn records goods received.
	EntryStockIn EntryType = "stock_in"
	// EntryStockOut records a sale or parts consumption.
	EntryStockOut EntryType = "stock_out"
	// EntryAudit records an administrative stock correction.
	EntryAudit EntryType = "audit"
	// EntryService records service-job labor revenue.
	EntryService EntryType = "service"
	// EntryCharge records an ad-hoc charge tied to a service job.
	EntryCharge EntryType = "charge"
)

// Entry is a single immutable ledger row. ItemID is nil for service and
// charge entries; OldStock/NewStock are set on audit entries only.
type Entry struct {
	ID            int64      `json:"id"`
	TxCode        string     `json:"transaction_id"`
	Type          EntryType  `json:"type"`
	ItemID        *int64     `json:"item_id,omitempty"`
	ItemName      string     `json:"item_name"`
	QtyDelta      int64      `json:"quantity_delta"`
	UnitPrice     int64      `json:"unit_price"`
	CostPrice     int64      `json:"cost_price"`
	Note          string     `json:"note"`
	Actor         string     `json:"actor"`
	ServiceTxCode *string    `json:"service_transaction_id,omitempty"`
	OldStock      *int64     `json:"old_stock,omitempty"`
	NewStock      *int64     `json:"new_stock,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Filter narrows List queries.
type Filter struct {
	Type   EntryType
	ItemID int64
	Actor  string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// SummaryRow aggregates ledger money flows per day or month bucket.
type SummaryRow struct {
	Bucket  string `json:"bucket"`
	Sales   int64  `json:"sales"`
	Cost    int64  `json:"cost"`
	Service int64  `json:"service"`
	Charges int64  `json:"charges"`
	Profit  int64  `json:"profit"`
}
