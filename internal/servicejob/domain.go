// Package servicejob owns the repair-job lifecycle: parts are recorded while
// the job is ongoing and only leave inventory at completion, charges hang off
// the job's transaction code, and cancellation cascades to active charges.
package servicejob

import (
	"context"
	"time"

	"github.com/bengkelmitra/bengkelmitra/internal/stock"
)

// Status enumerates job lifecycle states. Completed and canceled are terminal.
type Status string

const (
	// StatusOngoing is the working state; the only state allowing mutation.
	StatusOngoing Status = "ongoing"
	// StatusCompleted marks a finished job whose parts left inventory.
	StatusCompleted Status = "completed"
	// StatusCanceled marks an abandoned job; its charges are canceled too.
	StatusCanceled Status = "canceled"
)

// Part is a planned item consumption. It affects stock only at completion.
type Part struct {
	ItemID    int64 `json:"item_id" validate:"required,gt=0"`
	Qty       int64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice int64 `json:"unit_price" validate:"gte=0"`
}

// Job is a repair/service work order.
type Job struct {
	ID           int64      `json:"id"`
	TxCode       string     `json:"transaction_id"`
	Name         string     `json:"name"`
	Technician   string     `json:"technician"`
	LaborCost    int64      `json:"labor_cost"`
	Note         string     `json:"note"`
	Parts        []Part     `json:"parts"`
	Status       Status     `json:"status"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CompletedBy  string     `json:"completed_by,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ChargeStatus enumerates charge states.
type ChargeStatus string

const (
	// ChargeActive is a live charge counted at completion.
	ChargeActive ChargeStatus = "active"
	// ChargeCanceled is a voided charge; its ledger entry was compensated.
	ChargeCanceled ChargeStatus = "canceled"
)

// Charge is an ad-hoc monetary line tied to a job by its transaction code.
type Charge struct {
	ID            int64        `json:"id"`
	ServiceTxCode string       `json:"service_transaction_id"`
	Label         string       `json:"label"`
	Amount        int64        `json:"amount"`
	Status        ChargeStatus `json:"status"`
	CreatedBy     string       `json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ListFilter narrows job listings.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// TxRepository is the transactional surface for lifecycle operations. It
// embeds stock.Mover so completion can draw parts through the same row-locked
// apply path every other movement uses.
type TxRepository interface {
	stock.Mover
	InsertJob(ctx context.Context, job Job) (int64, error)
	ReplaceParts(ctx context.Context, jobID int64, parts []Part) error
	GetJobForUpdate(ctx context.Context, id int64) (Job, error)
	SetLaborCost(ctx context.Context, id int64, cost int64) error
	MarkCompleted(ctx context.Context, id int64, completedBy string, completedAt time.Time) error
	MarkCanceled(ctx context.Context, id int64, reason string) error
	InsertCharge(ctx context.Context, charge Charge) (int64, error)
	GetChargeForUpdate(ctx context.Context, id int64) (Charge, error)
	ListActiveCharges(ctx context.Context, serviceTxCode string) ([]Charge, error)
	SetChargeCanceled(ctx context.Context, id int64) error
}

// Repository combines transactional and read-only access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Job, error)
	List(ctx context.Context, filter ListFilter) ([]Job, error)
	ListCharges(ctx context.Context, serviceTxCode string) ([]Charge, error)
}
