package servicejob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
	"github.com/bengkelmitra/bengkelmitra/internal/stock"
)

// CreateRequest describes a new job.
type CreateRequest struct {
	Name       string `json:"name" validate:"required"`
	Technician string `json:"technician"`
	LaborCost  int64  `json:"labor_cost" validate:"gte=0"`
	Note       string `json:"note"`
	Parts      []Part `json:"parts" validate:"dive"`
	Actor      string `json:"-"`
}

// Service drives the job state machine.
type Service struct {
	repo      Repository
	logger    *slog.Logger
	evaluator stock.AchievementEvaluator
	metrics   stock.MovementRecorder
}

// NewService builds Service. Evaluator and metrics may be nil.
func NewService(repo Repository, logger *slog.Logger, evaluator stock.AchievementEvaluator, metrics stock.MovementRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, evaluator: evaluator, metrics: metrics}
}

// Create opens a job in the ongoing state. No stock moves yet.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Job, error) {
	if req.Name == "" {
		return Job{}, shared.Invalidf("name required")
	}
	if req.LaborCost < 0 {
		return Job{}, shared.Invalidf("labor_cost must not be negative")
	}
	for i, part := range req.Parts {
		if part.ItemID <= 0 || part.Qty <= 0 {
			return Job{}, shared.Invalidf("part %d: item_id and positive quantity required", i)
		}
	}

	job := Job{
		TxCode:     shared.NewCode(shared.CodePrefixService),
		Name:       req.Name,
		Technician: req.Technician,
		LaborCost:  req.LaborCost,
		Note:       req.Note,
		Parts:      req.Parts,
		Status:     StatusOngoing,
		CreatedBy:  req.Actor,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertJob(ctx, job)
		if err != nil {
			return err
		}
		job.ID = id
		return tx.ReplaceParts(ctx, id, req.Parts)
	})
	if err != nil {
		return Job{}, err
	}
	return job, nil
}

// Get returns one job with its parts.
func (s *Service) Get(ctx context.Context, id int64) (Job, error) {
	return s.repo.Get(ctx, id)
}

// List returns jobs matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	return s.repo.List(ctx, filter)
}

// Charges returns every charge tagged to a job's transaction code.
func (s *Service) Charges(ctx context.Context, jobID int64) ([]Charge, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCharges(ctx, job.TxCode)
}

// UpdateParts replaces the part list. Only ongoing jobs accept this.
func (s *Service) UpdateParts(ctx context.Context, id int64, parts []Part) error {
	for i, part := range parts {
		if part.ItemID <= 0 || part.Qty <= 0 {
			return shared.Invalidf("part %d: item_id and positive quantity required", i)
		}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if job.Status != StatusOngoing {
			return fmt.Errorf("%w: job %d is %s", shared.ErrLocked, id, job.Status)
		}
		return tx.ReplaceParts(ctx, id, parts)
	})
}

// UpdateLaborCost changes the labor amount while the job is still ongoing.
func (s *Service) UpdateLaborCost(ctx context.Context, id int64, cost int64) error {
	if cost < 0 {
		return shared.Invalidf("labor_cost must not be negative")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if job.Status != StatusOngoing {
			return fmt.Errorf("%w: job %d is %s", shared.ErrLocked, id, job.Status)
		}
		return tx.SetLaborCost(ctx, id, cost)
	})
}

// AddCharge records an ad-hoc charge against an ongoing job: a state row plus
// an immediate charge ledger entry tagged with the job's transaction code.
func (s *Service) AddCharge(ctx context.Context, jobID int64, label string, amount int64, actor string) (Charge, error) {
	if label == "" {
		return Charge{}, shared.Invalidf("label required")
	}
	if amount <= 0 {
		return Charge{}, shared.Invalidf("amount must be positive")
	}

	var charge Charge
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		job, err := tx.GetJobForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != StatusOngoing {
			return fmt.Errorf("%w: job %d is %s", shared.ErrLocked, jobID, job.Status)
		}
		charge = Charge{
			ServiceTxCode: job.TxCode,
			Label:         label,
			Amount:        amount,
			Status:        ChargeActive,
			CreatedBy:     actor,
		}
		id, err := tx.InsertCharge(ctx, charge)
		if err != nil {
			return err
		}
		charge.ID = id
		_, err = tx.InsertEntry(ctx, ledger.Entry{
			TxCode:        shared.NewCode(shared.CodePrefixCharge),
			Type:          ledger.EntryCharge,
			ItemName:      label,
			UnitPrice:     amount,
			Note:          label,
			Actor:         actor,
			ServiceTxCode: &job.TxCode,
		})
		return err
	})
	if err != nil {
		return Charge{}, err
	}
	return charge, nil
}

// CancelCharge voids one charge. The original ledger entry stays; a
// compensating entry with the negated amount keeps the money trail additive.
// Canceling an already-canceled charge is a no-op.
func (s *Service) CancelCharge(ctx context.Context, chargeID int64, actor string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		charge, err := tx.GetChargeForUpdate(ctx, chargeID)
		if err != nil {
			return err
		}
		if charge.Status == ChargeCanceled {
			return nil
		}
		return cancelChargeTx(ctx, tx, charge, actor)
	})
}

// Complete transitions an ongoing job to completed. In one transaction it
// writes the service labor entry and draws every part through the stock-out
// apply path, so a failing part leaves the job untouched.
func (s *Service) Complete(ctx context.Context, id int64, completedBy string) (Job, error) {
	if completedBy == "" {
		return Job{}, shared.Invalidf("completed_by required")
	}

	var job Job
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		job, err = tx.GetJobForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if job.Status != StatusOngoing {
			return fmt.Errorf("%w: cannot complete job %d in state %s", shared.ErrInvalidTransition, id, job.Status)
		}

		if _, err := tx.InsertEntry(ctx, ledger.Entry{
			TxCode:        job.TxCode,
			Type:          ledger.EntryService,
			ItemName:      job.Name,
			UnitPrice:     job.LaborCost,
			Note:          job.Note,
			Actor:         completedBy,
			ServiceTxCode: &job.TxCode,
		}); err != nil {
			return err
		}

		for _, part := range job.Parts {
			if _, err := stock.ApplyOut(ctx, tx, stock.OutParams{
				TxCode:        job.TxCode,
				ServiceTxCode: &job.TxCode,
				Actor:         completedBy,
				ItemID:        part.ItemID,
				Qty:           part.Qty,
				UnitPrice:     part.UnitPrice,
				Note:          job.Name,
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := tx.MarkCompleted(ctx, id, completedBy, now); err != nil {
			return err
		}
		job.Status = StatusCompleted
		job.CompletedBy = completedBy
		job.CompletedAt = &now
		return nil
	})
	if err != nil {
		return Job{}, err
	}

	if s.metrics != nil {
		s.metrics.MovementPosted(string(ledger.EntryService))
	}
	if s.evaluator != nil {
		if err := s.evaluator.Evaluate(ctx, completedBy); err != nil {
			s.logger.Warn("commission evaluation failed", slog.String("actor", completedBy), slog.Any("error", err))
		}
	}
	return job, nil
}

// Cancel transitions an ongoing job to canceled and voids every still-active
// charge tagged to it before returning. No stock moves.
func (s *Service) Cancel(ctx context.Context, id int64, reason, canceledBy string) (Job, error) {
	if reason == "" {
		return Job{}, shared.Invalidf("reason required")
	}

	var job Job
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		job, err = tx.GetJobForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if job.Status != StatusOngoing {
			return fmt.Errorf("%w: cannot cancel job %d in state %s", shared.ErrInvalidTransition, id, job.Status)
		}

		charges, err := tx.ListActiveCharges(ctx, job.TxCode)
		if err != nil {
			return err
		}
		for _, charge := range charges {
			if err := cancelChargeTx(ctx, tx, charge, canceledBy); err != nil {
				return err
			}
		}

		if err := tx.MarkCanceled(ctx, id, reason); err != nil {
			return err
		}
		job.Status = StatusCanceled
		job.CancelReason = reason
		return nil
	})
	if err != nil {
		return Job{}, err
	}
	return job, nil
}

func cancelChargeTx(ctx context.Context, tx TxRepository, charge Charge, actor string) error {
	if err := tx.SetChargeCanceled(ctx, charge.ID); err != nil {
		return err
	}
	_, err := tx.InsertEntry(ctx, ledger.Entry{
		TxCode:        shared.NewCode(shared.CodePrefixCharge),
		Type:          ledger.EntryCharge,
		ItemName:      charge.Label,
		UnitPrice:     -charge.Amount,
		Note:          "cancel: " + charge.Label,
		Actor:         actor,
		ServiceTxCode: &charge.ServiceTxCode,
	})
	return err
}
