package stock

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bengkelmitra/bengkelmitra/internal/catalog"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// AchievementEvaluator runs the commission write path after a committed sale.
type AchievementEvaluator interface {
	Evaluate(ctx context.Context, username string) error
}

// MovementRecorder counts committed movements for metrics.
type MovementRecorder interface {
	MovementPosted(entryType string)
}

// Service coordinates stock movement requests. Each request is all-or-nothing
// across its lines: one transaction, one shared transaction code.
type Service struct {
	repo      Repository
	logger    *slog.Logger
	evaluator AchievementEvaluator
	metrics   MovementRecorder
}

// NewService builds Service. Evaluator and metrics may be nil.
func NewService(repo Repository, logger *slog.Logger, evaluator AchievementEvaluator, metrics MovementRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, evaluator: evaluator, metrics: metrics}
}

// StockIn receives goods. Lines may reference an existing item by id or code,
// or name a new one, which is created with zero stock before the increase.
func (s *Service) StockIn(ctx context.Context, req StockInRequest) (Result, error) {
	if req.Actor == "" {
		return Result{}, shared.Invalidf("actor required")
	}
	if len(req.Lines) == 0 {
		return Result{}, shared.Invalidf("at least one line required")
	}
	for i, line := range req.Lines {
		if line.Qty <= 0 {
			return Result{}, shared.Invalidf("line %d: quantity must be positive", i)
		}
		if line.ItemID == 0 && line.Code == "" && line.Name == "" {
			return Result{}, shared.Invalidf("line %d: item_id, code or name required", i)
		}
	}

	code := shared.NewCode(shared.CodePrefixStockIn)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range req.Lines {
			itemID, err := s.resolveOrCreate(ctx, tx, line)
			if err != nil {
				return err
			}
			item, err := tx.GetItemForUpdate(ctx, itemID)
			if err != nil {
				return err
			}
			if err := tx.SetItemStock(ctx, item.ID, item.Stock+line.Qty); err != nil {
				return err
			}
			unitPrice := line.Price
			if unitPrice == 0 {
				unitPrice = item.Price
			}
			costPrice := line.CostPrice
			if costPrice == 0 {
				costPrice = item.CostPrice
			}
			if _, err := tx.InsertEntry(ctx, ledger.Entry{
				TxCode:    code,
				Type:      ledger.EntryStockIn,
				ItemID:    &item.ID,
				ItemName:  item.Name,
				QtyDelta:  line.Qty,
				UnitPrice: unitPrice,
				CostPrice: costPrice,
				Note:      line.Note,
				Actor:     req.Actor,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.MovementPosted(string(ledger.EntryStockIn))
	}
	return Result{TxCode: code}, nil
}

// StockOut sells goods. Availability is re-checked under the row lock; the
// first failing line aborts the whole request with no stock or ledger effect.
func (s *Service) StockOut(ctx context.Context, req StockOutRequest) (Result, error) {
	if req.Actor == "" {
		return Result{}, shared.Invalidf("actor required")
	}
	if len(req.Lines) == 0 {
		return Result{}, shared.Invalidf("at least one line required")
	}
	for i, line := range req.Lines {
		if line.ItemID <= 0 {
			return Result{}, shared.Invalidf("line %d: item_id required", i)
		}
		if line.Qty <= 0 {
			return Result{}, shared.Invalidf("line %d: quantity must be positive", i)
		}
	}

	code := shared.NewCode(shared.CodePrefixStockOut)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range req.Lines {
			_, err := ApplyOut(ctx, tx, OutParams{
				TxCode:    code,
				Actor:     req.Actor,
				ItemID:    line.ItemID,
				Qty:       line.Qty,
				UnitPrice: line.UnitPrice,
				Note:      line.Note,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.MovementPosted(string(ledger.EntryStockOut))
	}
	s.evaluateCommission(ctx, req.Actor)
	return Result{TxCode: code}, nil
}

// Audit sets authoritative stock values, recording old and new levels. It is
// the only path that may set stock irrespective of prior movements.
func (s *Service) Audit(ctx context.Context, req AuditRequest) (Result, error) {
	if req.Actor == "" {
		return Result{}, shared.Invalidf("actor required")
	}
	if len(req.Lines) == 0 {
		return Result{}, shared.Invalidf("at least one line required")
	}
	for i, line := range req.Lines {
		if line.ItemID <= 0 {
			return Result{}, shared.Invalidf("line %d: item_id required", i)
		}
		if line.NewStock < 0 {
			return Result{}, shared.Invalidf("line %d: new_stock must not be negative", i)
		}
	}

	code := shared.NewCode(shared.CodePrefixAudit)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range req.Lines {
			item, err := tx.GetItemForUpdate(ctx, line.ItemID)
			if err != nil {
				return err
			}
			oldStock := item.Stock
			newStock := line.NewStock
			if err := tx.SetItemStock(ctx, item.ID, newStock); err != nil {
				return err
			}
			if err := tx.InsertAudit(ctx, AuditRecord{
				ItemID:   item.ID,
				OldStock: oldStock,
				NewStock: newStock,
				Note:     line.Note,
				Actor:    req.Actor,
				TxCode:   code,
			}); err != nil {
				return err
			}
			if _, err := tx.InsertEntry(ctx, ledger.Entry{
				TxCode:    code,
				Type:      ledger.EntryAudit,
				ItemID:    &item.ID,
				ItemName:  item.Name,
				QtyDelta:  newStock - oldStock,
				CostPrice: item.CostPrice,
				Note:      line.Note,
				Actor:     req.Actor,
				OldStock:  &oldStock,
				NewStock:  &newStock,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.MovementPosted(string(ledger.EntryAudit))
	}
	return Result{TxCode: code}, nil
}

func (s *Service) resolveOrCreate(ctx context.Context, tx TxRepository, line InLine) (int64, error) {
	if line.ItemID > 0 {
		return line.ItemID, nil
	}
	if line.Code != "" {
		id, err := tx.FindItemIDByCode(ctx, line.Code)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return 0, err
		}
	}
	if line.Name == "" {
		return 0, shared.Invalidf("item not found and no name to create it")
	}
	id, err := tx.FindItemIDByName(ctx, line.Name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return 0, err
	}
	return tx.CreateItem(ctx, catalog.Item{
		Code:      line.Code,
		Name:      line.Name,
		Price:     line.Price,
		CostPrice: line.CostPrice,
	})
}

// evaluateCommission runs the achievement write path after a committed sale.
// Failures are logged, not surfaced: the achievement insert is idempotent and
// the next sale re-evaluates from the ledger.
func (s *Service) evaluateCommission(ctx context.Context, actor string) {
	if s.evaluator == nil {
		return
	}
	if err := s.evaluator.Evaluate(ctx, actor); err != nil {
		s.logger.Warn("commission evaluation failed", slog.String("actor", actor), slog.Any("error", err))
	}
}
