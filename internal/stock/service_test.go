package stock

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bengkelmitra/bengkelmitra/internal/catalog"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

type memoryRepo struct {
	items   map[int64]catalog.Item
	entries []ledger.Entry
	audits  []AuditRecord
	nextID  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]catalog.Item)}
}

func (r *memoryRepo) addItem(item catalog.Item) catalog.Item {
	r.nextID++
	item.ID = r.nextID
	r.items[item.ID] = item
	return item
}

func (r *memoryRepo) snapshot() memoryRepo {
	cp := memoryRepo{
		items:   make(map[int64]catalog.Item, len(r.items)),
		entries: append([]ledger.Entry(nil), r.entries...),
		audits:  append([]AuditRecord(nil), r.audits...),
		nextID:  r.nextID,
	}
	for id, item := range r.items {
		cp.items[id] = item
	}
	return cp
}

// WithTx restores the snapshot on error so tests observe rollback semantics.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	backup := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = backup
		return err
	}
	return nil
}

func (tx *memoryTx) GetItemForUpdate(ctx context.Context, id int64) (catalog.Item, error) {
	item, ok := tx.repo.items[id]
	if !ok {
		return catalog.Item{}, shared.ErrNotFound
	}
	return item, nil
}

func (tx *memoryTx) SetItemStock(ctx context.Context, id int64, stock int64) error {
	if stock < 0 {
		return shared.Invalidf("stock must not be negative")
	}
	item, ok := tx.repo.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	item.Stock = stock
	tx.repo.items[id] = item
	return nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, e ledger.Entry) (int64, error) {
	e.ID = int64(len(tx.repo.entries) + 1)
	tx.repo.entries = append(tx.repo.entries, e)
	return e.ID, nil
}

func (tx *memoryTx) FindItemIDByCode(ctx context.Context, code string) (int64, error) {
	for id, item := range tx.repo.items {
		if item.Code == code {
			return id, nil
		}
	}
	return 0, shared.ErrNotFound
}

func (tx *memoryTx) FindItemIDByName(ctx context.Context, name string) (int64, error) {
	for id, item := range tx.repo.items {
		if item.Name == name {
			return id, nil
		}
	}
	return 0, shared.ErrNotFound
}

func (tx *memoryTx) CreateItem(ctx context.Context, item catalog.Item) (int64, error) {
	return tx.repo.addItem(item).ID, nil
}

func (tx *memoryTx) InsertAudit(ctx context.Context, rec AuditRecord) error {
	tx.repo.audits = append(tx.repo.audits, rec)
	return nil
}

type recordingEvaluator struct {
	calls []string
}

func (e *recordingEvaluator) Evaluate(ctx context.Context, username string) error {
	e.calls = append(e.calls, username)
	return nil
}

func TestStockInIncreasesStockAndWritesLedger(t *testing.T) {
	repo := newMemoryRepo()
	oil := repo.addItem(catalog.Item{Name: "Oli mesin", Price: 55000, CostPrice: 40000, Stock: 2})
	svc := NewService(repo, nil, nil, nil)

	res, err := svc.StockIn(context.Background(), StockInRequest{
		Actor: "admin1",
		Lines: []InLine{{ItemID: oil.ID, Qty: 10, CostPrice: 42000}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.TxCode, "MSK-"))

	require.EqualValues(t, 12, repo.items[oil.ID].Stock)
	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Equal(t, ledger.EntryStockIn, entry.Type)
	require.EqualValues(t, 10, entry.QtyDelta)
	require.EqualValues(t, 42000, entry.CostPrice)
	require.Equal(t, res.TxCode, entry.TxCode)
}

func TestStockInCreatesUnknownItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.StockIn(context.Background(), StockInRequest{
		Actor: "admin1",
		Lines: []InLine{{Name: "Busi NGK", Qty: 4, Price: 25000, CostPrice: 15000}},
	})
	require.NoError(t, err)
	require.Len(t, repo.items, 1)
	for _, item := range repo.items {
		require.Equal(t, "Busi NGK", item.Name)
		require.EqualValues(t, 4, item.Stock)
	}
}

func TestStockInResolvesByCodeBeforeName(t *testing.T) {
	repo := newMemoryRepo()
	existing := repo.addItem(catalog.Item{Code: "BR-01", Name: "Kampas rem", Stock: 1})
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.StockIn(context.Background(), StockInRequest{
		Actor: "admin1",
		Lines: []InLine{{Code: "BR-01", Name: "some other name", Qty: 3}},
	})
	require.NoError(t, err)
	require.Len(t, repo.items, 1)
	require.EqualValues(t, 4, repo.items[existing.ID].Stock)
}

func TestStockOutDecreasesStockAndEvaluatesCommission(t *testing.T) {
	repo := newMemoryRepo()
	oil := repo.addItem(catalog.Item{Name: "Oli mesin", Price: 55000, CostPrice: 40000, Stock: 5})
	eval := &recordingEvaluator{}
	svc := NewService(repo, nil, eval, nil)

	res, err := svc.StockOut(context.Background(), StockOutRequest{
		Actor: "mekanik1",
		Lines: []OutLine{{ItemID: oil.ID, Qty: 2}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.TxCode, "PJL-"))

	require.EqualValues(t, 3, repo.items[oil.ID].Stock)
	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Equal(t, ledger.EntryStockOut, entry.Type)
	require.EqualValues(t, -2, entry.QtyDelta)
	require.EqualValues(t, 55000, entry.UnitPrice)
	require.EqualValues(t, 40000, entry.CostPrice)
	require.Equal(t, []string{"mekanik1"}, eval.calls)
}

func TestStockOutSharesOneTransactionCode(t *testing.T) {
	repo := newMemoryRepo()
	a := repo.addItem(catalog.Item{Name: "A", Stock: 10})
	b := repo.addItem(catalog.Item{Name: "B", Stock: 10})
	svc := NewService(repo, nil, nil, nil)

	res, err := svc.StockOut(context.Background(), StockOutRequest{
		Actor: "admin1",
		Lines: []OutLine{{ItemID: a.ID, Qty: 1}, {ItemID: b.ID, Qty: 2}},
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 2)
	require.Equal(t, res.TxCode, repo.entries[0].TxCode)
	require.Equal(t, res.TxCode, repo.entries[1].TxCode)
}

func TestStockOutInsufficientStockRollsBackEverything(t *testing.T) {
	repo := newMemoryRepo()
	a := repo.addItem(catalog.Item{Name: "A", Stock: 5})
	b := repo.addItem(catalog.Item{Name: "B", Stock: 1})
	eval := &recordingEvaluator{}
	svc := NewService(repo, nil, eval, nil)

	_, err := svc.StockOut(context.Background(), StockOutRequest{
		Actor: "admin1",
		Lines: []OutLine{{ItemID: a.ID, Qty: 3}, {ItemID: b.ID, Qty: 3}},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	var detail *shared.InsufficientStockError
	require.True(t, errors.As(err, &detail))
	require.Equal(t, b.ID, detail.ItemID)
	require.EqualValues(t, 3, detail.Requested)
	require.EqualValues(t, 1, detail.Available)

	// First line must not survive the failed second line.
	require.EqualValues(t, 5, repo.items[a.ID].Stock)
	require.EqualValues(t, 1, repo.items[b.ID].Stock)
	require.Empty(t, repo.entries)
	require.Empty(t, eval.calls)
}

func TestStockOutRejectsInvalidRequests(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.StockOut(ctx, StockOutRequest{Actor: "admin1"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.StockOut(ctx, StockOutRequest{Lines: []OutLine{{ItemID: 1, Qty: 1}}})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.StockOut(ctx, StockOutRequest{Actor: "admin1", Lines: []OutLine{{ItemID: 1, Qty: 0}}})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestAuditRecordsOldAndNewLevels(t *testing.T) {
	repo := newMemoryRepo()
	oil := repo.addItem(catalog.Item{Name: "Oli mesin", CostPrice: 40000, Stock: 9})
	svc := NewService(repo, nil, nil, nil)

	res, err := svc.Audit(context.Background(), AuditRequest{
		Actor: "owner1",
		Lines: []AuditLine{{ItemID: oil.ID, NewStock: 6, Note: "opname akhir bulan"}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.TxCode, "AUD-"))

	require.EqualValues(t, 6, repo.items[oil.ID].Stock)
	require.Len(t, repo.audits, 1)
	require.EqualValues(t, 9, repo.audits[0].OldStock)
	require.EqualValues(t, 6, repo.audits[0].NewStock)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Equal(t, ledger.EntryAudit, entry.Type)
	require.EqualValues(t, -3, entry.QtyDelta)
	require.NotNil(t, entry.OldStock)
	require.NotNil(t, entry.NewStock)
	require.EqualValues(t, 9, *entry.OldStock)
	require.EqualValues(t, 6, *entry.NewStock)
}

func TestAuditRejectsNegativeTarget(t *testing.T) {
	repo := newMemoryRepo()
	oil := repo.addItem(catalog.Item{Name: "Oli mesin", Stock: 2})
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Audit(context.Background(), AuditRequest{
		Actor: "owner1",
		Lines: []AuditLine{{ItemID: oil.ID, NewStock: -1}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	require.EqualValues(t, 2, repo.items[oil.ID].Stock)
}
