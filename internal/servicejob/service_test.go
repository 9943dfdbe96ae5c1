package servicejob

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bengkelmitra/bengkelmitra/internal/catalog"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

type memoryRepo struct {
	items   map[int64]catalog.Item
	jobs    map[int64]Job
	charges map[int64]Charge
	entries []ledger.Entry
	nextID  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:   make(map[int64]catalog.Item),
		jobs:    make(map[int64]Job),
		charges: make(map[int64]Charge),
	}
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
		jobs:    make(map[int64]Job, len(r.jobs)),
		charges: make(map[int64]Charge, len(r.charges)),
		entries: append([]ledger.Entry(nil), r.entries...),
		nextID:  r.nextID,
	}
	for id, item := range r.items {
		cp.items[id] = item
	}
	for id, job := range r.jobs {
		job.Parts = append([]Part(nil), job.Parts...)
		cp.jobs[id] = job
	}
	for id, charge := range r.charges {
		cp.charges[id] = charge
	}
	return cp
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	backup := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = backup
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, shared.ErrNotFound
	}
	return job, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	var out []Job
	for _, job := range r.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (r *memoryRepo) ListCharges(ctx context.Context, serviceTxCode string) ([]Charge, error) {
	var out []Charge
	for _, charge := range r.charges {
		if charge.ServiceTxCode == serviceTxCode {
			out = append(out, charge)
		}
	}
	return out, nil
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
	item := tx.repo.items[id]
	item.Stock = stock
	tx.repo.items[id] = item
	return nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, e ledger.Entry) (int64, error) {
	e.ID = int64(len(tx.repo.entries) + 1)
	tx.repo.entries = append(tx.repo.entries, e)
	return e.ID, nil
}

func (tx *memoryTx) InsertJob(ctx context.Context, job Job) (int64, error) {
	tx.repo.nextID++
	job.ID = tx.repo.nextID
	tx.repo.jobs[job.ID] = job
	return job.ID, nil
}

func (tx *memoryTx) ReplaceParts(ctx context.Context, jobID int64, parts []Part) error {
	job, ok := tx.repo.jobs[jobID]
	if !ok {
		return shared.ErrNotFound
	}
	job.Parts = append([]Part(nil), parts...)
	tx.repo.jobs[jobID] = job
	return nil
}

func (tx *memoryTx) GetJobForUpdate(ctx context.Context, id int64) (Job, error) {
	job, ok := tx.repo.jobs[id]
	if !ok {
		return Job{}, shared.ErrNotFound
	}
	return job, nil
}

func (tx *memoryTx) SetLaborCost(ctx context.Context, id int64, cost int64) error {
	job := tx.repo.jobs[id]
	job.LaborCost = cost
	tx.repo.jobs[id] = job
	return nil
}

func (tx *memoryTx) MarkCompleted(ctx context.Context, id int64, completedBy string, completedAt time.Time) error {
	job := tx.repo.jobs[id]
	job.Status = StatusCompleted
	job.CompletedBy = completedBy
	job.CompletedAt = &completedAt
	tx.repo.jobs[id] = job
	return nil
}

func (tx *memoryTx) MarkCanceled(ctx context.Context, id int64, reason string) error {
	job := tx.repo.jobs[id]
	job.Status = StatusCanceled
	job.CancelReason = reason
	tx.repo.jobs[id] = job
	return nil
}

func (tx *memoryTx) InsertCharge(ctx context.Context, charge Charge) (int64, error) {
	tx.repo.nextID++
	charge.ID = tx.repo.nextID
	tx.repo.charges[charge.ID] = charge
	return charge.ID, nil
}

func (tx *memoryTx) GetChargeForUpdate(ctx context.Context, id int64) (Charge, error) {
	charge, ok := tx.repo.charges[id]
	if !ok {
		return Charge{}, shared.ErrNotFound
	}
	return charge, nil
}

func (tx *memoryTx) ListActiveCharges(ctx context.Context, serviceTxCode string) ([]Charge, error) {
	var out []Charge
	for _, charge := range tx.repo.charges {
		if charge.ServiceTxCode == serviceTxCode && charge.Status == ChargeActive {
			out = append(out, charge)
		}
	}
	return out, nil
}

func (tx *memoryTx) SetChargeCanceled(ctx context.Context, id int64) error {
	charge := tx.repo.charges[id]
	charge.Status = ChargeCanceled
	tx.repo.charges[id] = charge
	return nil
}

func entriesOfType(entries []ledger.Entry, typ ledger.EntryType) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestCreateOpensOngoingJobWithoutStockEffect(t *testing.T) {
	repo := newMemoryRepo()
	oil := repo.addItem(catalog.Item{Name: "Oli mesin", Stock: 5, Price: 55000})
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{
		Name:      "Servis CVT",
		LaborCost: 80000,
		Parts:     []Part{{ItemID: oil.ID, Qty: 1}},
		Actor:     "admin1",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(job.TxCode, "SRV-"))
	require.Equal(t, StatusOngoing, job.Status)

	require.EqualValues(t, 5, repo.items[oil.ID].Stock)
	require.Empty(t, repo.entries)
}

func TestCompleteWritesServiceEntryAndDrawsParts(t *testing.T) {
	repo := newMemoryRepo()
	oil := repo.addItem(catalog.Item{Name: "Oli mesin", Stock: 5, Price: 55000, CostPrice: 40000})
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{
		Name:      "Ganti oli",
		LaborCost: 30000,
		Parts:     []Part{{ItemID: oil.ID, Qty: 2}},
		Actor:     "admin1",
	})
	require.NoError(t, err)

	done, err := svc.Complete(context.Background(), job.ID, "mekanik1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, "mekanik1", done.CompletedBy)
	require.NotNil(t, done.CompletedAt)

	require.EqualValues(t, 3, repo.items[oil.ID].Stock)

	serviceEntries := entriesOfType(repo.entries, ledger.EntryService)
	require.Len(t, serviceEntries, 1)
	require.EqualValues(t, 30000, serviceEntries[0].UnitPrice)
	require.Equal(t, job.TxCode, serviceEntries[0].TxCode)

	outEntries := entriesOfType(repo.entries, ledger.EntryStockOut)
	require.Len(t, outEntries, 1)
	require.EqualValues(t, -2, outEntries[0].QtyDelta)
	require.Equal(t, job.TxCode, outEntries[0].TxCode)
	require.NotNil(t, outEntries[0].ServiceTxCode)
	require.Equal(t, job.TxCode, *outEntries[0].ServiceTxCode)
}

func TestCompleteFailsAtomicallyOnMissingStock(t *testing.T) {
	repo := newMemoryRepo()
	oil := repo.addItem(catalog.Item{Name: "Oli mesin", Stock: 1})
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{
		Name:  "Ganti oli",
		Parts: []Part{{ItemID: oil.ID, Qty: 3}},
		Actor: "admin1",
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), job.ID, "mekanik1")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	got, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOngoing, got.Status)
	require.EqualValues(t, 1, repo.items[oil.ID].Stock)
	require.Empty(t, repo.entries)
}

func TestCompleteRejectsTerminalStates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{Name: "Servis ringan", Actor: "admin1"})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), job.ID, "pelanggan batal", "admin1")
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), job.ID, "mekanik1")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.Cancel(context.Background(), job.ID, "lagi", "admin1")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestMutationLockedAfterCompletion(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{Name: "Servis ringan", Actor: "admin1"})
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), job.ID, "mekanik1")
	require.NoError(t, err)

	err = svc.UpdateLaborCost(context.Background(), job.ID, 99000)
	require.ErrorIs(t, err, shared.ErrLocked)

	err = svc.UpdateParts(context.Background(), job.ID, nil)
	require.ErrorIs(t, err, shared.ErrLocked)

	_, err = svc.AddCharge(context.Background(), job.ID, "derek", 50000, "admin1")
	require.ErrorIs(t, err, shared.ErrLocked)
}

func TestAddChargeWritesImmediateLedgerEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{Name: "Turun mesin", Actor: "admin1"})
	require.NoError(t, err)

	charge, err := svc.AddCharge(context.Background(), job.ID, "derek", 75000, "admin1")
	require.NoError(t, err)
	require.Equal(t, ChargeActive, charge.Status)
	require.Equal(t, job.TxCode, charge.ServiceTxCode)

	chargeEntries := entriesOfType(repo.entries, ledger.EntryCharge)
	require.Len(t, chargeEntries, 1)
	require.True(t, strings.HasPrefix(chargeEntries[0].TxCode, "CHG-"))
	require.EqualValues(t, 75000, chargeEntries[0].UnitPrice)
	require.NotNil(t, chargeEntries[0].ServiceTxCode)
	require.Equal(t, job.TxCode, *chargeEntries[0].ServiceTxCode)
}

func TestCancelChargeCompensatesInsteadOfDeleting(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{Name: "Turun mesin", Actor: "admin1"})
	require.NoError(t, err)
	charge, err := svc.AddCharge(context.Background(), job.ID, "derek", 75000, "admin1")
	require.NoError(t, err)

	require.NoError(t, svc.CancelCharge(context.Background(), charge.ID, "owner1"))
	require.Equal(t, ChargeCanceled, repo.charges[charge.ID].Status)

	chargeEntries := entriesOfType(repo.entries, ledger.EntryCharge)
	require.Len(t, chargeEntries, 2)
	require.EqualValues(t, 75000, chargeEntries[0].UnitPrice)
	require.EqualValues(t, -75000, chargeEntries[1].UnitPrice)

	// Second cancel is a no-op, no extra compensation.
	require.NoError(t, svc.CancelCharge(context.Background(), charge.ID, "owner1"))
	require.Len(t, entriesOfType(repo.entries, ledger.EntryCharge), 2)
}

func TestCancelJobCascadesToActiveCharges(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{Name: "Turun mesin", Actor: "admin1"})
	require.NoError(t, err)
	first, err := svc.AddCharge(context.Background(), job.ID, "derek", 75000, "admin1")
	require.NoError(t, err)
	second, err := svc.AddCharge(context.Background(), job.ID, "sparepart luar", 120000, "admin1")
	require.NoError(t, err)
	require.NoError(t, svc.CancelCharge(context.Background(), first.ID, "admin1"))

	canceled, err := svc.Cancel(context.Background(), job.ID, "pelanggan batal", "owner1")
	require.NoError(t, err)
	require.Equal(t, StatusCanceled, canceled.Status)
	require.Equal(t, "pelanggan batal", canceled.CancelReason)

	require.Equal(t, ChargeCanceled, repo.charges[second.ID].Status)

	// first: add + cancel, second: add + cascade cancel = 4 charge entries.
	chargeEntries := entriesOfType(repo.entries, ledger.EntryCharge)
	require.Len(t, chargeEntries, 4)
	var sum int64
	for _, e := range chargeEntries {
		sum += e.UnitPrice
	}
	require.Zero(t, sum)
}

func TestChargesListedByJob(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	job, err := svc.Create(context.Background(), CreateRequest{Name: "Servis besar", Actor: "admin1"})
	require.NoError(t, err)
	_, err = svc.AddCharge(context.Background(), job.ID, "derek", 75000, "admin1")
	require.NoError(t, err)

	charges, err := svc.Charges(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	require.Equal(t, "derek", charges[0].Label)
}
