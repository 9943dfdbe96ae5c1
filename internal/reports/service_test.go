package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
)

type fakeSummarizer struct {
	daily   []ledger.SummaryRow
	monthly []ledger.SummaryRow
	calls   int
}

func (f *fakeSummarizer) SummaryByDay(ctx context.Context, from, to time.Time) ([]ledger.SummaryRow, error) {
	f.calls++
	return f.daily, nil
}

func (f *fakeSummarizer) SummaryByMonth(ctx context.Context, from, to time.Time) ([]ledger.SummaryRow, error) {
	f.calls++
	return f.monthly, nil
}

func testRows() ([]ledger.SummaryRow, []ledger.SummaryRow) {
	daily := []ledger.SummaryRow{
		{Bucket: "2026-08-27", Sales: 550_000, Cost: 400_000, Service: 80_000, Charges: 75_000, Profit: 305_000},
	}
	monthly := []ledger.SummaryRow{
		{Bucket: "2026-08", Sales: 9_500_000, Cost: 7_000_000, Service: 1_200_000, Charges: 300_000, Profit: 4_000_000},
	}
	return daily, monthly
}

func newTestService(t *testing.T, f *fakeSummarizer) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(f, client, time.Minute, nil)
}

func TestSummaryAggregatesBothWindows(t *testing.T) {
	daily, monthly := testRows()
	f := &fakeSummarizer{daily: daily, monthly: monthly}
	svc := newTestService(t, f)

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, daily, sum.Daily)
	require.Equal(t, monthly, sum.Monthly)
	require.False(t, sum.GeneratedAt.IsZero())
}

func TestSummarySecondReadServedFromCache(t *testing.T) {
	daily, monthly := testRows()
	f := &fakeSummarizer{daily: daily, monthly: monthly}
	svc := newTestService(t, f)
	ctx := context.Background()

	_, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, f.calls)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, f.calls)
	require.Equal(t, daily, sum.Daily)
}

func TestRefreshBypassesCache(t *testing.T) {
	daily, monthly := testRows()
	f := &fakeSummarizer{daily: daily, monthly: monthly}
	svc := newTestService(t, f)
	ctx := context.Background()

	_, err := svc.Summary(ctx)
	require.NoError(t, err)

	f.daily = append(f.daily, ledger.SummaryRow{Bucket: "2026-08-28", Sales: 100_000, Profit: 100_000})
	sum, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, sum.Daily, 2)

	// The refreshed copy replaces the cached one.
	sum, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, sum.Daily, 2)
}

func TestExportXLSXWritesBothSheets(t *testing.T) {
	daily, monthly := testRows()
	f, err := ExportXLSX(Summary{Daily: daily, Monthly: monthly})
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	require.ElementsMatch(t, []string{"Daily", "Monthly"}, f.GetSheetList())

	rows, err := f.GetRows("Daily")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"Date", "Sales", "Cost", "Service", "Charges", "Profit"}, rows[0])
	require.Equal(t, "2026-08-27", rows[1][0])

	rows, err = f.GetRows("Monthly")
	require.NoError(t, err)
	require.Equal(t, "2026-08", rows[1][0])
}
