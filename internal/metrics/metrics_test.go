package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/holdfolio/internal/model"
)

func ptr[T any](v T) *T { return &v }

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestHoldingDays(t *testing.T) {
	asOf := date(t, "2026-01-31")

	require.Nil(t, HoldingDays(nil, asOf))
	require.Nil(t, HoldingDays(ptr("not-a-date"), asOf))
	require.Equal(t, 30, *HoldingDays(ptr("2026-01-01"), asOf))
	require.Equal(t, 0, *HoldingDays(ptr("2026-01-31"), asOf))
	require.Equal(t, 0, *HoldingDays(ptr("2026-03-01"), asOf), "future acquisition clamps to zero")
}

func TestCostPerUse(t *testing.T) {
	require.Nil(t, CostPerUse(1000, 0))
	require.Equal(t, int64(333), *CostPerUse(1000, 3))
	require.Equal(t, int64(667), *CostPerUse(2000, 3))
	require.Equal(t, int64(1), *CostPerUse(1, 2), "half rounds up")
	require.Equal(t, int64(0), *CostPerUse(0, 5))
}

func TestSummarize(t *testing.T) {
	asOf := date(t, "2026-01-11")
	items := []model.ItemMetrics{
		{ID: "a", Name: "Laptop", AcquiredAt: ptr("2026-01-01"), CostCents: 100000, Uses: 10},
		{ID: "b", Name: "Unused", CostCents: 5000},
		{ID: "c", Name: "Mug", AcquiredAt: ptr("2026-01-10"), CostCents: 1000, Uses: 3},
	}

	rows, totals := Summarize(items, asOf)
	require.Len(t, rows, 3)

	require.Equal(t, 10, *rows[0].HoldingDays)
	require.Equal(t, int64(10000), *rows[0].CostPerUseCents)

	require.Nil(t, rows[1].HoldingDays)
	require.Nil(t, rows[1].CostPerUseCents)
	require.Zero(t, rows[1].Uses)

	require.Equal(t, 1, *rows[2].HoldingDays)
	require.Equal(t, int64(333), *rows[2].CostPerUseCents)

	require.Equal(t, int64(106000), totals.CostCents)
	require.Equal(t, int64(13), totals.Uses)
	require.Equal(t, int64(8154), *totals.AvgCostPerUseCents)
}

func TestSummarizeEmpty(t *testing.T) {
	rows, totals := Summarize(nil, time.Now())
	require.Empty(t, rows)
	require.Zero(t, totals.CostCents)
	require.Nil(t, totals.AvgCostPerUseCents)
}
