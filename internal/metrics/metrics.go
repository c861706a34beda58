// Package metrics derives holding days, cost per use and portfolio totals
// from item rows already fetched by the store.
package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/model"
)

// HoldingDays returns the whole days between acquired and asOf, clamped to
// zero. It returns nil when acquired is absent or not a valid date.
func HoldingDays(acquired *string, asOf time.Time) *int {
	if acquired == nil {
		return nil
	}
	from, err := day.Parse(*acquired)
	if err != nil {
		return nil
	}
	n := max(day.DaysBetween(from, asOf), 0)
	return &n
}

// CostPerUse returns cost divided by uses rounded to the nearest cent, or nil
// when there are no uses.
func CostPerUse(costCents, uses int64) *int64 {
	if uses <= 0 {
		return nil
	}
	v := decimal.NewFromInt(costCents).
		Div(decimal.NewFromInt(uses)).
		Round(0).
		IntPart()
	return &v
}

// Summarize derives per-item metrics and portfolio totals as of asOf.
func Summarize(items []model.ItemMetrics, asOf time.Time) ([]model.ItemRow, model.Totals) {
	rows := make([]model.ItemRow, 0, len(items))
	var totals model.Totals
	for _, it := range items {
		rows = append(rows, model.ItemRow{
			ItemMetrics:     it,
			HoldingDays:     HoldingDays(it.AcquiredAt, asOf),
			CostPerUseCents: CostPerUse(it.CostCents, it.Uses),
		})
		totals.CostCents += it.CostCents
		totals.Uses += it.Uses
	}
	totals.AvgCostPerUseCents = CostPerUse(totals.CostCents, totals.Uses)
	return rows, totals
}
