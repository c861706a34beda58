package model

// ItemMetrics is an item together with its use count as of a date.
type ItemMetrics struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	AcquiredAt *string `json:"acquiredAt"`
	EndedAt    *string `json:"endedAt"`
	CostCents  int64   `json:"costCents"`
	Uses       int64   `json:"uses"`
}

// ItemRow is an ItemMetrics row with the derived per-item metrics.
type ItemRow struct {
	ItemMetrics
	HoldingDays     *int   `json:"holdingDays"`
	CostPerUseCents *int64 `json:"costPerUseCents"`
}

// Totals aggregates the derived metrics across a user's items.
type Totals struct {
	CostCents          int64  `json:"totalCostCents"`
	Uses               int64  `json:"totalUses"`
	AvgCostPerUseCents *int64 `json:"avgCostPerUseCents"`
}

// DayUses is the number of uses logged on one calendar day.
type DayUses struct {
	Day  string `json:"day"`
	Uses int64  `json:"uses"`
}
