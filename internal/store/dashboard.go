package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/model"
)

// DefaultDays is the length of the daily usage window.
const DefaultDays = 30

// ListItemsWithMetrics returns every item owned by userID in creation order,
// each with the number of uses logged on or before min(ended_at, asOf).
// Items without matching uses report zero.
func ListItemsWithMetrics(ctx context.Context, q Querier, userID string, asOf time.Time) ([]model.ItemMetrics, error) {
	asOfStr := day.Format(asOf)
	rows, err := q.QueryContext(ctx,
		`SELECT i.id, i.name, i.acquired_at, i.ended_at, i.cost_cents, COALESCE(SUM(u.quantity), 0)
		 FROM items i
		 LEFT JOIN item_uses u
		   ON u.item_id = i.id
		  AND u.user_id = ?
		  AND u.used_at <= CASE
		        WHEN i.ended_at IS NULL THEN ?
		        WHEN i.ended_at > ? THEN ?
		        ELSE i.ended_at
		      END
		 WHERE i.user_id = ?
		 GROUP BY i.id
		 ORDER BY i.created_at, i.rowid`,
		userID, asOfStr, asOfStr, asOfStr, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item metrics: %w", err)
	}
	defer rows.Close()

	var items []model.ItemMetrics
	for rows.Next() {
		var m model.ItemMetrics
		var acquired, ended sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &acquired, &ended, &m.CostCents, &m.Uses); err != nil {
			return nil, fmt.Errorf("scanning item metrics: %w", err)
		}
		m.AcquiredAt = nullString(acquired)
		m.EndedAt = nullString(ended)
		items = append(items, m)
	}
	return items, rows.Err()
}

// GetUsesByDay returns the total uses per day for the days ending at asOf,
// oldest first. Days without uses are present with zero. A non-positive days
// falls back to DefaultDays.
func GetUsesByDay(ctx context.Context, q Querier, userID string, asOf time.Time, days int) ([]model.DayUses, error) {
	if days <= 0 {
		days = DefaultDays
	}
	end := day.Truncate(asOf)
	start := day.AddDays(end, -(days - 1))

	rows, err := q.QueryContext(ctx,
		`SELECT used_at, SUM(quantity)
		 FROM item_uses
		 WHERE user_id = ? AND used_at >= ? AND used_at <= ?
		 GROUP BY used_at
		 ORDER BY used_at`,
		userID, day.Format(start), day.Format(end),
	)
	if err != nil {
		return nil, fmt.Errorf("listing uses by day: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]int64)
	for rows.Next() {
		var d string
		var uses int64
		if err := rows.Scan(&d, &uses); err != nil {
			return nil, fmt.Errorf("scanning uses by day: %w", err)
		}
		byDay[d] = uses
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	filled := make([]model.DayUses, 0, days)
	for d := start; !d.After(end); d = day.AddDays(d, 1) {
		key := day.Format(d)
		filled = append(filled, model.DayUses{Day: key, Uses: byDay[key]})
	}
	return filled, nil
}
