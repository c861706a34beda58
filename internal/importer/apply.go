package importer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/store"
)

// Options tune Apply. The zero value uses the current date and
// DefaultBatchSize.
type Options struct {
	// Today is the YYYY-MM-DD date used as the last day of open-ended
	// daily shorthand ranges.
	Today     string
	BatchSize int
}

// Result summarizes an applied import.
type Result struct {
	Mode    Mode  `json:"mode"`
	Created int   `json:"created"`
	Updated int   `json:"updated"`
	Deleted int64 `json:"deleted"`
	Uses    int   `json:"uses"`
}

// Apply validates p and writes it for userID inside a single transaction.
// Either every change is committed or none is.
func Apply(ctx context.Context, db *sql.DB, userID string, p *Payload, opts Options) (Result, error) {
	if err := Validate(p); err != nil {
		return Result{}, err
	}
	if opts.Today == "" {
		opts.Today = day.Today(time.Now())
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	opts.BatchSize = min(opts.BatchSize, MaxBatchSize)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res := Result{Mode: p.Mode}

	if p.Mode == ModeReplace {
		res.Deleted, err = store.DeleteAllItems(ctx, tx, userID)
		if err != nil {
			return Result{}, err
		}
	}

	byName, err := store.ItemIDsByName(ctx, tx, userID)
	if err != nil {
		return Result{}, err
	}

	for i := range p.Items {
		it := &p.Items[i]
		cost := it.costCents()
		key := strings.ToLower(it.Name)

		itemID, ok := byName[key]
		if ok {
			if _, err := store.UpdateItemTerms(ctx, tx, userID, itemID, it.AcquiredAt, it.EndedAt, cost); err != nil {
				return Result{}, fmt.Errorf("item %q: %w", it.Name, err)
			}
			res.Updated++
		} else {
			itemID, err = store.InsertItem(ctx, tx, userID, store.ItemInput{
				Name:       it.Name,
				AcquiredAt: it.AcquiredAt,
				EndedAt:    it.EndedAt,
				CostCents:  cost,
			})
			if err != nil {
				return Result{}, fmt.Errorf("item %q: %w", it.Name, err)
			}
			byName[key] = itemID
			res.Created++
		}

		uses, err := expandUses(it, itemID, userID, opts.Today)
		if err != nil {
			return Result{}, fmt.Errorf("item %q: %w", it.Name, err)
		}
		for start := 0; start < len(uses); start += opts.BatchSize {
			end := min(start+opts.BatchSize, len(uses))
			if err := store.InsertUses(ctx, tx, uses[start:end]); err != nil {
				return Result{}, fmt.Errorf("item %q: %w", it.Name, err)
			}
		}
		res.Uses += len(uses)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("committing import: %w", err)
	}
	return res, nil
}

// expandUses returns the usage rows an item spec asks for. An explicit list
// takes precedence over the daily shorthand. The shorthand is skipped when no
// start date can be resolved.
func expandUses(it *ItemSpec, itemID, userID, today string) ([]model.ItemUse, error) {
	if len(it.Uses) > 0 {
		uses := make([]model.ItemUse, 0, len(it.Uses))
		for _, u := range it.Uses {
			uses = append(uses, model.ItemUse{
				ItemID:   itemID,
				UserID:   userID,
				UsedAt:   u.UsedAt,
				Quantity: quantityOr1(u.Quantity),
			})
		}
		return uses, nil
	}

	if it.DailyUsesTotal == nil || *it.DailyUsesTotal <= 0 {
		return nil, nil
	}
	startStr := firstDate(it.DailyUsesFrom, it.AcquiredAt)
	if startStr == "" {
		return nil, nil
	}
	untilStr := firstDate(it.DailyUsesUntil, it.EndedAt)
	if untilStr == "" {
		untilStr = today
	}

	start, err := day.Parse(startStr)
	if err != nil {
		return nil, err
	}
	until, err := day.Parse(untilStr)
	if err != nil {
		return nil, err
	}

	qty := quantityOr1(it.DailyUsesQuantity)
	var uses []model.ItemUse
	for i := range *it.DailyUsesTotal {
		d := day.AddDays(start, i)
		if d.After(until) {
			break
		}
		uses = append(uses, model.ItemUse{
			ItemID:   itemID,
			UserID:   userID,
			UsedAt:   day.Format(d),
			Quantity: qty,
		})
	}
	return uses, nil
}

func firstDate(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return ""
}

func quantityOr1(q *int) int {
	if q == nil {
		return 1
	}
	return *q
}
