package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/money"
)

// ItemInput is a validated set of item attributes.
type ItemInput struct {
	Name       string
	AcquiredAt *string
	EndedAt    *string
	CostCents  int64
}

// ValidateItemInput validates raw item fields as entered by a user. Empty
// dates mean "not set"; cost is a free-form money string.
func ValidateItemInput(name, acquiredAt, endedAt, cost string) (ItemInput, error) {
	in := ItemInput{Name: strings.TrimSpace(name)}

	if n := utf8.RuneCountInString(in.Name); n == 0 || n > model.MaxNameLength {
		return ItemInput{}, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalid, model.MaxNameLength)
	}

	var err error
	if in.AcquiredAt, err = optionalDate(acquiredAt); err != nil {
		return ItemInput{}, fmt.Errorf("%w: acquired date: %v", ErrInvalid, err)
	}
	if in.EndedAt, err = optionalDate(endedAt); err != nil {
		return ItemInput{}, fmt.Errorf("%w: end date: %v", ErrInvalid, err)
	}

	in.CostCents = money.ParseCents(cost)
	if in.CostCents < 0 {
		return ItemInput{}, fmt.Errorf("%w: cost must not be negative", ErrInvalid)
	}

	return in, nil
}

func optionalDate(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if _, err := day.Parse(s); err != nil {
		return nil, err
	}
	return &s, nil
}

const itemColumns = `id, user_id, name, acquired_at, ended_at, cost_cents, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var acquired, ended sql.NullString
	if err := row.Scan(&item.ID, &item.UserID, &item.Name, &acquired, &ended,
		&item.CostCents, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.AcquiredAt = nullString(acquired)
	item.EndedAt = nullString(ended)
	return item, nil
}

// CreateItem inserts a new item owned by userID.
func CreateItem(ctx context.Context, q Querier, userID string, in ItemInput) (*model.Item, error) {
	id, err := InsertItem(ctx, q, userID, in)
	if err != nil {
		return nil, err
	}
	return GetItem(ctx, q, userID, id)
}

// InsertItem inserts a new item and returns its id.
func InsertItem(ctx context.Context, q Querier, userID string, in ItemInput) (string, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx,
		`INSERT INTO items (id, user_id, name, acquired_at, ended_at, cost_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, in.Name, stringArg(in.AcquiredAt), stringArg(in.EndedAt), in.CostCents,
	)
	if err != nil {
		return "", fmt.Errorf("creating item: %w", err)
	}
	return id, nil
}

// GetItem returns an item by ID, or nil if it does not exist or is owned by
// someone else.
func GetItem(ctx context.Context, q Querier, userID, id string) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ? AND user_id = ?`, id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items owned by userID in creation order.
func ListItems(ctx context.Context, q Querier, userID string) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE user_id = ? ORDER BY created_at, rowid`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem replaces an item's name, dates and cost. Updating an item that
// does not exist or is not owned by userID affects zero rows and is not an
// error.
func UpdateItem(ctx context.Context, q Querier, userID, id string, in ItemInput) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET name = ?, acquired_at = ?, ended_at = ?, cost_cents = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		in.Name, stringArg(in.AcquiredAt), stringArg(in.EndedAt), in.CostCents, id, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("updating item: %w", err)
	}
	return result.RowsAffected()
}

// UpdateItemTerms replaces an item's dates and cost, leaving its name as is.
func UpdateItemTerms(ctx context.Context, q Querier, userID, id string, acquiredAt, endedAt *string, costCents int64) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET acquired_at = ?, ended_at = ?, cost_cents = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		stringArg(acquiredAt), stringArg(endedAt), costCents, id, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("updating item terms: %w", err)
	}
	return result.RowsAffected()
}

// DeleteItem deletes an item and, by cascade, its uses.
func DeleteItem(ctx context.Context, q Querier, userID, id string) (int64, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting item: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAllItems deletes every item owned by userID.
func DeleteAllItems(ctx context.Context, q Querier, userID string) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM items WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting items: %w", err)
	}
	return result.RowsAffected()
}

// ItemIDsByName maps the lowercased name of each of userID's items to its id.
// When names collide, the most recently created item wins.
func ItemIDsByName(ctx context.Context, q Querier, userID string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name FROM items WHERE user_id = ? ORDER BY created_at, rowid`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item names: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning item name: %w", err)
		}
		byName[strings.ToLower(name)] = id
	}
	return byName, rows.Err()
}
