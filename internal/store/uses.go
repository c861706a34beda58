package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/holdfolio/internal/model"
)

// LogUse records quantity uses of an item on usedAt. The item is referenced
// by id only; ownership of the item is not checked. ErrUnknownItem is
// returned when no item has that id.
func LogUse(ctx context.Context, q Querier, userID, itemID, usedAt string, quantity int) (*model.ItemUse, error) {
	if quantity < model.MinQuantity || quantity > model.MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must be %d-%d", ErrInvalid, model.MinQuantity, model.MaxQuantity)
	}

	use := model.ItemUse{
		ID:       uuid.NewString(),
		ItemID:   itemID,
		UserID:   userID,
		UsedAt:   usedAt,
		Quantity: quantity,
	}
	if err := InsertUses(ctx, q, []model.ItemUse{use}); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUnknownItem
		}
		return nil, err
	}
	return &use, nil
}

// InsertUses inserts all uses with a single statement. Uses without an id get
// a fresh one.
func InsertUses(ctx context.Context, q Querier, uses []model.ItemUse) error {
	if len(uses) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO item_uses (id, item_id, user_id, used_at, quantity) VALUES `)
	args := make([]any, 0, len(uses)*5)
	for i, u := range uses {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		id := u.ID
		if id == "" {
			id = uuid.NewString()
		}
		args = append(args, id, u.ItemID, u.UserID, u.UsedAt, u.Quantity)
	}

	if _, err := q.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("inserting item uses: %w", err)
	}
	return nil
}

// ListItemUses returns the uses userID logged against an item, newest first.
func ListItemUses(ctx context.Context, q Querier, userID, itemID string) ([]model.ItemUse, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, item_id, user_id, used_at, quantity, created_at
		 FROM item_uses WHERE item_id = ? AND user_id = ?
		 ORDER BY used_at DESC, created_at DESC`, itemID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item uses: %w", err)
	}
	defer rows.Close()

	var uses []model.ItemUse
	for rows.Next() {
		var u model.ItemUse
		if err := rows.Scan(&u.ID, &u.ItemID, &u.UserID, &u.UsedAt, &u.Quantity, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning item use: %w", err)
		}
		uses = append(uses, u)
	}
	return uses, rows.Err()
}
