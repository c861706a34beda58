package importer

import (
	"context"
	"slices"

	"github.com/erazemk/holdfolio/internal/store"
)

// Export builds a replace-mode document holding every item userID owns with
// its explicit uses, oldest first. Applying it restores the same items and
// use rows.
func Export(ctx context.Context, q store.Querier, userID string) (*Payload, error) {
	items, err := store.ListItems(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	p := &Payload{Mode: ModeReplace, Items: make([]ItemSpec, 0, len(items))}
	for _, item := range items {
		uses, err := store.ListItemUses(ctx, q, userID, item.ID)
		if err != nil {
			return nil, err
		}
		slices.Reverse(uses)

		cost := item.CostCents
		spec := ItemSpec{
			Name:       item.Name,
			AcquiredAt: item.AcquiredAt,
			EndedAt:    item.EndedAt,
			CostCents:  &cost,
		}
		for _, u := range uses {
			quantity := u.Quantity
			spec.Uses = append(spec.Uses, Use{UsedAt: u.UsedAt, Quantity: &quantity})
		}
		p.Items = append(p.Items, spec)
	}
	return p, nil
}
