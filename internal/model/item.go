package model

import "time"

// Item is a tracked possession owned by a single user.
type Item struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	Name       string    `json:"name"`
	AcquiredAt *string   `json:"acquiredAt"`
	EndedAt    *string   `json:"endedAt"`
	CostCents  int64     `json:"costCents"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ItemUse records one or more uses of an item on a given day.
type ItemUse struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	UserID    string    `json:"-"`
	UsedAt    string    `json:"usedAt"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// Item name bounds and use quantity bounds.
const (
	MaxNameLength = 200
	MinQuantity   = 1
	MaxQuantity   = 100
)
