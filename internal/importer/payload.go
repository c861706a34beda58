// Package importer applies bulk JSON imports of items and their uses.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/money"
)

// Mode selects how an import treats the user's existing items.
type Mode string

const (
	// ModeMerge updates items matched by case-insensitive name and creates
	// the rest.
	ModeMerge Mode = "merge"
	// ModeReplace deletes all of the user's items before importing.
	ModeReplace Mode = "replace"
)

// Limits of the daily-use shorthand.
const (
	MaxDailyUsesTotal = 20000
	DefaultBatchSize  = 500
	// MaxBatchSize keeps one insert under SQLite's 32766 bound variables at
	// five per use row.
	MaxBatchSize = 32766 / 5
)

// Payload is the top-level import document.
type Payload struct {
	Mode  Mode       `json:"mode,omitempty"`
	Items []ItemSpec `json:"items"`
}

// ItemSpec describes one item to create or update.
type ItemSpec struct {
	Name       string  `json:"name"`
	AcquiredAt *string `json:"acquiredAt,omitempty"`
	EndedAt    *string `json:"endedAt,omitempty"`
	CostCents  *int64  `json:"costCents,omitempty"`
	Cost       *string `json:"cost,omitempty"`
	Uses       []Use   `json:"uses,omitempty"`

	DailyUsesTotal    *int    `json:"dailyUsesTotal,omitempty"`
	DailyUsesQuantity *int    `json:"dailyUsesQuantity,omitempty"`
	DailyUsesFrom     *string `json:"dailyUsesFrom,omitempty"`
	DailyUsesUntil    *string `json:"dailyUsesUntil,omitempty"`
}

// Use is an explicit usage entry.
type Use struct {
	UsedAt   string `json:"usedAt"`
	Quantity *int   `json:"quantity,omitempty"`
}

// ValidationError reports every problem found in a payload. Nothing is
// written when it is returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid import: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Parse decodes and validates an import document. Unknown fields and
// trailing data are rejected.
func Parse(r io.Reader) (*Payload, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, &ValidationError{Problems: []string{decodeProblem(err)}}
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, &ValidationError{Problems: []string{"unexpected data after JSON document"}}
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(b []byte) (*Payload, error) {
	return Parse(bytes.NewReader(b))
}

func decodeProblem(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "document"
		}
		return fmt.Sprintf("%s: unexpected JSON %s", field, typeErr.Value)
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.EOF):
		return "empty document"
	default:
		return err.Error()
	}
}

// Validate checks p and normalizes it in place: the mode defaults to merge
// and item names are trimmed.
func Validate(p *Payload) error {
	verr := &ValidationError{}

	switch p.Mode {
	case "":
		p.Mode = ModeMerge
	case ModeMerge, ModeReplace:
	default:
		verr.add("mode: must be %q or %q", ModeMerge, ModeReplace)
	}

	if p.Items == nil {
		verr.add("items: required")
	}

	for i := range p.Items {
		it := &p.Items[i]
		path := fmt.Sprintf("items[%d]", i)

		it.Name = strings.TrimSpace(it.Name)
		if n := utf8.RuneCountInString(it.Name); n < 1 || n > model.MaxNameLength {
			verr.add("%s.name: must be 1-%d characters", path, model.MaxNameLength)
		}

		checkDate(verr, path+".acquiredAt", it.AcquiredAt)
		checkDate(verr, path+".endedAt", it.EndedAt)
		checkDate(verr, path+".dailyUsesFrom", it.DailyUsesFrom)
		checkDate(verr, path+".dailyUsesUntil", it.DailyUsesUntil)

		if it.CostCents != nil && *it.CostCents < 0 {
			verr.add("%s.costCents: must not be negative", path)
		} else if it.CostCents == nil && it.Cost != nil && money.ParseCents(*it.Cost) < 0 {
			verr.add("%s.cost: must not be negative", path)
		}

		for j, u := range it.Uses {
			upath := fmt.Sprintf("%s.uses[%d]", path, j)
			if !day.Valid(u.UsedAt) {
				verr.add("%s.usedAt: must be a YYYY-MM-DD date", upath)
			}
			checkQuantity(verr, upath+".quantity", u.Quantity)
		}

		if it.DailyUsesTotal != nil && (*it.DailyUsesTotal < 0 || *it.DailyUsesTotal > MaxDailyUsesTotal) {
			verr.add("%s.dailyUsesTotal: must be 0-%d", path, MaxDailyUsesTotal)
		}
		checkQuantity(verr, path+".dailyUsesQuantity", it.DailyUsesQuantity)
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func checkDate(verr *ValidationError, path string, s *string) {
	if s != nil && !day.Valid(*s) {
		verr.add("%s: must be a YYYY-MM-DD date", path)
	}
}

func checkQuantity(verr *ValidationError, path string, q *int) {
	if q != nil && (*q < model.MinQuantity || *q > model.MaxQuantity) {
		verr.add("%s: must be %d-%d", path, model.MinQuantity, model.MaxQuantity)
	}
}

// costCents resolves the item's cost: explicit cents win, then the money
// string, then zero.
func (it *ItemSpec) costCents() int64 {
	if it.CostCents != nil {
		return *it.CostCents
	}
	if it.Cost != nil {
		return money.ParseCents(*it.Cost)
	}
	return 0
}

// Sample returns an example document for mode, as shown on the import page.
func Sample(mode Mode) string {
	if mode != ModeReplace {
		mode = ModeMerge
	}
	acquired, cost := "2025-10-12", "249.00"
	one, two := 1, 2
	p := Payload{
		Mode: mode,
		Items: []ItemSpec{{
			Name:       "AirPods Pro",
			AcquiredAt: &acquired,
			Cost:       &cost,
			Uses: []Use{
				{UsedAt: "2026-02-01", Quantity: &one},
				{UsedAt: "2026-02-02", Quantity: &two},
			},
		}},
	}
	b, _ := json.MarshalIndent(p, "", "  ")
	return string(b)
}
