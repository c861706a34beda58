package importer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/db"
	"github.com/erazemk/holdfolio/internal/store"
)

const user = "user-1"

func mustParse(t *testing.T, doc string) *Payload {
	t.Helper()
	p, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return p
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := day.Parse(s)
	require.NoError(t, err)
	return d
}

func TestParseDefaultsAndTrims(t *testing.T) {
	p := mustParse(t, `{"items":[{"name":"  Kettle  ","cost":"$12.50"}]}`)
	require.Equal(t, ModeMerge, p.Mode)
	require.Equal(t, "Kettle", p.Items[0].Name)
	require.Equal(t, int64(1250), p.Items[0].costCents())
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name, doc, problem string
	}{
		{"malformed", `{"items": [`, "malformed JSON"},
		{"empty", ``, "empty document"},
		{"not an object", `[]`, "document"},
		{"unknown field", `{"items":[],"extra":1}`, "unknown field"},
		{"trailing data", `{"items":[]} {}`, "unexpected data"},
		{"missing items", `{"mode":"merge"}`, "items: required"},
		{"bad mode", `{"mode":"append","items":[]}`, "mode"},
		{"blank name", `{"items":[{"name":"   "}]}`, "items[0].name"},
		{"long name", `{"items":[{"name":"` + strings.Repeat("a", 201) + `"}]}`, "items[0].name"},
		{"bad date", `{"items":[{"name":"A","acquiredAt":"2026-1-01"}]}`, "items[0].acquiredAt"},
		{"timestamp date", `{"items":[{"name":"A","endedAt":"2026-01-01T00:00:00Z"}]}`, "items[0].endedAt"},
		{"fractional cents", `{"items":[{"name":"A","costCents":10.5}]}`, "costCents"},
		{"negative cents", `{"items":[{"name":"A","costCents":-1}]}`, "items[0].costCents"},
		{"negative cost", `{"items":[{"name":"A","cost":"-5"}]}`, "items[0].cost"},
		{"use quantity", `{"items":[{"name":"A","uses":[{"usedAt":"2026-01-01","quantity":101}]}]}`, "items[0].uses[0].quantity"},
		{"use date", `{"items":[{"name":"A","uses":[{"quantity":1}]}]}`, "items[0].uses[0].usedAt"},
		{"daily total", `{"items":[{"name":"A","dailyUsesTotal":20001}]}`, "dailyUsesTotal"},
		{"daily quantity", `{"items":[{"name":"A","dailyUsesQuantity":0}]}`, "dailyUsesQuantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			require.Contains(t, verr.Error(), tt.problem)
		})
	}
}

func TestParseAcceptsNullDates(t *testing.T) {
	p := mustParse(t, `{"mode":"replace","items":[{"name":"A","acquiredAt":null,"endedAt":null,"dailyUsesFrom":null}]}`)
	require.Equal(t, ModeReplace, p.Mode)
	require.Nil(t, p.Items[0].AcquiredAt)
}

func TestSampleParses(t *testing.T) {
	for _, mode := range []Mode{ModeMerge, ModeReplace} {
		p := mustParse(t, Sample(mode))
		require.Equal(t, mode, p.Mode)
		require.Len(t, p.Items, 1)
		require.Len(t, p.Items[0].Uses, 2)
	}
}

func TestApplyMergeTwiceUpdatesInPlace(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	res, err := Apply(ctx, database, user, mustParse(t, `{"items":[{"name":"X","cost":"10.00"}]}`), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	res, err = Apply(ctx, database, user, mustParse(t, `{"items":[{"name":"x","cost":"10.00","acquiredAt":"2026-01-01"}]}`), Options{})
	require.NoError(t, err)
	require.Equal(t, 0, res.Created)
	require.Equal(t, 1, res.Updated)

	items, err := store.ListItems(ctx, database, user)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "X", items[0].Name, "merge keeps the original name")
	require.Equal(t, int64(1000), items[0].CostCents)
	require.Equal(t, "2026-01-01", *items[0].AcquiredAt)
}

func TestApplyDuplicateNamesCollapse(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := `{"items":[
		{"name":"Bike","costCents":100,"uses":[{"usedAt":"2026-01-01"}]},
		{"name":"BIKE","costCents":200,"uses":[{"usedAt":"2026-01-02","quantity":3}]}
	]}`
	res, err := Apply(ctx, database, user, mustParse(t, doc), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, 2, res.Uses)

	items, _ := store.ListItems(ctx, database, user)
	require.Len(t, items, 1)
	require.Equal(t, int64(200), items[0].CostCents)

	uses, _ := store.ListItemUses(ctx, database, user, items[0].ID)
	require.Len(t, uses, 2)
	require.Equal(t, 3, uses[0].Quantity)
	require.Equal(t, 1, uses[1].Quantity)
}

func TestApplyReplaceRemovesExisting(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := Apply(ctx, database, user, mustParse(t,
		`{"items":[{"name":"Old","uses":[{"usedAt":"2026-01-01"}]}]}`), Options{})
	require.NoError(t, err)
	_, err = Apply(ctx, database, "someone-else", mustParse(t, `{"items":[{"name":"Theirs"}]}`), Options{})
	require.NoError(t, err)

	res, err := Apply(ctx, database, user, mustParse(t,
		`{"mode":"replace","items":[{"name":"New"}]}`), Options{})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Deleted)
	require.Equal(t, 1, res.Created)

	items, _ := store.ListItems(ctx, database, user)
	require.Len(t, items, 1)
	require.Equal(t, "New", items[0].Name)

	var orphans int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM item_uses WHERE user_id = ?`, user).Scan(&orphans))
	require.Zero(t, orphans)

	theirs, _ := store.ListItems(ctx, database, "someone-else")
	require.Len(t, theirs, 1, "replace only touches the importing user")
}

func TestApplyDailyShorthandStopsAtUntil(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := `{"items":[{"name":"Pillow","dailyUsesTotal":5,"dailyUsesFrom":"2026-01-01","dailyUsesUntil":"2026-01-03"}]}`
	res, err := Apply(ctx, database, user, mustParse(t, doc), Options{})
	require.NoError(t, err)
	require.Equal(t, 3, res.Uses)

	items, _ := store.ListItems(ctx, database, user)
	uses, _ := store.ListItemUses(ctx, database, user, items[0].ID)
	require.Len(t, uses, 3)
	require.Equal(t, "2026-01-03", uses[0].UsedAt)
	require.Equal(t, "2026-01-02", uses[1].UsedAt)
	require.Equal(t, "2026-01-01", uses[2].UsedAt)
}

func TestApplyDailyShorthandFallbacks(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := `{"items":[
		{"name":"Ended","acquiredAt":"2026-01-01","endedAt":"2026-01-02","dailyUsesTotal":10,"dailyUsesQuantity":2},
		{"name":"Open","acquiredAt":"2026-03-01","dailyUsesTotal":100},
		{"name":"NoStart","costCents":500,"dailyUsesTotal":10}
	]}`
	res, err := Apply(ctx, database, user, mustParse(t, doc), Options{Today: "2026-03-04"})
	require.NoError(t, err)
	require.Equal(t, 3, res.Created)
	require.Equal(t, 2+4, res.Uses)

	rows, err := store.ListItemsWithMetrics(ctx, database, user, mustDate(t, "2026-12-31"))
	require.NoError(t, err)
	require.Equal(t, int64(4), rows[0].Uses)
	require.Equal(t, int64(4), rows[1].Uses)
	require.Zero(t, rows[2].Uses)
	require.Equal(t, int64(500), rows[2].CostCents, "item is still written without a start date")
}

func TestApplyExplicitUsesSkipShorthand(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := `{"items":[{"name":"A","dailyUsesTotal":10,"dailyUsesFrom":"2026-01-01","dailyUsesUntil":"2026-01-10",
		"uses":[{"usedAt":"2026-02-01","quantity":4}]}]}`
	res, err := Apply(ctx, database, user, mustParse(t, doc), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Uses)
}

func TestApplyBatchingKeepsRowSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := `{"items":[{"name":"A","dailyUsesTotal":7,"dailyUsesFrom":"2026-01-01","dailyUsesUntil":"2026-12-31"}]}`
	res, err := Apply(ctx, database, user, mustParse(t, doc), Options{BatchSize: 3})
	require.NoError(t, err)
	require.Equal(t, 7, res.Uses)

	byDay, err := store.GetUsesByDay(ctx, database, user, mustDate(t, "2026-01-07"), 7)
	require.NoError(t, err)
	for _, d := range byDay {
		require.Equal(t, int64(1), d.Uses, d.Day)
	}
}

func TestApplyCapsBatchSize(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// 7000 rows in one statement would bind more variables than SQLite allows.
	doc := `{"items":[{"name":"A","dailyUsesTotal":7000,"dailyUsesFrom":"2000-01-01","dailyUsesUntil":"2030-01-01"}]}`
	res, err := Apply(ctx, database, user, mustParse(t, doc), Options{BatchSize: 20000})
	require.NoError(t, err)
	require.Equal(t, 7000, res.Uses)
}

func TestExportRestoresItemsAndUses(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := `{"items":[
		{"name":"Bike","costCents":50000,"acquiredAt":"2026-01-01","endedAt":"2026-03-01",
		 "uses":[{"usedAt":"2026-01-03","quantity":2},{"usedAt":"2026-01-01"}]},
		{"name":"Lamp","cost":"35.50"}
	]}`
	_, err := Apply(ctx, database, user, mustParse(t, doc), Options{})
	require.NoError(t, err)

	p, err := Export(ctx, database, user)
	require.NoError(t, err)
	require.Equal(t, ModeReplace, p.Mode)
	require.Len(t, p.Items, 2)
	require.Equal(t, "Bike", p.Items[0].Name)
	require.Equal(t, "2026-03-01", *p.Items[0].EndedAt)
	require.Len(t, p.Items[0].Uses, 2)
	require.Equal(t, "2026-01-01", p.Items[0].Uses[0].UsedAt)
	require.Equal(t, 2, *p.Items[0].Uses[1].Quantity)
	require.Equal(t, int64(3550), *p.Items[1].CostCents)
	require.Empty(t, p.Items[1].Uses)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	res, err := Apply(ctx, database, user, mustParse(t, string(b)), Options{})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Deleted)
	require.Equal(t, 2, res.Created)
	require.Equal(t, 2, res.Uses)

	rows, err := store.ListItemsWithMetrics(ctx, database, user, mustDate(t, "2026-12-31"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(3), rows[0].Uses)
	require.Equal(t, int64(50000), rows[0].CostCents)
}

func TestExportOtherUserIsEmpty(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := Apply(ctx, database, user, mustParse(t, `{"items":[{"name":"Mine"}]}`), Options{})
	require.NoError(t, err)

	p, err := Export(ctx, database, "someone-else")
	require.NoError(t, err)
	require.Empty(t, p.Items)
}

func TestApplyInvalidPayloadWritesNothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := Apply(ctx, database, user, mustParse(t, `{"items":[{"name":"Keep"}]}`), Options{})
	require.NoError(t, err)

	bad := &Payload{Mode: ModeReplace, Items: []ItemSpec{{Name: "New"}, {Name: ""}}}
	_, err = Apply(ctx, database, user, bad, Options{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	items, _ := store.ListItems(ctx, database, user)
	require.Len(t, items, 1)
	require.Equal(t, "Keep", items[0].Name)
}

func TestApplyRollsBackOnStoreFailure(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := Apply(ctx, database, user, mustParse(t, `{"items":[{"name":"Keep"}]}`), Options{})
	require.NoError(t, err)

	_, err = database.Exec(`CREATE TRIGGER fail_new BEFORE INSERT ON items WHEN NEW.name = 'Boom'
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)

	_, err = Apply(ctx, database, user, mustParse(t,
		`{"mode":"replace","items":[{"name":"Fine"},{"name":"Boom"}]}`), Options{})
	require.Error(t, err)

	items, _ := store.ListItems(ctx, database, user)
	require.Len(t, items, 1)
	require.Equal(t, "Keep", items[0].Name)
}
