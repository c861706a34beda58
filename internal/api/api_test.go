package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/holdfolio/internal/auth"
	"github.com/erazemk/holdfolio/internal/db"
	"github.com/erazemk/holdfolio/internal/model"
)

const testJWTSecret = "test-secret"

var testNow = time.Date(2026, 1, 20, 15, 4, 5, 0, time.UTC)

func newTestServer(t *testing.T, allowSignup bool) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(Config{
		DB:          database,
		JWTSecret:   testJWTSecret,
		TokenTTL:    time.Hour,
		AllowSignup: allowSignup,
		Now:         func() time.Time { return testNow },
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func signup(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": "password123"})
	resp, err := http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signup request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup failed: %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Token == "" {
		t.Fatal("empty token from signup")
	}
	return out.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	switch b := body.(type) {
	case nil:
		bodyReader = bytes.NewReader(nil)
	case string:
		bodyReader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends an authenticated request, checks the status and decodes the
// response into out when out is non-nil.
func do(t *testing.T, method, url, token string, body any, wantStatus int, out any) {
	t.Helper()
	req, _ := authRequest(method, url, token, body)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d", method, url, wantStatus, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, url, err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	server := newTestServer(t, true)
	signup(t, server, "alice@example.com")

	body, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, _ = json.Marshal(map[string]string{"email": "Alice@Example.com", "password": "password123"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for good credentials, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSignupRules(t *testing.T) {
	server := newTestServer(t, true)
	signup(t, server, "alice@example.com")

	body, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "password123"})
	resp, _ := http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, _ = json.Marshal(map[string]string{"email": "bob@example.com", "password": "short"})
	resp, _ = http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	closed := newTestServer(t, false)
	resp, _ = http.Post(closed.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 when sign-up is disabled, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server := newTestServer(t, true)
	token := signup(t, server, "alice@example.com")

	do(t, "GET", server.URL+"/api/items", token, nil, http.StatusOK, nil)
	do(t, "POST", server.URL+"/api/auth/logout", token, nil, http.StatusOK, nil)
	do(t, "GET", server.URL+"/api/items", token, nil, http.StatusUnauthorized, nil)
}

func TestUnauthenticatedAccess(t *testing.T) {
	server := newTestServer(t, true)

	for _, path := range []string{"/api/items", "/api/dashboard", "/api/usage/daily"} {
		resp, _ := http.Get(server.URL + path)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 for unauthenticated request, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	bogus, _ := auth.GenerateToken("other-secret", time.Hour, "user-1", "a@example.com")
	do(t, "GET", server.URL+"/api/items", bogus, nil, http.StatusUnauthorized, nil)
}

func TestItemsAPIFlow(t *testing.T) {
	server := newTestServer(t, true)
	token := signup(t, server, "alice@example.com")

	var item model.Item
	do(t, "POST", server.URL+"/api/items", token, map[string]string{
		"name":       "Laptop",
		"acquiredAt": "2026-01-10",
		"cost":       "$1,000.00",
	}, http.StatusCreated, &item)
	if item.CostCents != 100000 {
		t.Errorf("expected cost 100000, got %d", item.CostCents)
	}

	do(t, "POST", server.URL+"/api/items", token, map[string]string{"name": ""}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/items", token, map[string]string{"name": "X", "acquiredAt": "2026-02-30"}, http.StatusBadRequest, nil)

	var use model.ItemUse
	do(t, "POST", server.URL+"/api/items/"+item.ID+"/uses", token, nil, http.StatusCreated, &use)
	if use.UsedAt != "2026-01-20" || use.Quantity != 1 {
		t.Errorf("expected default use on today with quantity 1, got %+v", use)
	}
	do(t, "POST", server.URL+"/api/items/"+item.ID+"/uses", token,
		map[string]any{"usedAt": "2026-01-15", "quantity": 3}, http.StatusCreated, nil)
	do(t, "POST", server.URL+"/api/items/"+item.ID+"/uses", token,
		map[string]any{"quantity": 101}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/items/missing/uses", token, nil, http.StatusNotFound, nil)

	var list itemsResponse
	do(t, "GET", server.URL+"/api/items", token, nil, http.StatusOK, &list)
	if list.AsOf != "2026-01-20" {
		t.Errorf("expected asOf to default to today, got %s", list.AsOf)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(list.Items))
	}
	row := list.Items[0]
	if row.Uses != 4 || *row.CostPerUseCents != 25000 || *row.HoldingDays != 10 {
		t.Errorf("unexpected metrics: uses=%d cpu=%v days=%v", row.Uses, *row.CostPerUseCents, *row.HoldingDays)
	}

	do(t, "GET", server.URL+"/api/items?asOf=2026-01-16", token, nil, http.StatusOK, &list)
	if list.Items[0].Uses != 3 {
		t.Errorf("expected 3 uses as of 2026-01-16, got %d", list.Items[0].Uses)
	}
	do(t, "GET", server.URL+"/api/items?asOf=yesterday", token, nil, http.StatusBadRequest, nil)

	var updated map[string]int64
	do(t, "PUT", server.URL+"/api/items/"+item.ID, token, map[string]any{
		"name": "Laptop Pro", "acquiredAt": "2026-01-10", "endedAt": "2026-01-15", "costCents": 120000,
	}, http.StatusOK, &updated)
	if updated["updated"] != 1 {
		t.Errorf("expected 1 row updated, got %d", updated["updated"])
	}

	var detail struct {
		Item model.Item      `json:"item"`
		Uses []model.ItemUse `json:"uses"`
	}
	do(t, "GET", server.URL+"/api/items/"+item.ID, token, nil, http.StatusOK, &detail)
	if detail.Item.Name != "Laptop Pro" || detail.Item.CostCents != 120000 {
		t.Errorf("unexpected item after update: %+v", detail.Item)
	}
	if len(detail.Uses) != 2 {
		t.Errorf("expected 2 uses, got %d", len(detail.Uses))
	}

	// Use on 01-20 is now after the end date.
	do(t, "GET", server.URL+"/api/items", token, nil, http.StatusOK, &list)
	if list.Items[0].Uses != 3 {
		t.Errorf("expected uses after end date to be excluded, got %d", list.Items[0].Uses)
	}

	var deleted map[string]int64
	do(t, "DELETE", server.URL+"/api/items/"+item.ID, token, nil, http.StatusOK, &deleted)
	if deleted["deleted"] != 1 {
		t.Errorf("expected 1 row deleted, got %d", deleted["deleted"])
	}
	do(t, "GET", server.URL+"/api/items/"+item.ID, token, nil, http.StatusNotFound, nil)
}

func TestForeignItemsAreNoOps(t *testing.T) {
	server := newTestServer(t, true)
	alice := signup(t, server, "alice@example.com")
	bob := signup(t, server, "bob@example.com")

	var item model.Item
	do(t, "POST", server.URL+"/api/items", alice, map[string]string{"name": "Bike"}, http.StatusCreated, &item)

	var res map[string]int64
	do(t, "PUT", server.URL+"/api/items/"+item.ID, bob, map[string]string{"name": "Stolen"}, http.StatusOK, &res)
	if res["updated"] != 0 {
		t.Errorf("expected 0 rows updated, got %d", res["updated"])
	}
	do(t, "DELETE", server.URL+"/api/items/"+item.ID, bob, nil, http.StatusOK, &res)
	if res["deleted"] != 0 {
		t.Errorf("expected 0 rows deleted, got %d", res["deleted"])
	}
	do(t, "GET", server.URL+"/api/items/"+item.ID, bob, nil, http.StatusNotFound, nil)

	var list itemsResponse
	do(t, "GET", server.URL+"/api/items", alice, nil, http.StatusOK, &list)
	if len(list.Items) != 1 || list.Items[0].Name != "Bike" {
		t.Errorf("expected alice's item untouched, got %+v", list.Items)
	}
}

func TestDashboardAndDailyUsage(t *testing.T) {
	server := newTestServer(t, true)
	token := signup(t, server, "alice@example.com")

	var item model.Item
	do(t, "POST", server.URL+"/api/items", token, map[string]string{"name": "Mug", "cost": "9"}, http.StatusCreated, &item)
	do(t, "POST", server.URL+"/api/items/"+item.ID+"/uses", token, map[string]any{"usedAt": "2026-01-19", "quantity": 2}, http.StatusCreated, nil)

	var dash dashboardResponse
	do(t, "GET", server.URL+"/api/dashboard", token, nil, http.StatusOK, &dash)
	if len(dash.UsesByDay) != 30 {
		t.Fatalf("expected 30 days, got %d", len(dash.UsesByDay))
	}
	if dash.UsesByDay[28].Day != "2026-01-19" || dash.UsesByDay[28].Uses != 2 {
		t.Errorf("unexpected day entry: %+v", dash.UsesByDay[28])
	}
	if dash.Totals.CostCents != 900 || dash.Totals.Uses != 2 || *dash.Totals.AvgCostPerUseCents != 450 {
		t.Errorf("unexpected totals: %+v", dash.Totals)
	}

	var days []model.DayUses
	do(t, "GET", server.URL+"/api/usage/daily?days=7&asOf=2026-01-19", token, nil, http.StatusOK, &days)
	if len(days) != 7 || days[6].Uses != 2 {
		t.Errorf("unexpected daily usage: %+v", days)
	}
	do(t, "GET", server.URL+"/api/usage/daily?days=0", token, nil, http.StatusBadRequest, nil)
}

func TestImportEndpoint(t *testing.T) {
	server := newTestServer(t, true)
	token := signup(t, server, "alice@example.com")

	doc := `{"items":[{"name":"X","cost":"10.00","dailyUsesTotal":5,"dailyUsesFrom":"2026-01-01","dailyUsesUntil":"2026-01-03"}]}`

	var res struct {
		Mode    string `json:"mode"`
		Created int    `json:"created"`
		Updated int    `json:"updated"`
		Uses    int    `json:"uses"`
	}
	do(t, "POST", server.URL+"/api/import", token, doc, http.StatusOK, &res)
	if res.Mode != "merge" || res.Created != 1 || res.Uses != 3 {
		t.Errorf("unexpected import result: %+v", res)
	}

	do(t, "POST", server.URL+"/api/import", token, `{"items":[{"name":"x","cost":"10.00"}]}`, http.StatusOK, &res)
	if res.Updated != 1 || res.Created != 0 {
		t.Errorf("expected merge to update, got %+v", res)
	}

	var invalid struct {
		Problems []string `json:"problems"`
	}
	do(t, "POST", server.URL+"/api/import", token, `{"items":[{"name":""}]}`, http.StatusBadRequest, &invalid)
	if len(invalid.Problems) != 1 || !strings.Contains(invalid.Problems[0], "items[0].name") {
		t.Errorf("unexpected problems: %v", invalid.Problems)
	}

	var list itemsResponse
	do(t, "GET", server.URL+"/api/items", token, nil, http.StatusOK, &list)
	if len(list.Items) != 1 || list.Items[0].CostCents != 1000 {
		t.Errorf("expected a single item costing 1000, got %+v", list.Items)
	}
}

func TestExportEndpoint(t *testing.T) {
	server := newTestServer(t, true)
	token := signup(t, server, "alice@example.com")

	doc := `{"items":[{"name":"Bike","costCents":50000,"acquiredAt":"2026-01-01",
		"uses":[{"usedAt":"2026-01-05","quantity":2},{"usedAt":"2026-01-02"}]}]}`
	do(t, "POST", server.URL+"/api/import", token, doc, http.StatusOK, nil)

	var raw json.RawMessage
	do(t, "GET", server.URL+"/api/export", token, nil, http.StatusOK, &raw)

	var exported struct {
		Mode  string `json:"mode"`
		Items []struct {
			Name      string `json:"name"`
			CostCents int64  `json:"costCents"`
			Uses      []struct {
				UsedAt   string `json:"usedAt"`
				Quantity int    `json:"quantity"`
			} `json:"uses"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &exported); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if exported.Mode != "replace" || len(exported.Items) != 1 {
		t.Fatalf("unexpected export: %s", raw)
	}
	it := exported.Items[0]
	if it.Name != "Bike" || it.CostCents != 50000 || len(it.Uses) != 2 {
		t.Fatalf("unexpected exported item: %+v", it)
	}
	if it.Uses[0].UsedAt != "2026-01-02" || it.Uses[1].Quantity != 2 {
		t.Errorf("expected uses oldest first, got %+v", it.Uses)
	}

	// The export is itself a valid import document.
	var res struct {
		Created int `json:"created"`
		Deleted int `json:"deleted"`
		Uses    int `json:"uses"`
	}
	do(t, "POST", server.URL+"/api/import", token, string(raw), http.StatusOK, &res)
	if res.Created != 1 || res.Deleted != 1 || res.Uses != 2 {
		t.Errorf("unexpected re-import result: %+v", res)
	}
}

func TestImportTooLarge(t *testing.T) {
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(Config{
		DB:             database,
		JWTSecret:      testJWTSecret,
		AllowSignup:    true,
		ImportMaxBytes: 16,
	}))
	t.Cleanup(server.Close)

	user, err := auth.Register(context.Background(), database, "a@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, _ := auth.GenerateToken(testJWTSecret, time.Hour, user.ID, user.Email)

	do(t, "POST", server.URL+"/api/import", token, `{"items":[{"name":"too long for the limit"}]}`,
		http.StatusRequestEntityTooLarge, nil)
}
