package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/ledger"
	applog "gastos/internal/log"
	"gastos/internal/storage/memory"
)

var fixedNow = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

// brokenKV fails every write once broken is set.
type brokenKV struct {
	*memory.Store
	broken atomic.Bool
}

func (b *brokenKV) Set(ctx context.Context, key, value string) error {
	if b.broken.Load() {
		return errors.New("disk full")
	}
	return b.Store.Set(ctx, key, value)
}

func (b *brokenKV) Remove(ctx context.Context, key string) error {
	if b.broken.Load() {
		return errors.New("disk full")
	}
	return b.Store.Remove(ctx, key)
}

func newTestServer(t *testing.T, kv ledger.KeyValueStore) *httptest.Server {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	store, err := ledger.Open(context.Background(), kv,
		ledger.WithLogger(applog.Discard()), ledger.WithClock(clock))
	require.NoError(t, err)

	srv := NewServer(":0", store, WithLogger(applog.Discard()), WithClock(clock))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func doList(t *testing.T, ts *httptest.Server, path string) []map[string]any {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", body)
	return d
}

func errType(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["type"].(string)
	return s
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, memory.New())

	resp, body := do(t, ts, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = do(t, ts, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
}

func TestCreateExpense(t *testing.T) {
	ts := newTestServer(t, memory.New())

	resp, body := do(t, ts, http.MethodPost, "/api/expenses", `{"amount":"12,50","category":"Comida"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := data(t, body)
	assert.EqualValues(t, 1, e["id"])
	assert.Equal(t, "12.5", e["amount"])
	assert.Equal(t, "Comida", e["name"], "name defaults to the category")
	assert.Equal(t, "2026-10-15", e["date"])
	assert.Empty(t, resp.Header.Get(persistenceWarningHeader))

	resp, body = do(t, ts, http.MethodPost, "/api/expenses", `{"amount":30,"category":"Transporte","name":"Taxi","date":"01/09/2026"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "2026-09-01", data(t, body)["date"])

	list := doList(t, ts, "/api/expenses")
	require.Len(t, list, 2)
	assert.Equal(t, "Taxi", list[0]["name"], "newest first")
}

func TestCreateExpenseErrors(t *testing.T) {
	ts := newTestServer(t, memory.New())

	tests := []struct {
		name   string
		body   string
		status int
		typ    string
	}{
		{"zero amount", `{"amount":0,"category":"Comida"}`, http.StatusUnprocessableEntity, errTypeValidation},
		{"missing amount", `{"category":"Comida"}`, http.StatusUnprocessableEntity, errTypeValidation},
		{"negative amount", `{"amount":"-5","category":"Comida"}`, http.StatusUnprocessableEntity, errTypeValidation},
		{"unparseable amount", `{"amount":"abc","category":"Comida"}`, http.StatusUnprocessableEntity, errTypeValidation},
		{"empty category", `{"amount":10,"category":"  "}`, http.StatusUnprocessableEntity, errTypeValidation},
		{"bad date", `{"amount":10,"category":"Comida","date":"yesterday"}`, http.StatusUnprocessableEntity, errTypeValidation},
		{"malformed json", `{"amount":`, http.StatusBadRequest, errTypeBadRequest},
		{"unknown field", `{"amount":10,"category":"Comida","colour":"red"}`, http.StatusBadRequest, errTypeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, http.MethodPost, "/api/expenses", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.typ, errType(body))
		})
	}

	assert.Empty(t, doList(t, ts, "/api/expenses"))
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	ts := newTestServer(t, memory.New())
	do(t, ts, http.MethodPost, "/api/expenses", `{"amount":100,"category":"Hogar","name":"Lámpara","note":"salón"}`)

	resp, body := do(t, ts, http.MethodPut, "/api/expenses/1", `{"amount":"80.25"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	e := data(t, body)
	assert.Equal(t, "80.25", e["amount"])
	assert.Equal(t, "Lámpara", e["name"])
	assert.Equal(t, "salón", e["note"])

	resp, _ = do(t, ts, http.MethodPut, "/api/expenses/99", `{"amount":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodGet, "/api/expenses/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, ts, http.MethodDelete, "/api/expenses/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, data(t, body)["deleted"])

	resp, body = do(t, ts, http.MethodDelete, "/api/expenses/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, data(t, body)["deleted"])

	resp, _ = do(t, ts, http.MethodGet, "/api/expenses/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReceivables(t *testing.T) {
	ts := newTestServer(t, memory.New())

	resp, body := do(t, ts, http.MethodPost, "/api/receivables", `{"amount":1000,"category":"Trabajo"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "name", body["error"].(map[string]any)["field"])

	resp, body = do(t, ts, http.MethodPost, "/api/receivables", `{"amount":1000,"category":"Trabajo","name":"Nómina"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := data(t, body)["id"]

	resp, body = do(t, ts, http.MethodPut, "/api/receivables/1", `{"name":"Nómina octubre"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Nómina octubre", data(t, body)["name"])
	assert.Equal(t, id, data(t, body)["id"])

	resp, body = do(t, ts, http.MethodGet, "/api/receivables/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1000", body["amount"])

	resp, _ = do(t, ts, http.MethodDelete, "/api/receivables/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, doList(t, ts, "/api/receivables"))
}

func TestBalanceAndSettings(t *testing.T) {
	ts := newTestServer(t, memory.New())

	resp, _ := do(t, ts, http.MethodPut, "/api/initial-amount", `{"amount":10000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, ts, http.MethodPut, "/api/initial-amount", `{"amount":-1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := do(t, ts, http.MethodPut, "/api/user-name", `{"userName":"Ana"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ana", data(t, body)["userName"])

	do(t, ts, http.MethodPost, "/api/expenses", `{"amount":1500,"category":"Comida"}`)
	do(t, ts, http.MethodPost, "/api/receivables", `{"amount":2000,"category":"Trabajo","name":"Nómina"}`)

	resp, body = do(t, ts, http.MethodGet, "/api/balance", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "10500", body["balance"])
	assert.Equal(t, "Ana", body["userName"])

	resp, body = do(t, ts, http.MethodDelete, "/api/ledger", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, data(t, body)["cleared"])

	_, body = do(t, ts, http.MethodGet, "/api/balance", "")
	assert.Equal(t, "0", body["balance"])
	assert.EqualValues(t, 0, body["expenseCount"])
}

func TestBudgetsAndRisk(t *testing.T) {
	ts := newTestServer(t, memory.New())

	budgets := doList(t, ts, "/api/budgets")
	require.Len(t, budgets, 3)

	resp, body := do(t, ts, http.MethodPut, "/api/budgets/Educaci%C3%B3n", `{"limit":"250"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Educación", data(t, body)["category"])

	resp, _ = do(t, ts, http.MethodPut, "/api/budgets/Salud", `{"limit":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	do(t, ts, http.MethodPost, "/api/expenses", `{"amount":450,"category":"Comida"}`)

	resp, body = do(t, ts, http.MethodGet, "/api/budget-risk", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	atRisk, ok := body["atRisk"].([]any)
	require.True(t, ok)
	require.Len(t, atRisk, 1)
	first := atRisk[0].(map[string]any)
	assert.Equal(t, "Comida", first["category"])
	assert.Equal(t, "90", first["percentage"])
	assert.Equal(t, "warning", first["tier"])

	resp, body = do(t, ts, http.MethodDelete, "/api/budgets/comida", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, data(t, body)["deleted"])
	assert.Len(t, doList(t, ts, "/api/budgets"), 3)
}

func TestViews(t *testing.T) {
	ts := newTestServer(t, memory.New())
	do(t, ts, http.MethodPost, "/api/expenses", `{"amount":10,"category":"Comida","date":"2026-08-03"}`)
	do(t, ts, http.MethodPost, "/api/expenses", `{"amount":20,"category":"Comida"}`)
	do(t, ts, http.MethodPost, "/api/receivables", `{"amount":5,"category":"Regalo","name":"Cumple"}`)

	resp, err := ts.Client().Get(ts.URL + "/api/trend?months=3")
	require.NoError(t, err)
	var trend []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trend))
	resp.Body.Close()
	require.Len(t, trend, 3)
	assert.Equal(t, "2026-08", trend[0]["label"])
	assert.Equal(t, "10", trend[0]["total"])
	assert.Equal(t, "20", trend[2]["total"])

	resp2, _ := do(t, ts, http.MethodGet, "/api/trend?months=0", "")
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)

	recent := doList(t, ts, "/api/recent?limit=2")
	require.Len(t, recent, 2)
	assert.Equal(t, "receivable", recent[0]["kind"])

	resp2, body := do(t, ts, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, "30", summary["totalSpent"])
	assert.Len(t, body["trend"], 6)

	resp2, body = do(t, ts, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Contains(t, body["expense"], "Comida")
}

func TestExports(t *testing.T) {
	ts := newTestServer(t, memory.New())
	do(t, ts, http.MethodPost, "/api/expenses", `{"amount":"12.5","category":"Comida","name":"Pan"}`)

	resp, err := ts.Client().Get(ts.URL + "/api/export.csv")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "gastos.csv")
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Tipo,Monto,Categoría,Descripción,Fecha,Nota", lines[0])
	assert.Equal(t, `Gasto,"12,50",Comida,Pan,15/10/2026,`, lines[1])

	resp2, body := do(t, ts, http.MethodGet, "/api/export.json", "")
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Contains(t, resp2.Header.Get("Content-Disposition"), "gastos.json")
	assert.Len(t, body["expenses"], 1)
	assert.Equal(t, "2026-10-15T09:30:00Z", body["exportDate"])
}

func TestPersistenceFailureKeepsChange(t *testing.T) {
	kv := &brokenKV{Store: memory.New()}
	ts := newTestServer(t, kv)
	kv.broken.Store(true)

	resp, body := do(t, ts, http.MethodPost, "/api/expenses", `{"amount":5,"category":"Comida"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(persistenceWarningHeader))
	assert.NotEmpty(t, body["warning"])
	assert.EqualValues(t, 1, data(t, body)["id"])

	assert.Len(t, doList(t, ts, "/api/expenses"), 1)
}

func TestUnknownRouteAndMetrics(t *testing.T) {
	ts := newTestServer(t, memory.New())

	resp, body := do(t, ts, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, errTypeNotFound, errType(body))

	resp, _ = do(t, ts, http.MethodPatch, "/api/expenses", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
