package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"papertrade.org/internal/auth"
	"papertrade.org/internal/ledger"
	"papertrade.org/internal/quotes"
	"papertrade.org/internal/stream"
)

const testStartingCash = 10_000_000 // 100,000.00

func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("PAPERTRADE_AUTH_SECRET", "unit-test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	market := quotes.NewMarket(1) // drift never started, prices stay at seed values
	store := ledger.NewInMemory(testStartingCash)
	engine := ledger.NewEngine(store, market)
	return New(ReadyProbe{}, "test", engine, market, auth.NewRegistry(), stream.New())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestAPI(t).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func registerTrader(t *testing.T, base, email string) (token, accountID string) {
	t.Helper()
	code, out := doJSON(t, http.MethodPost, base+"/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	})
	if code != http.StatusCreated {
		t.Fatalf("register status = %d, body %v", code, out)
	}
	token, _ = out["token"].(string)
	accountID, _ = out["account_id"].(string)
	if token == "" || accountID == "" {
		t.Fatalf("register response missing token or account_id: %v", out)
	}
	return token, accountID
}

func TestHealthAndInfo(t *testing.T) {
	srv := newTestServer(t)

	code, out := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	if code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("healthz = %d %v", code, out)
	}
	code, out = doJSON(t, http.MethodGet, srv.URL+"/readyz", "", nil)
	if code != http.StatusOK || out["status"] != "ready" {
		t.Fatalf("readyz = %d %v", code, out)
	}
	code, out = doJSON(t, http.MethodGet, srv.URL+"/v1/info", "", nil)
	if code != http.StatusOK || out["version"] != "test" {
		t.Fatalf("info = %d %v", code, out)
	}
}

func TestTradeLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token, accountID := registerTrader(t, srv.URL, "lifecycle@example.com")

	// Buy 3 AAPL at the seeded quote of 178.72.
	code, tx := doJSON(t, http.MethodPost, srv.URL+"/v1/trades", token, map[string]any{
		"symbol": "aapl",
		"side":   "buy",
		"shares": 3,
	})
	if code != http.StatusCreated {
		t.Fatalf("buy status = %d, body %v", code, tx)
	}
	if tx["symbol"] != "AAPL" || tx["side"] != "BUY" || tx["price"] != float64(17872) {
		t.Fatalf("unexpected buy transaction: %v", tx)
	}

	code, bal := doJSON(t, http.MethodGet, srv.URL+"/v1/account/balance", token, nil)
	if code != http.StatusOK {
		t.Fatalf("balance status = %d", code)
	}
	if want := float64(testStartingCash - 3*17872); bal["cash"] != want {
		t.Fatalf("cash = %v, want %v", bal["cash"], want)
	}
	if bal["account_id"] != accountID {
		t.Fatalf("balance account = %v, want %s", bal["account_id"], accountID)
	}

	code, pf := doJSON(t, http.MethodGet, srv.URL+"/v1/account/portfolio", token, nil)
	if code != http.StatusOK {
		t.Fatalf("portfolio status = %d", code)
	}
	holdings, _ := pf["holdings"].([]any)
	if len(holdings) != 1 {
		t.Fatalf("holdings = %v", pf["holdings"])
	}
	h := holdings[0].(map[string]any)
	if h["symbol"] != "AAPL" || h["shares"] != float64(3) || h["market_value"] != float64(3*17872) {
		t.Fatalf("unexpected holding: %v", h)
	}
	if pf["total"] != float64(testStartingCash) {
		t.Fatalf("total = %v, want %v", pf["total"], testStartingCash)
	}

	// Sell everything back at the same price; cash returns to the start.
	code, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/trades", token, map[string]any{
		"symbol": "AAPL",
		"side":   "SELL",
		"shares": 3,
	})
	if code != http.StatusCreated {
		t.Fatalf("sell status = %d", code)
	}
	_, bal = doJSON(t, http.MethodGet, srv.URL+"/v1/account/balance", token, nil)
	if bal["cash"] != float64(testStartingCash) {
		t.Fatalf("cash after round trip = %v", bal["cash"])
	}

	code, hist := doJSON(t, http.MethodGet, srv.URL+"/v1/account/transactions", token, nil)
	if code != http.StatusOK {
		t.Fatalf("transactions status = %d", code)
	}
	items, _ := hist["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("transaction count = %d, want 2", len(items))
	}
	first := items[0].(map[string]any)
	if first["side"] != "SELL" {
		t.Fatalf("history not most-recent-first: %v", items)
	}
}

func TestLoginIssuesWorkingToken(t *testing.T) {
	srv := newTestServer(t)
	_, accountID := registerTrader(t, srv.URL, "login@example.com")

	code, out := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]string{
		"email":    "LOGIN@example.com",
		"password": "hunter2hunter2",
	})
	if code != http.StatusOK {
		t.Fatalf("login status = %d, body %v", code, out)
	}
	if out["account_id"] != accountID {
		t.Fatalf("login account = %v, want %s", out["account_id"], accountID)
	}
	token := out["token"].(string)

	code, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/account/balance", token, nil)
	if code != http.StatusOK {
		t.Fatalf("balance with login token = %d", code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	registerTrader(t, srv.URL, "badpass@example.com")

	code, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]string{
		"email":    "badpass@example.com",
		"password": "not-the-password",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want 401", code)
	}
}

func TestTradeErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerTrader(t, srv.URL, "errors@example.com")

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown symbol", map[string]any{"symbol": "ZZZZ", "side": "BUY", "shares": 1}, http.StatusNotFound},
		{"zero shares", map[string]any{"symbol": "AAPL", "side": "BUY", "shares": 0}, http.StatusBadRequest},
		{"bad side", map[string]any{"symbol": "AAPL", "side": "HOLD", "shares": 1}, http.StatusBadRequest},
		{"missing symbol", map[string]any{"side": "BUY", "shares": 1}, http.StatusBadRequest},
		{"oversell", map[string]any{"symbol": "AAPL", "side": "SELL", "shares": 5}, http.StatusConflict},
		{"insufficient funds", map[string]any{"symbol": "NVDA", "side": "BUY", "shares": 1000}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := doJSON(t, http.MethodPost, srv.URL+"/v1/trades", token, tc.body)
			if code != tc.want {
				t.Fatalf("status = %d, want %d (body %v)", code, tc.want, body)
			}
		})
	}
}

func TestRejectsUnknownJSONFields(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerTrader(t, srv.URL, "strict@example.com")

	code, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/trades", token, map[string]any{
		"symbol": "AAPL",
		"side":   "BUY",
		"shares": 1,
		"price":  1, // clients must not pick their own price
	})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestStocksEndpoints(t *testing.T) {
	srv := newTestServer(t)

	code, out := doJSON(t, http.MethodGet, srv.URL+"/v1/stocks", "", nil)
	if code != http.StatusOK {
		t.Fatalf("stocks status = %d", code)
	}
	items, _ := out["items"].([]any)
	if len(items) != 8 {
		t.Fatalf("stock count = %d, want 8", len(items))
	}

	code, stock := doJSON(t, http.MethodGet, srv.URL+"/v1/stocks/msft", "", nil)
	if code != http.StatusOK || stock["symbol"] != "MSFT" {
		t.Fatalf("stock get = %d %v", code, stock)
	}

	code, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/stocks/ZZZZ", "", nil)
	if code != http.StatusNotFound {
		t.Fatalf("unknown stock status = %d, want 404", code)
	}

	code, series := doJSON(t, http.MethodGet, srv.URL+"/v1/stocks/AAPL/history?range=1w", "", nil)
	if code != http.StatusOK {
		t.Fatalf("history status = %d", code)
	}
	points, _ := series["points"].([]any)
	if len(points) != 8 { // 7 days plus today
		t.Fatalf("history points = %d, want 8", len(points))
	}

	code, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/stocks/AAPL/history?range=2h", "", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad range status = %d, want 400", code)
	}

	code, found := doJSON(t, http.MethodGet, srv.URL+"/v1/stocks/search?q=apple", "", nil)
	if code != http.StatusOK {
		t.Fatalf("search status = %d", code)
	}
	matches, _ := found["items"].([]any)
	if len(matches) != 1 {
		t.Fatalf("search matches = %v", found["items"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerTrader(t, srv.URL, "methods@example.com")

	code, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/trades", token, nil)
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /v1/trades = %d, want 405", code)
	}
	code, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/stocks", "", map[string]any{})
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /v1/stocks = %d, want 405", code)
	}
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	srv := newTestServer(t)
	registerTrader(t, srv.URL, "dupe@example.com")

	code, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/register", "", map[string]string{
		"email":    "dupe@example.com",
		"password": "hunter2hunter2",
	})
	if code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", code)
	}
}

func TestTwoTradersAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := registerTrader(t, srv.URL, "a@example.com")
	tokenB, _ := registerTrader(t, srv.URL, "b@example.com")

	code, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/trades", tokenA, map[string]any{
		"symbol": "TSLA", "side": "BUY", "shares": 2,
	})
	if code != http.StatusCreated {
		t.Fatalf("buy status = %d", code)
	}

	_, pf := doJSON(t, http.MethodGet, srv.URL+"/v1/account/portfolio", tokenB, nil)
	if holdings, _ := pf["holdings"].([]any); len(holdings) != 0 {
		t.Fatalf("trader B sees trader A's holdings: %v", pf["holdings"])
	}
	_, bal := doJSON(t, http.MethodGet, srv.URL+"/v1/account/balance", tokenB, nil)
	if bal["cash"] != float64(testStartingCash) {
		t.Fatalf("trader B cash = %v", bal["cash"])
	}
}
