package httpapi

import (
	"net/http"
	"testing"
	"time"

	"papertrade.org/internal/auth"
)

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/v1/account/balance",
		"/v1/account/portfolio",
		"/v1/account/transactions",
	} {
		code, _ := doJSON(t, http.MethodGet, srv.URL+path, "", nil)
		if code != http.StatusUnauthorized {
			t.Fatalf("GET %s without token = %d, want 401", path, code)
		}
	}

	code, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/trades", "", map[string]any{
		"symbol": "AAPL", "side": "BUY", "shares": 1,
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("POST /v1/trades without token = %d, want 401", code)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	srv := newTestServer(t)

	code, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/account/balance", "not-a-jwt", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("garbage token = %d, want 401", code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	srv := newTestServer(t)

	token, err := auth.GenerateToken("user-1", "acct-1", time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	code, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/account/balance", token, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expired token = %d, want 401", code)
	}
}

func TestPublicPathsSkipAuth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/healthz",
		"/readyz",
		"/v1/info",
		"/v1/stocks",
		"/v1/stocks/AAPL",
		"/v1/stocks/AAPL/history?range=1w",
		"/v1/stocks/search?q=apple",
	} {
		code, _ := doJSON(t, http.MethodGet, srv.URL+path, "", nil)
		if code != http.StatusOK {
			t.Fatalf("GET %s without token = %d, want 200", path, code)
		}
	}
}

func TestBearerTokenParsing(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer lowercase", "lowercase", true},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, ok := bearerToken(r)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("bearerToken(%q) = %q, %v", tc.header, got, ok)
		}
	}
}
