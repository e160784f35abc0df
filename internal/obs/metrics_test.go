package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                             "/",
		"/metrics":                     "/metrics",
		"/v1/stocks":                   "/v1/stocks",
		"/v1/stocks/AAPL":              "/v1/stocks/:symbol",
		"/v1/stocks/AAPL/history":      "/v1/stocks/:symbol/history",
		"/v1/stocks/search":            "/v1/stocks/search",
		"/v1/stocks/AAPL/extra":        "/v1/stocks/AAPL/extra",
		"/v1/account/portfolio":        "/v1/account/portfolio",
		"/v1/trades":                   "/v1/trades",
		"/v1/stocks/AAPL?range=1m":     "/v1/stocks/:symbol",
		"/v1/account/transactions?x=1": "/v1/account/transactions",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
