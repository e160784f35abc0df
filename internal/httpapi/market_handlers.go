package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"papertrade.org/internal/ledger"
	"papertrade.org/internal/quotes"
)

// handleStocks serves the full quote board, sorted by symbol.
func (a *API) handleStocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": a.market.Top(),
	})
}

// handleStockResource dispatches /v1/stocks/{symbol}, .../history and
// /v1/stocks/search.
func (a *API) handleStockResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/stocks/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "search":
		a.handleStockSearch(w, r)
	case len(parts) == 1 && parts[0] != "":
		a.handleStockGet(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history":
		a.handleStockHistory(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (a *API) handleStockGet(w http.ResponseWriter, r *http.Request, symbol string) {
	s, err := a.market.Get(symbol)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownSymbol) {
			writeError(w, r, http.StatusNotFound, "unknown symbol")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *API) handleStockHistory(w http.ResponseWriter, r *http.Request, symbol string) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "1m"
	}
	series, err := a.market.History(symbol, rng)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnknownSymbol):
			writeError(w, r, http.StatusNotFound, "unknown symbol")
		case errors.Is(err, quotes.ErrInvalidRange):
			writeError(w, r, http.StatusBadRequest, "invalid range")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (a *API) handleStockSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"query": q,
		"items": a.market.Search(q),
	})
}
