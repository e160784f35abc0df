package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"papertrade.org/internal/audit"
	"papertrade.org/internal/auth"
	"papertrade.org/internal/ledger"
	"papertrade.org/internal/obs"
	"papertrade.org/internal/stream"
)

type tradeRequest struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Shares int64  `json:"shares"`
}

// handleTrades executes a market order for the session account. The executed
// transaction carries the price the trade actually filled at.
func (a *API) handleTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no session account")
		return
	}

	var req tradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, r, http.StatusBadRequest, "symbol is required")
		return
	}
	side := ledger.Side(strings.ToUpper(strings.TrimSpace(req.Side)))
	if !side.Valid() {
		writeError(w, r, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}

	var (
		tx  ledger.Transaction
		err error
	)
	switch side {
	case ledger.SideBuy:
		tx, err = a.engine.Buy(r.Context(), accountID, req.Symbol, req.Shares)
	case ledger.SideSell:
		tx, err = a.engine.Sell(r.Context(), accountID, req.Symbol, req.Shares)
	}
	if err != nil {
		a.handleTradeError(w, r, err)
		return
	}

	obs.ObserveTrade(string(tx.Side), int64(tx.Cost()))
	a.stream.Publish(stream.TradeEvent(tx))
	_ = audit.LogEvent(r.Context(), "trade.execute", map[string]any{
		"transaction_id": tx.ID,
		"symbol":         tx.Symbol,
		"side":           string(tx.Side),
		"shares":         tx.Shares,
		"price":          int64(tx.Price),
	})

	writeJSON(w, http.StatusCreated, tx)
}

func (a *API) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no session account")
		return
	}
	cash, err := a.engine.GetBalance(r.Context(), accountID)
	if err != nil {
		a.handleTradeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": accountID,
		"cash":       cash,
		"as_of":      time.Now().UTC(),
	})
}

func (a *API) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no session account")
		return
	}
	pf, err := a.engine.GetPortfolio(r.Context(), accountID)
	if err != nil {
		a.handleTradeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no session account")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	items, err := a.engine.GetHistory(r.Context(), accountID, limit)
	if err != nil {
		a.handleTradeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": accountID,
		"items":      items,
		"count":      len(items),
	})
}

// handleTradeError maps ledger errors onto HTTP statuses. Rejections are
// client errors; anything unrecognised is a 500.
func (a *API) handleTradeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidShares):
		writeError(w, r, http.StatusBadRequest, "shares must be a positive whole number")
	case errors.Is(err, ledger.ErrUnknownSymbol):
		writeError(w, r, http.StatusNotFound, "unknown symbol")
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "account not found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, r, http.StatusConflict, "insufficient funds")
	case errors.Is(err, ledger.ErrInsufficientShares):
		writeError(w, r, http.StatusConflict, "insufficient shares")
	default:
		obs.LogJSON(map[string]any{
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
			"level":      "error",
			"msg":        "trade_error",
			"request_id": RequestIDFromContext(r.Context()),
			"error":      err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
