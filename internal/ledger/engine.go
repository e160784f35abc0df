package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Service defines the trading ledger operations.
type Service interface {
	Buy(ctx context.Context, accountID, symbol string, shares int64) (Transaction, error)
	Sell(ctx context.Context, accountID, symbol string, shares int64) (Transaction, error)
	GetBalance(ctx context.Context, accountID string) (Money, error)
	GetPortfolio(ctx context.Context, accountID string) (Portfolio, error)
	GetHistory(ctx context.Context, accountID string, limit int) ([]Transaction, error)
}

// Quote is the price snapshot the engine consumes. The engine never computes
// or caches prices; it captures the quoted price into the transaction record.
type Quote struct {
	Symbol string
	Price  Money
}

// QuoteSource supplies the current tradable price for a symbol. A failed
// lookup must wrap ErrUnknownSymbol so callers can tell a bad symbol from a
// transient infrastructure failure.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// Holding is one portfolio line valued at the current quote.
type Holding struct {
	Symbol       string `json:"symbol"`
	Shares       int64  `json:"shares"`
	AvgCost      Money  `json:"avg_cost"`
	CurrentPrice Money  `json:"current_price"`
	MarketValue  Money  `json:"market_value"`
}

// Portfolio is a valued snapshot of an account. Equity is recomputed from
// live quotes on every call, never cached, so it reflects price drift even
// when no trade occurred.
type Portfolio struct {
	AccountID string    `json:"account_id"`
	Cash      Money     `json:"cash"`
	Holdings  []Holding `json:"holdings"`
	Equity    Money     `json:"equity"`
	Total     Money     `json:"total"` // cash + equity
	AsOf      time.Time `json:"as_of"`
}

// Engine validates trade requests against quotes and account state and is the
// sole writer of account state through its Store.
type Engine struct {
	store  Store
	quotes QuoteSource
}

var _ Service = (*Engine)(nil)

func NewEngine(store Store, quotes QuoteSource) *Engine {
	return &Engine{store: store, quotes: quotes}
}

// Buy executes a market buy of shares at the current quote. The quote is
// fetched before the account lock is taken; a quote failure aborts the
// operation with no state touched. Either the full effect (debit, position
// merge, log append) commits or none of it does.
func (e *Engine) Buy(ctx context.Context, accountID, symbol string, shares int64) (Transaction, error) {
	if shares <= 0 {
		return Transaction{}, ErrInvalidShares
	}
	q, err := e.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return Transaction{}, err
	}
	return e.store.ApplyBuy(ctx, accountID, q.Symbol, shares, q.Price)
}

// Sell executes a market sell of shares at the current quote. Holdings are
// re-checked under the account lock.
func (e *Engine) Sell(ctx context.Context, accountID, symbol string, shares int64) (Transaction, error) {
	if shares <= 0 {
		return Transaction{}, ErrInvalidShares
	}
	q, err := e.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return Transaction{}, err
	}
	return e.store.ApplySell(ctx, accountID, q.Symbol, shares, q.Price)
}

func (e *Engine) GetBalance(ctx context.Context, accountID string) (Money, error) {
	acc, err := e.store.Account(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acc.Cash, nil
}

// GetPortfolio values every held position at its current quote. A quote
// failure for a held symbol is surfaced, not swallowed: a partially valued
// portfolio would be worse than an error.
func (e *Engine) GetPortfolio(ctx context.Context, accountID string) (Portfolio, error) {
	acc, err := e.store.Account(ctx, accountID)
	if err != nil {
		return Portfolio{}, err
	}

	symbols := make([]string, 0, len(acc.Positions))
	for sym := range acc.Positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	pf := Portfolio{
		AccountID: accountID,
		Cash:      acc.Cash,
		Holdings:  make([]Holding, 0, len(symbols)),
		AsOf:      time.Now().UTC(),
	}
	for _, sym := range symbols {
		pos := acc.Positions[sym]
		q, err := e.quotes.GetQuote(ctx, sym)
		if err != nil {
			return Portfolio{}, fmt.Errorf("value position %s: %w", sym, err)
		}
		mv := q.Price * Money(pos.Shares)
		pf.Holdings = append(pf.Holdings, Holding{
			Symbol:       sym,
			Shares:       pos.Shares,
			AvgCost:      pos.AvgCost,
			CurrentPrice: q.Price,
			MarketValue:  mv,
		})
		pf.Equity += mv
	}
	pf.Total = pf.Cash + pf.Equity
	return pf, nil
}

func (e *Engine) GetHistory(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	return e.store.Transactions(ctx, accountID, limit)
}
