package quotes

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"papertrade.org/internal/ledger"
)

// Stock is the full market-data view of one symbol. Price fields are minor
// units; ChangePercent is presentational only and never feeds back into
// monetary arithmetic.
type Stock struct {
	Symbol        string       `json:"symbol"`
	Name          string       `json:"name"`
	Price         ledger.Money `json:"price"`
	Open          ledger.Money `json:"open"`
	Change        ledger.Money `json:"change"`
	ChangePercent float64      `json:"change_percent"`
	High          ledger.Money `json:"high"`
	Low           ledger.Money `json:"low"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Market is an in-memory simulated quote source. Prices drift in a random
// walk of at most ±0.5% per tick; every read returns either a fresh quote or
// an explicit error, never a silently stale value.
type Market struct {
	mu     sync.RWMutex
	stocks map[string]*Stock
	rnd    *rand.Rand
}

var _ ledger.QuoteSource = (*Market)(nil)

// NewMarket seeds the market with the demo symbol universe. seed 0 means
// time-based.
func NewMarket(seed int64) *Market {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	m := &Market{
		stocks: make(map[string]*Stock),
		rnd:    rand.New(rand.NewSource(seed)),
	}
	now := time.Now().UTC()
	for _, s := range defaultStocks() {
		s := s
		s.Open = s.Price
		s.High = s.Price
		s.Low = s.Price
		s.UpdatedAt = now
		m.stocks[s.Symbol] = &s
	}
	return m
}

func defaultStocks() []Stock {
	return []Stock{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: 17872},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Price: 37744},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Price: 14244},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", Price: 17535},
		{Symbol: "TSLA", Name: "Tesla, Inc.", Price: 17675},
		{Symbol: "META", Name: "Meta Platforms, Inc.", Price: 47240},
		{Symbol: "NFLX", Name: "Netflix, Inc.", Price: 60588},
		{Symbol: "NVDA", Name: "NVIDIA Corporation", Price: 88186},
	}
}

// GetQuote implements ledger.QuoteSource.
func (m *Market) GetQuote(ctx context.Context, symbol string) (ledger.Quote, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Quote{}, err
	}
	s, err := m.Get(symbol)
	if err != nil {
		return ledger.Quote{}, err
	}
	return ledger.Quote{Symbol: s.Symbol, Price: s.Price}, nil
}

// Get returns the full market-data snapshot for a symbol.
func (m *Market) Get(symbol string) (Stock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stocks[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Stock{}, ledger.ErrUnknownSymbol
	}
	return *s, nil
}

// Top returns all listed stocks sorted by symbol.
func (m *Market) Top() []Stock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Stock, 0, len(m.stocks))
	for _, s := range m.stocks {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Search matches symbols and company names by case-insensitive substring.
func (m *Market) Search(query string) []Stock {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Stock
	for _, s := range m.stocks {
		if strings.Contains(strings.ToLower(s.Symbol), query) ||
			strings.Contains(strings.ToLower(s.Name), query) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Tick applies one random-walk step (at most ±0.5%) to every listed stock
// and returns the updated snapshots.
func (m *Market) Tick() []Stock {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	out := make([]Stock, 0, len(m.stocks))
	for _, s := range m.stocks {
		delta := ledger.Money(float64(s.Price) * (m.rnd.Float64() - 0.5) * 0.01)
		s.Price += delta
		if s.Price < 1 {
			s.Price = 1
		}
		if s.Price > s.High {
			s.High = s.Price
		}
		if s.Price < s.Low {
			s.Low = s.Price
		}
		s.Change = s.Price - s.Open
		if base := s.Open; base > 0 {
			s.ChangePercent = float64(s.Change) / float64(base) * 100
		}
		s.UpdatedAt = now
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// StartDrift ticks the market at the given interval until the returned stop
// function is called. onTick, when non-nil, receives each updated snapshot.
func (m *Market) StartDrift(interval time.Duration, onTick func(Stock)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				updated := m.Tick()
				if onTick != nil {
					for _, s := range updated {
						onTick(s)
					}
				}
			}
		}
	}()
	return cancel
}
