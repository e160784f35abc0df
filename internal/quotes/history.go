package quotes

import (
	"errors"
	"hash/fnv"
	"math/rand"
	"time"

	"papertrade.org/internal/ledger"
)

// ErrInvalidRange indicates an unsupported history range.
var ErrInvalidRange = errors.New("invalid history range")

// HistoryPoint is one daily close of a generated price series.
type HistoryPoint struct {
	Date  string       `json:"date"` // YYYY-MM-DD
	Price ledger.Money `json:"price"`
}

// Series is a historical price series for one symbol.
type Series struct {
	Symbol string         `json:"symbol"`
	Range  string         `json:"range"`
	Points []HistoryPoint `json:"points"`
}

var rangeDays = map[string]int{
	"1d": 1,
	"1w": 7,
	"1m": 30,
	"3m": 90,
	"1y": 365,
	"5y": 1825,
}

// History generates a synthetic daily series anchored at the symbol's
// current price on the oldest day, walking forward from there. The walk is
// seeded from the symbol so repeated reads for the same day agree; it models
// 2% daily volatility plus a mild upward drift, like the rest of the
// simulated market.
func (m *Market) History(symbol, rng string) (Series, error) {
	days, ok := rangeDays[rng]
	if !ok {
		return Series{}, ErrInvalidRange
	}
	s, err := m.Get(symbol)
	if err != nil {
		return Series{}, err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Symbol))
	today := time.Now().UTC().Truncate(24 * time.Hour)
	_, _ = h.Write([]byte(today.Format("2006-01-02")))
	walk := rand.New(rand.NewSource(int64(h.Sum64())))

	base := float64(s.Price)
	points := make([]HistoryPoint, 0, days+1)
	price := base
	for i := days; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)
		if i == days {
			price = base
		} else {
			change := base * 0.02 * (walk.Float64() - 0.5) * 2
			trend := 0.0002 * base * float64(days-i)
			price = price + change + trend
			if price < 1 {
				price = 1
			}
		}
		points = append(points, HistoryPoint{
			Date:  date.Format("2006-01-02"),
			Price: ledger.Money(price),
		})
	}
	return Series{Symbol: s.Symbol, Range: rng, Points: points}, nil
}
