// Package sim generates synthetic trading activity for the demo binary.
package sim

import (
	"math/rand"
	"time"
)

type Trader struct {
	AccountID string
	Label     string
}

type Order struct {
	AccountID string
	Symbol    string
	Side      string // "BUY" | "SELL"
	Shares    int64
	Narrative string
}

type Scenario struct {
	Name       string
	Traders    []Trader
	Symbols    []string
	Narratives []string
}

func RetailFlowScenario() Scenario {
	return Scenario{
		Name: "RetailOpeningBell",
		Traders: []Trader{
			{AccountID: "sim-trader-001", Label: "Momentum chaser"},
			{AccountID: "sim-trader-002", Label: "Dip buyer"},
			{AccountID: "sim-trader-003", Label: "Index drifter"},
		},
		Symbols: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NFLX", "NVDA"},
		Narratives: []string{
			"Opening-bell momentum entry",
			"Scaling into a position after a pullback",
			"Trimming winners into strength",
			"Rotating out of megacap tech",
		},
	}
}

type Generator struct {
	scenario Scenario
	rnd      *rand.Rand
}

func NewGenerator(seed int64) Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return Generator{scenario: RetailFlowScenario(), rnd: rand.New(rand.NewSource(seed))}
}

// NextOrder picks a trader, a symbol and a small share count. Buys outnumber
// sells roughly 60/40 so portfolios accumulate over a run.
func (g Generator) NextOrder() Order {
	traders := g.scenario.Traders
	if len(traders) == 0 {
		panic("scenario requires at least one trader")
	}
	side := "BUY"
	if g.rnd.Intn(100) >= 60 {
		side = "SELL"
	}
	return Order{
		AccountID: traders[g.rnd.Intn(len(traders))].AccountID,
		Symbol:    g.scenario.Symbols[g.rnd.Intn(len(g.scenario.Symbols))],
		Side:      side,
		Shares:    int64(g.rnd.Intn(10) + 1),
		Narrative: g.scenario.Narratives[g.rnd.Intn(len(g.scenario.Narratives))],
	}
}

func (g Generator) Traders() []Trader {
	return append([]Trader(nil), g.scenario.Traders...)
}

func (g *Generator) OverrideTraders(traders []Trader) {
	g.scenario.Traders = append([]Trader(nil), traders...)
}
