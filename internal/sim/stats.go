package sim

import "papertrade.org/internal/ledger"

// Counter accumulates executed and rejected orders over a run.
type Counter struct {
	Executed   int
	Rejected   int
	Buys       int
	Sells      int
	TotalValue ledger.Money
}

func (c *Counter) AddExecuted(tx ledger.Transaction) {
	c.Executed++
	c.TotalValue += tx.Cost()
	switch tx.Side {
	case ledger.SideBuy:
		c.Buys++
	case ledger.SideSell:
		c.Sells++
	}
}

func (c *Counter) AddRejected() {
	c.Rejected++
}

func (c Counter) MajorValue() float64 {
	return float64(c.TotalValue) / 100
}
