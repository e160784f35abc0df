// Command demo drives synthetic trading flow through an in-process engine
// and prints run statistics. Useful for eyeballing ledger behaviour without
// a server or a database.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"papertrade.org/internal/ledger"
	"papertrade.org/internal/quotes"
	"papertrade.org/internal/sim"
)

func main() {
	var (
		workers      = flag.Int("workers", 4, "Concurrent worker count")
		orders       = flag.Int("orders", 500, "Orders per worker")
		startingCash = flag.Int64("starting-cash", 10_000_000, "Starting cash per account, minor units")
		seed         = flag.Int64("seed", 0, "Scenario seed (0 = time-based)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	market := quotes.NewMarket(*seed)
	stopDrift := market.StartDrift(time.Second, nil)
	defer stopDrift()

	engine := ledger.NewEngine(ledger.NewInMemory(ledger.Money(*startingCash)), market)
	scenario := sim.NewGenerator(*seed)

	log.Printf("Launching demo: workers=%d orders=%d traders=%d", *workers, *orders, len(scenario.Traders()))

	var (
		mu      sync.Mutex
		counter sim.Counter
	)

	baseSeed := *seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			// One generator per worker: the scenario's rand source is not
			// safe for concurrent use.
			generator := sim.NewGenerator(baseSeed + int64(id+1))
			rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id*9973)))
			for n := 0; n < *orders; n++ {
				if ctx.Err() != nil {
					return
				}
				order := generator.NextOrder()

				var (
					tx  ledger.Transaction
					err error
				)
				if order.Side == "SELL" {
					tx, err = engine.Sell(ctx, order.AccountID, order.Symbol, order.Shares)
				} else {
					tx, err = engine.Buy(ctx, order.AccountID, order.Symbol, order.Shares)
				}

				mu.Lock()
				if err != nil {
					counter.AddRejected()
				} else {
					counter.AddExecuted(tx)
				}
				mu.Unlock()

				if err != nil &&
					!errors.Is(err, ledger.ErrInsufficientFunds) &&
					!errors.Is(err, ledger.ErrInsufficientShares) {
					log.Printf("worker %d order failed: %v", id, err)
				}
				time.Sleep(time.Duration(rnd.Intn(5)) * time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	log.Printf("Run complete: %d executed (%d buys / %d sells), %d rejected, volume %.2f",
		counter.Executed, counter.Buys, counter.Sells, counter.Rejected, counter.MajorValue())

	for _, trader := range scenario.Traders() {
		pf, err := engine.GetPortfolio(context.Background(), trader.AccountID)
		if err != nil {
			log.Printf("portfolio %s: %v", trader.AccountID, err)
			continue
		}
		log.Printf("%-16s cash=%s equity=%s total=%s positions=%d",
			trader.AccountID, pf.Cash, pf.Equity, pf.Total, len(pf.Holdings))
	}
}
