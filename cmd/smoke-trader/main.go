// Command smoke-trader runs an end-to-end check against a live API server:
// register, buy, verify the books balance, sell, verify again.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"papertrade.org/internal/ledger"
	"papertrade.org/internal/ledger/remote"
)

func main() {
	base := os.Getenv("PAPERTRADE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := remote.New(base)
	email := fmt.Sprintf("smoke-%d@papertrade.test", rand.New(rand.NewSource(time.Now().UnixNano())).Int63())
	if err := client.Register(ctx, email, "smoke-test-password"); err != nil {
		log.Fatalf("register at %s: %v", base, err)
	}
	acct := client.AccountID()

	start, err := client.GetBalance(ctx, acct)
	if err != nil {
		log.Fatalf("starting balance: %v", err)
	}

	const shares = 2
	buy, err := client.Buy(ctx, acct, "AAPL", shares)
	if err != nil {
		log.Fatalf("buy: %v", err)
	}

	afterBuy, err := client.GetBalance(ctx, acct)
	if err != nil {
		log.Fatalf("balance after buy: %v", err)
	}
	if afterBuy != start-buy.Cost() {
		log.Fatalf("cash mismatch after buy: %s != %s - %s", afterBuy, start, buy.Cost())
	}

	pf, err := client.GetPortfolio(ctx, acct)
	if err != nil {
		log.Fatalf("portfolio: %v", err)
	}
	if len(pf.Holdings) != 1 || pf.Holdings[0].Shares != shares {
		log.Fatalf("unexpected portfolio: %+v", pf)
	}

	sell, err := client.Sell(ctx, acct, "AAPL", shares)
	if err != nil {
		log.Fatalf("sell: %v", err)
	}

	final, err := client.GetBalance(ctx, acct)
	if err != nil {
		log.Fatalf("final balance: %v", err)
	}
	if final != afterBuy+sell.Cost() {
		log.Fatalf("cash mismatch after sell: %s != %s + %s", final, afterBuy, sell.Cost())
	}

	history, err := client.GetHistory(ctx, acct, 10)
	if err != nil {
		log.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Side != ledger.SideSell || history[1].Side != ledger.SideBuy {
		log.Fatalf("unexpected history: %+v", history)
	}

	fmt.Printf("✅ papertrade smoke test passed: account=%s buy@%s sell@%s final=%s\n",
		acct, buy.Price, sell.Price, final)
}
