package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"papertrade.org/internal/auth"
	"papertrade.org/internal/httpapi"
	"papertrade.org/internal/ledger"
	"papertrade.org/internal/obs"
	"papertrade.org/internal/quotes"
	"papertrade.org/internal/store/pg"
	"papertrade.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

const defaultStartingCash = ledger.Money(10_000_000) // 100,000.00

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	startingCash := defaultStartingCash
	if raw := os.Getenv("PAPERTRADE_STARTING_CASH"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			log.Fatalf("PAPERTRADE_STARTING_CASH must be a non-negative integer of minor units, got %q", raw)
		}
		startingCash = ledger.Money(v)
	}

	// Durable store when a DSN is configured, in-memory otherwise. /readyz
	// pings the DB in the durable case.
	var (
		store ledger.Store
		db    *sql.DB
	)
	if dsn := os.Getenv("PAPERTRADE_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn, startingCash)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
		db = pgStore.DB()
		defer pgStore.Close()
	} else {
		store = ledger.NewInMemory(startingCash)
	}

	market := quotes.NewMarket(0)
	engine := ledger.NewEngine(store, market)
	users := auth.NewRegistry()
	feed := stream.New()

	stopDrift := market.StartDrift(5*time.Second, func(s quotes.Stock) {
		obs.QuoteTick()
		feed.Publish(stream.QuoteEvent(s))
	})
	defer stopDrift()

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, engine, market, users, feed)

	addr := os.Getenv("PAPERTRADE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: /v1/stream holds its response open.
	}

	log.Printf("Starting papertrade-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
