package stream

import (
	"context"
	"testing"
	"time"

	"papertrade.org/internal/ledger"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)

	tx := ledger.Transaction{Symbol: "AAPL", Side: ledger.SideBuy, Shares: 3, Price: 17872, CreatedAt: time.Now().UTC()}
	s.Publish(TradeEvent(tx))

	select {
	case evt := <-ch:
		if evt.Type != "trade" || evt.Symbol != "AAPL" || evt.Shares != 3 {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = s.Subscribe(ctx) // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(Event{Type: "quote", Symbol: "AAPL", Price: 17872})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
