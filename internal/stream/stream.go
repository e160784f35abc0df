package stream

import (
	"context"
	"sync"
	"time"

	"papertrade.org/internal/ledger"
	"papertrade.org/internal/quotes"
)

// Event is one item on the live feed: an executed trade or a quote tick.
type Event struct {
	Type      string    `json:"type"` // "trade" | "quote"
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side,omitempty"`
	Shares    int64     `json:"shares,omitempty"`
	Price     int64     `json:"price"` // minor units
	Timestamp time.Time `json:"timestamp"`
}

// TradeEvent builds the feed item for an executed transaction. The account
// id is deliberately omitted: the feed is broadcast to every subscriber.
func TradeEvent(tx ledger.Transaction) Event {
	return Event{
		Type:      "trade",
		Symbol:    tx.Symbol,
		Side:      string(tx.Side),
		Shares:    tx.Shares,
		Price:     int64(tx.Price),
		Timestamp: tx.CreatedAt,
	}
}

// QuoteEvent builds the feed item for a price tick.
func QuoteEvent(s quotes.Stock) Event {
	return Event{
		Type:      "quote",
		Symbol:    s.Symbol,
		Price:     int64(s.Price),
		Timestamp: s.UpdatedAt,
	}
}

// Stream fan-outs events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
