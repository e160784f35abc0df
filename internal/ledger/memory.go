package ledger

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. Mutations on
// one account are serialized by that account's own mutex; operations on
// different accounts run fully in parallel. There is no global write lock.
type InMemory struct {
	startingCash Money

	mu    sync.RWMutex // guards the account table only
	accts map[string]*accountState
}

type accountState struct {
	mu  sync.Mutex // serializes all access to acc and log
	acc Account
	seq uint64
	log []Transaction
}

// NewInMemory creates an empty store. Every account provisioned on first
// access starts with startingCash.
func NewInMemory(startingCash Money) *InMemory {
	if startingCash.IsNegative() {
		startingCash = 0
	}
	return &InMemory{
		startingCash: startingCash,
		accts:        make(map[string]*accountState),
	}
}

// ensure returns the state for id, creating it race-free on first access.
func (s *InMemory) ensure(id string) *accountState {
	s.mu.RLock()
	st, ok := s.accts[id]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.accts[id]; ok {
		return st
	}
	st = &accountState{
		acc: Account{
			ID:        id,
			CreatedAt: time.Now().UTC(),
			Cash:      s.startingCash,
			Positions: make(map[string]Position),
		},
	}
	s.accts[id] = st
	return st
}

func (s *InMemory) Account(ctx context.Context, id string) (Account, error) {
	st := s.ensure(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	out := st.acc
	out.Positions = copyBook(st.acc.Positions)
	return out, nil
}

func (s *InMemory) ApplyBuy(ctx context.Context, accountID, symbol string, shares int64, price Money) (Transaction, error) {
	if shares <= 0 {
		return Transaction{}, ErrInvalidShares
	}
	cost, ok := TradeValue(shares, price)
	if !ok {
		// A cost beyond the int64 range exceeds any representable balance.
		return Transaction{}, ErrInsufficientFunds
	}

	st := s.ensure(accountID)
	st.mu.Lock()
	defer st.mu.Unlock()

	// Funds re-check under the lock: the quote was fetched outside it.
	if st.acc.Cash < cost {
		return Transaction{}, ErrInsufficientFunds
	}

	st.acc.Cash -= cost
	applyBuy(st.acc.Positions, symbol, shares, price)
	return st.append(accountID, symbol, SideBuy, shares, price), nil
}

func (s *InMemory) ApplySell(ctx context.Context, accountID, symbol string, shares int64, price Money) (Transaction, error) {
	if shares <= 0 {
		return Transaction{}, ErrInvalidShares
	}

	proceeds, ok := TradeValue(shares, price)
	if !ok {
		// No conservation-checked account can hold a lot this large.
		return Transaction{}, ErrInsufficientShares
	}

	st := s.ensure(accountID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := applySell(st.acc.Positions, symbol, shares); err != nil {
		return Transaction{}, err
	}
	st.acc.Cash += proceeds
	return st.append(accountID, symbol, SideSell, shares, price), nil
}

func (s *InMemory) Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	st := s.ensure(accountID)
	st.mu.Lock()
	defer st.mu.Unlock()

	n := len(st.log)
	if n < limit {
		limit = n
	}
	// Most-recent-first: walk the append-only log backwards.
	res := make([]Transaction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		res = append(res, st.log[i])
	}
	return res, nil
}

// append records a committed trade. Caller holds st.mu, so the sequence is
// assigned in the same critical section as the mutation it documents.
func (st *accountState) append(accountID, symbol string, side Side, shares int64, price Money) Transaction {
	st.seq++
	tx := Transaction{
		ID:        newID(),
		AccountID: accountID,
		Symbol:    symbol,
		Side:      side,
		Shares:    shares,
		Price:     price,
		Sequence:  st.seq,
		CreatedAt: time.Now().UTC(),
	}
	st.log = append(st.log, tx)
	return tx
}
