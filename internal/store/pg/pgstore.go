// Package pg is the Postgres-backed ledger store. It mirrors the in-memory
// store's semantics: auto-provisioned accounts, atomic trades, a per-account
// monotonic transaction sequence.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"papertrade.org/internal/ids"
	"papertrade.org/internal/ledger"
)

type Store struct {
	db           *sql.DB
	startingCash ledger.Money
}

var _ ledger.Store = (*Store)(nil)

func Open(dsn string, startingCash ledger.Money) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewWithDB(db, startingCash), nil
}

// NewWithDB wraps an existing pool, mainly for tests.
func NewWithDB(db *sql.DB, startingCash ledger.Money) *Store {
	return &Store{db: db, startingCash: startingCash}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// ensureAccount provisions the row if missing and returns the cash balance
// with the account row locked for the remainder of the transaction.
func (s *Store) ensureAccount(ctx context.Context, tx *sql.Tx, id string) (ledger.Money, error) {
	if _, err := tx.ExecContext(ctx, `
		insert into accounts(id, created_at, cash)
		values ($1, now(), $2)
		on conflict (id) do nothing
	`, id, int64(s.startingCash)); err != nil {
		return 0, err
	}
	var cash int64
	if err := tx.QueryRowContext(ctx, `select cash from accounts where id=$1 for update`, id).Scan(&cash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ledger.ErrNotFound
		}
		return 0, err
	}
	return ledger.Money(cash), nil
}

func (s *Store) Account(ctx context.Context, id string) (ledger.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.ensureAccount(ctx, tx, id); err != nil {
		return ledger.Account{}, err
	}

	acc := ledger.Account{ID: id, Positions: map[string]ledger.Position{}}
	var cash int64
	if err := tx.QueryRowContext(ctx, `select created_at, cash from accounts where id=$1`, id).
		Scan(&acc.CreatedAt, &cash); err != nil {
		return ledger.Account{}, err
	}
	acc.Cash = ledger.Money(cash)

	rows, err := tx.QueryContext(ctx, `select symbol, shares, avg_cost from positions where account_id=$1`, id)
	if err != nil {
		return ledger.Account{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p ledger.Position
		var avg int64
		if err := rows.Scan(&p.Symbol, &p.Shares, &avg); err != nil {
			return ledger.Account{}, err
		}
		p.AvgCost = ledger.Money(avg)
		acc.Positions[p.Symbol] = p
	}
	if err := rows.Err(); err != nil {
		return ledger.Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func (s *Store) ApplyBuy(ctx context.Context, accountID, symbol string, shares int64, price ledger.Money) (ledger.Transaction, error) {
	if shares <= 0 {
		return ledger.Transaction{}, ledger.ErrInvalidShares
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cash, err := s.ensureAccount(ctx, tx, accountID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	cost, ok := ledger.TradeValue(shares, price)
	if !ok || cash < cost {
		return ledger.Transaction{}, ledger.ErrInsufficientFunds
	}

	var (
		heldShares int64
		heldAvg    int64
	)
	err = tx.QueryRowContext(ctx, `
		select shares, avg_cost from positions
		where account_id=$1 and symbol=$2 for update
	`, accountID, symbol).Scan(&heldShares, &heldAvg)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, err
	}

	newAvg := ledger.WeightedAvgCost(heldShares, ledger.Money(heldAvg), shares, price)
	if _, err := tx.ExecContext(ctx, `
		insert into positions(account_id, symbol, shares, avg_cost)
		values ($1,$2,$3,$4)
		on conflict (account_id, symbol) do update
		set shares = excluded.shares, avg_cost = excluded.avg_cost
	`, accountID, symbol, heldShares+shares, int64(newAvg)); err != nil {
		return ledger.Transaction{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		update accounts set cash = cash - $2 where id=$1
	`, accountID, int64(cost)); err != nil {
		return ledger.Transaction{}, err
	}

	rec, err := s.appendTransaction(ctx, tx, accountID, symbol, ledger.SideBuy, shares, price)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Transaction{}, err
	}
	return rec, nil
}

func (s *Store) ApplySell(ctx context.Context, accountID, symbol string, shares int64, price ledger.Money) (ledger.Transaction, error) {
	if shares <= 0 {
		return ledger.Transaction{}, ledger.ErrInvalidShares
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.ensureAccount(ctx, tx, accountID); err != nil {
		return ledger.Transaction{}, err
	}

	var (
		heldShares int64
		heldAvg    int64
	)
	err = tx.QueryRowContext(ctx, `
		select shares, avg_cost from positions
		where account_id=$1 and symbol=$2 for update
	`, accountID, symbol).Scan(&heldShares, &heldAvg)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, ledger.ErrInsufficientShares
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	if heldShares < shares {
		return ledger.Transaction{}, ledger.ErrInsufficientShares
	}
	proceeds, ok := ledger.TradeValue(shares, price)
	if !ok {
		return ledger.Transaction{}, ledger.ErrInsufficientShares
	}

	// A position sold down to zero is removed; the average cost of the
	// remainder never changes on a sell.
	if heldShares == shares {
		if _, err := tx.ExecContext(ctx, `
			delete from positions where account_id=$1 and symbol=$2
		`, accountID, symbol); err != nil {
			return ledger.Transaction{}, err
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			update positions set shares = shares - $3
			where account_id=$1 and symbol=$2
		`, accountID, symbol, shares); err != nil {
			return ledger.Transaction{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		update accounts set cash = cash + $2 where id=$1
	`, accountID, int64(proceeds)); err != nil {
		return ledger.Transaction{}, err
	}

	rec, err := s.appendTransaction(ctx, tx, accountID, symbol, ledger.SideSell, shares, price)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Transaction{}, err
	}
	return rec, nil
}

// appendTransaction assigns the next per-account sequence under the account
// row lock held by the caller.
func (s *Store) appendTransaction(ctx context.Context, tx *sql.Tx, accountID, symbol string, side ledger.Side, shares int64, price ledger.Money) (ledger.Transaction, error) {
	id := ids.New()
	var seq uint64
	var created time.Time
	err := tx.QueryRowContext(ctx, `
		insert into transactions(id, account_id, symbol, side, shares, price, sequence, created_at)
		select $1, $2, $3, $4, $5, $6, coalesce(max(sequence),0)+1, now()
		from transactions where account_id=$2
		returning sequence, created_at
	`, id, accountID, symbol, string(side), shares, int64(price)).Scan(&seq, &created)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.Transaction{
		ID:        id,
		AccountID: accountID,
		Symbol:    symbol,
		Side:      side,
		Shares:    shares,
		Price:     price,
		Sequence:  seq,
		CreatedAt: created.UTC(),
	}, nil
}

func (s *Store) Transactions(ctx context.Context, accountID string, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, symbol, side, shares, price, sequence, created_at
		from transactions
		where account_id=$1
		order by sequence desc
		limit $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ledger.Transaction
	for rows.Next() {
		t := ledger.Transaction{AccountID: accountID}
		var side string
		var price int64
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Shares, &price, &t.Sequence, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Side = ledger.Side(side)
		t.Price = ledger.Money(price)
		res = append(res, t)
	}
	return res, rows.Err()
}
