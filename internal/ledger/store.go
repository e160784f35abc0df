package ledger

import "context"

// Store holds account state and owns the per-account concurrency boundary.
//
// Accounts are provisioned on first access with the configured starting cash
// (the original system silently created empty portfolios on first read; here
// that behaviour is explicit and race-safe). Implementations must apply a
// trade — balance change, position change and log append — as one atomic
// unit: no caller may ever observe a half-applied mutation, and a rejected
// trade leaves all state untouched.
type Store interface {
	// Account returns a snapshot of the account, creating it if needed.
	Account(ctx context.Context, id string) (Account, error)

	// ApplyBuy debits shares*price, merges the position (weighted average
	// cost) and appends a BUY transaction. Fails with ErrInsufficientFunds
	// when cash would go negative; the funds check runs under the account's
	// exclusive lock.
	ApplyBuy(ctx context.Context, accountID, symbol string, shares int64, price Money) (Transaction, error)

	// ApplySell credits shares*price, decrements or removes the position and
	// appends a SELL transaction. Fails with ErrInsufficientShares when the
	// account does not hold enough; the holdings check runs under the lock.
	ApplySell(ctx context.Context, accountID, symbol string, shares int64, price Money) (Transaction, error)

	// Transactions lists the account's trades most-recent-first.
	Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error)
}
