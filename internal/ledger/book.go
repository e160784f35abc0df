package ledger

import "math"

// Position book mutation rules. These are pure functions over an account's
// position map so the arithmetic can be tested without any store or lock.

// TradeValue returns shares*price in minor units. ok is false when the
// product does not fit in int64; callers must reject such trades before any
// balance arithmetic, or the funds check could be wrapped past.
func TradeValue(shares int64, price Money) (value Money, ok bool) {
	if price.IsPositive() && shares > math.MaxInt64/int64(price) {
		return 0, false
	}
	return price * Money(shares), true
}

// WeightedAvgCost re-weights an average cost after buying newShares at price.
// The division rounds half to even at cent precision; this is the single
// rounding point in the whole ledger, so conservation stays exact everywhere
// else.
func WeightedAvgCost(oldShares int64, oldAvg Money, newShares int64, price Money) Money {
	num := int64(oldAvg)*oldShares + int64(price)*newShares
	return divRoundHalfEven(num, oldShares+newShares)
}

// applyBuy merges shares bought at price into the book. Buying a symbol
// already held re-weights the existing lot; it never creates a second lot.
func applyBuy(book map[string]Position, symbol string, shares int64, price Money) {
	pos, ok := book[symbol]
	if !ok {
		book[symbol] = Position{Symbol: symbol, Shares: shares, AvgCost: price}
		return
	}
	pos.AvgCost = WeightedAvgCost(pos.Shares, pos.AvgCost, shares, price)
	pos.Shares += shares
	book[symbol] = pos
}

// applySell removes shares from the book. The average cost of the remaining
// lot is untouched; realized gains are never re-averaged. A sell that exceeds
// the held quantity is rejected, not clamped. Selling the entire position
// deletes the entry.
func applySell(book map[string]Position, symbol string, shares int64) error {
	pos, ok := book[symbol]
	if !ok || pos.Shares < shares {
		return ErrInsufficientShares
	}
	if pos.Shares == shares {
		delete(book, symbol)
		return nil
	}
	pos.Shares -= shares
	book[symbol] = pos
	return nil
}

// divRoundHalfEven divides num by den (den > 0, num >= 0) rounding the half
// case to the nearest even quotient.
func divRoundHalfEven(num, den int64) Money {
	q := num / den
	r := num % den
	switch {
	case 2*r < den:
	case 2*r > den:
		q++
	default:
		if q%2 != 0 {
			q++
		}
	}
	return Money(q)
}

func copyBook(book map[string]Position) map[string]Position {
	out := make(map[string]Position, len(book))
	for k, v := range book {
		out[k] = v
	}
	return out
}
