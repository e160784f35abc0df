package ledger

import "testing"

func TestApplyBuyNewPosition(t *testing.T) {
	book := map[string]Position{}
	applyBuy(book, "AAPL", 10, 17050)

	pos, ok := book["AAPL"]
	if !ok {
		t.Fatal("expected AAPL position")
	}
	if pos.Shares != 10 || pos.AvgCost != 17050 {
		t.Fatalf("unexpected position: %+v", pos)
	}
}

func TestApplyBuyReweightsAverageCost(t *testing.T) {
	book := map[string]Position{}
	applyBuy(book, "AAPL", 10, 17050)
	applyBuy(book, "AAPL", 5, 17750)

	pos := book["AAPL"]
	// (10*170.50 + 5*177.50) / 15 = 172.8333... -> 172.83
	if pos.Shares != 15 || pos.AvgCost != 17283 {
		t.Fatalf("unexpected position after merge: %+v", pos)
	}
	if len(book) != 1 {
		t.Fatalf("merge must not create a second lot, got %d entries", len(book))
	}
}

func TestApplyBuySamePriceOrderIndependent(t *testing.T) {
	a := map[string]Position{}
	applyBuy(a, "MSFT", 3, 35020)
	applyBuy(a, "MSFT", 7, 35020)

	b := map[string]Position{}
	applyBuy(b, "MSFT", 7, 35020)
	applyBuy(b, "MSFT", 3, 35020)

	if a["MSFT"] != b["MSFT"] {
		t.Fatalf("same-price buys must commute: %+v vs %+v", a["MSFT"], b["MSFT"])
	}
	if a["MSFT"].AvgCost != 35020 {
		t.Fatalf("avg cost drifted on same-price buys: %v", a["MSFT"].AvgCost)
	}
}

func TestApplySellKeepsAverageCost(t *testing.T) {
	book := map[string]Position{}
	applyBuy(book, "TSLA", 8, 18075)

	if err := applySell(book, "TSLA", 3); err != nil {
		t.Fatal(err)
	}
	pos := book["TSLA"]
	if pos.Shares != 5 || pos.AvgCost != 18075 {
		t.Fatalf("partial sell must not touch avg cost: %+v", pos)
	}
}

func TestApplySellRemovesEmptiedPosition(t *testing.T) {
	book := map[string]Position{}
	applyBuy(book, "NVDA", 4, 88186)

	if err := applySell(book, "NVDA", 4); err != nil {
		t.Fatal(err)
	}
	if _, ok := book["NVDA"]; ok {
		t.Fatal("zero-share position must be removed, not retained")
	}
}

func TestApplySellRejectsOversell(t *testing.T) {
	book := map[string]Position{}
	applyBuy(book, "META", 2, 47240)

	if err := applySell(book, "META", 3); err != ErrInsufficientShares {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	if book["META"].Shares != 2 {
		t.Fatalf("rejected sell must not clamp: %+v", book["META"])
	}
	if err := applySell(book, "GOOGL", 1); err != ErrInsufficientShares {
		t.Fatalf("selling an unheld symbol: expected ErrInsufficientShares, got %v", err)
	}
}

func TestTradeValueFlagsOverflow(t *testing.T) {
	if v, ok := TradeValue(3, 17872); !ok || v != 53616 {
		t.Fatalf("TradeValue(3, 17872)=%v,%v", v, ok)
	}
	if v, ok := TradeValue(1_000_000, 0); !ok || v != 0 {
		t.Fatalf("zero price must be exact: %v,%v", v, ok)
	}
	if _, ok := TradeValue(1<<60, 17872); ok {
		t.Fatal("product past MaxInt64 must be flagged")
	}
	if _, ok := TradeValue(2, Money(1)<<62); ok {
		t.Fatal("product past MaxInt64 must be flagged")
	}
}

func TestWeightedAvgCostRoundsHalfEven(t *testing.T) {
	cases := []struct {
		oldShares int64
		oldAvg    Money
		newShares int64
		price     Money
		want      Money
	}{
		{1, 1000, 1, 1500, 1250},  // exact
		{1, 1000, 1, 1501, 1250},  // 1250.5 -> 1250 (even)
		{1, 1001, 1, 1502, 1252},  // 1251.5 -> 1252 (even)
		{10, 17050, 5, 17750, 17283},
	}
	for _, c := range cases {
		got := WeightedAvgCost(c.oldShares, c.oldAvg, c.newShares, c.price)
		if got != c.want {
			t.Fatalf("WeightedAvgCost(%d,%d,%d,%d)=%d, want %d",
				c.oldShares, c.oldAvg, c.newShares, c.price, got, c.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[Money]string{
		17050:    "170.50",
		5:        "0.05",
		-1234:    "-12.34",
		10000000: "100000.00",
	}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Fatalf("Money(%d).String()=%q, want %q", int64(m), got, want)
		}
	}
}
