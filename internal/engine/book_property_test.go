package engine_test

import (
	"testing"

	"hati/internal/engine"

	"pgregory.net/rapid"
)

// Property: a bid and an ask trade exactly when their prices cross, and
// the book is never left crossed afterwards.
func TestProperty_PriceCompatibilityDeterminesMatching(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bidPrice := engine.Price(rapid.Uint32Range(1, 1000).Draw(t, "bidPrice"))
		askPrice := engine.Price(rapid.Uint32Range(1, 1000).Draw(t, "askPrice"))
		qty := rapid.Uint64Range(1, 100).Draw(t, "qty")

		sink := &recordingSink{}
		book, err := engine.NewBook(engine.Config{MinPrice: 1, MaxPrice: 1000}, sink)
		if err != nil {
			t.Fatalf("failed to build book: %v", err)
		}

		if err := book.NewLimit(1, engine.Sell, askPrice, qty); err != nil {
			t.Fatalf("failed to place ask: %v", err)
		}
		if err := book.NewLimit(2, engine.Buy, bidPrice, qty); err != nil {
			t.Fatalf("failed to place bid: %v", err)
		}

		shouldMatch := bidPrice >= askPrice
		if shouldMatch && len(sink.trades) == 0 {
			t.Fatalf("expected trade when bid=%d >= ask=%d, got none", bidPrice, askPrice)
		}
		if !shouldMatch && len(sink.trades) != 0 {
			t.Fatalf("expected no trade when bid=%d < ask=%d, got %d", bidPrice, askPrice, len(sink.trades))
		}

		if bid, ok := book.BestBid(); ok {
			if ask, ok := book.BestAsk(); ok && bid >= ask {
				t.Fatalf("book is crossed: best bid %d >= best ask %d", bid, ask)
			}
		}
	})
}

// Property: random command streams never create or destroy quantity.
func TestProperty_QuantityConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sink := &recordingSink{}
		book, err := engine.NewBook(engine.Config{MinPrice: 1, MaxPrice: 100}, sink)
		if err != nil {
			t.Fatalf("failed to build book: %v", err)
		}

		submitted := uint64(0)
		discarded := uint64(0)
		cancelled := uint64(0)
		amendedAway := uint64(0)

		n := rapid.IntRange(1, 60).Draw(t, "n")
		for i := 0; i < n; i++ {
			id := engine.OrderID(i + 1)
			side := engine.Buy
			if rapid.Bool().Draw(t, "side") {
				side = engine.Sell
			}
			qty := rapid.Uint64Range(1, 50).Draw(t, "qty")

			switch rapid.IntRange(0, 3).Draw(t, "cmd") {
			case 0, 1:
				price := engine.Price(rapid.Uint32Range(1, 100).Draw(t, "price"))
				if err := book.NewLimit(id, side, price, qty); err != nil {
					t.Fatalf("limit rejected: %v", err)
				}
				submitted += qty
			case 2:
				before := tradedQuantity(sink)
				err := book.NewMarket(id, side, qty)
				filled := tradedQuantity(sink) - before
				if err != nil {
					discarded += qty - filled
				}
				submitted += qty
			case 3:
				victim := engine.OrderID(rapid.IntRange(1, n).Draw(t, "victim"))
				if before, err := book.Remaining(victim); err == nil {
					if rapid.Bool().Draw(t, "amend") && before > 1 {
						newQty := rapid.Uint64Range(0, before-1).Draw(t, "newQty")
						if err := book.AmendDown(victim, newQty); err != nil {
							t.Fatalf("amend rejected: %v", err)
						}
						amendedAway += before - newQty
					} else {
						if err := book.Cancel(victim); err != nil {
							t.Fatalf("cancel rejected: %v", err)
						}
						cancelled += before
					}
				}
			}
		}

		resting := uint64(0)
		for p := engine.Price(1); p <= 100; p++ {
			for _, side := range []engine.Side{engine.Buy, engine.Sell} {
				qty, err := book.DepthAt(side, p)
				if err != nil {
					t.Fatalf("depth query failed: %v", err)
				}
				resting += qty
			}
		}

		total := resting + 2*tradedQuantity(sink) + discarded + cancelled + amendedAway
		if total != submitted {
			t.Fatalf("conservation violated: submitted=%d accounted=%d", submitted, total)
		}
	})
}

func tradedQuantity(sink *recordingSink) uint64 {
	sum := uint64(0)
	for _, tr := range sink.trades {
		sum += tr.Quantity
	}
	return sum
}
