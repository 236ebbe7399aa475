package marketdata

import (
	"sync"

	"hati/internal/engine"

	"github.com/tidwall/btree"
)

// Level is one aggregated price level in the published view.
type Level struct {
	Price    engine.Price
	Quantity uint64
}

type levels = btree.BTreeG[Level]

// DepthBook is the sorted, aggregated view of the book that market-data
// consumers see. The matching core keeps its flat ladder; this mirror
// orders levels by price so best-first iteration and top-N queries are
// cheap regardless of how sparse the price domain is.
type DepthBook struct {
	mu   sync.RWMutex
	bids *levels
	asks *levels
}

func NewDepthBook() *DepthBook {
	// Bids sorted greatest first, asks least first, so Min() is the
	// best level on either side.
	bids := btree.NewBTreeG(func(a, b Level) bool {
		return a.Price > b.Price
	})
	asks := btree.NewBTreeG(func(a, b Level) bool {
		return a.Price < b.Price
	})
	return &DepthBook{bids: bids, asks: asks}
}

func (d *DepthBook) side(s engine.Side) *levels {
	if s == engine.Buy {
		return d.bids
	}
	return d.asks
}

// Apply folds one book-changed notification into the view. A zero
// quantity removes the level.
func (d *DepthBook) Apply(side engine.Side, price engine.Price, qty uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tree := d.side(side)
	if qty == 0 {
		tree.Delete(Level{Price: price})
		return
	}
	tree.Set(Level{Price: price, Quantity: qty})
}

// Best returns the top level of one side.
func (d *DepthBook) Best(side engine.Side) (Level, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.side(side).Min()
}

// TopN returns up to n levels, best first.
func (d *DepthBook) TopN(side engine.Side, n int) []Level {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Level, 0, n)
	d.side(side).Scan(func(lvl Level) bool {
		out = append(out, lvl)
		return len(out) < n
	})
	return out
}

// Levels reports how many price levels one side currently has.
func (d *DepthBook) Levels(side engine.Side) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.side(side).Len()
}
