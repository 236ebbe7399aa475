package engine

// Trade is emitted once per matched pair. Price is always the resting
// order's price; Sequence is the arrival counter of the aggressing
// command, so every trade produced by one command shares it.
type Trade struct {
	AggressorID OrderID
	RestingID   OrderID
	Price       Price
	Quantity    uint64
	Sequence    uint64
}

// EventSink receives engine notifications. Callbacks fire synchronously
// inside the command that caused them, in the exact order the matches
// occurred; implementations must not call back into the book.
type EventSink interface {
	OnTrade(Trade)

	// OnBookChanged reports the new aggregate resting quantity at one
	// price level after it changed. A levelQty of zero means the level
	// emptied.
	OnBookChanged(side Side, price Price, levelQty uint64)
}

// FanoutSink forwards every notification to each sink in order, letting
// independent consumers (report routing, market data) share one book.
type FanoutSink []EventSink

func (f FanoutSink) OnTrade(t Trade) {
	for _, s := range f {
		s.OnTrade(t)
	}
}

func (f FanoutSink) OnBookChanged(side Side, price Price, levelQty uint64) {
	for _, s := range f {
		s.OnBookChanged(side, price, levelQty)
	}
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) OnTrade(Trade) {}

func (NopSink) OnBookChanged(Side, Price, uint64) {}
