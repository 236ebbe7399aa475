package engine

// Book is a single-instrument limit order book matching under strict
// price-then-time priority. One Book instance is exclusively owned by
// one caller goroutine: it processes each command to completion,
// including all sink callbacks, before the next may begin. Hosts that
// take commands from several producers must serialize them ahead of the
// book; see internal/net for the dispatch loop that does so.
type Book struct {
	cfg   Config
	bids  ladder
	asks  ladder
	table orderTable
	sink  EventSink

	// Best-price pointers, maintained incrementally. Zero means the
	// side is empty; it can never collide with a real price because the
	// domain starts at MinPrice >= 1.
	bestBid Price
	bestAsk Price

	// seq is the arrival counter over accepted commands. Rejected
	// commands consume no sequence number, keeping replayed streams
	// aligned with the original run.
	seq uint64
}

// NewBook constructs an empty book over the configured price domain.
// A nil sink is replaced by NopSink.
func NewBook(cfg Config, sink EventSink) (*Book, error) {
	if cfg.MinPrice == 0 || cfg.MaxPrice < cfg.MinPrice {
		return nil, ErrBadDomain
	}
	if sink == nil {
		sink = NopSink{}
	}
	hint := cfg.MaxLiveOrders
	if hint <= 0 {
		hint = 1024
	}
	return &Book{
		cfg:   cfg,
		bids:  newLadder(cfg.MinPrice, cfg.MaxPrice),
		asks:  newLadder(cfg.MinPrice, cfg.MaxPrice),
		table: newOrderTable(hint),
		sink:  sink,
	}, nil
}

// --- Queries ----------------------------------------------------------------

// BestBid returns the highest price with resting buy interest.
func (b *Book) BestBid() (Price, bool) {
	return b.bestBid, b.bestBid != 0
}

// BestAsk returns the lowest price with resting sell interest.
func (b *Book) BestAsk() (Price, bool) {
	return b.bestAsk, b.bestAsk != 0
}

// DepthAt returns the aggregate resting quantity at one price level.
func (b *Book) DepthAt(side Side, price Price) (uint64, error) {
	if !b.bids.inRange(price) {
		return 0, ErrPriceOutOfRange
	}
	return b.side(side).at(price).quantity, nil
}

// Remaining returns the live resting quantity of an order.
func (b *Book) Remaining(id OrderID) (uint64, error) {
	o, err := b.table.get(id)
	if err != nil {
		return 0, err
	}
	return o.Quantity, nil
}

// LiveOrders reports the number of resting orders across both sides.
func (b *Book) LiveOrders() int {
	return b.table.size()
}

// --- Commands ---------------------------------------------------------------

// NewLimit matches an incoming limit order against the opposite side and
// rests any remainder at price. Validation happens before any mutation,
// so a rejected command leaves no partial side effects.
func (b *Book) NewLimit(id OrderID, side Side, price Price, qty uint64) error {
	if !b.bids.inRange(price) {
		return ErrPriceOutOfRange
	}
	if qty == 0 {
		return ErrZeroQuantity
	}
	if b.table.live(id) {
		return ErrDuplicateID
	}

	b.seq++
	remaining := b.sweep(id, side, price, qty, true)
	if remaining == 0 {
		return nil
	}

	o := &Order{
		ID:       id,
		Side:     side,
		Price:    price,
		Quantity: remaining,
		Sequence: b.seq,
	}
	ld := b.side(side)
	ld.push(o)
	// Pre-checked against duplicates above.
	_ = b.table.insert(o)
	b.improveBest(side, price)
	b.sink.OnBookChanged(side, price, ld.at(price).quantity)
	return nil
}

// NewMarket matches an incoming market order with no price limit. A
// remainder is never rested: it is discarded and reported with
// ErrUnfilledMarketOrder, with any fills already made left standing.
func (b *Book) NewMarket(id OrderID, side Side, qty uint64) error {
	if qty == 0 {
		return ErrZeroQuantity
	}
	if b.table.live(id) {
		return ErrDuplicateID
	}

	b.seq++
	if remaining := b.sweep(id, side, 0, qty, false); remaining > 0 {
		return ErrUnfilledMarketOrder
	}
	return nil
}

// Cancel removes a still-resting order. Cancelling an id that is not
// live, including one already filled or already cancelled, fails with
// ErrUnknownID and changes nothing.
func (b *Book) Cancel(id OrderID) error {
	o, err := b.table.remove(id)
	if err != nil {
		return err
	}
	b.seq++
	lvl := b.side(o.Side).at(o.Price)
	b.sink.OnBookChanged(o.Side, o.Price, lvl.quantity)
	if lvl.empty() {
		b.retreatBest(o.Side, o.Price)
	}
	return nil
}

// AmendDown reduces a resting order's quantity to newQty, keeping its
// queue position. Increases are not supported: they would have to forfeit
// time priority, which is exactly a cancel plus a new order. newQty zero
// removes the order outright.
func (b *Book) AmendDown(id OrderID, newQty uint64) error {
	o, err := b.table.get(id)
	if err != nil {
		return err
	}
	if newQty >= o.Quantity {
		return ErrInsufficientQuantity
	}
	b.seq++
	lvl := o.level
	lvl.quantity -= o.Quantity - newQty
	o.Quantity = newQty
	if newQty == 0 {
		_, _ = b.table.remove(id)
	}
	b.sink.OnBookChanged(o.Side, o.Price, lvl.quantity)
	if lvl.empty() {
		b.retreatBest(o.Side, o.Price)
	}
	return nil
}

// --- Matching ---------------------------------------------------------------

// sweep walks the opposite side from its best price outward, consuming
// resting quantity FIFO within each level, until the incoming quantity
// is exhausted, liquidity runs out, or (for limited sweeps) the limit
// price no longer crosses. It returns the unmatched remainder.
func (b *Book) sweep(id OrderID, side Side, limit Price, qty uint64, limited bool) uint64 {
	opp := side.Opposite()
	ld := b.side(opp)

	for qty > 0 {
		best := b.best(opp)
		if best == 0 {
			break
		}
		if limited && !crosses(side, limit, best) {
			break
		}

		lvl := ld.at(best)
		resting := lvl.head
		m := min(qty, resting.Quantity)
		qty -= m
		resting.Quantity -= m
		lvl.quantity -= m

		b.sink.OnTrade(Trade{
			AggressorID: id,
			RestingID:   resting.ID,
			Price:       best,
			Quantity:    m,
			Sequence:    b.seq,
		})

		if resting.Quantity == 0 {
			_, _ = b.table.remove(resting.ID)
		}
		b.sink.OnBookChanged(opp, best, lvl.quantity)
		if lvl.empty() {
			b.retreatBest(opp, best)
		}
	}
	return qty
}

// crosses reports whether an aggressor on side with the given limit
// price trades at the opposite best.
func crosses(side Side, limit, oppositeBest Price) bool {
	if side == Buy {
		return limit >= oppositeBest
	}
	return limit <= oppositeBest
}

// --- Best-price bookkeeping -------------------------------------------------

func (b *Book) side(s Side) *ladder {
	if s == Buy {
		return &b.bids
	}
	return &b.asks
}

func (b *Book) best(s Side) Price {
	if s == Buy {
		return b.bestBid
	}
	return b.bestAsk
}

// improveBest updates the best pointer after an order rested at p.
func (b *Book) improveBest(s Side, p Price) {
	if s == Buy {
		if b.bestBid == 0 || p > b.bestBid {
			b.bestBid = p
		}
		return
	}
	if b.bestAsk == 0 || p < b.bestAsk {
		b.bestAsk = p
	}
}

// retreatBest rescans outward from the just-emptied level at p for the
// next non-empty one. Each level is skipped at most once before it is
// lazily repopulated, so the scan is amortized O(1) per command.
func (b *Book) retreatBest(s Side, p Price) {
	ld := b.side(s)
	if s == Buy {
		if p != b.bestBid {
			return
		}
		for q := p; q >= ld.min; q-- {
			if !ld.isEmpty(q) {
				b.bestBid = q
				return
			}
		}
		b.bestBid = 0
		return
	}
	if p != b.bestAsk {
		return
	}
	for q := p; q <= ld.max; q++ {
		if !ld.isEmpty(q) {
			b.bestAsk = q
			return
		}
	}
	b.bestAsk = 0
}
