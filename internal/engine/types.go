package engine

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the side an aggressor on s matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Price is a discrete tick within the configured [MinPrice, MaxPrice]
// domain. Zero is never a legal price and doubles as the "no best price"
// sentinel inside the book.
type Price uint32

// OrderID is a caller-assigned handle, stable for the order's lifetime
// and never reused while the order is live.
type OrderID uint64

// Order is a resting limit order. The prev/next links and the owning
// level pointer make it an intrusive queue node, which is what buys O(1)
// cancel-by-id without a second lookup structure.
type Order struct {
	ID       OrderID
	Side     Side
	Price    Price
	Quantity uint64

	// Sequence is the arrival counter of the command that created the
	// order. FIFO position within a level already encodes time priority;
	// the counter exists so trades and resting orders can be correlated
	// by downstream consumers.
	Sequence uint64

	prev, next *Order
	level      *level
}

// Config bounds the static price domain and sizes the order table.
type Config struct {
	MinPrice Price
	MaxPrice Price

	// MaxLiveOrders is a preallocation hint for the order table, not a
	// hard cap.
	MaxLiveOrders int
}

// DefaultConfig mirrors the classic 16-bit price domain.
func DefaultConfig() Config {
	return Config{
		MinPrice:      1,
		MaxPrice:      65535,
		MaxLiveOrders: 1 << 16,
	}
}
