package engine

// level is one price point: an intrusive doubly linked FIFO of resting
// orders plus the aggregates the book and the event sink need. An empty
// level keeps its slot so repopulating it allocates nothing.
type level struct {
	head, tail *Order
	quantity   uint64
	count      int
}

func (l *level) empty() bool {
	return l.head == nil
}

// push appends o at the tail, preserving time priority.
func (l *level) push(o *Order) {
	o.level = l
	o.prev = l.tail
	o.next = nil
	if l.tail != nil {
		l.tail.next = o
	} else {
		l.head = o
	}
	l.tail = o
	l.quantity += o.Quantity
	l.count++
}

// detach unlinks o from anywhere in the queue. The caller has already
// accounted for o's quantity if it mutated it.
func (l *level) detach(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.prev, o.next, o.level = nil, nil, nil
	l.quantity -= o.Quantity
	l.count--
}

// ladder is one side of the book: every legal price point, directly
// indexed. No ladder operation ever touches more than one level; walking
// to the next non-empty level on best-price exhaustion belongs to the
// book, which owns the best-price pointers.
type ladder struct {
	min, max Price
	levels   []level
}

func newLadder(min, max Price) ladder {
	return ladder{
		min:    min,
		max:    max,
		levels: make([]level, int(max-min)+1),
	}
}

func (ld *ladder) inRange(p Price) bool {
	return p >= ld.min && p <= ld.max
}

// at returns the level for p. Callers validate p first; at panics on an
// out-of-range price because reaching one past validation is a bug.
func (ld *ladder) at(p Price) *level {
	return &ld.levels[p-ld.min]
}

func (ld *ladder) push(o *Order) {
	ld.at(o.Price).push(o)
}

func (ld *ladder) peekFront(p Price) *Order {
	return ld.at(p).head
}

func (ld *ladder) isEmpty(p Price) bool {
	return ld.at(p).empty()
}
