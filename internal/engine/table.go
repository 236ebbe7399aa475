package engine

// orderTable maps live order ids to their ladder nodes. Because each
// Order carries its own queue links and level pointer, the table lookup
// is the only work a cancel needs before an O(1) unlink.
type orderTable struct {
	orders map[OrderID]*Order
}

func newOrderTable(hint int) orderTable {
	return orderTable{orders: make(map[OrderID]*Order, hint)}
}

func (t *orderTable) live(id OrderID) bool {
	_, ok := t.orders[id]
	return ok
}

func (t *orderTable) insert(o *Order) error {
	if _, ok := t.orders[o.ID]; ok {
		return ErrDuplicateID
	}
	t.orders[o.ID] = o
	return nil
}

func (t *orderTable) get(id OrderID) (*Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, ErrUnknownID
	}
	return o, nil
}

// remove detaches the order from its level queue and deletes the table
// entry. The caller is responsible for level-quantity and best-price
// bookkeeping, which need the book's view.
func (t *orderTable) remove(id OrderID) (*Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, ErrUnknownID
	}
	o.level.detach(o)
	delete(t.orders, id)
	return o, nil
}

func (t *orderTable) size() int {
	return len(t.orders)
}
