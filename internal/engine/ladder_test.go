package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ladderOrder(id OrderID, qty uint64) *Order {
	return &Order{ID: id, Side: Sell, Price: 100, Quantity: qty}
}

func TestLadder_FIFOWithinLevel(t *testing.T) {
	ld := newLadder(1, 200)

	ld.push(ladderOrder(1, 5))
	ld.push(ladderOrder(2, 7))
	ld.push(ladderOrder(3, 9))

	lvl := ld.at(100)
	assert.Equal(t, uint64(21), lvl.quantity)
	assert.Equal(t, 3, lvl.count)

	// Head-to-tail walk reflects insertion order.
	ids := []OrderID{}
	for o := lvl.head; o != nil; o = o.next {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []OrderID{1, 2, 3}, ids)
}

func TestLadder_DetachMiddle(t *testing.T) {
	ld := newLadder(1, 200)

	a, b, c := ladderOrder(1, 5), ladderOrder(2, 7), ladderOrder(3, 9)
	ld.push(a)
	ld.push(b)
	ld.push(c)

	lvl := ld.at(100)
	lvl.detach(b)

	assert.Equal(t, uint64(14), lvl.quantity)
	assert.Equal(t, 2, lvl.count)
	assert.Same(t, a, lvl.head)
	assert.Same(t, c, lvl.tail)
	assert.Same(t, c, a.next)
	assert.Same(t, a, c.prev)
	assert.Nil(t, b.level)
}

func TestLadder_DetachEnds(t *testing.T) {
	ld := newLadder(1, 200)

	a, b := ladderOrder(1, 5), ladderOrder(2, 7)
	ld.push(a)
	ld.push(b)

	lvl := ld.at(100)
	lvl.detach(a)
	require.Same(t, b, lvl.head)
	require.Same(t, b, lvl.tail)

	lvl.detach(b)
	assert.True(t, lvl.empty())
	assert.Zero(t, lvl.quantity)
	assert.Zero(t, lvl.count)
}

func TestLadder_EmptyLevelSlotIsReusable(t *testing.T) {
	ld := newLadder(1, 200)

	o := ladderOrder(1, 5)
	ld.push(o)
	ld.at(100).detach(o)
	require.True(t, ld.isEmpty(100))

	// Repopulating a previously drained level behaves like a fresh one.
	ld.push(ladderOrder(2, 3))
	assert.Equal(t, uint64(3), ld.at(100).quantity)
	assert.Equal(t, OrderID(2), ld.peekFront(100).ID)
}

func TestLadder_Range(t *testing.T) {
	ld := newLadder(10, 20)

	assert.True(t, ld.inRange(10))
	assert.True(t, ld.inRange(20))
	assert.False(t, ld.inRange(9))
	assert.False(t, ld.inRange(21))
	assert.False(t, ld.inRange(0))
}
