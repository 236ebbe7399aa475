package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableFixture(t *testing.T) (orderTable, ladder) {
	t.Helper()
	return newOrderTable(16), newLadder(1, 200)
}

func TestTable_InsertDuplicate(t *testing.T) {
	tbl, ld := tableFixture(t)

	o := ladderOrder(1, 5)
	ld.push(o)
	require.NoError(t, tbl.insert(o))
	assert.ErrorIs(t, tbl.insert(&Order{ID: 1}), ErrDuplicateID)
	assert.Equal(t, 1, tbl.size())
}

func TestTable_GetUnknown(t *testing.T) {
	tbl, _ := tableFixture(t)

	_, err := tbl.get(42)
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestTable_RemoveDetachesFromLevel(t *testing.T) {
	tbl, ld := tableFixture(t)

	a, b := ladderOrder(1, 5), ladderOrder(2, 7)
	ld.push(a)
	ld.push(b)
	require.NoError(t, tbl.insert(a))
	require.NoError(t, tbl.insert(b))

	got, err := tbl.remove(1)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.False(t, tbl.live(1))

	// The ladder queue no longer reaches the removed order.
	assert.Equal(t, OrderID(2), ld.peekFront(100).ID)
	assert.Equal(t, uint64(7), ld.at(100).quantity)

	_, err = tbl.remove(1)
	assert.ErrorIs(t, err, ErrUnknownID)
}
