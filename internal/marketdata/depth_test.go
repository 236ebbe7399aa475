package marketdata_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hati/internal/engine"
	"hati/internal/marketdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthBook_BestAndOrdering(t *testing.T) {
	d := marketdata.NewDepthBook()

	d.Apply(engine.Buy, 99, 10)
	d.Apply(engine.Buy, 98, 50)
	d.Apply(engine.Sell, 100, 20)
	d.Apply(engine.Sell, 101, 5)

	best, ok := d.Best(engine.Buy)
	require.True(t, ok)
	assert.Equal(t, marketdata.Level{Price: 99, Quantity: 10}, best)

	best, ok = d.Best(engine.Sell)
	require.True(t, ok)
	assert.Equal(t, marketdata.Level{Price: 100, Quantity: 20}, best)

	// Bids come back high to low, asks low to high.
	assert.Equal(t, []marketdata.Level{
		{Price: 99, Quantity: 10},
		{Price: 98, Quantity: 50},
	}, d.TopN(engine.Buy, 10))
	assert.Equal(t, []marketdata.Level{
		{Price: 100, Quantity: 20},
		{Price: 101, Quantity: 5},
	}, d.TopN(engine.Sell, 10))
}

func TestDepthBook_ZeroQuantityRemovesLevel(t *testing.T) {
	d := marketdata.NewDepthBook()

	d.Apply(engine.Sell, 100, 20)
	d.Apply(engine.Sell, 100, 0)

	_, ok := d.Best(engine.Sell)
	assert.False(t, ok)
	assert.Zero(t, d.Levels(engine.Sell))
}

func TestDepthBook_UpdateReplacesQuantity(t *testing.T) {
	d := marketdata.NewDepthBook()

	d.Apply(engine.Buy, 99, 10)
	d.Apply(engine.Buy, 99, 4)

	best, ok := d.Best(engine.Buy)
	require.True(t, ok)
	assert.Equal(t, uint64(4), best.Quantity)
	assert.Equal(t, 1, d.Levels(engine.Buy))
}

// capturePublisher records published frames for assertions.
type capturePublisher struct {
	values chan []byte
}

func (p *capturePublisher) Publish(_ context.Context, _, value []byte) error {
	p.values <- value
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestSink_MirrorsEngineEvents(t *testing.T) {
	depth := marketdata.NewDepthBook()
	pub := &capturePublisher{values: make(chan []byte, 16)}
	sink := marketdata.NewSink(depth, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	// Drive the sink through a book holding one resting sell.
	book, err := engine.NewBook(engine.Config{MinPrice: 1, MaxPrice: 200}, sink)
	require.NoError(t, err)
	require.NoError(t, book.NewLimit(1, engine.Sell, 100, 5))
	require.NoError(t, book.NewLimit(2, engine.Buy, 100, 3))

	// Depth view tracks the engine's level state.
	best, ok := depth.Best(engine.Sell)
	require.True(t, ok)
	assert.Equal(t, marketdata.Level{Price: 100, Quantity: 2}, best)
	_, ok = depth.Best(engine.Buy)
	assert.False(t, ok, "aggressor fully filled, nothing rests")

	// Three frames: rest, trade, depth after the fill.
	var types []string
	for i := 0; i < 3; i++ {
		select {
		case raw := <-pub.values:
			var ev marketdata.Event
			require.NoError(t, json.Unmarshal(raw, &ev))
			types = append(types, ev.Type)
			if ev.Type == "trade" {
				assert.Equal(t, uint64(2), ev.Aggressor)
				assert.Equal(t, uint64(1), ev.Resting)
				assert.Equal(t, uint64(3), ev.Quantity)
				assert.Equal(t, uint32(100), ev.Price)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for published event")
		}
	}
	assert.Equal(t, []string{"depth", "trade", "depth"}, types)
	assert.Zero(t, sink.Dropped())
}
