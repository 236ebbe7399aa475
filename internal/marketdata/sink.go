package marketdata

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"

	"hati/internal/engine"

	"github.com/rs/zerolog/log"
)

const defaultEventBuffer = 1 << 12

// Event is the JSON frame published for every trade and depth change.
type Event struct {
	V         int    `json:"v"`
	Type      string `json:"type"` // "trade" or "depth"
	Side      string `json:"side,omitempty"`
	Price     uint32 `json:"price"`
	Quantity  uint64 `json:"qty"`
	Aggressor uint64 `json:"aggressor,omitempty"`
	Resting   uint64 `json:"resting,omitempty"`
	Sequence  uint64 `json:"seq,omitempty"`
}

// Sink bridges the engine's synchronous event callbacks to the
// published feed. Callbacks only update the in-memory depth view and
// enqueue; the blocking broker write happens on the pump goroutine so
// the matching path never waits on the network.
type Sink struct {
	depth     *DepthBook
	publisher Publisher
	events    chan Event
	dropped   atomic.Uint64
}

func NewSink(depth *DepthBook, publisher Publisher) *Sink {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Sink{
		depth:     depth,
		publisher: publisher,
		events:    make(chan Event, defaultEventBuffer),
	}
}

// OnTrade implements engine.EventSink.
func (s *Sink) OnTrade(tr engine.Trade) {
	s.enqueue(Event{
		V:         1,
		Type:      "trade",
		Price:     uint32(tr.Price),
		Quantity:  tr.Quantity,
		Aggressor: uint64(tr.AggressorID),
		Resting:   uint64(tr.RestingID),
		Sequence:  tr.Sequence,
	})
}

// OnBookChanged implements engine.EventSink.
func (s *Sink) OnBookChanged(side engine.Side, price engine.Price, qty uint64) {
	s.depth.Apply(side, price, qty)
	s.enqueue(Event{
		V:        1,
		Type:     "depth",
		Side:     side.String(),
		Price:    uint32(price),
		Quantity: qty,
	})
}

// enqueue never blocks: market data is droppable, matching is not.
func (s *Sink) enqueue(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were shed under backpressure.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Run pumps queued events to the publisher until ctx is done.
func (s *Sink) Run(ctx context.Context) {
	log.Info().Msg("market data pump running")
	for {
		select {
		case <-ctx.Done():
			if err := s.publisher.Close(); err != nil {
				log.Error().Err(err).Msg("unable to close publisher")
			}
			return
		case ev := <-s.events:
			value, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Msg("unable to encode event")
				continue
			}
			key := []byte(strconv.FormatUint(ev.Sequence, 10))
			if err := s.publisher.Publish(ctx, key, value); err != nil {
				log.Error().Err(err).Str("type", ev.Type).Msg("publish failed")
			}
		}
	}
}
