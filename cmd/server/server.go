package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"

	"hati/internal/engine"
	"hati/internal/journal"
	"hati/internal/marketdata"
	gateway "hati/internal/net"

	"github.com/rs/zerolog/log"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Listen address for the order-entry gateway")
	port := flag.Int("port", 9001, "Listen port for the order-entry gateway")
	journalDir := flag.String("journal-dir", "./journal_data", "Directory for the command journal")
	brokers := flag.String("kafka-brokers", "", "Comma-separated Kafka brokers; empty disables publishing")
	topic := flag.String("kafka-topic", "hati.marketdata", "Kafka topic for trades and depth updates")
	minPrice := flag.Uint("min-price", 1, "Lowest legal price tick")
	maxPrice := flag.Uint("max-price", 65535, "Highest legal price tick")
	maxOrders := flag.Int("max-orders", 1<<16, "Preallocation hint for live orders")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	jnl, err := journal.Open(journal.Config{Dir: *journalDir})
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open journal")
	}
	defer jnl.Close()

	depth := marketdata.NewDepthBook()
	var pub marketdata.Publisher = marketdata.NopPublisher{}
	if *brokers != "" {
		pub = marketdata.NewKafkaPublisher(strings.Split(*brokers, ","), *topic)
	}
	sink := marketdata.NewSink(depth, pub)

	// The gateway is part of the sink chain (execution reports), so it
	// is built first and handed the book afterwards.
	gw := gateway.New(*address, *port, nil, jnl)
	book, err := engine.NewBook(engine.Config{
		MinPrice:      engine.Price(*minPrice),
		MaxPrice:      engine.Price(*maxPrice),
		MaxLiveOrders: *maxOrders,
	}, engine.FanoutSink{gw, sink})
	if err != nil {
		log.Fatal().Err(err).Msg("unable to build book")
	}
	gw.SetBook(book)

	if err := replay(jnl, book); err != nil {
		log.Fatal().Err(err).Msg("journal replay failed")
	}

	go sink.Run(ctx)
	go gw.Run(ctx)
	// Block on running the gateway.
	<-ctx.Done()
}

// replay rebuilds the book from the journalled command stream. Command
// rejections are expected on replay (unfilled market orders, cancels of
// filled orders) and are not fatal.
func replay(jnl *journal.Journal, book *engine.Book) error {
	replayed := 0
	err := jnl.Replay(func(rec journal.Record) error {
		msg, err := gateway.ParseMessage(rec.Data)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case gateway.NewOrderMessage:
			if m.OrderType == gateway.MarketOrder {
				_ = book.NewMarket(m.OrderID, m.Side, m.Quantity)
			} else {
				_ = book.NewLimit(m.OrderID, m.Side, m.Price, m.Quantity)
			}
		case gateway.CancelOrderMessage:
			_ = book.Cancel(m.OrderID)
		case gateway.AmendOrderMessage:
			_ = book.AmendDown(m.OrderID, m.NewQuantity)
		}
		replayed++
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("commands", replayed).Int("live", book.LiveOrders()).Msg("journal replayed")
	return nil
}
