package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"hati/internal/engine"
	gateway "hati/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange gateway")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'amend']")

	// Order parameters
	id := flag.Uint64("id", 1, "Order id (caller-assigned, unique while live)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.Uint("price", 100, "Limit price in ticks")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	// Amend parameters
	newQty := flag.Uint64("new-qty", 0, "New quantity for amend (must be lower)")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to gateway at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", *serverAddr)

	// Start listening for reports (async).
	go readReports(conn)

	side := engine.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = engine.Sell
	}
	orderType := gateway.LimitOrder
	if strings.ToLower(*typeStr) == "market" {
		orderType = gateway.MarketOrder
	}

	switch strings.ToLower(*action) {
	case "place":
		nextID := engine.OrderID(*id)
		for _, q := range parseQuantities(*qtyStr) {
			msg := gateway.NewOrderMessage{
				BaseMessage: gateway.BaseMessage{TypeOf: gateway.NewOrder},
				OrderID:     nextID,
				OrderType:   orderType,
				Side:        side,
				Price:       engine.Price(*price),
				Quantity:    q,
			}
			if _, err := conn.Write(msg.Serialize()); err != nil {
				log.Printf("Failed to place order %d: %v", nextID, err)
			} else {
				fmt.Printf("-> Sent %s %s id=%d qty=%d @ %d\n",
					strings.ToUpper(*sideStr), *typeStr, nextID, q, *price)
			}
			nextID++
			// Give the gateway a moment between frames so each read
			// returns one message.
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		msg := gateway.CancelOrderMessage{
			BaseMessage: gateway.BaseMessage{TypeOf: gateway.CancelOrder},
			OrderID:     engine.OrderID(*id),
		}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Fatalf("Failed to cancel order %d: %v", *id, err)
		}
		fmt.Printf("-> Sent CANCEL id=%d\n", *id)

	case "amend":
		msg := gateway.AmendOrderMessage{
			BaseMessage: gateway.BaseMessage{TypeOf: gateway.AmendOrder},
			OrderID:     engine.OrderID(*id),
			NewQuantity: *newQty,
		}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Fatalf("Failed to amend order %d: %v", *id, err)
		}
		fmt.Printf("-> Sent AMEND id=%d new-qty=%d\n", *id, *newQty)

	default:
		fmt.Printf("Unknown action %q\n", *action)
		flag.Usage()
		os.Exit(1)
	}

	// Linger briefly for reports before exiting.
	time.Sleep(500 * time.Millisecond)
}

// readReports prints every report frame the gateway sends back.
func readReports(conn net.Conn) {
	buffer := make([]byte, 4096)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			return
		}
		rep, err := gateway.ParseReport(buffer[:n])
		if err != nil {
			log.Printf("Unreadable report: %v", err)
			continue
		}
		switch rep.TypeOf {
		case gateway.ExecutionReport:
			fmt.Printf("<- EXEC qty=%d @ %d (aggressor=%d resting=%d seq=%d)\n",
				rep.Quantity, rep.Price, rep.AggressorID, rep.RestingID, rep.Sequence)
		case gateway.ErrorReport:
			fmt.Printf("<- REJECT: %s\n", rep.Err)
		default:
			fmt.Printf("<- report type=%d\n", rep.TypeOf)
		}
	}
}

func parseQuantities(s string) []uint64 {
	parts := strings.Split(s, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		q, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil || q == 0 {
			log.Fatalf("Invalid quantity %q", p)
		}
		out = append(out, q)
	}
	return out
}
