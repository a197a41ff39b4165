package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"tradingfloor/internal/common"
	fnet "tradingfloor/internal/net"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange gateway")
	owner := flag.String("owner", "", "Broker id (compulsory)")
	action := flag.String("action", "offer", "Action to perform: ['offer', 'price', 'heartbeat']")

	// Offer Parameters
	ticker := flag.String("ticker", "PETR4", "Asset symbol (max 8 chars), e.g. PETR4 or PETR4F")
	sideStr := flag.String("side", "buy", "Offer side: 'buy' or 'sell'")
	price := flag.Float64("price", 10.0, "Limit price")
	qtyStr := flag.String("qty", "100", "Quantity or comma-separated list (e.g. 100,200,500)")

	// Price Request Parameters
	ago := flag.Duration("ago", 0, "Request the price this long ago (e.g. 5s)")

	flag.Parse()

	// Validation
	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	// Connect to Server
	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as '%s'\n", *serverAddr, *owner)

	// Start Listening for Reports (Async)
	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	// Execute Action
	switch strings.ToLower(*action) {
	case "offer":
		for _, q := range parseQuantities(*qtyStr) {
			buf, err := fnet.NewOfferRequest(*owner, *ticker, side, q, *price).Serialize()
			if err == nil {
				_, err = conn.Write(buf)
			}
			if err != nil {
				log.Printf("Failed to send offer (Qty: %d): %v", q, err)
				continue
			}
			fmt.Printf("-> Sent %s Offer: %s %d @ %.2f\n", side, *ticker, q, *price)
		}

	case "price":
		at := time.Now().Add(-*ago)
		buf, err := fnet.NewPriceRequest(*owner, *ticker, at).Serialize()
		if err == nil {
			_, err = conn.Write(buf)
		}
		if err != nil {
			log.Printf("Failed to send price request: %v", err)
		} else {
			fmt.Printf("-> Sent Price Request: %s at %s\n", *ticker, at.Format(time.RFC3339Nano))
		}

	case "heartbeat":
		if _, err := conn.Write(fnet.SerializeHeartbeat()); err != nil {
			log.Printf("Failed to send heartbeat: %v", err)
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution and price reports
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// parseQuantities splits a comma-separated string into a slice of uint64
func parseQuantities(input string) []uint64 {
	var result []uint64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 64); err == nil {
			result = append(result, val)
		} else {
			log.Printf("Warning: Invalid quantity '%s', skipping.", p)
		}
	}
	return result
}

// readReports continuously reads and prints reports from the gateway
func readReports(conn net.Conn) {
	for {
		report, err := fnet.ReadReport(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("Connection lost: %v", err)
			}
			os.Exit(0)
		}

		switch report.MessageType {
		case fnet.ErrorReport:
			fmt.Printf("\n[SERVER ERROR] %s\n", report.Err)
		case fnet.AckReport:
			fmt.Printf("\n[ACK] %s accepted | UUID: %s\n", report.Ticker, report.UUID)
		case fnet.PriceReport:
			at := time.Unix(0, int64(report.Timestamp)).Format(time.RFC3339Nano)
			if report.Price < 0 {
				fmt.Printf("\n[PRICE] %s at %s: no price\n", report.Ticker, at)
			} else {
				fmt.Printf("\n[PRICE] %s at %s: %.2f\n", report.Ticker, at, report.Price)
			}
		case fnet.ExecutionReport:
			fmt.Printf("\n[EXECUTION] Match: %s %s | Qty: %d | Price: %.2f | vs: %s\n",
				report.Side, report.Ticker, report.Quantity, report.Price, report.Counterparty)
		}
	}
}
