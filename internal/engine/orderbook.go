package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tradingfloor/internal/common"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"
)

var ErrOperationPanicked = errors.New("operation panicked")

type Operations = btree.BTreeG[Operation]

// OrderBook holds every operation ever submitted for one asset, in creation
// order. Operations are never removed: executed offers stay around as the
// price history answering Info requests.
type OrderBook struct {
	asset common.Asset
	log   zerolog.Logger

	// The tree carries its own lock, so registration may happen from any
	// goroutine while a pass works on a snapshot.
	operations *Operations
	seq        atomic.Uint64
	count      atomic.Int64

	observersLock sync.RWMutex
	observers     []OfferObserver

	// Serializes processing passes.
	processLock sync.Mutex
}

// Quote is the best open price on each side of a book.
type Quote struct {
	Bid    float64
	Ask    float64
	HasBid bool
	HasAsk bool
}

func NewOrderBook(asset common.Asset) *OrderBook {
	return newOrderBook(asset, log.Logger)
}

func newOrderBook(asset common.Asset, logger zerolog.Logger) *OrderBook {
	return &OrderBook{
		asset:      asset,
		log:        logger.With().Str("asset", asset.Symbol).Logger(),
		operations: btree.NewBTreeG(byInstant),
	}
}

func (book *OrderBook) Asset() common.Asset {
	return book.asset
}

// Register adds the operation to the book. Offers are announced to the
// book's observers before Register returns.
func (book *OrderBook) Register(op Operation) error {
	if isNil(op) {
		return fmt.Errorf("%w: operation", common.ErrNullArgument)
	}
	// The whole asset must match: market and parent decide lot validation
	// and the wallet entry a fill settles under.
	if op.Asset() != book.asset {
		return fmt.Errorf("%w: operation for %s does not belong to the %s book",
			common.ErrValidation, op.Asset(), book.asset)
	}
	if !op.register(book.seq.Add(1)) {
		return fmt.Errorf("%w: operation %s is already registered", common.ErrInvalidState, op.ID())
	}

	book.operations.Set(op)
	book.count.Add(1)

	if offer, ok := op.(*Offer); ok {
		book.notify(offer)
	}
	return nil
}

func (book *OrderBook) notify(offer *Offer) {
	book.observersLock.RLock()
	observers := append([]OfferObserver(nil), book.observers...)
	book.observersLock.RUnlock()

	for _, observer := range observers {
		observer.OnNewOffer(offer)
	}
}

// Observe subscribes to new offers. Subscribing twice has no effect.
func (book *OrderBook) Observe(observer OfferObserver) error {
	if observer == nil {
		return fmt.Errorf("%w: offer observer", common.ErrNullArgument)
	}

	book.observersLock.Lock()
	defer book.observersLock.Unlock()

	for _, existing := range book.observers {
		if existing == observer {
			return nil
		}
	}
	book.observers = append(book.observers, observer)
	return nil
}

// Operations returns a snapshot of the book in creation order.
func (book *OrderBook) Operations() []Operation {
	return book.operations.Items()
}

// OperationsOf returns a snapshot of the operations of one kind.
func (book *OrderBook) OperationsOf(kind OperationKind) []Operation {
	var ops []Operation
	book.operations.Scan(func(op Operation) bool {
		if op.Kind() == kind {
			ops = append(ops, op)
		}
		return true
	})
	return ops
}

func (book *OrderBook) Offers() []*Offer {
	var offers []*Offer
	book.operations.Scan(func(op Operation) bool {
		if offer, ok := op.(*Offer); ok {
			offers = append(offers, offer)
		}
		return true
	})
	return offers
}

func (book *OrderBook) Infos() []*Info {
	var infos []*Info
	book.operations.Scan(func(op Operation) bool {
		if info, ok := op.(*Info); ok {
			infos = append(infos, info)
		}
		return true
	})
	return infos
}

// Len is the number of registered operations. The tree's own Len does not
// take its lock.
func (book *OrderBook) Len() int {
	return int(book.count.Load())
}

// PriceAt returns the last trade price of the most recent offer created
// strictly before instant that traded at least partially, or NoPrice.
func (book *OrderBook) PriceAt(instant time.Time) float64 {
	price := NoPrice
	book.operations.Reverse(func(op Operation) bool {
		offer, ok := op.(*Offer)
		if !ok || !offer.Instant().Before(instant) {
			return true
		}
		if !offer.Status().Traded() {
			return true
		}
		price = offer.LastPrice()
		return false
	})
	return price
}

// Quote scans the offers still open for the best bid and ask.
func (book *OrderBook) Quote() Quote {
	var quote Quote
	for _, offer := range book.Offers() {
		if offer.Status() == common.Executed {
			continue
		}
		switch offer.Side() {
		case common.Buy:
			if !quote.HasBid || offer.Price() > quote.Bid {
				quote.Bid, quote.HasBid = offer.Price(), true
			}
		case common.Sell:
			if !quote.HasAsk || offer.Price() < quote.Ask {
				quote.Ask, quote.HasAsk = offer.Price(), true
			}
		}
	}
	return quote
}

// Process runs one pass over every operation in the book. A failing
// operation is logged and skipped, it is retried on the next pass if it is
// still pending. Passes on the same book never overlap.
//
// Operations registered while the pass runs may or may not be seen by it.
func (book *OrderBook) Process(settler Settler) (TickStats, error) {
	if settler == nil {
		return TickStats{}, fmt.Errorf("%w: settler", common.ErrNullArgument)
	}

	book.processLock.Lock()
	defer book.processLock.Unlock()

	ops := book.operations.Items()
	stats := TickStats{Operations: len(ops)}
	for _, op := range ops {
		processed, err := book.processOne(settler, op)
		if err != nil {
			stats.Failed++
			book.log.Error().
				Err(err).
				Str("operation", op.ID().String()).
				Str("kind", op.Kind().String()).
				Str("broker", op.Broker().ID).
				Msg("failed processing operation")
			continue
		}
		if processed {
			stats.Processed++
		}
	}
	return stats, nil
}

func (book *OrderBook) processOne(settler Settler, op Operation) (processed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			processed, err = false, fmt.Errorf("%w: %v", ErrOperationPanicked, r)
		}
	}()
	return op.process(settler, book)
}
