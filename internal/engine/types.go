package engine

import (
	"strconv"

	"tradingfloor/internal/common"
)

// NoPrice is answered when no offer traded before the requested instant.
const NoPrice = -1.0

type OperationKind int

const (
	// Offers are resting buy or sell orders, matched on every tick until
	// fully executed.
	OfferKind OperationKind = iota
	// Infos request the traded price of an asset at an instant and are
	// answered once.
	InfoKind
)

func (k OperationKind) String() string {
	switch k {
	case OfferKind:
		return "OFFER"
	case InfoKind:
		return "INFO"
	}
	return "OperationKind(" + strconv.Itoa(int(k)) + ")"
}

// OfferObserver is notified synchronously whenever an offer is registered on
// an observed book. Observers must not register operations on the same book
// from within the callback. Implementations must be comparable.
type OfferObserver interface {
	OnNewOffer(offer *Offer)
}

// TransactionObserver is notified synchronously for every settled trade.
// Implementations must be comparable.
type TransactionObserver interface {
	OnTransaction(trade common.Trade)
}

// TickStats summarises a processing pass.
type TickStats struct {
	Operations int // Operations in the book(s) when the pass started.
	Processed  int // Operations that did something.
	Failed     int // Operations whose processing errored or panicked.
}

func (s TickStats) Add(other TickStats) TickStats {
	return TickStats{
		Operations: s.Operations + other.Operations,
		Processed:  s.Processed + other.Processed,
		Failed:     s.Failed + other.Failed,
	}
}
