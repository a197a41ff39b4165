package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"tradingfloor/internal/common"
)

// Offer is a limit order to buy or sell an asset. Its remaining quantity and
// status are only mutated by the matching routine of its book.
type Offer struct {
	operation
	side     common.Side
	price    float64
	quantity uint64 // Total volume requested.

	mu        sync.Mutex
	remaining uint64
	status    common.OfferStatus
	lastPrice float64 // Price of the latest fill, NoPrice until filled.
}

func NewOffer(broker common.Broker, asset common.Asset, side common.Side, quantity uint64, price float64) (*Offer, error) {
	return NewOfferAt(time.Now(), broker, asset, side, quantity, price)
}

// NewOfferAt creates an offer with an explicit creation instant.
func NewOfferAt(instant time.Time, broker common.Broker, asset common.Asset, side common.Side, quantity uint64, price float64) (*Offer, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: invalid offer side %v", common.ErrValidation, side)
	}
	if quantity == 0 {
		return nil, fmt.Errorf("%w: offer quantity must be greater than 0", common.ErrValidation)
	}
	if !(price > 0) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: offer price must be greater than 0: %v", common.ErrValidation, price)
	}
	if !asset.Market.ValidQuantity(quantity) {
		return nil, fmt.Errorf("%w: quantity %d is invalid for the %s market of %s",
			common.ErrValidation, quantity, asset.Market, asset)
	}

	offer := &Offer{
		side:      side,
		price:     price,
		quantity:  quantity,
		remaining: quantity,
		status:    common.Open,
		lastPrice: NoPrice,
	}
	if err := offer.init(broker, asset, instant); err != nil {
		return nil, err
	}
	return offer, nil
}

func (o *Offer) Kind() OperationKind { return OfferKind }
func (o *Offer) Side() common.Side   { return o.side }
func (o *Offer) Price() float64      { return o.price }
func (o *Offer) Quantity() uint64    { return o.quantity }

func (o *Offer) Remaining() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remaining
}

func (o *Offer) Status() common.OfferStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Filled is the quantity consumed so far.
func (o *Offer) Filled() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.quantity - o.remaining
}

// LastPrice is the price of the latest fill, NoPrice if the offer never
// traded.
func (o *Offer) LastPrice() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastPrice
}

func (o *Offer) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fmt.Sprintf("%s %s %d/%d %s @ %f [%s]",
		o.broker, o.side, o.remaining, o.quantity, o.asset, o.price, o.status)
}

// consume takes up to quantity units off the offer at the given trade price
// and returns how many were taken.
func (o *Offer) consume(quantity uint64, price float64) (uint64, error) {
	if quantity == 0 {
		return 0, fmt.Errorf("%w: invalid quantity to consume: 0", common.ErrValidation)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status == common.Executed {
		return 0, fmt.Errorf("%w: cannot consume quantity of executed offer %s", common.ErrInvalidState, o.id)
	}

	consumed := min(o.remaining, quantity)
	o.remaining -= consumed
	o.lastPrice = price
	if o.remaining == 0 {
		o.status = common.Executed
	} else {
		o.status = common.PartiallyExecuted
	}
	return consumed, nil
}

// crosses reports whether the candidate can trade against o.
func (o *Offer) crosses(candidate *Offer) bool {
	if candidate == o || candidate.side == o.side {
		return false
	}
	if candidate.Status() == common.Executed {
		return false
	}
	if o.side == common.Buy {
		return o.price >= candidate.price
	}
	return o.price <= candidate.price
}

// process scans the book in creation order and fills the offer against every
// crossing opposite offer until it is executed. The candidate's price is the
// trade price.
//
// Each fill is prepared before either offer is touched. Only the book's
// processing pass mutates offers, so the quantity computed up front is the
// quantity consumed.
func (o *Offer) process(settler Settler, book *OrderBook) (bool, error) {
	if o.Status() == common.Executed {
		return false, nil
	}

	for _, candidate := range book.Offers() {
		// The offer may have been filled by a previous candidate.
		if o.Status() == common.Executed {
			break
		}
		if !o.crosses(candidate) {
			continue
		}

		quantity := min(o.Remaining(), candidate.Remaining())
		seller, buyer := o, candidate
		if o.side == common.Buy {
			seller, buyer = candidate, o
		}
		settlement, err := settler.Prepare(seller.broker, buyer.broker, book.asset, quantity, candidate.price)
		if err != nil {
			return true, err
		}

		if _, err := candidate.consume(quantity, candidate.price); err != nil {
			return true, err
		}
		if _, err := o.consume(quantity, candidate.price); err != nil {
			return true, err
		}
		settler.Post(settlement)
	}
	return true, nil
}
