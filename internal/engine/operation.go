package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"tradingfloor/internal/common"

	"github.com/google/uuid"
)

// Operation is a unit of broker intent submitted to an order book.
//
// Operations are ordered by their creation instant. Operations created at the
// same instant are ordered by the sequence number assigned when they were
// registered on a book.
type Operation interface {
	ID() uuid.UUID
	Broker() common.Broker
	Asset() common.Asset
	Instant() time.Time
	Seq() uint64
	Kind() OperationKind

	// process runs the operation against its book once per tick, returning
	// whether it did anything.
	process(settler Settler, book *OrderBook) (bool, error)
	// register assigns the book sequence number. It fails if the operation
	// already belongs to a book.
	register(seq uint64) bool
}

// Settler posts the ledger entries of a match. Prepare has no side effects:
// a match it rejects leaves both offers untouched. A prepared settlement
// cannot fail to post.
type Settler interface {
	Prepare(seller, buyer common.Broker, asset common.Asset, quantity uint64, price float64) (*Settlement, error)
	Post(settlement *Settlement)
}

// operation holds the fields shared by every operation kind.
type operation struct {
	id      uuid.UUID
	broker  common.Broker
	asset   common.Asset
	instant time.Time
	seq     atomic.Uint64
}

func (op *operation) init(broker common.Broker, asset common.Asset, instant time.Time) error {
	if broker.ID == "" {
		return fmt.Errorf("%w: operation requires a broker", common.ErrValidation)
	}
	if asset.Symbol == "" {
		return fmt.Errorf("%w: operation requires an asset", common.ErrValidation)
	}
	if instant.IsZero() {
		return fmt.Errorf("%w: operation requires a creation instant", common.ErrValidation)
	}

	op.id = uuid.New()
	op.broker = broker
	op.asset = asset
	op.instant = instant
	return nil
}

func (op *operation) ID() uuid.UUID         { return op.id }
func (op *operation) Broker() common.Broker { return op.broker }
func (op *operation) Asset() common.Asset   { return op.asset }
func (op *operation) Instant() time.Time    { return op.instant }
func (op *operation) Seq() uint64           { return op.seq.Load() }

func (op *operation) register(seq uint64) bool {
	return op.seq.CompareAndSwap(0, seq)
}

// byInstant is the book ordering: creation instant, then registration order.
func byInstant(a, b Operation) bool {
	if !a.Instant().Equal(b.Instant()) {
		return a.Instant().Before(b.Instant())
	}
	return a.Seq() < b.Seq()
}

// isNil catches typed nil pointers stored in an Operation.
func isNil(op Operation) bool {
	switch v := op.(type) {
	case nil:
		return true
	case *Offer:
		return v == nil
	case *Info:
		return v == nil
	}
	return false
}
