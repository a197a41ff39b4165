package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"tradingfloor/internal/common"
)

// Info asks for the traded price of an asset at a past instant. The answer
// callback fires exactly once, on the first tick after registration.
type Info struct {
	operation
	target   time.Time
	answer   func(price float64)
	answered atomic.Bool
}

func NewInfo(broker common.Broker, asset common.Asset, target time.Time, answer func(price float64)) (*Info, error) {
	return NewInfoAt(time.Now(), broker, asset, target, answer)
}

// NewInfoAt creates a price request with an explicit creation instant.
func NewInfoAt(instant time.Time, broker common.Broker, asset common.Asset, target time.Time, answer func(price float64)) (*Info, error) {
	if answer == nil {
		return nil, fmt.Errorf("%w: price request requires an answer callback", common.ErrNullArgument)
	}
	if target.IsZero() {
		return nil, fmt.Errorf("%w: price request requires a target instant", common.ErrValidation)
	}

	info := &Info{
		target: target,
		answer: answer,
	}
	if err := info.init(broker, asset, instant); err != nil {
		return nil, err
	}
	return info, nil
}

func (i *Info) Kind() OperationKind { return InfoKind }
func (i *Info) Target() time.Time   { return i.target }
func (i *Info) Answered() bool      { return i.answered.Load() }

func (i *Info) String() string {
	return fmt.Sprintf("%s INFO %s @ %s (answered: %t)",
		i.broker, i.asset, i.target.Format(time.RFC3339Nano), i.Answered())
}

// process answers the request. The flag flips before the callback runs, so a
// panicking callback is not retried on the next tick.
func (i *Info) process(_ Settler, book *OrderBook) (bool, error) {
	if !i.answered.CompareAndSwap(false, true) {
		return false, nil
	}
	i.answer(book.PriceAt(i.target))
	return true, nil
}
