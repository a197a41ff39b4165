package wallet

import (
	"fmt"
	"math"
	"time"

	"tradingfloor/internal/common"

	"github.com/shopspring/decimal"
)

// Transaction is a signed movement of quantity at a price. Positive
// quantities are credits (buys), negative ones debits (sells).
type Transaction struct {
	quantity int64
	price    float64
	instant  time.Time
	seq      uint64 // Assigned by the wallet, breaks ties on equal instants.
}

func NewTransaction(quantity int64, price float64, instant time.Time) (Transaction, error) {
	if quantity == 0 {
		return Transaction{}, fmt.Errorf("%w: transaction quantity must be non-zero", common.ErrValidation)
	}
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return Transaction{}, fmt.Errorf("%w: transaction price must be non-negative: %v",
			common.ErrValidation, price)
	}
	return Transaction{
		quantity: quantity,
		price:    price,
		instant:  instant,
	}, nil
}

func (t Transaction) Quantity() int64    { return t.quantity }
func (t Transaction) Price() float64     { return t.price }
func (t Transaction) Instant() time.Time { return t.instant }
func (t Transaction) Seq() uint64        { return t.seq }

// Value is the signed notional of the transaction.
func (t Transaction) Value() decimal.Decimal {
	return decimal.NewFromInt(t.quantity).Mul(decimal.NewFromFloat(t.price))
}

func (t Transaction) String() string {
	return fmt.Sprintf("%+d @ %f (%s)", t.quantity, t.price, t.instant.Format(time.RFC3339Nano))
}

// byInstant orders transactions by instant, then by registration order.
func byInstant(a, b Transaction) bool {
	if !a.instant.Equal(b.instant) {
		return a.instant.Before(b.instant)
	}
	return a.seq < b.seq
}
