package common

import (
	"fmt"
	"time"
)

// Trade is a settled match between a seller and a buyer.
type Trade struct {
	Seller    Broker
	Buyer     Broker
	Asset     Asset
	Quantity  uint64
	Price     float64
	Timestamp time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`Seller:    %s
Buyer:     %s
Asset:     %s
Quantity:  %d
Price:     %f
Timestamp: %v`,
		t.Seller,
		t.Buyer,
		t.Asset,
		t.Quantity,
		t.Price,
		t.Timestamp.Format(time.RFC3339Nano),
	)
}
