package common

import "strconv"

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return "Side(" + strconv.Itoa(int(s)) + ")"
}

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the side an offer is matched against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OfferStatus only ever moves forward:
// Open -> PartiallyExecuted -> Executed.
type OfferStatus uint8

const (
	Open OfferStatus = iota
	PartiallyExecuted
	Executed
)

func (s OfferStatus) String() string {
	switch s {
	case Open:
		return "OPEN"
	case PartiallyExecuted:
		return "PARTIALLY_EXECUTED"
	case Executed:
		return "EXECUTED"
	}
	return "OfferStatus(" + strconv.Itoa(int(s)) + ")"
}

// Traded reports whether at least part of the offer was filled.
func (s OfferStatus) Traded() bool {
	return s == PartiallyExecuted || s == Executed
}
