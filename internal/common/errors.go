package common

import "errors"

// Error kinds shared by every package of the exchange. Callers wrap them with
// context using fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnknownAsset  = errors.New("unknown asset")
	ErrUnknownBroker = errors.New("unknown broker")
	ErrNullArgument  = errors.New("null argument")
)
