package core

import "errors"

var (
	// ErrInsufficientMargin indicates the account lacks margin for the requested order.
	ErrInsufficientMargin = errors.New("insufficient margin")
	// ErrDuplicateOrder indicates the client order id has already been accepted before.
	ErrDuplicateOrder = errors.New("duplicate order")
	// ErrOrderNotFound indicates the order does not exist on exchange.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderRejected indicates the order was rejected by exchange.
	ErrOrderRejected = errors.New("order rejected")
	// ErrOrderExpired indicates the order has expired on exchange.
	ErrOrderExpired = errors.New("order expired")
	// ErrUnknownSymbol indicates the exchange does not trade the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrBadPrecision indicates a price or quantity was sent with too many decimals.
	ErrBadPrecision = errors.New("bad precision")
)
