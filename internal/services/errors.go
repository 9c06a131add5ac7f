package services

import "errors"

var (
	// Trade validation failures. These are the only errors surfaced to
	// the user; everything upstream degrades to simulated data instead.
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidShareCount  = errors.New("share count must be at least 1")
	ErrUnknownSymbol      = errors.New("unknown symbol")

	// ErrNoData marks an upstream response that carried no usable points.
	ErrNoData = errors.New("no data available")

	// ErrStreamClosed is returned when writing to a price stream that has
	// already been closed or errored. The stream is never reopened
	// automatically.
	ErrStreamClosed = errors.New("price stream closed")
)
