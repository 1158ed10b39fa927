package domain

import "errors"

var (
	ErrInvalidPrice    = errors.New("order price must be positive")
	ErrInvalidQuantity = errors.New("order quantity must be positive")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotOpen    = errors.New("order is not open")
	ErrOrderExpired    = errors.New("order ttl elapsed")
	ErrInvalidReading  = errors.New("telemetry reading out of range")
	ErrConsumerHalted  = errors.New("matching consumer halted: error budget exceeded")
)
