package profile

import "errors"

// Sentinel kinds for profile errors.
var (
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrSessionNotClosed = errors.New("session has no final metrics")
	ErrInvalidMode      = errors.New("invalid mode")
	ErrAmountOverflow   = errors.New("amount overflows counter")
)
