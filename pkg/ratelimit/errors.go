package ratelimit

import "errors"

var (
	ErrInvalidLimit     = errors.New("limit must be positive")
	ErrInvalidWindow    = errors.New("window must be positive")
	ErrKeyRequired      = errors.New("key is required")
	ErrStoreRequired    = errors.New("store is required")
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
