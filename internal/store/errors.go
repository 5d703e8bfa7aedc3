package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("session not found")
	ErrSessionOpen = errors.New("session is still open")
	ErrEmptyNote   = errors.New("note text is empty")
)
