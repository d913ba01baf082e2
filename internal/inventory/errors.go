package inventory

import "errors"

var (
	// ErrNotFound is returned when an id names no node.
	ErrNotFound = errors.New("inventory: not found")

	// ErrNotCategory is returned when a folder was expected.
	ErrNotCategory = errors.New("inventory: not a category")

	// ErrNotItem is returned when an item was expected.
	ErrNotItem = errors.New("inventory: not an item")

	// ErrOperationFailed is returned by injected faults standing in for a
	// server-side rejection.
	ErrOperationFailed = errors.New("inventory: operation failed")
)
