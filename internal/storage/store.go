// Package storage provides the durable key-value store that holds the
// client's persisted state between runs: the bearer token and the last
// selected store.
package storage

import (
	"context"
	"errors"
)

// Keys of the persisted state layout.
const (
	// KeyToken holds the bearer token as an opaque string.
	KeyToken = "token"
	// KeyCurrentStoreID holds the last selected store id, as a decimal
	// integer string.
	KeyCurrentStoreID = "current_store_id"
)

// ErrClosed is returned by operations on a store after Close.
var ErrClosed = errors.New("storage: store is closed")

// Store defines the contract for all persistence mechanisms.
type Store interface {
	// Get returns the value stored under key. ok is false, with a nil
	// error, when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key. The write is visible to every subsequent
	// Get, from this or any other process sharing the backend, once Set
	// returns.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
