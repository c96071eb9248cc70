package store

import (
	"context"
	"fmt"
)

// DurableKeyValueStore is the persistence contract behind the session
// draft layer. A Get issued after a Set on the same key reflects that
// Set; Remove of a missing key is not an error.
type DurableKeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

var (
	ErrNotFound     = fmt.Errorf("store: key not found")
	ErrNotAvailable = fmt.Errorf("store: not available")
)
