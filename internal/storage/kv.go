package storage

import "context"

// KV is the durable key-value storage consumed by the operation queue.
// GetItem returns ok=false when the key has never been written.
type KV interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
}
