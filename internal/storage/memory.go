package storage

import (
	"context"
	"sync"
)

// MemoryKV is a process-local KV used as a failover fallback and in tests.
type MemoryKV struct {
	items sync.Map
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{}
}

func (m *MemoryKV) GetItem(ctx context.Context, key string) (string, bool, error) {
	val, ok := m.items.Load(key)
	if !ok {
		return "", false, nil
	}
	return val.(string), true, nil
}

func (m *MemoryKV) SetItem(ctx context.Context, key, value string) error {
	m.items.Store(key, value)
	return nil
}
