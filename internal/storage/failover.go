package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverKV prefers a primary store and degrades to a fallback when the
// primary errors. The primary is probed again after a cooldown, so a
// recovered redis resumes receiving queue snapshots.
type FailoverKV struct {
	primary  KV
	fallback KV
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	cooldown  time.Duration
}

func NewFailoverKV(primary, fallback KV, logger *zerolog.Logger) *FailoverKV {
	return &FailoverKV{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		cooldown: time.Minute,
	}
}

func (f *FailoverKV) markDown() {
	f.isDown.Store(true)
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
}

func (f *FailoverKV) shouldRetryPrimary() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Since(f.lastCheck) > f.cooldown
}

func (f *FailoverKV) GetItem(ctx context.Context, key string) (string, bool, error) {
	if !f.isDown.Load() {
		value, ok, err := f.primary.GetItem(ctx, key)
		if err == nil {
			return value, ok, nil
		}
		f.logger.Error().Err(err).Str("key", key).Msg("primary storage failed, falling back")
		f.markDown()
	} else if f.shouldRetryPrimary() {
		value, ok, err := f.primary.GetItem(ctx, key)
		if err == nil {
			f.isDown.Store(false)
			return value, ok, nil
		}
		f.mu.Lock()
		f.lastCheck = time.Now()
		f.mu.Unlock()
	}

	return f.fallback.GetItem(ctx, key)
}

func (f *FailoverKV) SetItem(ctx context.Context, key, value string) error {
	if !f.isDown.Load() {
		err := f.primary.SetItem(ctx, key, value)
		if err == nil {
			// Mirror to the fallback so a later primary outage still
			// serves the latest snapshot.
			_ = f.fallback.SetItem(ctx, key, value)
			return nil
		}
		f.logger.Error().Err(err).Str("key", key).Msg("primary storage failed, falling back")
		f.markDown()
	}

	return f.fallback.SetItem(ctx, key, value)
}
