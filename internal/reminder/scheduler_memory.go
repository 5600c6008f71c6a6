package reminder

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ScheduledReminder is one entry held by the MemoryScheduler.
type ScheduledReminder struct {
	ID      string
	Trigger Trigger
	Content Content
}

// MemoryScheduler is an in-process Scheduler for platforms without a native
// notifier, and the default fake in tests. Permission is granted unless
// Denied is set.
type MemoryScheduler struct {
	Denied bool

	mu        sync.Mutex
	scheduled []ScheduledReminder
	badge     int
}

func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{}
}

func (m *MemoryScheduler) RequestPermission(ctx context.Context) (bool, error) {
	return !m.Denied, nil
}

func (m *MemoryScheduler) ScheduleAbsolute(ctx context.Context, trigger Trigger, content Content) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.scheduled = append(m.scheduled, ScheduledReminder{ID: id, Trigger: trigger, Content: content})
	return id, nil
}

func (m *MemoryScheduler) CancelAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled = nil
	return nil
}

func (m *MemoryScheduler) ListScheduled(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.scheduled))
	for _, s := range m.scheduled {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (m *MemoryScheduler) SetBadgeCount(ctx context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.badge = count
	return nil
}

// Scheduled returns a copy of the current entries.
func (m *MemoryScheduler) Scheduled() []ScheduledReminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ScheduledReminder(nil), m.scheduled...)
}

// Badge returns the last badge count set.
func (m *MemoryScheduler) Badge() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.badge
}
