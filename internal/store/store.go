package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"drift/internal/api"
	"drift/internal/connectivity"
	"drift/internal/events"
	"drift/internal/models"
	"drift/internal/queue"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("record not found")

// Remote is the server-side collection a store reconciles against.
// *api.Resource[T] satisfies it.
type Remote[T models.Record] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, body any) (T, error)
	Update(ctx context.Context, id string, patch any) (T, error)
	Delete(ctx context.Context, id string) error
}

// Draft carries the user-supplied fields of a new record and can synthesize
// an optimistic local record while the server create is pending.
type Draft[T any] interface {
	Materialize(id string, now time.Time) T
}

// Patch is a partial update applied optimistically.
type Patch[T any] interface {
	Apply(T) T
}

// Store holds the client's view of one collection. Mutations go straight to
// the server when online; offline they apply optimistically and enqueue a
// durable operation for a later drain.
type Store[T models.Record] struct {
	entity    models.EntityType
	eventType string
	remote    Remote[T]
	queue     *queue.Queue
	monitor   *connectivity.Monitor
	bus       *events.EventBus
	logger    *zerolog.Logger
	clock     clockwork.Clock

	mu       sync.Mutex
	records  []T
	lastSync time.Time
}

func NewStore[T models.Record](
	entity models.EntityType,
	eventType string,
	remote Remote[T],
	q *queue.Queue,
	monitor *connectivity.Monitor,
	bus *events.EventBus,
	logger *zerolog.Logger,
	clock clockwork.Clock,
) *Store[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store[T]{
		entity:    entity,
		eventType: eventType,
		remote:    remote,
		queue:     q,
		monitor:   monitor,
		bus:       bus,
		logger:    logger,
		clock:     clock,
	}
}

// Remote exposes the server collection for sync handlers.
func (s *Store[T]) Remote() Remote[T] { return s.remote }

// Records returns a copy of the current collection.
func (s *Store[T]) Records() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.records...)
}

// Get returns the record with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// LastSync reports when the collection was last replaced from the server.
func (s *Store[T]) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// Fetch replaces the collection with the server's view. Offline it is a
// deliberate no-op: cached state stays untouched and no error is returned.
func (s *Store[T]) Fetch(ctx context.Context) error {
	if !s.monitor.Online() {
		return nil
	}

	records, err := s.remote.List(ctx)
	if err != nil {
		if api.IsNetworkUnavailable(err) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.records = records
	s.lastSync = s.clock.Now()
	s.mu.Unlock()

	s.publish()
	return nil
}

// Create adds a record. Online it returns the server's record; offline it
// synthesizes one under a temporary id and queues a Create carrying the
// original draft, with the temp id as correlation key.
func (s *Store[T]) Create(ctx context.Context, draft Draft[T]) (T, error) {
	if s.monitor.Online() {
		created, err := s.remote.Create(ctx, draft)
		if err == nil {
			s.mu.Lock()
			s.records = append(s.records, created)
			s.mu.Unlock()
			s.publish()
			return created, nil
		}
		if !api.IsNetworkUnavailable(err) {
			var zero T
			return zero, err
		}
		// Transport fell over mid-call: take the offline path.
	}

	tempID := models.NewTempID()
	record := draft.Materialize(tempID, s.clock.Now())

	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()

	if _, err := s.queue.Enqueue(ctx, models.OpCreate, s.entity, draft, tempID); err != nil {
		s.logger.Error().Err(err).Str("entity", string(s.entity)).Msg("enqueue create")
	}

	s.publish()
	return record, nil
}

// Update applies the patch optimistically, then confirms with the server
// when online (rolling back on rejection) or queues the patch when offline.
func (s *Store[T]) Update(ctx context.Context, id string, patch Patch[T]) (T, error) {
	var zero T

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return zero, ErrNotFound
	}
	snapshot := append([]T(nil), s.records...)
	updated := patch.Apply(s.records[idx])
	s.records[idx] = updated
	s.mu.Unlock()
	s.publish()

	if s.monitor.Online() {
		authoritative, err := s.remote.Update(ctx, id, patch)
		if err == nil {
			s.replaceByID(id, authoritative)
			s.publish()
			return authoritative, nil
		}
		if !api.IsNetworkUnavailable(err) {
			s.mu.Lock()
			s.records = snapshot
			s.mu.Unlock()
			s.publish()
			return zero, err
		}
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return zero, err
	}
	if _, err := s.queue.Enqueue(ctx, models.OpUpdate, s.entity, models.UpdatePayload{ID: id, Patch: raw}, ""); err != nil {
		s.logger.Error().Err(err).Str("entity", string(s.entity)).Msg("enqueue update")
	}
	return updated, nil
}

// Delete removes the record optimistically, restoring it when the server
// rejects the call; offline it queues a Delete.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	snapshot := append([]T(nil), s.records...)
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.mu.Unlock()
	s.publish()

	if s.monitor.Online() {
		err := s.remote.Delete(ctx, id)
		if err == nil {
			return nil
		}
		if !api.IsNetworkUnavailable(err) {
			s.mu.Lock()
			s.records = snapshot
			s.mu.Unlock()
			s.publish()
			return err
		}
	}

	if _, err := s.queue.Enqueue(ctx, models.OpDelete, s.entity, models.DeletePayload{ID: id}, ""); err != nil {
		s.logger.Error().Err(err).Str("entity", string(s.entity)).Msg("enqueue delete")
	}
	return nil
}

// ResolveCreate swaps the optimistic record carrying the correlation temp id
// for the confirmed server record, keeping its slot. Returns false when the
// optimistic record was already removed locally.
func (s *Store[T]) ResolveCreate(tempID string, confirmed T) bool {
	s.mu.Lock()
	idx := s.indexLocked(tempID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.records[idx] = confirmed
	s.mu.Unlock()

	s.publish()
	return true
}

// RemoveByID drops the record if present; idempotent.
func (s *Store[T]) RemoveByID(id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.mu.Unlock()
	s.publish()
}

func (s *Store[T]) replaceByID(id string, rec T) {
	s.mu.Lock()
	if idx := s.indexLocked(id); idx >= 0 {
		s.records[idx] = rec
	}
	s.mu.Unlock()
}

func (s *Store[T]) indexLocked(id string) int {
	for i, rec := range s.records {
		if rec.RecordID() == id {
			return i
		}
	}
	return -1
}

func (s *Store[T]) publish() {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(s.eventType, s.Records()); err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Str("event", s.eventType).Msg("publish collection change")
	}
}
