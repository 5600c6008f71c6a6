package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"drift/internal/metrics"
	"drift/internal/models"
	"drift/internal/storage"

	"github.com/rs/zerolog"
)

const (
	snapshotKey   = "drift:oplog"
	deadLetterKey = "drift:oplog:dead"
)

// DeadLetter is an operation set aside after exhausting its retries.
type DeadLetter struct {
	Operation models.MutationOperation `json:"operation"`
	Reason    string                   `json:"reason"`
	FailedAt  time.Time                `json:"failed_at"`
}

// Queue is the ordered, persisted list of pending mutations. Every mutating
// call schedules an asynchronous snapshot write to durable storage;
// callers never block on persistence. A crash between a mutation and its
// write can lose the most recent change — best-effort by design.
type Queue struct {
	kv     storage.KV
	logger *zerolog.Logger

	mu   sync.Mutex
	ops  []models.MutationOperation
	dead []DeadLetter
	wg   sync.WaitGroup
}

func New(kv storage.KV, logger *zerolog.Logger) *Queue {
	return &Queue{kv: kv, logger: logger}
}

// Load restores the queue and dead-letter list from durable storage.
// Unreadable storage leaves the queue empty; the error is informational.
func (q *Queue) Load(ctx context.Context) error {
	raw, ok, err := q.kv.GetItem(ctx, snapshotKey)
	if err != nil {
		return fmt.Errorf("load queue snapshot: %w", err)
	}
	if ok && raw != "" {
		var ops []models.MutationOperation
		if err := json.Unmarshal([]byte(raw), &ops); err != nil {
			return fmt.Errorf("decode queue snapshot: %w", err)
		}
		q.mu.Lock()
		q.ops = ops
		q.mu.Unlock()
	}

	rawDead, ok, err := q.kv.GetItem(ctx, deadLetterKey)
	if err != nil {
		return fmt.Errorf("load dead letters: %w", err)
	}
	if ok && rawDead != "" {
		var dead []DeadLetter
		if err := json.Unmarshal([]byte(rawDead), &dead); err != nil {
			return fmt.Errorf("decode dead letters: %w", err)
		}
		q.mu.Lock()
		q.dead = dead
		q.mu.Unlock()
	}

	metrics.SetQueueDepth(q.Size())
	return nil
}

// Enqueue appends a new operation and returns it. The payload is stored as
// JSON; the correlation id ties an offline create to its optimistic record.
func (q *Queue) Enqueue(ctx context.Context, kind models.OperationKind, entity models.EntityType, payload any, correlationID string) (models.MutationOperation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.MutationOperation{}, fmt.Errorf("encode operation payload: %w", err)
	}

	op := models.MutationOperation{
		ID:            models.NewOperationID(),
		Kind:          kind,
		EntityType:    entity,
		Payload:       raw,
		EnqueuedAt:    time.Now(),
		CorrelationID: correlationID,
	}

	q.mu.Lock()
	q.ops = append(q.ops, op)
	q.mu.Unlock()

	metrics.IncEnqueued(string(entity), string(kind))
	metrics.SetQueueDepth(q.Size())
	q.persistAsync(ctx)
	return op, nil
}

// All returns the pending operations in FIFO order.
func (q *Queue) All() []models.MutationOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.MutationOperation(nil), q.ops...)
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Remove deletes a completed operation.
func (q *Queue) Remove(ctx context.Context, id string) {
	q.mu.Lock()
	for i, op := range q.ops {
		if op.ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			break
		}
	}
	q.mu.Unlock()

	metrics.SetQueueDepth(q.Size())
	q.persistAsync(ctx)
}

// Bump increments the attempt counter and returns the new value. Returns 0
// when the operation is no longer queued.
func (q *Queue) Bump(ctx context.Context, id string) int {
	attempts := 0
	q.mu.Lock()
	for i := range q.ops {
		if q.ops[i].ID == id {
			q.ops[i].Attempts++
			attempts = q.ops[i].Attempts
			break
		}
	}
	q.mu.Unlock()

	q.persistAsync(ctx)
	return attempts
}

// MoveToDeadLetter removes the operation from the pending list and records
// it with the cause, so the UI layer can surface permanent failures.
func (q *Queue) MoveToDeadLetter(ctx context.Context, id string, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}

	q.mu.Lock()
	for i, op := range q.ops {
		if op.ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			q.dead = append(q.dead, DeadLetter{Operation: op, Reason: reason, FailedAt: time.Now()})
			metrics.IncDeadLettered(string(op.EntityType), string(op.Kind))
			break
		}
	}
	q.mu.Unlock()

	metrics.SetQueueDepth(q.Size())
	q.persistAsync(ctx)
}

// DeadLetters returns operations that permanently failed.
func (q *Queue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter(nil), q.dead...)
}

// RewriteID retargets queued update/delete payloads from a temporary id to
// the server-issued one after a create confirms. Returns how many
// operations were rewritten.
func (q *Queue) RewriteID(ctx context.Context, oldID, newID string) int {
	rewritten := 0

	q.mu.Lock()
	for i := range q.ops {
		target, ok := targetID(q.ops[i])
		if !ok || target != oldID {
			continue
		}
		if raw, err := retarget(q.ops[i], newID); err == nil {
			q.ops[i].Payload = raw
			rewritten++
		} else if q.logger != nil {
			q.logger.Warn().Err(err).Str("operation_id", q.ops[i].ID).Msg("failed to retarget operation")
		}
	}
	q.mu.Unlock()

	if rewritten > 0 {
		q.persistAsync(ctx)
	}
	return rewritten
}

// TargetID extracts the entity id an update/delete operation addresses.
func TargetID(op models.MutationOperation) (string, bool) {
	return targetID(op)
}

func targetID(op models.MutationOperation) (string, bool) {
	switch op.Kind {
	case models.OpUpdate:
		var p models.UpdatePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return "", false
		}
		return p.ID, true
	case models.OpDelete:
		var p models.DeletePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return "", false
		}
		return p.ID, true
	default:
		return "", false
	}
}

func retarget(op models.MutationOperation, newID string) (json.RawMessage, error) {
	switch op.Kind {
	case models.OpUpdate:
		var p models.UpdatePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return nil, err
		}
		p.ID = newID
		return json.Marshal(p)
	case models.OpDelete:
		return json.Marshal(models.DeletePayload{ID: newID})
	default:
		return nil, fmt.Errorf("operation kind %s carries no target id", op.Kind)
	}
}

// persistAsync writes the current snapshot without blocking the caller.
// Failures are logged and swallowed; the queue keeps operating in memory.
func (q *Queue) persistAsync(ctx context.Context) {
	q.mu.Lock()
	opsRaw, opsErr := json.Marshal(q.ops)
	deadRaw, deadErr := json.Marshal(q.dead)
	q.mu.Unlock()

	if opsErr != nil || deadErr != nil {
		if q.logger != nil {
			q.logger.Error().AnErr("ops", opsErr).AnErr("dead", deadErr).Msg("encode queue snapshot")
		}
		return
	}

	bg := context.WithoutCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.kv.SetItem(bg, snapshotKey, string(opsRaw)); err != nil && q.logger != nil {
			q.logger.Error().Err(err).Msg("persist queue snapshot")
		}
		if err := q.kv.SetItem(bg, deadLetterKey, string(deadRaw)); err != nil && q.logger != nil {
			q.logger.Error().Err(err).Msg("persist dead letters")
		}
	}()
}

// WaitIdle blocks until in-flight persistence writes finish. Used by tests
// and on shutdown.
func (q *Queue) WaitIdle() {
	q.wg.Wait()
}
