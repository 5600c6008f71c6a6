package sync

import (
	"context"
	"sync"
	"sync/atomic"

	"drift/internal/connectivity"
	"drift/internal/metrics"
	"drift/internal/models"
	"drift/internal/queue"

	"github.com/rs/zerolog"
)

// HandlerKey routes a queued operation to its handler.
type HandlerKey struct {
	Entity models.EntityType
	Kind   models.OperationKind
}

// Handler replays one queued operation against the server.
type Handler func(ctx context.Context, op models.MutationOperation) error

// Coordinator drains the durable queue when connectivity allows. A drain
// processes a snapshot of the queue in FIFO order; operations enqueued
// mid-drain wait for the next pass. Re-entrant ProcessQueue calls are
// no-ops while a drain is running.
type Coordinator struct {
	queue       *queue.Queue
	monitor     *connectivity.Monitor
	logger      *zerolog.Logger
	maxAttempts int

	mu       sync.RWMutex
	handlers map[HandlerKey]Handler

	draining atomic.Bool
}

func NewCoordinator(q *queue.Queue, monitor *connectivity.Monitor, maxAttempts int, logger *zerolog.Logger) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = models.MaxSyncAttempts
	}
	return &Coordinator{
		queue:       q,
		monitor:     monitor,
		logger:      logger,
		maxAttempts: maxAttempts,
		handlers:    make(map[HandlerKey]Handler),
	}
}

// RegisterHandler binds the single handler for an (entity, kind) pair.
// Registration must happen before the first drain; operations without a
// handler are dropped as unprocessable.
func (c *Coordinator) RegisterHandler(entity models.EntityType, kind models.OperationKind, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[HandlerKey{Entity: entity, Kind: kind}] = h
}

func (c *Coordinator) handler(op models.MutationOperation) (Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[HandlerKey{Entity: op.EntityType, Kind: op.Kind}]
	return h, ok
}

// ProcessQueue runs one drain pass. Offline it first waits for the next
// online transition. Handler errors never propagate to UI callers; they
// only drive retry accounting.
func (c *Coordinator) ProcessQueue(ctx context.Context) error {
	if !c.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer c.draining.Store(false)

	if !c.monitor.Online() {
		select {
		case <-c.monitor.WaitForOnline():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	snapshot := c.queue.All()
	for _, op := range snapshot {
		// An update/delete still addressing a temporary id is held until
		// its create confirms and retargets it.
		if target, ok := queue.TargetID(op); ok && models.IsTempID(target) {
			c.logger.Debug().Str("operation_id", op.ID).Str("target", target).
				Msg("holding operation for unconfirmed create")
			continue
		}

		handler, ok := c.handler(op)
		if !ok {
			c.logger.Warn().Str("operation_id", op.ID).
				Str("entity", string(op.EntityType)).Str("kind", string(op.Kind)).
				Msg("no handler registered, dropping operation")
			c.queue.Remove(ctx, op.ID)
			continue
		}

		if err := handler(ctx, op); err != nil {
			metrics.IncFailed(string(op.EntityType), string(op.Kind))
			attempts := c.queue.Bump(ctx, op.ID)
			c.logger.Warn().Err(err).Str("operation_id", op.ID).Int("attempts", attempts).
				Msg("operation replay failed")

			if attempts >= c.maxAttempts {
				c.queue.MoveToDeadLetter(ctx, op.ID, err)
				c.logger.Error().Str("operation_id", op.ID).
					Msg("operation exhausted retries, moved to dead letter")
			}
			continue
		}

		metrics.IncProcessed(string(op.EntityType), string(op.Kind))
		c.queue.Remove(ctx, op.ID)
	}

	metrics.IncDrain()
	return nil
}

// Start triggers a drain now when already online and on every reconnect.
// The returned func unsubscribes from connectivity transitions.
func (c *Coordinator) Start(ctx context.Context) func() {
	unsubscribe := c.monitor.Subscribe(func(online bool) {
		if online {
			go func() {
				if err := c.ProcessQueue(ctx); err != nil {
					c.logger.Warn().Err(err).Msg("queue drain aborted")
				}
			}()
		}
	})

	if c.monitor.Online() {
		go func() {
			if err := c.ProcessQueue(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("queue drain aborted")
			}
		}()
	}

	return unsubscribe
}
