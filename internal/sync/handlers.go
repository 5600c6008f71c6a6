package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"drift/internal/models"
	"drift/internal/store"
)

// RegisterStoreHandlers wires the replay handlers for one entity kind.
//
// Create replays the queued draft, then swaps the optimistic record for the
// server's by correlation id and retargets any queued operations that still
// reference the temporary id. Update replays the patch and then re-fetches
// the whole collection rather than trusting the patch response. Delete
// replays and removes locally, idempotently.
func RegisterStoreHandlers[T models.Record](c *Coordinator, entity models.EntityType, s *store.Store[T]) {
	c.RegisterHandler(entity, models.OpCreate, func(ctx context.Context, op models.MutationOperation) error {
		confirmed, err := s.Remote().Create(ctx, op.Payload)
		if err != nil {
			return err
		}

		if op.CorrelationID != "" {
			if !s.ResolveCreate(op.CorrelationID, confirmed) {
				// The optimistic record was removed offline; the queued
				// delete (retargeted below) will clean up server-side.
				c.logger.Info().Str("correlation_id", op.CorrelationID).
					Msg("confirmed create has no local record")
			}
			c.queue.RewriteID(ctx, op.CorrelationID, confirmed.RecordID())
		}
		return nil
	})

	c.RegisterHandler(entity, models.OpUpdate, func(ctx context.Context, op models.MutationOperation) error {
		var p models.UpdatePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fmt.Errorf("decode update payload: %w", err)
		}

		if _, err := s.Remote().Update(ctx, p.ID, p.Patch); err != nil {
			return err
		}
		return s.Fetch(ctx)
	})

	c.RegisterHandler(entity, models.OpDelete, func(ctx context.Context, op models.MutationOperation) error {
		var p models.DeletePayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fmt.Errorf("decode delete payload: %w", err)
		}

		if err := s.Remote().Delete(ctx, p.ID); err != nil {
			return err
		}
		s.RemoveByID(p.ID)
		return nil
	})
}
