package store

import (
	"context"

	"drift/internal/connectivity"
	"drift/internal/events"
	"drift/internal/models"
	"drift/internal/queue"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// TaskStore is the task collection with task-specific operations.
type TaskStore struct {
	*Store[models.Task]
}

func NewTaskStore(remote Remote[models.Task], q *queue.Queue, monitor *connectivity.Monitor, bus *events.EventBus, logger *zerolog.Logger, clock clockwork.Clock) *TaskStore {
	return &TaskStore{
		Store: NewStore[models.Task](models.EntityTask, events.EventTasksChanged, remote, q, monitor, bus, logger, clock),
	}
}

// ToggleComplete flips the completion flag. Completing forces progress to
// 100; reopening resets it to 0.
func (s *TaskStore) ToggleComplete(ctx context.Context, id string) (models.Task, error) {
	task, ok := s.Get(id)
	if !ok {
		return models.Task{}, ErrNotFound
	}

	completed := !task.Completed
	progress := 0
	if completed {
		progress = models.ProgressComplete
	}

	return s.Update(ctx, id, models.TaskPatch{Completed: &completed, Progress: &progress})
}
