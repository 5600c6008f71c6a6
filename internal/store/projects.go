package store

import (
	"drift/internal/connectivity"
	"drift/internal/events"
	"drift/internal/models"
	"drift/internal/queue"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ProjectStore is the project collection.
type ProjectStore struct {
	*Store[models.Project]
}

func NewProjectStore(remote Remote[models.Project], q *queue.Queue, monitor *connectivity.Monitor, bus *events.EventBus, logger *zerolog.Logger, clock clockwork.Clock) *ProjectStore {
	return &ProjectStore{
		Store: NewStore[models.Project](models.EntityProject, events.EventProjectsChanged, remote, q, monitor, bus, logger, clock),
	}
}
