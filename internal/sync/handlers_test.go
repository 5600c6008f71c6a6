package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"drift/internal/connectivity"
	"drift/internal/events"
	"drift/internal/models"
	"drift/internal/queue"
	"drift/internal/storage"
	"drift/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer keeps a server-side task list so handler replays can be
// verified end to end.
type fakeServer struct {
	tasks      []models.Task
	nextID     int
	createErr  error
	updateErr  error
	deleteErr  error
	creates    int
	updates    int
	deletes    int
	lastDelete string
}

func (f *fakeServer) List(ctx context.Context) ([]models.Task, error) {
	return append([]models.Task(nil), f.tasks...), nil
}

func (f *fakeServer) Create(ctx context.Context, body any) (models.Task, error) {
	f.creates++
	if f.createErr != nil {
		return models.Task{}, f.createErr
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return models.Task{}, err
	}
	var draft models.TaskDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return models.Task{}, err
	}

	f.nextID++
	task := models.Task{
		ID:        "srv-" + string(rune('0'+f.nextID)),
		Title:     draft.Title,
		ProjectID: draft.ProjectID,
		DueDate:   draft.DueDate,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeServer) Update(ctx context.Context, id string, patch any) (models.Task, error) {
	f.updates++
	if f.updateErr != nil {
		return models.Task{}, f.updateErr
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return models.Task{}, err
	}
	var p models.TaskPatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Task{}, err
	}

	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i] = p.Apply(f.tasks[i])
			return f.tasks[i], nil
		}
	}
	return models.Task{}, store.ErrNotFound
}

func (f *fakeServer) Delete(ctx context.Context, id string) error {
	f.deletes++
	f.lastDelete = id
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			break
		}
	}
	return nil
}

type replayFixture struct {
	server  *fakeServer
	store   *store.TaskStore
	queue   *queue.Queue
	monitor *connectivity.Monitor
	coord   *Coordinator
}

func newReplayFixture(t *testing.T) *replayFixture {
	t.Helper()
	logger := zerolog.Nop()
	kv := storage.NewMemoryKV()
	q := queue.New(kv, &logger)
	monitor := connectivity.NewMonitor(false, &logger)
	bus := events.NewEventBus()
	server := &fakeServer{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 20, 10, 0, 0, 0, time.Local))

	taskStore := store.NewTaskStore(server, q, monitor, bus, &logger, clock)
	coord := NewCoordinator(q, monitor, 3, &logger)
	RegisterStoreHandlers(coord, models.EntityTask, taskStore.Store)

	return &replayFixture{server: server, store: taskStore, queue: q, monitor: monitor, coord: coord}
}

func TestOfflineCreateReconcilesOnDrain(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, models.TaskDraft{Title: "buy milk"})
	require.NoError(t, err)
	require.True(t, models.IsTempID(created.ID))

	f.monitor.SetOnline(true)
	require.NoError(t, f.coord.ProcessQueue(ctx))

	assert.Equal(t, 1, f.server.creates)
	assert.Zero(t, f.queue.Size())

	records := f.store.Records()
	require.Len(t, records, 1)
	assert.False(t, models.IsTempID(records[0].ID), "temp record replaced by the server record")
	assert.Equal(t, "buy milk", records[0].Title)
}

func TestOfflineCreateThenUpdateReplaysInOrder(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, models.TaskDraft{Title: "draft"})
	require.NoError(t, err)

	title := "final"
	_, err = f.store.Update(ctx, created.ID, models.TaskPatch{Title: &title})
	require.NoError(t, err)

	// The queued update targets the temp id until the create confirms.
	target, ok := queue.TargetID(f.queue.All()[1])
	require.True(t, ok)
	assert.True(t, models.IsTempID(target))

	f.monitor.SetOnline(true)

	// First drain: create confirms and retargets the held update.
	require.NoError(t, f.coord.ProcessQueue(ctx))
	assert.Equal(t, 1, f.server.creates)
	assert.Zero(t, f.server.updates)
	require.Equal(t, 1, f.queue.Size())

	target, _ = queue.TargetID(f.queue.All()[0])
	assert.False(t, models.IsTempID(target))

	// Second drain replays the update against the server id.
	require.NoError(t, f.coord.ProcessQueue(ctx))
	assert.Equal(t, 1, f.server.updates)
	assert.Zero(t, f.queue.Size())

	require.Len(t, f.server.tasks, 1)
	assert.Equal(t, "final", f.server.tasks[0].Title)

	records := f.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "final", records[0].Title)
}

func TestOfflineDeleteReplays(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	// Seed server state and cache it while online.
	f.monitor.SetOnline(true)
	seeded, err := f.store.Create(ctx, models.TaskDraft{Title: "old"})
	require.NoError(t, err)
	f.monitor.SetOnline(false)

	require.NoError(t, f.store.Delete(ctx, seeded.ID))
	assert.Empty(t, f.store.Records())
	require.Equal(t, 1, f.queue.Size())

	f.monitor.SetOnline(true)
	require.NoError(t, f.coord.ProcessQueue(ctx))

	assert.Equal(t, 1, f.server.deletes)
	assert.Equal(t, seeded.ID, f.server.lastDelete)
	assert.Zero(t, f.queue.Size())
	assert.Empty(t, f.server.tasks)
}

func TestUpdateHandlerRefetchesCollection(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	f.monitor.SetOnline(true)
	seeded, err := f.store.Create(ctx, models.TaskDraft{Title: "a"})
	require.NoError(t, err)

	// Another client changed the server list in the meantime.
	f.server.tasks = append(f.server.tasks, models.Task{ID: "srv-x", Title: "external"})

	f.monitor.SetOnline(false)
	title := "b"
	_, err = f.store.Update(ctx, seeded.ID, models.TaskPatch{Title: &title})
	require.NoError(t, err)

	f.monitor.SetOnline(true)
	require.NoError(t, f.coord.ProcessQueue(ctx))

	// The post-update refetch pulled the full authoritative collection.
	records := f.store.Records()
	assert.Len(t, records, 2)
}

func TestDeletedOfflineBeforeCreateConfirms(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, models.TaskDraft{Title: "ephemeral"})
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, created.ID))

	f.monitor.SetOnline(true)

	// Drain 1: create confirms (no local record to resolve), delete is
	// retargeted. Drain 2: delete replays against the server id.
	require.NoError(t, f.coord.ProcessQueue(ctx))
	require.NoError(t, f.coord.ProcessQueue(ctx))

	assert.Zero(t, f.queue.Size())
	assert.Empty(t, f.server.tasks, "server-side record cleaned up")
	assert.Empty(t, f.store.Records())
}
