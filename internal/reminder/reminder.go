package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"drift/internal/events"
	"drift/internal/metrics"
	"drift/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Trigger is an absolute calendar-style notification time. Calendar
// components avoid drift from clock or timezone conversion of relative
// offsets.
type Trigger struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
	Hour   int        `json:"hour"`
	Minute int        `json:"minute"`
}

// Content is the visible part of a reminder.
type Content struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Scheduler is the OS notification subsystem. Cancellation completes
// asynchronously with no completion signal, which is why Resync verifies
// with bounded polling.
type Scheduler interface {
	RequestPermission(ctx context.Context) (bool, error)
	ScheduleAbsolute(ctx context.Context, trigger Trigger, content Content) (string, error)
	CancelAll(ctx context.Context) error
	ListScheduled(ctx context.Context) ([]string, error)
	SetBadgeCount(ctx context.Context, count int) error
}

// Reconciler keeps scheduled due-date reminders and the badge count equal
// to what the current task set implies. The OS API has no atomic
// replace-all, so each resync cancels everything and reschedules from
// scratch; the whole run is guarded so concurrent calls coalesce.
type Reconciler struct {
	scheduler      Scheduler
	logger         *zerolog.Logger
	clock          clockwork.Clock
	hour           int
	settlePoll     time.Duration
	settleDeadline time.Duration

	scheduling atomic.Bool
}

func NewReconciler(scheduler Scheduler, hour int, settlePoll, settleDeadline time.Duration, logger *zerolog.Logger, clock clockwork.Clock) *Reconciler {
	if hour <= 0 || hour > 23 {
		hour = models.ReminderHour
	}
	if settlePoll <= 0 {
		settlePoll = 100 * time.Millisecond
	}
	if settleDeadline <= 0 {
		settleDeadline = 2 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reconciler{
		scheduler:      scheduler,
		logger:         logger,
		clock:          clock,
		hour:           hour,
		settlePoll:     settlePoll,
		settleDeadline: settleDeadline,
	}
}

// Resync re-derives the full reminder set and badge count from tasks.
// A call while another run is in flight returns immediately; the reminder
// set is recomputed from state rather than accumulated, so a dropped call
// is corrected by the next one.
func (r *Reconciler) Resync(ctx context.Context, tasks []models.Task) error {
	if !r.scheduling.CompareAndSwap(false, true) {
		return nil
	}
	defer r.scheduling.Store(false)

	metrics.IncReminderResync()

	granted, err := r.scheduler.RequestPermission(ctx)
	if err != nil || !granted {
		if r.logger != nil {
			r.logger.Debug().Err(err).Bool("granted", granted).Msg("notification permission unavailable, skipping resync")
		}
		return nil
	}

	if err := r.scheduler.CancelAll(ctx); err != nil {
		return fmt.Errorf("cancel reminders: %w", err)
	}
	if leftovers := r.awaitSettled(ctx); leftovers > 0 {
		// Slow platforms get one more cancel round before we give up
		// and schedule anyway.
		if r.logger != nil {
			r.logger.Warn().Int("leftovers", leftovers).Msg("reminders still pending after cancel, retrying")
		}
		if err := r.scheduler.CancelAll(ctx); err != nil {
			return fmt.Errorf("cancel reminders: %w", err)
		}
		r.awaitSettled(ctx)
	}

	now := r.clock.Now()
	for _, task := range tasks {
		trigger, ok := Eligible(task, now, r.hour)
		if !ok {
			continue
		}

		content := Content{
			TaskID: task.ID,
			Title:  "Task due",
			Body:   task.Title,
		}
		if _, err := r.scheduler.ScheduleAbsolute(ctx, trigger, content); err != nil && r.logger != nil {
			r.logger.Warn().Err(err).Str("task_id", task.ID).Msg("schedule reminder")
		}
	}

	return r.scheduler.SetBadgeCount(ctx, BadgeCount(tasks, now))
}

// awaitSettled polls until no reminders remain or the deadline passes,
// returning how many were still listed at the end.
func (r *Reconciler) awaitSettled(ctx context.Context) int {
	deadline := r.clock.Now().Add(r.settleDeadline)
	for {
		ids, err := r.scheduler.ListScheduled(ctx)
		if err != nil {
			if r.logger != nil {
				r.logger.Debug().Err(err).Msg("list scheduled reminders")
			}
			return 0
		}
		if len(ids) == 0 {
			return 0
		}
		if !r.clock.Now().Before(deadline) {
			return len(ids)
		}

		select {
		case <-ctx.Done():
			return len(ids)
		case <-r.clock.After(r.settlePoll):
		}
	}
}

// Attach subscribes the reconciler to task-collection changes.
func (r *Reconciler) Attach(ctx context.Context, bus *events.EventBus) {
	bus.Subscribe(events.EventTasksChanged, func(e *events.Event) error {
		var tasks []models.Task
		if err := json.Unmarshal(e.Payload, &tasks); err != nil {
			return err
		}
		return r.Resync(ctx, tasks)
	})
}

// TriggerFor places a reminder at the given local hour on the due date.
func TriggerFor(due time.Time, hour int) Trigger {
	local := due.In(time.Local)
	return Trigger{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   hour,
		Minute: 0,
	}
}

// Eligible reports whether a task gets a reminder: not completed, has a due
// date, and neither the due date nor the trigger time is already past.
func Eligible(task models.Task, now time.Time, hour int) (Trigger, bool) {
	if task.Completed || task.DueDate == nil {
		return Trigger{}, false
	}

	due := task.DueDate.In(time.Local)
	today := dateOf(now.In(time.Local))
	if dateOf(due).Before(today) {
		return Trigger{}, false
	}

	trigger := TriggerFor(due, hour)
	fireAt := time.Date(trigger.Year, trigger.Month, trigger.Day, trigger.Hour, trigger.Minute, 0, 0, time.Local)
	if fireAt.Before(now) {
		return Trigger{}, false
	}

	return trigger, true
}

// BadgeCount is the number of non-completed tasks due today or earlier,
// overdue inclusive.
func BadgeCount(tasks []models.Task, now time.Time) int {
	today := dateOf(now.In(time.Local))
	count := 0
	for _, task := range tasks {
		if task.Completed || task.DueDate == nil {
			continue
		}
		if !dateOf(task.DueDate.In(time.Local)).After(today) {
			count++
		}
	}
	return count
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
