package models

const (
	// ReminderHour is the local hour at which due-date reminders fire.
	ReminderHour = 9

	// MaxSyncAttempts bounds retries of a queued operation before it is
	// moved to the dead-letter list.
	MaxSyncAttempts = 3

	// ProgressComplete is forced onto a task when it is marked done.
	ProgressComplete = 100
)
