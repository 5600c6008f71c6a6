package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempIDs(t *testing.T) {
	id := NewTempID()
	assert.True(t, IsTempID(id))
	assert.False(t, IsTempID("42"))
	assert.False(t, IsTempID(""))

	other := NewTempID()
	assert.NotEqual(t, id, other)
}

func TestTaskDraftMaterialize(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	now := time.Date(2025, 5, 20, 12, 30, 0, 0, time.Local)

	draft := TaskDraft{Title: "write report", ProjectID: "p1", DueDate: &due}
	task := draft.Materialize("local-abc", now)

	assert.Equal(t, "local-abc", task.ID)
	assert.Equal(t, "write report", task.Title)
	assert.Equal(t, "p1", task.ProjectID)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, due, *task.DueDate)

	// Server-assigned fields stay at defaults.
	assert.False(t, task.Completed)
	assert.Zero(t, task.Progress)
	assert.Equal(t, now, task.CreatedAt)
}

func TestTaskPatchApply(t *testing.T) {
	task := Task{ID: "1", Title: "old", Notes: "keep", Progress: 10}

	title := "new"
	done := true
	progress := 100
	patched := TaskPatch{Title: &title, Completed: &done, Progress: &progress}.Apply(task)

	assert.Equal(t, "new", patched.Title)
	assert.True(t, patched.Completed)
	assert.Equal(t, 100, patched.Progress)
	assert.Equal(t, "keep", patched.Notes)

	// Original value is untouched; Apply is by value.
	assert.Equal(t, "old", task.Title)
}

func TestProjectPatchApply(t *testing.T) {
	p := Project{ID: "p1", Name: "Home", Color: "#fff"}

	name := "Work"
	patched := ProjectPatch{Name: &name}.Apply(p)

	assert.Equal(t, "Work", patched.Name)
	assert.Equal(t, "#fff", patched.Color)
}
