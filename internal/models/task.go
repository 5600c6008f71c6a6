package models

import "time"

type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id,omitempty"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Completed bool       `json:"completed"`
	Progress  int        `json:"progress"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (t Task) RecordID() string { return t.ID }

// TaskDraft carries the user-supplied fields of a new task. Server-assigned
// fields are left to their zero values when a record has to be synthesized
// locally; the server response is authoritative once the create confirms.
type TaskDraft struct {
	ProjectID string     `json:"project_id,omitempty"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// Materialize builds the optimistic local record for an offline create.
func (d TaskDraft) Materialize(id string, now time.Time) Task {
	return Task{
		ID:        id,
		ProjectID: d.ProjectID,
		Title:     d.Title,
		Notes:     d.Notes,
		DueDate:   d.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	ProjectID *string    `json:"project_id,omitempty"`
	Title     *string    `json:"title,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	Completed *bool      `json:"completed,omitempty"`
	Progress  *int       `json:"progress,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

func (p TaskPatch) Apply(t Task) Task {
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Progress != nil {
		t.Progress = *p.Progress
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	return t
}
