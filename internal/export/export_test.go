package export

import (
	"testing"
	"time"

	"drift/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTasksExport(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(t.TempDir(), &logger)

	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	tasks := []models.Task{
		{ID: "t1", Title: "write report", ProjectID: "p1", DueDate: &due, Progress: 40},
		{ID: "t2", Title: "archive", Completed: true, Progress: 100},
	}
	projects := []models.Project{{ID: "p1", Name: "Quarterly"}}

	path, err := e.Tasks(tasks, projects)
	require.NoError(t, err)
	require.FileExists(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(tasksSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per task")

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "write report", rows[1][1])
	assert.Equal(t, "Quarterly", rows[1][2], "project id resolved to name")
	assert.Equal(t, "01.06.2025", rows[1][4])
	assert.Equal(t, "No", rows[1][5])
	assert.Equal(t, "Yes", rows[2][5])
	assert.Equal(t, "100%", rows[2][6])
}

func TestTasksExportEmpty(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(t.TempDir(), &logger)

	path, err := e.Tasks(nil, nil)
	require.NoError(t, err)
	require.FileExists(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(tasksSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
