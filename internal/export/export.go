package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"drift/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const tasksSheet = "Tasks"

// Exporter writes task snapshots to Excel files for sharing outside the app.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// Tasks writes the given tasks to a new .xlsx file and returns its path.
// Project names are resolved from the projects slice; tasks without a
// project keep the column empty.
func (e *Exporter) Tasks(tasks []models.Task, projects []models.Project) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	projectNames := make(map[string]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(tasksSheet)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Title", "Project", "Notes", "Due", "Completed", "Progress", "Updated"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(tasksSheet, cell, header)
		_ = f.SetCellStyle(tasksSheet, cell, cell, headerStyle)
	}

	for i, task := range tasks {
		row := i + 2
		_ = f.SetCellValue(tasksSheet, fmt.Sprintf("A%d", row), task.ID)
		_ = f.SetCellValue(tasksSheet, fmt.Sprintf("B%d", row), task.Title)
		_ = f.SetCellValue(tasksSheet, fmt.Sprintf("C%d", row), projectNames[task.ProjectID])
		_ = f.SetCellValue(tasksSheet, fmt.Sprintf("D%d", row), task.Notes)
		if task.DueDate != nil {
			_ = f.SetCellValue(tasksSheet, fmt.Sprintf("E%d", row), task.DueDate.Format("02.01.2006"))
		}
		_ = f.SetCellValue(tasksSheet, fmt.Sprintf("F%d", row), boolToYesNo(task.Completed))
		_ = f.SetCellValue(tasksSheet, fmt.Sprintf("G%d", row), fmt.Sprintf("%d%%", task.Progress))
		_ = f.SetCellValue(tasksSheet, fmt.Sprintf("H%d", row), task.UpdatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(tasksSheet, "A", "A", 24)
	_ = f.SetColWidth(tasksSheet, "B", "B", 30)
	_ = f.SetColWidth(tasksSheet, "C", "C", 20)
	_ = f.SetColWidth(tasksSheet, "D", "D", 40)
	_ = f.SetColWidth(tasksSheet, "E", "E", 12)
	_ = f.SetColWidth(tasksSheet, "F", "G", 10)
	_ = f.SetColWidth(tasksSheet, "H", "H", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("tasks_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	if e.logger != nil {
		e.logger.Info().Str("file_path", filePath).Int("tasks", len(tasks)).Msg("Excel file created")
	}
	return filePath, nil
}

func boolToYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
