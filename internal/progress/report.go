package progress

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/gantry/internal/constants"
)

// Report renders the current progress as a markdown document: headline
// numbers, a per-phase table, and a task checklist. The report command pipes
// this through a terminal markdown renderer.
func (t *Tracker) Report() string {
	snap := t.Progress()
	caser := cases.Title(language.English)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Progress Report: %s\n\n", t.planID))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n\n", caser.String(strings.ReplaceAll(snap.Status.String(), "_", " "))))
	sb.WriteString(fmt.Sprintf("**Progress:** %d%% (%d/%d tasks", snap.Percentage, snap.Completed, snap.TotalTasks))
	if snap.Skipped > 0 {
		sb.WriteString(fmt.Sprintf(", %d skipped", snap.Skipped))
	}
	if snap.Failed > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", snap.Failed))
	}
	sb.WriteString(")\n\n")
	sb.WriteString(fmt.Sprintf("**Velocity:** %.1f tasks/hour\n\n", snap.TasksPerHour))

	byPhase := t.ProgressByPhase()
	if len(byPhase) > 0 {
		sb.WriteString("## Phases\n\n")
		sb.WriteString("| Phase | Completed | Total | Progress |\n")
		sb.WriteString("|-------|-----------|-------|----------|\n")
		for _, row := range byPhase {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d%% |\n",
				caser.String(row.Phase.String()), row.Completed, row.Total, row.Percentage))
		}
		sb.WriteString("\n")
	}

	if len(t.entries) > 0 {
		sb.WriteString("## Tasks\n\n")
		for _, e := range t.entries {
			sb.WriteString(fmt.Sprintf("- %s `%s` %s (%s)\n",
				taskCheckbox(e.status), e.id, e.name, e.status.String()))
		}
	}

	return sb.String()
}

// taskCheckbox returns the markdown checkbox for a tracked status.
func taskCheckbox(status constants.TaskStatus) string {
	switch status {
	case constants.TaskStatusCompleted:
		return "[x]"
	case constants.TaskStatusSkipped:
		return "[-]"
	default:
		return "[ ]"
	}
}
