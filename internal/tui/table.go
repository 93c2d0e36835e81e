package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/mrz1836/gantry/internal/constants"
)

// TableConfig holds the layout settings shared by the plan and agent tables.
type TableConfig struct {
	// TerminalWidth is the detected terminal width, or a forced width in tests.
	TerminalWidth int
	// Narrow switches to abbreviated headers for terminals under
	// NarrowTerminalWidth columns.
	Narrow bool
}

// TableOption is a functional option applied to a table's config.
type TableOption func(*TableConfig)

// WithTerminalWidth forces a specific terminal width (useful for testing).
func WithTerminalWidth(width int) TableOption {
	return func(c *TableConfig) {
		c.TerminalWidth = width
		c.Narrow = width > 0 && width < NarrowTerminalWidth
	}
}

func newTableConfig(opts ...TableOption) TableConfig {
	c := TableConfig{TerminalWidth: TerminalWidth()}
	c.Narrow = c.TerminalWidth > 0 && c.TerminalWidth < NarrowTerminalWidth
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// TaskRow is one task line in the plan status table.
type TaskRow struct {
	ID     string
	Name   string
	Status constants.TaskStatus
	Phase  constants.PlanPhase
	// Group is the execution-group order the task is scheduled in.
	Group int
	// Retries is the number of failures reported for the task so far.
	Retries int
}

// TaskColumnWidths holds the per-column widths of the task table.
type TaskColumnWidths struct {
	ID      int
	Name    int
	Status  int
	Phase   int
	Group   int
	Retries int
}

// minTaskColumnWidths keeps short content readable.
//
//nolint:gochecknoglobals // Package-level layout constant
var minTaskColumnWidths = TaskColumnWidths{
	ID:      8,
	Name:    12,
	Status:  11,
	Phase:   7,
	Group:   5,
	Retries: 7,
}

// TaskTable renders the tasks of a plan in a formatted table. Status cells
// keep icon + color + text; JSON output strips the styling.
type TaskTable struct {
	rows   []TaskRow
	styles *TableStyles
	config TableConfig
}

// NewTaskTable creates a task table, auto-detecting terminal width unless
// overridden by options.
func NewTaskTable(rows []TaskRow, opts ...TableOption) *TaskTable {
	return &TaskTable{
		rows:   rows,
		styles: NewTableStyles(),
		config: newTableConfig(opts...),
	}
}

// IsNarrow reports whether the table uses abbreviated headers.
func (t *TaskTable) IsNarrow() bool {
	return t.config.Narrow
}

// Headers returns the column headers, abbreviated in narrow mode.
func (t *TaskTable) Headers() []string {
	if t.config.Narrow {
		return []string{"ID", "NAME", "STAT", "PH", "GRP", "TRY"}
	}
	return t.FullHeaders()
}

// FullHeaders returns the non-abbreviated column headers, used for JSON
// output regardless of terminal width.
func (t *TaskTable) FullHeaders() []string {
	return []string{"ID", "NAME", "STATUS", "PHASE", "GROUP", "RETRIES"}
}

// Rows returns a copy of the task rows.
func (t *TaskTable) Rows() []TaskRow {
	if t.rows == nil {
		return nil
	}
	out := make([]TaskRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Render writes the formatted table to the writer.
func (t *TaskTable) Render(w io.Writer) error {
	headers := t.Headers()
	widths := t.calculateColumnWidths()
	widthsSlice := []int{widths.ID, widths.Name, widths.Status, widths.Phase, widths.Group, widths.Retries}

	headerParts := make([]string, len(headers))
	for i, h := range headers {
		headerParts[i] = t.styles.Header.Render(padRight(h, widthsSlice[i]))
	}
	if _, err := fmt.Fprintln(w, strings.Join(headerParts, "  ")); err != nil {
		return err
	}

	for _, row := range t.rows {
		cells := []string{
			padRight(row.ID, widths.ID),
			padRight(row.Name, widths.Name),
			t.renderStatusCellPadded(row.Status, widths.Status),
			padRight(row.Phase.String(), widths.Phase),
			padRight(strconv.Itoa(row.Group), widths.Group),
			padRight(strconv.Itoa(row.Retries), widths.Retries),
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}
	return nil
}

// ToJSONData converts the table to plain headers and rows for JSON output.
func (t *TaskTable) ToJSONData() ([]string, [][]string) {
	headers := t.FullHeaders()
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rows[i] = []string{
			row.ID,
			row.Name,
			t.renderStatusCellPlain(row.Status),
			row.Phase.String(),
			strconv.Itoa(row.Group),
			strconv.Itoa(row.Retries),
		}
	}
	return headers, rows
}

// calculateColumnWidths sizes each column from headers and content, then
// constrains the result to the terminal width.
func (t *TaskTable) calculateColumnWidths() TaskColumnWidths {
	widths := t.initialWidths()
	t.expandFromContent(widths)
	t.constrainToTerminalWidth(widths)

	return TaskColumnWidths{
		ID:      widths[0],
		Name:    widths[1],
		Status:  widths[2],
		Phase:   widths[3],
		Group:   widths[4],
		Retries: widths[5],
	}
}

func (t *TaskTable) initialWidths() []int {
	headers := t.Headers()
	return []int{
		max(minTaskColumnWidths.ID, runewidth.StringWidth(headers[0])),
		max(minTaskColumnWidths.Name, runewidth.StringWidth(headers[1])),
		max(minTaskColumnWidths.Status, runewidth.StringWidth(headers[2])),
		max(minTaskColumnWidths.Phase, runewidth.StringWidth(headers[3])),
		max(minTaskColumnWidths.Group, runewidth.StringWidth(headers[4])),
		max(minTaskColumnWidths.Retries, runewidth.StringWidth(headers[5])),
	}
}

func (t *TaskTable) expandFromContent(widths []int) {
	for _, row := range t.rows {
		if w := runewidth.StringWidth(row.ID); w > widths[0] {
			widths[0] = w
		}
		if w := runewidth.StringWidth(row.Name); w > widths[1] {
			widths[1] = w
		}
		if w := runewidth.StringWidth(t.renderStatusCellPlain(row.Status)); w > widths[2] {
			widths[2] = w
		}
		if w := runewidth.StringWidth(row.Phase.String()); w > widths[3] {
			widths[3] = w
		}
	}
}

// constrainToTerminalWidth shrinks the name column, then the id column,
// until the table fits. Status, phase and the numeric columns keep their
// width so every column stays visible.
func (t *TaskTable) constrainToTerminalWidth(widths []int) {
	separators := 2 * (len(widths) - 1)
	total := separators
	for _, w := range widths {
		total += w
	}
	if t.config.TerminalWidth <= 0 || total <= t.config.TerminalWidth {
		return
	}

	overflow := total - t.config.TerminalWidth
	for _, idx := range []int{1, 0} {
		if overflow <= 0 {
			break
		}
		minWidth := minTaskColumnWidths.Name
		if idx == 0 {
			minWidth = minTaskColumnWidths.ID
		}
		reduction := min(overflow, widths[idx]-minWidth)
		if reduction <= 0 {
			continue
		}
		widths[idx] -= reduction
		overflow -= reduction
	}
}

func (t *TaskTable) renderStatusCellPlain(status constants.TaskStatus) string {
	return TaskStatusIcon(status) + " " + status.String()
}

func (t *TaskTable) renderStatusCell(status constants.TaskStatus) string {
	style := lipgloss.NewStyle().Foreground(TaskStatusColors()[status])
	return TaskStatusIcon(status) + " " + style.Render(status.String())
}

func (t *TaskTable) renderStatusCellPadded(status constants.TaskStatus, width int) string {
	return padStyled(t.renderStatusCell(status), t.renderStatusCellPlain(status), width)
}

// AgentRow is one agent line in the registry table.
type AgentRow struct {
	ID           string
	Capabilities []constants.Capability
	Status       constants.AgentStatus
}

// AgentTable renders the registered agents and their capability tags.
type AgentTable struct {
	rows   []AgentRow
	styles *TableStyles
	config TableConfig
}

// NewAgentTable creates an agent table, auto-detecting terminal width
// unless overridden by options.
func NewAgentTable(rows []AgentRow, opts ...TableOption) *AgentTable {
	return &AgentTable{
		rows:   rows,
		styles: NewTableStyles(),
		config: newTableConfig(opts...),
	}
}

// Headers returns the column headers, abbreviated in narrow mode.
func (t *AgentTable) Headers() []string {
	if t.config.Narrow {
		return []string{"ID", "CAPS", "STAT"}
	}
	return t.FullHeaders()
}

// FullHeaders returns the non-abbreviated column headers.
func (t *AgentTable) FullHeaders() []string {
	return []string{"ID", "CAPABILITIES", "STATUS"}
}

// Render writes the formatted table to the writer.
func (t *AgentTable) Render(w io.Writer) error {
	headers := t.Headers()
	widths := t.calculateColumnWidths()

	headerParts := make([]string, len(headers))
	for i, h := range headers {
		headerParts[i] = t.styles.Header.Render(padRight(h, widths[i]))
	}
	if _, err := fmt.Fprintln(w, strings.Join(headerParts, "  ")); err != nil {
		return err
	}

	for _, row := range t.rows {
		cells := []string{
			padRight(row.ID, widths[0]),
			padRight(joinCapabilities(row.Capabilities), widths[1]),
			t.renderStatusCellPadded(row.Status, widths[2]),
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}
	return nil
}

// ToJSONData converts the table to plain headers and rows for JSON output.
func (t *AgentTable) ToJSONData() ([]string, [][]string) {
	headers := t.FullHeaders()
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rows[i] = []string{
			row.ID,
			joinCapabilities(row.Capabilities),
			t.renderStatusCellPlain(row.Status),
		}
	}
	return headers, rows
}

func (t *AgentTable) calculateColumnWidths() []int {
	headers := t.Headers()
	widths := []int{
		max(10, runewidth.StringWidth(headers[0])),
		max(16, runewidth.StringWidth(headers[1])),
		max(11, runewidth.StringWidth(headers[2])),
	}
	for _, row := range t.rows {
		if w := runewidth.StringWidth(row.ID); w > widths[0] {
			widths[0] = w
		}
		if w := runewidth.StringWidth(joinCapabilities(row.Capabilities)); w > widths[1] {
			widths[1] = w
		}
		if w := runewidth.StringWidth(t.renderStatusCellPlain(row.Status)); w > widths[2] {
			widths[2] = w
		}
	}

	// Shrink the capability column when the table would overflow.
	separators := 2 * (len(widths) - 1)
	total := separators + widths[0] + widths[1] + widths[2]
	if t.config.TerminalWidth > 0 && total > t.config.TerminalWidth {
		reduction := min(total-t.config.TerminalWidth, widths[1]-16)
		if reduction > 0 {
			widths[1] -= reduction
		}
	}
	return widths
}

func (t *AgentTable) renderStatusCellPlain(status constants.AgentStatus) string {
	return AgentStatusIcon(status) + " " + status.String()
}

func (t *AgentTable) renderStatusCell(status constants.AgentStatus) string {
	color := ColorMuted
	if status == constants.AgentStatusBusy {
		color = ColorPrimary
	}
	style := lipgloss.NewStyle().Foreground(color)
	return AgentStatusIcon(status) + " " + style.Render(status.String())
}

func (t *AgentTable) renderStatusCellPadded(status constants.AgentStatus, width int) string {
	return padStyled(t.renderStatusCell(status), t.renderStatusCellPlain(status), width)
}

func joinCapabilities(caps []constants.Capability) string {
	if len(caps) == 0 {
		return "—"
	}
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
