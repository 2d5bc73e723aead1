package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	shortIDWidth = 8
)

func shortID(id string) string {
	if len(id) <= shortIDWidth {
		return id
	}
	return id[:shortIDWidth]
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// renderRecords prints the record list. states may be nil, in which case the
// runtime column is omitted.
func renderRecords(w io.Writer, recs []models.DatabaseRecord, states map[string]models.RuntimeState) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No databases.")
		return
	}

	headers := []string{"ID", "NAME", "KIND", "PORT", "STATUS", "CREATED"}
	if states != nil {
		headers = append(headers, "RUNTIME")
	}
	t := newTable(headers...)
	for _, r := range recs {
		row := []string{
			shortID(r.ID),
			r.Name,
			string(r.Kind),
			strconv.Itoa(r.Port),
			styleStatus(r.Status),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
		if states != nil {
			row = append(row, styleRuntime(states[r.ID]))
		}
		t.Row(row...)
	}
	fmt.Fprintln(w, t.String())
}

func renderHistory(w io.Writer, hist []models.Transition) {
	if len(hist) == 0 {
		fmt.Fprintln(w, "No history.")
		return
	}
	t := newTable("AT", "FROM", "TO", "ERROR")
	for _, h := range hist {
		t.Row(h.At.Local().Format("2006-01-02 15:04:05"), string(h.From), string(h.To), h.ErrorClass)
	}
	fmt.Fprintln(w, t.String())
}

func styleStatus(s models.Status) string {
	switch s {
	case models.StatusReady:
		return okStyle.Render(string(s))
	case models.StatusOrphaned, models.StatusFailed:
		return failStyle.Render(string(s))
	}
	return warnStyle.Render(string(s))
}

func styleRuntime(s models.RuntimeState) string {
	switch s {
	case models.RuntimeRunning:
		return okStyle.Render(string(s))
	case models.RuntimeStopped:
		return warnStyle.Render(string(s))
	case "":
		s = models.RuntimeUnknown
	}
	return failStyle.Render(string(s))
}
