package expense

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"expense-cli/internal/api"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	totalStyle  = lipgloss.NewStyle().Bold(true)
)

// RenderTable formats expense rows as an aligned terminal table with a total
// line. Returns a short placeholder when there are no rows.
func RenderTable(rows []api.Expense) string {
	if len(rows) == 0 {
		return "No expenses recorded."
	}

	headers := []string{"MONTH", "YEAR", "CENTER", "CATEGORY", "PRICE"}
	table := make([][]string, 0, len(rows))
	var total float64
	for _, e := range rows {
		table = append(table, []string{
			e.Month,
			fmt.Sprintf("%d", e.Year),
			e.EmbossingCenterName,
			e.Category,
			fmt.Sprintf("₹%.2f", e.Price),
		})
		total += e.Price
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range table {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(headerStyle.Render(pad(h, widths[i])))
		b.WriteString("  ")
	}
	b.WriteString("\n")
	for _, row := range table {
		for i, cell := range row {
			b.WriteString(cellStyle.Render(pad(cell, widths[i])))
		}
		b.WriteString("\n")
	}
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total: ₹%.2f", total)))
	return b.String()
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
