package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/expense-report/internal/aggregate"
	"github.com/example/expense-report/internal/currency"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	totalStyle  = lipgloss.NewStyle().Bold(true)
	amountStyle = lipgloss.NewStyle().Align(lipgloss.Right)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// Summary renders a compact period by category overview for the terminal.
func Summary(r *aggregate.Report) string {
	if r.Empty() {
		return mutedStyle.Render("Keine Ausgaben gefunden.")
	}

	buckets := r.Periods()
	sections := make([]string, 0, len(buckets)+1)

	for _, b := range buckets {
		names := b.Categories()
		labels := make([]string, 0, len(names)+1)
		amounts := make([]string, 0, len(names)+1)
		for _, name := range names {
			list := b.Category(name)
			label := fmt.Sprintf("%s (%d)", name, list.Len())
			if list.Len() == 0 {
				label = mutedStyle.Render(label)
			}
			labels = append(labels, label)
			amounts = append(amounts, currency.Format(list.Total))
		}
		labels = append(labels, totalStyle.Render("Gesamt"))
		amounts = append(amounts, totalStyle.Render(currency.Format(b.GrandTotal())))

		body := lipgloss.JoinHorizontal(lipgloss.Top,
			strings.Join(labels, "\n"),
			"   ",
			amountStyle.Render(strings.Join(amounts, "\n")),
		)
		if n := b.Excluded.Len(); n > 0 {
			body = lipgloss.JoinVertical(lipgloss.Left, body,
				mutedStyle.Render(fmt.Sprintf("%d ausgeschlossen", n)))
		}

		sections = append(sections, boxStyle.Render(
			lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render(b.Period.Label), body),
		))
	}

	stats := mutedStyle.Render(fmt.Sprintf("%d kategorisiert, %d ausgeschlossen, %d übersprungen",
		r.Stats.Categorized, r.Stats.Excluded, r.Stats.Skipped))

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Ausgabenübersicht"),
		lipgloss.JoinVertical(lipgloss.Left, sections...),
		stats,
	)
}

// PrintSummary writes Summary(r) followed by a newline.
func PrintSummary(out io.Writer, r *aggregate.Report) error {
	_, err := fmt.Fprintln(out, Summary(r))
	return err
}
