package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/model"
)

const maxTitleWidth = 80

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Panel frames lines in the current theme's border.
func Panel(lines []string) string {
	box := lipgloss.NewStyle().
		Border(current.Border).
		BorderForeground(current.BorderColor).
		Padding(0, 1)
	return box.Render(strings.Join(lines, "\n"))
}

// Header is the one-line count summary shown above a list.
func Header(st model.Stats) string {
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		current.Title.Render("Todos"),
		current.Success.Render(current.SymDone), st.Completed,
		current.Pending.Render(current.SymPending), st.Active,
		current.Accent.Render("Total"), st.Total,
	)
}

// ItemLine renders " 1. ☐ title  description".
func ItemLine(it model.Item) string {
	box := current.Muted.Render(current.BoxUnchecked)
	title := truncate(it.Title, maxTitleWidth)
	if it.Done {
		box = current.Success.Render(current.BoxChecked)
		title = current.Done.Render(title)
	}
	line := fmt.Sprintf("%s %s %s", current.Muted.Render(fmt.Sprintf("%2d.", it.Number)), box, title)
	if it.Description != "" {
		line += "  " + current.Muted.Render(truncate(it.Description, maxTitleWidth))
	}
	return line
}

func FlatLines(items []model.Item) []string {
	if len(items) == 0 {
		return []string{current.Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, ItemLine(it))
	}
	return out
}

// GroupLines splits items into Pending and Done sections, keeping each
// item's display number.
func GroupLines(items []model.Item) []string {
	var pend, done []model.Item
	for _, it := range items {
		if it.Done {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, section("Pending", pend)...)
	lines = append(lines, "")
	lines = append(lines, section("Done", done)...)
	return lines
}

func section(name string, items []model.Item) []string {
	lines := []string{current.Accent.Render(name)}
	if len(items) == 0 {
		return append(lines, current.Muted.Render("(none)"))
	}
	for _, it := range items {
		lines = append(lines, ItemLine(it))
	}
	return lines
}

// ListPanel renders the full `ls` view: header, progress bar, items, tip.
func ListPanel(items []model.Item, group bool) string {
	st := model.CountStats(items)
	lines := []string{
		Header(st),
		current.Muted.Render(ProgressBar(st.Completed, st.Total, 28)),
		"",
	}
	if group {
		lines = append(lines, GroupLines(items)...)
	} else {
		lines = append(lines, FlatLines(items)...)
	}
	lines = append(lines, "", current.Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	return Panel(lines)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
