package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sleroq/notion-to-obsidian/internal/app/importer"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(13)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func renderSummary(stats importer.Stats, output string, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Vault written to %s in %s", output, elapsed.Round(time.Millisecond))))
	b.WriteString("\n")

	line := func(label string, n int, style *lipgloss.Style) {
		value := fmt.Sprintf("%d", n)
		if style != nil && n > 0 {
			value = style.Render(value)
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	line("notes", stats.Notes, nil)
	line("attachments", stats.Attachments, nil)
	if stats.Bases > 0 {
		line("bases", stats.Bases, nil)
	}
	line("skipped", stats.Skipped, nil)
	line("diagnostics", stats.Diagnostics, &warnStyle)
	line("failed", stats.Failed, &errorStyle)
	return strings.TrimRight(b.String(), "\n")
}
