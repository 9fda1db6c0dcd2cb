package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/command-deck/internal"
)

type theme struct {
	title       lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	inputPanel  lipgloss.Style
	muted       lipgloss.Style
	online      lipgloss.Style
	offline     lipgloss.Style
	warn        lipgloss.Style
	selected    lipgloss.Style
	sender      map[internal.Role]lipgloss.Style
	status      map[string]lipgloss.Style
}

func newTheme() theme {
	accent := lipgloss.Color("62")
	green := lipgloss.Color("42")
	red := lipgloss.Color("196")
	amber := lipgloss.Color("214")
	muted := lipgloss.Color("245")

	return theme{
		title: lipgloss.NewStyle().Bold(true).Foreground(accent),
		tabActive: lipgloss.NewStyle().
			Background(accent).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Foreground(green).Bold(true),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(green).
			Padding(0, 1),
		muted:    lipgloss.NewStyle().Foreground(muted),
		online:   lipgloss.NewStyle().Foreground(green).Bold(true),
		offline:  lipgloss.NewStyle().Foreground(red).Bold(true),
		warn:     lipgloss.NewStyle().Foreground(amber).Bold(true),
		selected: lipgloss.NewStyle().Foreground(accent).Bold(true),
		sender: map[internal.Role]lipgloss.Style{
			internal.RoleUser:   lipgloss.NewStyle().Foreground(green).Bold(true),
			internal.RoleAgent:  lipgloss.NewStyle().Foreground(accent).Bold(true),
			internal.RoleSystem: lipgloss.NewStyle().Foreground(muted).Bold(true),
			internal.RoleError:  lipgloss.NewStyle().Foreground(red).Bold(true),
		},
		status: map[string]lipgloss.Style{
			internal.StatusCompleted: lipgloss.NewStyle().Foreground(green),
			internal.StatusApproved:  lipgloss.NewStyle().Foreground(accent),
			internal.StatusFailed:    lipgloss.NewStyle().Foreground(red),
		},
	}
}

func (t theme) statusStyle(status string) lipgloss.Style {
	if s, ok := t.status[status]; ok {
		return s
	}
	return t.warn
}
