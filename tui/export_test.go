package tui

import tea "github.com/charmbracelet/bubbletea"

// ChangedMsg is the message the view receives when the feed changes
func ChangedMsg() tea.Msg {
	return changedMsg{}
}
