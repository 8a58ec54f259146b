package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/tasktimer/internal/config"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTracking viewState = iota
	viewTasks
	viewHistory
	viewSettings
)

var viewNames = []string{"Tracking", "Tasks", "History", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// dataChangedMsg tells every view to re-read tasks and records.
type dataChangedMsg struct{}

type exportDoneMsg struct {
	path string
}

type themeChangedMsg struct {
	theme string
}

// ConfigChangedMsg carries a reloaded config file into the program.
type ConfigChangedMsg struct {
	Config *config.Config
}

// --- Helpers ---

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func errorCmd(what string, err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("%s: %v", what, err), isError: true}
	}
}

func changed() tea.Msg { return dataChangedMsg{} }
