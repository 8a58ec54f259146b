package tui

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tasktimer/internal/config"
	"github.com/sadopc/tasktimer/internal/export"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
)

type settingsAction int

const (
	actionTheme settingsAction = iota
	actionExportJSON
	actionExportCSV
	actionClear
)

var settingsActions = []string{"Theme", "Export JSON", "Export CSV", "Clear all data"}

type settingsModel struct {
	env    *env
	width  int
	height int

	settings []store.Setting
	tasks    int
	records  int
	cursor   int

	formActive  bool
	form        *huh.Form
	formConfirm *bool
}

func newSettingsModel(e *env) settingsModel {
	confirm := false
	return settingsModel{env: e, formConfirm: &confirm}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
	tasks    int
	records  int
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, err := s.env.store.GetAllSettings()
		if err != nil {
			s.env.log.Warn("load settings failed", util.Err(err))
		}
		return settingsDataMsg{
			settings: settings,
			tasks:    len(s.env.tasks.List()),
			records:  len(s.env.tracker.Records()),
		}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		s.tasks = msg.tasks
		s.records = msg.records
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(settingsActions)-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Enter):
			return s.activate(settingsAction(s.cursor))
		}
	}
	return s, nil
}

func (s settingsModel) activate(a settingsAction) (settingsModel, tea.Cmd) {
	switch a {
	case actionTheme:
		next := config.ThemeLight
		if currentTheme == config.ThemeLight {
			next = config.ThemeDark
		}
		return s, setTheme(s.env, next)
	case actionExportJSON:
		return s, s.doExport("json")
	case actionExportCSV:
		return s, s.doExport("csv")
	case actionClear:
		return s.showClearForm()
	}
	return s, nil
}

func (s settingsModel) doExport(format string) tea.Cmd {
	e := s.env
	return func() tea.Msg {
		now := e.clock.Now()
		path := filepath.Join(e.exportDir, export.DefaultFilename(format, now))

		var err error
		if format == "csv" {
			err = export.ToCSV(e.tracker.Records(), e.tasks, path)
		} else {
			err = export.ToJSON(e.tasks.List(), e.tracker.Records(), path, now)
		}
		if err != nil {
			e.log.Error("export failed", util.F("path", path), util.Err(err))
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		e.log.Info("exported data", util.F("path", path), util.F("format", format))
		return exportDoneMsg{path: path}
	}
}

func (s settingsModel) showClearForm() (settingsModel, tea.Cmd) {
	*s.formConfirm = false
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete all tasks and recordings?").
				Description("This cannot be undone. Export first if you want a copy.").
				Affirmative("Delete everything").
				Negative("Cancel").
				Value(s.formConfirm),
		),
	).WithShowHelp(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if !*s.formConfirm {
			return s, nil
		}
		return s, s.clearData()
	}
	return s, cmd
}

func (s settingsModel) clearData() tea.Cmd {
	e := s.env
	if err := e.store.ClearAll(); err != nil {
		return errorCmd("Clear data", err)
	}
	e.tasks.Reload()
	e.tracker.Reload()
	e.log.Info("cleared all data")
	return tea.Batch(statusCmd("All data cleared"), changed)
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Clear Data")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"))
	rows = append(rows, "")

	for i, name := range settingsActions {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		label := name
		if settingsAction(i) == actionTheme {
			label = fmt.Sprintf("%s: %s", name, currentTheme)
		}
		if settingsAction(i) == actionClear {
			style = style.Foreground(colorError)
		}
		rows = append(rows, style.Render(cursor+label))
	}

	rows = append(rows, "")
	rows = append(rows, subtitleStyle.Render("Stored settings"))
	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(setting.Value)))
	}

	rows = append(rows, "")
	rows = append(rows, subtitleStyle.Render("Data"))
	info := [][2]string{
		{"tasks", fmt.Sprint(s.tasks)},
		{"recordings", fmt.Sprint(s.records)},
		{"export folder", s.env.exportDir},
		{"database", s.env.dbPath},
		{"config file", s.env.configPath},
	}
	for _, kv := range info {
		if kv[1] == "" {
			continue
		}
		label := lipgloss.NewStyle().Width(24).Render(kv[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, mutedStyle.Render(kv[1])))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: apply"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
