package tui

import (
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tasktimer/internal/config"
	"github.com/sadopc/tasktimer/internal/lifecycle"
	"github.com/sadopc/tasktimer/internal/registry"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/timer"
	"github.com/sadopc/tasktimer/internal/util"
)

// Options wires the app to the core components.
type Options struct {
	Store        *store.Store
	Tasks        *registry.Registry
	Tracker      *lifecycle.Tracker
	Clock        util.Clock
	Log          util.Logger
	TickInterval time.Duration
	// Theme is used when no theme setting is stored.
	Theme string
	// ExportDir is where exports are written; defaults to the home directory.
	ExportDir string
	// DBPath and ConfigPath are shown in the settings view.
	DBPath     string
	ConfigPath string
}

// env is shared by every view; models are copied by value but point here.
type env struct {
	store      *store.Store
	tasks      *registry.Registry
	tracker    *lifecycle.Tracker
	clock      util.Clock
	log        util.Logger
	exportDir  string
	dbPath     string
	configPath string
}

// App is the root Bubble Tea model.
type App struct {
	env      *env
	interval time.Duration
	width    int
	height   int

	activeView viewState
	showHelp   bool

	// configTheme is the theme of the last config file seen, so a reload
	// only overrides the stored setting when the file actually changed it.
	configTheme string

	tracking trackingModel
	tasks    tasksModel
	history  historyModel
	settings settingsModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(opts Options) App {
	if opts.Clock == nil {
		opts.Clock = util.SystemClock()
	}
	if opts.Log == nil {
		opts.Log = util.L()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = timer.DefaultInterval
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}

	e := &env{
		store:      opts.Store,
		tasks:      opts.Tasks,
		tracker:    opts.Tracker,
		clock:      opts.Clock,
		log:        opts.Log.With(util.F("component", "tui")),
		exportDir:  opts.ExportDir,
		dbPath:     opts.DBPath,
		configPath: opts.ConfigPath,
	}

	theme := opts.Theme
	if v, err := opts.Store.GetSetting(store.SettingTheme); err == nil {
		theme = v
	}
	applyTheme(theme)

	h := help.New()
	h.ShowAll = false

	return App{
		env:         e,
		interval:    opts.TickInterval,
		activeView:  viewTracking,
		configTheme: opts.Theme,
		tracking:    newTrackingModel(e),
		tasks:       newTasksModel(e),
		history:     newHistoryModel(e),
		settings:    newSettingsModel(e),
		help:        h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.refreshAll(),
		a.tickCmd(),
	)
}

func (a App) tickCmd() tea.Cmd {
	return tea.Tick(a.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) refreshAll() tea.Cmd {
	return tea.Batch(
		a.tracking.refresh(),
		a.tasks.refresh(),
		a.history.refresh(),
		a.settings.refresh(),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.tracking.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTracking
			return a, a.tracking.refresh()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewTasks
			return a, a.tasks.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		// Views read the tracker when rendering; the tick only schedules a redraw.
		return a, a.tickCmd()

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		if msg.isError {
			a.env.log.Warn("ui error", util.F("status", msg.text))
		}
		return a, nil

	case dataChangedMsg:
		return a, a.refreshAll()

	// Data messages go to their own view whichever view is active.
	case trackingDataMsg:
		var cmd tea.Cmd
		a.tracking, cmd = a.tracking.update(msg)
		return a, cmd
	case tasksDataMsg:
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.update(msg)
		return a, cmd
	case historyDataMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.update(msg)
		return a, cmd
	case settingsDataMsg:
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		return a, nil

	case themeChangedMsg:
		applyTheme(msg.theme)
		a.status = "Theme: " + currentTheme
		a.statusErr = false
		return a, a.settings.refresh()

	case ConfigChangedMsg:
		if msg.Config == nil {
			return a, nil
		}
		a.interval = msg.Config.TickInterval
		if msg.Config.Theme == a.configTheme {
			return a, nil
		}
		a.configTheme = msg.Config.Theme
		return a, setTheme(a.env, msg.Config.Theme)
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTracking:
		a.tracking, cmd = a.tracking.update(msg)
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTasks:
		return a.tasks.formActive
	case viewHistory:
		return a.history.formActive || a.history.searching
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTracking:
		return a.tracking.refresh()
	case viewTasks:
		return a.tasks.refresh()
	case viewHistory:
		return a.history.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTracking:
		content = a.tracking.view()
	case viewTasks:
		content = a.tasks.view()
	case viewHistory:
		content = a.history.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("tasktimer")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Timer indicator in footer
	timerInfo := ""
	switch a.env.tracker.Phase() {
	case lifecycle.PhaseRunning:
		timerInfo = successStyle.Render(" ● " + util.FormatClock(a.env.tracker.Elapsed()))
	case lifecycle.PhasePaused:
		timerInfo = warningStyle.Render(" ⏸ " + util.FormatClock(a.env.tracker.Elapsed()))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

// setTheme persists the theme setting and applies it.
func setTheme(e *env, theme string) tea.Cmd {
	if theme != config.ThemeLight && theme != config.ThemeDark {
		return statusCmd("unknown theme " + theme)
	}
	return func() tea.Msg {
		if err := e.store.SetSetting(store.SettingTheme, theme); err != nil {
			return statusMsg{text: "Save theme: " + err.Error(), isError: true}
		}
		return themeChangedMsg{theme: theme}
	}
}
