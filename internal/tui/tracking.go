package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tasktimer/internal/history"
	"github.com/sadopc/tasktimer/internal/lifecycle"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
)

const recentLimit = 5

type trackingModel struct {
	env    *env
	width  int
	height int

	tasks  []store.Task
	recent []history.Entry
	cursor int
}

func newTrackingModel(e *env) trackingModel {
	return trackingModel{env: e}
}

func (m *trackingModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type trackingDataMsg struct {
	tasks  []store.Task
	recent []history.Entry
}

func (m trackingModel) refresh() tea.Cmd {
	return func() tea.Msg {
		res := history.Run(m.env.tracker.Records(), m.env.tasks, history.Query{Sort: history.SortNewest})
		recent := res.Entries
		if len(recent) > recentLimit {
			recent = recent[:recentLimit]
		}
		return trackingDataMsg{tasks: m.env.tasks.List(), recent: recent}
	}
}

func (m trackingModel) update(msg tea.Msg) (trackingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case trackingDataMsg:
		m.tasks = msg.tasks
		m.recent = msg.recent
		if m.cursor >= len(m.tasks) {
			m.cursor = max(0, len(m.tasks)-1)
		}
		return m, nil

	case tea.KeyMsg:
		tr := m.env.tracker
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}

		case key.Matches(msg, keys.Enter):
			task, ok := m.cursorTask()
			if !ok {
				return m, statusCmd("No tasks yet. Press 2 to add one.")
			}
			wasActive := tr.Phase() == lifecycle.PhaseRunning || tr.Phase() == lifecycle.PhasePaused
			if err := tr.SwitchTask(task.ID); err != nil {
				return m, errorCmd("Select", err)
			}
			text := "Selected " + task.Name
			if wasActive {
				text = "Saved previous recording, selected " + task.Name
			}
			return m, tea.Batch(statusCmd(text), changed)

		case key.Matches(msg, keys.Toggle):
			return m.toggle()

		case key.Matches(msg, keys.Complete):
			return m.complete()

		case key.Matches(msg, keys.Cancel):
			if tr.Phase() == lifecycle.PhaseNoSelection {
				return m, nil
			}
			if err := tr.Cancel(); err != nil {
				return m, errorCmd("Cancel", err)
			}
			return m, tea.Batch(statusCmd("Recording discarded"), changed)

		case key.Matches(msg, keys.Back):
			if tr.Phase() == lifecycle.PhaseSelected {
				if err := tr.Deselect(); err != nil {
					return m, errorCmd("Deselect", err)
				}
			}
			return m, nil
		}
	}
	return m, nil
}

func (m trackingModel) cursorTask() (store.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return store.Task{}, false
	}
	return m.tasks[m.cursor], true
}

// toggle starts, pauses or resumes. With nothing selected it selects the
// task under the cursor and starts it.
func (m trackingModel) toggle() (trackingModel, tea.Cmd) {
	tr := m.env.tracker
	switch tr.Phase() {
	case lifecycle.PhaseNoSelection:
		task, ok := m.cursorTask()
		if !ok {
			return m, statusCmd("No tasks yet. Press 2 to add one.")
		}
		if err := tr.SelectTask(task.ID); err != nil {
			return m, errorCmd("Select", err)
		}
		if err := tr.Start(); err != nil {
			return m, errorCmd("Start", err)
		}
		return m, statusCmd("Started " + task.Name)
	case lifecycle.PhaseSelected:
		if err := tr.Start(); err != nil {
			return m, errorCmd("Start", err)
		}
		return m, statusCmd("Started")
	case lifecycle.PhaseRunning:
		if err := tr.Pause(); err != nil {
			return m, errorCmd("Pause", err)
		}
		return m, statusCmd("Paused")
	default:
		if err := tr.Resume(); err != nil {
			return m, errorCmd("Resume", err)
		}
		return m, statusCmd("Resumed")
	}
}

// complete saves the running or paused recording. A selection that was
// never started is simply dropped.
func (m trackingModel) complete() (trackingModel, tea.Cmd) {
	tr := m.env.tracker
	switch tr.Phase() {
	case lifecycle.PhaseRunning, lifecycle.PhasePaused:
		elapsed := tr.Elapsed()
		if err := tr.Complete(); err != nil {
			return m, errorCmd("Complete", err)
		}
		return m, tea.Batch(statusCmd("Saved "+util.FormatHuman(elapsed)), changed)
	case lifecycle.PhaseSelected:
		if err := tr.Deselect(); err != nil {
			return m, errorCmd("Deselect", err)
		}
		return m, statusCmd("Selection cleared")
	}
	return m, nil
}

func (m trackingModel) view() string {
	if m.width < 20 {
		return "Terminal too small"
	}

	contentWidth := m.width - 4

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTimerPanel(contentWidth),
		m.renderTaskPanel(contentWidth),
		m.renderRecentPanel(contentWidth),
	)
}

func (m trackingModel) renderTimerPanel(w int) string {
	tr := m.env.tracker
	phase := tr.Phase()

	if phase == lifecycle.PhaseNoSelection {
		content := lipgloss.JoinVertical(lipgloss.Center,
			timerStyle.Width(w-6).Render("00:00"),
			mutedStyle.Render("■  NO TASK SELECTED"),
			mutedStyle.Render("Pick a task below and press enter, or space to start right away"),
		)
		return panelStyle.Width(w).Render(content)
	}

	name, icon := m.env.tasks.Resolve(tr.Tracking().SelectedTaskID)
	timeStr := util.FormatClock(tr.Elapsed())

	var timeDisplay, indicator, hint string
	switch phase {
	case lifecycle.PhaseRunning:
		timeDisplay = timerRunningStyle.Width(w - 6).Render(timeStr)
		indicator = successStyle.Render("●  RUNNING")
		hint = "space: pause  x: done  c: cancel"
	case lifecycle.PhasePaused:
		timeDisplay = timerPausedStyle.Width(w - 6).Render(timeStr)
		indicator = warningStyle.Render("⏸  PAUSED")
		hint = "space: resume  x: done  c: cancel"
	default:
		timeDisplay = timerStyle.Width(w - 6).Render(timeStr)
		indicator = highlightStyle.Render("○  READY")
		hint = "space: start  esc: deselect"
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		timeDisplay,
		indicator,
		titleStyle.Render(icon+" "+name),
		mutedStyle.Render(hint),
	)
	return activePanelStyle.Width(w).Render(content)
}

func (m trackingModel) renderTaskPanel(w int) string {
	title := titleStyle.Render("Tasks")
	if len(m.tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No tasks yet. Press 2 to go to Tasks and create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	selected := m.env.tracker.Tracking().SelectedTaskID
	rows := []string{title}
	for i, t := range m.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		mark := " "
		if t.ID == selected {
			mark = "●"
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s %s", cursor, mark, util.PadRight(t.Icon, 2), t.Name)))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m trackingModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent")
	if len(m.recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No completed recordings yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title}
	for _, e := range m.recent {
		row := fmt.Sprintf("  ✓ %s  %s %s %s",
			util.FormatDateTime(*e.Record.EndAt),
			util.PadRight(e.TaskIcon, 2),
			util.PadRight(e.TaskName, 20),
			util.FormatClock(e.Record.Accumulated),
		)
		rows = append(rows, row)
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
