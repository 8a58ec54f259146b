package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tasktimer/internal/registry"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
)

var taskIcons = []string{"⏱️", "📚", "💻", "✍️", "🏃", "🎨", "🎵", "🧹", "📧", "🧠"}

type tasksModel struct {
	env    *env
	width  int
	height int

	tasks  []store.Task
	cursor int

	formActive bool
	form       *huh.Form
	formType   string // "new", "edit", "delete"

	// Form field pointers (survive value copies)
	formName    *string
	formIcon    *string
	formConfirm *bool

	editingID string
}

func newTasksModel(e *env) tasksModel {
	name, icon, confirm := "", taskIcons[0], false
	return tasksModel{
		env:         e,
		formName:    &name,
		formIcon:    &icon,
		formConfirm: &confirm,
	}
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type tasksDataMsg struct {
	tasks []store.Task
}

func (m tasksModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return tasksDataMsg{tasks: m.env.tasks.List()}
	}
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksDataMsg:
		m.tasks = msg.tasks
		if m.cursor >= len(m.tasks) {
			m.cursor = max(0, len(m.tasks)-1)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.New):
			return m.showTaskForm(store.Task{})
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			if len(m.tasks) > 0 {
				return m.showTaskForm(m.tasks[m.cursor])
			}
		case key.Matches(msg, keys.Delete):
			if len(m.tasks) > 0 {
				return m.showDeleteForm(m.tasks[m.cursor])
			}
		}
	}
	return m, nil
}

func validateTaskName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

// showTaskForm opens the add form, or the edit form when t has an id.
func (m tasksModel) showTaskForm(t store.Task) (tasksModel, tea.Cmd) {
	*m.formName = t.Name
	*m.formIcon = t.Icon
	m.formType = "new"
	if t.ID != "" {
		m.formType = "edit"
		m.editingID = t.ID
	}
	if *m.formIcon == "" {
		*m.formIcon = registry.DefaultIcon
	}

	iconOptions := make([]huh.Option[string], 0, len(taskIcons)+1)
	known := false
	for _, icon := range taskIcons {
		iconOptions = append(iconOptions, huh.NewOption(icon, icon))
		known = known || icon == *m.formIcon
	}
	if !known {
		iconOptions = append(iconOptions, huh.NewOption(*m.formIcon, *m.formIcon))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task Name").Value(m.formName).Validate(validateTaskName),
			huh.NewSelect[string]().Title("Icon").Options(iconOptions...).Value(m.formIcon),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) showDeleteForm(t store.Task) (tasksModel, tea.Cmd) {
	*m.formConfirm = false
	m.formType = "delete"
	m.editingID = t.ID

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s %s?", t.Icon, t.Name)).
				Description("Recorded history is kept and shown as an unknown task.").
				Affirmative("Delete").
				Negative("Keep").
				Value(m.formConfirm),
		),
	).WithShowHelp(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		return m, m.submit()
	}
	return m, cmd
}

func (m tasksModel) submit() tea.Cmd {
	reg := m.env.tasks
	switch m.formType {
	case "new":
		t, err := reg.Add(*m.formName, *m.formIcon)
		if err != nil {
			return errorCmd("Add task", err)
		}
		m.env.log.Info("task added", util.F("task", t.ID), util.F("name", t.Name))
		return tea.Batch(statusCmd("Added "+t.Name), changed)
	case "edit":
		if err := reg.Update(m.editingID, *m.formName, *m.formIcon); err != nil {
			return errorCmd("Update task", err)
		}
		return tea.Batch(statusCmd("Updated "+strings.TrimSpace(*m.formName)), changed)
	case "delete":
		if !*m.formConfirm {
			return nil
		}
		if err := reg.Delete(m.editingID); err != nil {
			return errorCmd("Delete task", err)
		}
		m.env.log.Info("task deleted", util.F("task", m.editingID))
		return tea.Batch(statusCmd("Task deleted"), changed)
	}
	return nil
}

func (m tasksModel) view() string {
	w := m.width - 4
	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Task")
		switch m.formType {
		case "edit":
			title = titleStyle.Render("Edit Task")
		case "delete":
			title = titleStyle.Render("Delete Task")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Tasks")
	if len(m.tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("    %s %s %s", util.PadRight("", 2), util.PadRight("Name", 28), "Created")))

	for i, t := range m.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := fmt.Sprintf("%s  %s %s %s",
			cursor,
			util.PadRight(t.Icon, 2),
			util.PadRight(t.Name, 28),
			util.FormatDateTime(t.CreatedAt),
		)
		rows = append(rows, style.Render(row))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e/enter: edit  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
