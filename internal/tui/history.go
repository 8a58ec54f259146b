package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/tasktimer/internal/history"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
)

const chartBars = 8

type historyModel struct {
	env    *env
	width  int
	height int

	sort    history.SortOrder
	result  history.Result
	summary []history.TaskTotal
	cursor  int

	search    textinput.Model
	searching bool

	chart barchart.Model

	formActive bool
	form       *huh.Form
	formType   string // "edit", "delete"
	formNote   *string
	formDur    *string
	formOK     *bool
	editing    store.Record
}

func newHistoryModel(e *env) historyModel {
	ti := textinput.New()
	ti.Placeholder = "search by task name"
	ti.Prompt = "/ "
	ti.CharLimit = 64

	sort, err := history.ParseSort(e.store.SettingOr(store.SettingHistorySort, string(history.SortNewest)))
	if err != nil {
		sort = history.SortNewest
	}

	note, dur, ok := "", "", false
	return historyModel{
		env:      e,
		sort:     sort,
		search:   ti,
		chart:    barchart.New(60, 10),
		formNote: &note,
		formDur:  &dur,
		formOK:   &ok,
	}
}

func (h *historyModel) setSize(w, height int) {
	h.width = w
	h.height = height
	h.search.Width = max(10, w-12)
}

type historyDataMsg struct {
	result history.Result
}

func (h historyModel) refresh() tea.Cmd {
	q := history.Query{Search: h.search.Value(), Sort: h.sort}
	return func() tea.Msg {
		return historyDataMsg{result: history.Run(h.env.tracker.Records(), h.env.tasks, q)}
	}
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	switch msg := msg.(type) {
	case historyDataMsg:
		h.result = msg.result
		h.summary = history.SummarizeByTask(msg.result.Entries)
		if h.cursor >= len(h.result.Entries) {
			h.cursor = max(0, len(h.result.Entries)-1)
		}
		h.buildChart()
		return h, nil

	case tea.KeyMsg:
		if h.searching {
			return h.updateSearch(msg)
		}
		switch {
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.result.Entries)-1 {
				h.cursor++
			}
		case key.Matches(msg, keys.Search):
			h.searching = true
			return h, h.search.Focus()
		case key.Matches(msg, keys.Back):
			if h.search.Value() != "" {
				h.search.SetValue("")
				return h, h.refresh()
			}
		case key.Matches(msg, keys.Sort):
			h.sort = h.sort.Next()
			h.cursor = 0
			if err := h.env.store.SetSetting(store.SettingHistorySort, string(h.sort)); err != nil {
				h.env.log.Warn("save history sort failed", util.Err(err))
			}
			return h, tea.Batch(h.refresh(), statusCmd("Sort: "+h.sort.Label()))
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			if e, ok := h.selected(); ok {
				return h.showEditForm(e.Record)
			}
		case key.Matches(msg, keys.Delete):
			if e, ok := h.selected(); ok {
				return h.showDeleteForm(e)
			}
		}
	}
	return h, nil
}

func (h historyModel) updateSearch(msg tea.KeyMsg) (historyModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		h.searching = false
		h.search.Blur()
		return h, nil
	case tea.KeyEsc:
		h.searching = false
		h.search.Blur()
		h.search.SetValue("")
		h.cursor = 0
		return h, h.refresh()
	}

	var cmd tea.Cmd
	h.search, cmd = h.search.Update(msg)
	h.cursor = 0
	return h, tea.Batch(cmd, h.refresh())
}

func (h historyModel) selected() (history.Entry, bool) {
	if h.cursor < 0 || h.cursor >= len(h.result.Entries) {
		return history.Entry{}, false
	}
	return h.result.Entries[h.cursor], true
}

// parseDurationInput accepts a Go duration ("1h30m") or plain minutes ("90").
func parseDurationInput(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, errors.New("duration must not be negative")
		}
		return d.Milliseconds(), nil
	}
	mins, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("enter minutes (90) or a duration (1h30m)")
	}
	if mins < 0 {
		return 0, errors.New("duration must not be negative")
	}
	return int64(mins * float64(time.Minute/time.Millisecond)), nil
}

func validateDuration(s string) error {
	_, err := parseDurationInput(s)
	return err
}

func (h historyModel) showEditForm(r store.Record) (historyModel, tea.Cmd) {
	h.editing = r
	h.formType = "edit"
	*h.formNote = r.Note
	*h.formDur = time.Duration(r.Accumulated * int64(time.Millisecond)).Round(time.Second).String()

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Duration").Description("minutes or e.g. 1h30m").Value(h.formDur).Validate(validateDuration),
			huh.NewText().Title("Note").Value(h.formNote).CharLimit(500),
		),
	).WithShowHelp(true).WithShowErrors(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) showDeleteForm(e history.Entry) (historyModel, tea.Cmd) {
	h.editing = e.Record
	h.formType = "delete"
	*h.formOK = false

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s %s (%s)?", e.TaskIcon, e.TaskName, util.FormatClock(e.Record.Accumulated))).
				Affirmative("Delete").
				Negative("Keep").
				Value(h.formOK),
		),
	).WithShowHelp(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) updateForm(msg tea.Msg) (historyModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			h.formActive = false
			h.form = nil
			return h, nil
		}
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	if h.form.State == huh.StateCompleted {
		h.formActive = false
		return h, h.submit()
	}
	return h, cmd
}

func (h historyModel) submit() tea.Cmd {
	tr := h.env.tracker
	switch h.formType {
	case "edit":
		ms, err := parseDurationInput(*h.formDur)
		if err != nil {
			return errorCmd("Duration", err)
		}
		rec := h.editing
		rec.Accumulated = ms
		rec.Note = strings.TrimSpace(*h.formNote)
		if err := tr.UpdateRecord(rec); err != nil {
			return errorCmd("Update record", err)
		}
		return tea.Batch(statusCmd("Record updated"), changed)
	case "delete":
		if !*h.formOK {
			return nil
		}
		if err := tr.DeleteRecord(h.editing.ID); err != nil {
			return errorCmd("Delete record", err)
		}
		return tea.Batch(statusCmd("Record deleted"), changed)
	}
	return nil
}

func (h *historyModel) buildChart() {
	chartWidth := h.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 8
	if h.height > 36 {
		chartHeight = 12
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	colors := []lipgloss.Color{colorPrimary, colorSecondary, colorAccent, colorHighlight, colorSuccess, colorWarning}
	var bars []barchart.BarData
	for i, s := range h.summary {
		if i == chartBars {
			break
		}
		bars = append(bars, barchart.BarData{
			Label: s.Icon,
			Values: []barchart.BarValue{{
				Name:  s.Name,
				Value: float64(s.Total) / float64(time.Minute/time.Millisecond),
				Style: lipgloss.NewStyle().Foreground(colors[i%len(colors)]),
			}},
		})
	}
	if len(bars) == 0 {
		return
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	if h.formActive && h.form != nil {
		title := titleStyle.Render("Edit Record")
		if h.formType == "delete" {
			title = titleStyle.Render("Delete Record")
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", h.form.View()),
		)
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("History"), "  ",
		highlightStyle.Render(util.FormatHuman(h.result.Total)), "  ",
		mutedStyle.Render(fmt.Sprintf("%d recordings · %s", len(h.result.Entries), h.sort.Label())),
	)

	search := mutedStyle.Render("/ search by task name")
	if h.searching || h.search.Value() != "" {
		search = h.search.View()
	}

	var chartView string
	if len(h.summary) > 0 {
		chartView = lipgloss.JoinVertical(lipgloss.Left, h.chart.View(), h.renderLegend())
	}

	nav := mutedStyle.Render("  /: search  o: sort  e: edit  d: delete")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, search, "", chartView, h.renderTable(w), "", nav,
		),
	)
}

func (h historyModel) renderTable(w int) string {
	if len(h.result.Entries) == 0 {
		if h.search.Value() != "" {
			return mutedStyle.Render("  🔍 No recordings match that search")
		}
		return mutedStyle.Render("  No completed recordings yet")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %s %s %s %s %s",
		util.PadRight("", 2), util.PadRight("Task", 20), util.PadRight("Finished", 16), util.PadRight("Time", 9), "Note")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 70))))

	// keep the cursor inside a window that fits the panel
	visible := max(3, h.height-22)
	start := 0
	if h.cursor >= visible {
		start = h.cursor - visible + 1
	}
	end := min(len(h.result.Entries), start+visible)

	for i := start; i < end; i++ {
		e := h.result.Entries[i]
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		name := e.TaskName
		if e.Orphan {
			style = mutedStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s %s %s %s",
			cursor,
			util.PadRight(e.TaskIcon, 2),
			util.PadRight(name, 20),
			util.PadRight(util.FormatDateTime(*e.Record.EndAt), 16),
			util.PadRight(util.FormatClock(e.Record.Accumulated), 9),
			e.Record.Note,
		)))
	}
	if end < len(h.result.Entries) {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(h.result.Entries)-end)))
	}
	return strings.Join(rows, "\n")
}

func (h historyModel) renderLegend() string {
	var items []string
	for i, s := range h.summary {
		if i == chartBars {
			break
		}
		items = append(items, fmt.Sprintf("%s %s %s", s.Icon, s.Name, util.FormatHuman(s.Total)))
	}
	return "  " + strings.Join(items, "  ")
}
