package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/tasktimer/internal/config"
	"github.com/sadopc/tasktimer/internal/history"
	"github.com/sadopc/tasktimer/internal/lifecycle"
	"github.com/sadopc/tasktimer/internal/registry"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/timer"
	"github.com/sadopc/tasktimer/internal/util"
)

type testEnv struct {
	store   *store.Store
	clock   *util.FakeClock
	tasks   *registry.Registry
	timer   *timer.Engine
	tracker *lifecycle.Tracker
	app     App
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	applyTheme("dark")
	s := newTestStore(t)
	clock := util.NewFakeClock(time.Date(2026, 10, 18, 12, 0, 0, 0, time.Local))
	tasks := registry.New(s, registry.WithClock(clock))
	eng := timer.New(s, timer.WithClock(clock), timer.WithInterval(time.Hour))
	t.Cleanup(eng.Close)
	tr := lifecycle.NewTracker(s, eng, tasks, lifecycle.WithClock(clock))

	app := NewApp(Options{
		Store:     s,
		Tasks:     tasks,
		Tracker:   tr,
		Clock:     clock,
		Log:       util.Discard(),
		Theme:     "dark",
		ExportDir: t.TempDir(),
	})
	e := &testEnv{store: s, clock: clock, tasks: tasks, timer: eng, tracker: tr, app: app}
	e.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return e
}

func (e *testEnv) addTask(t *testing.T, name, icon string) store.Task {
	t.Helper()
	task, err := e.tasks.Add(name, icon)
	if err != nil {
		t.Fatal(err)
	}
	return task
}

// send feeds msg to the app and runs the resulting commands to completion.
func (e *testEnv) send(msg tea.Msg) {
	m, cmd := e.app.Update(msg)
	e.app = m.(App)
	e.run(cmd)
}

func (e *testEnv) run(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 100; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		m, next := e.app.Update(msg)
		e.app = m.(App)
		queue = append(queue, next)
	}
}

func (e *testEnv) refresh() { e.run(e.app.refreshAll()) }

func press(k string) tea.KeyMsg {
	switch k {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	e := newTestEnv(t)

	if e.app.activeView != viewTracking {
		t.Fatal("default view should be tracking")
	}
	if e.app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if e.app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
	if e.app.interval != timer.DefaultInterval {
		t.Fatalf("interval = %v, want default", e.app.interval)
	}
}

func TestAppViewStates(t *testing.T) {
	e := newTestEnv(t)
	e.addTask(t, "Read", "📚")
	e.refresh()

	views := []viewState{viewTracking, viewTasks, viewHistory, viewSettings}
	for _, v := range views {
		e.app.activeView = v
		if output := e.app.View(); output == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppTabSwitching(t *testing.T) {
	e := newTestEnv(t)

	for i, k := range []string{"2", "3", "4", "1"} {
		e.send(press(k))
		want := []viewState{viewTasks, viewHistory, viewSettings, viewTracking}[i]
		if e.app.activeView != want {
			t.Fatalf("after %q view = %d, want %d", k, e.app.activeView, want)
		}
	}

	e.send(press("tab"))
	if e.app.activeView != viewTasks {
		t.Fatalf("tab should advance to tasks, got %d", e.app.activeView)
	}
	e.app.activeView = viewSettings
	e.send(press("tab"))
	if e.app.activeView != viewTracking {
		t.Fatalf("tab should wrap to tracking, got %d", e.app.activeView)
	}
}

func TestAppHelpToggle(t *testing.T) {
	e := newTestEnv(t)
	e.send(press("?"))
	if !e.app.showHelp || !e.app.help.ShowAll {
		t.Fatal("? should show full help")
	}
	e.send(press("?"))
	if e.app.showHelp {
		t.Fatal("? again should hide help")
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	e := newTestEnv(t)
	header := e.app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppLoadingState(t *testing.T) {
	e := newTestEnv(t)
	e.app.width = 0
	if output := e.app.View(); output != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", output)
	}
}

func TestAppStatusMessage(t *testing.T) {
	e := newTestEnv(t)
	e.send(statusMsg{text: "test status"})

	if !strings.Contains(e.app.renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppFooterShowsTimer(t *testing.T) {
	e := newTestEnv(t)
	task := e.addTask(t, "Read", "📚")
	if err := e.tracker.SelectTask(task.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.tracker.Start(); err != nil {
		t.Fatal(err)
	}
	e.clock.Advance(65 * time.Second)

	if footer := e.app.renderFooter(); !strings.Contains(footer, "01:05") {
		t.Fatalf("footer should show elapsed time, got %q", footer)
	}
}

func TestAppTickReschedules(t *testing.T) {
	e := newTestEnv(t)
	_, cmd := e.app.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
}

// ============================================================
// Tracking view
// ============================================================

func TestTrackingToggleStartsCursorTask(t *testing.T) {
	e := newTestEnv(t)
	e.addTask(t, "Read", "📚")
	write := e.addTask(t, "Write", "✍️")
	e.refresh()

	e.send(press("j"))
	e.send(press(" "))

	if e.tracker.Phase() != lifecycle.PhaseRunning {
		t.Fatalf("phase = %s, want running", e.tracker.Phase())
	}
	if got := e.tracker.Tracking().SelectedTaskID; got != write.ID {
		t.Fatalf("selected %q, want %q", got, write.ID)
	}

	e.clock.Advance(5 * time.Second)
	e.send(press(" "))
	if e.tracker.Phase() != lifecycle.PhasePaused {
		t.Fatalf("phase = %s, want paused", e.tracker.Phase())
	}
	e.clock.Advance(2 * time.Second)
	e.send(press("s"))
	e.clock.Advance(3 * time.Second)
	e.send(press("x"))

	recs := e.store.LoadRecords()
	if len(recs) != 1 || recs[0].Accumulated != 8000 {
		t.Fatalf("records = %+v, want one of 8000ms", recs)
	}
	if len(e.app.tracking.recent) != 1 {
		t.Fatalf("recent = %d, want 1", len(e.app.tracking.recent))
	}
	if !strings.Contains(e.app.tracking.view(), "Write") {
		t.Fatal("recent panel should list the finished task")
	}
}

func TestTrackingEnterSelectsAndEscDeselects(t *testing.T) {
	e := newTestEnv(t)
	task := e.addTask(t, "Read", "📚")
	e.refresh()

	e.send(press("enter"))
	if got := e.tracker.Tracking().SelectedTaskID; got != task.ID {
		t.Fatalf("selected %q, want %q", got, task.ID)
	}
	if !strings.Contains(e.app.tracking.view(), "READY") {
		t.Fatal("selected task should show as ready")
	}

	e.send(press("esc"))
	if e.tracker.Phase() != lifecycle.PhaseNoSelection {
		t.Fatalf("phase = %s, want no selection", e.tracker.Phase())
	}
}

func TestTrackingCompleteWithoutStartDeselects(t *testing.T) {
	e := newTestEnv(t)
	e.addTask(t, "Read", "📚")
	e.refresh()

	e.send(press("enter"))
	e.send(press("x"))
	if e.tracker.Phase() != lifecycle.PhaseNoSelection {
		t.Fatalf("phase = %s, want no selection", e.tracker.Phase())
	}
	if len(e.store.LoadRecords()) != 0 {
		t.Fatal("no record should be created")
	}
}

func TestTrackingCancel(t *testing.T) {
	e := newTestEnv(t)
	e.addTask(t, "Read", "📚")
	e.refresh()

	e.send(press(" "))
	e.clock.Advance(time.Minute)
	e.send(press("c"))

	if e.tracker.Phase() != lifecycle.PhaseNoSelection {
		t.Fatalf("phase = %s, want no selection", e.tracker.Phase())
	}
	if len(e.store.LoadRecords()) != 0 {
		t.Fatal("cancel should discard the record")
	}
}

func TestTrackingWithoutTasks(t *testing.T) {
	e := newTestEnv(t)
	e.send(press(" "))
	if e.tracker.Phase() != lifecycle.PhaseNoSelection {
		t.Fatal("nothing should start without tasks")
	}
	if !strings.Contains(e.app.status, "No tasks") {
		t.Fatalf("status = %q", e.app.status)
	}
}

// ============================================================
// Tasks view
// ============================================================

func TestTasksSubmitAddEditDelete(t *testing.T) {
	e := newTestEnv(t)
	m := e.app.tasks

	m.formType = "new"
	*m.formName = "  Read  "
	*m.formIcon = "📚"
	e.run(m.submit())

	list := e.tasks.List()
	if len(list) != 1 || list[0].Name != "Read" {
		t.Fatalf("tasks = %+v", list)
	}
	if len(e.app.tasks.tasks) != 1 {
		t.Fatal("tasks view should refresh after add")
	}

	m.formType = "edit"
	m.editingID = list[0].ID
	*m.formName = "Read books"
	e.run(m.submit())
	if got, _ := e.tasks.Get(list[0].ID); got.Name != "Read books" {
		t.Fatalf("name = %q", got.Name)
	}

	m.formType = "delete"
	*m.formConfirm = false
	e.run(m.submit())
	if len(e.tasks.List()) != 1 {
		t.Fatal("unconfirmed delete should keep the task")
	}
	*m.formConfirm = true
	e.run(m.submit())
	if len(e.tasks.List()) != 0 {
		t.Fatal("confirmed delete should remove the task")
	}
}

func TestTasksSubmitRejectsEmptyName(t *testing.T) {
	e := newTestEnv(t)
	m := e.app.tasks
	m.formType = "new"
	*m.formName = "   "
	e.run(m.submit())

	if len(e.tasks.List()) != 0 {
		t.Fatal("empty name should not add a task")
	}
	if !e.app.statusErr {
		t.Fatal("empty name should report an error")
	}
}

func TestTasksFormOpens(t *testing.T) {
	e := newTestEnv(t)
	e.app.activeView = viewTasks
	m, _ := e.app.tasks.update(press("n"))
	if !m.formActive || m.formType != "new" {
		t.Fatal("n should open the new task form")
	}
	if *m.formIcon != registry.DefaultIcon {
		t.Fatalf("default icon = %q", *m.formIcon)
	}
	m, _ = m.update(press("esc"))
	if m.formActive {
		t.Fatal("esc should close the form")
	}
}

func TestValidateTaskName(t *testing.T) {
	if validateTaskName(" ") == nil {
		t.Fatal("blank name should fail")
	}
	if validateTaskName("Read") != nil {
		t.Fatal("name should pass")
	}
}

// ============================================================
// History view
// ============================================================

func recordFor(t *testing.T, e *testEnv, task store.Task, d time.Duration) {
	t.Helper()
	if err := e.tracker.SwitchTask(task.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.tracker.Start(); err != nil {
		t.Fatal(err)
	}
	e.clock.Advance(d)
	if err := e.tracker.Complete(); err != nil {
		t.Fatal(err)
	}
}

func TestHistorySortAndSearch(t *testing.T) {
	e := newTestEnv(t)
	read := e.addTask(t, "Read", "📚")
	write := e.addTask(t, "Write", "✍️")
	recordFor(t, e, read, 3*time.Minute)
	recordFor(t, e, write, 1*time.Minute)
	e.app.activeView = viewHistory
	e.refresh()

	h := e.app.history
	if len(h.result.Entries) != 2 || h.result.Total != int64(4*time.Minute/time.Millisecond) {
		t.Fatalf("result = %+v", h.result)
	}
	if h.result.Entries[0].TaskName != "Write" {
		t.Fatal("newest first by default")
	}

	e.send(press("o"))
	if e.app.history.sort != history.SortOldest {
		t.Fatalf("sort = %s, want oldest", e.app.history.sort)
	}
	if v, _ := e.store.GetSetting(store.SettingHistorySort); v != "oldest" {
		t.Fatalf("stored sort = %q, want oldest", v)
	}
	if e.app.history.result.Entries[0].TaskName != "Read" {
		t.Fatal("oldest first after cycling sort")
	}

	e.app.history.search.SetValue("WRI")
	e.run(e.app.history.refresh())
	if len(e.app.history.result.Entries) != 1 || e.app.history.result.Entries[0].TaskName != "Write" {
		t.Fatalf("search result = %+v", e.app.history.result.Entries)
	}

	e.send(press("esc"))
	if len(e.app.history.result.Entries) != 2 {
		t.Fatal("esc should clear the search")
	}
}

func TestHistorySearchCapturesKeys(t *testing.T) {
	e := newTestEnv(t)
	e.app.activeView = viewHistory
	m, _ := e.app.history.update(press("/"))
	e.app.history = m
	if !e.app.isFormActive() {
		t.Fatal("search should capture input")
	}

	// cursor blink commands are not run here
	m, _ = m.update(press("q"))
	if m.search.Value() != "q" {
		t.Fatalf("search = %q, want q", m.search.Value())
	}
	m, _ = m.update(press("enter"))
	e.app.history = m
	if e.app.isFormActive() {
		t.Fatal("enter should leave search")
	}
	if m.search.Value() != "q" {
		t.Fatal("enter should keep the query")
	}
}

func TestHistoryLoadsStoredSort(t *testing.T) {
	e := newTestEnv(t)
	if err := e.store.SetSetting(store.SettingHistorySort, "longest"); err != nil {
		t.Fatal(err)
	}
	m := newHistoryModel(e.app.env)
	if m.sort != history.SortLongest {
		t.Fatalf("sort = %s, want longest", m.sort)
	}
}

func TestHistoryEditAndDelete(t *testing.T) {
	e := newTestEnv(t)
	read := e.addTask(t, "Read", "📚")
	recordFor(t, e, read, time.Minute)
	e.refresh()

	h := e.app.history
	h.editing = h.result.Entries[0].Record
	h.formType = "edit"
	*h.formDur = "1h30m"
	*h.formNote = " chapter 2 "
	e.run(h.submit())

	rec := e.store.LoadRecords()[0]
	if rec.Accumulated != int64(90*time.Minute/time.Millisecond) || rec.Note != "chapter 2" {
		t.Fatalf("record = %+v", rec)
	}

	h.formType = "delete"
	*h.formOK = true
	e.run(h.submit())
	if len(e.store.LoadRecords()) != 0 {
		t.Fatal("record should be deleted")
	}
	if len(e.app.history.result.Entries) != 0 {
		t.Fatal("history should refresh after delete")
	}
}

func TestHistoryShowsOrphans(t *testing.T) {
	e := newTestEnv(t)
	read := e.addTask(t, "Read", "📚")
	recordFor(t, e, read, time.Minute)
	if err := e.tasks.Delete(read.ID); err != nil {
		t.Fatal(err)
	}
	e.refresh()

	if !strings.Contains(e.app.history.view(), registry.UnknownTaskName) {
		t.Fatal("orphaned records should show the unknown task placeholder")
	}
}

func TestParseDurationInput(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"90", 5_400_000, false},
		{"1.5", 90_000, false},
		{"1h30m", 5_400_000, false},
		{"45s", 45_000, false},
		{" 0 ", 0, false},
		{"-5", 0, true},
		{"-1m", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDurationInput(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseDurationInput(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseDurationInput(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// ============================================================
// Settings view
// ============================================================

func TestSettingsThemeToggle(t *testing.T) {
	e := newTestEnv(t)
	e.app.activeView = viewSettings
	e.send(press("enter"))

	if currentTheme != "light" {
		t.Fatalf("theme = %q, want light", currentTheme)
	}
	if v, _ := e.store.GetSetting(store.SettingTheme); v != "light" {
		t.Fatalf("stored theme = %q, want light", v)
	}
	if !strings.Contains(e.app.settings.view(), "Theme: light") {
		t.Fatal("settings view should show the theme")
	}
}

func TestSettingsExport(t *testing.T) {
	e := newTestEnv(t)
	read := e.addTask(t, "Read", "📚")
	recordFor(t, e, read, time.Minute)

	for _, format := range []string{"json", "csv"} {
		e.run(e.app.settings.doExport(format))
		path := filepath.Join(e.app.env.exportDir, "tasktimer-export-2026-10-18."+format)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("%s export missing: %v", format, err)
		}
		if !strings.Contains(string(data), "Read") {
			t.Fatalf("%s export should contain the task name", format)
		}
		if !strings.Contains(e.app.status, path) {
			t.Fatalf("status = %q", e.app.status)
		}
	}
}

func TestSettingsClearData(t *testing.T) {
	e := newTestEnv(t)
	read := e.addTask(t, "Read", "📚")
	recordFor(t, e, read, time.Minute)
	if err := e.tracker.SelectTask(read.ID); err != nil {
		t.Fatal(err)
	}
	e.refresh()

	e.run(e.app.settings.clearData())

	if len(e.tasks.List()) != 0 || len(e.tracker.Records()) != 0 {
		t.Fatal("clear should remove tasks and records")
	}
	if e.tracker.Phase() != lifecycle.PhaseNoSelection {
		t.Fatal("clear should reset the selection")
	}
	if e.app.settings.tasks != 0 || e.app.settings.records != 0 {
		t.Fatal("settings view should refresh counts")
	}
}

// ============================================================
// Config reload
// ============================================================

func TestConfigChangeAppliesTheme(t *testing.T) {
	e := newTestEnv(t)
	cfg := config.Default()
	cfg.Theme = "light"
	cfg.TickInterval = 250 * time.Millisecond

	e.send(ConfigChangedMsg{Config: cfg})
	if currentTheme != "light" {
		t.Fatalf("theme = %q, want light", currentTheme)
	}
	if e.app.interval != 250*time.Millisecond {
		t.Fatalf("interval = %v", e.app.interval)
	}

	// an unrelated config edit does not undo a theme picked in the app
	e.run(setTheme(e.app.env, "dark"))
	cfg2 := *cfg
	cfg2.LogLevel = "debug"
	e.send(ConfigChangedMsg{Config: &cfg2})
	if currentTheme != "dark" {
		t.Fatalf("theme = %q, want dark", currentTheme)
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test, just verify they do not panic)
// ============================================================

func TestStylesRender(t *testing.T) {
	for _, theme := range []string{"dark", "light"} {
		applyTheme(theme)
		styles := []struct {
			name string
			fn   func() string
		}{
			{"activeTab", func() string { return activeTabStyle.Render("test") }},
			{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
			{"panel", func() string { return panelStyle.Render("test") }},
			{"activePanel", func() string { return activePanelStyle.Render("test") }},
			{"timer", func() string { return timerStyle.Render("test") }},
			{"timerRunning", func() string { return timerRunningStyle.Render("test") }},
			{"timerPaused", func() string { return timerPausedStyle.Render("test") }},
			{"title", func() string { return titleStyle.Render("test") }},
			{"subtitle", func() string { return subtitleStyle.Render("test") }},
			{"accent", func() string { return accentStyle.Render("test") }},
			{"success", func() string { return successStyle.Render("test") }},
			{"warning", func() string { return warningStyle.Render("test") }},
			{"error", func() string { return errorStyle.Render("test") }},
			{"muted", func() string { return mutedStyle.Render("test") }},
			{"highlight", func() string { return highlightStyle.Render("test") }},
			{"header", func() string { return headerStyle.Render("test") }},
			{"footer", func() string { return footerStyle.Render("test") }},
			{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
			{"normalItem", func() string { return normalItemStyle.Render("test") }},
		}
		for _, s := range styles {
			if s.fn() == "" {
				t.Fatalf("%s style %q rendered empty", theme, s.name)
			}
		}
	}
}

func TestApplyThemeFallsBack(t *testing.T) {
	applyTheme("neon")
	if currentTheme != "dark" {
		t.Fatalf("unknown theme should fall back to dark, got %q", currentTheme)
	}
	applyTheme("light")
	if colorPrimary != palettes["light"].primary {
		t.Fatal("light theme should swap the palette")
	}
	applyTheme("dark")
}
