package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
)

// ErrUnknownTask is returned when selecting a task the directory does not know.
var ErrUnknownTask = errors.New("unknown task")

// RecordStore is the slice of the persistence gateway the tracker uses.
type RecordStore interface {
	LoadRecords() []store.Record
	SaveRecords(records []store.Record)
	LoadTracking() store.TrackingState
	SaveTracking(state store.TrackingState)
}

// Timer is the timer engine as seen by the tracker.
type Timer interface {
	Start(initialAccumulated int64)
	Pause()
	Resume()
	Restore(fixed int64)
	Reset()
	CurrentTime() int64
	IsRunning() bool
}

// TaskDirectory looks tasks up by id.
type TaskDirectory interface {
	Get(id string) (store.Task, bool)
}

// Tracker couples the record reducer with the timer and persistence. Every
// successful mutation saves records and tracking state.
type Tracker struct {
	mu    sync.Mutex
	state State

	store RecordStore
	timer Timer
	tasks TaskDirectory
	clock util.Clock
	newID func() string
	log   util.Logger
}

type TrackerOption func(*Tracker)

func WithClock(c util.Clock) TrackerOption { return func(t *Tracker) { t.clock = c } }

// WithIDFunc overrides uuid generation for new records.
func WithIDFunc(fn func() string) TrackerOption { return func(t *Tracker) { t.newID = fn } }

func WithLogger(l util.Logger) TrackerOption { return func(t *Tracker) { t.log = l } }

// NewTracker rehydrates records and tracking state and reconciles them with
// the timer.
func NewTracker(s RecordStore, tm Timer, tasks TaskDirectory, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store: s,
		timer: tm,
		tasks: tasks,
		clock: util.SystemClock(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = util.L()
	}
	t.log = t.log.With(util.F("component", "lifecycle"))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rehydrateLocked()
	return t
}

// Reload reads records and tracking state from the store again, e.g. after
// the stored data was cleared.
func (t *Tracker) Reload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rehydrateLocked()
}

func (t *Tracker) rehydrateLocked() {
	t.state = State{
		Records:  t.store.LoadRecords(),
		Tracking: t.store.LoadTracking(),
	}

	changed := false
	tr := &t.state.Tracking
	if tr.ActiveRecordID != "" {
		rec, ok := t.state.Record(tr.ActiveRecordID)
		if !ok || rec.Completed() {
			t.log.Warn("clearing dangling active record", util.F("record", tr.ActiveRecordID))
			tr.ActiveRecordID = ""
			tr.Paused = false
			changed = true
		}
	}

	if t.reconcileOpenRecordsLocked() {
		changed = true
	}

	switch t.state.Phase() {
	case PhaseRunning:
		if !t.timer.IsRunning() {
			t.log.Warn("timer stopped while record running, marking paused")
			tr.Paused = true
			changed = true
			t.alignTimerLocked()
		}
	case PhasePaused:
		t.alignTimerLocked()
	default:
		if t.timer.IsRunning() || t.timer.CurrentTime() != 0 {
			t.timer.Reset()
		}
	}

	if changed {
		t.persistLocked()
	}
}

// reconcileOpenRecordsLocked handles open records the tracking slot does not
// name, left behind when records were saved but tracking was not. The newest
// one moves into an empty slot as paused; any others are completed now.
func (t *Tracker) reconcileOpenRecordsLocked() bool {
	var stray []int
	for i, r := range t.state.Records {
		if !r.Completed() && r.ID != t.state.Tracking.ActiveRecordID {
			stray = append(stray, i)
		}
	}
	if len(stray) == 0 {
		return false
	}

	t.state = t.state.withRecords()
	if t.state.Tracking.ActiveRecordID == "" {
		newest := stray[0]
		for _, i := range stray[1:] {
			if t.state.Records[i].StartAt > t.state.Records[newest].StartAt {
				newest = i
			}
		}
		rec := t.state.Records[newest]
		t.log.Warn("adopting open record into tracking", util.F("record", rec.ID))
		t.state.Tracking = store.TrackingState{SelectedTaskID: rec.TaskID, ActiveRecordID: rec.ID, Paused: true}
		stray = slices.DeleteFunc(stray, func(i int) bool { return i == newest })
	}

	now := t.now()
	for _, i := range stray {
		end := now
		t.state.Records[i].EndAt = &end
		t.log.Warn("completing stray open record", util.F("record", t.state.Records[i].ID))
	}
	return true
}

// alignTimerLocked stops the timer at the active record's confirmed time.
func (t *Tracker) alignTimerLocked() {
	rec, ok := t.state.ActiveRecord()
	if !ok {
		return
	}
	if t.timer.IsRunning() || t.timer.CurrentTime() != rec.Accumulated {
		t.log.Warn("restoring timer from record",
			util.F("record", rec.ID), util.F("accumulated", rec.Accumulated))
		t.timer.Restore(rec.Accumulated)
	}
}

func (t *Tracker) now() int64 { return util.NowMillis(t.clock) }

func (t *Tracker) applyLocked(a Action) error {
	next, err := Reduce(t.state, a, t.now(), t.newID)
	if err != nil {
		return err
	}
	t.state = next
	t.persistLocked()
	t.log.Debug("applied action", util.F("action", fmt.Sprintf("%T", a)), util.F("phase", string(next.Phase())))
	return nil
}

func (t *Tracker) persistLocked() {
	recs := make([]store.Record, len(t.state.Records))
	copy(recs, t.state.Records)
	t.store.SaveRecords(recs)
	t.store.SaveTracking(t.state.Tracking)
}

func (t *Tracker) checkLocked(ev Event) error {
	_, err := Next(t.state.Phase(), ev)
	return err
}

// SelectTask places taskID in the empty selection slot.
func (t *Tracker) SelectTask(taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selectLocked(taskID)
}

func (t *Tracker) selectLocked(taskID string) error {
	if _, ok := t.tasks.Get(taskID); !ok {
		return fmt.Errorf("select %s: %w", taskID, ErrUnknownTask)
	}
	return t.applyLocked(SelectTask{TaskID: taskID})
}

// SwitchTask selects taskID whatever the current phase. A running or paused
// recording is completed first; an idle selection is dropped.
func (t *Tracker) SwitchTask(taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tasks.Get(taskID); !ok {
		return fmt.Errorf("select %s: %w", taskID, ErrUnknownTask)
	}
	if t.state.Tracking.SelectedTaskID == taskID {
		return nil
	}
	switch t.state.Phase() {
	case PhaseRunning, PhasePaused:
		if err := t.completeLocked(); err != nil {
			return err
		}
	case PhaseSelected:
		if err := t.applyLocked(DeselectTask{}); err != nil {
			return err
		}
	}
	return t.selectLocked(taskID)
}

// Start opens a record for the selected task and starts the timer from zero.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startLocked()
}

func (t *Tracker) startLocked() error {
	if err := t.applyLocked(StartRecord{}); err != nil {
		return err
	}
	rec, _ := t.state.ActiveRecord()
	t.timer.Start(rec.Accumulated)
	return nil
}

// Pause freezes the timer and stores its value on the active record.
func (t *Tracker) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pauseLocked()
}

func (t *Tracker) pauseLocked() error {
	acc := t.timer.CurrentTime()
	if err := t.applyLocked(PauseRecord{Accumulated: acc}); err != nil {
		return err
	}
	t.timer.Restore(acc)
	return nil
}

func (t *Tracker) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resumeLocked()
}

func (t *Tracker) resumeLocked() error {
	if err := t.applyLocked(ResumeRecord{}); err != nil {
		return err
	}
	t.timer.Resume()
	return nil
}

// Toggle starts, pauses or resumes depending on the phase.
func (t *Tracker) Toggle() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch p := t.state.Phase(); p {
	case PhaseSelected:
		return t.startLocked()
	case PhaseRunning:
		return t.pauseLocked()
	case PhasePaused:
		return t.resumeLocked()
	default:
		return fmt.Errorf("%w: cannot toggle while %s", ErrInvalidTransition, p)
	}
}

// Complete closes the active record with the timer's value and clears the
// selection.
func (t *Tracker) Complete() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completeLocked()
}

func (t *Tracker) completeLocked() error {
	if err := t.checkLocked(EventComplete); err != nil {
		return err
	}
	if err := t.applyLocked(CompleteRecord{Accumulated: t.timer.CurrentTime()}); err != nil {
		return err
	}
	t.timer.Reset()
	return nil
}

// Cancel discards the active record, if any, and clears the selection.
func (t *Tracker) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.applyLocked(CancelRecord{}); err != nil {
		return err
	}
	t.timer.Reset()
	return nil
}

// Deselect clears a selection that has not been started.
func (t *Tracker) Deselect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(DeselectTask{})
}

// UpdateRecord replaces a non-active record.
func (t *Tracker) UpdateRecord(rec store.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(UpdateRecord{Record: rec})
}

// DeleteRecord removes a record. Deleting the active record clears the
// selection and resets the timer.
func (t *Tracker) DeleteRecord(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := id == t.state.Tracking.ActiveRecordID
	if err := t.applyLocked(DeleteRecord{ID: id}); err != nil {
		return err
	}
	if wasActive {
		t.timer.Reset()
	}
	return nil
}

// SetNote sets the note on a non-active record.
func (t *Tracker) SetNote(id, note string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.state.Record(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	rec.Note = note
	return t.applyLocked(UpdateRecord{Record: rec})
}

// Records returns a copy of every record.
func (t *Tracker) Records() []store.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]store.Record, len(t.state.Records))
	copy(out, t.state.Records)
	return out
}

func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Phase()
}

func (t *Tracker) Tracking() store.TrackingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Tracking
}

func (t *Tracker) ActiveRecord() (store.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ActiveRecord()
}

// SelectedTask returns the selected task. ok is false when nothing is
// selected or the task has since been deleted.
func (t *Tracker) SelectedTask() (store.Task, bool) {
	t.mu.Lock()
	id := t.state.Tracking.SelectedTaskID
	t.mu.Unlock()
	if id == "" {
		return store.Task{}, false
	}
	return t.tasks.Get(id)
}

// Elapsed is the active record's running total, or 0 when nothing is active.
func (t *Tracker) Elapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Tracking.ActiveRecordID == "" {
		return 0
	}
	return t.timer.CurrentTime()
}
