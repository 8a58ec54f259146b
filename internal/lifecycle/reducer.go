package lifecycle

import (
	"errors"
	"fmt"

	"github.com/sadopc/tasktimer/internal/store"
)

var (
	// ErrRecordNotFound is returned when an edit names an unknown record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordActive is returned when an edit targets the active record.
	ErrRecordActive = errors.New("record is active")
	// ErrRecordOpen is returned when an edit would clear a record's end time.
	ErrRecordOpen = errors.New("record must stay completed")
	// ErrNoTask is returned when a selection names no task.
	ErrNoTask = errors.New("no task given")
)

// State is the record collection plus the selection slot.
type State struct {
	Records  []store.Record
	Tracking store.TrackingState
}

// Phase derives the selection phase from the tracking slot.
func (s State) Phase() Phase {
	switch {
	case s.Tracking.ActiveRecordID != "" && s.Tracking.Paused:
		return PhasePaused
	case s.Tracking.ActiveRecordID != "":
		return PhaseRunning
	case s.Tracking.SelectedTaskID != "":
		return PhaseSelected
	default:
		return PhaseNoSelection
	}
}

// ActiveRecord returns the record named by the active slot.
func (s State) ActiveRecord() (store.Record, bool) {
	if s.Tracking.ActiveRecordID == "" {
		return store.Record{}, false
	}
	return s.Record(s.Tracking.ActiveRecordID)
}

// Record looks up a record by id.
func (s State) Record(id string) (store.Record, bool) {
	if i := s.index(id); i >= 0 {
		return s.Records[i], true
	}
	return store.Record{}, false
}

func (s State) index(id string) int {
	for i, r := range s.Records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// withRecords returns a copy of s whose record slice may be mutated freely.
func (s State) withRecords() State {
	recs := make([]store.Record, len(s.Records))
	copy(recs, s.Records)
	s.Records = recs
	return s
}

// Action is one of the lifecycle actions below.
type Action interface {
	action()
}

type (
	SelectTask     struct{ TaskID string }
	StartRecord    struct{}
	PauseRecord    struct{ Accumulated int64 }
	ResumeRecord   struct{}
	CompleteRecord struct{ Accumulated int64 }
	CancelRecord   struct{}
	DeselectTask   struct{}
	UpdateRecord   struct{ Record store.Record }
	DeleteRecord   struct{ ID string }
)

func (SelectTask) action()     {}
func (StartRecord) action()    {}
func (PauseRecord) action()    {}
func (ResumeRecord) action()   {}
func (CompleteRecord) action() {}
func (CancelRecord) action()   {}
func (DeselectTask) action()   {}
func (UpdateRecord) action()   {}
func (DeleteRecord) action()   {}

// Reduce applies a to s at time now (ms) and returns the new state. It
// never mutates s. On a failed precondition the returned state equals s and
// the error says why; callers wanting silent no-ops may ignore the error.
func Reduce(s State, a Action, now int64, newID func() string) (State, error) {
	switch a := a.(type) {
	case SelectTask:
		if a.TaskID == "" {
			return s, ErrNoTask
		}
		if _, err := Next(s.Phase(), EventSelect); err != nil {
			return s, err
		}
		s.Tracking = store.TrackingState{SelectedTaskID: a.TaskID}
		return s, nil

	case StartRecord:
		if _, err := Next(s.Phase(), EventStart); err != nil {
			return s, err
		}
		rec := store.Record{
			ID:      newID(),
			TaskID:  s.Tracking.SelectedTaskID,
			StartAt: now,
		}
		s = s.withRecords()
		s.Records = append(s.Records, rec)
		s.Tracking.ActiveRecordID = rec.ID
		s.Tracking.Paused = false
		return s, nil

	case PauseRecord:
		return updateActive(s, EventPause, func(r *store.Record) {
			r.Accumulated = clamp(a.Accumulated)
		}, func(t *store.TrackingState) {
			t.Paused = true
		})

	case ResumeRecord:
		return updateActive(s, EventResume, func(r *store.Record) {
			r.StartAt = now
		}, func(t *store.TrackingState) {
			t.Paused = false
		})

	case CompleteRecord:
		return updateActive(s, EventComplete, func(r *store.Record) {
			end := now
			r.Accumulated = clamp(a.Accumulated)
			r.EndAt = &end
		}, func(t *store.TrackingState) {
			*t = store.TrackingState{}
		})

	case CancelRecord:
		if _, err := Next(s.Phase(), EventCancel); err != nil {
			return s, err
		}
		if id := s.Tracking.ActiveRecordID; id != "" {
			s = s.withRecords()
			if i := s.index(id); i >= 0 {
				s.Records = append(s.Records[:i], s.Records[i+1:]...)
			}
		}
		s.Tracking = store.TrackingState{}
		return s, nil

	case DeselectTask:
		if _, err := Next(s.Phase(), EventDeselect); err != nil {
			return s, err
		}
		s.Tracking = store.TrackingState{}
		return s, nil

	case UpdateRecord:
		i := s.index(a.Record.ID)
		if i < 0 {
			return s, fmt.Errorf("%w: %s", ErrRecordNotFound, a.Record.ID)
		}
		if a.Record.ID == s.Tracking.ActiveRecordID {
			return s, fmt.Errorf("%w: %s", ErrRecordActive, a.Record.ID)
		}
		if a.Record.EndAt == nil {
			return s, fmt.Errorf("%w: %s", ErrRecordOpen, a.Record.ID)
		}
		s = s.withRecords()
		rec := a.Record
		rec.Accumulated = clamp(rec.Accumulated)
		s.Records[i] = rec
		return s, nil

	case DeleteRecord:
		i := s.index(a.ID)
		if i < 0 {
			return s, fmt.Errorf("%w: %s", ErrRecordNotFound, a.ID)
		}
		s = s.withRecords()
		s.Records = append(s.Records[:i], s.Records[i+1:]...)
		if a.ID == s.Tracking.ActiveRecordID {
			s.Tracking = store.TrackingState{}
		}
		return s, nil

	default:
		return s, fmt.Errorf("unknown action %T", a)
	}
}

func updateActive(s State, ev Event, rec func(*store.Record), slot func(*store.TrackingState)) (State, error) {
	if _, err := Next(s.Phase(), ev); err != nil {
		return s, err
	}
	i := s.index(s.Tracking.ActiveRecordID)
	if i < 0 {
		return s, fmt.Errorf("%w: active %s", ErrRecordNotFound, s.Tracking.ActiveRecordID)
	}
	s = s.withRecords()
	rec(&s.Records[i])
	slot(&s.Tracking)
	return s, nil
}

func clamp(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	return ms
}
