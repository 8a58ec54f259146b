package lifecycle

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Phase is the state of the task-selection slot.
type Phase string

const (
	PhaseNoSelection Phase = "no_selection"
	PhaseSelected    Phase = "selected"
	PhaseRunning     Phase = "running"
	PhasePaused      Phase = "paused"
)

// Event names a transition of the selection slot.
type Event string

const (
	EventSelect   Event = "select"
	EventStart    Event = "start"
	EventPause    Event = "pause"
	EventResume   Event = "resume"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
	EventDeselect Event = "deselect"
)

// ErrInvalidTransition is returned when an event is not allowed in the
// current phase. State is left unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

type slotContext struct{}

// Next returns the phase reached by sending ev in from, or an error wrapping
// ErrInvalidTransition. Completed and cancelled recordings return the slot
// to PhaseNoSelection.
func Next(from Phase, ev Event) (Phase, error) {
	builder := statekit.NewMachine[slotContext]("record-lifecycle").
		WithInitial(statekit.StateID(from)).
		WithContext(slotContext{})

	builder.State(statekit.StateID(PhaseNoSelection)).
		On(statekit.EventType(EventSelect)).Target(statekit.StateID(PhaseSelected)).
		Done()

	builder.State(statekit.StateID(PhaseSelected)).
		On(statekit.EventType(EventStart)).Target(statekit.StateID(PhaseRunning)).
		On(statekit.EventType(EventDeselect)).Target(statekit.StateID(PhaseNoSelection)).
		On(statekit.EventType(EventCancel)).Target(statekit.StateID(PhaseNoSelection)).
		Done()

	builder.State(statekit.StateID(PhaseRunning)).
		On(statekit.EventType(EventPause)).Target(statekit.StateID(PhasePaused)).
		On(statekit.EventType(EventComplete)).Target(statekit.StateID(PhaseNoSelection)).
		On(statekit.EventType(EventCancel)).Target(statekit.StateID(PhaseNoSelection)).
		Done()

	builder.State(statekit.StateID(PhasePaused)).
		On(statekit.EventType(EventResume)).Target(statekit.StateID(PhaseRunning)).
		On(statekit.EventType(EventComplete)).Target(statekit.StateID(PhaseNoSelection)).
		On(statekit.EventType(EventCancel)).Target(statekit.StateID(PhaseNoSelection)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return from, fmt.Errorf("build lifecycle machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	interp.Send(statekit.Event{Type: statekit.EventType(ev)})

	// Every transition changes phase, so an unchanged phase means the event
	// had no matching transition.
	to := Phase(interp.State().Value)
	if to == from {
		return from, fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, ev, from)
	}
	return to, nil
}

// Allowed reports whether ev may be sent in phase p.
func Allowed(p Phase, ev Event) bool {
	_, err := Next(p, ev)
	return err == nil
}
