package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTransitions(t *testing.T) {
	tests := []struct {
		from Phase
		ev   Event
		to   Phase
	}{
		{PhaseNoSelection, EventSelect, PhaseSelected},
		{PhaseSelected, EventStart, PhaseRunning},
		{PhaseSelected, EventDeselect, PhaseNoSelection},
		{PhaseSelected, EventCancel, PhaseNoSelection},
		{PhaseRunning, EventPause, PhasePaused},
		{PhaseRunning, EventComplete, PhaseNoSelection},
		{PhaseRunning, EventCancel, PhaseNoSelection},
		{PhasePaused, EventResume, PhaseRunning},
		{PhasePaused, EventComplete, PhaseNoSelection},
		{PhasePaused, EventCancel, PhaseNoSelection},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			got, err := Next(tt.from, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestNextRejects(t *testing.T) {
	tests := []struct {
		from Phase
		ev   Event
	}{
		{PhaseNoSelection, EventStart},
		{PhaseNoSelection, EventComplete},
		{PhaseNoSelection, EventCancel},
		{PhaseNoSelection, EventDeselect},
		{PhaseSelected, EventSelect},
		{PhaseSelected, EventPause},
		{PhaseSelected, EventComplete},
		{PhaseRunning, EventSelect},
		{PhaseRunning, EventResume},
		{PhaseRunning, EventDeselect},
		{PhasePaused, EventPause},
		{PhasePaused, EventStart},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			got, err := Next(tt.from, tt.ev)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, got)
			assert.False(t, Allowed(tt.from, tt.ev))
		})
	}
}
