package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StateResolveRoute, StateAnalyzeRequirements, true},
		{StateResolveRoute, StateExecute, false},
		{StateAnalyzeRequirements, StateLoadData, true},
		{StateLoadData, StateExecute, true},
		{StateLoadData, StateAnalyzeRequirements, true},
		{StateExecute, StateSuccess, true},
		{StateExecute, StateAnalyzeRequirements, false},
		{StateLoadData, StateError, true},
		{StateSuccess, StateError, false},
		{StateError, StateResolveRoute, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMachineRecordsTrail(t *testing.T) {
	m := newMachine()
	require.NoError(t, m.to(StateAnalyzeRequirements))
	require.NoError(t, m.to(StateLoadData))
	require.NoError(t, m.to(StateAnalyzeRequirements))
	require.NoError(t, m.to(StateLoadData))
	require.NoError(t, m.to(StateExecute))
	require.NoError(t, m.to(StateSuccess))

	assert.True(t, m.state.IsTerminal())
	assert.Len(t, m.trail, 7)
	assert.Error(t, m.to(StateError))
}
