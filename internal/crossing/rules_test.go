package crossing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireInvariants checks the properties every reachable state must have.
func requireInvariants(t *testing.T, st *State, r *Roster) {
	t.Helper()

	sum := 0
	for _, m := range st.History {
		sum += m.Duration
	}
	require.Equal(t, sum, st.Elapsed, "elapsed must equal the sum of move durations")

	wantTorch := SideStart
	if last, ok := st.LastMove(); ok {
		wantTorch = last.To
	}
	require.Equal(t, wantTorch, st.TorchSide, "torch must be where the last move ended")

	for _, id := range st.Selection {
		require.Equal(t, st.TorchSide, st.Positions[id], "selected %s must be on the torch side", id)
	}
	require.Len(t, st.Positions, r.Len(), "every actor has exactly one position")
}

func TestRosterValidation(t *testing.T) {
	_, err := NewRoster(nil)
	assert.Error(t, err)

	_, err = NewRoster([]Actor{{ID: "a", Cost: 1}, {ID: "a", Cost: 2}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewRoster([]Actor{{ID: " ", Cost: 1}})
	assert.ErrorContains(t, err, "id is required")

	_, err = NewRoster([]Actor{{ID: "a", Cost: 0}})
	assert.ErrorContains(t, err, "cost must be positive")

	r, err := NewRoster([]Actor{{ID: "solo", Cost: 3}})
	require.NoError(t, err)
	assert.Equal(t, "solo", r.Label("solo"), "label falls back to id")
}

func TestRosterDuration(t *testing.T) {
	r := DefaultRoster()
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 2, r.Duration([]string{"ava", "ben"}))
	assert.Equal(t, 10, r.Duration([]string{"dax", "ava"}))
	assert.Equal(t, 0, r.Duration(nil))
	assert.Equal(t, "ghost", r.Label("ghost"))
}

func TestValidatorBoundaries(t *testing.T) {
	cases := []struct {
		size  int
		torch Side
		valid bool
	}{
		{0, SideStart, false},
		{1, SideStart, true},
		{2, SideStart, true},
		{3, SideStart, false},
		{4, SideStart, false},
		{0, SideDestination, false},
		{1, SideDestination, true},
		{2, SideDestination, false},
	}
	for _, tc := range cases {
		sel := make([]string, tc.size)
		assert.Equal(t, tc.valid, IsValid(sel, tc.torch), "size %d from %s", tc.size, tc.torch)
	}
}

func TestToggleSelection(t *testing.T) {
	r := DefaultRoster()
	st := NewState(r)

	require.NoError(t, ToggleSelection(st, r, "ava"))
	require.NoError(t, ToggleSelection(st, r, "ben"))
	assert.Equal(t, []string{"ava", "ben"}, st.Selection)
	requireInvariants(t, st, r)

	err := ToggleSelection(st, r, "cara")
	assert.True(t, errors.Is(err, ErrSelectionLimit))
	assert.Equal(t, []string{"ava", "ben"}, st.Selection, "rejected toggle leaves selection unchanged")

	require.NoError(t, ToggleSelection(st, r, "ava"), "toggling again deselects")
	assert.Equal(t, []string{"ben"}, st.Selection)

	err = ToggleSelection(st, r, "eve")
	assert.True(t, errors.Is(err, ErrUnknownActor))
	assert.Equal(t, []string{"ben"}, st.Selection)
}

func TestToggleSelectionWrongSide(t *testing.T) {
	r := DefaultRoster()
	st := NewState(r)
	_, err := Execute(st, r, []string{"ava", "ben"})
	require.NoError(t, err)

	err = ToggleSelection(st, r, "cara")
	var rej *Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, ReasonWrongSide, rej.Reason)
	assert.Equal(t, "The torch is on the destination side. Cara can't move yet.", rej.Message)
	assert.Empty(t, st.Selection)

	require.NoError(t, ToggleSelection(st, r, "ava"))
	err = ToggleSelection(st, r, "ben")
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, ReasonSelectionLimit, rej.Reason)
	assert.Equal(t, "Only one person can bring the torch back.", rej.Message)
}

func TestExecuteRejectsWithoutMutation(t *testing.T) {
	r := DefaultRoster()
	st := NewState(r)
	before := st.Clone()

	for _, sel := range [][]string{
		nil,
		{"ava", "ben", "cara"},
		{"ava", "ava"},
		{"ghost"},
	} {
		_, err := Execute(st, r, sel)
		assert.True(t, errors.Is(err, ErrInvalidSelection), "selection %v", sel)
		assert.Equal(t, before, st.Clone())
	}

	_, err := Execute(st, r, []string{"ava"})
	require.NoError(t, err)
	before = st.Clone()
	_, err = Execute(st, r, []string{"ben"})
	assert.True(t, errors.Is(err, ErrInvalidSelection), "ben is not on the torch side")
	assert.Equal(t, before, st.Clone())
}

func TestExecuteThenUndoRoundTrip(t *testing.T) {
	r := DefaultRoster()
	st := NewState(r)
	before := st.Clone()

	move, err := Execute(st, r, []string{"cara", "ava"})
	require.NoError(t, err)
	assert.Equal(t, Move{IDs: []string{"cara", "ava"}, From: SideStart, To: SideDestination, Duration: 5}, move)
	requireInvariants(t, st, r)

	undone, ok := Undo(st)
	require.True(t, ok)
	assert.Equal(t, move, undone)
	assert.Equal(t, before, st.Clone())
	requireInvariants(t, st, r)
}

func TestUndoEmptyHistory(t *testing.T) {
	r := DefaultRoster()
	st := NewState(r)
	_, ok := Undo(st)
	assert.False(t, ok)
	assert.Equal(t, NewState(r), st)
}

func TestUndoFloorsElapsed(t *testing.T) {
	r := DefaultRoster()
	st := NewState(r)
	_, err := Execute(st, r, []string{"dax"})
	require.NoError(t, err)

	st.Elapsed = 3
	_, ok := Undo(st)
	require.True(t, ok)
	assert.Equal(t, 0, st.Elapsed)
}

func TestEvaluate(t *testing.T) {
	r := DefaultRoster()
	st := NewState(r)
	assert.Nil(t, Evaluate(st, DefaultGoal))

	for id := range st.Positions {
		st.Positions[id] = SideDestination
	}
	st.Elapsed = 17
	v := Evaluate(st, DefaultGoal)
	require.NotNil(t, v)
	assert.Equal(t, OutcomeSuccess, v.Outcome)
	assert.Equal(t, "Success! You matched the ideal time of 17 minutes.", v.Message())

	st.Elapsed = 19
	v = Evaluate(st, DefaultGoal)
	require.NotNil(t, v)
	assert.Equal(t, Verdict{Outcome: OutcomeOverGoal, Elapsed: 19, Goal: 17}, *v)
	assert.Equal(t, "Everyone crossed in 19 minutes. Can you make it in 17?", v.Message())
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(0, 17))
	assert.InDelta(t, 2.0/17.0, Progress(2, 17), 1e-9)
	assert.Equal(t, 1.0, Progress(30, 17))
	assert.Equal(t, 1.0, Progress(3, 0))
}

func TestAllows(t *testing.T) {
	for _, op := range []Op{OpSelect, OpCross, OpUndo, OpReset, OpPlay} {
		assert.True(t, Allows(PhaseIdle, op))
		assert.True(t, Allows(PhaseCompleted, op), "completed is not terminal")
		assert.False(t, Allows(PhaseTransitioning, op))
	}
	assert.True(t, Allows(PhaseAutoPlaying, OpReset))
	assert.False(t, Allows(PhaseAutoPlaying, OpPlay))
	assert.False(t, Allows(PhaseAutoPlaying, OpUndo))
	assert.True(t, PhaseAutoPlaying.Busy())
	assert.False(t, PhaseCompleted.Busy())
}
