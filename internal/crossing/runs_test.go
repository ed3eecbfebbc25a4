package crossing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/TorchBridge/internal/config"
	"github.com/AaronLay10/TorchBridge/internal/storage/postgres"
)

func completedRow(session string, elapsed float64, outcome Outcome, autoplay bool) postgres.EventRow {
	return postgres.EventRow{
		Event: "puzzle.completed",
		Fields: map[string]interface{}{
			"session_id": session,
			"elapsed":    elapsed,
			"goal":       float64(17),
			"outcome":    string(outcome),
			"autoplay":   autoplay,
		},
	}
}

func TestSummarizeRows(t *testing.T) {
	rows := []postgres.EventRow{
		completedRow("s1", 23, OutcomeOverGoal, false),
		completedRow("s1", 17, OutcomeSuccess, false),
		completedRow("s2", 17, OutcomeSuccess, true),
		{Event: "move.executed", Fields: map[string]interface{}{"session_id": "s3"}},
		{Event: "puzzle.completed", Fields: map[string]interface{}{"session_id": "s3"}},
	}

	got := summarizeRows(rows)
	assert.Equal(t, &RunSummary{
		Completed: 2,
		Successes: 1,
		Replays:   1,
		Best:      17,
		Average:   20,
		Sessions:  3,
	}, got)
}

func TestSummarizeRowsEmpty(t *testing.T) {
	got := summarizeRows(nil)
	assert.Equal(t, &RunSummary{}, got)
}

func TestSummarizeRunsWithoutJournal(t *testing.T) {
	summary, n, err := SummarizeRuns(nil, 0)
	assert.NoError(t, err)
	assert.Nil(t, summary)
	assert.Zero(t, n)
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(config.Default())
	require.NoError(t, err)

	assert.Equal(t, DefaultGoal, opts.Goal)
	assert.Equal(t, DefaultSolution(), opts.Solution)
	assert.Equal(t, DefaultTravelDelay, opts.TravelDelay)
	assert.Equal(t, DefaultStepDelay, opts.StepDelay)
	assert.Equal(t, DefaultAdvisoryDuration, opts.AdvisoryDuration)
	assert.Equal(t, DefaultRoster().Actors(), opts.Roster.Actors())
}
