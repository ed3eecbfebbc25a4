package crossing

import (
	"github.com/AaronLay10/TorchBridge/internal/storage/postgres"
)

// DefaultRunsLimit is the default number of journal rows scanned for run stats.
const DefaultRunsLimit = 1000

// RunSummary aggregates finished runs from the event journal.
// Scripted replays are counted separately and never set Best.
type RunSummary struct {
	Completed int     `json:"completed"`
	Successes int     `json:"successes"`
	Replays   int     `json:"replays"`
	Best      int     `json:"best,omitempty"`
	Average   float64 `json:"average,omitempty"`
	Sessions  int     `json:"sessions"`
}

// SummarizeRuns loads journal rows and aggregates completed runs.
// Returns nil if client is nil.
func SummarizeRuns(client *postgres.Client, limit int) (*RunSummary, int, error) {
	if client == nil {
		return nil, 0, nil
	}
	if limit <= 0 {
		limit = DefaultRunsLimit
	}

	rows, err := client.Query(limit)
	if err != nil {
		return nil, 0, err
	}
	return summarizeRows(rows), len(rows), nil
}

func summarizeRows(rows []postgres.EventRow) *RunSummary {
	summary := &RunSummary{}
	sessions := make(map[string]struct{})
	total := 0

	for _, row := range rows {
		if sid, ok := row.Fields["session_id"].(string); ok && sid != "" {
			sessions[sid] = struct{}{}
		}
		if row.Event != "puzzle.completed" {
			continue
		}
		if autoplay, _ := row.Fields["autoplay"].(bool); autoplay {
			summary.Replays++
			continue
		}

		// JSONB numbers come back as float64
		elapsed, ok := row.Fields["elapsed"].(float64)
		if !ok {
			continue
		}
		summary.Completed++
		total += int(elapsed)
		if outcome, _ := row.Fields["outcome"].(string); outcome == string(OutcomeSuccess) {
			summary.Successes++
		}
		if summary.Best == 0 || int(elapsed) < summary.Best {
			summary.Best = int(elapsed)
		}
	}

	if summary.Completed > 0 {
		summary.Average = float64(total) / float64(summary.Completed)
	}
	summary.Sessions = len(sessions)
	return summary
}
