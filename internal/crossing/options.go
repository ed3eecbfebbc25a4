package crossing

import (
	"github.com/AaronLay10/TorchBridge/internal/config"
)

// OptionsFromConfig builds session options from a puzzle file.
// Sleep, Renderers and SessionID are left for the caller.
func OptionsFromConfig(cfg *config.PuzzleConfig) (Options, error) {
	actors := make([]Actor, 0, len(cfg.Actors))
	for _, a := range cfg.Actors {
		actors = append(actors, Actor{ID: a.ID, Label: a.Label, Cost: a.Cost})
	}
	roster, err := NewRoster(actors)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Roster:           roster,
		Goal:             cfg.Puzzle.GoalMinutes,
		Solution:         cloneSteps(cfg.Solution),
		TravelDelay:      cfg.Timing.TravelDelay,
		StepDelay:        cfg.Timing.StepDelay,
		AdvisoryDuration: cfg.Timing.AdvisoryDuration,
	}, nil
}
