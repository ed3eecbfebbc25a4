package crossing

import "fmt"

// Outcome is the result of a finished run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeOverGoal Outcome = "over_goal"
)

// Verdict judges a run where everyone reached the destination.
type Verdict struct {
	Outcome Outcome `json:"outcome"`
	Elapsed int     `json:"elapsed"`
	Goal    int     `json:"goal"`
}

// Evaluate returns nil until every actor is on the destination side.
func Evaluate(st *State, goal int) *Verdict {
	if !st.AllOn(SideDestination) {
		return nil
	}
	v := &Verdict{Outcome: OutcomeSuccess, Elapsed: st.Elapsed, Goal: goal}
	if st.Elapsed > goal {
		v.Outcome = OutcomeOverGoal
	}
	return v
}

// Success reports whether the run met the goal.
func (v Verdict) Success() bool {
	return v.Outcome == OutcomeSuccess
}

// Message is the text shown when the run completes.
func (v Verdict) Message() string {
	if v.Success() {
		return fmt.Sprintf("Success! You matched the ideal time of %d minutes.", v.Goal)
	}
	return fmt.Sprintf("Everyone crossed in %d minutes. Can you make it in %d?", v.Elapsed, v.Goal)
}

// Progress is elapsed/goal capped at 1.
func Progress(elapsed, goal int) float64 {
	if goal <= 0 {
		return 1
	}
	ratio := float64(elapsed) / float64(goal)
	if ratio > 1 {
		return 1
	}
	return ratio
}
