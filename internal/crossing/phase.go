package crossing

// Phase is the session's control state.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseTransitioning Phase = "transitioning"
	PhaseAutoPlaying   Phase = "autoplaying"
	PhaseCompleted     Phase = "completed"
)

// Op is an externally triggered operation.
type Op string

const (
	OpSelect Op = "select"
	OpCross  Op = "cross"
	OpUndo   Op = "undo"
	OpReset  Op = "reset"
	OpPlay   Op = "play"
)

// allowedOps is the single gate for external input. Completed is not terminal.
// A reset during autoplay cancels the replay between steps.
var allowedOps = map[Phase][]Op{
	PhaseIdle:          {OpSelect, OpCross, OpUndo, OpReset, OpPlay},
	PhaseCompleted:     {OpSelect, OpCross, OpUndo, OpReset, OpPlay},
	PhaseTransitioning: {},
	PhaseAutoPlaying:   {OpReset},
}

// Allows reports whether op may start while in phase.
func Allows(phase Phase, op Op) bool {
	for _, allowed := range allowedOps[phase] {
		if allowed == op {
			return true
		}
	}
	return false
}

// Busy reports whether manual input is locked out.
func (p Phase) Busy() bool {
	return p == PhaseTransitioning || p == PhaseAutoPlaying
}
