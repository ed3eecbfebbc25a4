package crossing

// Reason classifies a rejected operation.
type Reason string

const (
	ReasonInvalidSelection Reason = "invalid_selection"
	ReasonWrongSide        Reason = "wrong_side"
	ReasonSelectionLimit   Reason = "selection_limit"
	ReasonBusy             Reason = "busy"
	ReasonEmptyHistory     Reason = "empty_history"
	ReasonUnknownActor     Reason = "unknown_actor"
	ReasonUnknownCommand   Reason = "unknown_command"
)

// Rejection is returned when an operation is refused. None of them are fatal:
// the state is left untouched.
type Rejection struct {
	Reason  Reason `json:"reason"`
	ActorID string `json:"actor_id,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r *Rejection) Error() string {
	if r.Message != "" {
		return string(r.Reason) + ": " + r.Message
	}
	return string(r.Reason)
}

// Is matches on Reason so callers can use errors.Is with the sentinels below.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok {
		return false
	}
	return t.Reason == r.Reason
}

var (
	ErrInvalidSelection = &Rejection{Reason: ReasonInvalidSelection}
	ErrWrongSide        = &Rejection{Reason: ReasonWrongSide}
	ErrSelectionLimit   = &Rejection{Reason: ReasonSelectionLimit}
	ErrBusy             = &Rejection{Reason: ReasonBusy}
	ErrEmptyHistory     = &Rejection{Reason: ReasonEmptyHistory}
	ErrUnknownActor     = &Rejection{Reason: ReasonUnknownActor}
	ErrUnknownCommand   = &Rejection{Reason: ReasonUnknownCommand}
)

func reject(reason Reason, actorID, msg string) *Rejection {
	return &Rejection{Reason: reason, ActorID: actorID, Message: msg}
}
