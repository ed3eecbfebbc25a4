package crossing

// Move is one completed crossing.
type Move struct {
	IDs      []string `json:"ids"`
	From     Side     `json:"from"`
	To       Side     `json:"to"`
	Duration int      `json:"duration"`
}

// State is the mutable puzzle record. It is only changed through
// ToggleSelection, Execute, Undo and Reset.
type State struct {
	Positions map[string]Side `json:"positions"`
	TorchSide Side            `json:"torch_side"`
	Elapsed   int             `json:"elapsed"`
	Selection []string        `json:"selection"`
	History   []Move          `json:"history"`
}

// NewState returns the initial state for a roster: everyone and the torch on start.
func NewState(r *Roster) *State {
	st := &State{}
	st.Reset(r)
	return st
}

// Reset restores the initial values in place.
func (st *State) Reset(r *Roster) {
	st.Positions = make(map[string]Side, r.Len())
	for _, a := range r.actors {
		st.Positions[a.ID] = SideStart
	}
	st.TorchSide = SideStart
	st.Elapsed = 0
	st.Selection = nil
	st.History = nil
}

// Clone returns a deep copy, suitable for before/after comparisons.
func (st *State) Clone() *State {
	out := &State{
		Positions: make(map[string]Side, len(st.Positions)),
		TorchSide: st.TorchSide,
		Elapsed:   st.Elapsed,
		Selection: append([]string(nil), st.Selection...),
		History:   make([]Move, 0, len(st.History)),
	}
	for id, side := range st.Positions {
		out.Positions[id] = side
	}
	for _, m := range st.History {
		m.IDs = append([]string(nil), m.IDs...)
		out.History = append(out.History, m)
	}
	return out
}

// IsSelected reports whether id is staged for the next move.
func (st *State) IsSelected(id string) bool {
	return indexOf(st.Selection, id) >= 0
}

// LastMove returns the most recent move, if any.
func (st *State) LastMove() (Move, bool) {
	if len(st.History) == 0 {
		return Move{}, false
	}
	return st.History[len(st.History)-1], true
}

// AllOn reports whether every actor is on side.
func (st *State) AllOn(side Side) bool {
	if len(st.Positions) == 0 {
		return false
	}
	for _, s := range st.Positions {
		if s != side {
			return false
		}
	}
	return true
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
