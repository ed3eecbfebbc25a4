package crossing

// Undo reverts the most recent move. It returns false when there is nothing
// to revert.
func Undo(st *State) (Move, bool) {
	last, ok := st.LastMove()
	if !ok {
		return Move{}, false
	}
	st.History = st.History[:len(st.History)-1]

	for _, id := range last.IDs {
		st.Positions[id] = last.From
	}
	st.TorchSide = last.From
	st.Elapsed -= last.Duration
	if st.Elapsed < 0 {
		st.Elapsed = 0
	}
	st.Selection = nil

	return last, true
}
