package crossing

// Execute moves selection across with the torch and records the move.
//
// The selection is checked again here even though callers stage it through
// ToggleSelection first: an invalid group (bad size, unknown or repeated
// actor, actor away from the torch) returns ErrInvalidSelection and leaves
// st untouched.
func Execute(st *State, r *Roster, selection []string) (Move, error) {
	if !IsValid(selection, st.TorchSide) {
		return Move{}, reject(ReasonInvalidSelection, "", invalidMessage(st.TorchSide))
	}
	seen := make(map[string]bool, len(selection))
	for _, id := range selection {
		if _, ok := r.Lookup(id); !ok || seen[id] || st.Positions[id] != st.TorchSide {
			return Move{}, reject(ReasonInvalidSelection, id, invalidMessage(st.TorchSide))
		}
		seen[id] = true
	}

	from := st.TorchSide
	move := Move{
		IDs:      append([]string(nil), selection...),
		From:     from,
		To:       from.Opposite(),
		Duration: r.Duration(selection),
	}

	for _, id := range move.IDs {
		st.Positions[id] = move.To
	}
	st.TorchSide = move.To
	st.Elapsed += move.Duration
	st.History = append(st.History, move)
	st.Selection = nil

	return move, nil
}

func invalidMessage(side Side) string {
	if side == SideStart {
		return "Pick one or two people on the torch side to cross."
	}
	return "Pick exactly one person to bring the torch back."
}
