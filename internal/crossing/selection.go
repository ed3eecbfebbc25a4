package crossing

import "fmt"

// ToggleSelection stages or unstages actorID for the next move.
//
// Actors away from the torch cannot be staged, and a side's limit is never
// exceeded. On rejection the selection is unchanged.
func ToggleSelection(st *State, r *Roster, actorID string) error {
	actor, ok := r.Lookup(actorID)
	if !ok {
		return reject(ReasonUnknownActor, actorID, fmt.Sprintf("Nobody called %q is waiting to cross.", actorID))
	}

	if st.Positions[actorID] != st.TorchSide {
		return reject(ReasonWrongSide, actorID,
			fmt.Sprintf("The torch is on the %s side. %s can't move yet.", sideAdjective(st.TorchSide), actor.Label))
	}

	if i := indexOf(st.Selection, actorID); i >= 0 {
		st.Selection = append(st.Selection[:i], st.Selection[i+1:]...)
		return nil
	}

	if len(st.Selection) >= SideLimit(st.TorchSide) {
		return reject(ReasonSelectionLimit, actorID, limitMessage(st.TorchSide))
	}

	st.Selection = append(st.Selection, actorID)
	return nil
}

func limitMessage(side Side) string {
	if side == SideStart {
		return "Pick at most two people to cross."
	}
	return "Only one person can bring the torch back."
}
