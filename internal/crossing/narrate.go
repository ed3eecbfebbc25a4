package crossing

import (
	"fmt"
	"strings"
)

const (
	statusIdle         = "Pick one or two people on the torch side to cross."
	statusUndone       = "Move undone. Try another combination."
	statusReplaying    = "Automatic replay in progress..."
	statusReplayHalted = "Replay stopped."
)

// DescribeMove narrates a move, e.g. "Ava & Ben crossed the bridge (+2 min)."
func DescribeMove(m Move, r *Roster) string {
	names := make([]string, 0, len(m.IDs))
	for _, id := range m.IDs {
		names = append(names, r.Label(id))
	}

	var verb string
	if m.From == SideStart {
		verb = "crossed the bridge"
	} else {
		verb = "brought the torch back"
	}
	return fmt.Sprintf("%s %s (+%d min).", strings.Join(names, " & "), verb, m.Duration)
}

// DescribeSelection lists staged labels, or "nobody".
func DescribeSelection(ids []string, r *Roster) string {
	if len(ids) == 0 {
		return "nobody"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, r.Label(id))
	}
	return strings.Join(names, " and ")
}

// DescribeSide is the HUD label for where the torch is.
func DescribeSide(s Side) string {
	if s == SideStart {
		return "start (camp)"
	}
	return "destination (safe)"
}

// DescribeHistory renders one line per move with the running total.
func DescribeHistory(history []Move, r *Roster) []string {
	lines := make([]string, 0, len(history))
	total := 0
	for _, m := range history {
		total += m.Duration
		lines = append(lines, fmt.Sprintf("%s Running total: %d min", DescribeMove(m, r), total))
	}
	return lines
}

func sideAdjective(s Side) string {
	if s == SideStart {
		return "start"
	}
	return "destination"
}
