package crossing

// SideLimit is the largest group allowed to leave side with the torch.
// Two may cross forward, only one may bring the torch back.
func SideLimit(side Side) int {
	if side == SideStart {
		return 2
	}
	return 1
}

// IsValid reports whether a selection of this size may cross from torch.
// Membership on the torch side is enforced at staging time, not here.
func IsValid(selection []string, torch Side) bool {
	n := len(selection)
	return n >= 1 && n <= SideLimit(torch)
}
