package economy

// State is the persisted progression of one player.
type State struct {
	Balance int64
	// Owned keeps purchase order for persistence and rehydration; membership
	// is what matters for the rules.
	Owned []string
	// GlobalMultiplier is reserved for prestige mechanics; it is 1 today.
	GlobalMultiplier int64
}

func DefaultState() State {
	return State{GlobalMultiplier: 1}
}

func (s State) Owns(id string) bool {
	for _, o := range s.Owned {
		if o == id {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	out := s
	out.Owned = append([]string(nil), s.Owned...)
	return out
}

func (s State) multiplier() int64 {
	if s.GlobalMultiplier <= 0 {
		return 1
	}
	return s.GlobalMultiplier
}
