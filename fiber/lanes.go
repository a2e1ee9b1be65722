package fiber

import "strings"

// Lane is a single priority class. Lower bits are more urgent.
type Lane uint32

// Lanes is a set of priority classes.
type Lanes uint32

const (
	SyncLane Lane = 1 << iota
	InputContinuousLane
	DefaultLane
	IdleLane

	NoLane  Lane  = 0
	NoLanes Lanes = 0
)

func (l Lane) String() string {
	switch l {
	case NoLane:
		return "none"
	case SyncLane:
		return "sync"
	case InputContinuousLane:
		return "input-continuous"
	case DefaultLane:
		return "default"
	case IdleLane:
		return "idle"
	default:
		return "unknown"
	}
}

func (ls Lanes) String() string {
	if ls == NoLanes {
		return "none"
	}
	var names []string
	for ls != NoLanes {
		l := ls.Highest()
		names = append(names, l.String())
		ls = ls.Remove(l)
	}
	return strings.Join(names, "|")
}

func (ls Lanes) Merge(l Lane) Lanes {
	return ls | Lanes(l)
}

func (ls Lanes) Remove(l Lane) Lanes {
	return ls &^ Lanes(l)
}

func (ls Lanes) Has(l Lane) bool {
	return l != NoLane && ls&Lanes(l) == Lanes(l)
}

// Highest returns the most urgent lane in the set, NoLane for an empty set.
func (ls Lanes) Highest() Lane {
	return Lane(ls & -ls)
}
