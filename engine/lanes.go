package engine

// Lanes is the bitset over the fixed set of priority/modifier lanes.
// Bit order (lowest to highest): Default,
// UserBlocking, UserVisible, Background, Sync, ViewTransition.
type Lanes uint8

const (
	LaneDefault Lanes = 1 << iota
	LaneUserBlocking
	LaneUserVisible
	LaneBackground
	LaneSync
	LaneViewTransition
)

// NoLanes is the empty lane set.
const NoLanes Lanes = 0

// Merge OR-merges other into l.
func (l Lanes) Merge(other Lanes) Lanes { return l | other }

// Has reports whether l includes every bit set in subset.
func (l Lanes) Has(subset Lanes) bool { return l&subset == subset }

// Intersects reports whether l and other share any bit.
func (l Lanes) Intersects(other Lanes) bool { return l&other != 0 }

// Clear returns l with every bit in remove cleared.
func (l Lanes) Clear(remove Lanes) Lanes { return l &^ remove }

// IsEmpty reports whether no lane bit is set.
func (l Lanes) IsEmpty() bool { return l == NoLanes }

// LaneForPriority maps an explicit TaskPriority to its single lane bit.
func LaneForPriority(p TaskPriority) Lanes {
	switch p {
	case PriorityUserBlocking:
		return LaneUserBlocking
	case PriorityUserVisible:
		return LaneUserVisible
	case PriorityBackground:
		return LaneBackground
	default:
		return LaneDefault
	}
}

// PriorityForLanes returns the priority of the lowest-urgency bit present
// in lanes: a batch deferred to Background is never silently promoted by
// the presence of a higher-priority lane also pending on the same
// coroutine.
func PriorityForLanes(lanes Lanes) TaskPriority {
	switch {
	case lanes.Intersects(LaneBackground):
		return PriorityBackground
	case lanes.Intersects(LaneUserVisible):
		return PriorityUserVisible
	case lanes.Intersects(LaneUserBlocking):
		return PriorityUserBlocking
	default:
		return PriorityUserBlocking
	}
}
