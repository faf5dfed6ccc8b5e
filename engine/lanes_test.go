package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaneForPriority(t *testing.T) {
	cases := []struct {
		priority TaskPriority
		lane     Lanes
	}{
		{PriorityUserBlocking, LaneUserBlocking},
		{PriorityUserVisible, LaneUserVisible},
		{PriorityBackground, LaneBackground},
		{"", LaneDefault},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.lane, LaneForPriority(tc.priority), "priority %q", tc.priority)
	}
}

func TestPriorityForLanesLowestDominates(t *testing.T) {
	cases := []struct {
		name  string
		lanes Lanes
		want  TaskPriority
	}{
		{"background alone", LaneBackground, PriorityBackground},
		{"background dominates user-visible", LaneBackground | LaneUserVisible, PriorityBackground},
		{"background dominates user-blocking", LaneBackground | LaneUserBlocking, PriorityBackground},
		{"user-visible dominates user-blocking", LaneUserVisible | LaneUserBlocking, PriorityUserVisible},
		{"user-blocking alone", LaneUserBlocking, PriorityUserBlocking},
		{"empty defaults to user-blocking", NoLanes, PriorityUserBlocking},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PriorityForLanes(tc.lanes))
		})
	}
}

func TestLaneSetOperations(t *testing.T) {
	l := NoLanes.Merge(LaneUserBlocking).Merge(LaneSync)
	assert.True(t, l.Has(LaneUserBlocking))
	assert.True(t, l.Has(LaneUserBlocking|LaneSync))
	assert.False(t, l.Has(LaneBackground))
	assert.True(t, l.Intersects(LaneSync|LaneBackground))
	assert.False(t, l.Intersects(LaneBackground))

	l = l.Clear(LaneSync)
	assert.False(t, l.Intersects(LaneSync))
	assert.False(t, l.IsEmpty())
	assert.True(t, l.Clear(LaneUserBlocking).IsEmpty())
}

func TestLanesForOptionsModifiers(t *testing.T) {
	backend := newFakeBackend()

	lanes := lanesForOptions(UpdateOptions{Priority: PriorityBackground, Sync: true, ViewTransition: true}, backend)
	assert.True(t, lanes.Has(LaneBackground|LaneSync|LaneViewTransition))

	// No explicit priority: the backend's ambient inference decides.
	backend.ambient = PriorityUserVisible
	lanes = lanesForOptions(UpdateOptions{}, backend)
	assert.Equal(t, LaneUserVisible, lanes)
}
