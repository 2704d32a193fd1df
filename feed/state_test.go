package feed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduce(t *testing.T) {
	two := 2
	boom := errors.New("boom")

	tests := []struct {
		name     string
		state    State[string]
		event    event
		expected State[string]
	}{
		{
			name:     "fetch started on idle feed",
			state:    State[string]{Cursor: 1},
			event:    fetchStarted{},
			expected: State[string]{Cursor: 1, Status: Loading, Version: 1},
		},
		{
			name:     "fetch started while loading is ignored",
			state:    State[string]{Cursor: 1, Status: Loading, Version: 4},
			event:    fetchStarted{},
			expected: State[string]{Cursor: 1, Status: Loading, Version: 4},
		},
		{
			name:     "fetch started on exhausted feed is ignored",
			state:    State[string]{Cursor: 3, Status: Exhausted, Version: 2},
			event:    fetchStarted{},
			expected: State[string]{Cursor: 3, Status: Exhausted, Version: 2},
		},
		{
			name:     "page with next cursor",
			state:    State[string]{Items: []string{"A"}, Cursor: 1, Status: Loading, Err: boom},
			event:    pageLoaded[string]{page: Page[string]{Items: []string{"B"}, Next: &two}},
			expected: State[string]{Items: []string{"A", "B"}, Cursor: 2, Status: Idle, Version: 1},
		},
		{
			name:     "final page",
			state:    State[string]{Cursor: 2, Status: Loading},
			event:    pageLoaded[string]{page: Page[string]{Items: []string{"D"}}},
			expected: State[string]{Items: []string{"D"}, Cursor: 2, Status: Exhausted, Version: 1},
		},
		{
			name:     "page without a request is ignored",
			state:    State[string]{Cursor: 1},
			event:    pageLoaded[string]{page: Page[string]{Items: []string{"X"}}},
			expected: State[string]{Cursor: 1},
		},
		{
			name:     "failure keeps items and cursor",
			state:    State[string]{Items: []string{"A"}, Cursor: 2, Status: Loading},
			event:    fetchFailed{err: boom},
			expected: State[string]{Items: []string{"A"}, Cursor: 2, Status: Idle, Err: boom, Version: 1},
		},
		{
			name:     "reset",
			state:    State[string]{Items: []string{"A"}, Cursor: 5, Status: Exhausted, Version: 7, Generation: 1},
			event:    resetRequested{cursor: 1},
			expected: State[string]{Cursor: 1, Status: Idle, Version: 8, Generation: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, reduce(tt.state, tt.event))
		})
	}
}

func TestReduceDoesNotShareBackingArray(t *testing.T) {
	items := make([]string, 1, 10)
	items[0] = "A"
	s := State[string]{Items: items, Status: Loading}

	next := reduce(s, pageLoaded[string]{page: Page[string]{Items: []string{"B"}, Next: new(int)}})
	next.Items[0] = "changed"

	assert.Equal(t, "A", items[0])
}

func TestNearBottom(t *testing.T) {
	tests := []struct {
		name     string
		offset   int
		viewport int
		total    int
		distance int
		expected bool
	}{
		{name: "top of long content", offset: 0, viewport: 10, total: 100, distance: 3, expected: false},
		{name: "just outside the distance", offset: 86, viewport: 10, total: 100, distance: 3, expected: false},
		{name: "at the distance", offset: 87, viewport: 10, total: 100, distance: 3, expected: true},
		{name: "at the bottom", offset: 90, viewport: 10, total: 100, distance: 0, expected: true},
		{name: "content shorter than viewport", offset: 0, viewport: 40, total: 12, distance: 3, expected: true},
		{name: "negative distance treated as zero", offset: 89, viewport: 10, total: 100, distance: -5, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NearBottom(tt.offset, tt.viewport, tt.total, tt.distance))
		})
	}
}
