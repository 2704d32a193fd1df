package tui_test

import (
	"errors"
	"fmt"
	"testing"

	"couchmatch/feed"
	"couchmatch/models"
	"couchmatch/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	snap     feed.Snapshot[models.Sofa]
	triggers []bool
}

func (f *fakeFeed) Snapshot() feed.Snapshot[models.Sofa] {
	return f.snap
}

func (f *fakeFeed) OnTriggerSignal(triggered bool) {
	f.triggers = append(f.triggers, triggered)
}

func sofas(n int) []models.Sofa {
	out := make([]models.Sofa, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Sofa{Id: int64(i), Name: fmt.Sprintf("Sofa %d", i), Price: 100})
	}
	return out
}

func drain(signal *feed.ScrollSignal) []bool {
	var out []bool
	for {
		select {
		case v := <-signal.C:
			out = append(out, v)
		default:
			return out
		}
	}
}

func update(t *testing.T, m tea.Model, msgs ...tea.Msg) tea.Model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// newModel returns a model showing two cards at a time
func newModel(t *testing.T, f *fakeFeed) (tea.Model, *feed.ScrollSignal, chan struct{}) {
	t.Helper()
	signal := feed.NewScrollSignal(3, 32)
	changes := make(chan struct{}, 1)
	m := tea.Model(tui.NewModel(f, signal, changes))
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 3 + 2*tui.CardHeight})
	return m, signal, changes
}

func TestInitRequestsFirstPage(t *testing.T) {
	f := &fakeFeed{snap: feed.Snapshot[models.Sofa]{Cursor: 1}}
	m, signal, _ := newModel(t, f)
	drain(signal)

	require.NotNil(t, m.Init())
	assert.Equal(t, []bool{true}, drain(signal))
}

func TestScrollingNearBottomTriggers(t *testing.T) {
	f := &fakeFeed{snap: feed.Snapshot[models.Sofa]{Items: sofas(10), Cursor: 2}}
	m, signal, _ := newModel(t, f)
	drain(signal)

	m = update(t, m, key("j"), key("j"), key("j"), key("j"))
	assert.Equal(t, []bool{false, false, false, false}, drain(signal))

	// Offset 5 shows cards 6 and 7, three away from the end
	m = update(t, m, key("j"))
	assert.Equal(t, []bool{true}, drain(signal))

	m = update(t, m, key("g"))
	assert.Equal(t, []bool{false}, drain(signal))

	update(t, m, key("G"))
	assert.Equal(t, []bool{true}, drain(signal))
}

func TestLoadedPageRefillsView(t *testing.T) {
	f := &fakeFeed{snap: feed.Snapshot[models.Sofa]{Items: sofas(1), Cursor: 2}}
	m, signal, _ := newModel(t, f)
	drain(signal)

	m = update(t, m, tui.ChangedMsg())
	assert.Equal(t, []bool{true}, drain(signal))
	assert.Contains(t, m.View(), "Sofa 1")
}

func TestFailureIsNotRetriedAutomatically(t *testing.T) {
	f := &fakeFeed{snap: feed.Snapshot[models.Sofa]{Cursor: 1, Err: errors.New("connection refused")}}
	m, signal, _ := newModel(t, f)
	drain(signal)

	m = update(t, m, tui.ChangedMsg())
	assert.Empty(t, drain(signal))
	assert.Empty(t, f.triggers)
	assert.Contains(t, m.View(), "Unable to load more items")

	update(t, m, key("r"))
	assert.Equal(t, []bool{true}, f.triggers)
}

func TestRetryWithoutFailureIsIgnored(t *testing.T) {
	f := &fakeFeed{snap: feed.Snapshot[models.Sofa]{Items: sofas(3), Cursor: 2}}
	m, _, _ := newModel(t, f)

	update(t, m, key("r"))
	assert.Empty(t, f.triggers)
}

func TestFooter(t *testing.T) {
	tests := []struct {
		name     string
		snap     feed.Snapshot[models.Sofa]
		expected string
	}{
		{name: "loading", snap: feed.Snapshot[models.Sofa]{Items: sofas(2), IsLoading: true}, expected: "Loading more sofas..."},
		{name: "exhausted", snap: feed.Snapshot[models.Sofa]{Items: sofas(2), IsExhausted: true}, expected: "No more items to load"},
		{name: "empty catalogue", snap: feed.Snapshot[models.Sofa]{IsExhausted: true}, expected: "The catalogue is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newModel(t, &fakeFeed{snap: tt.snap})
			assert.Contains(t, m.View(), tt.expected)
		})
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newModel(t, &fakeFeed{})
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
