// Package tui is the terminal browse view of the sofa catalogue. Scrolling
// near the end of the loaded cards asks the feed for the next page.
package tui

import (
	"context"
	"fmt"
	"strings"

	"couchmatch/feed"
	"couchmatch/models"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Feed is the part of the feed controller the view reads and drives
type Feed interface {
	Snapshot() feed.Snapshot[models.Sofa]
	OnTriggerSignal(triggered bool)
}

// changedMsg tells the model the feed has a new snapshot
type changedMsg struct{}

// Header and footer rows around the cards
const chromeHeight = 3

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e6edf3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

// Model is the bubbletea model of the browse view
type Model struct {
	feed    Feed
	signal  *feed.ScrollSignal
	changes <-chan struct{}
	snap    feed.Snapshot[models.Sofa]
	offset  int
	width   int
	height  int
	spinner spinner.Model
}

// NewModel creates the view. Scroll positions are published on signal and
// every value received on changes makes the view re-read the feed.
func NewModel(f Feed, signal *feed.ScrollSignal, changes <-chan struct{}) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff"))

	return Model{
		feed:    f,
		signal:  signal,
		changes: changes,
		snap:    f.Snapshot(),
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	// An empty view is at its bottom, so this requests the first page
	m.publishScroll()
	return tea.Batch(m.spinner.Tick, waitForChange(m.changes))
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		m.publishScroll()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "down", "j":
			m.scroll(1)
		case "up", "k":
			m.scroll(-1)
		case "pgdown", "ctrl+f", " ":
			m.scroll(m.visibleCards())
		case "pgup", "ctrl+b":
			m.scroll(-m.visibleCards())
		case "g", "home":
			m.offset = 0
		case "G", "end":
			m.offset = m.maxOffset()
		case "r":
			// Retrying is always the user's decision
			if m.snap.Err != nil {
				m.feed.OnTriggerSignal(true)
			}
			return m, nil
		default:
			return m, nil
		}
		m.publishScroll()
		return m, nil

	case changedMsg:
		m.snap = m.feed.Snapshot()
		m.clampOffset()
		// Keep filling the view after a successful page, but never retry a
		// failure on our own
		if m.snap.Err == nil {
			m.publishScroll()
		}
		return m, waitForChange(m.changes)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) scroll(delta int) {
	m.offset += delta
	m.clampOffset()
}

func (m *Model) clampOffset() {
	m.offset = max(0, min(m.offset, m.maxOffset()))
}

func (m Model) maxOffset() int {
	return max(0, len(m.snap.Items)-m.visibleCards())
}

func (m Model) visibleCards() int {
	if m.height <= 0 {
		return 1
	}
	return max(1, (m.height-chromeHeight)/CardHeight)
}

// publishScroll reports the scroll position in cards
func (m Model) publishScroll() {
	if m.signal == nil {
		return
	}
	m.signal.Update(m.offset, m.visibleCards(), len(m.snap.Items))
}

func (m Model) View() string {
	var b strings.Builder

	header := fmt.Sprintf("Couchmatch  %d sofas", len(m.snap.Items))
	if len(m.snap.Items) > 0 {
		last := min(m.offset+m.visibleCards(), len(m.snap.Items))
		header += fmt.Sprintf("  (%d-%d)", m.offset+1, last)
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	end := min(m.offset+m.visibleCards(), len(m.snap.Items))
	for _, sofa := range m.snap.Items[m.offset:end] {
		b.WriteString(Card(sofa, m.width))
		b.WriteString("\n")
	}

	b.WriteString(m.footer())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k scroll  pgup/pgdn page  g/G top/bottom  r retry  q quit"))

	return b.String()
}

func (m Model) footer() string {
	switch {
	case m.snap.IsLoading:
		return m.spinner.View() + " Loading more sofas..."
	case m.snap.Err != nil:
		return errorStyle.Render("Unable to load more items: " + m.snap.Err.Error() + " (press r to retry)")
	case m.snap.IsExhausted && len(m.snap.Items) == 0:
		return mutedStyle.Render("The catalogue is empty")
	case m.snap.IsExhausted:
		return mutedStyle.Render("No more items to load")
	default:
		return ""
	}
}

// Run shows the browse view for the controller until the user quits or ctx
// is done
func Run(ctx context.Context, controller *feed.Controller[models.Sofa], distance int, opts ...tea.ProgramOption) error {
	signal := feed.NewScrollSignal(distance, 4)

	changes := make(chan struct{}, 16)
	controller.OnChange(func(feed.Snapshot[models.Sofa]) {
		// The model re-reads the snapshot, so a full buffer loses nothing
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go controller.Watch(ctx, signal.C)

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(controller, signal, changes), opts...)
	_, err := p.Run()
	return err
}
