// Package feed provides an incremental, paginated feed that accumulates pages
// from a remote listing on demand and guards against overlapping requests.
package feed

import "context"

// Page is one page of a listing. A nil Next marks the final page.
type Page[T any] struct {
	Items []T
	Next  *int
}

// Source retrieves one page of a listing by cursor
type Source[T any] interface {
	FetchPage(ctx context.Context, cursor int) (Page[T], error)
}

// SourceFunc adapts a function to a Source
type SourceFunc[T any] func(ctx context.Context, cursor int) (Page[T], error)

func (f SourceFunc[T]) FetchPage(ctx context.Context, cursor int) (Page[T], error) {
	return f(ctx, cursor)
}

// Status is the state of the feed state machine
type Status int

const (
	Idle Status = iota
	Loading
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// State is the complete feed state. It is only ever replaced through reduce.
type State[T any] struct {
	Items  []T
	Cursor int
	Status Status
	Err    error

	// Version increases with every transition
	Version uint64

	// Generation changes on every reset so late completions can be told apart
	Generation uint64
}

func initialState[T any](cursor int, generation uint64) State[T] {
	return State[T]{Cursor: cursor, Status: Idle, Generation: generation}
}

type event interface {
	isEvent()
}

type fetchStarted struct{}

type pageLoaded[T any] struct {
	page Page[T]
}

type fetchFailed struct {
	err error
}

type resetRequested struct {
	cursor int
}

func (fetchStarted) isEvent() {}
func (pageLoaded[T]) isEvent() {}
func (fetchFailed) isEvent() {}
func (resetRequested) isEvent() {}

// reduce computes the next state. It never mutates the accumulated slice of s,
// so snapshots handed out earlier stay valid.
func reduce[T any](s State[T], ev event) State[T] {
	next, changed := transition(s, ev)
	if changed {
		next.Version = s.Version + 1
	}
	return next
}

func transition[T any](s State[T], ev event) (State[T], bool) {
	switch ev := ev.(type) {
	case fetchStarted:
		if s.Status != Idle {
			return s, false
		}
		s.Status = Loading
		return s, true

	case pageLoaded[T]:
		if s.Status != Loading {
			return s, false
		}
		items := make([]T, len(s.Items), len(s.Items)+len(ev.page.Items))
		copy(items, s.Items)
		s.Items = append(items, ev.page.Items...)
		s.Err = nil
		if ev.page.Next == nil {
			s.Status = Exhausted
			return s, true
		}
		s.Cursor = *ev.page.Next
		s.Status = Idle
		return s, true

	case fetchFailed:
		if s.Status != Loading {
			return s, false
		}
		s.Err = ev.err
		s.Status = Idle
		return s, true

	case resetRequested:
		return initialState[T](ev.cursor, s.Generation+1), true
	}
	return s, false
}
