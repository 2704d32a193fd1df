package feed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// DefaultInitialCursor is the first page of a page-number listing
const DefaultInitialCursor = 1

// Config holds the optional settings of a Controller
type Config[T any] struct {
	// InitialCursor is the first page requested, DefaultInitialCursor if zero
	InitialCursor int

	// Key enables de-duplication across pages when set. Items whose key was
	// already accumulated are dropped from later pages.
	Key func(T) string

	// ErrorSink receives every failed page request
	ErrorSink func(error)

	Logger *log.Entry
}

// Snapshot is a read-only view of the feed. Items must not be modified.
type Snapshot[T any] struct {
	Items       []T
	Cursor      int
	IsLoading   bool
	IsExhausted bool
	Err         error
	Version     uint64
}

// Controller retrieves pages of a Source on demand and accumulates them.
// At most one request is in flight at any time; trigger signals arriving
// while a request is in flight are dropped, not queued.
type Controller[T any] struct {
	id     string
	source Source[T]
	cfg    Config[T]
	logger *log.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State[T]
	seen      map[string]struct{}
	inflight  context.CancelFunc
	closed    bool
	observers []func(Snapshot[T])
}

// New creates a feed in its initial state. No page is requested until
// FetchNextPage or OnTriggerSignal is called. The feed is torn down when ctx
// is cancelled or Close is called.
func New[T any](ctx context.Context, source Source[T], cfg Config[T]) *Controller[T] {
	if cfg.InitialCursor == 0 {
		cfg.InitialCursor = DefaultInitialCursor
	}

	id := uuid.New().String()
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Controller[T]{
		id:     id,
		source: source,
		cfg:    cfg,
		logger: logger.WithField("feed", id),
		ctx:    ctx,
		cancel: cancel,
		state:  initialState[T](cfg.InitialCursor, 0),
	}
	if cfg.Key != nil {
		c.seen = make(map[string]struct{})
	}

	context.AfterFunc(ctx, c.Close)

	return c
}

// ID identifies the feed in logs
func (c *Controller[T]) ID() string {
	return c.id
}

// Snapshot returns the current state of the feed
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Items:       c.state.Items,
		Cursor:      c.state.Cursor,
		IsLoading:   c.state.Status == Loading,
		IsExhausted: c.state.Status == Exhausted,
		Err:         c.state.Err,
		Version:     c.state.Version,
	}
}

// OnChange registers fn to be called after every state transition. fn runs on
// the goroutine that caused the transition and must not block for long.
// Notifications may arrive out of order; compare Version to drop stale ones.
func (c *Controller[T]) OnChange(fn func(Snapshot[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// FetchNextPage requests the page at the current cursor and blocks until it
// resolves. It is a no-op returning false when a request is already in flight,
// the feed is exhausted or closed. Failures are recorded in the state and
// reported to the error sink; they are never returned.
func (c *Controller[T]) FetchNextPage(ctx context.Context) bool {
	req, ok := c.begin(ctx)
	if !ok {
		return false
	}
	c.run(req)
	return true
}

// OnTriggerSignal reacts to a trigger such as the view nearing the bottom of
// its content. A true signal on an idle feed starts a request for the current
// cursor in the background and returns immediately.
func (c *Controller[T]) OnTriggerSignal(triggered bool) {
	if !triggered {
		return
	}

	req, ok := c.begin(c.ctx)
	if !ok {
		droppedTriggers.Inc()
		return
	}
	go c.run(req)
}

// Watch subscribes the feed to a stream of trigger signals until ctx is done,
// the feed is closed or signals is closed.
func (c *Controller[T]) Watch(ctx context.Context, signals <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case triggered, ok := <-signals:
			if !ok {
				return
			}
			c.OnTriggerSignal(triggered)
		}
	}
}

// Reset restores the initial state. A request in flight is cancelled and its
// result discarded.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	if c.seen != nil {
		c.seen = make(map[string]struct{})
	}
	c.state = reduce(c.state, resetRequested{cursor: c.cfg.InitialCursor})
	c.logger.Debug("Feed reset")
	c.notifyLocked()
}

// Close tears the feed down. Results of a request in flight are ignored and
// later calls are no-ops.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	c.cancel()
	c.logger.Debug("Feed closed")
}

type request struct {
	ctx        context.Context
	cursor     int
	generation uint64
}

// begin performs the Idle -> Loading transition atomically
func (c *Controller[T]) begin(ctx context.Context) (request, bool) {
	c.mu.Lock()
	if c.closed || c.state.Status != Idle {
		c.mu.Unlock()
		return request{}, false
	}

	reqCtx, cancel := context.WithCancel(ctx)
	c.inflight = cancel
	c.state = reduce(c.state, fetchStarted{})
	req := request{ctx: reqCtx, cursor: c.state.Cursor, generation: c.state.Generation}
	c.notifyLocked()
	return req, true
}

func (c *Controller[T]) run(req request) {
	start := time.Now()
	fetchRequests.Inc()
	inFlight.Inc()

	page, err := c.source.FetchPage(req.ctx, req.cursor)

	inFlight.Dec()
	fetchDuration.Observe(time.Since(start).Seconds())

	c.complete(req, page, err)
}

func (c *Controller[T]) complete(req request, page Page[T], err error) {
	c.mu.Lock()
	if c.closed || req.generation != c.state.Generation {
		c.mu.Unlock()
		c.logger.WithFields(log.Fields{
			"cursor": req.cursor,
		}).Debug("Discarding result of abandoned request")
		return
	}
	c.inflight = nil

	if err != nil {
		c.state = reduce(c.state, fetchFailed{err: err})
		sink := c.cfg.ErrorSink
		c.notifyLocked()

		fetchErrors.Inc()
		c.logger.WithFields(log.Fields{
			"cursor": req.cursor,
			"error":  err,
		}).Warn("Unable to load more items")
		if sink != nil {
			sink(err)
		}
		return
	}

	page.Items = c.dedupeLocked(page.Items)
	c.state = reduce(c.state, pageLoaded[T]{page: page})
	exhausted := c.state.Status == Exhausted
	total := len(c.state.Items)
	c.notifyLocked()

	itemsLoaded.Add(float64(len(page.Items)))
	c.logger.WithFields(log.Fields{
		"cursor":    req.cursor,
		"items":     len(page.Items),
		"total":     total,
		"exhausted": exhausted,
	}).Info("Loaded page")
}

func (c *Controller[T]) dedupeLocked(items []T) []T {
	if c.seen == nil {
		return items
	}
	return lo.Filter(items, func(item T, _ int) bool {
		key := c.cfg.Key(item)
		if _, ok := c.seen[key]; ok {
			return false
		}
		c.seen[key] = struct{}{}
		return true
	})
}

// notifyLocked releases the lock and calls the observers with the state as it
// was at release.
func (c *Controller[T]) notifyLocked() {
	snap := c.snapshotLocked()
	observers := c.observers
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
