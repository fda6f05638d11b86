package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/core/ports"
	"github.com/samirrijal/landmarkmap/internal/pkg/metrics"
)

// Options configure one widget instance.
type Options struct {
	Session        string
	DefaultCenter  domain.GeoPoint
	DefaultZoom    int
	SearchZoom     int
	LocateZoom     int
	DebounceWindow time.Duration
	// DefaultRadius sizes the region queried before the map reports its extent.
	DefaultRadius float64
	// FetchOnLocateFailure fetches the default region when positioning fails.
	FetchOnLocateFailure bool
	LocateOnStart        bool
	Logger               *slog.Logger
}

// DefaultOptions mirrors the stock map configuration.
func DefaultOptions() Options {
	return Options{
		DefaultCenter:        domain.GeoPoint{Lat: 0, Lon: 0},
		DefaultZoom:          2,
		SearchZoom:           13,
		LocateZoom:           10,
		DebounceWindow:       300 * time.Millisecond,
		DefaultRadius:        5000e3,
		FetchOnLocateFailure: true,
	}
}

// CoordinatorDeps are the collaborators of a widget instance. Publisher is optional.
type CoordinatorDeps struct {
	Source    ports.LandmarkSource
	Geocoder  ports.Geocoder
	Positions ports.PositionProvider
	Widget    ports.MapWidget
	Status    ports.StatusSurface
	Publisher ports.EventPublisher
}

// SyncState is a consistent copy of a coordinator's state.
type SyncState struct {
	LastIssued      uint64               `json:"last_issued"`
	HighestResolved uint64               `json:"highest_resolved"`
	InFlight        int                  `json:"in_flight"`
	Loading         bool                 `json:"loading"`
	Markers         []MarkerEntry        `json:"markers"`
	Enabled         []domain.Category    `json:"enabled"`
	UserMarker      *domain.MarkerVisual `json:"user_marker,omitempty"`
	Bounds          domain.Bounds        `json:"bounds"`
}

type fetchResult struct {
	seq       uint64
	outcome   domain.FetchOutcome
	landmarks []domain.Landmark
	err       error
}

// Coordinator keeps one map widget's markers in sync with the landmark catalog.
// All state is owned by the goroutine running Run; everything else posts
// closures to it.
type Coordinator struct {
	opts      Options
	logger    *slog.Logger
	source    ports.LandmarkSource
	geocoder  ports.Geocoder
	positions ports.PositionProvider
	widget    ports.MapWidget
	status    ports.StatusSurface
	publisher ports.EventPublisher

	viewport *Viewport
	store    *MarkerStore
	filter   *CategoryFilter
	seq      *Sequencer
	debounce *Debouncer[domain.Bounds]

	// loop-owned
	runCtx  context.Context
	loading bool
	here    *domain.MarkerVisual

	ops       chan func()
	quit      chan struct{}
	closeOnce sync.Once
}

// NewCoordinator wires a widget instance. Call Run to start processing.
func NewCoordinator(opts Options, deps CoordinatorDeps) *Coordinator {
	if opts.Session == "" {
		opts.Session = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		opts:      opts,
		logger:    logger.With("session", opts.Session),
		source:    deps.Source,
		geocoder:  deps.Geocoder,
		positions: deps.Positions,
		widget:    deps.Widget,
		status:    deps.Status,
		publisher: deps.Publisher,
		viewport:  NewViewport(opts.DefaultCenter, opts.DefaultZoom, opts.DefaultRadius),
		seq:       NewSequencer(),
		runCtx:    context.Background(),
		ops:       make(chan func(), 64),
		quit:      make(chan struct{}),
	}
	c.store = NewMarkerStore(deps.Widget)
	c.filter = NewCategoryFilter(c.store)
	c.debounce = NewDebouncer(opts.DebounceWindow, func(b domain.Bounds) {
		c.post(func() {
			c.status.ClearError()
			c.issue(domain.BoundsQuery(b), nil)
		})
	})
	c.viewport.OnViewportSettled(func(b domain.Bounds) {
		if c.debounce.Trigger(b) {
			metrics.DebounceCoalesced.Inc()
		}
	})
	return c
}

// Session returns the widget instance id.
func (c *Coordinator) Session() string { return c.opts.Session }

// Viewport exposes the viewport model.
func (c *Coordinator) Viewport() *Viewport { return c.viewport }

// Run processes events until ctx is cancelled or Close is called. Widget
// commands produced by one event are flushed together.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.runCtx = ctx

	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.quit:
			return nil
		case op := <-c.ops:
			op()
			if err := c.widget.Flush(); err != nil {
				c.logger.Warn("widget flush failed", "error", err)
			}
		}
	}
}

// Close stops the run loop. Pending operations are dropped.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

func (c *Coordinator) shutdown() {
	c.Close()
	c.debounce.Cancel()
	c.seq.CancelAll()
}

// post queues fn for the run loop. It returns false once the loop has stopped.
func (c *Coordinator) post(fn func()) bool {
	select {
	case <-c.quit:
		return false
	default:
	}
	select {
	case c.ops <- fn:
		return true
	case <-c.quit:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (c *Coordinator) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !c.post(func() { fn(); close(done) }) {
		return domain.ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return domain.ErrClosed
	}
}

// MoveEnd is the rendering layer's "move/zoom ended" signal.
func (c *Coordinator) MoveEnd(b domain.Bounds, zoom int) {
	c.viewport.Settle(b, zoom)
}

// Start shows the default region and performs the first fetch, through
// Locate when configured to.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.post(func() {
		c.viewport.Recenter(c.opts.DefaultCenter, c.opts.DefaultZoom)
		c.widget.SetView(c.opts.DefaultCenter, c.opts.DefaultZoom)
	}) {
		return domain.ErrClosed
	}
	if c.opts.LocateOnStart {
		return c.Locate(ctx)
	}
	return c.fetchAndWait(ctx, func() domain.ViewportQuery {
		return domain.BoundsQuery(c.viewport.CurrentBounds())
	}, nil)
}

// SetCategory enables or disables a category filter.
func (c *Coordinator) SetCategory(cat domain.Category, enabled bool) error {
	if !c.post(func() { c.filter.Set(cat, enabled) }) {
		return domain.ErrClosed
	}
	return nil
}

// ToggleCategory flips a category filter.
func (c *Coordinator) ToggleCategory(cat domain.Category) error {
	if !c.post(func() { c.filter.Toggle(cat) }) {
		return domain.ErrClosed
	}
	return nil
}

// Snapshot returns the current synchronization state.
func (c *Coordinator) Snapshot(ctx context.Context) (SyncState, error) {
	var st SyncState
	err := c.call(ctx, func() {
		st = SyncState{
			LastIssued:      c.seq.LastIssued(),
			HighestResolved: c.seq.HighestResolved(),
			InFlight:        c.seq.InFlight(),
			Loading:         c.loading,
			Markers:         c.store.Entries(),
			Enabled:         c.filter.Enabled().Sorted(),
			Bounds:          c.viewport.CurrentBounds(),
		}
		if c.here != nil {
			here := *c.here
			st.UserMarker = &here
		}
	})
	return st, err
}

// issue dispatches a fetch for q. Must run on the loop.
func (c *Coordinator) issue(q domain.ViewportQuery, onDone func(fetchResult)) uint64 {
	seq, ctx := c.seq.Issue(c.runCtx)
	req := domain.FetchRequest{Sequence: seq, Query: q}

	c.loading = true
	c.status.SetLoading(true)
	metrics.FetchesIssued.WithLabelValues(string(q.Kind)).Inc()
	c.logger.Debug("fetch issued", "sequence", seq, "query", q.String())

	start := time.Now()
	go func() {
		landmarks, err := c.source.Fetch(ctx, req)
		elapsed := time.Since(start)
		metrics.FetchDuration.Observe(elapsed.Seconds())
		c.post(func() { c.resolve(req, landmarks, err, elapsed, onDone) })
	}()
	return seq
}

// resolve applies a completed fetch. Must run on the loop.
func (c *Coordinator) resolve(req domain.FetchRequest, landmarks []domain.Landmark, err error, elapsed time.Duration, onDone func(fetchResult)) {
	latest := c.seq.Latest(req.Sequence)
	accepted := c.seq.Resolve(req.Sequence)
	if latest {
		c.loading = false
		c.status.SetLoading(false)
	}

	res := fetchResult{seq: req.Sequence}
	switch {
	case !accepted:
		res.outcome = domain.OutcomeStale
		metrics.FetchesStale.Inc()
		c.logger.Debug("stale fetch discarded", "sequence", req.Sequence, "highest_resolved", c.seq.HighestResolved())
	case err != nil:
		res.outcome = domain.OutcomeFailed
		res.err = err
		metrics.FetchFailures.WithLabelValues(string(req.Query.Kind)).Inc()
		c.logger.Warn("fetch failed", "sequence", req.Sequence, "query", req.Query.String(), "error", err)
		c.status.ShowError(domain.UserMessage(err))
	default:
		res.outcome = domain.OutcomeAccepted
		res.landmarks = landmarks
		c.store.ReplaceAll(landmarks)
		c.logger.Debug("fetch applied", "sequence", req.Sequence, "landmarks", len(landmarks), "visible", c.store.VisibleCount())
	}

	if res.outcome != domain.OutcomeStale {
		c.publishFetch(req, res, elapsed)
	}
	if onDone != nil {
		onDone(res)
	}
}

// fetchAndWait runs prepare on the loop, issues the query it returns and
// blocks until that fetch resolves. after runs on the loop with the result.
// A stale outcome is not an error.
func (c *Coordinator) fetchAndWait(ctx context.Context, prepare func() domain.ViewportQuery, after func(fetchResult)) error {
	done := make(chan fetchResult, 1)
	if !c.post(func() {
		c.issue(prepare(), func(r fetchResult) {
			if after != nil {
				after(r)
			}
			done <- r
		})
	}) {
		return domain.ErrClosed
	}

	select {
	case r := <-done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return domain.ErrClosed
	}
}

func (c *Coordinator) publishFetch(req domain.FetchRequest, res fetchResult, elapsed time.Duration) {
	if c.publisher == nil {
		return
	}
	ev := &domain.FetchEvent{
		Session:   c.opts.Session,
		Sequence:  req.Sequence,
		Query:     req.Query,
		Outcome:   res.outcome,
		Landmarks: len(res.landmarks),
		Duration:  elapsed,
		Time:      time.Now(),
	}
	if res.err != nil {
		ev.Error = res.err.Error()
	}
	go func() {
		if err := c.publisher.PublishFetchResolved(context.Background(), ev); err != nil {
			c.logger.Debug("publish fetch event failed", "error", err)
		}
	}()
}
