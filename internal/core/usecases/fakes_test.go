package usecases_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/core/usecases"
)

// --- Recording MapWidget ---

type widgetCmd struct {
	op     string
	marker domain.MarkerVisual
	id     string
	center domain.GeoPoint
	zoom   int
	bounds domain.Bounds
}

type view struct {
	center domain.GeoPoint
	zoom   int
}

// recordingWidget applies commands only on Flush, the way the browser applies
// one batch frame, and keeps the visible set after every flush.
type recordingWidget struct {
	mu      sync.Mutex
	visible map[string]domain.MarkerVisual
	pending []widgetCmd
	frames  []map[string]domain.MarkerVisual
	views   []view
	fits    []domain.Bounds
	flushFn func() error
}

func newRecordingWidget() *recordingWidget {
	return &recordingWidget{visible: make(map[string]domain.MarkerVisual)}
}

func (w *recordingWidget) SetView(center domain.GeoPoint, zoom int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, widgetCmd{op: "setView", center: center, zoom: zoom})
}

func (w *recordingWidget) FitBounds(b domain.Bounds) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, widgetCmd{op: "fitBounds", bounds: b})
}

func (w *recordingWidget) AddMarker(m domain.MarkerVisual) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, widgetCmd{op: "addMarker", marker: m})
}

func (w *recordingWidget) RemoveMarker(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, widgetCmd{op: "removeMarker", id: id})
}

func (w *recordingWidget) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	for _, cmd := range w.pending {
		switch cmd.op {
		case "setView":
			w.views = append(w.views, view{center: cmd.center, zoom: cmd.zoom})
		case "fitBounds":
			w.fits = append(w.fits, cmd.bounds)
		case "addMarker":
			w.visible[cmd.marker.ID] = cmd.marker
		case "removeMarker":
			delete(w.visible, cmd.id)
		}
	}
	w.pending = nil
	frame := make(map[string]domain.MarkerVisual, len(w.visible))
	for id, m := range w.visible {
		frame[id] = m
	}
	w.frames = append(w.frames, frame)
	if w.flushFn != nil {
		return w.flushFn()
	}
	return nil
}

func (w *recordingWidget) titles() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return sortedTitles(w.visible)
}

func (w *recordingWidget) ids() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.visible))
	for id := range w.visible {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (w *recordingWidget) frameTitles() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]string, len(w.frames))
	for i, f := range w.frames {
		out[i] = sortedTitles(f)
	}
	return out
}

func (w *recordingWidget) lastView() (view, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.views) == 0 {
		return view{}, false
	}
	return w.views[len(w.views)-1], true
}

func (w *recordingWidget) fitCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.fits)
}

func sortedTitles(m map[string]domain.MarkerVisual) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v.Title)
	}
	sort.Strings(out)
	return out
}

// --- Recording StatusSurface ---

type recordingStatus struct {
	mu      sync.Mutex
	loading bool
	history []bool
	banner  string
	shown   []string
	clears  int
}

func (s *recordingStatus) SetLoading(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = on
	s.history = append(s.history, on)
}

func (s *recordingStatus) ShowError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = msg
	s.shown = append(s.shown, msg)
}

func (s *recordingStatus) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = ""
	s.clears++
}

func (s *recordingStatus) state() (loading bool, banner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading, s.banner
}

// --- Mock LandmarkSource ---

type mockSource struct {
	mu      sync.Mutex
	reqs    []domain.FetchRequest
	fetchFn func(ctx context.Context, req domain.FetchRequest) ([]domain.Landmark, error)
}

func (m *mockSource) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.Landmark, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, req)
	}
	return nil, nil
}

func (m *mockSource) requests() []domain.FetchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.FetchRequest, len(m.reqs))
	copy(out, m.reqs)
	return out
}

// gatedSource holds every fetch until the test replies to it.
type gatedSource struct {
	calls chan gatedCall
}

type gatedCall struct {
	req   domain.FetchRequest
	reply chan gatedReply
}

type gatedReply struct {
	landmarks []domain.Landmark
	err       error
}

func newGatedSource() *gatedSource {
	return &gatedSource{calls: make(chan gatedCall, 16)}
}

func (g *gatedSource) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.Landmark, error) {
	reply := make(chan gatedReply, 1)
	g.calls <- gatedCall{req: req, reply: reply}
	select {
	case r := <-reply:
		return r.landmarks, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedSource) next(t *testing.T) gatedCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return gatedCall{}
	}
}

func (c gatedCall) respond(landmarks ...domain.Landmark) {
	c.reply <- gatedReply{landmarks: landmarks}
}

// --- Mock Geocoder / PositionProvider / EventPublisher ---

type mockGeocoder struct {
	mu        sync.Mutex
	calls     int
	geocodeFn func(ctx context.Context, text string) (domain.GeoPoint, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, text string) (domain.GeoPoint, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, text)
	}
	return domain.GeoPoint{}, domain.ErrNotFound
}

type mockPositions struct {
	positionFn func(ctx context.Context) (domain.GeoPoint, error)
}

func (m *mockPositions) CurrentPosition(ctx context.Context) (domain.GeoPoint, error) {
	if m.positionFn != nil {
		return m.positionFn(ctx)
	}
	return domain.GeoPoint{}, domain.ErrGeolocationUnavailable
}

type recordingPublisher struct {
	fetches  chan *domain.FetchEvent
	searches chan *domain.SearchEvent
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{
		fetches:  make(chan *domain.FetchEvent, 16),
		searches: make(chan *domain.SearchEvent, 16),
	}
}

func (p *recordingPublisher) PublishFetchResolved(ctx context.Context, ev *domain.FetchEvent) error {
	p.fetches <- ev
	return nil
}

func (p *recordingPublisher) PublishSearch(ctx context.Context, ev *domain.SearchEvent) error {
	p.searches <- ev
	return nil
}

// --- Helpers ---

type harness struct {
	c      *usecases.Coordinator
	widget *recordingWidget
	status *recordingStatus
}

func startCoordinator(t *testing.T, opts usecases.Options, deps usecases.CoordinatorDeps) *harness {
	t.Helper()
	h := &harness{widget: newRecordingWidget(), status: &recordingStatus{}}
	deps.Widget = h.widget
	deps.Status = h.status
	if deps.Geocoder == nil {
		deps.Geocoder = &mockGeocoder{}
	}
	if deps.Positions == nil {
		deps.Positions = &mockPositions{}
	}
	h.c = usecases.NewCoordinator(opts, deps)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

// snapshot waits for every previously posted operation and its flush.
func (h *harness) snapshot(t *testing.T) usecases.SyncState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := h.c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return st
}

func (h *harness) waitFor(t *testing.T, what string, cond func(usecases.SyncState) bool) usecases.SyncState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := h.snapshot(t)
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s (state %+v)", what, st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func testOptions() usecases.Options {
	opts := usecases.DefaultOptions()
	opts.Session = "test"
	opts.DebounceWindow = 20 * time.Millisecond
	opts.DefaultCenter = domain.GeoPoint{Lat: 40, Lon: -3}
	return opts
}

func lm(title string, lat, lon float64, cat domain.Category) domain.Landmark {
	return domain.Landmark{Title: title, Lat: lat, Lon: lon, Summary: title + " summary", Category: cat}
}

func entryTitles(entries []usecases.MarkerEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Landmark.Title
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
