package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/core/usecases"
)

// ---- fake socket ----

type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.in:
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	select {
	case <-f.closed:
		return io.ErrClosedPipe
	default:
	}
	f.out <- data
	return nil
}

func (f *fakeConn) send(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	f.in <- data
}

func (f *fakeConn) close() { f.once.Do(func() { close(f.closed) }) }

// frame reads the next outgoing frame.
func (f *fakeConn) frame(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-f.out:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("bad frame %s: %v", data, err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

// ---- fake controller ----

type fakeController struct {
	mu       sync.Mutex
	moves    []domain.Bounds
	zooms    []int
	searches []string
	locates  int
	toggles  []domain.Category
	sets     map[domain.Category]bool
	setErr   error
}

func (c *fakeController) MoveEnd(b domain.Bounds, zoom int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moves = append(c.moves, b)
	c.zooms = append(c.zooms, zoom)
}

func (c *fakeController) Search(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, text)
	return nil
}

func (c *fakeController) Locate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locates++
	return nil
}

func (c *fakeController) SetCategory(cat domain.Category, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == nil {
		c.sets = make(map[domain.Category]bool)
	}
	c.sets[cat] = enabled
	return c.setErr
}

func (c *fakeController) ToggleCategory(cat domain.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggles = append(c.toggles, cat)
	return nil
}

// serve runs Serve in the background and returns its result channel.
func serve(s *MapSession, ctrl widgetController) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), ctrl) }()
	return done
}

// syncServe round-trips an unknown message; every earlier message has been
// handled once its error frame arrives.
func syncServe(t *testing.T, conn *fakeConn) {
	t.Helper()
	conn.send(t, map[string]string{"type": "sync"})
	for {
		f := conn.frame(t)
		if f["type"] == "error" && f["message"] == "unknown message type: sync" {
			return
		}
	}
}

func TestServe_RoutesEvents(t *testing.T) {
	conn := newFakeConn()
	ctrl := &fakeController{}
	done := serve(NewMapSession(conn, time.Second, nil), ctrl)

	conn.send(t, map[string]any{"type": "moveend", "zoom": 12, "bounds": domain.Bounds{North: 44, South: 43, East: -2, West: -3}})
	conn.send(t, map[string]any{"type": "toggle", "category": "natural"})
	conn.send(t, map[string]any{"type": "toggle", "category": "Cultural", "enabled": false})
	syncServe(t, conn)

	ctrl.mu.Lock()
	if len(ctrl.moves) != 1 || ctrl.moves[0].North != 44 || ctrl.zooms[0] != 12 {
		t.Errorf("unexpected moves %v zooms %v", ctrl.moves, ctrl.zooms)
	}
	if len(ctrl.toggles) != 1 || ctrl.toggles[0] != domain.CategoryNatural {
		t.Errorf("unexpected toggles %v", ctrl.toggles)
	}
	if enabled, ok := ctrl.sets[domain.CategoryCultural]; !ok || enabled {
		t.Errorf("expected Cultural disabled, got %v", ctrl.sets)
	}
	ctrl.mu.Unlock()

	conn.close()
	if err := <-done; !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestServe_SearchAndLocate(t *testing.T) {
	conn := newFakeConn()
	ctrl := &fakeController{}
	done := serve(NewMapSession(conn, time.Second, nil), ctrl)

	conn.send(t, map[string]string{"type": "search", "text": "Bilbao"})
	conn.send(t, map[string]string{"type": "locate"})
	syncServe(t, conn)
	conn.close()
	<-done

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.searches) != 1 || ctrl.searches[0] != "Bilbao" {
		t.Errorf("unexpected searches %v", ctrl.searches)
	}
	if ctrl.locates != 1 {
		t.Errorf("expected 1 locate, got %d", ctrl.locates)
	}
}

func TestServe_RejectsBadMessages(t *testing.T) {
	conn := newFakeConn()
	ctrl := &fakeController{}
	done := serve(NewMapSession(conn, time.Second, nil), ctrl)
	defer func() { conn.close(); <-done }()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"invalid json", `{"type":`, "invalid JSON"},
		{"unknown", `{"type":"zoomstart"}`, "unknown message type: zoomstart"},
		{"moveend without bounds", `{"type":"moveend"}`, "moveend requires bounds"},
		{"inverted bounds", `{"type":"moveend","bounds":{"north":1,"south":5,"east":1,"west":0}}`, "invalid bounds: north (1.000000) must not be below south (5.000000)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn.in <- []byte(tt.raw)
			f := conn.frame(t)
			if f["type"] != "error" || f["message"] != tt.want {
				t.Errorf("expected error %q, got %v", tt.want, f)
			}
		})
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.moves) != 0 {
		t.Errorf("invalid moveend must not reach the coordinator, got %v", ctrl.moves)
	}
}

func TestServe_ClosedCoordinatorEndsSession(t *testing.T) {
	conn := newFakeConn()
	ctrl := &fakeController{setErr: domain.ErrClosed}
	done := serve(NewMapSession(conn, time.Second, nil), ctrl)

	conn.send(t, map[string]any{"type": "toggle", "category": "Other", "enabled": true})
	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestMapSession_FlushBatchesCommands(t *testing.T) {
	conn := newFakeConn()
	s := NewMapSession(conn, time.Second, nil)

	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	select {
	case data := <-conn.out:
		t.Fatalf("empty flush wrote %s", data)
	default:
	}

	s.SetLoading(true)
	s.SetView(domain.GeoPoint{Lat: 1, Lon: 2}, 10)
	s.AddMarker(domain.MarkerVisual{ID: "m1", Title: "A", Glyph: "tree", Color: "#2E7D32"})
	s.RemoveMarker("m0")
	s.ClearError()
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}

	f := conn.frame(t)
	if f["type"] != "batch" {
		t.Fatalf("expected batch frame, got %v", f)
	}
	cmds := f["commands"].([]any)
	wantOps := []string{"loading", "setView", "addMarker", "removeMarker", "clearError"}
	if len(cmds) != len(wantOps) {
		t.Fatalf("expected %d commands, got %d", len(wantOps), len(cmds))
	}
	for i, op := range wantOps {
		if got := cmds[i].(map[string]any)["op"]; got != op {
			t.Errorf("command %d: expected %s, got %v", i, op, got)
		}
	}
	if visible := cmds[0].(map[string]any)["visible"]; visible != true {
		t.Errorf("expected loading visible=true, got %v", visible)
	}
}

func TestMapSession_CurrentPosition(t *testing.T) {
	conn := newFakeConn()
	s := NewMapSession(conn, time.Second, nil)
	done := serve(s, &fakeController{})
	defer func() { conn.close(); <-done }()

	type result struct {
		p   domain.GeoPoint
		err error
	}
	res := make(chan result, 1)
	go func() {
		p, err := s.CurrentPosition(context.Background())
		res <- result{p, err}
	}()

	req := conn.frame(t)
	if req["type"] != "getPosition" {
		t.Fatalf("expected getPosition, got %v", req)
	}
	id := req["request_id"].(string)

	conn.send(t, map[string]any{"type": "position", "request_id": "someone-else", "ok": true, "lat": 1, "lon": 1})
	conn.send(t, map[string]any{"type": "position", "request_id": id, "ok": true, "lat": 43.26, "lon": -2.93})
	// a repeated reply for a completed request is dropped
	conn.send(t, map[string]any{"type": "position", "request_id": id, "ok": true, "lat": 0, "lon": 0})

	r := <-res
	if r.err != nil {
		t.Fatalf("unexpected error: %v", r.err)
	}
	if r.p.Lat != 43.26 || r.p.Lon != -2.93 {
		t.Errorf("unexpected position %+v", r.p)
	}
	syncServe(t, conn)
}

func TestMapSession_CurrentPositionDenied(t *testing.T) {
	conn := newFakeConn()
	s := NewMapSession(conn, time.Second, nil)
	done := serve(s, &fakeController{})
	defer func() { conn.close(); <-done }()

	errc := make(chan error, 1)
	go func() {
		_, err := s.CurrentPosition(context.Background())
		errc <- err
	}()

	req := conn.frame(t)
	conn.send(t, map[string]any{"type": "position", "request_id": req["request_id"], "ok": false, "error": "permission denied"})

	if err := <-errc; !errors.Is(err, domain.ErrGeolocationUnavailable) {
		t.Errorf("expected ErrGeolocationUnavailable, got %v", err)
	}
}

func TestMapSession_CurrentPositionTimeout(t *testing.T) {
	conn := newFakeConn()
	s := NewMapSession(conn, 20*time.Millisecond, nil)

	_, err := s.CurrentPosition(context.Background())
	if !errors.Is(err, domain.ErrGeolocationUnavailable) {
		t.Errorf("expected ErrGeolocationUnavailable, got %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.waiting) != 0 {
		t.Errorf("expected no pending requests, got %d", len(s.waiting))
	}
}

func TestRunSession_InitialLoadRendersMarkers(t *testing.T) {
	catalog := usecases.NewCatalogService([]domain.Landmark{
		{Lat: 43.2687, Lon: -2.934, Title: "Guggenheim Museum Bilbao", Category: domain.CategoryCultural},
		{Lat: 43.2630, Lon: -2.9350, Title: "Arriaga", Category: "Swamp"},
	})
	opts := usecases.DefaultOptions()
	opts.DebounceWindow = 10 * time.Millisecond
	opts.LocateOnStart = false

	conn := newFakeConn()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		runSession(context.Background(), conn, &Dependencies{Catalog: catalog, Landmarks: catalog, Map: opts})
	}()

	markers := map[string]string{}
	deadline := time.After(2 * time.Second)
	for len(markers) < 2 {
		select {
		case data := <-conn.out:
			var f batchFrame
			if err := json.Unmarshal(data, &f); err != nil || f.Type != "batch" {
				continue
			}
			for _, cmd := range f.Commands {
				if cmd.Op == "addMarker" {
					markers[cmd.Marker.Title] = cmd.Marker.Glyph
				}
			}
		case <-deadline:
			t.Fatalf("timed out, markers so far: %v", markers)
		}
	}

	if markers["Guggenheim Museum Bilbao"] != domain.CategoryCultural.Visual().Glyph {
		t.Errorf("unexpected glyph for Guggenheim: %q", markers["Guggenheim Museum Bilbao"])
	}
	if markers["Arriaga"] != domain.CategoryOther.Visual().Glyph {
		t.Errorf("unknown category must render as Other, got %q", markers["Arriaga"])
	}

	conn.close()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("runSession did not return after the socket closed")
	}
}
