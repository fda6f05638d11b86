package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/core/ports"
	"github.com/samirrijal/landmarkmap/internal/core/usecases"
	"github.com/samirrijal/landmarkmap/internal/pkg/metrics"
)

// clientMessage is anything the browser sends on /ws/map.
//
//	{"type":"moveend","bounds":{...},"zoom":12}
//	{"type":"search","text":"Bilbao"}
//	{"type":"locate"}
//	{"type":"toggle","category":"Natural","enabled":false}
//	{"type":"position","request_id":"...","ok":true,"lat":43.26,"lon":-2.93}
type clientMessage struct {
	Type      string         `json:"type"`
	Bounds    *domain.Bounds `json:"bounds,omitempty"`
	Zoom      int            `json:"zoom,omitempty"`
	Text      string         `json:"text,omitempty"`
	Category  string         `json:"category,omitempty"`
	Enabled   *bool          `json:"enabled,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	OK        bool           `json:"ok,omitempty"`
	Lat       float64        `json:"lat,omitempty"`
	Lon       float64        `json:"lon,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// command is one rendering instruction inside a batch frame.
type command struct {
	Op      string               `json:"op"`
	Center  *domain.GeoPoint     `json:"center,omitempty"`
	Zoom    int                  `json:"zoom,omitempty"`
	Bounds  *domain.Bounds       `json:"bounds,omitempty"`
	Marker  *domain.MarkerVisual `json:"marker,omitempty"`
	ID      string               `json:"id,omitempty"`
	Visible *bool                `json:"visible,omitempty"`
	Message string               `json:"message,omitempty"`
}

type batchFrame struct {
	Type     string    `json:"type"`
	Commands []command `json:"commands"`
}

type positionRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// wsConn is the part of *websocket.Conn a session needs.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

// widgetController receives the browser's events.
type widgetController interface {
	MoveEnd(b domain.Bounds, zoom int)
	Search(ctx context.Context, text string) error
	Locate(ctx context.Context) error
	SetCategory(c domain.Category, enabled bool) error
	ToggleCategory(c domain.Category) error
}

type positionReply struct {
	point domain.GeoPoint
	err   error
}

// MapSession is one browser map over a WebSocket. It is the widget, status
// surface and (client-side) position provider of a single coordinator.
type MapSession struct {
	conn       wsConn
	logger     *slog.Logger
	posTimeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending []command
	waiting map[string]chan positionReply
}

// NewMapSession wraps conn. posTimeout bounds each client geolocation request.
func NewMapSession(conn wsConn, posTimeout time.Duration, logger *slog.Logger) *MapSession {
	if posTimeout <= 0 {
		posTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MapSession{
		conn:       conn,
		logger:     logger,
		posTimeout: posTimeout,
		waiting:    make(map[string]chan positionReply),
	}
}

func (s *MapSession) queue(cmd command) {
	s.mu.Lock()
	s.pending = append(s.pending, cmd)
	s.mu.Unlock()
}

func (s *MapSession) SetView(center domain.GeoPoint, zoom int) {
	s.queue(command{Op: "setView", Center: &center, Zoom: zoom})
}

func (s *MapSession) FitBounds(b domain.Bounds) {
	s.queue(command{Op: "fitBounds", Bounds: &b})
}

func (s *MapSession) AddMarker(m domain.MarkerVisual) {
	s.queue(command{Op: "addMarker", Marker: &m})
}

func (s *MapSession) RemoveMarker(id string) {
	s.queue(command{Op: "removeMarker", ID: id})
}

func (s *MapSession) SetLoading(visible bool) {
	s.queue(command{Op: "loading", Visible: &visible})
}

func (s *MapSession) ShowError(message string) {
	s.queue(command{Op: "error", Message: message})
}

func (s *MapSession) ClearError() {
	s.queue(command{Op: "clearError"})
}

// Flush sends everything queued since the last flush as one batch frame.
func (s *MapSession) Flush() error {
	s.mu.Lock()
	cmds := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(cmds) == 0 {
		return nil
	}
	return s.writeJSON(batchFrame{Type: "batch", Commands: cmds})
}

// CurrentPosition asks the browser for its position once. A denial, an
// invalid fix or no answer within the timeout is domain.ErrGeolocationUnavailable.
func (s *MapSession) CurrentPosition(ctx context.Context) (domain.GeoPoint, error) {
	id := uuid.NewString()
	reply := make(chan positionReply, 1)

	s.mu.Lock()
	s.waiting[id] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.waiting, id)
		s.mu.Unlock()
	}()

	if err := s.writeJSON(positionRequest{Type: "getPosition", RequestID: id}); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %v", domain.ErrGeolocationUnavailable, err)
	}

	timer := time.NewTimer(s.posTimeout)
	defer timer.Stop()

	select {
	case r := <-reply:
		return r.point, r.err
	case <-timer.C:
		return domain.GeoPoint{}, fmt.Errorf("%w: timed out after %s", domain.ErrGeolocationUnavailable, s.posTimeout)
	case <-ctx.Done():
		return domain.GeoPoint{}, fmt.Errorf("%w: %v", domain.ErrGeolocationUnavailable, ctx.Err())
	}
}

// deliverPosition completes a pending position request. Unknown or repeated
// request ids are ignored.
func (s *MapSession) deliverPosition(m clientMessage) {
	s.mu.Lock()
	reply, ok := s.waiting[m.RequestID]
	delete(s.waiting, m.RequestID)
	s.mu.Unlock()
	if !ok {
		return
	}

	var r positionReply
	switch p := (domain.GeoPoint{Lat: m.Lat, Lon: m.Lon}); {
	case !m.OK:
		reason := m.Error
		if reason == "" {
			reason = "denied"
		}
		r.err = fmt.Errorf("%w: %s", domain.ErrGeolocationUnavailable, reason)
	case !p.Valid():
		r.err = fmt.Errorf("%w: invalid fix %f,%f", domain.ErrGeolocationUnavailable, m.Lat, m.Lon)
	default:
		r.point = p
	}
	reply <- r
}

// Serve reads browser events until the connection fails or ctx ends. Search
// and locate run in their own goroutines so position replies keep flowing.
func (s *MapSession) Serve(ctx context.Context, ctrl widgetController) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}

		var m clientMessage
		if err := json.Unmarshal(data, &m); err != nil {
			s.sendError("invalid JSON")
			continue
		}

		switch m.Type {
		case "moveend":
			if m.Bounds == nil {
				s.sendError("moveend requires bounds")
				continue
			}
			if err := m.Bounds.Validate(); err != nil {
				s.sendError("invalid bounds: " + err.Error())
				continue
			}
			ctrl.MoveEnd(*m.Bounds, m.Zoom)

		case "search":
			text := m.Text
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := ctrl.Search(ctx, text); err != nil {
					s.logger.Debug("search finished with error", "text", text, "error", err)
				}
			}()

		case "locate":
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := ctrl.Locate(ctx); err != nil {
					s.logger.Debug("locate finished with error", "error", err)
				}
			}()

		case "toggle":
			cat := domain.ParseCategory(m.Category)
			if m.Enabled == nil {
				err = ctrl.ToggleCategory(cat)
			} else {
				err = ctrl.SetCategory(cat, *m.Enabled)
			}
			if errors.Is(err, domain.ErrClosed) {
				return err
			}

		case "position":
			s.deliverPosition(m)

		default:
			s.sendError("unknown message type: " + strings.TrimSpace(m.Type))
		}
	}
}

func (s *MapSession) sendError(msg string) {
	if err := s.writeJSON(errorFrame{Type: "error", Message: msg}); err != nil {
		s.logger.Debug("ws write failed", "error", err)
	}
}

func (s *MapSession) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// ping keeps intermediaries from closing idle sockets.
func (s *MapSession) ping(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// runSession drives one widget instance over conn until the browser leaves.
func runSession(ctx context.Context, conn wsConn, deps *Dependencies) {
	session := uuid.NewString()
	logger := slog.Default().With("session", session)
	ms := NewMapSession(conn, deps.PositionTimeout, logger)

	var positions ports.PositionProvider = ms
	if deps.Positions != nil {
		positions = deps.Positions
	}

	opts := deps.Map
	opts.Session = session
	opts.Logger = logger
	coord := usecases.NewCoordinator(opts, usecases.CoordinatorDeps{
		Source:    deps.Landmarks,
		Geocoder:  deps.Geocoder,
		Positions: positions,
		Widget:    ms,
		Status:    ms,
		Publisher: deps.Publisher,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()
	logger.Info("map session started")

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = coord.Run(ctx)
	}()
	go ms.ping(ctx, 30*time.Second)
	go func() {
		if err := coord.Start(ctx); err != nil {
			logger.Debug("initial load finished with error", "error", err)
		}
	}()

	err := ms.Serve(ctx, coord)
	cancel()
	coord.Close()
	<-runDone
	logger.Info("map session ended", "reason", err)
}

// MapSessionHandler upgrades /ws/map connections to widget sessions.
func MapSessionHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()
		runSession(context.Background(), c, deps)
	}
}
