package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

const (
	// StreamName is the JetStream stream holding widget session activity.
	StreamName = "LANDMARK_SESSIONS"
	// SubjectPrefix precedes the session id in every published subject.
	SubjectPrefix = "landmarks.session."
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS, enables JetStream and ensures the session stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("landmarkmap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// FetchSubject is the subject a session's fetch outcomes are published on.
func FetchSubject(session string) string { return SubjectPrefix + session + ".fetch" }

// SearchSubject is the subject a session's geocoding lookups are published on.
func SearchSubject(session string) string { return SubjectPrefix + session + ".search" }

func (p *Publisher) PublishFetchResolved(ctx context.Context, event *domain.FetchEvent) error {
	return p.publish(ctx, FetchSubject(event.Session), event)
}

func (p *Publisher) PublishSearch(ctx context.Context, event *domain.SearchEvent) error {
	return p.publish(ctx, SearchSubject(event.Session), event)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Healthy reports whether the connection is currently up.
func (p *Publisher) Healthy() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
