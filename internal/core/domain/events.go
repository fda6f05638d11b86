package domain

import "time"

// FetchOutcome classifies how a fetch resolved.
type FetchOutcome string

const (
	OutcomeAccepted FetchOutcome = "accepted"
	OutcomeStale    FetchOutcome = "stale"
	OutcomeFailed   FetchOutcome = "failed"
)

// FetchEvent is published when a widget's fetch is accepted or fails.
type FetchEvent struct {
	Session   string        `json:"session"`
	Sequence  uint64        `json:"sequence"`
	Query     ViewportQuery `json:"query"`
	Outcome   FetchOutcome  `json:"outcome"`
	Landmarks int           `json:"landmarks"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Time      time.Time     `json:"time"`
}

// SearchEvent is published after a geocoding lookup.
type SearchEvent struct {
	Session  string    `json:"session"`
	Text     string    `json:"text"`
	Location *GeoPoint `json:"location,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}
