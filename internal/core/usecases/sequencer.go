package usecases

import "context"

// Sequencer numbers fetches and decides which completions may touch the marker
// store. It is not safe for concurrent use; the coordinator loop owns it.
type Sequencer struct {
	lastIssued      uint64
	highestResolved uint64
	inflight        map[uint64]context.CancelFunc
}

// NewSequencer returns a sequencer that has issued nothing.
func NewSequencer() *Sequencer {
	return &Sequencer{inflight: make(map[uint64]context.CancelFunc)}
}

// Issue assigns the next sequence number before any asynchronous work starts
// and derives a cancellable context for the request.
func (s *Sequencer) Issue(parent context.Context) (uint64, context.Context) {
	s.lastIssued++
	ctx, cancel := context.WithCancel(parent)
	s.inflight[s.lastIssued] = cancel
	return s.lastIssued, ctx
}

// Latest reports whether seq is the most recently issued request.
func (s *Sequencer) Latest(seq uint64) bool {
	return seq == s.lastIssued
}

// Resolve records the completion of seq. It returns false when a later request
// has already resolved, in which case the result must be discarded. Accepting
// seq cancels every older request still in flight.
func (s *Sequencer) Resolve(seq uint64) bool {
	if cancel, ok := s.inflight[seq]; ok {
		cancel()
		delete(s.inflight, seq)
	}
	if seq <= s.highestResolved {
		return false
	}
	s.highestResolved = seq
	for other, cancel := range s.inflight {
		if other < seq {
			cancel()
		}
	}
	return true
}

// CancelAll cancels every request still in flight.
func (s *Sequencer) CancelAll() {
	for seq, cancel := range s.inflight {
		cancel()
		delete(s.inflight, seq)
	}
}

// LastIssued is the sequence number of the most recent request, 0 before any.
func (s *Sequencer) LastIssued() uint64 { return s.lastIssued }

// HighestResolved is the largest sequence number that has completed.
func (s *Sequencer) HighestResolved() uint64 { return s.highestResolved }

// InFlight counts requests issued but not yet resolved.
func (s *Sequencer) InFlight() int { return len(s.inflight) }
