// Package registry implements the Session Registry (spec.md §4.4): a
// process-local table from user id to the outbound sink for that user's
// live stream. It is the in-memory twin of internal/v1/room's KV-backed
// Room membership — grounded on the teacher's internal/v1/session.Hub
// rooms-map-plus-mutex pattern, generalized from id->room to user->sink.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/onnwee/lobby/internal/v1/logging"
	"github.com/onnwee/lobby/internal/v1/metrics"
	"go.uber.org/zap"
)

// Event is anything the outbound pump can translate into a wire response.
// The registry itself never interprets event contents.
type Event interface{}

// Sink is a bounded outbound channel owned by one session. Close is called
// by Registry.Insert when a session is replaced; the owning session does
// not close its own sink when its stream loop exits.
type Sink struct {
	ch chan Event

	closeOnce sync.Once
}

// NewSink creates a Sink with the given buffer capacity.
func NewSink(capacity int) *Sink {
	return &Sink{ch: make(chan Event, capacity)}
}

// Chan exposes the receive side of the sink for the outbound pump.
func (s *Sink) Chan() <-chan Event {
	return s.ch
}

// Close closes the sink exactly once. Safe to call concurrently and
// multiple times.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// trySend attempts to enqueue ev, waiting up to timeout if the sink is
// currently full, per spec.md §5 backpressure rule (100ms default bound).
// Returns false if the timeout elapses or the sink is closed.
func (s *Sink) trySend(ev Event, timeout time.Duration) (ok bool) {
	defer func() {
		// sending on a closed channel panics; treat that as a failed send
		// rather than crashing the caller's fan-out loop.
		if r := recover(); r != nil {
			ok = false
		}
	}()

	select {
	case s.ch <- ev:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.ch <- ev:
		return true
	case <-timer.C:
		return false
	}
}

// Registry is the process-local user_id -> Sink table. Zero value is not
// usable; construct with New.
type Registry struct {
	mu          sync.Mutex
	sinks       map[string]*Sink
	sendTimeout time.Duration
}

// New builds an empty Registry. sendTimeout bounds how long send_to waits
// on a full sink before reporting backpressure failure (spec.md §5: ~100ms).
func New(sendTimeout time.Duration) *Registry {
	return &Registry{
		sinks:       make(map[string]*Sink),
		sendTimeout: sendTimeout,
	}
}

// Insert replaces any existing sink for userID, force-closing the old one
// so its owning session observes channel-closed and ends its stream without
// running room cleanup (spec.md §9 open question 4: resolves the
// zombie-stream case from replacement).
func (r *Registry) Insert(ctx context.Context, userID string, sink *Sink) {
	r.mu.Lock()
	old, existed := r.sinks[userID]
	r.sinks[userID] = sink
	size := len(r.sinks)
	r.mu.Unlock()

	metrics.RegistrySize.Set(float64(size))

	if existed {
		logging.Info(ctx, "registry: replacing existing session", zap.String("user_id", userID))
		old.Close()
	}
}

// Lookup returns the current sink for userID, or nil if absent.
func (r *Registry) Lookup(userID string) *Sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sinks[userID]
}

// Remove deletes the entry for userID if it is still the given sink.
// Idempotent: removing an absent or already-replaced entry is a no-op.
func (r *Registry) Remove(userID string, sink *Sink) {
	r.mu.Lock()
	current, ok := r.sinks[userID]
	if ok && current == sink {
		delete(r.sinks, userID)
	}
	size := len(r.sinks)
	r.mu.Unlock()

	metrics.RegistrySize.Set(float64(size))
}

// SendTo looks up userID's sink and enqueues ev, honoring the bounded
// backpressure wait. Returns false (after logging) if there is no session
// for userID or the enqueue could not complete in time — callers must
// never let one failed fan-out abort the rest of their loop (spec.md §7).
func (r *Registry) SendTo(ctx context.Context, userID string, ev Event) bool {
	r.mu.Lock()
	sink, ok := r.sinks[userID]
	r.mu.Unlock()

	if !ok {
		logging.Warn(ctx, "registry: send_to dropped, no session", zap.String("user_id", userID))
		metrics.SendToFailures.WithLabelValues("no_session").Inc()
		return false
	}

	if !sink.trySend(ev, r.sendTimeout) {
		logging.Warn(ctx, "registry: send_to backpressure timeout", zap.String("user_id", userID))
		metrics.SendToFailures.WithLabelValues("backpressure_timeout").Inc()
		return false
	}
	return true
}

// Len reports the current number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}
