// Package sink implements PeerSink, the per-peer inbound handle described in
// the intake core's data model: a Direct variant for replica peers that
// forwards straight onto a shared queue, and a Pooled variant for client
// peers that buffers locally until a batch worker drains it.
//
// PeerSink is modeled as a sealed interface rather than a tagged struct or a
// base type: callers hold one polymorphic handle without knowing which
// variant they received, and the variant set is closed by construction
// (both implementations live in this package and are unexported), matching
// the "closed sum type" requirement over an open-ended class hierarchy.
package sink

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nodeware/peerintake/pkg/nodeid"
)

// ErrDirectClosed is returned by a Direct sink's Push once the sink has been
// disconnected.
var ErrDirectClosed = errors.New("sink: direct queue closed")

// ErrPooledClosed is returned by a Pooled sink's Push or Drain once the sink
// has been disconnected.
var ErrPooledClosed = errors.New("sink: pooled connection closed")

// ClosedError wraps ErrDirectClosed/ErrPooledClosed with the offending peer
// id, matching the distilled spec's PooledClosed(peer_id)/DirectClosed(peer_id)
// error kinds.
type ClosedError struct {
	Peer nodeid.ID
	Err  error
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("%s: peer %d", e.Err, e.Peer)
}

func (e *ClosedError) Unwrap() error { return e.Err }

func directClosed(peer nodeid.ID) error {
	return &ClosedError{Peer: peer, Err: ErrDirectClosed}
}

func pooledClosed(peer nodeid.ID) error {
	return &ClosedError{Peer: peer, Err: ErrPooledClosed}
}

// PeerSink is the polymorphic per-peer inbound handle. Every connected peer,
// replica or client, is represented by exactly one PeerSink.
type PeerSink[T any] interface {
	// PeerID returns the id this sink was created for.
	PeerID() nodeid.ID
	// Push appends msg to the sink's buffer (Pooled) or forwards it onto the
	// shared queue (Direct). Both variants fail once the sink has been
	// disconnected.
	Push(msg T) error
	// Disconnect marks the sink as no longer accepting pushes. Idempotent.
	Disconnect()
	// IsDisconnected reports the current disconnected state.
	IsDisconnected() bool

	// sealed prevents types outside this package from implementing
	// PeerSink, keeping the variant set closed.
	sealed()
}

// Drainer is implemented by sinks that buffer locally and can be drained by
// a batch worker. Only the Pooled variant implements it; the batch worker
// type-asserts for this interface instead of branching on a tag.
type Drainer[T any] interface {
	// Drain atomically swaps the sink's buffer for replacement and returns
	// the prior contents. replacement is reused across collect iterations
	// to avoid an allocation per revolution.
	Drain(replacement []T) ([]T, error)
}

// Envelope pairs a message with the instant it was enqueued, used to derive
// the passing-time metrics samples the facade emits on every receive.
type Envelope[T any] struct {
	Msg      T
	Enqueued time.Time
}

// Enqueuer is the minimal surface a Direct sink needs from the queue it
// forwards onto; ReplicaIntake's unbounded queue implements it.
type Enqueuer[T any] interface {
	Enqueue(Envelope[T])
}

// direct is the replica-path PeerSink: it has no local buffer, it forwards
// directly onto ReplicaIntake's shared multi-producer queue.
type direct[T any] struct {
	peer   nodeid.ID
	queue  Enqueuer[T]
	closed atomic.Bool
}

// NewDirect constructs a Direct PeerSink forwarding onto queue.
func NewDirect[T any](peer nodeid.ID, queue Enqueuer[T]) PeerSink[T] {
	return &direct[T]{peer: peer, queue: queue}
}

func (d *direct[T]) PeerID() nodeid.ID { return d.peer }

func (d *direct[T]) Push(msg T) error {
	if d.closed.Load() {
		return directClosed(d.peer)
	}
	d.queue.Enqueue(Envelope[T]{Msg: msg, Enqueued: time.Now()})
	return nil
}

func (d *direct[T]) Disconnect()          { d.closed.Store(true) }
func (d *direct[T]) IsDisconnected() bool { return d.closed.Load() }
func (d *direct[T]) sealed()              {}

// pooled is the client-path PeerSink: pushes append to a private
// mutex-protected buffer; a batch worker periodically drains it.
type pooled[T any] struct {
	peer         nodeid.ID
	mu           sync.Mutex
	buffer       []T
	disconnected atomic.Bool
}

// NewPooled constructs a Pooled PeerSink with a buffer pre-sized to
// capacityHint (the per-client cache size from configuration).
func NewPooled[T any](peer nodeid.ID, capacityHint int) PeerSink[T] {
	return &pooled[T]{peer: peer, buffer: make([]T, 0, capacityHint)}
}

func (p *pooled[T]) PeerID() nodeid.ID { return p.peer }

func (p *pooled[T]) Push(msg T) error {
	if p.disconnected.Load() {
		return pooledClosed(p.peer)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// Re-check under the lock: Disconnect may have raced us between the
	// fast-path load above and acquiring the mutex.
	if p.disconnected.Load() {
		return pooledClosed(p.peer)
	}
	p.buffer = append(p.buffer, msg)
	return nil
}

func (p *pooled[T]) Drain(replacement []T) ([]T, error) {
	if p.disconnected.Load() {
		return nil, pooledClosed(p.peer)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disconnected.Load() {
		return nil, pooledClosed(p.peer)
	}
	prev := p.buffer
	if replacement == nil {
		replacement = make([]T, 0, cap(prev))
	}
	p.buffer = replacement[:0]
	return prev, nil
}

func (p *pooled[T]) Disconnect() {
	// Per the distilled spec's corrected semantics (§9): disconnect must
	// set the flag to true. The original Rust source stores false here,
	// which is a typo this implementation deliberately does not reproduce.
	p.disconnected.Store(true)
}

func (p *pooled[T]) IsDisconnected() bool { return p.disconnected.Load() }
func (p *pooled[T]) sealed()              {}
