// Package replicaintake implements ReplicaIntake: the many-to-one funnel
// that carries replica-to-replica traffic onto a single shared queue read by
// exactly one consumer, the upper-level protocol thread. Replica traffic
// bypasses batching entirely because it is latency-critical and small in
// cardinality (§4.1, §4.2 of the specification).
package replicaintake

import (
	"sync"
	"time"

	"github.com/nodeware/peerintake/pkg/metrics"
	"github.com/nodeware/peerintake/pkg/nodeid"
	"github.com/nodeware/peerintake/pkg/sink"
)

// ReplicaPassingTime is the metrics key recorded on every successful
// ReceiveFromReplicas, measuring (now - enqueue instant).
var ReplicaPassingTime = []string{"peerintake", "replica", "passing_time"}

// queueAdapter lets *unboundedQueue[sink.Envelope[T]] satisfy
// sink.Enqueuer[T] without exposing the queue's internals to package sink.
type queueAdapter[T any] struct {
	q *unboundedQueue[sink.Envelope[T]]
}

func (a queueAdapter[T]) Enqueue(e sink.Envelope[T]) { a.q.push(e) }

// Intake is ReplicaIntake: a concurrent directory of Direct PeerSinks, all
// forwarding onto one unbounded queue drained by ReceiveFromReplicas.
type Intake[T any] struct {
	queue *unboundedQueue[sink.Envelope[T]]

	mu    sync.RWMutex
	peers map[nodeid.ID]sink.PeerSink[T]

	connected int64
	connMu    sync.Mutex // guards the connected counter's read-modify-write
}

// New constructs an empty ReplicaIntake.
func New[T any]() *Intake[T] {
	return &Intake[T]{
		queue: newUnboundedQueue[sink.Envelope[T]](),
		peers: make(map[nodeid.ID]sink.PeerSink[T]),
	}
}

// Register installs a Direct sink for peer, wired to the shared queue. If a
// sink already exists for peer it is replaced and disconnected; re-registering an
// already-present peer does not increment the connected-replica count,
// matching the idempotence property required by §8.
func (in *Intake[T]) Register(peer nodeid.ID) sink.PeerSink[T] {
	s := sink.NewDirect[T](peer, queueAdapter[T]{q: in.queue})

	in.mu.Lock()
	old, existed := in.peers[peer]
	in.peers[peer] = s
	in.mu.Unlock()

	if existed {
		old.Disconnect()
	} else {
		in.connMu.Lock()
		in.connected++
		in.connMu.Unlock()
	}

	return s
}

// Lookup returns the sink registered for peer, if any.
func (in *Intake[T]) Lookup(peer nodeid.ID) (sink.PeerSink[T], bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	s, ok := in.peers[peer]
	return s, ok
}

// Receive blocks for the next replica message, up to timeout (nil blocks
// indefinitely). It returns ok=false on timeout. The underlying queue is
// never torn down while the Intake is alive — the Intake always retains the
// single consumer side — so an unreachable queue is not a condition this
// method needs to handle; see Pending for the only other observer.
func (in *Intake[T]) Receive(timeout *time.Duration) (msg T, ok bool) {
	env, ok := in.queue.pop(timeout)
	if !ok {
		var zero T
		return zero, false
	}
	metrics.MeasureSince(ReplicaPassingTime, env.Enqueued)
	return env.Msg, true
}

// Pending reports how many replica messages are currently queued.
func (in *Intake[T]) Pending() int {
	return in.queue.len()
}

// ConnectedReplicas reports the number of distinct replica peers currently
// registered.
func (in *Intake[T]) ConnectedReplicas() int {
	in.connMu.Lock()
	defer in.connMu.Unlock()
	return int(in.connected)
}
