// Package intake implements IntakeFacade, the top-level object the upper
// protocol layer talks to: it owns a ReplicaIntake always and a
// ClientPoolGroup only when the local node is a replica.
package intake

import (
	"errors"
	"time"

	"github.com/nodeware/peerintake/pkg/clientpool"
	"github.com/nodeware/peerintake/pkg/metrics"
	"github.com/nodeware/peerintake/pkg/nodeid"
	"github.com/nodeware/peerintake/pkg/replicaintake"
	"github.com/nodeware/peerintake/pkg/sink"
)

// ErrNoClientIntake is returned when a client-role node is asked to receive
// from clients, an operation only a replica node can perform.
var ErrNoClientIntake = errors.New("intake: node has no client intake")

// BatchPassingTime is the metrics key recorded on every successful
// ReceiveFromClients, measuring (now - batch creation instant).
var BatchPassingTime = []string{"peerintake", "clientpool", "batch_passing_time"}

// Facade is IntakeFacade.
type Facade[T any] struct {
	ownID nodeid.ID
	role  nodeid.Role
	cfg   clientpool.Config

	replicas *replicaintake.Intake[T]
	clients  *clientpool.Group[T] // nil unless role == nodeid.Replica

	loopback sink.PeerSink[T]
}

// New constructs a Facade for a node identified by ownID with the given
// role. A ClientPoolGroup is only created for replica nodes; client nodes
// have no downstream clients of their own to multiplex.
func New[T any](ownID nodeid.ID, role nodeid.Role, cfg clientpool.Config) *Facade[T] {
	f := &Facade[T]{
		ownID:    ownID,
		role:     role,
		cfg:      cfg,
		replicas: replicaintake.New[T](),
	}
	f.loopback = f.replicas.Register(ownID)

	if role == nodeid.Replica {
		f.clients = clientpool.New[T](cfg)
	}
	return f
}

// EnsureSink creates and returns a new sink for peer, dispatching to
// ReplicaIntake or the ClientPoolGroup by role. If peer already had a sink,
// that sink is disconnected and replaced. Called once per accepted connection.
func (f *Facade[T]) EnsureSink(peer nodeid.ID, role nodeid.Role) sink.PeerSink[T] {
	if role == nodeid.Replica {
		return f.replicas.Register(peer)
	}
	if f.clients == nil {
		// A client-role node has no ClientPoolGroup to accept a client
		// connection into; asking it to is a caller programming error.
		panic(ErrNoClientIntake)
	}
	return f.clients.RegisterClient(peer)
}

// ResolveSink returns the sink already associated with peer, used to
// re-associate an additional transport stream with an existing peer. It
// returns the loopback sink when peer is this node's own id.
func (f *Facade[T]) ResolveSink(peer nodeid.ID, role nodeid.Role) (sink.PeerSink[T], bool) {
	if peer == f.ownID {
		return f.loopback, true
	}
	if role == nodeid.Replica {
		return f.replicas.Lookup(peer)
	}
	if f.clients == nil {
		return nil, false
	}
	return f.clients.Lookup(peer)
}

// Loopback returns the Direct sink registered for this node's own id, used
// for messages a node addresses to itself.
func (f *Facade[T]) Loopback() sink.PeerSink[T] {
	return f.loopback
}

// ReceiveFromReplicas blocks for the next replica message up to timeout
// (nil blocks indefinitely).
func (f *Facade[T]) ReceiveFromReplicas(timeout *time.Duration) (T, bool) {
	return f.replicas.Receive(timeout)
}

// ReceiveFromClients blocks up to timeout for the next sealed client batch.
// A timeout is not an error: it yields an empty batch, since "no traffic"
// is itself meaningful to the consumer.
func (f *Facade[T]) ReceiveFromClients(timeout *time.Duration) ([]T, error) {
	if f.clients == nil {
		return nil, ErrNoClientIntake
	}
	batch, ok := f.clients.ReceiveBatch(timeout)
	if !ok {
		return []T{}, nil
	}
	metrics.MeasureSince(BatchPassingTime, batch.Created)
	return batch.Messages, nil
}

// TryReceiveFromClients returns a pending batch without blocking. ok is
// false when no batch is currently available.
func (f *Facade[T]) TryReceiveFromClients() (msgs []T, ok bool, err error) {
	if f.clients == nil {
		return nil, false, ErrNoClientIntake
	}
	batch, present := f.clients.TryReceiveBatch()
	if !present {
		return nil, false, nil
	}
	metrics.MeasureSince(BatchPassingTime, batch.Created)
	return batch.Messages, true, nil
}

// PendingClientBatches reports how many sealed batches await delivery. It
// is zero for a client-role node.
func (f *Facade[T]) PendingClientBatches() int {
	if f.clients == nil {
		return 0
	}
	return f.clients.PendingBatches()
}

// PendingReplicaMessages reports how many replica messages are queued.
func (f *Facade[T]) PendingReplicaMessages() int {
	return f.replicas.Pending()
}

// ConnectedClients reports the number of connected clients. ok is false
// when this node is a client and therefore has no clients of its own.
func (f *Facade[T]) ConnectedClients() (count int, ok bool) {
	if f.clients == nil {
		return 0, false
	}
	return f.clients.ConnectedClients(), true
}

// ConnectedReplicas reports the number of connected replica peers.
func (f *Facade[T]) ConnectedReplicas() int {
	return f.replicas.ConnectedReplicas()
}

// BatchSize returns the configured target batch size, a convenience getter
// for protocol code that sizes its own buffers off the configured value.
func (f *Facade[T]) BatchSize() int {
	return f.cfg.BatchSize
}
