package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeware/peerintake/pkg/clientpool"
	"github.com/nodeware/peerintake/pkg/nodeid"
)

func testConfig() clientpool.Config {
	return clientpool.Config{
		MaxClients:       4,
		BatchSize:        5,
		BatchTimeout:     10 * time.Millisecond,
		BatchSleep:       5 * time.Millisecond,
		ClientBufferSize: 32,
		BatchOutputSize:  8,
	}
}

// A replica resolving its own id gets the loopback sink, and messages
// pushed on it surface through ReceiveFromReplicas.
func TestLoopback(t *testing.T) {
	f := New[string](7, nodeid.Replica, testConfig())

	s, ok := f.ResolveSink(7, nodeid.Replica)
	require.True(t, ok)
	assert.Same(t, f.Loopback(), s)

	require.NoError(t, s.Push("to-myself"))
	msg, ok := f.ReceiveFromReplicas(nil)
	require.True(t, ok)
	assert.Equal(t, "to-myself", msg)
}

func TestEnsureSink_DispatchesByRole(t *testing.T) {
	f := New[int](1, nodeid.Replica, testConfig())

	replicaSink := f.EnsureSink(2, nodeid.Replica)
	assert.Equal(t, nodeid.ID(2), replicaSink.PeerID())
	assert.Equal(t, 0, f.PendingClientBatches())

	clientSink := f.EnsureSink(1001, nodeid.Client)
	assert.Equal(t, nodeid.ID(1001), clientSink.PeerID())
	count, ok := f.ConnectedClients()
	require.True(t, ok)
	assert.Equal(t, 1, count)
}

func TestClientNode_HasNoClientIntake(t *testing.T) {
	f := New[int](1, nodeid.Client, testConfig())

	_, ok := f.ConnectedClients()
	assert.False(t, ok)

	_, err := f.ReceiveFromClients(nil)
	assert.ErrorIs(t, err, ErrNoClientIntake)

	_, _, err = f.TryReceiveFromClients()
	assert.ErrorIs(t, err, ErrNoClientIntake)

	assert.Panics(t, func() {
		f.EnsureSink(1001, nodeid.Client)
	})
}

func TestReceiveFromClients_EmptyBatchOnTimeout(t *testing.T) {
	f := New[int](1, nodeid.Replica, testConfig())
	timeout := 5 * time.Millisecond
	msgs, err := f.ReceiveFromClients(&timeout)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestBatchSize_Getter(t *testing.T) {
	cfg := testConfig()
	f := New[int](1, nodeid.Replica, cfg)
	assert.Equal(t, cfg.BatchSize, f.BatchSize())
}
