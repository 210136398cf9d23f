package replicaintake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeware/peerintake/pkg/nodeid"
)

func TestRegister_NewPeer_IncrementsCount(t *testing.T) {
	in := New[string]()
	assert.Equal(t, 0, in.ConnectedReplicas())

	s := in.Register(1)
	require.NoError(t, s.Push("hello"))
	assert.Equal(t, 1, in.ConnectedReplicas())

	got, ok := in.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, nodeid.ID(1), got.PeerID())
}

func TestRegister_ExistingPeer_DisconnectsOldAndDoesNotDoubleCount(t *testing.T) {
	in := New[string]()

	first := in.Register(5)
	assert.Equal(t, 1, in.ConnectedReplicas())

	second := in.Register(5)
	assert.Equal(t, 1, in.ConnectedReplicas(), "re-registering an existing peer must not bump the count")
	assert.True(t, first.IsDisconnected(), "the prior sink must be disconnected on reinsert")

	require.NoError(t, second.Push("from-new-sink"))
	msg, ok := in.Receive(nil)
	require.True(t, ok)
	assert.Equal(t, "from-new-sink", msg)
}

func TestReceive_OrderAndTimeout(t *testing.T) {
	in := New[int]()
	s := in.Register(1)

	require.NoError(t, s.Push(1))
	require.NoError(t, s.Push(2))
	require.NoError(t, s.Push(3))

	for _, want := range []int{1, 2, 3} {
		got, ok := in.Receive(nil)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	timeout := 5 * time.Millisecond
	_, ok := in.Receive(&timeout)
	assert.False(t, ok, "receive on an empty queue must time out, not block forever")
}

func TestReceive_BlocksUntilConcurrentPush(t *testing.T) {
	in := New[string]()
	s := in.Register(42)

	done := make(chan string, 1)
	go func() {
		msg, ok := in.Receive(nil)
		if ok {
			done <- msg
		} else {
			done <- ""
		}
	}()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Push("woke-up"))

	select {
	case msg := <-done:
		assert.Equal(t, "woke-up", msg)
	case <-time.After(time.Second):
		t.Fatal("receive never returned after a concurrent push")
	}
}

func TestPending(t *testing.T) {
	in := New[int]()
	s := in.Register(1)
	assert.Equal(t, 0, in.Pending())

	require.NoError(t, s.Push(1))
	require.NoError(t, s.Push(2))
	assert.Equal(t, 2, in.Pending())

	_, ok := in.Receive(nil)
	require.True(t, ok)
	assert.Equal(t, 1, in.Pending())
}
