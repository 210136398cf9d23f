package clientpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nodeware/peerintake/pkg/nodeid"
	"github.com/nodeware/peerintake/pkg/sink"
)

// Group is ClientPoolGroup: the directory and lifecycle manager for every
// ClientPool belonging to one node, plus the single batch output channel
// every pool's worker feeds.
type Group[T any] struct {
	cfg    Config
	output chan Batch[T]

	mu     sync.Mutex
	pools  map[int]*Pool[T]
	order  []int // pool ids in ascending allocation order, kept in sync with pools
	nextID int

	cacheMu sync.RWMutex
	cache   map[nodeid.ID]sink.PeerSink[T]

	totalClients atomic.Int64
}

// New constructs an empty ClientPoolGroup. The output channel's capacity is
// cfg.BatchOutputSize; a bounded channel is what makes a blocking send from
// a pool's worker into a real producer-throttling mechanism.
func New[T any](cfg Config) *Group[T] {
	return &Group[T]{
		cfg:    cfg,
		output: make(chan Batch[T], cfg.BatchOutputSize),
		pools:  make(map[int]*Pool[T]),
		cache:  make(map[nodeid.ID]sink.PeerSink[T]),
	}
}

// RegisterClient builds a Pooled sink for peer, places it in the first pool
// with room (pools are tried in ascending id order), spawning a new pool if
// none has room, and returns the sink. Re-registering an already-present
// peer is idempotent in directory size: the client count is only
// incremented for a genuinely new peer id.
func (g *Group[T]) RegisterClient(peer nodeid.ID) sink.PeerSink[T] {
	s := sink.NewPooled[T](peer, g.cfg.ClientBufferSize)

	g.cacheMu.Lock()
	old, existed := g.cache[peer]
	g.cache[peer] = s
	g.cacheMu.Unlock()
	if existed {
		// Reaped lazily by its pool's worker on the next dead revolution;
		// reap matches by sink identity, not peer id, so this does not
		// disturb the live sink just installed above under the same id.
		old.Disconnect()
	} else {
		g.totalClients.Add(1)
	}

	g.mu.Lock()
	for _, id := range g.order {
		if g.pools[id].tryAdd(s) {
			g.mu.Unlock()
			return s
		}
	}

	id, err := g.allocatePoolIDLocked()
	if err != nil {
		g.mu.Unlock()
		// CannotAllocatePoolId is the one error the design promotes to
		// fatal: the pool-id space is exhausted, which can only happen
		// under catastrophic misconfiguration.
		panic(err)
	}
	pool := newPool[T](id, g, g.cfg, g.output)
	if !pool.tryAdd(s) {
		g.mu.Unlock()
		panic("clientpool: newly created pool rejected its first sink")
	}
	g.pools[id] = pool
	g.order = append(g.order, id)
	g.mu.Unlock()

	pool.start()
	return s
}

// allocatePoolIDLocked must be called with g.mu held. It searches up to
// maxPoolIDAttempts counter values for one absent from the directory,
// guarding against a livelock if the counter ever wraps back over ids
// still in use.
func (g *Group[T]) allocatePoolIDLocked() (int, error) {
	for attempt := 0; attempt < maxPoolIDAttempts; attempt++ {
		g.nextID++
		if _, exists := g.pools[g.nextID]; !exists {
			return g.nextID, nil
		}
	}
	return 0, ErrCannotAllocatePoolID
}

// deletePool removes id from the directory and signals its worker to
// terminate. Safe to call even if id is already gone.
func (g *Group[T]) deletePool(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pools[id]
	if !ok {
		return
	}
	p.terminate()
	delete(g.pools, id)
	for i, pid := range g.order {
		if pid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// purgeCached drops dead's entries from the cache, but only when the cache
// still points at that exact dead sink: a peer id whose cache entry has
// since been replaced by a live re-registration must keep its slot and its
// count, since the dead sink being reaped here is a stale leftover, not the
// client's current connection. The client count is decremented once per
// entry actually removed. Called by a pool after reaping dead sinks.
func (g *Group[T]) purgeCached(dead []sink.PeerSink[T]) {
	if len(dead) == 0 {
		return
	}
	removed := 0
	g.cacheMu.Lock()
	for _, s := range dead {
		if cur, ok := g.cache[s.PeerID()]; ok && cur == s {
			delete(g.cache, s.PeerID())
			removed++
		}
	}
	g.cacheMu.Unlock()
	if removed > 0 {
		g.totalClients.Add(-int64(removed))
	}
}

// Lookup returns the sink cached for peer, if any.
func (g *Group[T]) Lookup(peer nodeid.ID) (sink.PeerSink[T], bool) {
	g.cacheMu.RLock()
	defer g.cacheMu.RUnlock()
	s, ok := g.cache[peer]
	return s, ok
}

// ConnectedClients reports the number of live cache entries.
func (g *Group[T]) ConnectedClients() int {
	return int(g.totalClients.Load())
}

// PendingBatches reports how many sealed batches are waiting on the output
// channel.
func (g *Group[T]) PendingBatches() int {
	return len(g.output)
}

// ReceiveBatch blocks for the next sealed batch up to timeout (nil blocks
// indefinitely), returning ok=false on timeout.
func (g *Group[T]) ReceiveBatch(timeout *time.Duration) (Batch[T], bool) {
	if timeout == nil {
		return <-g.output, true
	}
	timer := time.NewTimer(*timeout)
	defer timer.Stop()
	select {
	case b := <-g.output:
		return b, true
	case <-timer.C:
		return Batch[T]{}, false
	}
}

// TryReceiveBatch returns a pending batch without blocking.
func (g *Group[T]) TryReceiveBatch() (Batch[T], bool) {
	select {
	case b := <-g.output:
		return b, true
	default:
		return Batch[T]{}, false
	}
}

// PoolCount reports how many pools currently exist, used by tests to check
// pool-spawn boundary behavior.
func (g *Group[T]) PoolCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pools)
}
