package clientpool

import (
	"context"
	"math/rand"
	"runtime"
	"runtime/pprof"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nodeware/peerintake/pkg/metrics"
	"github.com/nodeware/peerintake/pkg/sink"
)

// CollectDuration is the metrics key recorded once per collect cycle.
var CollectDuration = []string{"peerintake", "clientpool", "collect_duration"}

// Pool is a ClientPool: a cohort of up to Config.MaxClients Pooled sinks
// drained round-robin by one dedicated batch worker goroutine.
type Pool[T any] struct {
	id     int
	group  *Group[T]
	cfg    Config
	output chan<- Batch[T]

	mu    sync.Mutex
	sinks []sink.PeerSink[T]

	terminated atomic.Bool
}

func newPool[T any](id int, group *Group[T], cfg Config, output chan<- Batch[T]) *Pool[T] {
	return &Pool[T]{id: id, group: group, cfg: cfg, output: output}
}

// tryAdd appends s if the pool has room, reporting whether it did.
func (p *Pool[T]) tryAdd(s sink.PeerSink[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sinks) >= p.cfg.MaxClients {
		return false
	}
	p.sinks = append(p.sinks, s)
	return true
}

// start launches the batch worker goroutine, one per pool, labeled with its
// pool id so a stuck worker is identifiable in a goroutine dump or pprof
// profile without guessing which pool owns it.
func (p *Pool[T]) start() {
	labels := pprof.Labels("peerintake_component", "clientpool_worker", "pool_id", strconv.Itoa(p.id))
	go pprof.Do(context.Background(), labels, func(context.Context) { p.run() })
}

func (p *Pool[T]) terminate() {
	p.terminated.Store(true)
}

func (p *Pool[T]) run() {
	for {
		if p.terminated.Load() {
			return
		}

		batch, err := p.collect()
		if len(batch.Messages) > 0 {
			// Blocking send is intentional: a slow consumer must throttle
			// every pool feeding it, not just this one.
			p.output <- batch
		}
		if err == errClosePool {
			p.group.deletePool(p.id)
			return
		}

		p.sleep()
	}
}

func (p *Pool[T]) sleep() {
	base := p.cfg.BatchSleep
	jitter := 0.75 + rand.Float64()*0.5 // uniform in [0.75, 1.25]
	time.Sleep(time.Duration(float64(base) * jitter))
}

// collect drains every live sink in round-robin order, starting from a
// random index, until the accumulated batch meets the target size or the
// timeout elapses, both checked only at revolution boundaries so that every
// live client is visited at least once before the batch is sealed. It
// returns errClosePool if the pool had no sinks to begin with, or ends up
// with none after reaping dead ones; a non-empty batch accompanying that
// error is still deliverable and the caller must send it before closing.
func (p *Pool[T]) collect() (Batch[T], error) {
	start := time.Now()

	p.mu.Lock()
	snapshot := make([]sink.PeerSink[T], len(p.sinks))
	copy(snapshot, p.sinks)
	p.mu.Unlock()

	n := len(snapshot)
	if n == 0 {
		return Batch[T]{}, errClosePool
	}

	startIdx := rand.Intn(n)
	target := p.cfg.BatchSize

	var messages []T
	var replacement []T
	var dead []sink.PeerSink[T]
	deadSeen := make(map[sink.PeerSink[T]]struct{})
	markDead := func(s sink.PeerSink[T]) {
		if _, seen := deadSeen[s]; seen {
			return
		}
		deadSeen[s] = struct{}{}
		dead = append(dead, s)
	}

	for i := 0; ; i++ {
		s := snapshot[(startIdx+i)%n]
		if s.IsDisconnected() {
			markDead(s)
		} else if drainer, ok := s.(sink.Drainer[T]); ok {
			drained, derr := drainer.Drain(replacement)
			if derr != nil {
				markDead(s)
			} else {
				messages = append(messages, drained...)
				replacement = drained[:0]
			}
		}

		if (i+1)%n == 0 {
			if len(messages) >= target || time.Since(start) >= p.cfg.BatchTimeout {
				break
			}
			runtime.Gosched()
		}
	}

	metrics.MeasureSince(CollectDuration, start)

	batch := Batch[T]{Messages: messages, Created: time.Now()}

	if len(dead) > 0 {
		if p.reap(dead) {
			return batch, errClosePool
		}
	}
	return batch, nil
}

// reap removes dead sinks from the sink list by filtering them out in
// place, then tells the owning group to drop them from its cache and
// client count. It matches by sink identity rather than peer id: a
// disconnected sink that has since been replaced by a live re-registration
// under the same peer id must not cause reap to evict the live one, since
// both would otherwise collide on PeerID(). It reports whether the pool is
// empty afterward.
func (p *Pool[T]) reap(dead []sink.PeerSink[T]) (empty bool) {
	deadSet := make(map[sink.PeerSink[T]]struct{}, len(dead))
	for _, s := range dead {
		deadSet[s] = struct{}{}
	}

	p.mu.Lock()
	kept := p.sinks[:0]
	for _, s := range p.sinks {
		if _, isDead := deadSet[s]; isDead {
			continue
		}
		kept = append(kept, s)
	}
	p.sinks = kept
	empty = len(p.sinks) == 0
	p.mu.Unlock()

	p.group.purgeCached(dead)
	return empty
}
