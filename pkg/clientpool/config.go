// Package clientpool implements ClientPool and ClientPoolGroup: the
// round-robin batching layer that multiplexes client peers into bounded
// batches for the upstream protocol consumer.
package clientpool

import "time"

// Config is the plain, dependency-free tuning surface for a ClientPoolGroup.
// pkg/config projects viper/cobra-loaded Settings onto this struct; library
// embedders that don't want a CLI layer can build one directly.
type Config struct {
	// MaxClients bounds pool membership (K in the design notes).
	MaxClients int
	// BatchSize is the target message count per emitted batch. A hint, not
	// a hard cap: a single revolution can overshoot it.
	BatchSize int
	// BatchTimeout bounds how long collect spends sealing one batch.
	BatchTimeout time.Duration
	// BatchSleep is the nominal pause between a worker's collect cycles;
	// the actual sleep is drawn uniformly from [0.75, 1.25] * BatchSleep.
	BatchSleep time.Duration
	// ClientBufferSize is the capacity hint for a new client's Pooled sink
	// buffer and for collect's recycled replacement buffer.
	ClientBufferSize int
	// BatchOutputSize is the capacity of the channel batches are delivered
	// on; a bounded channel makes a blocking send the producer-throttling
	// mechanism the design calls for.
	BatchOutputSize int
}

// maxPoolIDAttempts bounds allocatePoolIDLocked's search for a free id. Exceeding
// it means the counter has wrapped into a directory that is still using
// every value in range, a condition severe enough to be fatal rather than
// retried indefinitely.
const maxPoolIDAttempts = 100
