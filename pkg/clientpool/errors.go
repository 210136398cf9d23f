package clientpool

import "errors"

// ErrCannotAllocatePoolID is the value Group.RegisterClient panics with when
// the pool-id search exceeds maxPoolIDAttempts. The design notes call this
// fatal: a caller observing it should treat the group as unusable and
// terminate the process rather than retry.
var ErrCannotAllocatePoolID = errors.New("clientpool: cannot allocate pool id")

// errClosePool is collect's internal self-destruction signal. It never
// escapes this package; the batch worker that sees it calls the owning
// group's deletePool and exits.
var errClosePool = errors.New("clientpool: pool has no live sinks")
