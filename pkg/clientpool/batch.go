package clientpool

import "time"

// Batch is an ordered list of client messages sealed together by one
// collect cycle, paired with the instant it was sealed.
type Batch[T any] struct {
	Messages []T
	Created  time.Time
}
