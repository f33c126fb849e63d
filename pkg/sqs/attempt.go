package sqs

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// NewAttemptIDGenerator returns a generator of receive request attempt ids: a
// random prefix shared by the generator followed by a monotonic counter.
func NewAttemptIDGenerator() func() string {
	prefix := uuid.NewString() + "-"
	var attempt uint64
	return func() string {
		n := atomic.AddUint64(&attempt, 1) - 1
		return prefix + strconv.FormatUint(n, 10)
	}
}
