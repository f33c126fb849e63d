package pipeline

import (
	"context"
	"time"

	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"
)

// Timeout cancels the handler context after d. Handlers must watch ctx for it
// to have any effect.
func Timeout(d time.Duration) sqs.Middleware {
	return func(next sqs.ConsumerFunc) sqs.ConsumerFunc {
		return func(ctx context.Context, msg *sqs.Message) (interface{}, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, msg)
		}
	}
}
