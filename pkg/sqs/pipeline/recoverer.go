package pipeline

import (
	"context"
	"runtime/debug"

	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"
	"github.com/sirupsen/logrus"
)

// Recoverer turns a panicking handler into a *sqs.PanicError, so the message
// goes through the result handler like any other failure.
func Recoverer(logger logrus.FieldLogger) sqs.Middleware {
	return func(next sqs.ConsumerFunc) sqs.ConsumerFunc {
		return func(ctx context.Context, msg *sqs.Message) (res interface{}, err error) {
			defer func() {
				if rvr := recover(); rvr != nil {
					stack := debug.Stack()
					logger.WithFields(logrus.Fields{
						"MessageId": msg.ID(),
						"Panic":     rvr,
					}).Error(string(stack))
					res, err = nil, &sqs.PanicError{Value: rvr, Stack: stack}
				}
			}()
			return next(ctx, msg)
		}
	}
}
