package pipeline

import (
	"context"
	"time"

	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"
	"github.com/sirupsen/logrus"
)

func Logger(logger logrus.FieldLogger) sqs.Middleware {
	return func(next sqs.ConsumerFunc) sqs.ConsumerFunc {
		return func(ctx context.Context, msg *sqs.Message) (interface{}, error) {

			start := time.Now()
			res, err := next(ctx, msg)

			elapsed := time.Since(start)

			entry := logger.WithFields(logrus.Fields{
				"Duration":  elapsed,
				"MessageId": msg.ID(),
				"Queue":     msg.Queue().Name,
			})
			if group := msg.GroupID(); group != "" {
				entry = entry.WithField("GroupId", group)
			}

			if err != nil {
				entry.WithError(err).Warn("Failed to handle message")
				return res, err
			}
			entry.Info("Handled message")

			return res, nil
		}
	}
}
