package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	jsoniter "github.com/json-iterator/go"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type TestMessageHandler struct {
	logger logrus.FieldLogger
	delay  time.Duration
}

type TestMessage struct {
	Foo string `json:"foo"`
}

// NewTestMessageHandler simulates work by waiting delay before completing
// every message.
func NewTestMessageHandler(logger logrus.FieldLogger, delay time.Duration) *TestMessageHandler {
	return &TestMessageHandler{
		logger: logger.WithField("src", "TestMessageHandler"),
		delay:  delay,
	}
}

func (h *TestMessageHandler) Handle(ctx context.Context, msg *sqs.Message) (interface{}, error) {
	tm := &TestMessage{}
	err := json.UnmarshalFromString(aws.StringValue(msg.Raw().Body), tm)

	if err != nil {
		h.logger.WithError(err).Error("Error deserialising event")
		return nil, fmt.Errorf("test message %s: %w", msg.ID(), err)
	}

	if h.delay > 0 {
		h.logger.WithField("Delay", h.delay).Debug("Simulating delay")
		select {
		case <-time.After(h.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	h.logger.WithFields(logrus.Fields{
		"MessageId": msg.ID(),
		"Foo":       tm.Foo,
	}).Info("Completed event")
	return tm, nil
}
