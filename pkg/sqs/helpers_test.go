package sqs

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/internal/sqstest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func nullLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

// newTestQueue creates a queue in the fake and resolves it.
func newTestQueue(t *testing.T, fake *sqstest.Fake, name string, attributes map[string]string) *QueueInfo {
	t.Helper()
	fake.AddQueue(name, attributes)
	info, err := NewDirectory(fake, nullLogger()).GetInfo(context.Background(), name, "")
	require.NoError(t, err)
	return info
}

// receiveOne receives a single message of queue through the fake.
func receiveOne(t *testing.T, fake *sqstest.Fake, converter *Converter, queue *QueueInfo) *Message {
	t.Helper()
	out, err := fake.ReceiveMessageWithContext(context.Background(), receiveInput(queue, 1))
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	msg, err := converter.FromRawMessage(out.Messages[0], queue)
	require.NoError(t, err)
	return msg
}

func receiveInput(queue *QueueInfo, n int64) *awssqs.ReceiveMessageInput {
	return &awssqs.ReceiveMessageInput{
		QueueUrl:              aws.String(queue.URL),
		AttributeNames:        allAttributes,
		MessageAttributeNames: allAttributes,
		MaxNumberOfMessages:   aws.Int64(n),
		WaitTimeSeconds:       aws.Int64(0),
	}
}
