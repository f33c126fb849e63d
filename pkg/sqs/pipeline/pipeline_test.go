package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(t *testing.T, group string) *sqs.Message {
	raw := &awssqs.Message{
		MessageId: aws.String("message-1"),
		Body:      aws.String(`"body"`),
	}
	if group != "" {
		raw.Attributes = map[string]*string{"MessageGroupId": aws.String(group)}
	}
	msg, err := sqs.NewConverter(nil).FromRawMessage(raw, &sqs.QueueInfo{Name: "orders"})
	require.NoError(t, err)
	return msg
}

func TestLogger(t *testing.T) {
	// arrange
	logger, hook := test.NewNullLogger()
	handler := Logger(logger)(func(ctx context.Context, msg *sqs.Message) (interface{}, error) {
		return "result", nil
	})

	// act
	res, err := handler(context.Background(), testMessage(t, "group1"))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "result", res)
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Handled message", entry.Message)
	assert.Equal(t, "message-1", entry.Data["MessageId"])
	assert.Equal(t, "orders", entry.Data["Queue"])
	assert.Equal(t, "group1", entry.Data["GroupId"])
	assert.Contains(t, entry.Data, "Duration")
}

func TestLoggerFailure(t *testing.T) {
	// arrange
	logger, hook := test.NewNullLogger()
	boom := errors.New("boom")
	handler := Logger(logger)(func(ctx context.Context, msg *sqs.Message) (interface{}, error) {
		return nil, boom
	})

	// act
	_, err := handler(context.Background(), testMessage(t, ""))

	// assert
	assert.Same(t, boom, err)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, boom, entry.Data[logrus.ErrorKey])
	assert.NotContains(t, entry.Data, "GroupId")
}

func TestRecoverer(t *testing.T) {
	// arrange
	logger, hook := test.NewNullLogger()
	handler := Recoverer(logger)(func(ctx context.Context, msg *sqs.Message) (interface{}, error) {
		panic("kaboom")
	})

	// act
	res, err := handler(context.Background(), testMessage(t, ""))

	// assert
	assert.Nil(t, res)
	var perr *sqs.PanicError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "kaboom", perr.Value)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "kaboom", hook.LastEntry().Data["Panic"])
}

func TestRecovererPassesThrough(t *testing.T) {
	// arrange
	logger, hook := test.NewNullLogger()
	handler := Recoverer(logger)(func(ctx context.Context, msg *sqs.Message) (interface{}, error) {
		return 1, nil
	})

	// act
	res, err := handler(context.Background(), testMessage(t, ""))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, res)
	assert.Empty(t, hook.Entries)
}

func TestTimeout(t *testing.T) {
	// arrange
	handler := Timeout(10 * time.Millisecond)(func(ctx context.Context, msg *sqs.Message) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	// act
	_, err := handler(context.Background(), testMessage(t, ""))

	// assert
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestTimeoutSetsDeadline(t *testing.T) {
	// arrange
	var deadline time.Time
	var ok bool
	handler := Timeout(time.Minute)(func(ctx context.Context, msg *sqs.Message) (interface{}, error) {
		deadline, ok = ctx.Deadline()
		return nil, nil
	})

	// act
	_, err := handler(context.Background(), testMessage(t, ""))

	// assert
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)
}
