package sqs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/internal/sqstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resultFixture struct {
	fake      *sqstest.Fake
	converter *Converter
	queue     *QueueInfo
	settled   []EventKind
}

func newResultFixture(t *testing.T) *resultFixture {
	fake := sqstest.New()
	f := &resultFixture{
		fake:      fake,
		converter: NewConverter(nil),
		queue:     newTestQueue(t, fake, "results", nil),
	}
	_, err := NewPublisher(fake, f.converter, f.queue, nullLogger()).Publish(context.Background(), &Input{Body: "payload"})
	require.NoError(t, err)
	return f
}

func (f *resultFixture) context(t *testing.T, deadLetter *Publisher) *ResultContext {
	msg := receiveOne(t, f.fake, f.converter, f.queue)
	return newResultContext(f.fake, msg, deadLetter, func(kind EventKind) {
		f.settled = append(f.settled, kind)
	})
}

func TestAck(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)

	// act
	err := rc.Ack(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, rc.Settled())
	assert.Equal(t, []EventKind{EventConsumed}, f.settled)
	assert.Equal(t, 0, f.fake.Stored("results"))
}

func TestReject(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)

	// act
	err := rc.Reject(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventRejected}, f.settled)
	assert.Equal(t, 0, f.fake.InFlight("results"))
	again := receiveOne(t, f.fake, f.converter, f.queue)
	assert.Equal(t, 2, again.ApproximateReceiveCount())
}

func TestRetry(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)

	// act
	err := rc.Retry(context.Background(), time.Minute)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventDelayedRetry}, f.settled)
	calls := f.fake.Calls(sqstest.OpChangeMessageVisibility)
	require.Len(t, calls, 1)
	assert.Equal(t, int64(60), aws.Int64Value(calls[0].(*awssqs.ChangeMessageVisibilityInput).VisibilityTimeout))
	assert.Equal(t, 1, f.fake.InFlight("results"))
}

func TestRetryDelayOutOfRange(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)

	// act
	negative := rc.Retry(context.Background(), -time.Second)
	tooLong := rc.Retry(context.Background(), 13*time.Hour)

	// assert
	var verr *ValidationError
	assert.True(t, errors.As(negative, &verr))
	assert.True(t, errors.As(tooLong, &verr))
	assert.False(t, rc.Settled())
	assert.Empty(t, f.fake.Calls(sqstest.OpChangeMessageVisibility))
}

func TestSettleTwice(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)
	require.NoError(t, rc.Ack(context.Background()))

	// act
	err := rc.Reject(context.Background())

	// assert
	var serr *MessageStateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "cannot reject message, it has already been consumed", serr.Error())
	assert.Equal(t, []EventKind{EventConsumed}, f.settled)
}

func TestFailedSettleCanBeRetried(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)
	f.fake.InjectError(sqstest.OpDeleteMessage, awserr.New("ServiceUnavailable", "down", nil))

	// act
	first := rc.Ack(context.Background())
	second := rc.Reject(context.Background())

	// assert
	assert.Error(t, first)
	assert.NoError(t, second)
	assert.Equal(t, []EventKind{EventRejected}, f.settled)
}

func TestAbandon(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)
	released := 0

	// act
	rc.abandon(func() { released++ })
	err := rc.Ack(context.Background())

	// assert
	assert.Equal(t, 1, released)
	var serr *MessageStateError
	assert.True(t, errors.As(err, &serr))
	assert.Empty(t, f.settled)
}

func TestAbandonSettled(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)
	require.NoError(t, rc.Ack(context.Background()))
	released := 0

	// act
	rc.abandon(func() { released++ })

	// assert
	assert.Equal(t, 0, released)
}

// stalledDelete holds every delete call until release is closed.
type stalledDelete struct {
	*sqstest.Fake
	entered chan struct{}
	release chan struct{}
}

func (s *stalledDelete) DeleteMessageWithContext(ctx aws.Context, in *awssqs.DeleteMessageInput, opts ...request.Option) (*awssqs.DeleteMessageOutput, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.Fake.DeleteMessageWithContext(ctx, in, opts...)
}

func TestAbandonWhileSettlingReleasesOnFailure(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	msg := receiveOne(t, f.fake, f.converter, f.queue)
	client := &stalledDelete{Fake: f.fake, entered: make(chan struct{}, 1), release: make(chan struct{})}
	rc := newResultContext(client, msg, nil, func(kind EventKind) {
		f.settled = append(f.settled, kind)
	})
	f.fake.InjectError(sqstest.OpDeleteMessage, awserr.New("ServiceUnavailable", "down", nil))

	acked := make(chan error, 1)
	go func() { acked <- rc.Ack(context.Background()) }()
	<-client.entered
	released := 0

	// act
	rc.abandon(func() { released++ })
	pending := released
	close(client.release)
	err := <-acked

	// assert
	assert.Equal(t, 0, pending)
	assert.Error(t, err)
	assert.Equal(t, 1, released)
	assert.Empty(t, f.settled)
	var serr *MessageStateError
	assert.True(t, errors.As(rc.Reject(context.Background()), &serr))
}

func TestAbandonWhileSettlingKeepsSuccess(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	msg := receiveOne(t, f.fake, f.converter, f.queue)
	client := &stalledDelete{Fake: f.fake, entered: make(chan struct{}, 1), release: make(chan struct{})}
	rc := newResultContext(client, msg, nil, func(kind EventKind) {
		f.settled = append(f.settled, kind)
	})

	acked := make(chan error, 1)
	go func() { acked <- rc.Ack(context.Background()) }()
	<-client.entered
	released := 0

	// act
	rc.abandon(func() { released++ })
	close(client.release)
	err := <-acked

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Equal(t, []EventKind{EventConsumed}, f.settled)
}

func TestDeadLetter(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	dlq := NewPublisher(f.fake, f.converter, newTestQueue(t, f.fake, "results-dlq", nil), nullLogger())
	rc := f.context(t, dlq)

	// act
	err := rc.DeadLetter(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventDeadLettered}, f.settled)
	assert.Equal(t, 0, f.fake.Stored("results"))
	assert.Equal(t, []string{`"payload"`}, f.fake.Bodies("results-dlq"))
}

func TestDeadLetterWithoutQueue(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	rc := f.context(t, nil)

	// act
	err := rc.DeadLetter(context.Background())

	// assert
	assert.True(t, errors.Is(err, ErrNoDeadLetterQueue))
	assert.False(t, rc.Settled())
}

func TestDefaultResultHandler(t *testing.T) {
	// arrange
	ok := newResultFixture(t)
	failed := newResultFixture(t)
	okContext := ok.context(t, nil)
	failedContext := failed.context(t, nil)

	// act
	require.NoError(t, DefaultResultHandler(context.Background(), okContext, nil, nil))
	require.NoError(t, DefaultResultHandler(context.Background(), failedContext, nil, errors.New("boom")))

	// assert
	assert.Equal(t, []EventKind{EventConsumed}, ok.settled)
	assert.Equal(t, []EventKind{EventRejected}, failed.settled)
}

func TestRetryPolicyResultHandler(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	handler := RetryPolicyResultHandler(0, time.Minute)

	// act
	first := f.context(t, nil)
	require.NoError(t, handler(context.Background(), first, nil, errors.New("boom")))
	second := f.context(t, nil)
	require.NoError(t, handler(context.Background(), second, nil, errors.New("boom")))

	// assert
	assert.Equal(t, []EventKind{EventDelayedRetry, EventDelayedRetry}, f.settled)
	calls := f.fake.Calls(sqstest.OpChangeMessageVisibility)
	require.Len(t, calls, 2)
	assert.Equal(t, int64(0), aws.Int64Value(calls[0].(*awssqs.ChangeMessageVisibilityInput).VisibilityTimeout))
	assert.Equal(t, int64(60), aws.Int64Value(calls[1].(*awssqs.ChangeMessageVisibilityInput).VisibilityTimeout))
}

func TestRetryPolicyExhausted(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	dlq := NewPublisher(f.fake, f.converter, newTestQueue(t, f.fake, "results-dlq", nil), nullLogger())
	handler := RetryPolicyResultHandler(0)
	require.NoError(t, handler(context.Background(), f.context(t, dlq), nil, errors.New("boom")))

	// act
	err := handler(context.Background(), f.context(t, dlq), nil, errors.New("boom"))

	// assert
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventDelayedRetry, EventDeadLettered}, f.settled)
	assert.Equal(t, 1, f.fake.Stored("results-dlq"))
}

func TestRetryPolicyExhaustedWithoutDeadLetterQueue(t *testing.T) {
	// arrange
	f := newResultFixture(t)
	handler := RetryPolicyResultHandler()

	// act
	err := handler(context.Background(), f.context(t, nil), nil, errors.New("boom"))

	// assert
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventRejected}, f.settled)
}
