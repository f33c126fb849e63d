package sqs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// maxVisibilityTimeout is the longest a message can be hidden by Retry.
const maxVisibilityTimeout = 12 * time.Hour

type resultState int

const (
	resultPending resultState = iota
	resultSettling
	resultSettled
	resultAbandoned
)

// ResultContext settles one received message. Exactly one of Ack, Reject,
// Retry or DeadLetter may succeed; later calls return a MessageStateError. A
// call whose wire request fails leaves the message unsettled so another
// outcome can be tried.
type ResultContext struct {
	client     sqsiface.SQSAPI
	message    *Message
	deadLetter *Publisher
	settle     func(EventKind)

	mu      sync.Mutex
	state   resultState
	outcome EventKind
	// set when the message was abandoned while a settlement was in progress
	release func()
}

func newResultContext(client sqsiface.SQSAPI, msg *Message, deadLetter *Publisher, settle func(EventKind)) *ResultContext {
	return &ResultContext{
		client:     client,
		message:    msg,
		deadLetter: deadLetter,
		settle:     settle,
	}
}

func (r *ResultContext) Message() *Message { return r.message }

// Ack deletes the message from the queue.
func (r *ResultContext) Ack(ctx context.Context) error {
	return r.transition(ctx, EventConsumed, func(ctx context.Context) error {
		_, err := r.client.DeleteMessageWithContext(ctx, &awssqs.DeleteMessageInput{
			QueueUrl:      aws.String(r.message.queue.URL),
			ReceiptHandle: r.message.raw.ReceiptHandle,
		})
		return err
	})
}

// Reject makes the message visible again immediately.
func (r *ResultContext) Reject(ctx context.Context) error {
	return r.transition(ctx, EventRejected, func(ctx context.Context) error {
		return r.changeVisibility(ctx, 0)
	})
}

// Retry makes the message visible again after delay.
func (r *ResultContext) Retry(ctx context.Context, delay time.Duration) error {
	if delay < 0 || delay > maxVisibilityTimeout {
		return &ValidationError{Field: "delay", Reason: fmt.Sprintf("must be between 0 and %s", maxVisibilityTimeout)}
	}
	return r.transition(ctx, EventDelayedRetry, func(ctx context.Context) error {
		return r.changeVisibility(ctx, delay)
	})
}

// DeadLetter republishes the message to the dead-letter queue and deletes it.
func (r *ResultContext) DeadLetter(ctx context.Context) error {
	if r.deadLetter == nil {
		return ErrNoDeadLetterQueue
	}
	return r.transition(ctx, EventDeadLettered, func(ctx context.Context) error {
		if _, err := r.deadLetter.Publish(ctx, r.message.ToInput(0)); err != nil {
			return err
		}
		_, err := r.client.DeleteMessageWithContext(ctx, &awssqs.DeleteMessageInput{
			QueueUrl:      aws.String(r.message.queue.URL),
			ReceiptHandle: r.message.raw.ReceiptHandle,
		})
		return err
	})
}

// Settled reports whether the message has been settled.
func (r *ResultContext) Settled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == resultSettled
}

func (r *ResultContext) changeVisibility(ctx context.Context, timeout time.Duration) error {
	_, err := r.client.ChangeMessageVisibilityWithContext(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(r.message.queue.URL),
		ReceiptHandle:     r.message.raw.ReceiptHandle,
		VisibilityTimeout: aws.Int64(int64(timeout / time.Second)),
	})
	return err
}

func (r *ResultContext) transition(ctx context.Context, next EventKind, op func(context.Context) error) error {
	r.mu.Lock()
	if r.state != resultPending {
		current := r.describe()
		r.mu.Unlock()
		return &MessageStateError{Next: verb(next), Current: current}
	}
	r.state = resultSettling
	r.mu.Unlock()

	if err := op(ctx); err != nil {
		r.mu.Lock()
		release := r.release
		r.release = nil
		if release != nil {
			r.state = resultAbandoned
		} else {
			r.state = resultPending
		}
		r.mu.Unlock()

		if release != nil {
			release()
		}
		return err
	}

	r.mu.Lock()
	r.state = resultSettled
	r.outcome = next
	r.mu.Unlock()

	r.settle(next)
	return nil
}

// abandon gives up on a message nobody settled and runs release. When a
// settlement is still in progress, release runs only if that settlement
// fails. Settled messages are left alone.
func (r *ResultContext) abandon(release func()) {
	r.mu.Lock()
	switch r.state {
	case resultPending:
		r.state = resultAbandoned
	case resultSettling:
		r.release = release
		r.mu.Unlock()
		return
	default:
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	release()
}

func (r *ResultContext) describe() string {
	switch r.state {
	case resultSettling:
		return "settling"
	case resultAbandoned:
		return "abandoned"
	}
	return r.outcome.String()
}

func verb(kind EventKind) string {
	switch kind {
	case EventConsumed:
		return "ack"
	case EventRejected:
		return "reject"
	case EventDelayedRetry:
		return "retry"
	case EventDeadLettered:
		return "dead-letter"
	}
	return kind.String()
}

// DefaultResultHandler acknowledges processed messages and rejects failed ones.
func DefaultResultHandler(ctx context.Context, rc *ResultContext, _ interface{}, err error) error {
	if err == nil {
		return rc.Ack(ctx)
	}
	return rc.Reject(ctx)
}

// RetryPolicyResultHandler acknowledges processed messages. Failed messages
// are retried after policy[receiveCount-1]; once the policy is exhausted they
// are dead-lettered when possible, rejected otherwise.
func RetryPolicyResultHandler(policy ...time.Duration) ResultHandler {
	return func(ctx context.Context, rc *ResultContext, _ interface{}, err error) error {
		if err == nil {
			return rc.Ack(ctx)
		}

		attempt := rc.Message().ApproximateReceiveCount()
		if attempt < 1 {
			attempt = 1
		}
		if attempt <= len(policy) {
			return rc.Retry(ctx, policy[attempt-1])
		}

		//Retries exhausted, dead letter
		if rc.deadLetter != nil {
			return rc.DeadLetter(ctx)
		}
		return rc.Reject(ctx)
	}
}
