// Package sqs is a client side layer over Amazon SQS. It resolves and caches
// queue metadata, converts typed message attributes, publishes single and
// batched messages and runs consumers that keep a bounded number of messages
// in flight, routing FIFO message groups to dedicated handlers.
package sqs

import (
	"context"
	"fmt"
)

// ConsumerFunc processes one message. Its result and error are handed to the
// ResultHandler registered with it.
type ConsumerFunc func(ctx context.Context, msg *Message) (interface{}, error)

// ResultHandler decides the fate of a processed message. It MUST call exactly
// one of Ack, Reject, Retry or DeadLetter on the ResultContext.
type ResultHandler func(ctx context.Context, rc *ResultContext, result interface{}, err error) error

// EventKind is the kind of an Event emitted by a Consumer.
type EventKind int

const (
	// EventConsumed is emitted after a message has been acknowledged.
	EventConsumed EventKind = iota + 1
	// EventRejected is emitted after a message was released back to the queue.
	EventRejected
	// EventDelayedRetry is emitted after a message was released with a delay.
	EventDelayedRetry
	// EventDeadLettered is emitted after a message was moved to the dead-letter queue.
	EventDeadLettered
	// EventError is emitted for receive failures and handler bookkeeping errors.
	EventError
	// EventAllConsumed is emitted when the last in-flight message settles.
	EventAllConsumed
)

func (k EventKind) String() string {
	switch k {
	case EventConsumed:
		return "consumed"
	case EventRejected:
		return "rejected"
	case EventDelayedRetry:
		return "delayed-retry"
	case EventDeadLettered:
		return "dead-lettered"
	case EventError:
		return "error"
	case EventAllConsumed:
		return "all-consumed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is an observable side effect of a Consumer. Message is set for
// settlement events, Err for EventError.
type Event struct {
	Kind    EventKind
	Message *Message
	Err     error
}
