package sqs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
)

var (
	// ErrNotFound is returned when a queue does not exist. Callers can recover
	// by creating the queue.
	ErrNotFound = errors.New("queue does not exist")
	// ErrInvalidName is returned before any network call when a queue name is malformed.
	ErrInvalidName = errors.New("queue name cannot be blank, must contain only alphanumeric characters, hyphens and underscores and be shorter than 80 characters")
	// ErrDuplicateType is returned when a data type with the same name is registered twice.
	ErrDuplicateType = errors.New("data type already registered")
	// ErrUnknownType is returned for data type names without a String, Number or Binary prefix.
	ErrUnknownType = errors.New("data type has to start with \"String\", \"Number\" or \"Binary\"")
	// ErrNotSerializable is returned when no data type can serialize an attribute value.
	ErrNotSerializable = errors.New("value is not serializable, use string, number, []byte, an explicit Attribute or register a data type able to serialize it")
	// ErrInvalidBinaryValue is returned when a binary attribute gets anything but bytes, a typed numeric slice or a string.
	ErrInvalidBinaryValue = errors.New("value for binary attribute has to be []byte, a typed numeric slice or a string")
	// ErrUnsupportedOperation is returned when registering group handlers on a standard queue.
	ErrUnsupportedOperation = errors.New("message groups are not supported by standard queues")
	// ErrMissingHandler is returned by Start when no default handler was registered.
	ErrMissingHandler = errors.New("no default handler registered")
	// ErrAlreadyRunning is returned by Start on a running consumer.
	ErrAlreadyRunning = errors.New("consumer already running")
	// ErrNotRunning is returned by Stop on a stopped consumer.
	ErrNotRunning = errors.New("consumer not running")
	// ErrUnsettled is reported when a result handler returns without acknowledging,
	// rejecting, retrying or dead-lettering its message.
	ErrUnsettled = errors.New("result handler returned without settling the message")
	// ErrNoDeadLetterQueue is returned by DeadLetter when the consumer has no dead-letter queue.
	ErrNoDeadLetterQueue = errors.New("no dead-letter queue configured")
)

// ValidationError reports an invalid input or option. It names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MessageStateError is returned when trying to settle a message that has
// already been settled.
type MessageStateError struct {
	Next    string
	Current string
}

func (e *MessageStateError) Error() string {
	return fmt.Sprintf("cannot %s message, it has already been %s", e.Next, e.Current)
}

// PanicError wraps a value recovered from a panicking consumer function.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("consumer function panicked: %v", e.Value)
}

func isQueueDoesNotExist(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == awssqs.ErrCodeQueueDoesNotExist
	}
	return false
}

func isCanceled(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == request.CanceledErrorCode
	}
	return false
}
