package sqs

import (
	"regexp"
	"strings"
	"time"
)

const fifoSuffix = ".fifo"

var queueNamePattern = regexp.MustCompile(`(?i)^[a-z0-9\-_]+(\.fifo)?$`)

// QueueInfo describes a queue as resolved by a Directory. It is never
// mutated once built.
type QueueInfo struct {
	Name       string
	URL        string
	Attributes QueueAttributes
}

// IsFifo reports whether the queue is a FIFO queue.
func (q *QueueInfo) IsFifo() bool {
	return IsFifoName(q.Name)
}

func (q *QueueInfo) IsStandard() bool {
	return !q.IsFifo()
}

// QueueAttributes are the attributes of an existing queue.
type QueueAttributes struct {
	IsFifo                      bool
	IsContentBasedDeduplication bool
	Delay                       time.Duration
	MaxMessageSize              int64
	RetentionPeriod             time.Duration
	ReceiveWaitTime             time.Duration
	VisibilityTimeout           time.Duration
	Arn                         string
	RedrivePolicy               *RedrivePolicy
	RedriveAllowPolicy          *RedriveAllowPolicy
}

// QueueAttributesInput holds attributes used when creating a queue. Nil
// fields are left to the service defaults.
type QueueAttributesInput struct {
	IsFifo                      bool
	IsContentBasedDeduplication *bool
	Delay                       *time.Duration
	MaxMessageSize              *int64
	RetentionPeriod             *time.Duration
	ReceiveWaitTime             *time.Duration
	VisibilityTimeout           *time.Duration
	RedrivePolicy               *RedrivePolicy
	RedriveAllowPolicy          *RedriveAllowPolicy
}

// RedrivePolicy routes messages to a dead-letter queue after MaxReceiveCount
// receives. A zero MaxReceiveCount means the default of 10.
type RedrivePolicy struct {
	DeadLetterQueueArn string
	MaxReceiveCount    int
}

type RedrivePermission string

const (
	RedriveAllowAll RedrivePermission = "allowAll"
	RedriveDenyAll  RedrivePermission = "denyAll"
	RedriveByQueue  RedrivePermission = "byQueue"
)

// RedriveAllowPolicy controls which source queues may use a queue as their
// dead-letter queue. SourceQueueArns only applies to RedriveByQueue.
type RedriveAllowPolicy struct {
	Permission      RedrivePermission
	SourceQueueArns []string
}

// Seconds returns a pointer to a duration of n seconds, handy for
// QueueAttributesInput.
func Seconds(n int64) *time.Duration {
	d := time.Duration(n) * time.Second
	return &d
}

// IsFifoName reports whether a queue name or URL has the ".fifo" suffix.
func IsFifoName(name string) bool {
	return strings.HasSuffix(name, fifoSuffix)
}

// EnsureFifoName makes sure the name ends with ".fifo".
func EnsureFifoName(name string) string {
	if IsFifoName(name) {
		return name
	}
	return name + fifoSuffix
}

// StripFifoName removes the ".fifo" suffix, ignoring case.
func StripFifoName(name string) string {
	if len(name) >= len(fifoSuffix) && strings.EqualFold(name[len(name)-len(fifoSuffix):], fifoSuffix) {
		return name[:len(name)-len(fifoSuffix)]
	}
	return name
}

// ValidateQueueName checks the name against the service naming rules.
func ValidateQueueName(name string) error {
	if len(name) >= 80 || !queueNamePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}
