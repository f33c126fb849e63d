package sqs

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PollGate decides when a consumer with messages in flight polls again.
type PollGate int

const (
	// GateLowWaterMark polls while in-flight messages are at most
	// maxMessages-minMessages, so a full consumer waits until minMessages
	// have settled.
	GateLowWaterMark PollGate = iota
	// GateCeiling polls whenever there is room below maxMessages.
	GateCeiling
)

const (
	defaultMaxMessages = 10
	defaultMinMessages = 5
)

// ConsumerConfiguration configures a Consumer.
type ConsumerConfiguration struct {
	maxMessages     int
	minMessages     int
	attemptIDs      func() string
	gate            PollGate
	serializeGroups bool
	middlewares     []Middleware
	observer        func(Event)
	logger          logrus.FieldLogger
	retryConfig     []time.Duration
	deadLetterQueue string
	deadLetter      *Publisher
}

func NewConsumerConfiguration() *ConsumerConfiguration {
	return &ConsumerConfiguration{
		maxMessages: defaultMaxMessages,
		minMessages: defaultMinMessages,
	}
}

// WithMaxMessages sets the ceiling of messages processed at once.
func (cfg *ConsumerConfiguration) WithMaxMessages(n int) *ConsumerConfiguration {
	cfg.maxMessages = n
	return cfg
}

// WithMinMessages sets how many messages must settle before a full consumer
// polls again.
func (cfg *ConsumerConfiguration) WithMinMessages(n int) *ConsumerConfiguration {
	cfg.minMessages = n
	return cfg
}

func (cfg *ConsumerConfiguration) WithRequestAttemptIDGenerator(gen func() string) *ConsumerConfiguration {
	cfg.attemptIDs = gen
	return cfg
}

func (cfg *ConsumerConfiguration) WithPollGate(gate PollGate) *ConsumerConfiguration {
	cfg.gate = gate
	return cfg
}

// WithGroupSerialization processes messages of the same FIFO group strictly
// one after another. Different groups still run concurrently.
func (cfg *ConsumerConfiguration) WithGroupSerialization() *ConsumerConfiguration {
	cfg.serializeGroups = true
	return cfg
}

// Use appends a middleware wrapping every handler registered afterwards.
func (cfg *ConsumerConfiguration) Use(middleware Middleware) *ConsumerConfiguration {
	cfg.middlewares = append(cfg.middlewares, middleware)
	return cfg
}

// WithObserver sets a callback receiving every Event. It is called
// synchronously and must not block.
func (cfg *ConsumerConfiguration) WithObserver(observer func(Event)) *ConsumerConfiguration {
	cfg.observer = observer
	return cfg
}

func (cfg *ConsumerConfiguration) WithLogger(logger logrus.FieldLogger) *ConsumerConfiguration {
	cfg.logger = logger
	return cfg
}

// WithRetryPolicy makes handlers registered without a result handler retry
// failed messages after the given delays, indexed by receive count. Once the
// policy is exhausted the message is dead-lettered, or rejected when no
// dead-letter queue is configured.
func (cfg *ConsumerConfiguration) WithRetryPolicy(policy ...time.Duration) *ConsumerConfiguration {
	cfg.retryConfig = policy
	return cfg
}

// WithDeadLetterQueue names the dead-letter queue. It is resolved by the Manager.
func (cfg *ConsumerConfiguration) WithDeadLetterQueue(queueName string) *ConsumerConfiguration {
	cfg.deadLetterQueue = queueName
	return cfg
}

// WithDeadLetterPublisher sets the publisher used by ResultContext.DeadLetter.
func (cfg *ConsumerConfiguration) WithDeadLetterPublisher(p *Publisher) *ConsumerConfiguration {
	cfg.deadLetter = p
	return cfg
}

func (cfg *ConsumerConfiguration) validate() error {
	if cfg.maxMessages <= 0 {
		return &ValidationError{Field: "maxMessages", Reason: "must be greater than 0"}
	}
	if cfg.minMessages <= 0 {
		return &ValidationError{Field: "minMessages", Reason: "must be greater than 0"}
	}
	if cfg.minMessages > cfg.maxMessages {
		return &ValidationError{Field: "minMessages", Reason: "cannot be higher than maxMessages"}
	}
	if cfg.gate != GateLowWaterMark && cfg.gate != GateCeiling {
		return &ValidationError{Field: "pollGate", Reason: "unknown gate"}
	}
	if cfg.deadLetterQueue != "" && cfg.deadLetter == nil {
		return &ValidationError{Field: "deadLetterQueue", Reason: "dead-letter queue " + cfg.deadLetterQueue + " has not been resolved"}
	}
	return nil
}
