package sqs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

type handlerDefinition struct {
	consume ConsumerFunc
	result  ResultHandler
}

// ConsumerStats is a snapshot of a consumer's state.
type ConsumerStats struct {
	Queue        string `json:"queue"`
	Running      bool   `json:"running"`
	Ongoing      int    `json:"ongoing"`
	ActiveGroups int    `json:"activeGroups"`
}

// Consumer polls one queue and dispatches received messages to handlers,
// keeping at most maxMessages in flight.
//
// A running consumer has a single poll loop, so receive calls never overlap.
// Every settled message wakes the loop, which polls again once the poll gate
// allows it. Stop aborts the pending receive call; messages already handed
// to handlers are processed to completion.
type Consumer struct {
	client    sqsiface.SQSAPI
	converter *Converter
	queue     *QueueInfo
	logger    logrus.FieldLogger
	cfg       ConsumerConfiguration
	groups    *groupDispatcher
	wake      chan struct{}

	// owned by the poll loop
	attemptID string
	backoff   *backoff.ExponentialBackOff

	mu             sync.Mutex
	running        bool
	cancel         context.CancelFunc
	loopDone       chan struct{}
	ongoing        int
	idle           chan struct{}
	defaultHandler *handlerDefinition
	groupHandlers  map[string]*handlerDefinition
}

// NewConsumer builds a stopped consumer. A nil configuration means the
// defaults of NewConsumerConfiguration.
func NewConsumer(client sqsiface.SQSAPI, converter *Converter, queue *QueueInfo, cfg *ConsumerConfiguration) (*Consumer, error) {
	if cfg == nil {
		cfg = NewConsumerConfiguration()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Consumer{
		client:        client,
		converter:     converter,
		queue:         queue,
		cfg:           *cfg,
		groups:        newGroupDispatcher(),
		wake:          make(chan struct{}, 1),
		idle:          make(chan struct{}),
		groupHandlers: map[string]*handlerDefinition{},
	}
	close(c.idle)

	if c.cfg.attemptIDs == nil {
		c.cfg.attemptIDs = NewAttemptIDGenerator()
	}
	logger := c.cfg.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c.logger = logger.WithFields(logrus.Fields{"src": "consumer", "queue": queue.Name})

	c.backoff = backoff.NewExponentialBackOff()
	c.backoff.InitialInterval = 100 * time.Millisecond
	c.backoff.MaxInterval = receiveWaitTime * time.Second
	c.backoff.MaxElapsedTime = 0
	c.backoff.Reset()

	return c, nil
}

// Queue returns the metadata of the consumed queue.
func (c *Consumer) Queue() *QueueInfo { return c.queue }

func (c *Consumer) define(fn ConsumerFunc, rh ResultHandler) *handlerDefinition {
	if rh == nil {
		if len(c.cfg.retryConfig) > 0 {
			rh = RetryPolicyResultHandler(c.cfg.retryConfig...)
		} else {
			rh = DefaultResultHandler
		}
	}
	return &handlerDefinition{
		consume: Chain(c.cfg.middlewares...).Then(fn),
		result:  rh,
	}
}

// OnMessage sets the handler of messages without a dedicated group handler.
// A nil result handler means DefaultResultHandler, or the retry policy when
// one is configured.
func (c *Consumer) OnMessage(fn ConsumerFunc, rh ResultHandler) *Consumer {
	def := c.define(fn, rh)
	c.mu.Lock()
	c.defaultHandler = def
	c.mu.Unlock()
	return c
}

// OnGroupMessage sets the handler of one FIFO message group.
func (c *Consumer) OnGroupMessage(group string, fn ConsumerFunc, rh ResultHandler) error {
	if !c.queue.IsFifo() {
		return fmt.Errorf("%w: queue %s", ErrUnsupportedOperation, c.queue.Name)
	}
	def := c.define(fn, rh)
	c.mu.Lock()
	c.groupHandlers[group] = def
	c.mu.Unlock()
	return nil
}

// Start launches the poll loop. It fails with ErrAlreadyRunning when the
// consumer runs, and ErrMissingHandler when OnMessage was never called.
func (c *Consumer) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if c.defaultHandler == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w for queue %q", ErrMissingHandler, c.queue.Name)
	}
	previous := c.loopDone
	c.mu.Unlock()

	// the loop of an earlier run exits as soon as it sees its cancellation
	if previous != nil {
		<-previous
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.running = true
	c.cancel = cancel
	c.loopDone = done

	go c.pollLoop(ctx, done)

	c.logger.WithFields(logrus.Fields{
		"maxMessages": c.cfg.maxMessages,
		"minMessages": c.cfg.minMessages,
	}).Info("Started consumer")
	return nil
}

// Stop aborts the pending receive and ends the poll loop. Handlers already
// running are not cancelled.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNotRunning
	}
	c.running = false
	c.cancel()

	c.logger.WithField("ongoing", c.ongoing).Info("Stopped consumer")
	return nil
}

// IsRunning reports whether the consumer has been started and not stopped.
func (c *Consumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Ongoing returns the number of messages currently being processed.
func (c *Consumer) Ongoing() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ongoing
}

// Stats returns a snapshot of the consumer's state.
func (c *Consumer) Stats() ConsumerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConsumerStats{
		Queue:        c.queue.Name,
		Running:      c.running,
		Ongoing:      c.ongoing,
		ActiveGroups: c.groups.active(),
	}
}

// stopped returns a channel closed once the poll loop of the latest run has
// exited, so no further message can be dispatched until the next Start.
func (c *Consumer) stopped() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loopDone == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return c.loopDone
}

// idleSignal returns a channel closed once no message is in flight, and
// whether messages are in flight right now.
func (c *Consumer) idleSignal() (<-chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idle, c.ongoing > 0
}

// WaitIdle blocks until no message is in flight.
func (c *Consumer) WaitIdle(ctx context.Context) error {
	for {
		idle, busy := c.idleSignal()
		if !busy {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Consumer) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		count, ok := c.pollSize()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
			}
			continue
		}

		if err := c.poll(ctx, count); err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff.NextBackOff()):
			}
		}
	}
}

// pollSize returns how many messages to request, false when the poll gate
// is closed or there is no room left.
func (c *Consumer) pollSize() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	threshold := c.cfg.maxMessages
	if c.cfg.gate == GateLowWaterMark {
		threshold = c.cfg.maxMessages - c.cfg.minMessages
	}
	if c.ongoing > threshold {
		return 0, false
	}

	count := c.cfg.maxMessages - c.ongoing
	if count > maxBatchSize {
		count = maxBatchSize
	}
	return count, count > 0
}

func (c *Consumer) poll(ctx context.Context, count int) error {
	if c.attemptID == "" {
		c.attemptID = c.cfg.attemptIDs()
	}

	c.logger.WithFields(logrus.Fields{
		"attemptId": c.attemptID,
		"count":     count,
	}).Debug("Polling queue")

	out, err := c.client.ReceiveMessageWithContext(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:                aws.String(c.queue.URL),
		AttributeNames:          allAttributes,
		MessageAttributeNames:   allAttributes,
		MaxNumberOfMessages:     aws.Int64(int64(count)),
		WaitTimeSeconds:         aws.Int64(receiveWaitTime),
		ReceiveRequestAttemptId: aws.String(c.attemptID),
	})
	if err != nil {
		if ctx.Err() != nil || isCanceled(err) {
			// aborted by Stop, the attempt id stays for the next receive
			return nil
		}
		c.attemptID = ""
		c.logger.WithError(err).Error("Error receiving messages")
		c.emit(Event{Kind: EventError, Err: err})
		return err
	}

	c.attemptID = ""
	c.backoff.Reset()

	c.logger.WithField("count", len(out.Messages)).Debug("Messages found")

	for _, raw := range out.Messages {
		msg, err := c.converter.FromRawMessage(raw, c.queue)
		if err != nil {
			c.logger.WithError(err).WithField("MessageId", aws.StringValue(raw.MessageId)).Error("Error decoding message")
			c.emit(Event{Kind: EventError, Err: fmt.Errorf("decode message %s: %w", aws.StringValue(raw.MessageId), err)})
			continue
		}
		c.consumeMessage(msg)
	}
	return nil
}

func (c *Consumer) consumeMessage(msg *Message) {
	group := msg.GroupID()

	c.mu.Lock()
	if c.ongoing == 0 {
		c.idle = make(chan struct{})
	}
	c.ongoing++
	def := c.defaultHandler
	if group != "" {
		if h, ok := c.groupHandlers[group]; ok {
			def = h
		}
	}
	c.mu.Unlock()

	task := func() { c.process(def, msg) }
	if c.cfg.serializeGroups && group != "" {
		c.groups.dispatch(group, task)
		return
	}
	go task()
}

func (c *Consumer) process(def *handlerDefinition, msg *Message) {
	ctx := context.Background()
	logger := c.logger.WithField("MessageId", msg.ID())

	rc := newResultContext(c.client, msg, c.cfg.deadLetter, func(kind EventKind) {
		c.finish(&Event{Kind: kind, Message: msg})
	})

	result, err := c.invoke(ctx, def.consume, msg)
	if herr := c.handleResult(ctx, def.result, rc, result, err); herr != nil {
		logger.WithError(herr).Error("Error handling message result")
		c.emit(Event{Kind: EventError, Message: msg, Err: herr})
	}

	rc.abandon(func() {
		logger.Warn("Result handler did not settle message, releasing it")
		c.emit(Event{Kind: EventError, Message: msg, Err: ErrUnsettled})
		c.finish(nil)
	})
}

func (c *Consumer) invoke(ctx context.Context, fn ConsumerFunc, msg *Message) (result interface{}, err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = &PanicError{Value: rvr, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, msg)
}

func (c *Consumer) handleResult(ctx context.Context, rh ResultHandler, rc *ResultContext, result interface{}, err error) (herr error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			herr = &PanicError{Value: rvr, Stack: debug.Stack()}
		}
	}()
	return rh(ctx, rc, result, err)
}

// finish releases the budget slot of a message and wakes the poll loop.
// outcome is nil for messages released without being settled.
func (c *Consumer) finish(outcome *Event) {
	c.mu.Lock()
	c.ongoing--
	drained := c.ongoing == 0
	if drained {
		close(c.idle)
	}
	c.mu.Unlock()

	if outcome != nil {
		c.emit(*outcome)
	}
	if drained {
		c.emit(Event{Kind: EventAllConsumed})
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Consumer) emit(ev Event) {
	if ev.Message != nil {
		c.logger.WithFields(logrus.Fields{
			"Event":     ev.Kind.String(),
			"MessageId": ev.Message.ID(),
		}).Debug("Message settled")
	}
	if c.cfg.observer != nil {
		c.cfg.observer(ev)
	}
}
