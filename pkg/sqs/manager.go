package sqs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/sirupsen/logrus"
)

type ManagerOption func(*Manager)

func WithManagerLogger(logger logrus.FieldLogger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithBodySerializer sets how message bodies are encoded. The default is JSON.
func WithBodySerializer(body BodySerializer) ManagerOption {
	return func(m *Manager) {
		m.body = body
	}
}

// Manager creates publishers and consumers sharing one queue directory and
// one attribute converter, and keeps track of the consumers it created.
type Manager struct {
	client    sqsiface.SQSAPI
	logger    logrus.FieldLogger
	body      BodySerializer
	directory *Directory
	converter *Converter

	mu        sync.Mutex
	consumers []*Consumer
}

func NewManager(client sqsiface.SQSAPI, opts ...ManagerOption) *Manager {
	m := &Manager{
		client: client,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.directory = NewDirectory(client, m.logger)
	m.converter = NewConverter(m.body)
	return m
}

func (m *Manager) Directory() *Directory { return m.directory }

// Converter returns the attribute converter, custom data types registered on
// it apply to every publisher and consumer of the manager.
func (m *Manager) Converter() *Converter { return m.converter }

func (m *Manager) Publisher(ctx context.Context, queueName string) (*Publisher, error) {
	info, err := m.directory.GetInfo(ctx, queueName, "")
	if err != nil {
		return nil, err
	}
	return NewPublisher(m.client, m.converter, info, m.logger), nil
}

// Consumer creates a stopped consumer of queueName. configure may be nil.
func (m *Manager) Consumer(ctx context.Context, queueName string, configure func(cfg *ConsumerConfiguration)) (*Consumer, error) {
	info, err := m.directory.GetInfo(ctx, queueName, "")
	if err != nil {
		return nil, err
	}

	cfg := NewConsumerConfiguration().WithLogger(m.logger)
	if configure != nil {
		configure(cfg)
	}
	if cfg.deadLetterQueue != "" && cfg.deadLetter == nil {
		dlq, err := m.Publisher(ctx, cfg.deadLetterQueue)
		if err != nil {
			return nil, fmt.Errorf("dead-letter queue %s: %w", cfg.deadLetterQueue, err)
		}
		cfg.deadLetter = dlq
	}

	c, err := NewConsumer(m.client, m.converter, info, cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.consumers = append(m.consumers, c)
	m.mu.Unlock()
	return c, nil
}

// Consume creates a consumer of queueName handling every message with fn and
// the default result handler, and starts it.
func (m *Manager) Consume(ctx context.Context, queueName string, fn ConsumerFunc, configure func(cfg *ConsumerConfiguration)) (*Consumer, error) {
	c, err := m.Consumer(ctx, queueName, configure)
	if err != nil {
		return nil, err
	}
	if err := c.OnMessage(fn, nil).Start(); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Manager) Consumers() []*Consumer {
	m.mu.Lock()
	defer m.mu.Unlock()
	consumers := make([]*Consumer, len(m.consumers))
	copy(consumers, m.consumers)
	return consumers
}

// StopAllConsumers stops every running consumer. Stopped consumers are skipped.
func (m *Manager) StopAllConsumers() {
	for _, c := range m.Consumers() {
		if err := c.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
			m.logger.WithError(err).WithField("queue", c.Queue().Name).Warn("Error stopping consumer")
		}
	}
}

// StopAllConsumersAndWaitToFinish stops every consumer and blocks until none
// of them has a message in flight, or ctx is done.
func (m *Manager) StopAllConsumersAndWaitToFinish(ctx context.Context) error {
	m.StopAllConsumers()

	// a receive completing while Stop cancels it still dispatches its
	// messages, so in-flight counts are only final once every loop exited
	for _, c := range m.Consumers() {
		select {
		case <-c.stopped():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		busy := false
		for _, c := range m.Consumers() {
			idle, inFlight := c.idleSignal()
			if !inFlight {
				continue
			}
			busy = true
			select {
			case <-idle:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if !busy {
			m.logger.Info("All consumers finished")
			return nil
		}
	}
}
