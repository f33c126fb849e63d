// Package handler dispatches messages of one queue to a handler per message
// type, read from a message attribute.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"
)

// MessageTypeAttribute is the default attribute carrying the message type.
const MessageTypeAttribute = "MessageType"

// ErrNoHandler is returned for messages no handler is registered for.
var ErrNoHandler = errors.New("no handler registered for message type")

// New builds a ConsumerFunc routing on the message type. Middlewares
// registered with Use wrap every handler, the fallback included.
func New(configure func(cfg *RouterConfiguration)) sqs.ConsumerFunc {
	cfg := newRouterConfiguration()

	configure(cfg)

	chain := sqs.Chain(cfg.middlewares...)
	chained := make(map[string]sqs.ConsumerFunc, len(cfg.handlers))
	for k, v := range cfg.handlers {
		chained[k] = chain.Then(v)
	}
	var fallback sqs.ConsumerFunc
	if cfg.fallback != nil {
		fallback = chain.Then(cfg.fallback)
	}
	typeAttribute := cfg.typeAttribute

	return func(ctx context.Context, msg *sqs.Message) (interface{}, error) {
		messageType := MessageType(msg, typeAttribute)

		handler := chained[messageType]
		if handler == nil {
			if fallback == nil {
				return nil, fmt.Errorf("%w: %q", ErrNoHandler, messageType)
			}
			handler = fallback
		}
		return handler(ctx, msg)
	}
}

// MessageType returns the string value of the type attribute, empty when the
// attribute is missing or not a string.
func MessageType(msg *sqs.Message, attribute string) string {
	v, ok := msg.Attribute(attribute)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
