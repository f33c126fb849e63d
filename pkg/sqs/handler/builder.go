package handler

import "github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"

type RouterConfiguration struct {
	typeAttribute string
	handlers      map[string]sqs.ConsumerFunc
	middlewares   []sqs.Middleware
	fallback      sqs.ConsumerFunc
}

func newRouterConfiguration() *RouterConfiguration {
	return &RouterConfiguration{
		typeAttribute: MessageTypeAttribute,
		handlers:      map[string]sqs.ConsumerFunc{},
	}
}

// WithHandler routes messages of messageType to fn.
func (cfg *RouterConfiguration) WithHandler(messageType string, fn sqs.ConsumerFunc) *RouterConfiguration {
	cfg.handlers[messageType] = fn
	return cfg
}

// WithFallback handles messages without a type or of an unregistered type.
func (cfg *RouterConfiguration) WithFallback(fn sqs.ConsumerFunc) *RouterConfiguration {
	cfg.fallback = fn
	return cfg
}

// WithTypeAttribute changes the message attribute holding the message type.
func (cfg *RouterConfiguration) WithTypeAttribute(name string) *RouterConfiguration {
	cfg.typeAttribute = name
	return cfg
}

func (cfg *RouterConfiguration) Use(middleware sqs.Middleware) *RouterConfiguration {
	cfg.middlewares = append(cfg.middlewares, middleware)
	return cfg
}
