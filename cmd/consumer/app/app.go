package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/internal/handlers"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs/handler"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs/pipeline"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	QueueName       string
	ListenAddr      string
	LogLevel        string
	MaxMessages     int
	MinMessages     int
	DeadLetterQueue string
	RetryPolicy     []time.Duration
	HandlerDelay    time.Duration
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueName:       "local-queue",
		ListenAddr:      ":8080",
		LogLevel:        "info",
		MaxMessages:     10,
		MinMessages:     1,
		HandlerDelay:    5 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

type App struct {
	cfg     Config
	logger  log.FieldLogger
	manager *sqs.Manager
	router  chi.Router
}

func New(cfg Config, client sqsiface.SQSAPI) (*App, error) {
	if err := configureLogging(cfg.LogLevel); err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"application": "go-sqs-messaging",
		"version":     "0.0.0",
		"env":         "local",
	})

	a := &App{
		cfg:     cfg,
		logger:  logger,
		manager: sqs.NewManager(client, sqs.WithManagerLogger(logger)),
	}
	a.router = a.routes()

	return a, nil
}

func configureLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	return nil
}

func (a *App) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/_system/health", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("Healthy"))
	})
	r.Get("/_system/consumers", a.listConsumers)
	r.Get("/_system/consumers/{queue}", a.getConsumer)

	return r
}

func (a *App) Router() http.Handler { return a.router }

func (a *App) Manager() *sqs.Manager { return a.manager }

func (a *App) listConsumers(rw http.ResponseWriter, r *http.Request) {
	consumers := a.manager.Consumers()
	stats := make([]sqs.ConsumerStats, 0, len(consumers))
	for _, c := range consumers {
		stats = append(stats, c.Stats())
	}
	a.writeJSON(rw, http.StatusOK, stats)
}

func (a *App) getConsumer(rw http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	for _, c := range a.manager.Consumers() {
		if c.Queue().Name == name {
			a.writeJSON(rw, http.StatusOK, c.Stats())
			return
		}
	}
	http.Error(rw, fmt.Sprintf("no consumer for queue %s", name), http.StatusNotFound)
}

func (a *App) writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		a.logger.WithError(err).Error("Error encoding response")
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	rw.Write(b)
}

// Start starts consuming the configured queue.
func (a *App) Start(ctx context.Context) error {
	testHandler := handlers.NewTestMessageHandler(a.logger, a.cfg.HandlerDelay)

	consume := handler.New(func(cfg *handler.RouterConfiguration) {
		cfg.Use(pipeline.Logger(a.logger)).
			WithHandler("test", testHandler.Handle)
	})

	c, err := a.manager.Consumer(ctx, a.cfg.QueueName, func(cfg *sqs.ConsumerConfiguration) {
		cfg.WithMaxMessages(a.cfg.MaxMessages).
			WithMinMessages(a.cfg.MinMessages).
			Use(pipeline.Recoverer(a.logger))
		if a.cfg.DeadLetterQueue != "" {
			cfg.WithDeadLetterQueue(a.cfg.DeadLetterQueue)
		}
	})
	if err != nil {
		return err
	}

	// Without a retry policy a dead-letter queue receives failed messages
	// on their first failure.
	var rh sqs.ResultHandler
	if len(a.cfg.RetryPolicy) > 0 || a.cfg.DeadLetterQueue != "" {
		rh = sqs.RetryPolicyResultHandler(a.cfg.RetryPolicy...)
	}

	return c.OnMessage(consume, rh).Start()
}

// Run consumes and serves the system endpoints until ctx is done, then stops
// the consumers and waits for in-flight messages up to the shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting application")
	defer a.logger.Info("Shutting down application")

	if err := a.Start(ctx); err != nil {
		a.logger.WithError(err).Error("Error starting SQS Consumers")
		return err
	}

	srv := &http.Server{Addr: a.cfg.ListenAddr, Handler: a.router}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		a.logger.WithError(runErr).Error("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.manager.StopAllConsumersAndWaitToFinish(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Consumers did not finish in time")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Error shutting down HTTP server")
	}
	return runErr
}
