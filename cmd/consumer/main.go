package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/cmd/consumer/app"
	"github.com/micky-clerkinoliver-cko/go-sqs-messaging/pkg/sqs"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type options struct {
	app.Config
	Region   string
	Endpoint string
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func addFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVar(&o.QueueName, "queue", envOr("SQS_QUEUE", o.QueueName), "name of the queue to consume")
	fs.StringVar(&o.Region, "region", envOr("AWS_REGION", o.Region), "AWS region")
	fs.StringVar(&o.Endpoint, "endpoint", envOr("SQS_ENDPOINT", o.Endpoint), "SQS endpoint, static credentials are used when set")
	fs.StringVar(&o.ListenAddr, "listen", envOr("LISTEN_ADDR", o.ListenAddr), "address of the system endpoints")
	fs.StringVar(&o.LogLevel, "log-level", envOr("LOG_LEVEL", o.LogLevel), "log level")
	fs.IntVar(&o.MaxMessages, "max-messages", o.MaxMessages, "maximum number of messages handled at once")
	fs.IntVar(&o.MinMessages, "min-messages", o.MinMessages, "free handling slots required before polling again")
	fs.StringVar(&o.DeadLetterQueue, "dead-letter-queue", envOr("SQS_DEAD_LETTER_QUEUE", ""), "queue failed messages are moved to once retries are exhausted")
	fs.DurationSliceVar(&o.RetryPolicy, "retry", nil, "delays between retries of a failed message, e.g. 1s,10s,1m")
	fs.DurationVar(&o.HandlerDelay, "handler-delay", o.HandlerDelay, "simulated processing time of test messages")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "how long to wait for in-flight messages on shutdown")
}

func newRootCommand() *cobra.Command {
	o := &options{
		Config:   app.DefaultConfig(),
		Region:   "eu-west-1",
		Endpoint: "http://localhost:4566/",
	}

	cmd := &cobra.Command{
		Use:          "consumer",
		Short:        "Consume an SQS queue, routing messages by their MessageType attribute",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := aws.Config{Region: aws.String(o.Region)}
			if o.Endpoint != "" {
				cfg = sqs.LocalConfig(o.Region, o.Endpoint)
			}

			a, err := app.New(o.Config, sqs.NewClient(cfg))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.Run(ctx)
		},
	}

	addFlags(cmd.Flags(), o)
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Fatal("Consumer exited")
	}
}
