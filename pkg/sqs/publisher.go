package sqs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TransportErrorCode marks batch entries whose whole chunk failed to send.
const TransportErrorCode = "TransportError"

// PublishResult is the outcome of a single publish.
type PublishResult struct {
	MessageID          string
	BodyChecksum       string
	AttributesChecksum string
	SequenceNumber     string
}

// BatchResult accumulates the per-entry outcome of all chunks of a batch publish.
type BatchResult struct {
	Successful []*awssqs.SendMessageBatchResultEntry
	Failed     []*awssqs.BatchResultErrorEntry
}

// Publisher sends messages to one queue.
type Publisher struct {
	client    sqsiface.SQSAPI
	converter *Converter
	queue     *QueueInfo
	logger    logrus.FieldLogger
	newID     func() string
}

func NewPublisher(client sqsiface.SQSAPI, converter *Converter, queue *QueueInfo, logger logrus.FieldLogger) *Publisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Publisher{
		client:    client,
		converter: converter,
		queue:     queue,
		logger:    logger.WithFields(logrus.Fields{"src": "publisher", "queue": queue.Name}),
		newID:     uuid.NewString,
	}
}

func (p *Publisher) Queue() *QueueInfo { return p.queue }

// Validate checks the group and deduplication ids against the queue type.
func (p *Publisher) Validate(in *Input) error {
	if p.queue.IsFifo() {
		if strings.TrimSpace(in.GroupID) == "" {
			return &ValidationError{Field: "groupId", Reason: "messages published to fifo queue require groupId"}
		}
		if !p.queue.Attributes.IsContentBasedDeduplication && strings.TrimSpace(in.DeduplicationID) == "" {
			return &ValidationError{Field: "deduplicationId", Reason: "messages published to fifo queue without content based deduplication require deduplicationId"}
		}
		return nil
	}
	if in.GroupID != "" {
		return &ValidationError{Field: "groupId", Reason: "messages published to standard queue cannot have groupId defined"}
	}
	if in.DeduplicationID != "" {
		return &ValidationError{Field: "deduplicationId", Reason: "messages published to standard queue cannot have deduplicationId defined"}
	}
	return nil
}

func (p *Publisher) Publish(ctx context.Context, in *Input) (*PublishResult, error) {
	if err := p.Validate(in); err != nil {
		return nil, err
	}
	req, err := p.converter.ToSendInput(in)
	if err != nil {
		return nil, err
	}
	req.QueueUrl = aws.String(p.queue.URL)

	p.logger.Debug("Publishing message")
	res, err := p.client.SendMessageWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("publish to %s: %w", p.queue.Name, err)
	}
	return &PublishResult{
		MessageID:          aws.StringValue(res.MessageId),
		BodyChecksum:       aws.StringValue(res.MD5OfMessageBody),
		AttributesChecksum: aws.StringValue(res.MD5OfMessageAttributes),
		SequenceNumber:     aws.StringValue(res.SequenceNumber),
	}, nil
}

// PublishMany validates every input, then sends them in sequential chunks of
// at most 10. Per-entry failures are collected in the result. A chunk that
// fails as a whole marks its entries with TransportErrorCode, publishing
// continues with the next chunk and the chunk errors are returned joined.
func (p *Publisher) PublishMany(ctx context.Context, inputs []*BatchInput) (*BatchResult, error) {
	for i, in := range inputs {
		if err := p.Validate(&in.Input); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}

	entries := make([]*awssqs.SendMessageBatchRequestEntry, 0, len(inputs))
	for _, in := range inputs {
		batchInput := *in
		if batchInput.ID == "" {
			batchInput.ID = p.newID()
		}
		entry, err := p.converter.ToBatchEntry(&batchInput)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	result := &BatchResult{}
	var errs []error
	for start := 0; start < len(entries); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		p.logger.WithField("amount", len(chunk)).Debug("Publishing messages in batch")
		res, err := p.client.SendMessageBatchWithContext(ctx, &awssqs.SendMessageBatchInput{
			QueueUrl: aws.String(p.queue.URL),
			Entries:  chunk,
		})
		if err != nil {
			p.logger.WithError(err).Error("Error publishing batch")
			errs = append(errs, err)
			for _, entry := range chunk {
				result.Failed = append(result.Failed, &awssqs.BatchResultErrorEntry{
					Id:          entry.Id,
					Code:        aws.String(TransportErrorCode),
					Message:     aws.String(err.Error()),
					SenderFault: aws.Bool(false),
				})
			}
			continue
		}
		result.Successful = append(result.Successful, res.Successful...)
		result.Failed = append(result.Failed, res.Failed...)
	}

	if len(errs) > 0 {
		return result, fmt.Errorf("publish batch to %s: %w", p.queue.Name, errors.Join(errs...))
	}
	return result, nil
}
