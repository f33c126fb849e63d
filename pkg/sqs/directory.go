package sqs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type directoryKey struct {
	name      string
	accountID string
}

func (k directoryKey) String() string {
	return "name:" + k.name + ";accountId:" + k.accountID
}

// Directory resolves queue metadata and caches it. Concurrent lookups of the
// same queue share one request. Only successful lookups are cached.
type Directory struct {
	client sqsiface.SQSAPI
	logger logrus.FieldLogger
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[directoryKey]*QueueInfo
	// bumped by Create and Delete, lookups started under an older
	// generation are not cached
	generations map[string]uint64
}

func NewDirectory(client sqsiface.SQSAPI, logger logrus.FieldLogger) *Directory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Directory{
		client: client,
		logger: logger.WithField("src", "directory"),
		cache:       map[directoryKey]*QueueInfo{},
		generations: map[string]uint64{},
	}
}

// GetInfo returns the queue metadata, ErrNotFound when the queue does not
// exist. accountID may be empty for queues of the caller's account.
func (d *Directory) GetInfo(ctx context.Context, name, accountID string) (*QueueInfo, error) {
	if err := ValidateQueueName(name); err != nil {
		return nil, fmt.Errorf("%w: %q", err, name)
	}
	key := directoryKey{name: name, accountID: accountID}

	d.mu.RLock()
	info, ok := d.cache[key]
	generation := d.generations[name]
	d.mu.RUnlock()
	if ok {
		return info, nil
	}

	// the shared lookup outlives a caller that gives up early
	shared := context.WithoutCancel(ctx)
	flight := fmt.Sprintf("%s;generation:%d", key, generation)
	ch := d.group.DoChan(flight, func() (interface{}, error) {
		info, err := d.lookup(shared, key)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		if d.generations[name] == generation {
			d.cache[key] = info
		}
		d.mu.Unlock()
		return info, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*QueueInfo), nil
	}
}

// Assert returns the queue, creating it when missing. Attributes of an
// existing queue are not reconciled.
func (d *Directory) Assert(ctx context.Context, name string, attrs *QueueAttributesInput) (*QueueInfo, error) {
	info, err := d.GetInfo(ctx, name, "")
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := d.Create(ctx, name, attrs); err != nil {
		return nil, err
	}
	return d.GetInfo(ctx, name, "")
}

// Create creates the queue and returns its URL. Nil attributes create a queue
// whose FIFO flag follows the name.
func (d *Directory) Create(ctx context.Context, name string, attrs *QueueAttributesInput) (string, error) {
	if err := ValidateQueueName(name); err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	if attrs == nil {
		attrs = &QueueAttributesInput{IsFifo: IsFifoName(name)}
	}
	raw, err := toRawAttributes(attrs)
	if err != nil {
		return "", err
	}

	res, err := d.client.CreateQueueWithContext(ctx, &awssqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: raw,
	})
	d.invalidate(name)
	if err != nil {
		return "", fmt.Errorf("create queue %s: %w", name, err)
	}

	d.logger.WithField("queue", name).Info("Created queue")
	return aws.StringValue(res.QueueUrl), nil
}

// Delete deletes the queue, ErrNotFound when it does not exist.
func (d *Directory) Delete(ctx context.Context, name, accountID string) error {
	if err := ValidateQueueName(name); err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}
	url, err := d.queueURL(ctx, directoryKey{name: name, accountID: accountID})
	if err != nil {
		return err
	}

	_, err = d.client.DeleteQueueWithContext(ctx, &awssqs.DeleteQueueInput{
		QueueUrl: aws.String(url),
	})
	d.invalidate(name)
	if err != nil {
		if isQueueDoesNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete queue %s: %w", name, err)
	}

	d.logger.WithField("queue", name).Info("Deleted queue")
	return nil
}

func (d *Directory) invalidate(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generations[name]++
	for key := range d.cache {
		if key.name == name {
			delete(d.cache, key)
		}
	}
}

func (d *Directory) queueURL(ctx context.Context, key directoryKey) (string, error) {
	in := &awssqs.GetQueueUrlInput{QueueName: aws.String(key.name)}
	if key.accountID != "" {
		in.QueueOwnerAWSAccountId = aws.String(key.accountID)
	}
	res, err := d.client.GetQueueUrlWithContext(ctx, in)
	if err != nil {
		if isQueueDoesNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get queue url %s: %w", key.name, err)
	}
	return aws.StringValue(res.QueueUrl), nil
}

func (d *Directory) lookup(ctx context.Context, key directoryKey) (*QueueInfo, error) {
	url, err := d.queueURL(ctx, key)
	if err != nil {
		return nil, err
	}

	names := []string{
		attrDelaySeconds,
		attrRedrivePolicy,
		attrKmsDataKeyReusePeriodSeconds,
		attrKmsMasterKeyID,
		attrMaximumMessageSize,
		attrMessageRetentionPeriod,
		attrReceiveMessageWaitTimeSeconds,
		attrVisibilityTimeout,
		attrQueueArn,
		attrRedriveAllowPolicy,
	}
	if IsFifoName(key.name) {
		names = append(names, attrFifoQueue, attrContentBasedDeduplication)
	}

	res, err := d.client.GetQueueAttributesWithContext(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: aws.StringSlice(names),
	})
	if err != nil {
		if isQueueDoesNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get queue attributes %s: %w", key.name, err)
	}
	if res.Attributes == nil {
		return nil, fmt.Errorf("get queue attributes %s: no attributes returned", key)
	}

	attrs, err := fromRawAttributes(res.Attributes)
	if err != nil {
		return nil, err
	}

	d.logger.WithFields(logrus.Fields{
		"queue":     key.name,
		"accountId": key.accountID,
		"url":       url,
	}).Debug("Resolved queue")

	return &QueueInfo{Name: key.name, URL: url, Attributes: attrs}, nil
}
