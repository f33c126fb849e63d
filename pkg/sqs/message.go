package sqs

import (
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
)

// System attribute names of received messages.
const (
	sysMessageGroupID                   = "MessageGroupId"
	sysMessageDeduplicationID           = "MessageDeduplicationId"
	sysSequenceNumber                   = "SequenceNumber"
	sysApproximateReceiveCount          = "ApproximateReceiveCount"
	sysApproximateFirstReceiveTimestamp = "ApproximateFirstReceiveTimestamp"
	sysSentTimestamp                    = "SentTimestamp"
)

// Input is a message to publish.
type Input struct {
	Body       interface{}
	Delay      time.Duration
	Attributes map[string]interface{}
	// GroupID is required by FIFO queues and forbidden on standard queues.
	GroupID string
	// DeduplicationID is required by FIFO queues without content based
	// deduplication and forbidden on standard queues.
	DeduplicationID string
}

// BatchInput is a message published as part of a batch. A blank ID is
// replaced by a generated one.
type BatchInput struct {
	Input
	ID string
}

// Message is the envelope of a received message.
type Message struct {
	raw        *awssqs.Message
	queue      *QueueInfo
	body       interface{}
	attributes map[string]interface{}
	receivedAt time.Time
}

func (m *Message) Raw() *awssqs.Message { return m.raw }
func (m *Message) Queue() *QueueInfo    { return m.queue }
func (m *Message) Body() interface{}    { return m.body }
func (m *Message) ReceivedAt() time.Time {
	return m.receivedAt
}

// Attributes returns a copy of the decoded message attributes.
func (m *Message) Attributes() map[string]interface{} {
	out := make(map[string]interface{}, len(m.attributes))
	for k, v := range m.attributes {
		out[k] = v
	}
	return out
}

func (m *Message) Attribute(name string) (interface{}, bool) {
	v, ok := m.attributes[name]
	return v, ok
}

func (m *Message) ID() string            { return aws.StringValue(m.raw.MessageId) }
func (m *Message) ReceiptHandle() string { return aws.StringValue(m.raw.ReceiptHandle) }

func (m *Message) systemAttribute(name string) string {
	if m.raw.Attributes == nil {
		return ""
	}
	return aws.StringValue(m.raw.Attributes[name])
}

func (m *Message) GroupID() string         { return m.systemAttribute(sysMessageGroupID) }
func (m *Message) DeduplicationID() string { return m.systemAttribute(sysMessageDeduplicationID) }
func (m *Message) SequenceNumber() string  { return m.systemAttribute(sysSequenceNumber) }

// ApproximateReceiveCount is how many times the message has been received,
// or 0 when unknown.
func (m *Message) ApproximateReceiveCount() int {
	n, _ := strconv.Atoi(m.systemAttribute(sysApproximateReceiveCount))
	return n
}

// RetryCount is the number of earlier deliveries of the message.
func (m *Message) RetryCount() int {
	if n := m.ApproximateReceiveCount(); n > 1 {
		return n - 1
	}
	return 0
}

func (m *Message) ApproximateFirstReceive() time.Time {
	return m.timestamp(sysApproximateFirstReceiveTimestamp)
}

func (m *Message) SentAt() time.Time {
	return m.timestamp(sysSentTimestamp)
}

func (m *Message) timestamp(name string) time.Time {
	ms, err := strconv.ParseInt(m.systemAttribute(name), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, ms*int64(time.Millisecond))
}

// ToInput rebuilds a publishable input from the received message, e.g. to
// republish it elsewhere. Attributes keep their wire types.
func (m *Message) ToInput(delay time.Duration) *Input {
	in := &Input{
		Body:            m.body,
		Delay:           delay,
		GroupID:         m.GroupID(),
		DeduplicationID: m.DeduplicationID(),
	}
	if len(m.raw.MessageAttributes) > 0 {
		in.Attributes = make(map[string]interface{}, len(m.raw.MessageAttributes))
		for key, value := range m.raw.MessageAttributes {
			if value == nil {
				continue
			}
			dataType := aws.StringValue(value.DataType)
			if dataType == "" {
				dataType = TypeString
			}
			attr := Attribute{Type: dataType}
			if basic, _ := BasicTypeOf(dataType); basic == TypeBinary {
				attr.Value = value.BinaryValue
			} else {
				attr.Value = aws.StringValue(value.StringValue)
			}
			in.Attributes[key] = attr
		}
	}
	return in
}
