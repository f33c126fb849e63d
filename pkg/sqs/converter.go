package sqs

import (
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
)

// Attribute is an attribute value with an explicit data type name.
type Attribute struct {
	Type  string
	Value interface{}
}

// Converter owns the data type registry of one client and converts between
// wire messages and envelopes.
type Converter struct {
	body BodySerializer

	mu     sync.RWMutex
	types  map[string]*DataType
	custom []*DataType
}

// NewConverter returns a converter with the String, Number and Binary types
// registered. A nil serializer means JSONSerializer.
func NewConverter(body BodySerializer) *Converter {
	if body == nil {
		body = JSONSerializer{}
	}
	c := &Converter{
		body:  body,
		types: map[string]*DataType{},
	}
	for _, t := range []*DataType{StringType, NumberType, BinaryType} {
		c.types[t.Name()] = t
	}
	return c
}

func (c *Converter) RegisterType(t *DataType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.types[t.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t.Name())
	}
	c.types[t.Name()] = t
	c.custom = append(c.custom, t)
	return nil
}

// Type returns the data type registered under name, falling back to its
// basic type for unregistered custom names.
func (c *Converter) Type(name string) (*DataType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if t, ok := c.types[name]; ok {
		return t, nil
	}
	basic, err := BasicTypeOf(name)
	if err != nil {
		return nil, err
	}
	return c.types[basic], nil
}

// ToWire converts an attribute value. Attribute annotations use the named
// type, other values the first matching custom type, then the basic types.
func (c *Converter) ToWire(value interface{}) (*awssqs.MessageAttributeValue, error) {
	switch a := value.(type) {
	case Attribute:
		return c.annotatedToWire(a)
	case *Attribute:
		if a != nil {
			return c.annotatedToWire(*a)
		}
	}

	c.mu.RLock()
	candidates := make([]*DataType, 0, len(c.custom)+3)
	candidates = append(candidates, c.custom...)
	candidates = append(candidates, c.types[TypeString], c.types[TypeNumber], c.types[TypeBinary])
	c.mu.RUnlock()

	for _, t := range candidates {
		if t.Matches(value) {
			return t.ToWire(value)
		}
	}
	return nil, fmt.Errorf("%w: %v (%T)", ErrNotSerializable, value, value)
}

func (c *Converter) annotatedToWire(a Attribute) (*awssqs.MessageAttributeValue, error) {
	t, err := c.Type(a.Type)
	if err != nil {
		return nil, err
	}
	v, err := t.ToWire(a.Value)
	if err != nil {
		return nil, err
	}
	// keep the caller's qualified name even when the base type did the work
	v.DataType = aws.String(a.Type)
	return v, nil
}

// FromWire decodes an attribute value. A missing type tag means String.
func (c *Converter) FromWire(value *awssqs.MessageAttributeValue) (interface{}, error) {
	name := aws.StringValue(value.DataType)
	if name == "" {
		name = TypeString
	}
	t, err := c.Type(name)
	if err != nil {
		return nil, err
	}
	return t.FromWire(value)
}

// FromRawMessage builds the envelope of a received message.
func (c *Converter) FromRawMessage(raw *awssqs.Message, queue *QueueInfo) (*Message, error) {
	var body interface{} = ""
	if b := aws.StringValue(raw.Body); b != "" {
		decoded, err := c.body.Deserialize(b)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	attributes := make(map[string]interface{}, len(raw.MessageAttributes))
	for key, value := range raw.MessageAttributes {
		if value == nil {
			continue
		}
		decoded, err := c.FromWire(value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		attributes[key] = decoded
	}

	return &Message{
		raw:        raw,
		queue:      queue,
		body:       body,
		attributes: attributes,
		receivedAt: time.Now(),
	}, nil
}

func (c *Converter) attributesToWire(attributes map[string]interface{}) (map[string]*awssqs.MessageAttributeValue, error) {
	if len(attributes) == 0 {
		return nil, nil
	}
	result := make(map[string]*awssqs.MessageAttributeValue, len(attributes))
	for key, value := range attributes {
		v, err := c.ToWire(value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		result[key] = v
	}
	return result, nil
}

// ToSendInput converts a publish input into a send request without a queue URL.
func (c *Converter) ToSendInput(in *Input) (*awssqs.SendMessageInput, error) {
	body, err := c.body.Serialize(in.Body)
	if err != nil {
		return nil, err
	}
	attributes, err := c.attributesToWire(in.Attributes)
	if err != nil {
		return nil, err
	}
	out := &awssqs.SendMessageInput{
		MessageBody:       aws.String(body),
		MessageAttributes: attributes,
	}
	if in.GroupID != "" {
		out.MessageGroupId = aws.String(in.GroupID)
	}
	if in.DeduplicationID != "" {
		out.MessageDeduplicationId = aws.String(in.DeduplicationID)
	}
	if in.Delay > 0 {
		out.DelaySeconds = aws.Int64(int64(in.Delay / time.Second))
	}
	return out, nil
}

// ToBatchEntry converts a batch input into a batch request entry.
func (c *Converter) ToBatchEntry(in *BatchInput) (*awssqs.SendMessageBatchRequestEntry, error) {
	single, err := c.ToSendInput(&in.Input)
	if err != nil {
		return nil, err
	}
	return &awssqs.SendMessageBatchRequestEntry{
		Id:                     aws.String(in.ID),
		MessageBody:            single.MessageBody,
		MessageAttributes:      single.MessageAttributes,
		MessageGroupId:         single.MessageGroupId,
		MessageDeduplicationId: single.MessageDeduplicationId,
		DelaySeconds:           single.DelaySeconds,
	}, nil
}
