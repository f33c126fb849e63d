package sqs

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type temperature float64

var celsiusType = MustDataType("Number.celsius",
	func(v interface{}) ([]byte, error) {
		return []byte(strconv.FormatFloat(float64(v.(temperature)), 'f', -1, 64)), nil
	},
	func(p []byte) (interface{}, error) {
		f, err := strconv.ParseFloat(string(p), 64)
		return temperature(f), err
	},
	func(v interface{}) bool {
		_, ok := v.(temperature)
		return ok
	},
)

func TestRegisterType(t *testing.T) {
	// arrange
	converter := NewConverter(nil)

	// act
	err := converter.RegisterType(celsiusType)

	// assert
	require.NoError(t, err)
	actual, err := converter.Type("Number.celsius")
	require.NoError(t, err)
	assert.Same(t, celsiusType, actual)
}

func TestRegisterTypeTwice(t *testing.T) {
	// arrange
	converter := NewConverter(nil)
	require.NoError(t, converter.RegisterType(celsiusType))

	// act
	err := converter.RegisterType(celsiusType)

	// assert
	assert.True(t, errors.Is(err, ErrDuplicateType))
}

func TestRegisterBuiltinType(t *testing.T) {
	// act
	err := NewConverter(nil).RegisterType(StringType)

	// assert
	assert.True(t, errors.Is(err, ErrDuplicateType))
}

func TestRegistriesAreIndependent(t *testing.T) {
	// arrange
	a, b := NewConverter(nil), NewConverter(nil)

	// act
	require.NoError(t, a.RegisterType(celsiusType))

	// assert
	assert.NoError(t, b.RegisterType(celsiusType))
}

func TestTypeFallsBackToBasicType(t *testing.T) {
	// act
	actual, err := NewConverter(nil).Type("String.unregistered")

	// assert
	require.NoError(t, err)
	assert.Same(t, StringType, actual)
}

func TestToWireInference(t *testing.T) {
	// arrange
	converter := NewConverter(nil)
	require.NoError(t, converter.RegisterType(celsiusType))

	cases := map[string]struct {
		value    interface{}
		dataType string
	}{
		"string":      {"x", "String"},
		"int":         {7, "Number"},
		"float":       {1.5, "Number"},
		"bytes":       {[]byte("x"), "Binary"},
		"typed slice": {[]int64{1}, "Binary"},
		"custom":      {temperature(21.5), "Number.celsius"},
		"annotated":   {Attribute{Type: "String.json", Value: `{"a":1}`}, "String.json"},
		"pointer":     {&Attribute{Type: "Binary.raw", Value: "abc"}, "Binary.raw"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			// act
			wire, err := converter.ToWire(tc.value)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.dataType, aws.StringValue(wire.DataType))
		})
	}
}

func TestToWireNotSerializable(t *testing.T) {
	// act
	_, err := NewConverter(nil).ToWire(true)

	// assert
	assert.True(t, errors.Is(err, ErrNotSerializable))
}

func TestFromWireCustomType(t *testing.T) {
	// arrange
	converter := NewConverter(nil)
	require.NoError(t, converter.RegisterType(celsiusType))
	wire, err := converter.ToWire(temperature(-3.5))
	require.NoError(t, err)

	// act
	actual, err := converter.FromWire(wire)

	// assert
	require.NoError(t, err)
	assert.Equal(t, temperature(-3.5), actual)
}

func TestFromWireMissingTypeIsString(t *testing.T) {
	// act
	actual, err := NewConverter(nil).FromWire(&awssqs.MessageAttributeValue{StringValue: aws.String("x")})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "x", actual)
}

func TestToSendInput(t *testing.T) {
	// arrange
	converter := NewConverter(nil)
	in := &Input{
		Body:            map[string]interface{}{"foo": "bar"},
		Delay:           3 * time.Second,
		Attributes:      map[string]interface{}{"MessageType": "test", "Count": 2},
		GroupID:         "group1",
		DeduplicationID: "dedup1",
	}

	// act
	out, err := converter.ToSendInput(in)

	// assert
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":"bar"}`, aws.StringValue(out.MessageBody))
	assert.Equal(t, int64(3), aws.Int64Value(out.DelaySeconds))
	assert.Equal(t, "group1", aws.StringValue(out.MessageGroupId))
	assert.Equal(t, "dedup1", aws.StringValue(out.MessageDeduplicationId))
	assert.Equal(t, "String", aws.StringValue(out.MessageAttributes["MessageType"].DataType))
	assert.Equal(t, "2", aws.StringValue(out.MessageAttributes["Count"].StringValue))
	assert.Nil(t, out.QueueUrl)
}

func TestToSendInputWithoutOptionalFields(t *testing.T) {
	// act
	out, err := NewConverter(StringSerializer{}).ToSendInput(&Input{Body: "plain"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "plain", aws.StringValue(out.MessageBody))
	assert.Nil(t, out.DelaySeconds)
	assert.Nil(t, out.MessageGroupId)
	assert.Nil(t, out.MessageDeduplicationId)
	assert.Nil(t, out.MessageAttributes)
}

func TestToBatchEntry(t *testing.T) {
	// act
	entry, err := NewConverter(nil).ToBatchEntry(&BatchInput{ID: "1", Input: Input{Body: 5, GroupID: "g"}})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "1", aws.StringValue(entry.Id))
	assert.Equal(t, "5", aws.StringValue(entry.MessageBody))
	assert.Equal(t, "g", aws.StringValue(entry.MessageGroupId))
}

func TestFromRawMessage(t *testing.T) {
	// arrange
	converter := NewConverter(nil)
	queue := &QueueInfo{Name: "test", URL: "http://sqs.local/test"}
	raw := &awssqs.Message{
		MessageId:     aws.String("id-1"),
		ReceiptHandle: aws.String("receipt"),
		Body:          aws.String(`{"foo":"bar"}`),
		MessageAttributes: map[string]*awssqs.MessageAttributeValue{
			"Count": {DataType: aws.String("Number"), StringValue: aws.String("12")},
			"Blob":  {DataType: aws.String("Binary"), BinaryValue: []byte{1}},
		},
	}

	// act
	msg, err := converter.FromRawMessage(raw, queue)

	// assert
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"foo": "bar"}, msg.Body())
	assert.Equal(t, map[string]interface{}{"Count": float64(12), "Blob": []byte{1}}, msg.Attributes())
	assert.Same(t, queue, msg.Queue())
	assert.False(t, msg.ReceivedAt().IsZero())
}

func TestFromRawMessageEmptyBody(t *testing.T) {
	// act
	msg, err := NewConverter(nil).FromRawMessage(&awssqs.Message{MessageId: aws.String("1")}, &QueueInfo{Name: "q"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "", msg.Body())
	assert.Empty(t, msg.Attributes())
}

func TestFromRawMessageInvalidBody(t *testing.T) {
	// act
	_, err := NewConverter(nil).FromRawMessage(&awssqs.Message{Body: aws.String("{not json")}, &QueueInfo{Name: "q"})

	// assert
	assert.Error(t, err)
}
