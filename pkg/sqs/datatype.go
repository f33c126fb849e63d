package sqs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
)

// Basic attribute data types. Every DataType name starts with one of them.
const (
	TypeString = "String"
	TypeNumber = "Number"
	TypeBinary = "Binary"
)

var dataTypeNamePattern = regexp.MustCompile(`^(String|Number|Binary)(\.\w+)?$`)

// Serializer turns an application value into its wire payload. String and
// Number kinds carry the payload as text.
type Serializer func(value interface{}) ([]byte, error)

// Deserializer turns a wire payload back into an application value.
type Deserializer func(payload []byte) (interface{}, error)

// Predicate tells whether a value belongs to a data type. It is used to
// infer the type of attribute values published without an explicit type.
type Predicate func(value interface{}) bool

// DataType is a named converter between application values and message
// attribute values.
type DataType struct {
	name         string
	basic        string
	serializer   Serializer
	deserializer Deserializer
	predicate    Predicate
}

// NewDataType validates the name and builds a data type. The predicate may be
// nil for types that are only ever used explicitly.
func NewDataType(name string, serializer Serializer, deserializer Deserializer, predicate Predicate) (*DataType, error) {
	m := dataTypeNamePattern.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	if serializer == nil || deserializer == nil {
		return nil, &ValidationError{Field: "dataType", Reason: "serializer and deserializer are required"}
	}
	return &DataType{
		name:         name,
		basic:        m[1],
		serializer:   serializer,
		deserializer: deserializer,
		predicate:    predicate,
	}, nil
}

// MustDataType is like NewDataType but panics on error.
func MustDataType(name string, serializer Serializer, deserializer Deserializer, predicate Predicate) *DataType {
	t, err := NewDataType(name, serializer, deserializer, predicate)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *DataType) Name() string { return t.name }

// BasicType is the name without its custom suffix, e.g. "String" for "String.json".
func (t *DataType) BasicType() string { return t.basic }

func (t *DataType) IsString() bool { return t.basic == TypeString }
func (t *DataType) IsNumber() bool { return t.basic == TypeNumber }
func (t *DataType) IsBinary() bool { return t.basic == TypeBinary }

// Matches reports whether value can be inferred to be of this type.
func (t *DataType) Matches(value interface{}) bool {
	return t.predicate != nil && t.predicate(value)
}

func (t *DataType) ToWire(value interface{}) (*awssqs.MessageAttributeValue, error) {
	payload, err := t.serializer(value)
	if err != nil {
		return nil, err
	}
	result := &awssqs.MessageAttributeValue{DataType: aws.String(t.name)}
	if t.IsBinary() {
		result.BinaryValue = payload
	} else {
		result.StringValue = aws.String(string(payload))
	}
	return result, nil
}

func (t *DataType) FromWire(value *awssqs.MessageAttributeValue) (interface{}, error) {
	if t.IsBinary() {
		return t.deserializer(value.BinaryValue)
	}
	return t.deserializer([]byte(aws.StringValue(value.StringValue)))
}

// BasicTypeOf strips the custom suffix from a data type name.
func BasicTypeOf(name string) (string, error) {
	for _, basic := range []string{TypeString, TypeNumber, TypeBinary} {
		if name == basic || strings.HasPrefix(name, basic+".") {
			return basic, nil
		}
	}
	return "", fmt.Errorf("%w: cannot extract basic type from %q", ErrUnknownType, name)
}

// StringType converts any value to its default string form.
var StringType = MustDataType(TypeString,
	func(v interface{}) ([]byte, error) {
		return []byte(stringify(v)), nil
	},
	func(p []byte) (interface{}, error) {
		return string(p), nil
	},
	func(v interface{}) bool {
		_, ok := v.(string)
		return ok
	},
)

// NumberType carries numbers as decimal text. Text that does not parse as a
// number decodes to NaN rather than failing.
var NumberType = MustDataType(TypeNumber,
	func(v interface{}) ([]byte, error) {
		return []byte(stringify(v)), nil
	},
	func(p []byte) (interface{}, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(string(p)), 64)
		if err != nil {
			return math.NaN(), nil
		}
		return f, nil
	},
	isNumber,
)

// BinaryType accepts []byte, typed numeric slices and strings.
var BinaryType = MustDataType(TypeBinary,
	toBinary,
	func(p []byte) (interface{}, error) {
		return p, nil
	},
	func(v interface{}) bool {
		if _, ok := v.([]byte); ok {
			return true
		}
		return isTypedSlice(v)
	},
)

func isNumber(v interface{}) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func isTypedSlice(v interface{}) bool {
	switch v.(type) {
	case []int8, []int16, []uint16, []int32, []uint32, []int64, []uint64, []float32, []float64:
		return true
	}
	return false
}

func toBinary(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	if isTypedSlice(v) {
		// typed slices go out as their little-endian memory layout
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBinaryValue, err)
		}
		return buf.Bytes(), nil
	}
	return nil, ErrInvalidBinaryValue
}
