package sqs

import (
	"fmt"
)

// BodySerializer encodes message bodies. Implementations must be safe for
// concurrent use.
type BodySerializer interface {
	Serialize(body interface{}) (string, error)
	Deserialize(raw string) (interface{}, error)
}

// JSONSerializer encodes bodies as JSON. Decoded bodies are the generic JSON
// representation (map[string]interface{}, []interface{}, float64, ...).
type JSONSerializer struct{}

func (JSONSerializer) Serialize(body interface{}) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("serialize body: %w", err)
	}
	return string(b), nil
}

func (JSONSerializer) Deserialize(raw string) (interface{}, error) {
	var body interface{}
	if err := json.UnmarshalFromString(raw, &body); err != nil {
		return nil, fmt.Errorf("deserialize body: %w", err)
	}
	return body, nil
}

// StringSerializer passes bodies through untouched.
type StringSerializer struct{}

func (StringSerializer) Serialize(body interface{}) (string, error) {
	switch b := body.(type) {
	case string:
		return b, nil
	case []byte:
		return string(b), nil
	case fmt.Stringer:
		return b.String(), nil
	}
	return "", fmt.Errorf("serialize body: %T is not a string", body)
}

func (StringSerializer) Deserialize(raw string) (interface{}, error) {
	return raw, nil
}
