package sqs

import (
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Queue attribute names as used on the wire.
const (
	attrDelaySeconds                  = "DelaySeconds"
	attrMaximumMessageSize            = "MaximumMessageSize"
	attrMessageRetentionPeriod        = "MessageRetentionPeriod"
	attrReceiveMessageWaitTimeSeconds = "ReceiveMessageWaitTimeSeconds"
	attrVisibilityTimeout             = "VisibilityTimeout"
	attrFifoQueue                     = "FifoQueue"
	attrContentBasedDeduplication     = "ContentBasedDeduplication"
	attrRedrivePolicy                 = "RedrivePolicy"
	attrRedriveAllowPolicy            = "RedriveAllowPolicy"
	attrQueueArn                      = "QueueArn"
	attrKmsMasterKeyID                = "KmsMasterKeyId"
	attrKmsDataKeyReusePeriodSeconds  = "KmsDataKeyReusePeriodSeconds"
)

const defaultMaxReceiveCount = 10

type rawRedrivePolicy struct {
	DeadLetterTargetArn string      `json:"deadLetterTargetArn"`
	MaxReceiveCount     interface{} `json:"maxReceiveCount"`
}

type rawRedriveAllowPolicy struct {
	RedrivePermission RedrivePermission `json:"redrivePermission"`
	SourceQueueArns   []string          `json:"sourceQueueArns,omitempty"`
}

func seconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}

// toRawAttributes converts creation attributes into the wire attribute map.
func toRawAttributes(in *QueueAttributesInput) (map[string]*string, error) {
	raw := map[string]string{}

	if in.Delay != nil {
		raw[attrDelaySeconds] = seconds(*in.Delay)
	}
	if in.MaxMessageSize != nil {
		raw[attrMaximumMessageSize] = strconv.FormatInt(*in.MaxMessageSize, 10)
	}
	if in.RetentionPeriod != nil {
		raw[attrMessageRetentionPeriod] = seconds(*in.RetentionPeriod)
	}
	if in.ReceiveWaitTime != nil {
		raw[attrReceiveMessageWaitTimeSeconds] = seconds(*in.ReceiveWaitTime)
	}
	if in.VisibilityTimeout != nil {
		raw[attrVisibilityTimeout] = seconds(*in.VisibilityTimeout)
	}
	if in.IsFifo {
		raw[attrFifoQueue] = "true"
	}
	if in.IsContentBasedDeduplication != nil {
		raw[attrContentBasedDeduplication] = strconv.FormatBool(*in.IsContentBasedDeduplication)
	}
	if in.RedrivePolicy != nil {
		s, err := redrivePolicyToRaw(in.RedrivePolicy)
		if err != nil {
			return nil, err
		}
		raw[attrRedrivePolicy] = s
	}
	if in.RedriveAllowPolicy != nil {
		s, err := redriveAllowPolicyToRaw(in.RedriveAllowPolicy)
		if err != nil {
			return nil, err
		}
		raw[attrRedriveAllowPolicy] = s
	}

	result := make(map[string]*string, len(raw))
	for k, v := range raw {
		v := v
		result[k] = &v
	}
	return result, nil
}

// fromRawAttributes converts the wire attribute map of an existing queue.
func fromRawAttributes(raw map[string]*string) (QueueAttributes, error) {
	get := func(name string) string {
		if v, ok := raw[name]; ok && v != nil {
			return *v
		}
		return ""
	}
	attrs := QueueAttributes{
		Delay:                       parseSeconds(get(attrDelaySeconds)),
		IsContentBasedDeduplication: get(attrContentBasedDeduplication) == "true",
		IsFifo:                      get(attrFifoQueue) == "true",
		MaxMessageSize:              parseInt(get(attrMaximumMessageSize)),
		ReceiveWaitTime:             parseSeconds(get(attrReceiveMessageWaitTimeSeconds)),
		RetentionPeriod:             parseSeconds(get(attrMessageRetentionPeriod)),
		VisibilityTimeout:           parseSeconds(get(attrVisibilityTimeout)),
		Arn:                         get(attrQueueArn),
	}

	if s := get(attrRedrivePolicy); s != "" {
		p, err := redrivePolicyFromRaw(s)
		if err != nil {
			return attrs, err
		}
		attrs.RedrivePolicy = p
	}
	if s := get(attrRedriveAllowPolicy); s != "" {
		p, err := redriveAllowPolicyFromRaw(s)
		if err != nil {
			return attrs, err
		}
		attrs.RedriveAllowPolicy = p
	}
	return attrs, nil
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseSeconds(s string) time.Duration {
	return time.Duration(parseInt(s)) * time.Second
}

func redrivePolicyToRaw(p *RedrivePolicy) (string, error) {
	count := p.MaxReceiveCount
	if count == 0 {
		count = defaultMaxReceiveCount
	}
	b, err := json.Marshal(rawRedrivePolicy{
		DeadLetterTargetArn: p.DeadLetterQueueArn,
		MaxReceiveCount:     count,
	})
	return string(b), err
}

func redrivePolicyFromRaw(s string) (*RedrivePolicy, error) {
	var raw rawRedrivePolicy
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("decode redrive policy: %w", err)
	}
	// the service has been seen returning the count both as a number and as a string
	var count int
	switch v := raw.MaxReceiveCount.(type) {
	case float64:
		count = int(v)
	case string:
		count, _ = strconv.Atoi(v)
	}
	if count == 0 {
		count = defaultMaxReceiveCount
	}
	return &RedrivePolicy{
		DeadLetterQueueArn: raw.DeadLetterTargetArn,
		MaxReceiveCount:    count,
	}, nil
}

func redriveAllowPolicyToRaw(p *RedriveAllowPolicy) (string, error) {
	raw := rawRedriveAllowPolicy{RedrivePermission: p.Permission}
	switch p.Permission {
	case RedriveAllowAll, RedriveDenyAll:
	case RedriveByQueue, "":
		raw.RedrivePermission = RedriveByQueue
		raw.SourceQueueArns = p.SourceQueueArns
	default:
		return "", &ValidationError{Field: "redriveAllowPolicy", Reason: fmt.Sprintf("unknown permission %q", p.Permission)}
	}
	b, err := json.Marshal(raw)
	return string(b), err
}

func redriveAllowPolicyFromRaw(s string) (*RedriveAllowPolicy, error) {
	var raw rawRedriveAllowPolicy
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("decode redrive allow policy: %w", err)
	}
	if raw.RedrivePermission == RedriveAllowAll || raw.RedrivePermission == RedriveDenyAll {
		return &RedriveAllowPolicy{Permission: raw.RedrivePermission}, nil
	}
	return &RedriveAllowPolicy{Permission: RedriveByQueue, SourceQueueArns: raw.SourceQueueArns}, nil
}
