// Package sqstest provides an in-memory SQS implementation for tests.
package sqstest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/google/uuid"
)

const (
	AccountID = "000000000000"
	Region    = "us-east-1"
	baseURL   = "http://sqs.local/" + AccountID + "/"

	defaultVisibilityTimeout = 30
	maxBatchEntries          = 10
	dedupWindow              = 5 * time.Minute
	pollInterval             = 5 * time.Millisecond
)

// Operation names accepted by InjectError and Calls.
const (
	OpGetQueueURL             = "GetQueueUrl"
	OpGetQueueAttributes      = "GetQueueAttributes"
	OpCreateQueue             = "CreateQueue"
	OpDeleteQueue             = "DeleteQueue"
	OpSendMessage             = "SendMessage"
	OpSendMessageBatch        = "SendMessageBatch"
	OpReceiveMessage          = "ReceiveMessage"
	OpDeleteMessage           = "DeleteMessage"
	OpChangeMessageVisibility = "ChangeMessageVisibility"
)

type message struct {
	id           string
	body         string
	attributes   map[string]*awssqs.MessageAttributeValue
	groupID      string
	dedupID      string
	sequence     string
	sentAt       time.Time
	visibleAt    time.Time
	receiveCount int
	firstReceive time.Time
	receipt      string
	inFlight     bool
}

type queue struct {
	name       string
	url        string
	attributes map[string]*string
	messages   []*message
	dedup      map[string]dedupEntry
}

type dedupEntry struct {
	messageID string
	sequence  string
	at        time.Time
}

func (q *queue) fifo() bool {
	return aws.StringValue(q.attributes[awssqs.QueueAttributeNameFifoQueue]) == "true"
}

func (q *queue) intAttribute(name string, def int64) int64 {
	v, err := strconv.ParseInt(aws.StringValue(q.attributes[name]), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// Fake is an in-memory sqsiface.SQSAPI. Only the operations used by the
// library are implemented, calling any other one panics.
type Fake struct {
	sqsiface.SQSAPI

	mu       sync.Mutex
	queues   map[string]*queue
	sequence int64
	calls    map[string][]interface{}
	errors   map[string][]error
	failIDs  map[string]bool
	now      func() time.Time
}

func New() *Fake {
	return &Fake{
		queues:  map[string]*queue{},
		calls:   map[string][]interface{}{},
		errors:  map[string][]error{},
		failIDs: map[string]bool{},
		now:     time.Now,
	}
}

// AddQueue creates a queue directly and returns its URL. Names ending in
// .fifo create FIFO queues.
func (f *Fake) AddQueue(name string, attributes map[string]string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := aws.StringMap(attributes)
	if strings.HasSuffix(name, ".fifo") && raw[awssqs.QueueAttributeNameFifoQueue] == nil {
		raw[awssqs.QueueAttributeNameFifoQueue] = aws.String("true")
	}
	return f.addQueue(name, raw).url
}

// InjectError makes the next call of op fail with err. Errors queue up.
func (f *Fake) InjectError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[op] = append(f.errors[op], err)
}

// FailBatchEntries makes batch entries with the given ids fail.
func (f *Fake) FailBatchEntries(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.failIDs[id] = true
	}
}

// Calls returns the inputs of every call of op, in call order.
func (f *Fake) Calls(op string) []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]interface{}, len(f.calls[op]))
	copy(calls, f.calls[op])
	return calls
}

// ReceiveInputs returns the inputs of every ReceiveMessage call.
func (f *Fake) ReceiveInputs() []*awssqs.ReceiveMessageInput {
	var inputs []*awssqs.ReceiveMessageInput
	for _, c := range f.Calls(OpReceiveMessage) {
		inputs = append(inputs, c.(*awssqs.ReceiveMessageInput))
	}
	return inputs
}

// Stored returns the number of messages of a queue not deleted yet.
func (f *Fake) Stored(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queues[name]
	if !ok {
		return 0
	}
	return len(q.messages)
}

// Bodies returns the bodies of the messages of a queue not deleted yet.
func (f *Fake) Bodies(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queues[name]
	if !ok {
		return nil
	}
	bodies := make([]string, 0, len(q.messages))
	for _, m := range q.messages {
		bodies = append(bodies, m.body)
	}
	return bodies
}

// InFlight returns the number of received messages not visible yet.
func (f *Fake) InFlight(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queues[name]
	if !ok {
		return 0
	}
	now := f.now()
	n := 0
	for _, m := range q.messages {
		if m.inFlight && m.visibleAt.After(now) {
			n++
		}
	}
	return n
}

// enter records a call and pops an injected error. Must hold f.mu.
func (f *Fake) enter(op string, in interface{}) error {
	f.calls[op] = append(f.calls[op], in)
	if errs := f.errors[op]; len(errs) > 0 {
		f.errors[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *Fake) addQueue(name string, attributes map[string]*string) *queue {
	q := &queue{
		name:       name,
		url:        baseURL + name,
		attributes: map[string]*string{},
		dedup:      map[string]dedupEntry{},
	}
	defaults := map[string]string{
		awssqs.QueueAttributeNameDelaySeconds:                  "0",
		awssqs.QueueAttributeNameMaximumMessageSize:            "262144",
		awssqs.QueueAttributeNameMessageRetentionPeriod:        "345600",
		awssqs.QueueAttributeNameReceiveMessageWaitTimeSeconds: "0",
		awssqs.QueueAttributeNameVisibilityTimeout:             strconv.Itoa(defaultVisibilityTimeout),
	}
	for k, v := range defaults {
		q.attributes[k] = aws.String(v)
	}
	for k, v := range attributes {
		q.attributes[k] = aws.String(aws.StringValue(v))
	}
	q.attributes[awssqs.QueueAttributeNameQueueArn] = aws.String(fmt.Sprintf("arn:aws:sqs:%s:%s:%s", Region, AccountID, name))
	f.queues[name] = q
	return q
}

func (f *Fake) queueByURL(url string) (*queue, error) {
	for _, q := range f.queues {
		if q.url == url {
			return q, nil
		}
	}
	return nil, nonExistentQueue()
}

func nonExistentQueue() error {
	return awserr.New(awssqs.ErrCodeQueueDoesNotExist, "The specified queue does not exist for this wsdl version.", nil)
}

func invalidParameter(msg string) error {
	return awserr.New("InvalidParameterValue", msg, nil)
}

func (f *Fake) GetQueueUrlWithContext(ctx aws.Context, in *awssqs.GetQueueUrlInput, _ ...request.Option) (*awssqs.GetQueueUrlOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpGetQueueURL, in); err != nil {
		return nil, err
	}
	if owner := aws.StringValue(in.QueueOwnerAWSAccountId); owner != "" && owner != AccountID {
		return nil, nonExistentQueue()
	}
	q, ok := f.queues[aws.StringValue(in.QueueName)]
	if !ok {
		return nil, nonExistentQueue()
	}
	return &awssqs.GetQueueUrlOutput{QueueUrl: aws.String(q.url)}, nil
}

func (f *Fake) GetQueueAttributesWithContext(ctx aws.Context, in *awssqs.GetQueueAttributesInput, _ ...request.Option) (*awssqs.GetQueueAttributesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpGetQueueAttributes, in); err != nil {
		return nil, err
	}
	q, err := f.queueByURL(aws.StringValue(in.QueueUrl))
	if err != nil {
		return nil, err
	}

	out := map[string]*string{}
	for _, name := range aws.StringValueSlice(in.AttributeNames) {
		if name == awssqs.QueueAttributeNameAll {
			for k, v := range q.attributes {
				out[k] = aws.String(aws.StringValue(v))
			}
			continue
		}
		if v, ok := q.attributes[name]; ok {
			out[name] = aws.String(aws.StringValue(v))
		}
	}
	return &awssqs.GetQueueAttributesOutput{Attributes: out}, nil
}

func (f *Fake) CreateQueueWithContext(ctx aws.Context, in *awssqs.CreateQueueInput, _ ...request.Option) (*awssqs.CreateQueueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpCreateQueue, in); err != nil {
		return nil, err
	}

	name := aws.StringValue(in.QueueName)
	isFifo := aws.StringValue(in.Attributes[awssqs.QueueAttributeNameFifoQueue]) == "true"
	if strings.HasSuffix(name, ".fifo") != isFifo {
		return nil, invalidParameter("The name of a FIFO queue can only include alphanumeric characters, hyphens, or underscores, must end with .fifo suffix")
	}

	if q, ok := f.queues[name]; ok {
		for k, v := range in.Attributes {
			if aws.StringValue(q.attributes[k]) != aws.StringValue(v) {
				return nil, awserr.New(awssqs.ErrCodeQueueNameExists, "A queue already exists with the same name and a different value for attribute "+k, nil)
			}
		}
		return &awssqs.CreateQueueOutput{QueueUrl: aws.String(q.url)}, nil
	}

	q := f.addQueue(name, in.Attributes)
	return &awssqs.CreateQueueOutput{QueueUrl: aws.String(q.url)}, nil
}

func (f *Fake) DeleteQueueWithContext(ctx aws.Context, in *awssqs.DeleteQueueInput, _ ...request.Option) (*awssqs.DeleteQueueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpDeleteQueue, in); err != nil {
		return nil, err
	}
	q, err := f.queueByURL(aws.StringValue(in.QueueUrl))
	if err != nil {
		return nil, err
	}
	delete(f.queues, q.name)
	return &awssqs.DeleteQueueOutput{}, nil
}

type sendRequest struct {
	body       string
	attributes map[string]*awssqs.MessageAttributeValue
	groupID    string
	dedupID    string
	delay      *int64
}

type sendResult struct {
	id             string
	md5Body        string
	md5Attributes  string
	sequenceNumber string
}

// send stores a message. Must hold f.mu.
func (f *Fake) send(q *queue, req sendRequest) (*sendResult, error) {
	now := f.now()
	result := &sendResult{
		md5Body:       md5Hex([]byte(req.body)),
		md5Attributes: AttributesMD5(req.attributes),
	}

	if q.fifo() {
		if req.groupID == "" {
			return nil, awserr.New("MissingParameter", "The request must contain the parameter MessageGroupId.", nil)
		}
		if req.delay != nil && *req.delay > 0 {
			return nil, invalidParameter("Value for parameter DelaySeconds is invalid. Reason: The request include parameter that is not valid for this queue type.")
		}
		dedupID := req.dedupID
		if dedupID == "" {
			if aws.StringValue(q.attributes[awssqs.QueueAttributeNameContentBasedDeduplication]) != "true" {
				return nil, invalidParameter("The queue should either have ContentBasedDeduplication enabled or MessageDeduplicationId provided explicitly")
			}
			sum := sha256.Sum256([]byte(req.body))
			dedupID = hex.EncodeToString(sum[:])
		}
		if seen, ok := q.dedup[dedupID]; ok && now.Sub(seen.at) < dedupWindow {
			result.id = seen.messageID
			result.sequenceNumber = seen.sequence
			return result, nil
		}
		req.dedupID = dedupID
	} else if req.groupID != "" || req.dedupID != "" {
		return nil, invalidParameter("MessageGroupId and MessageDeduplicationId are only valid for FIFO queues")
	}

	delay := q.intAttribute(awssqs.QueueAttributeNameDelaySeconds, 0)
	if req.delay != nil {
		delay = *req.delay
	}

	m := &message{
		id:         uuid.NewString(),
		body:       req.body,
		attributes: req.attributes,
		groupID:    req.groupID,
		dedupID:    req.dedupID,
		sentAt:     now,
		visibleAt:  now.Add(time.Duration(delay) * time.Second),
	}
	if q.fifo() {
		f.sequence++
		m.sequence = fmt.Sprintf("%020d", f.sequence)
		q.dedup[m.dedupID] = dedupEntry{messageID: m.id, sequence: m.sequence, at: now}
	}
	q.messages = append(q.messages, m)

	result.id = m.id
	result.sequenceNumber = m.sequence
	return result, nil
}

func (f *Fake) SendMessageWithContext(ctx aws.Context, in *awssqs.SendMessageInput, _ ...request.Option) (*awssqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpSendMessage, in); err != nil {
		return nil, err
	}
	q, err := f.queueByURL(aws.StringValue(in.QueueUrl))
	if err != nil {
		return nil, err
	}

	res, err := f.send(q, sendRequest{
		body:       aws.StringValue(in.MessageBody),
		attributes: in.MessageAttributes,
		groupID:    aws.StringValue(in.MessageGroupId),
		dedupID:    aws.StringValue(in.MessageDeduplicationId),
		delay:      in.DelaySeconds,
	})
	if err != nil {
		return nil, err
	}

	out := &awssqs.SendMessageOutput{
		MessageId:        aws.String(res.id),
		MD5OfMessageBody: aws.String(res.md5Body),
	}
	if res.md5Attributes != "" {
		out.MD5OfMessageAttributes = aws.String(res.md5Attributes)
	}
	if res.sequenceNumber != "" {
		out.SequenceNumber = aws.String(res.sequenceNumber)
	}
	return out, nil
}

func (f *Fake) SendMessageBatchWithContext(ctx aws.Context, in *awssqs.SendMessageBatchInput, _ ...request.Option) (*awssqs.SendMessageBatchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpSendMessageBatch, in); err != nil {
		return nil, err
	}
	q, err := f.queueByURL(aws.StringValue(in.QueueUrl))
	if err != nil {
		return nil, err
	}
	if len(in.Entries) == 0 {
		return nil, awserr.New(awssqs.ErrCodeEmptyBatchRequest, "There should be at least one SendMessageBatchRequestEntry in the request.", nil)
	}
	if len(in.Entries) > maxBatchEntries {
		return nil, awserr.New(awssqs.ErrCodeTooManyEntriesInBatchRequest, "Maximum number of entries per request are 10.", nil)
	}

	seen := map[string]bool{}
	for _, e := range in.Entries {
		id := aws.StringValue(e.Id)
		if seen[id] {
			return nil, awserr.New(awssqs.ErrCodeBatchEntryIdsNotDistinct, "Id "+id+" repeated.", nil)
		}
		seen[id] = true
	}

	out := &awssqs.SendMessageBatchOutput{
		Successful: []*awssqs.SendMessageBatchResultEntry{},
		Failed:     []*awssqs.BatchResultErrorEntry{},
	}
	for _, e := range in.Entries {
		if f.failIDs[aws.StringValue(e.Id)] {
			out.Failed = append(out.Failed, &awssqs.BatchResultErrorEntry{
				Id:          e.Id,
				Code:        aws.String("InternalError"),
				Message:     aws.String("injected failure"),
				SenderFault: aws.Bool(false),
			})
			continue
		}

		res, err := f.send(q, sendRequest{
			body:       aws.StringValue(e.MessageBody),
			attributes: e.MessageAttributes,
			groupID:    aws.StringValue(e.MessageGroupId),
			dedupID:    aws.StringValue(e.MessageDeduplicationId),
			delay:      e.DelaySeconds,
		})
		if err != nil {
			code := "InvalidParameterValue"
			if aerr, ok := err.(awserr.Error); ok {
				code = aerr.Code()
			}
			out.Failed = append(out.Failed, &awssqs.BatchResultErrorEntry{
				Id:          e.Id,
				Code:        aws.String(code),
				Message:     aws.String(err.Error()),
				SenderFault: aws.Bool(true),
			})
			continue
		}

		entry := &awssqs.SendMessageBatchResultEntry{
			Id:               e.Id,
			MessageId:        aws.String(res.id),
			MD5OfMessageBody: aws.String(res.md5Body),
		}
		if res.md5Attributes != "" {
			entry.MD5OfMessageAttributes = aws.String(res.md5Attributes)
		}
		if res.sequenceNumber != "" {
			entry.SequenceNumber = aws.String(res.sequenceNumber)
		}
		out.Successful = append(out.Successful, entry)
	}
	return out, nil
}

// ReceiveMessageWithContext long polls for up to WaitTimeSeconds. Messages of
// a FIFO group are held back while an earlier message of the group is in
// flight.
func (f *Fake) ReceiveMessageWithContext(ctx aws.Context, in *awssqs.ReceiveMessageInput, _ ...request.Option) (*awssqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if err := f.enter(OpReceiveMessage, in); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	q, err := f.queueByURL(aws.StringValue(in.QueueUrl))
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	wait := time.Duration(q.intAttribute(awssqs.QueueAttributeNameReceiveMessageWaitTimeSeconds, 0)) * time.Second
	if in.WaitTimeSeconds != nil {
		wait = time.Duration(*in.WaitTimeSeconds) * time.Second
	}
	f.mu.Unlock()

	max := int(aws.Int64Value(in.MaxNumberOfMessages))
	if max <= 0 {
		max = 1
	}
	if max > maxBatchEntries {
		return nil, invalidParameter("Value for parameter MaxNumberOfMessages is invalid. Reason: Must be between 1 and 10.")
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		f.mu.Lock()
		if _, ok := f.queues[q.name]; !ok {
			f.mu.Unlock()
			return nil, nonExistentQueue()
		}
		messages := f.receive(q, max, in.VisibilityTimeout)
		f.mu.Unlock()

		if len(messages) > 0 {
			return &awssqs.ReceiveMessageOutput{Messages: messages}, nil
		}

		select {
		case <-ctx.Done():
			return nil, awserr.New(request.CanceledErrorCode, "request context canceled", ctx.Err())
		case <-deadline.C:
			return &awssqs.ReceiveMessageOutput{}, nil
		case <-ticker.C:
		}
	}
}

// receive takes up to max visible messages. Must hold f.mu.
func (f *Fake) receive(q *queue, max int, visibility *int64) []*awssqs.Message {
	now := f.now()
	timeout := q.intAttribute(awssqs.QueueAttributeNameVisibilityTimeout, defaultVisibilityTimeout)
	if visibility != nil {
		timeout = *visibility
	}

	blocked := map[string]bool{}
	if q.fifo() {
		for _, m := range q.messages {
			if m.inFlight && m.visibleAt.After(now) {
				blocked[m.groupID] = true
			}
		}
	}

	var out []*awssqs.Message
	for _, m := range q.messages {
		if len(out) == max {
			break
		}
		if m.visibleAt.After(now) {
			if q.fifo() {
				// later messages of the group must wait for this one
				blocked[m.groupID] = true
			}
			continue
		}
		if blocked[m.groupID] {
			continue
		}

		m.receiveCount++
		if m.firstReceive.IsZero() {
			m.firstReceive = now
		}
		m.inFlight = true
		m.visibleAt = now.Add(time.Duration(timeout) * time.Second)
		m.receipt = uuid.NewString()

		out = append(out, m.toWire())
	}
	return out
}

func (m *message) toWire() *awssqs.Message {
	attributes := map[string]*string{
		awssqs.MessageSystemAttributeNameSentTimestamp:                    aws.String(strconv.FormatInt(m.sentAt.UnixNano()/int64(time.Millisecond), 10)),
		awssqs.MessageSystemAttributeNameApproximateReceiveCount:          aws.String(strconv.Itoa(m.receiveCount)),
		awssqs.MessageSystemAttributeNameApproximateFirstReceiveTimestamp: aws.String(strconv.FormatInt(m.firstReceive.UnixNano()/int64(time.Millisecond), 10)),
		awssqs.MessageSystemAttributeNameSenderId:                         aws.String(AccountID),
	}
	if m.groupID != "" {
		attributes[awssqs.MessageSystemAttributeNameMessageGroupId] = aws.String(m.groupID)
		attributes[awssqs.MessageSystemAttributeNameMessageDeduplicationId] = aws.String(m.dedupID)
		attributes[awssqs.MessageSystemAttributeNameSequenceNumber] = aws.String(m.sequence)
	}

	out := &awssqs.Message{
		MessageId:     aws.String(m.id),
		ReceiptHandle: aws.String(m.receipt),
		Body:          aws.String(m.body),
		MD5OfBody:     aws.String(md5Hex([]byte(m.body))),
		Attributes:    attributes,
	}
	if len(m.attributes) > 0 {
		out.MessageAttributes = m.attributes
		out.MD5OfMessageAttributes = aws.String(AttributesMD5(m.attributes))
	}
	return out
}

func (f *Fake) byReceipt(q *queue, receipt string) (int, error) {
	for i, m := range q.messages {
		if m.receipt != "" && m.receipt == receipt {
			return i, nil
		}
	}
	return -1, awserr.New(awssqs.ErrCodeReceiptHandleIsInvalid, "The input receipt handle is invalid.", nil)
}

func (f *Fake) DeleteMessageWithContext(ctx aws.Context, in *awssqs.DeleteMessageInput, _ ...request.Option) (*awssqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpDeleteMessage, in); err != nil {
		return nil, err
	}
	q, err := f.queueByURL(aws.StringValue(in.QueueUrl))
	if err != nil {
		return nil, err
	}
	i, err := f.byReceipt(q, aws.StringValue(in.ReceiptHandle))
	if err != nil {
		return nil, err
	}
	q.messages = append(q.messages[:i], q.messages[i+1:]...)
	return &awssqs.DeleteMessageOutput{}, nil
}

func (f *Fake) ChangeMessageVisibilityWithContext(ctx aws.Context, in *awssqs.ChangeMessageVisibilityInput, _ ...request.Option) (*awssqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpChangeMessageVisibility, in); err != nil {
		return nil, err
	}
	q, err := f.queueByURL(aws.StringValue(in.QueueUrl))
	if err != nil {
		return nil, err
	}
	timeout := aws.Int64Value(in.VisibilityTimeout)
	if timeout < 0 || timeout > 43200 {
		return nil, invalidParameter("Value for parameter VisibilityTimeout is invalid. Reason: Must be between 0 and 43200.")
	}
	i, err := f.byReceipt(q, aws.StringValue(in.ReceiptHandle))
	if err != nil {
		return nil, err
	}
	m := q.messages[i]
	m.visibleAt = f.now().Add(time.Duration(timeout) * time.Second)
	if timeout == 0 {
		m.inFlight = false
	}
	return &awssqs.ChangeMessageVisibilityOutput{}, nil
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// AttributesMD5 computes the MD5 digest SQS returns for message attributes,
// empty for no attributes.
func AttributesMD5(attributes map[string]*awssqs.MessageAttributeValue) string {
	if len(attributes) == 0 {
		return ""
	}
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	h := md5.New()
	writeField := func(b []byte) {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(b)))
		h.Write(size[:])
		h.Write(b)
	}
	for _, name := range names {
		v := attributes[name]
		dataType := aws.StringValue(v.DataType)
		writeField([]byte(name))
		writeField([]byte(dataType))
		if strings.HasPrefix(dataType, "Binary") {
			h.Write([]byte{2})
			writeField(v.BinaryValue)
		} else {
			h.Write([]byte{1})
			writeField([]byte(aws.StringValue(v.StringValue)))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
