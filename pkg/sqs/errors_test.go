package sqs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/stretchr/testify/assert"
)

func TestIsQueueDoesNotExist(t *testing.T) {
	assert.True(t, isQueueDoesNotExist(awserr.New(awssqs.ErrCodeQueueDoesNotExist, "gone", nil)))
	assert.True(t, isQueueDoesNotExist(fmt.Errorf("wrapped: %w", awserr.New(awssqs.ErrCodeQueueDoesNotExist, "gone", nil))))
	assert.False(t, isQueueDoesNotExist(awserr.New("Throttling", "slow down", nil)))
	assert.False(t, isQueueDoesNotExist(errors.New("plain")))
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, isCanceled(context.Canceled))
	assert.True(t, isCanceled(awserr.New(request.CanceledErrorCode, "canceled", context.Canceled)))
	assert.False(t, isCanceled(awserr.New("Throttling", "slow down", nil)))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid groupId: required", (&ValidationError{Field: "groupId", Reason: "required"}).Error())
	assert.Equal(t, "cannot ack message, it has already been rejected", (&MessageStateError{Next: "ack", Current: "rejected"}).Error())
	assert.Equal(t, "consumer function panicked: boom", (&PanicError{Value: "boom"}).Error())
}
