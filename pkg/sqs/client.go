package sqs

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// receiveWaitTime is the long poll wait of every receive call, the service maximum.
const receiveWaitTime = 20

// maxBatchSize is the largest number of messages a single receive or
// batch send call may carry.
const maxBatchSize = 10

var allAttributes = []*string{aws.String("All")}

// NewClient builds the wire client from an AWS config.
func NewClient(cfg aws.Config) sqsiface.SQSAPI {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		Config: cfg,
	}))
	return awssqs.New(sess)
}

// LocalConfig points the client at a local endpoint such as localstack with
// static credentials.
func LocalConfig(region, endpoint string) aws.Config {
	return aws.Config{
		Region:   aws.String(region),
		Endpoint: aws.String(endpoint),
		Credentials: credentials.NewCredentials(&credentials.StaticProvider{
			Value: credentials.Value{
				AccessKeyID:     "XX",
				SecretAccessKey: "XX",
			},
		}),
	}
}
