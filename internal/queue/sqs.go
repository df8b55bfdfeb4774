package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSQueue implements Queue against Amazon SQS (or a compatible endpoint,
// see QUEUE_ENDPOINT_OVERRIDE in internal/config).
type SQSQueue struct {
	client            *sqs.Client
	queueURL          string
	longPollSeconds   int32
	visibilityTimeout int32
}

// NewSQSQueue creates an SQS-backed queue. longPollSeconds and
// visibilityTimeout come straight from config (spec.md §6
// QUEUE_LONG_POLL_SEC, QUEUE_VISIBILITY_SEC).
func NewSQSQueue(client *sqs.Client, queueURL string, longPollSeconds, visibilityTimeout int) *SQSQueue {
	return &SQSQueue{
		client:            client,
		queueURL:          queueURL,
		longPollSeconds:   int32(longPollSeconds),
		visibilityTimeout: int32(visibilityTimeout),
	}
}

func (q *SQSQueue) Enqueue(ctx context.Context, jobID string) error {
	body, err := json.Marshal(struct {
		JobID string `json:"job_id"`
	}{jobID})
	if err != nil {
		return fmt.Errorf("encode message for job %s: %w", jobID, err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     q.longPollSeconds,
		VisibilityTimeout:   q.visibilityTimeout,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameSentTimestamp,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		var payload struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &payload); err != nil {
			payload.JobID = aws.ToString(m.Body)
		}
		msgs = append(msgs, Message{
			JobID:         payload.JobID,
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

func (q *SQSQueue) Delete(ctx context.Context, msg Message) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message for job %s: %w", msg.JobID, err)
	}
	return nil
}
