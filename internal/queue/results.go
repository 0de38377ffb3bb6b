// Package queue provides the SQS producer used to hand interpretation
// results to downstream consumers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"growthwatch/internal/types"
)

// maxBatchEntries is the SQS SendMessageBatch limit.
const maxBatchEntries = 10

// SQSBatchSender abstracts SendMessageBatch for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSBatchSender interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// ResultPublisher sends InterpretResultMessages to the results queue in
// chunks of 10.
type ResultPublisher struct {
	client   SQSBatchSender
	queueURL string
}

// NewResultPublisher creates a publisher for queueURL.
func NewResultPublisher(client SQSBatchSender, queueURL string) *ResultPublisher {
	return &ResultPublisher{client: client, queueURL: queueURL}
}

// Publish sends every message and returns the indexes (into msgs) that were
// not accepted. A chunk whose call fails outright marks all of its entries
// failed; later chunks are still attempted. The error reports the first
// failure, if any.
func (p *ResultPublisher) Publish(ctx context.Context, msgs []types.InterpretResultMessage) ([]int, error) {
	var failed []int
	var firstErr error

	for i := 0; i < len(msgs); i += maxBatchEntries {
		end := min(i+maxBatchEntries, len(msgs))

		if err := ctx.Err(); err != nil {
			for j := i; j < len(msgs); j++ {
				failed = append(failed, j)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("context cancelled during publish: %w", err)
			}
			break
		}

		entries := make([]sqstypes.SendMessageBatchRequestEntry, 0, end-i)
		for j := i; j < end; j++ {
			body, err := json.Marshal(msgs[j])
			if err != nil {
				failed = append(failed, j)
				if firstErr == nil {
					firstErr = fmt.Errorf("marshal result %s: %w", msgs[j].ResultID, err)
				}
				continue
			}
			entries = append(entries, sqstypes.SendMessageBatchRequestEntry{
				Id:          aws.String(strconv.Itoa(j)),
				MessageBody: aws.String(string(body)),
			})
		}
		if len(entries) == 0 {
			continue
		}

		out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(p.queueURL),
			Entries:  entries,
		})
		if err != nil {
			for _, e := range entries {
				idx, _ := strconv.Atoi(aws.ToString(e.Id))
				failed = append(failed, idx)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("SQS SendMessageBatch failed: %w", err)
			}
			continue
		}

		for _, f := range out.Failed {
			idx, convErr := strconv.Atoi(aws.ToString(f.Id))
			if convErr != nil {
				continue
			}
			failed = append(failed, idx)
			if firstErr == nil {
				firstErr = fmt.Errorf("SQS SendMessageBatch entry failed: code=%s, message=%s",
					aws.ToString(f.Code), aws.ToString(f.Message))
			}
		}
	}

	return failed, firstErr
}
