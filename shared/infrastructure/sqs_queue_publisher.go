package infrastructure

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/brewhub/order-system/shared/events"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var _ events.Publisher = (*SQSQueuePublisher)(nil)

// SQSSender is the subset of the SQS API the publisher uses
type SQSSender interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// SQSQueuePublisher publishes events to a single SQS queue. The whole
// serialized event is the message body so the subscriber on the other side
// can rebuild it without a second envelope.
type SQSQueuePublisher struct {
	client   SQSSender
	queueURL string
}

// NewSQSQueuePublisher creates a new SQSQueuePublisher
func NewSQSQueuePublisher(client SQSSender, queueURL string) *SQSQueuePublisher {
	return &SQSQueuePublisher{
		client:   client,
		queueURL: queueURL,
	}
}

// Publish publishes events to the queue in batches
func (p *SQSQueuePublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	batches := splitToChunks(evts, maxBatchSize)

	gr, ctx := errgroup.WithContext(ctx)

	for _, batch := range batches {
		batch := batch
		gr.Go(func() error {
			return p.batchSend(ctx, batch)
		})
	}

	return gr.Wait()
}

func (p *SQSQueuePublisher) batchSend(ctx context.Context, evts []*events.Event) error {
	entries := make([]types.SendMessageBatchRequestEntry, len(evts))

	for i, event := range evts {
		body, err := event.ToJSON()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event")
		}

		attrs := map[string]types.MessageAttributeValue{
			"topic": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Topic)),
			},
		}

		entries[i] = types.SendMessageBatchRequestEntry{
			Id:                aws.String(event.ID.String()),
			MessageBody:       aws.String(string(body)),
			MessageAttributes: attrs,
		}
	}

	res, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(p.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return errors.Wrap(err, "failed to send batch to SQS")
	}

	if len(res.Failed) > 0 {
		return errors.Errorf("failed to send %d of %d messages to SQS", len(res.Failed), len(evts))
	}

	return nil
}
