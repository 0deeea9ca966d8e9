package events

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-service/models"
	aws_pkg "marketplace-service/pkg/aws"
)

// SNSForwarder republishes domain events on the marketplace SNS topic. Subscribers filter on the
// event_type message attribute.
type SNSForwarder struct {
	publisher aws_pkg.SNSPublisher
	topicArn  string
}

func NewSNSForwarder(publisher aws_pkg.SNSPublisher, topicArn string) *SNSForwarder {
	return &SNSForwarder{publisher: publisher, topicArn: topicArn}
}

func (f *SNSForwarder) Handle(ctx context.Context, event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Type(), err)
	}
	return f.publisher.Publish(ctx, f.topicArn, body, map[string]string{"event_type": event.Type()})
}
