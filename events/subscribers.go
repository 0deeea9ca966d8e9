package events

import (
	"context"

	"marketplace-service/models"
)

// Subscriber is anything that reacts to events.
type Subscriber interface {
	Handle(ctx context.Context, event models.Event) error
}

// Subscribers groups the event consumers of the service. Nil members are skipped.
type Subscribers struct {
	SNS      *SNSForwarder
	Notifier *Notifier
	Cache    *CacheInvalidator
	Assets   *AssetCleaner
}

var (
	notificationTopics = []string{
		models.TopicOrderCreated,
		models.TopicOrderStatusChanged,
		models.TopicVerificationReviewed,
	}
	cacheTopics = []string{
		models.TopicOrderStatusChanged,
		models.TopicProductChanged,
		models.TopicProductDeleted,
		models.TopicSectionsChanged,
	}
)

// snsTopics are the events other services consume.
var snsTopics = []string{
	models.TopicOrderCreated,
	models.TopicOrderStatusChanged,
	models.TopicVerificationReviewed,
	models.TopicProductDeleted,
}

// Register subscribes every configured consumer to the topics it handles.
func (s Subscribers) Register(bus *Bus) error {
	type binding struct {
		name   string
		sub    Subscriber
		topics []string
	}
	var bindings []binding
	if s.SNS != nil {
		bindings = append(bindings, binding{"sns", s.SNS, snsTopics})
	}
	if s.Notifier != nil {
		bindings = append(bindings, binding{"notifications", s.Notifier, notificationTopics})
	}
	if s.Cache != nil {
		bindings = append(bindings, binding{"cache", s.Cache, cacheTopics})
	}
	if s.Assets != nil {
		bindings = append(bindings, binding{"assets", s.Assets, []string{models.TopicProductDeleted}})
	}

	for _, b := range bindings {
		for _, topic := range b.topics {
			if err := bus.Subscribe(topic, b.name, b.sub.Handle); err != nil {
				return err
			}
		}
	}
	return nil
}
