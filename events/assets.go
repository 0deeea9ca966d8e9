package events

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-service/models"

	"go.uber.org/zap"
)

// AssetRemover deletes stored objects.
type AssetRemover interface {
	CleanupAssets(ctx context.Context, keys, prefixes []string) error
}

// MessageSender enqueues a message body.
type MessageSender interface {
	SendMessage(ctx context.Context, body string) error
}

// CleanupMessage is the asset-cleanup queue payload.
type CleanupMessage struct {
	ProductID string   `json:"product_id"`
	Keys      []string `json:"keys"`
	Prefixes  []string `json:"prefixes"`
}

// AssetCleaner removes a deleted product's objects. With a queue the work is enqueued and done by the
// queue consumer; without one the objects are deleted right away.
type AssetCleaner struct {
	assets AssetRemover
	queue  MessageSender
	logger *zap.Logger
}

// NewAssetCleaner creates an AssetCleaner. queue may be nil.
func NewAssetCleaner(assets AssetRemover, queue MessageSender, logger *zap.Logger) *AssetCleaner {
	return &AssetCleaner{assets: assets, queue: queue, logger: logger}
}

func (a *AssetCleaner) Handle(ctx context.Context, event models.Event) error {
	e, ok := event.(models.ProductDeletedEvent)
	if !ok || (len(e.AssetKeys) == 0 && len(e.Prefixes) == 0) {
		return nil
	}
	if a.queue == nil {
		return a.assets.CleanupAssets(ctx, e.AssetKeys, e.Prefixes)
	}
	body, err := json.Marshal(CleanupMessage{ProductID: e.ProductID, Keys: e.AssetKeys, Prefixes: e.Prefixes})
	if err != nil {
		return err
	}
	return a.queue.SendMessage(ctx, string(body))
}

// HandleMessage is the queue consumer. A returned error leaves the message on the queue for a retry.
func (a *AssetCleaner) HandleMessage(ctx context.Context, body string) error {
	var msg CleanupMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		// a malformed message would fail forever; drop it
		a.logger.Error("dropping malformed cleanup message", zap.Error(err))
		return nil
	}
	if err := a.assets.CleanupAssets(ctx, msg.Keys, msg.Prefixes); err != nil {
		return fmt.Errorf("cleanup product %s: %w", msg.ProductID, err)
	}
	return nil
}
