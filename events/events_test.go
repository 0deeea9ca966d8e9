package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type MockSNSPublisher struct {
	mock.Mock
}

func (m *MockSNSPublisher) Publish(ctx context.Context, topicArn string, message []byte, attributes map[string]string) error {
	args := m.Called(ctx, topicArn, message, attributes)
	return args.Error(0)
}

type MockNotificationWriter struct {
	mock.Mock
}

func (m *MockNotificationWriter) Notify(ctx context.Context, notifications ...*models.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateSellers(ctx context.Context, sellerIDs ...string) {
	m.Called(ctx, sellerIDs)
}

func (m *MockInvalidator) InvalidateCache(ctx context.Context) {
	m.Called(ctx)
}

type MockAssets struct {
	mock.Mock
}

func (m *MockAssets) CleanupAssets(ctx context.Context, keys, prefixes []string) error {
	args := m.Called(ctx, keys, prefixes)
	return args.Error(0)
}

func (m *MockAssets) SendMessage(ctx context.Context, body string) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

// --- Tests ---

func TestBus_DeliversAsyncAndDrainsOnClose(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var (
		mu  sync.Mutex
		got []models.Event
	)
	require.NoError(t, bus.Subscribe(models.TopicProductChanged, "recorder", func(ctx context.Context, event models.Event) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		got = append(got, event)
		mu.Unlock()
		return nil
	}))
	require.NoError(t, bus.Subscribe(models.TopicProductChanged, "panicker", func(context.Context, models.Event) error {
		panic("boom")
	}))
	require.NoError(t, bus.Subscribe(models.TopicProductChanged, "failing", func(context.Context, models.Event) error {
		return errors.New("nope")
	}))

	bus.Publish(models.TopicProductChanged, models.ProductChangedEvent{EventType: "product_changed", ProductID: "p1"})
	bus.Publish(models.TopicOrderCreated, models.OrderCreatedEvent{EventType: "order_created"})
	bus.Close()

	mu.Lock()
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].(models.ProductChangedEvent).ProductID)
	mu.Unlock()

	bus.Publish(models.TopicProductChanged, models.ProductChangedEvent{EventType: "product_changed", ProductID: "p2"})
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()
}

func TestSNSForwarder(t *testing.T) {
	pub := new(MockSNSPublisher)
	forwarder := NewSNSForwarder(pub, "arn:aws:sns:us-east-1:123:marketplace")
	event := models.OrderCreatedEvent{EventType: "order_created", OrderID: "o1", SellerIDs: []string{"s1"}}

	pub.On("Publish", mock.Anything, "arn:aws:sns:us-east-1:123:marketplace",
		mock.MatchedBy(func(body []byte) bool {
			var decoded models.OrderCreatedEvent
			return json.Unmarshal(body, &decoded) == nil && decoded.OrderID == "o1"
		}),
		map[string]string{"event_type": "order_created"},
	).Return(nil).Once()

	assert.NoError(t, forwarder.Handle(context.Background(), event))
	pub.AssertExpectations(t)
}

func TestNotifier(t *testing.T) {
	t.Run("new order notifies each seller", func(t *testing.T) {
		writer := new(MockNotificationWriter)
		writer.On("Notify", mock.Anything, mock.MatchedBy(func(ns []*models.Notification) bool {
			return len(ns) == 2 && ns[0].UserID == "s1" && ns[1].UserID == "s2" &&
				ns[0].Type == models.NotificationNewOrder && ns[0].ReferenceID == "o1"
		})).Return(nil).Once()

		err := NewNotifier(writer).Handle(context.Background(), models.OrderCreatedEvent{OrderID: "o1", SellerIDs: []string{"s1", "s2"}})

		assert.NoError(t, err)
		writer.AssertExpectations(t)
	})

	t.Run("status change notifies the buyer", func(t *testing.T) {
		writer := new(MockNotificationWriter)
		writer.On("Notify", mock.Anything, mock.MatchedBy(func(ns []*models.Notification) bool {
			return len(ns) == 1 && ns[0].UserID == "u1" && ns[0].Title == "Order shipped" &&
				ns[0].Message == "Items in order o1 are now shipped."
		})).Return(nil).Once()

		err := NewNotifier(writer).Handle(context.Background(), models.OrderStatusChangedEvent{
			OrderID: "o1", UserID: "u1", Status: "Shipped", Scope: models.ScopeSellerPrefix + "s1",
		})

		assert.NoError(t, err)
		writer.AssertExpectations(t)
	})

	t.Run("review outcome notifies the applicant", func(t *testing.T) {
		writer := new(MockNotificationWriter)
		writer.On("Notify", mock.Anything, mock.MatchedBy(func(ns []*models.Notification) bool {
			return len(ns) == 1 && ns[0].Type == models.NotificationBrandReviewed && ns[0].Title == "Brand verification approved"
		})).Return(errors.New("db down")).Once()

		err := NewNotifier(writer).Handle(context.Background(), models.VerificationReviewedEvent{
			Kind: models.KindBrandVerification, UserID: "u1", Status: "approved",
		})

		assert.EqualError(t, err, "db down")
		writer.AssertExpectations(t)
	})

	t.Run("other events are ignored", func(t *testing.T) {
		writer := new(MockNotificationWriter)
		assert.NoError(t, NewNotifier(writer).Handle(context.Background(), models.ProductChangedEvent{}))
		writer.AssertNotCalled(t, "Notify")
	})
}

func TestCacheInvalidator(t *testing.T) {
	inv := new(MockInvalidator)
	c := NewCacheInvalidator(inv, inv)
	ctx := context.Background()

	inv.On("InvalidateSellers", mock.Anything, []string{"s1", "s2"}).Once()
	inv.On("InvalidateCache", mock.Anything).Twice()

	require.NoError(t, c.Handle(ctx, models.OrderStatusChangedEvent{SellerIDs: []string{"s1", "s2"}}))
	require.NoError(t, c.Handle(ctx, models.ProductDeletedEvent{ProductID: "p1"}))
	require.NoError(t, c.Handle(ctx, models.SectionsChangedEvent{}))
	require.NoError(t, c.Handle(ctx, models.OrderCreatedEvent{}))

	inv.AssertExpectations(t)
}

func TestAssetCleaner(t *testing.T) {
	deleted := models.ProductDeletedEvent{ProductID: "p1", AssetKeys: []string{"products/u/a.png"}, Prefixes: []string{"models/p1/"}}

	t.Run("direct without a queue", func(t *testing.T) {
		assets := new(MockAssets)
		assets.On("CleanupAssets", mock.Anything, deleted.AssetKeys, deleted.Prefixes).Return(nil).Once()

		assert.NoError(t, NewAssetCleaner(assets, nil, zap.NewNop()).Handle(context.Background(), deleted))
		assets.AssertExpectations(t)
	})

	t.Run("queued then consumed", func(t *testing.T) {
		assets := new(MockAssets)
		var body string
		assets.On("SendMessage", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			body = args.String(1)
		}).Return(nil).Once()
		cleaner := NewAssetCleaner(assets, assets, zap.NewNop())

		require.NoError(t, cleaner.Handle(context.Background(), deleted))
		assets.AssertNotCalled(t, "CleanupAssets", mock.Anything, mock.Anything, mock.Anything)

		assets.On("CleanupAssets", mock.Anything, deleted.AssetKeys, deleted.Prefixes).Return(errors.New("s3 down")).Once()
		err := cleaner.HandleMessage(context.Background(), body)
		assert.ErrorContains(t, err, "cleanup product p1")
		assets.AssertExpectations(t)
	})

	t.Run("malformed messages are dropped", func(t *testing.T) {
		assets := new(MockAssets)
		assert.NoError(t, NewAssetCleaner(assets, assets, zap.NewNop()).HandleMessage(context.Background(), "{"))
		assets.AssertNotCalled(t, "CleanupAssets", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nothing to delete", func(t *testing.T) {
		assets := new(MockAssets)
		assert.NoError(t, NewAssetCleaner(assets, assets, zap.NewNop()).Handle(context.Background(), models.ProductDeletedEvent{ProductID: "p2"}))
		assets.AssertExpectations(t)
	})
}

func TestSubscribersRegister(t *testing.T) {
	bus := NewBus(zap.NewNop())
	inv := new(MockInvalidator)
	inv.On("InvalidateCache", mock.Anything).Once()

	require.NoError(t, Subscribers{Cache: NewCacheInvalidator(inv, inv)}.Register(bus))
	bus.Publish(models.TopicProductChanged, models.ProductChangedEvent{EventType: "product_changed"})
	bus.Publish(models.TopicVerificationReviewed, models.VerificationReviewedEvent{EventType: "verification_reviewed"})
	bus.Close()

	inv.AssertExpectations(t)
}
