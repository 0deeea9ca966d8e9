package services

import (
	"context"
	"io"
	"time"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	aws_pkg "marketplace-service/pkg/aws"
)

// EventPublisher hands domain events to the in-process bus.
type EventPublisher interface {
	Publish(topic string, event models.Event)
}

// MetricsRecorder is the subset of the CloudWatch client used for business metrics.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Generate(p auth.Principal) (string, time.Time, error)
}

// ObjectStore is the S3 surface used for uploads and cleanup.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]aws_pkg.ObjectInfo, error)
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, map[string]string, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	URL(key string) string
}

// WorkerPool runs tasks on a bounded set of goroutines.
type WorkerPool interface {
	Submit(task func()) error
}

// PaymentDetails is what the payment provider reports for one payment.
type PaymentDetails struct {
	Succeeded bool
	// Amount is in the currency's minor unit.
	Amount   int64
	Currency string
	// OrderID is the order the payment was created for, empty when the provider has no record of it.
	OrderID string
}

// PaymentVerifier looks up an external payment before an order is marked paid.
type PaymentVerifier interface {
	LookupPayment(ctx context.Context, paymentID string) (*PaymentDetails, error)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, models.Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// recordMetrics sends metrics off the request path.
func recordMetrics(m MetricsRecorder, fn func(ctx context.Context, m MetricsRecorder)) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(ctx, m)
	}()
}
