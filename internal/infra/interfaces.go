package infra

import (
	"context"

	"storefront-service/internal/domain"
)

type PaymentRequest struct {
	OrderID          uint64               `json:"orderId"`
	AmountMinorUnits int64                `json:"amount"`
	Currency         string               `json:"currency"`
	Method           domain.PaymentMethod `json:"method"`
}

// PaymentGateway authorizes a payment. A returned error means the outcome is
// unknown (network failure, timeout); a definitive decline is reported as
// domain.PaymentFailed with a nil error.
//
// Lookup asks for the outcome of an earlier Authorize for the order. A payment
// the gateway has no record of is reported as domain.PaymentFailed.
type PaymentGateway interface {
	Authorize(ctx context.Context, req PaymentRequest) (domain.PaymentStatus, error)
	Lookup(ctx context.Context, orderID uint64) (domain.PaymentStatus, error)
}

type ImageUploader interface {
	Upload(ctx context.Context, image string) (string, error)
}

var (
	_ PaymentGateway = (*PaymentClient)(nil)
	_ PaymentGateway = (*StubGateway)(nil)
	_ ImageUploader  = (*ImageClient)(nil)
)
