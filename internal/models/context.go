package models

import (
	"context"
	"time"
)

type deliveryContextKey struct{}

// DeliveryContext carries details of the inbound delivery through context
// so the attempt logger can snapshot the original request without widening
// the processor's request type.
type DeliveryContext struct {
	EventId    string    // provider webhook event id (e.g. "WH-58D329510W468432D")
	EventType  string    // raw provider event type before classification
	RawPayload []byte    // untouched request body
	RemoteAddr string    // caller address as seen by the server
	ReceivedAt time.Time // when the delivery reached the server
}

// WithDeliveryContext attaches delivery data to a context.
func WithDeliveryContext(ctx context.Context, dc *DeliveryContext) context.Context {
	return context.WithValue(ctx, deliveryContextKey{}, dc)
}

// GetDeliveryContext retrieves delivery data from context, or nil if absent.
func GetDeliveryContext(ctx context.Context) *DeliveryContext {
	dc, _ := ctx.Value(deliveryContextKey{}).(*DeliveryContext)
	return dc
}
