package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxEventID   ContextKey = "ctx_event_id"
	CtxEventType ContextKey = "ctx_event_type"
)

const (
	HeaderRequestID       = "X-Request-ID"
	HeaderStripeSignature = "Stripe-Signature"
)

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

func GetEventID(ctx context.Context) string {
	if eventID, ok := ctx.Value(CtxEventID).(string); ok {
		return eventID
	}
	return ""
}

// SetEvent stores the id and type of the webhook event being processed
func SetEvent(ctx context.Context, eventID string, eventType WebhookEventType) context.Context {
	ctx = context.WithValue(ctx, CtxEventID, eventID)
	return context.WithValue(ctx, CtxEventType, eventType)
}

func GetEventType(ctx context.Context) WebhookEventType {
	if eventType, ok := ctx.Value(CtxEventType).(WebhookEventType); ok {
		return eventType
	}
	return ""
}
