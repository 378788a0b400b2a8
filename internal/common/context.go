// Package common holds request scoped values carried on the context.
package common

import (
	"context"
)

type ctxRequestIdKeyType string

const ctxRequestIdKey ctxRequestIdKeyType = "HatchDockstoreRequestId"

// SetRequestIdInContext sets the request ID in the provided context.
func SetRequestIdInContext(ctx context.Context, requestId string) context.Context {
	return context.WithValue(ctx, ctxRequestIdKey, requestId)
}

// RequestIdFromContext retrieves the request ID from the provided context.
func RequestIdFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxRequestIdKey).(string); ok {
		return id
	}
	return ""
}
