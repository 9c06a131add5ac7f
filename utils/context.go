package utils

import "context"

type ctxKey string

const requestIDKey ctxKey = "requestID"

func WithRequestID(ctx context.Context, rqID string) context.Context {
	return context.WithValue(ctx, requestIDKey, rqID)
}

func GetRequestIDFromCtx(ctx context.Context) string {
	if rqID, ok := ctx.Value(requestIDKey).(string); ok {
		return rqID
	}
	return ""
}
