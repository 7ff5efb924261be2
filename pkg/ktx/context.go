// Package ktx carries request-scoped values across package boundaries on
// context.Context, with a typed key so callers cannot collide.
package ktx

import "context"

// ContextKey is a custom type for context keys to avoid key collisions.
type ContextKey string

// CtxRequestID tags a context with the API request id assigned by the
// request-id middleware.
const CtxRequestID ContextKey = "requestID"

// CreateContext adds a key-value pair to the context.
func CreateContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// ReadContext retrieves a value from the context.
func ReadContext(ctx context.Context, key ContextKey) (any, bool) {
	value := ctx.Value(key)
	return value, value != nil
}

// WithRequestID tags ctx with the API request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return CreateContext(ctx, CtxRequestID, id)
}

// RequestIDFrom returns the request id tagged on ctx, if any.
func RequestIDFrom(ctx context.Context) (string, bool) {
	value, ok := ReadContext(ctx, CtxRequestID)
	if !ok {
		return "", false
	}
	id, isString := value.(string)
	return id, isString && id != ""
}
