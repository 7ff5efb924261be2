package ktx_test

import (
	"context"
	"testing"

	"github.com/snapforge/snapforge/pkg/ktx"
	"github.com/stretchr/testify/assert"
)

func TestCreateAndReadContext(t *testing.T) {
	t.Parallel()

	ctx := ktx.CreateContext(context.Background(), "someKey", 42)
	value, ok := ktx.ReadContext(ctx, "someKey")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	_, ok = ktx.ReadContext(ctx, "missing")
	assert.False(t, ok)
}

func TestRequestIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := ktx.WithRequestID(context.Background(), "req-abc123")
	id, ok := ktx.RequestIDFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-abc123", id)
}

func TestRequestIDFromUntaggedContext(t *testing.T) {
	t.Parallel()

	_, ok := ktx.RequestIDFrom(context.Background())
	assert.False(t, ok)
}

func TestRequestIDFromRejectsEmptyAndWrongType(t *testing.T) {
	t.Parallel()

	_, ok := ktx.RequestIDFrom(ktx.WithRequestID(context.Background(), ""))
	assert.False(t, ok)

	ctx := ktx.CreateContext(context.Background(), ktx.CtxRequestID, 99)
	_, ok = ktx.RequestIDFrom(ctx)
	assert.False(t, ok)
}
