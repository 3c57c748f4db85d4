package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	assert.Empty(t, RequestID(context.Background()))

	// an empty id leaves the context untouched
	ctx = WithRequestID(context.Background(), "")
	assert.Empty(t, RequestID(ctx))
}

func TestFromContextEnrichesComponent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), "ledger_ops")
	FromContext(ctx, base).Info("hello")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "ledger_ops", entries[0].ContextMap()["component"])
}

func TestFromContextWithoutComponent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	FromContext(context.Background(), base).Info("hello")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "component")
}
