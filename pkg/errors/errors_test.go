package errors

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/campusvoice/contenttrust/pkg/logger"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("missing reason"), KindValidation},
		{"conflict", Conflict("already resolved"), KindConflict},
		{"not found", NotFound("unknown content"), KindNotFound},
		{"authorization", Authorization("moderator role required"), KindAuthorization},
		{"transient", Transient("db timeout", errors.New("timeout")), KindTransient},
		{"integrity", Integrity("counter drift", nil), KindIntegrity},
		{"untyped", errors.New("boom"), KindUnknown},
		{"wrapped keeps kind", Wrap(NotFound("gone"), "loading content"), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.True(t, IsKind(tt.err, tt.want))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("bad")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("dup")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("missing")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Authorization("no")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(Transient("later", nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "ignored"))
}

func TestLogWithError(t *testing.T) {
	log := zaptest.NewLogger(t)
	err := LogWithError(context.Background(), log, "operation failed", Conflict("dup vote"))
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Contains(t, err.Error(), "operation failed")
}

func TestLogWithErrorCarriesRequestContext(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := zap.New(core)

	ctx := logger.WithRequestID(logger.WithContext(context.Background(), "ledger_ops"), "req-9")
	_ = LogWithError(ctx, log, "operation failed", Conflict("dup vote"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "ledger_ops", fields["component"])
}
