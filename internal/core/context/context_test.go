package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTraceContext(t *testing.T) {
	tc := NewTraceContext("", "")
	assert.NotEmpty(t, tc.RequestID)
	assert.Equal(t, tc.RequestID, tc.TraceID)

	tc = NewTraceContext("t1", "r1")
	assert.Equal(t, "t1", tc.TraceID)
	assert.Equal(t, "r1", tc.RequestID)
}

func TestLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, LogFields(ctx))
	assert.Nil(t, ActorPtr(ctx))

	ctx = WithTrace(ctx, NewTraceContext("t1", "r1"))
	assert.Equal(t, []any{"trace_id", "t1", "request_id", "r1"}, LogFields(ctx))

	ctx = WithUserID(ctx, "clerk-7")
	assert.Equal(t, []any{"trace_id", "t1", "request_id", "r1", "user_id", "clerk-7"}, LogFields(ctx))
	assert.Equal(t, "clerk-7", *ActorPtr(ctx))
	assert.Equal(t, "r1", GetRequestID(ctx))
}
