package httpcontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/crm/pkg/logger"
)

func TestAttachKeepsIncomingRequestID(t *testing.T) {
	var rc fasthttp.RequestCtx
	rc.Request.Header.Set(HeaderRequestID, "req-42")
	rc.Request.Header.Set(HeaderUserID, "user-1")

	ctx, cancel := NewAdapter(time.Second).Attach(&rc)
	defer cancel()

	assert.Equal(t, "req-42", appLogger.RequestID(ctx))
	assert.Equal(t, "req-42", string(rc.Response.Header.Peek(HeaderRequestID)))
	assert.Equal(t, "user-1", UserID(&rc))
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestStreamHasNoDeadline(t *testing.T) {
	var rc fasthttp.RequestCtx
	ctx, cancel := NewAdapter(time.Second).Stream(&rc)

	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	assert.NotEmpty(t, appLogger.RequestID(ctx))

	cancel()
	assert.Error(t, ctx.Err())
}
