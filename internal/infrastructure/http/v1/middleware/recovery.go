// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/core/apperror"
	"stockflow/pkg/logger"
)

// Recovery turns a handler panic into an INTERNAL_ERROR for ErrorHandler to
// render. The stack goes to the log and the request span, never to the
// client. Any open transaction has already been rolled back by the time the
// panic reaches here, because tx.Manager rolls back on unwinding.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// net/http uses this sentinel to abort a response silently.
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			err := fmt.Errorf("panic: %v", rec)
			ctx := c.Request.Context()
			stack := string(debug.Stack())

			logger.Error(ctx, "panic recovered",
				"error", rec,
				"method", c.Request.Method,
				"path", c.FullPath(),
				"stack", stack,
			)

			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")

			_ = c.Error(apperror.NewInternal(err).WithDetail("request_id", c.GetString(ctxRequestID)))
			c.Abort()
		}()
		c.Next()
	}
}
