// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/pkg/logger"
)

// Recovery recovers from panics and converts them into 500 errors. The stack
// trace goes to the log, never to the client. The JSON envelope is written
// here: a panic unwinds straight through ErrorHandler's c.Next(), so its
// writer never runs for panics.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)

				appErr := apperror.NewInternal(fmt.Errorf("panic: %v", err))
				_ = c.Error(appErr)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
						"code":      appErr.Code,
						"message":   appErr.Message,
						"retryable": appErr.Retryable,
					})
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
