// Package middleware provides HTTP middleware for the ledger API.
package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "pharmaledger/internal/core/context"
	"pharmaledger/pkg/logger"
)

// UserContext binds a request-scoped logger carrying the actor and trace ids,
// so every log line written by the domain layer for this request is
// attributable.
//
// Must run after Auth.
func UserContext(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if appctx.GetUser(ctx) == nil {
			c.Next()
			return
		}

		reqLog := log.WithContext(ctx)
		if user := appctx.GetUser(ctx); len(user.Roles) > 0 {
			reqLog = reqLog.With("roles", user.Roles)
		}
		c.Request = c.Request.WithContext(logger.WithLogger(ctx, reqLog))
		c.Next()
	}
}
