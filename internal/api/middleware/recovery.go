package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/web3ld/contact-api/internal/api/dto/common"
	"github.com/web3ld/contact-api/internal/logging"

	"github.com/gin-gonic/gin"
)

// Recovery converts panics into a 500 JSON response. It runs inside the
// CORS middleware, so the headers are already on the writer and even a
// crashed request stays readable after a legitimate preflight.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger := logging.GetLogger()
				logger.Error("panic recovered: %s %s | %s | %v\n%s",
					c.Request.Method,
					c.Request.URL.Path,
					c.GetString("RequestID"),
					rec,
					debug.Stack(),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError,
					common.NewErrorResponse("Internal server error", fmt.Sprintf("%v", rec)))
			}
		}()

		c.Next()
	}
}
