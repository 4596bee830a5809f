package utils

import (
	"net/http"

	"github.com/web3ld/contact-api/internal/api/dto/common"
	"github.com/web3ld/contact-api/internal/logging"

	"github.com/gin-gonic/gin"
)

// HandleSuccess sends a success response
func HandleSuccess(c *gin.Context, body common.SuccessResponse) {
	c.JSON(http.StatusOK, body)
}

// HandleError sends an error response with the given status
func HandleError(c *gin.Context, status int, body common.ErrorResponse) {
	c.JSON(status, body)
}

// HandleAPIError logs a failure and sends a consistent error response.
// CORS headers are already on the writer by the time any handler runs,
// so every error path stays readable from an allowed origin.
func HandleAPIError(c *gin.Context, err error, status int, message string, details interface{}) {
	logger := logging.GetLogger()
	logger.LogHTTPError(
		c.Request.Method,
		c.Request.URL.Path,
		GetRealIP(c),
		status,
		message,
		err,
	)

	c.JSON(status, common.NewErrorResponse(message, details))
}
