package response

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/attendly/attendance-api/pkg/errors"
)

// ErrorBody is the wire shape for every failure response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// JSON sends a success payload as-is.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, data)
}

// Error translates an error into the {detail} contract with its category status.
// Backend details stay in the wrapped cause and never reach the caller.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, ErrorBody{Detail: appErr.Message})
}
