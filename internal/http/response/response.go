package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/csvshare-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// AbortWithError is RespondError for middleware.
func AbortWithError(c *gin.Context, status int, code string, err error) {
	RespondError(c, status, code, err)
	c.Abort()
}

// RespondErr classifies err. Unclassified failures are reported as a generic
// internal error and the cause is attached to the gin context for the request log.
func RespondErr(c *gin.Context, err error) {
	status, code := apierr.Classify(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError && !apierr.IsTyped(err) {
		RespondError(c, status, code, errInternal)
		return
	}
	RespondError(c, status, code, apierr.Cause(err))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

type internalError struct{}

func (internalError) Error() string { return "internal server error" }

var errInternal error = internalError{}
