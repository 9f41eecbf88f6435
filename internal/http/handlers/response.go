package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-fedi-core/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable machine-readable code
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"resource not found"`
}

// fail aborts with an ErrorResponse. Server errors are logged on the
// request logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for the router's fallback handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }

// Federation media types.
const (
	ContentTypeActivity = "application/activity+json"
	ContentTypeJRD      = "application/jrd+json"
	ContentTypeXRD      = "application/xrd+xml"
)

// document writes body as JSON labelled with contentType instead of gin's
// application/json, since peers dispatch on the media type.
func document(c *gin.Context, status int, contentType string, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "cannot encode document")
		return
	}
	c.Data(status, contentType+"; charset=utf-8", b)
}
