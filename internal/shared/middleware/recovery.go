package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"elpa-backend/internal/shared/apperror"
	"elpa-backend/internal/shared/response"
)

// Recovery chuyển panic thành 500; client elisp nhận alist như mọi lỗi khác
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Str(requestIDKey, c.GetString(requestIDKey)).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("Panic recovered")

				if !c.Writer.Written() {
					response.ErrorResponse(c, http.StatusInternalServerError, apperror.CodeInternal, "Internal server error")
				}
				c.Abort()
			}
		}()

		c.Next()
	}
}
