package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit giới hạn kích thước request body, đặt trước mọi middleware đọc form
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
