package middleware

import (
	"github.com/gin-gonic/gin"

	"elpa-backend/internal/domains/user"
	"elpa-backend/internal/shared/response"
)

const (
	HeaderUser  = "X-Elpa-User"
	HeaderToken = "X-Elpa-Token"

	currentUserKey = "current_user"
)

// TokenAuth xác thực bằng name + token, lấy từ header hoặc form fields
func TokenAuth(users user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.GetHeader(HeaderUser)
		token := c.GetHeader(HeaderToken)
		if name == "" {
			name = c.PostForm("name")
		}
		if token == "" {
			token = c.PostForm("token")
		}

		u, err := users.LoadUserWithToken(c.Request.Context(), name, token)
		if err != nil {
			response.HandleError(c, err)
			c.Abort()
			return
		}

		c.Set(currentUserKey, u)
		c.Next()
	}
}

// CurrentUser trả về user đã set bởi TokenAuth
func CurrentUser(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok
}
