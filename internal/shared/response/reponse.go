package response

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"elpa-backend/internal/shared/apperror"
	"elpa-backend/pkg/sexp"
)

// ElispContentType là media type của s-expression responses
const ElispContentType = "text/x-script.elisp"

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type Meta struct {
	Total int `json:"total,omitempty"`
}

// WantsElisp: ?format=elisp hoặc Accept chứa text/x-script.elisp
func WantsElisp(c *gin.Context) bool {
	if c.Query("format") == "elisp" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), ElispContentType)
}

// Success responses
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Negotiate trả JSON hoặc s-expression tùy client
func Negotiate(c *gin.Context, statusCode int, data interface{}) {
	if !WantsElisp(c) {
		Success(c, statusCode, data)
		return
	}
	text, err := sexp.Encode(data)
	if err != nil {
		HandleError(c, err)
		return
	}
	Elisp(c, statusCode, text)
}

func Elisp(c *gin.Context, statusCode int, text string) {
	c.Data(statusCode, ElispContentType+"; charset=utf-8", []byte(text))
}

// Error responses
func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	if WantsElisp(c) {
		Elisp(c, statusCode, sexp.Serialize(sexp.List(
			sexp.Cons(sexp.Symbol("error"), sexp.Symbol(code)),
			sexp.Cons(sexp.Symbol("message"), sexp.String(message)),
		)))
		return
	}
	c.JSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

// HandleError map lỗi qua apperror; lỗi 500 được log, message không lộ ra ngoài
func HandleError(c *gin.Context, err error) {
	status, code, message := apperror.MapErrorToHTTP(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	ErrorResponse(c, status, code, message)
}

// Common error responses
func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, apperror.CodeInput, message)
}

func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func NotFound(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message)
}
