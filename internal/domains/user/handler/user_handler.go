package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"elpa-backend/internal/domains/user"
	"elpa-backend/internal/shared/middleware"
	"elpa-backend/internal/shared/response"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes: auth là middleware xác thực token
func (h *UserHandler) RegisterRoutes(v1 *gin.RouterGroup, auth gin.HandlerFunc) {
	users := v1.Group("/users")
	{
		users.POST("", h.Register)
		users.POST("/login", h.Login)
		users.POST("/:name/reset", h.ResetPassword)
		users.GET("/:name", h.GetUser)
		users.PUT("/me", auth, h.UpdateProfile)
	}
}

// ========================================
// POST /v1/users
// ========================================

func (h *UserHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	u, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user.CredentialResponse{Name: u.Name, Token: u.Token})
}

// ========================================
// POST /v1/users/login
// ========================================

func (h *UserHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(c, err)
		return
	}

	u, err := h.userService.LoadUser(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	if u == nil {
		response.Unauthorized(c, "invalid user name or password")
		return
	}
	response.Success(c, http.StatusOK, user.CredentialResponse{Name: u.Name, Token: u.Token})
}

// ========================================
// POST /v1/users/:name/reset
// ========================================

func (h *UserHandler) ResetPassword(c *gin.Context) {
	if err := h.userService.ResetPassword(c.Request.Context(), c.Param("name")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"message": "a new password has been sent to the registered email"})
}

// ========================================
// GET /v1/users/:name
// ========================================

func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.userService.GetUser(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	resp := u.ToResponse()
	resp.Email = "" // email chỉ trả cho chính user
	response.Success(c, http.StatusOK, resp)
}

// ========================================
// PUT /v1/users/me
// ========================================

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req user.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	updated, err := h.userService.UpdateProfile(c.Request.Context(), current, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, updated.ToResponse())
}
