package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/lisensia/lisensia_api/internal/middleware"
	"github.com/lisensia/lisensia_api/internal/service"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// AuthHandler handles user registration and login.
type AuthHandler struct {
	authService *service.AuthService
	rateLimiter *middleware.InvalidAuthRateLimiter
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *service.AuthService, rateLimiter *middleware.InvalidAuthRateLimiter) *AuthHandler {
	return &AuthHandler{authService: authService, rateLimiter: rateLimiter}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an API user.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.authService.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrDuplicateUsername) {
			utils.Error(c, 409, "DUPLICATE_USERNAME", "Username is already taken")
			return
		}
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	utils.Success(c, 201, "User registered successfully", gin.H{"user": user})
}

// Login verifies credentials and returns a JWT. Invalid attempts are rate
// limited per client IP.
func (h *AuthHandler) Login(c *gin.Context) {
	if !h.rateLimiter.Allow(c.ClientIP()) {
		utils.Error(c, 429, "TOO_MANY_ATTEMPTS", "Too many login attempts, try again later")
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, user, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredential) {
			utils.Error(c, 401, "INVALID_CREDENTIALS", "Invalid username or password")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to login")
		return
	}
	utils.Success(c, 200, "Login successful", gin.H{"token": token, "user": user})
}

type refreshRequest struct {
	Token string `json:"token" binding:"required"`
}

// Refresh exchanges a valid token for a fresh one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, err := h.authService.Refresh(req.Token)
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	utils.Success(c, 200, "Token refreshed successfully", gin.H{"token": token})
}
