package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/config"
	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// AuthHandler handles HTTP requests for registration and login.
type AuthHandler struct {
	userService *service.UserService
	jwtConfig   *config.JWTConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService *service.UserService, jwtConfig *config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtConfig:   jwtConfig,
	}
}

// RegisterRequest is the HTTP request body for creating an account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"` // DRIVER, PASSENGER, BOTH
	Bio       string `json:"bio,omitempty"`
}

// AuthResponse is the HTTP response for a successful register or login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// LoginRequest is the HTTP request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), service.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      domain.Role(req.Role),
		Bio:       req.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user, h.jwtConfig)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, AuthResponse{Token: token, User: toUserResponse(user)})
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user, h.jwtConfig)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
}
