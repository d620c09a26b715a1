package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipe-app-api/backend/internal/middleware"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// AuthHandler serves registration, token issue and logout
type AuthHandler struct {
	authService service.IAuthService
}

func NewAuthHandler(authService service.IAuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user
func (h *AuthHandler) Register(c *gin.Context) {
	var req types.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.NewUserResponse(user))
}

// Token exchanges credentials for a bearer token
func (h *AuthHandler) Token(c *gin.Context) {
	var req types.TokenRequest
	if !bindJSON(c, &req) {
		return
	}

	token, _, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.TokenResponse{Token: token})
}

// Logout revokes the token the request was made with
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
