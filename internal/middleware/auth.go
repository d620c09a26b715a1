package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// Context keys set by the authentication middleware
const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
	ContextUser   = "user"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// UserLoader loads the account a token was issued for
type UserLoader interface {
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
}

var errNoCredentials = errors.New("authentication credentials were not provided")

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoCredentials
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", errors.New("invalid authorization header format")
	}
	switch strings.ToLower(parts[0]) {
	case "bearer", "token":
		return parts[1], nil
	}
	return "", errors.New("invalid authorization header format")
}

// AuthMiddleware validates the bearer token and loads the user it belongs to.
// Tokens of deleted or deactivated users are rejected.
func AuthMiddleware(validator TokenValidator, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		user, err := users.GetProfile(c.Request.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user inactive or deleted"})
			return
		}

		// Store user info in context
		c.Set(ContextUserID, user.ID)
		c.Set(ContextClaims, claims)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// GetUserID returns the authenticated user's id
func GetUserID(c *gin.Context) (uint, bool) {
	id, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	userID, ok := id.(uint)
	return userID, ok
}

// GetClaims returns the claims of the token used for the request
func GetClaims(c *gin.Context) (*types.TokenClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*types.TokenClaims)
	return claims, ok
}

// GetUser returns the authenticated user
func GetUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
