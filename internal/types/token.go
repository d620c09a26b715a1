package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims represents the claims in a JWT token. RegisteredClaims.ID
// carries a unique token id so individual tokens can be revoked.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}
