package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// DefaultTokenTTL is used when no lifetime is configured
const DefaultTokenTTL = 24 * time.Hour

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
	ttl       time.Duration
	tokens    TokenStore
}

var _ IAuthService = (*AuthService)(nil)

// NewAuthService creates an AuthService. A nil store keeps revocations in memory.
func NewAuthService(db *gorm.DB, jwtSecret string, ttl time.Duration, tokens TokenStore) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
		ttl:       ttl,
		tokens:    tokens,
	}
}

// Register creates an active, non-staff user
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	user, err := models.NewUser(email, password, name)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, user)
}

// CreateSuperuser creates a user with staff and superuser privileges
func (s *AuthService) CreateSuperuser(ctx context.Context, email, password, name string) (*models.User, error) {
	user, err := models.NewSuperuser(email, password, name)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, user)
}

func (s *AuthService) create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Login checks credentials and issues a token. Unknown emails, wrong
// passwords and inactive accounts all fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !user.CheckPassword(password) || !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		return "", nil, err
	}
	user.LastLogin = &now

	return token, &user, nil
}

// GenerateToken signs a token for user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: user.ID,
		Email:  user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken parses tokenString and rejects expired or revoked tokens
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*types.TokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token described by claims for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, claims *types.TokenClaims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}
	expiresAt := time.Now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.tokens.Revoke(ctx, claims.ID, expiresAt)
}
