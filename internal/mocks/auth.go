package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// MockAuthService is a mock implementation of service.IAuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) CreateSuperuser(ctx context.Context, email, password, name string) (*models.User, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.User), args.Error(2)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *types.TokenClaims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}
