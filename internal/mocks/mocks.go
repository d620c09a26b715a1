// Package mocks holds testify mocks of the service interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// MockAttributeService is a mock implementation of service.IAttributeService
type MockAttributeService struct {
	mock.Mock
}

func (m *MockAttributeService) List(ctx context.Context, userID uint, assignedOnly bool) ([]models.Attribute, error) {
	args := m.Called(ctx, userID, assignedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attribute), args.Error(1)
}

func (m *MockAttributeService) Update(ctx context.Context, userID, id uint, name string) (*models.Attribute, error) {
	args := m.Called(ctx, userID, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attribute), args.Error(1)
}

func (m *MockAttributeService) Delete(ctx context.Context, userID, id uint) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockAdminService is a mock implementation of service.IAdminService
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockAdminService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAdminService) CreateUser(ctx context.Context, req *types.AdminCreateUserRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAdminService) UpdateUser(ctx context.Context, id uint, req *types.AdminUpdateUserRequest) (*models.User, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAdminService) DeleteUser(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
