package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// MockRecipeService is a mock implementation of service.IRecipeService
type MockRecipeService struct {
	mock.Mock
}

func (m *MockRecipeService) ListRecipes(ctx context.Context, userID uint, filter service.RecipeFilter) ([]models.Recipe, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recipe), args.Error(1)
}

func (m *MockRecipeService) GetRecipe(ctx context.Context, userID, id uint) (*models.Recipe, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) CreateRecipe(ctx context.Context, userID uint, req *types.RecipeRequest) (*models.Recipe, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) UpdateRecipe(ctx context.Context, userID, id uint, req *types.RecipeRequest) (*models.Recipe, error) {
	args := m.Called(ctx, userID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeService) DeleteRecipe(ctx context.Context, userID, id uint) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockRecipeService) UploadImage(ctx context.Context, userID, id uint, filename string, body io.Reader) (*models.Recipe, error) {
	args := m.Called(ctx, userID, id, filename, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

// MockImageService is a mock implementation of service.IImageService
type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) Store(ctx context.Context, filename string, body io.Reader) (string, error) {
	args := m.Called(ctx, filename, body)
	return args.String(0), args.Error(1)
}

func (m *MockImageService) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockImageService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
