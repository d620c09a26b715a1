package service

import (
	"context"
	"io"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// IAuthService defines the interface for registration and token operations
type IAuthService interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	CreateSuperuser(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
}

// IProfileService defines the interface for the authenticated user's own account
type IProfileService interface {
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, req *types.UpdateUserRequest) (*models.User, error)
}

// IAdminService defines the interface for managing every user account
type IAdminService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	CreateUser(ctx context.Context, req *types.AdminCreateUserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, id uint, req *types.AdminUpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

// RecipeFilter narrows a recipe listing. Empty slices do not filter.
type RecipeFilter struct {
	TagIDs        []uint
	IngredientIDs []uint
}

// IRecipeService defines the interface for recipe operations. Every method is
// scoped to the owning user; recipes of other users are reported as ErrNotFound.
type IRecipeService interface {
	ListRecipes(ctx context.Context, userID uint, filter RecipeFilter) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, userID, id uint) (*models.Recipe, error)
	CreateRecipe(ctx context.Context, userID uint, req *types.RecipeRequest) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, userID, id uint, req *types.RecipeRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, id uint) error
	UploadImage(ctx context.Context, userID, id uint, filename string, body io.Reader) (*models.Recipe, error)
}

// IAttributeService defines the interface for tag and ingredient operations
type IAttributeService interface {
	List(ctx context.Context, userID uint, assignedOnly bool) ([]models.Attribute, error)
	Update(ctx context.Context, userID, id uint, name string) (*models.Attribute, error)
	Delete(ctx context.Context, userID, id uint) error
}

// IImageService defines the interface for validating and storing recipe images
type IImageService interface {
	Store(ctx context.Context, filename string, body io.Reader) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
