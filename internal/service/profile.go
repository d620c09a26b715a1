package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// ProfileService handles the authenticated user's own account
type ProfileService struct {
	db *gorm.DB
}

// Ensure ProfileService implements IProfileService
var _ IProfileService = (*ProfileService)(nil)

// NewProfileService creates a new ProfileService instance
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{
		db: db,
	}
}

// GetProfile retrieves a user by id
func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	return findUser(ctx, s.db, userID)
}

// UpdateProfile applies the non-nil fields of req. A new password is hashed
// before it is stored.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uint, req *types.UpdateUserRequest) (*models.User, error) {
	user, err := findUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		user.Email = email
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, err
		}
	}

	if err := saveUser(ctx, s.db, user); err != nil {
		return nil, err
	}
	return user, nil
}

func findUser(ctx context.Context, db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func saveUser(ctx context.Context, db *gorm.DB, user *models.User) error {
	if err := db.WithContext(ctx).Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}
