package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/internal/logging"
	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// AdminService manages user accounts on behalf of staff
type AdminService struct {
	db     *gorm.DB
	images IImageService
	log    *logrus.Logger
}

var _ IAdminService = (*AdminService)(nil)

// NewAdminService creates an AdminService. images may be nil when no
// storage is configured, in which case image files are left in place.
func NewAdminService(db *gorm.DB, images IImageService, log *logrus.Logger) *AdminService {
	if log == nil {
		log = logging.Discard()
	}
	return &AdminService{db: db, images: images, log: log}
}

// ListUsers returns every user ordered by id
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return findUser(ctx, s.db, id)
}

func (s *AdminService) CreateUser(ctx context.Context, req *types.AdminCreateUserRequest) (*models.User, error) {
	user, err := models.NewUser(req.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.IsStaff = req.IsStaff
	user.IsSuperuser = req.IsSuperuser

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, id uint, req *types.AdminUpdateUserRequest) (*models.User, error) {
	user, err := findUser(ctx, s.db, id)
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
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.IsStaff != nil {
		user.IsStaff = *req.IsStaff
	}
	if req.IsSuperuser != nil {
		user.IsSuperuser = *req.IsSuperuser
	}

	if err := saveUser(ctx, s.db, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user together with their recipes, tags and
// ingredients. Stored images are removed once the rows are gone.
func (s *AdminService) DeleteUser(ctx context.Context, id uint) error {
	var images []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(ctx, tx, id); err != nil {
			return err
		}

		recipeIDs := tx.Model(&models.Recipe{}).Select("id").Where("user_id = ?", id)
		if err := tx.Model(&models.Recipe{}).Where("user_id = ? AND image IS NOT NULL", id).
			Pluck("image", &images).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id IN (?)", recipeIDs).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM recipe_ingredients WHERE recipe_id IN (?)", recipeIDs).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{&models.Recipe{}, &models.Tag{}, &models.Ingredient{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if s.images != nil {
		for _, key := range images {
			if err := s.images.Delete(ctx, key); err != nil {
				s.log.WithError(err).WithField("key", key).Warn("failed to delete recipe image")
			}
		}
	}
	return nil
}
