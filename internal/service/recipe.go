package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/recipe-app-api/backend/internal/events"
	"github.com/pageza/recipe-app-api/backend/internal/logging"
	"github.com/pageza/recipe-app-api/backend/internal/metrics"
	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images IImageService
	events events.Publisher
	log    *logrus.Logger
}

var _ IRecipeService = (*RecipeService)(nil)

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images IImageService, publisher events.Publisher, log *logrus.Logger) *RecipeService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &RecipeService{
		db:     db,
		images: images,
		events: publisher,
		log:    log,
	}
}

func preloadAttributes(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("ingredients.id") })
}

// ListRecipes returns the user's recipes, newest first
func (s *RecipeService) ListRecipes(ctx context.Context, userID uint, filter RecipeFilter) ([]models.Recipe, error) {
	db := s.db.WithContext(ctx)
	query := preloadAttributes(db).Where("recipes.user_id = ?", userID)
	if len(filter.TagIDs) > 0 {
		query = query.Where("recipes.id IN (?)",
			db.Table("recipe_tags").Select("recipe_id").Where("tag_id IN ?", filter.TagIDs))
	}
	if len(filter.IngredientIDs) > 0 {
		query = query.Where("recipes.id IN (?)",
			db.Table("recipe_ingredients").Select("recipe_id").Where("ingredient_id IN ?", filter.IngredientIDs))
	}

	recipes := []models.Recipe{}
	if err := query.Order("recipes.id DESC").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// GetRecipe retrieves one of the user's recipes by ID
func (s *RecipeService) GetRecipe(ctx context.Context, userID, id uint) (*models.Recipe, error) {
	return s.load(s.db.WithContext(ctx), userID, id)
}

func (s *RecipeService) load(db *gorm.DB, userID, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := preloadAttributes(db).
		Where("recipes.id = ? AND recipes.user_id = ?", id, userID).
		First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// CreateRecipe creates a recipe owned by userID together with its tags and ingredients
func (s *RecipeService) CreateRecipe(ctx context.Context, userID uint, req *types.RecipeRequest) (*models.Recipe, error) {
	recipe := &models.Recipe{UserID: userID}
	applyRecipeFields(recipe, req)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		return setAttributes(tx, recipe, req)
	})
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	recipe, err = s.GetRecipe(ctx, userID, recipe.ID)
	if err != nil {
		return nil, err
	}
	metrics.RecipeOperations.WithLabelValues("create").Inc()
	s.publish(ctx, events.RecipeCreated, userID, recipe.ID)
	return recipe, nil
}

// UpdateRecipe applies the fields present in req. Tags and ingredients are
// only touched when the request includes them.
func (s *RecipeService) UpdateRecipe(ctx context.Context, userID, id uint, req *types.RecipeRequest) (*models.Recipe, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := s.load(tx, userID, id)
		if err != nil {
			return err
		}
		applyRecipeFields(recipe, req)
		if err := tx.Omit(clause.Associations).Save(recipe).Error; err != nil {
			return err
		}
		return setAttributes(tx, recipe, req)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	recipe, err := s.GetRecipe(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	metrics.RecipeOperations.WithLabelValues("update").Inc()
	s.publish(ctx, events.RecipeUpdated, userID, id)
	return recipe, nil
}

// DeleteRecipe deletes a recipe, its tag and ingredient links and its image
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, id uint) error {
	recipe, err := s.GetRecipe(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Select("Tags", "Ingredients").Delete(recipe).Error; err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}

	if recipe.Image != nil {
		s.removeImage(ctx, *recipe.Image)
	}
	metrics.RecipeOperations.WithLabelValues("delete").Inc()
	s.publish(ctx, events.RecipeDeleted, userID, id)
	return nil
}

// UploadImage stores body as the recipe's image, replacing any previous one
func (s *RecipeService) UploadImage(ctx context.Context, userID, id uint, filename string, body io.Reader) (*models.Recipe, error) {
	recipe, err := s.GetRecipe(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	key, err := s.images.Store(ctx, filename, body)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(recipe).UpdateColumn("image", key).Error; err != nil {
		s.removeImage(ctx, key)
		return nil, fmt.Errorf("save recipe image: %w", err)
	}

	previous := recipe.Image
	recipe.Image = &key
	if previous != nil && *previous != key {
		s.removeImage(ctx, *previous)
	}

	metrics.RecipeOperations.WithLabelValues("upload_image").Inc()
	s.publish(ctx, events.RecipeImageUploaded, userID, id)
	return recipe, nil
}

func (s *RecipeService) removeImage(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to delete recipe image")
	}
}

func (s *RecipeService) publish(ctx context.Context, eventType string, userID, recipeID uint) {
	if err := s.events.Publish(ctx, events.NewEvent(eventType, userID, recipeID)); err != nil {
		metrics.EventPublishFailures.WithLabelValues(eventType).Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":     eventType,
			"recipe_id": recipeID,
		}).Warn("failed to publish event")
	}
}

func applyRecipeFields(recipe *models.Recipe, req *types.RecipeRequest) {
	if req.Title != nil {
		recipe.Title = strings.TrimSpace(*req.Title)
	}
	if req.TimeMinutes != nil {
		recipe.TimeMinutes = *req.TimeMinutes
	}
	if req.Price != nil {
		recipe.Price = *req.Price
	}
	if req.Description != nil {
		recipe.Description = *req.Description
	}
	if req.Link != nil {
		recipe.Link = strings.TrimSpace(*req.Link)
	}
}

// setAttributes replaces the recipe's tags and ingredients with the named
// rows, creating any the user does not have yet.
func setAttributes(tx *gorm.DB, recipe *models.Recipe, req *types.RecipeRequest) error {
	if req.Tags != nil {
		tags := []models.Tag{}
		for _, name := range uniqueNames(types.Names(*req.Tags)) {
			tag := models.Tag{UserID: recipe.UserID, Name: name}
			if err := tx.Where(&tag).FirstOrCreate(&tag).Error; err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		if err := replaceAssociation(tx, recipe, "Tags", tags); err != nil {
			return err
		}
	}
	if req.Ingredients != nil {
		ingredients := []models.Ingredient{}
		for _, name := range uniqueNames(types.Names(*req.Ingredients)) {
			ingredient := models.Ingredient{UserID: recipe.UserID, Name: name}
			if err := tx.Where(&ingredient).FirstOrCreate(&ingredient).Error; err != nil {
				return err
			}
			ingredients = append(ingredients, ingredient)
		}
		if err := replaceAssociation(tx, recipe, "Ingredients", ingredients); err != nil {
			return err
		}
	}
	return nil
}

func replaceAssociation(tx *gorm.DB, recipe *models.Recipe, name string, values interface{}) error {
	assoc := tx.Model(recipe).Association(name)
	switch v := values.(type) {
	case []models.Tag:
		if len(v) == 0 {
			return assoc.Clear()
		}
	case []models.Ingredient:
		if len(v) == 0 {
			return assoc.Clear()
		}
	}
	return assoc.Replace(values)
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
