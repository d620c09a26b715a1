package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/internal/models"
)

// AttributeKind describes where a recipe attribute and its recipe links are stored
type AttributeKind struct {
	Table     string
	JoinTable string
	JoinKey   string
}

var (
	TagKind        = AttributeKind{Table: "tags", JoinTable: "recipe_tags", JoinKey: "tag_id"}
	IngredientKind = AttributeKind{Table: "ingredients", JoinTable: "recipe_ingredients", JoinKey: "ingredient_id"}
)

// AttributeService manages tags or ingredients, depending on its kind
type AttributeService struct {
	db   *gorm.DB
	kind AttributeKind
}

var _ IAttributeService = (*AttributeService)(nil)

// NewAttributeService creates an AttributeService for kind
func NewAttributeService(db *gorm.DB, kind AttributeKind) *AttributeService {
	return &AttributeService{db: db, kind: kind}
}

// NewTagService creates an AttributeService for tags
func NewTagService(db *gorm.DB) *AttributeService {
	return NewAttributeService(db, TagKind)
}

// NewIngredientService creates an AttributeService for ingredients
func NewIngredientService(db *gorm.DB) *AttributeService {
	return NewAttributeService(db, IngredientKind)
}

// List returns the user's rows ordered by name descending. With assignedOnly
// set, only rows linked to at least one recipe are returned.
func (s *AttributeService) List(ctx context.Context, userID uint, assignedOnly bool) ([]models.Attribute, error) {
	db := s.db.WithContext(ctx)
	query := db.Table(s.kind.Table).Where("user_id = ?", userID)
	if assignedOnly {
		query = query.Where("id IN (?)", db.Table(s.kind.JoinTable).Select(s.kind.JoinKey))
	}

	attrs := []models.Attribute{}
	if err := query.Order("name DESC").Order("id DESC").Find(&attrs).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind.Table, err)
	}
	return attrs, nil
}

func (s *AttributeService) get(db *gorm.DB, userID, id uint) (*models.Attribute, error) {
	var attr models.Attribute
	err := db.Table(s.kind.Table).Where("id = ? AND user_id = ?", id, userID).Take(&attr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &attr, nil
}

// Update renames one of the user's rows
func (s *AttributeService) Update(ctx context.Context, userID, id uint, name string) (*models.Attribute, error) {
	db := s.db.WithContext(ctx)
	attr, err := s.get(db, userID, id)
	if err != nil {
		return nil, err
	}

	attr.Name = strings.TrimSpace(name)
	attr.UpdatedAt = time.Now()
	err = db.Table(s.kind.Table).Where("id = ?", attr.ID).
		Updates(map[string]interface{}{"name": attr.Name, "updated_at": attr.UpdatedAt}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update %s: %w", s.kind.Table, err)
	}
	return attr, nil
}

// Delete removes one of the user's rows and unlinks it from every recipe
func (s *AttributeService) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attr, err := s.get(tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+s.kind.JoinTable+" WHERE "+s.kind.JoinKey+" = ?", attr.ID).Error; err != nil {
			return fmt.Errorf("unlink %s: %w", s.kind.Table, err)
		}
		if err := tx.Exec("DELETE FROM "+s.kind.Table+" WHERE id = ?", attr.ID).Error; err != nil {
			return fmt.Errorf("delete %s: %w", s.kind.Table, err)
		}
		return nil
	})
}
