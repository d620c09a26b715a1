package models

import (
	"time"
)

// Recipe is a recipe owned by a single user
type Recipe struct {
	ID          uint         `gorm:"primarykey" json:"id"`
	UserID      uint         `gorm:"not null;index" json:"-"`
	User        *User        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	TimeMinutes int          `gorm:"not null" json:"time_minutes"`
	Price       Price        `gorm:"type:numeric(5,2);not null" json:"price"`
	Description string       `gorm:"type:text" json:"description"`
	Link        string       `gorm:"size:255" json:"link"`
	Image       *string      `gorm:"size:255" json:"image"`
	Tags        []Tag        `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	Ingredients []Ingredient `gorm:"many2many:recipe_ingredients;constraint:OnDelete:CASCADE" json:"ingredients"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r Recipe) String() string {
	return r.Title
}

// Tag labels recipes for a single user
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_tags_user_name" json:"-"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_tags_user_name" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (t Tag) String() string {
	return t.Name
}

// Ingredient is an ingredient a user has used in their recipes
type Ingredient struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_ingredients_user_name" json:"-"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_ingredients_user_name" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (i Ingredient) String() string {
	return i.Name
}

// Attribute is the shape shared by tags and ingredients.
// It is read and written through an explicit table name.
type Attribute struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// AllModels lists every model managed by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{&User{}, &Recipe{}, &Tag{}, &Ingredient{}}
}
