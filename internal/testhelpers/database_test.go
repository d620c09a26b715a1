package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipe-app-api/backend/internal/models"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)

	user, err := models.NewUser("test@example.com", "testpass123", "Test User")
	require.NoError(t, err)
	require.NoError(t, db.Create(user).Error)
	assert.NotZero(t, user.ID)

	recipe := &models.Recipe{
		UserID:      user.ID,
		Title:       "Test Recipe",
		TimeMinutes: 5,
		Price:       550,
		Tags:        []models.Tag{{UserID: user.ID, Name: "Quick"}},
	}
	require.NoError(t, db.Create(recipe).Error)

	var loaded models.Recipe
	require.NoError(t, db.Preload("Tags").First(&loaded, recipe.ID).Error)
	assert.Equal(t, models.Price(550), loaded.Price)
	require.Len(t, loaded.Tags, 1)
	assert.Equal(t, "Quick", loaded.Tags[0].Name)
}

func TestSetupTestDBIsolated(t *testing.T) {
	first := SetupTestDB(t)
	second := SetupTestDB(t)

	user, err := models.NewUser("only@example.com", "testpass123", "Only")
	require.NoError(t, err)
	require.NoError(t, first.Create(user).Error)

	var count int64
	require.NoError(t, second.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMigrationsDirExists(t *testing.T) {
	assert.DirExists(t, MigrationsDir())
}
