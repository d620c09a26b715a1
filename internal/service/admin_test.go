package service_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipe-app-api/backend/internal/logging"
	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/storage"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

func boolPtr(b bool) *bool { return &b }

func TestAdminListUsers(t *testing.T) {
	f := setupRecipeTest(t)
	second := createUser(t, f.db, "second@example.com")
	svc := service.NewAdminService(f.db, nil, logging.Discard())

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, f.user.ID, users[0].ID)
	assert.Equal(t, second.ID, users[1].ID)
}

func TestAdminCreateAndUpdateUser(t *testing.T) {
	f := setupRecipeTest(t)
	svc := service.NewAdminService(f.db, nil, logging.Discard())
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, &types.AdminCreateUserRequest{
		Email:    "staff@Example.com",
		Password: "staffpass",
		Name:     "Staff",
		IsStaff:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.True(t, user.IsStaff)
	assert.False(t, user.IsSuperuser)

	_, err = svc.CreateUser(ctx, &types.AdminCreateUserRequest{Email: "user@example.com", Password: "testpass"})
	assert.ErrorIs(t, err, service.ErrEmailTaken)

	updated, err := svc.UpdateUser(ctx, user.ID, &types.AdminUpdateUserRequest{
		IsActive:    boolPtr(false),
		IsSuperuser: boolPtr(true),
		Password:    strPtr("changedpass"),
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.IsSuperuser)
	assert.True(t, updated.IsStaff)

	var stored models.User
	require.NoError(t, f.db.First(&stored, user.ID).Error)
	assert.False(t, stored.IsActive)
	assert.True(t, stored.CheckPassword("changedpass"))

	_, err = svc.UpdateUser(ctx, 9999, &types.AdminUpdateUserRequest{})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAdminDeleteUserRemovesOwnedData(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	other := createUser(t, f.db, "other@example.com")

	req := recipeRequest("Curry")
	req.Tags = attrs("Dinner")
	req.Ingredients = attrs("Rice")
	recipe, err := f.svc.CreateRecipe(ctx, f.user.ID, req)
	require.NoError(t, err)
	recipe, err = f.svc.UploadImage(ctx, f.user.ID, recipe.ID, "photo.png", bytes.NewReader(pngBytes(t, 8, 8)))
	require.NoError(t, err)
	_, err = f.svc.CreateRecipe(ctx, other.ID, recipeRequest("Kept"))
	require.NoError(t, err)

	svc := service.NewAdminService(f.db, service.NewImageService(f.store, 0, 0), logging.Discard())
	require.NoError(t, svc.DeleteUser(ctx, f.user.ID))

	for _, model := range []interface{}{&models.Recipe{}, &models.Tag{}, &models.Ingredient{}} {
		var count int64
		require.NoError(t, f.db.Model(model).Where("user_id = ?", f.user.ID).Count(&count).Error)
		assert.Zero(t, count)
	}
	var links int64
	require.NoError(t, f.db.Table("recipe_ingredients").Count(&links).Error)
	assert.Zero(t, links)

	var remaining int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)

	assert.ErrorIs(t, f.store.Delete(ctx, *recipe.Image), storage.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, f.user.ID), service.ErrNotFound)
}
