package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/internal/events"
	"github.com/pageza/recipe-app-api/backend/internal/logging"
	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/storage"
	"github.com/pageza/recipe-app-api/backend/internal/testhelpers"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

type recipeFixture struct {
	db        *gorm.DB
	svc       *service.RecipeService
	publisher *events.MemoryPublisher
	store     *storage.LocalStorage
	user      *models.User
}

func setupRecipeTest(t *testing.T) *recipeFixture {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8000", "/static/media")
	require.NoError(t, err)
	publisher := &events.MemoryPublisher{}
	images := service.NewImageService(store, 0, 0)
	return &recipeFixture{
		db:        db,
		svc:       service.NewRecipeService(db, images, publisher, logging.Discard()),
		publisher: publisher,
		store:     store,
		user:      createUser(t, db, "user@example.com"),
	}
}

func attrs(names ...string) *[]types.AttributeRequest {
	out := make([]types.AttributeRequest, 0, len(names))
	for _, n := range names {
		out = append(out, types.AttributeRequest{Name: n})
	}
	return &out
}

func recipeRequest(title string) *types.RecipeRequest {
	minutes := 22
	price := models.Price(525)
	return &types.RecipeRequest{
		Title:       &title,
		TimeMinutes: &minutes,
		Price:       &price,
	}
}

func tagNames(r *models.Recipe) []string {
	var names []string
	for _, t := range r.Tags {
		names = append(names, t.Name)
	}
	return names
}

func TestCreateRecipe(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()

	req := recipeRequest("Thai Prawn Curry")
	req.Description = strPtr("Spicy")
	req.Link = strPtr("https://example.com/curry.pdf")
	req.Tags = attrs("Thai", "Dinner", "Thai")
	req.Ingredients = attrs("Prawns", "Ginger")

	recipe, err := f.svc.CreateRecipe(ctx, f.user.ID, req)
	require.NoError(t, err)
	assert.NotZero(t, recipe.ID)
	assert.Equal(t, f.user.ID, recipe.UserID)
	assert.Equal(t, "Thai Prawn Curry", recipe.Title)
	assert.Equal(t, models.Price(525), recipe.Price)
	assert.Equal(t, []string{"Thai", "Dinner"}, tagNames(recipe))
	assert.Len(t, recipe.Ingredients, 2)
	assert.Nil(t, recipe.Image)

	assert.Equal(t, []string{events.RecipeCreated}, f.publisher.Types())
}

func TestCreateRecipeReusesExistingTags(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	other := createUser(t, f.db, "other@example.com")

	existing := models.Tag{UserID: f.user.ID, Name: "Breakfast"}
	require.NoError(t, f.db.Create(&existing).Error)
	foreign := models.Tag{UserID: other.ID, Name: "Lunch"}
	require.NoError(t, f.db.Create(&foreign).Error)

	req := recipeRequest("Pongal")
	req.Tags = attrs("Breakfast", "Lunch")
	recipe, err := f.svc.CreateRecipe(ctx, f.user.ID, req)
	require.NoError(t, err)

	require.Len(t, recipe.Tags, 2)
	assert.Equal(t, existing.ID, recipe.Tags[0].ID)
	assert.NotEqual(t, foreign.ID, recipe.Tags[1].ID)

	var count int64
	require.NoError(t, f.db.Model(&models.Tag{}).Where("user_id = ?", f.user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestListRecipesIsScopedToUser(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	other := createUser(t, f.db, "other@example.com")

	first, err := f.svc.CreateRecipe(ctx, f.user.ID, recipeRequest("First"))
	require.NoError(t, err)
	second, err := f.svc.CreateRecipe(ctx, f.user.ID, recipeRequest("Second"))
	require.NoError(t, err)
	_, err = f.svc.CreateRecipe(ctx, other.ID, recipeRequest("Foreign"))
	require.NoError(t, err)

	recipes, err := f.svc.ListRecipes(ctx, f.user.ID, service.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, second.ID, recipes[0].ID)
	assert.Equal(t, first.ID, recipes[1].ID)
}

func TestListRecipesFilters(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()

	r1 := recipeRequest("Vegetable Curry")
	r1.Tags = attrs("Vegan", "Dinner")
	r1.Ingredients = attrs("Feta")
	curry, err := f.svc.CreateRecipe(ctx, f.user.ID, r1)
	require.NoError(t, err)

	r2 := recipeRequest("Aubergine with Tahini")
	r2.Tags = attrs("Vegetarian")
	r2.Ingredients = attrs("Chicken")
	aubergine, err := f.svc.CreateRecipe(ctx, f.user.ID, r2)
	require.NoError(t, err)

	_, err = f.svc.CreateRecipe(ctx, f.user.ID, recipeRequest("Fish and chips"))
	require.NoError(t, err)

	tagIDs := []uint{curry.Tags[0].ID, curry.Tags[1].ID, aubergine.Tags[0].ID}
	recipes, err := f.svc.ListRecipes(ctx, f.user.ID, service.RecipeFilter{TagIDs: tagIDs})
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, aubergine.ID, recipes[0].ID)
	assert.Equal(t, curry.ID, recipes[1].ID)

	recipes, err = f.svc.ListRecipes(ctx, f.user.ID, service.RecipeFilter{
		TagIDs:        tagIDs,
		IngredientIDs: []uint{curry.Ingredients[0].ID},
	})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, curry.ID, recipes[0].ID)
}

func TestGetRecipeOfOtherUser(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()
	other := createUser(t, f.db, "other@example.com")

	recipe, err := f.svc.CreateRecipe(ctx, other.ID, recipeRequest("Foreign"))
	require.NoError(t, err)

	_, err = f.svc.GetRecipe(ctx, f.user.ID, recipe.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.svc.UpdateRecipe(ctx, f.user.ID, recipe.ID, recipeRequest("Stolen"))
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteRecipe(ctx, f.user.ID, recipe.ID), service.ErrNotFound)
}

func TestPartialUpdateKeepsTags(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()

	req := recipeRequest("Chicken Curry")
	req.Link = strPtr("https://example.com/recipe.pdf")
	req.Tags = attrs("Dinner")
	recipe, err := f.svc.CreateRecipe(ctx, f.user.ID, req)
	require.NoError(t, err)

	updated, err := f.svc.UpdateRecipe(ctx, f.user.ID, recipe.ID, &types.RecipeRequest{Title: strPtr("New Title")})
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "https://example.com/recipe.pdf", updated.Link)
	assert.Equal(t, []string{"Dinner"}, tagNames(updated))
	assert.Equal(t, f.user.ID, updated.UserID)
}

func TestUpdateReplacesTags(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()

	req := recipeRequest("Curry")
	req.Tags = attrs("Breakfast")
	recipe, err := f.svc.CreateRecipe(ctx, f.user.ID, req)
	require.NoError(t, err)

	updated, err := f.svc.UpdateRecipe(ctx, f.user.ID, recipe.ID, &types.RecipeRequest{Tags: attrs("Lunch")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lunch"}, tagNames(updated))

	updated, err = f.svc.UpdateRecipe(ctx, f.user.ID, recipe.ID, &types.RecipeRequest{Tags: attrs()})
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)

	// the tags themselves survive being unlinked
	var count int64
	require.NoError(t, f.db.Model(&models.Tag{}).Where("user_id = ?", f.user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	assert.Equal(t, []string{events.RecipeCreated, events.RecipeUpdated, events.RecipeUpdated}, f.publisher.Types())
}

func TestDeleteRecipe(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()

	req := recipeRequest("Curry")
	req.Tags = attrs("Dinner")
	recipe, err := f.svc.CreateRecipe(ctx, f.user.ID, req)
	require.NoError(t, err)
	recipe, err = f.svc.UploadImage(ctx, f.user.ID, recipe.ID, "photo.png", bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRecipe(ctx, f.user.ID, recipe.ID))

	_, err = f.svc.GetRecipe(ctx, f.user.ID, recipe.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	var links int64
	require.NoError(t, f.db.Table("recipe_tags").Where("recipe_id = ?", recipe.ID).Count(&links).Error)
	assert.Zero(t, links)

	assert.ErrorIs(t, f.store.Delete(ctx, *recipe.Image), storage.ErrNotFound)
	assert.Contains(t, f.publisher.Types(), events.RecipeDeleted)
}

func TestUploadImage(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()

	recipe, err := f.svc.CreateRecipe(ctx, f.user.ID, recipeRequest("Curry"))
	require.NoError(t, err)

	first, err := f.svc.UploadImage(ctx, f.user.ID, recipe.ID, "Photo.PNG", bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)
	require.NotNil(t, first.Image)
	assert.Regexp(t, `^uploads/recipe/[0-9a-f-]{36}\.png$`, *first.Image)
	firstKey := *first.Image

	second, err := f.svc.UploadImage(ctx, f.user.ID, recipe.ID, "other.png", bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *second.Image)

	// previous image is removed
	assert.ErrorIs(t, f.store.Delete(ctx, firstKey), storage.ErrNotFound)

	stored, err := f.svc.GetRecipe(ctx, f.user.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, *second.Image, *stored.Image)
}

func TestUploadInvalidImage(t *testing.T) {
	f := setupRecipeTest(t)
	ctx := context.Background()

	recipe, err := f.svc.CreateRecipe(ctx, f.user.ID, recipeRequest("Curry"))
	require.NoError(t, err)

	_, err = f.svc.UploadImage(ctx, f.user.ID, recipe.ID, "notimage.png", bytes.NewReader([]byte("notimage")))
	assert.ErrorIs(t, err, service.ErrInvalidImage)

	stored, err := f.svc.GetRecipe(ctx, f.user.ID, recipe.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Image)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error { return errors.New("broker down") }
func (failingPublisher) Close() error { return nil }

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := createUser(t, db, "user@example.com")
	svc := service.NewRecipeService(db, nil, failingPublisher{}, logging.Discard())

	recipe, err := svc.CreateRecipe(context.Background(), user.ID, recipeRequest("Curry"))
	require.NoError(t, err)
	assert.NotZero(t, recipe.ID)
}
