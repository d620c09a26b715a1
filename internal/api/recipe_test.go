package api_test

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipe-app-api/backend/internal/events"
	"github.com/pageza/recipe-app-api/backend/internal/models"
)

const recipesURL = "/api/v1/recipe/recipes"

func detailURL(id uint) string {
	return fmt.Sprintf("%s/%d", recipesURL, id)
}

func imageUploadURL(id uint) string {
	return fmt.Sprintf("%s/%d/upload-image", recipesURL, id)
}

type attrJSON struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type recipeJSON struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	TimeMinutes int        `json:"time_minutes"`
	Price       string     `json:"price"`
	Link        string     `json:"link"`
	Description *string    `json:"description"`
	Image       *string    `json:"image"`
	Tags        []attrJSON `json:"tags"`
	Ingredients []attrJSON `json:"ingredients"`
}

func samplePayload(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":        title,
		"time_minutes": 22,
		"price":        "5.25",
	}
}

func (e *testEnv) createRecipe(t *testing.T, token string, payload map[string]interface{}) recipeJSON {
	t.Helper()
	w := e.Do(t, http.MethodPost, recipesURL, token, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var r recipeJSON
	decodeJSON(t, w, &r)
	return r
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	return buf.Bytes()
}

func TestRecipeAuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	w := env.Do(t, http.MethodGet, recipesURL, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRetrieveRecipes(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")
	_, otherToken := env.CreateTestUserAndToken(t, "other@example.com")

	first := env.createRecipe(t, token, samplePayload("First"))
	second := env.createRecipe(t, token, samplePayload("Second"))
	env.createRecipe(t, otherToken, samplePayload("Foreign"))

	w := env.Do(t, http.MethodGet, recipesURL, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]interface{}
	decodeJSON(t, w, &list)
	require.Len(t, list, 2)
	assert.EqualValues(t, second.ID, list[0]["id"])
	assert.EqualValues(t, first.ID, list[1]["id"])
	assert.NotContains(t, list[0], "description")
	assert.NotContains(t, list[0], "image")
	assert.Equal(t, "5.25", list[0]["price"])
}

func TestGetRecipeDetail(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")

	payload := samplePayload("Curry")
	payload["description"] = "Spicy"
	payload["tags"] = []map[string]string{{"name": "Dinner"}}
	created := env.createRecipe(t, token, payload)

	w := env.Do(t, http.MethodGet, detailURL(created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var r recipeJSON
	decodeJSON(t, w, &r)
	assert.Equal(t, "Curry", r.Title)
	require.NotNil(t, r.Description)
	assert.Equal(t, "Spicy", *r.Description)
	assert.Nil(t, r.Image)
	require.Len(t, r.Tags, 1)
	assert.Equal(t, "Dinner", r.Tags[0].Name)
}

func TestCreateRecipeWithNewAndExistingTags(t *testing.T) {
	env := setupTestEnv(t)
	user, token := env.CreateTestUserAndToken(t, "user@example.com")
	require.NoError(t, env.DB.Create(&models.Tag{UserID: user.ID, Name: "Indian"}).Error)

	payload := samplePayload("Pongal")
	payload["tags"] = []map[string]string{{"name": "Indian"}, {"name": "Breakfast"}}
	payload["ingredients"] = []map[string]string{{"name": "Rice"}}
	r := env.createRecipe(t, token, payload)

	assert.Len(t, r.Tags, 2)
	assert.Len(t, r.Ingredients, 1)

	var count int64
	require.NoError(t, env.DB.Model(&models.Tag{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, []string{events.RecipeCreated}, env.Publisher.Types())
}

func TestCreateRecipeValidation(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")

	tests := []struct {
		name    string
		payload map[string]interface{}
		field   string
	}{
		{"missing title", map[string]interface{}{"time_minutes": 5, "price": "1.00"}, "title"},
		{"blank title", map[string]interface{}{"title": "  ", "time_minutes": 5, "price": "1.00"}, "title"},
		{"negative time", map[string]interface{}{"title": "x", "time_minutes": -1, "price": "1.00"}, "time_minutes"},
		{"bad price", map[string]interface{}{"title": "x", "time_minutes": 5, "price": "1000.00"}, "price"},
		{"bad link", map[string]interface{}{"title": "x", "time_minutes": 5, "price": "1.00", "link": "nope"}, "link"},
		{"blank tag", map[string]interface{}{"title": "x", "time_minutes": 5, "price": "1.00", "tags": []map[string]string{{"name": ""}}}, "tags[0].name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.Do(t, http.MethodPost, recipesURL, token, tt.payload)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			var resp struct {
				Fields map[string]string `json:"fields"`
			}
			decodeJSON(t, w, &resp)
			assert.Contains(t, resp.Fields, tt.field)
		})
	}
}

func TestRecipeOfOtherUserNotFound(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")
	_, otherToken := env.CreateTestUserAndToken(t, "other@example.com")
	foreign := env.createRecipe(t, otherToken, samplePayload("Foreign"))

	assert.Equal(t, http.StatusNotFound, env.Do(t, http.MethodGet, detailURL(foreign.ID), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.Do(t, http.MethodPatch, detailURL(foreign.ID), token, map[string]string{"title": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, env.Do(t, http.MethodDelete, detailURL(foreign.ID), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.Do(t, http.MethodGet, recipesURL+"/abc", token, nil).Code)

	w := env.Do(t, http.MethodGet, detailURL(foreign.ID), otherToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPartialUpdate(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")

	payload := samplePayload("Sample")
	payload["link"] = "https://example.com/recipe.pdf"
	payload["tags"] = []map[string]string{{"name": "Dinner"}}
	created := env.createRecipe(t, token, payload)

	w := env.Do(t, http.MethodPatch, detailURL(created.ID), token, map[string]string{"title": "New recipe title"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r recipeJSON
	decodeJSON(t, w, &r)
	assert.Equal(t, "New recipe title", r.Title)
	assert.Equal(t, "https://example.com/recipe.pdf", r.Link)
	require.Len(t, r.Tags, 1)
}

func TestPartialUpdateRejectsNull(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")
	created := env.createRecipe(t, token, samplePayload("Sample"))

	w := env.Do(t, http.MethodPatch, detailURL(created.ID), token, map[string]interface{}{"price": nil})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decodeJSON(t, w, &resp)
	assert.Equal(t, "This field may not be null.", resp.Fields["price"])

	var stored models.Recipe
	require.NoError(t, env.DB.First(&stored, created.ID).Error)
	assert.Equal(t, models.Price(525), stored.Price)
}

func TestFullUpdate(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")

	payload := samplePayload("Sample")
	payload["link"] = "https://example.com/recipe.pdf"
	payload["tags"] = []map[string]string{{"name": "Dinner"}}
	created := env.createRecipe(t, token, payload)

	w := env.Do(t, http.MethodPut, detailURL(created.ID), token, map[string]string{"title": "Only title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Do(t, http.MethodPut, detailURL(created.ID), token, map[string]interface{}{
		"title":        "New recipe title",
		"link":         "https://example.com/new-recipe.pdf",
		"description":  "New recipe description",
		"time_minutes": 10,
		"price":        2.50,
		"tags":         []map[string]string{},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r recipeJSON
	decodeJSON(t, w, &r)
	assert.Equal(t, "New recipe title", r.Title)
	assert.Equal(t, 10, r.TimeMinutes)
	assert.Equal(t, "2.50", r.Price)
	assert.Empty(t, r.Tags)
}

func TestDeleteRecipe(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")
	created := env.createRecipe(t, token, samplePayload("Sample"))

	w := env.Do(t, http.MethodDelete, detailURL(created.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Recipe{}).Where("id = ?", created.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFilterRecipes(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")

	p1 := samplePayload("Thai Vegetable Curry")
	p1["tags"] = []map[string]string{{"name": "Vegan"}}
	r1 := env.createRecipe(t, token, p1)

	p2 := samplePayload("Aubergine with Tahini")
	p2["tags"] = []map[string]string{{"name": "Vegetarian"}}
	p2["ingredients"] = []map[string]string{{"name": "Feta"}}
	r2 := env.createRecipe(t, token, p2)

	env.createRecipe(t, token, samplePayload("Fish and chips"))

	url := fmt.Sprintf("%s?tags=%d,%d", recipesURL, r1.Tags[0].ID, r2.Tags[0].ID)
	w := env.Do(t, http.MethodGet, url, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []recipeJSON
	decodeJSON(t, w, &list)
	require.Len(t, list, 2)

	url = fmt.Sprintf("%s?ingredients=%d", recipesURL, r2.Ingredients[0].ID)
	w = env.Do(t, http.MethodGet, url, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, r2.ID, list[0].ID)

	w = env.Do(t, http.MethodGet, recipesURL+"?tags=1,x", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImage(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")
	created := env.createRecipe(t, token, samplePayload("Sample"))

	w := env.Upload(t, imageUploadURL(created.ID), token, "photo.png", pngImage(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ID    uint   `json:"id"`
		Image string `json:"image"`
	}
	decodeJSON(t, w, &resp)
	assert.Equal(t, created.ID, resp.ID)
	assert.Regexp(t, `^http://example\.com/static/media/uploads/recipe/[0-9a-f-]{36}\.png$`, resp.Image)

	// the stored file is served back
	path := strings.TrimPrefix(resp.Image, "http://example.com")
	get := httptest.NewRecorder()
	env.Router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, get.Code)

	w = env.Do(t, http.MethodGet, detailURL(created.ID), token, nil)
	var r recipeJSON
	decodeJSON(t, w, &r)
	require.NotNil(t, r.Image)
	assert.Equal(t, resp.Image, *r.Image)
	assert.Contains(t, env.Publisher.Types(), events.RecipeImageUploaded)
}

func TestUploadImageBadRequest(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")
	created := env.createRecipe(t, token, samplePayload("Sample"))

	w := env.Upload(t, imageUploadURL(created.ID), token, "notimage.png", []byte("notimage"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Do(t, http.MethodPost, imageUploadURL(created.ID), token, map[string]string{"image": "notimage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImageUsesDecodedExtension(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")
	created := env.createRecipe(t, token, samplePayload("Sample"))

	w := env.Upload(t, imageUploadURL(created.ID), token, "page.html", pngImage(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Image string `json:"image"`
	}
	decodeJSON(t, w, &resp)
	assert.True(t, strings.HasSuffix(resp.Image, ".png"), resp.Image)

	get := httptest.NewRecorder()
	env.Router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(resp.Image, "http://example.com"), nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "image/png", get.Header().Get("Content-Type"))
}

func TestUploadImageRateLimited(t *testing.T) {
	env := setupTestEnvWithLimits(t, 10, 1)
	_, token := env.CreateTestUserAndToken(t, "user@example.com")
	created := env.createRecipe(t, token, samplePayload("Sample"))

	assert.Equal(t, http.StatusOK, env.Upload(t, imageUploadURL(created.ID), token, "a.png", pngImage(t)).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.Upload(t, imageUploadURL(created.ID), token, "b.png", pngImage(t)).Code)
}
