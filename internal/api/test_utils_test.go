package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/internal/api"
	"github.com/pageza/recipe-app-api/backend/internal/authz"
	"github.com/pageza/recipe-app-api/backend/internal/events"
	"github.com/pageza/recipe-app-api/backend/internal/logging"
	"github.com/pageza/recipe-app-api/backend/internal/middleware"
	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/router"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/storage"
	"github.com/pageza/recipe-app-api/backend/internal/testhelpers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testEnv is a fully wired API over an in-memory database
type testEnv struct {
	Router    *gin.Engine
	DB        *gorm.DB
	Auth      *service.AuthService
	Store     *storage.LocalStorage
	Publisher *events.MemoryPublisher
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWithLimits(t, 1000, 1000)
}

// setupTestEnvWithLimits builds the API with the given per-window limits;
// configure may adjust the router options before the router is built
func setupTestEnvWithLimits(t *testing.T, tokenLimit, uploadLimit int, configure ...func(*router.Options)) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	log := logging.Discard()

	store, err := storage.NewLocalStorage(t.TempDir(), "", "/static/media")
	require.NoError(t, err)
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	publisher := &events.MemoryPublisher{}
	images := service.NewImageService(store, 0, 0)
	authService := service.NewAuthService(db, "test-secret", time.Hour, service.NewMemoryTokenStore())
	profileService := service.NewProfileService(db)

	opts := router.Options{
		Log:           log,
		Tokens:        authService,
		Users:         profileService,
		Authorizer:    enforcer,
		TokenLimiter:  middleware.NewMemoryLimiter(middleware.RateLimitConfig{Window: time.Minute, Limit: tokenLimit}),
		UploadLimiter: middleware.NewMemoryLimiter(middleware.RateLimitConfig{Window: time.Minute, Limit: uploadLimit}),
		MediaURL:      "/static/media",
		MediaRoot:     store.Root(),
	}
	for _, fn := range configure {
		fn(&opts)
	}

	r := router.SetupRouter(router.Handlers{
		Auth:       api.NewAuthHandler(authService),
		Profile:    api.NewProfileHandler(profileService),
		Recipe:     api.NewRecipeHandler(service.NewRecipeService(db, images, publisher, log), images, 0),
		Tag:        api.NewAttributeHandler(service.NewTagService(db)),
		Ingredient: api.NewAttributeHandler(service.NewIngredientService(db)),
		Admin:      api.NewAdminHandler(service.NewAdminService(db, images, log)),
		Health:     api.NewHealthHandler(db, log),
	}, opts)

	return &testEnv{
		Router:    r,
		DB:        db,
		Auth:      authService,
		Store:     store,
		Publisher: publisher,
	}
}

// CreateTestUserAndToken creates an active user and returns it with a valid token
func (e *testEnv) CreateTestUserAndToken(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user, err := models.NewUser(email, "testpass123", "Test User")
	require.NoError(t, err)
	require.NoError(t, e.DB.Create(user).Error)

	token, err := e.Auth.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

// CreateStaffToken creates a staff user, optionally a superuser, and returns a token
func (e *testEnv) CreateStaffToken(t *testing.T, email string, superuser bool) string {
	t.Helper()
	user, err := models.NewUser(email, "staffpass123", "Staff")
	require.NoError(t, err)
	user.IsStaff = true
	user.IsSuperuser = superuser
	require.NoError(t, e.DB.Create(user).Error)

	token, err := e.Auth.GenerateToken(user)
	require.NoError(t, err)
	return token
}

// Do sends a JSON request, authenticated when token is non-empty
func (e *testEnv) Do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Upload sends data as the multipart "image" field
func (e *testEnv) Upload(t *testing.T, path, token, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
