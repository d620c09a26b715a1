package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pageza/recipe-app-api/backend/internal/api"
	"github.com/pageza/recipe-app-api/backend/internal/middleware"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// Handlers groups the API handlers mounted by SetupRouter
type Handlers struct {
	Auth       *api.AuthHandler
	Profile    *api.ProfileHandler
	Recipe     *api.RecipeHandler
	Tag        *api.AttributeHandler
	Ingredient *api.AttributeHandler
	Admin      *api.AdminHandler
	Health     *api.HealthHandler
}

// Options carries the middleware dependencies of the router
type Options struct {
	Log         *logrus.Logger
	CORSOrigins []string
	// TrustedProxies may set X-Forwarded-For; empty trusts none
	TrustedProxies []string
	Tokens         middleware.TokenValidator
	Users          middleware.UserLoader
	Authorizer     middleware.Authorizer
	TokenLimiter   middleware.Limiter
	UploadLimiter  middleware.Limiter
	// MediaURL and MediaRoot serve locally stored images when both are set
	MediaURL  string
	MediaRoot string
}

// SetupRouter configures the application routes
func SetupRouter(h Handlers, opts Options) *gin.Engine {
	types.RegisterValidators()

	router := gin.New()
	router.HandleMethodNotAllowed = true
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		opts.Log.WithError(err).Error("Invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	router.Use(
		middleware.ErrorHandler(opts.Log),
		middleware.RequestLogger(opts.Log),
		middleware.Metrics(),
		middleware.CORS(opts.CORSOrigins),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", h.Health.HealthCheck)
	if opts.MediaURL != "" && opts.MediaRoot != "" {
		router.Static(opts.MediaURL, opts.MediaRoot)
	}

	auth := middleware.AuthMiddleware(opts.Tokens, opts.Users)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.GET("/health", h.Health.HealthCheck)

	user := v1.Group("/user")
	{
		user.POST("/create", h.Auth.Register)
		user.POST("/token", limit(opts.TokenLimiter, "token", middleware.KeyByIP, opts.Log), h.Auth.Token)
		user.POST("/logout", auth, h.Auth.Logout)

		me := user.Group("/me", auth)
		me.GET("", h.Profile.GetProfile)
		me.PUT("", h.Profile.ReplaceProfile)
		me.PATCH("", h.Profile.UpdateProfile)
	}

	recipe := v1.Group("/recipe", auth)
	{
		recipes := recipe.Group("/recipes")
		recipes.GET("", h.Recipe.ListRecipes)
		recipes.POST("", h.Recipe.CreateRecipe)
		recipes.GET("/:id", h.Recipe.GetRecipe)
		recipes.PUT("/:id", h.Recipe.ReplaceRecipe)
		recipes.PATCH("/:id", h.Recipe.UpdateRecipe)
		recipes.DELETE("/:id", h.Recipe.DeleteRecipe)
		recipes.POST("/:id/upload-image",
			limit(opts.UploadLimiter, "upload", middleware.KeyByUser, opts.Log), h.Recipe.UploadImage)

		registerAttributeRoutes(recipe.Group("/tags"), h.Tag)
		registerAttributeRoutes(recipe.Group("/ingredients"), h.Ingredient)
	}

	admin := v1.Group("/admin", auth, middleware.RequireRole(opts.Authorizer, opts.Log))
	{
		admin.GET("/users", h.Admin.ListUsers)
		admin.POST("/users", h.Admin.CreateUser)
		admin.GET("/users/:id", h.Admin.GetUser)
		admin.PATCH("/users/:id", h.Admin.UpdateUser)
		admin.DELETE("/users/:id", h.Admin.DeleteUser)
	}

	return router
}

func registerAttributeRoutes(group *gin.RouterGroup, h *api.AttributeHandler) {
	group.GET("", h.List)
	group.PUT("/:id", h.Update)
	group.PATCH("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

// limit returns a rate limiting middleware, or a pass-through when no limiter is configured
func limit(limiter middleware.Limiter, scope string, key middleware.KeyFunc, log *logrus.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(limiter, scope, key, log)
}
