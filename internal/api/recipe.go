package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// RecipeHandler handles recipe-related HTTP requests
type RecipeHandler struct {
	recipeService  service.IRecipeService
	imageService   service.IImageService
	maxUploadBytes int64
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(recipeService service.IRecipeService, imageService service.IImageService, maxUploadBytes int64) *RecipeHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultMaxUploadBytes
	}
	return &RecipeHandler{
		recipeService:  recipeService,
		imageService:   imageService,
		maxUploadBytes: maxUploadBytes,
	}
}

// parseIDList parses a comma separated list of ids such as "1,2,3"
func parseIDList(raw string) ([]uint, bool) {
	if raw == "" {
		return nil, true
	}
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 0)
		if err != nil {
			return nil, false
		}
		ids = append(ids, uint(id))
	}
	return ids, true
}

// ListRecipes returns the user's recipes, optionally filtered by tag and ingredient ids
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var filter service.RecipeFilter
	fields := map[string]string{}
	if ids, ok := parseIDList(c.Query("tags")); ok {
		filter.TagIDs = ids
	} else {
		fields["tags"] = "Enter a comma separated list of ids."
	}
	if ids, ok := parseIDList(c.Query("ingredients")); ok {
		filter.IngredientIDs = ids
	} else {
		fields["ingredients"] = "Enter a comma separated list of ids."
	}
	if len(fields) > 0 {
		validationFailed(c, fields)
		return
	}

	recipes, err := h.recipeService.ListRecipes(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		resp = append(resp, types.NewRecipeResponse(&recipes[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetRecipe returns a single recipe in detail form
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondDetail(c, http.StatusOK, recipe)
}

// CreateRecipe creates a recipe owned by the authenticated user
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	if fields := req.Validate(true); fields != nil {
		validationFailed(c, fields)
		return
	}

	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondDetail(c, http.StatusCreated, recipe)
}

// ReplaceRecipe handles PUT, which must carry every required field
func (h *RecipeHandler) ReplaceRecipe(c *gin.Context) {
	h.updateRecipe(c, true)
}

// UpdateRecipe handles PATCH
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	h.updateRecipe(c, false)
}

func (h *RecipeHandler) updateRecipe(c *gin.Context, full bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	if fields := req.Validate(full); fields != nil {
		validationFailed(c, fields)
		return
	}

	recipe, err := h.recipeService.UpdateRecipe(c.Request.Context(), userID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondDetail(c, http.StatusOK, recipe)
}

// DeleteRecipe deletes a recipe
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.recipeService.DeleteRecipe(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) respondDetail(c *gin.Context, status int, recipe *models.Recipe) {
	image, err := h.imageURL(c, recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, types.NewRecipeDetailResponse(recipe, image))
}
