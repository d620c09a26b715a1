package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// multipartOverhead allows for form boundaries and headers around the file
const multipartOverhead = 1 << 20

// UploadImage replaces a recipe's image with the multipart "image" file
func (h *RecipeHandler) UploadImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			validationFailed(c, map[string]string{"image": "image exceeds the maximum upload size"})
		case errors.Is(err, http.ErrMissingFile):
			validationFailed(c, map[string]string{"image": "No file was submitted."})
		default:
			validationFailed(c, map[string]string{"image": "The submitted data was not a file."})
		}
		return
	}

	file, err := header.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer file.Close()

	recipe, err := h.recipeService.UploadImage(c.Request.Context(), userID, id, header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}

	image, err := h.imageURL(c, recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := types.RecipeImageResponse{ID: recipe.ID}
	if image != nil {
		resp.Image = *image
	}
	c.JSON(http.StatusOK, resp)
}

// imageURL resolves the recipe's stored image to an absolute URL
func (h *RecipeHandler) imageURL(c *gin.Context, recipe *models.Recipe) (*string, error) {
	if recipe.Image == nil || *recipe.Image == "" || h.imageService == nil {
		return nil, nil
	}
	url, err := h.imageService.URL(c.Request.Context(), *recipe.Image)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(url, "/") {
		scheme := "http"
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		url = scheme + "://" + c.Request.Host + url
	}
	return &url, nil
}
