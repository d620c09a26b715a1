package types

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/pageza/recipe-app-api/backend/internal/models"
)

// AttributeRequest names a tag or ingredient
type AttributeRequest struct {
	Name string `json:"name" binding:"required,notblank,max=255"`
}

// AttributeResponse is the wire form of a tag or ingredient
type AttributeResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// RecipeRequest is used for create, replace and partial update.
// Nil fields are absent from the payload.
type RecipeRequest struct {
	Title       *string             `json:"title" binding:"omitempty,notblank,max=255"`
	TimeMinutes *int                `json:"time_minutes" binding:"omitempty,min=0"`
	Price       *models.Price       `json:"price"`
	Description *string             `json:"description"`
	Link        *string             `json:"link" binding:"omitempty,max=255"`
	Tags        *[]AttributeRequest `json:"tags" binding:"omitempty,dive"`
	Ingredients *[]AttributeRequest `json:"ingredients" binding:"omitempty,dive"`

	// nulls lists fields sent as an explicit JSON null
	nulls []string
}

// UnmarshalJSON decodes the request and records explicit nulls, which
// would otherwise be indistinguishable from absent fields.
func (r *RecipeRequest) UnmarshalJSON(data []byte) error {
	type plain RecipeRequest
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded.nulls = nil
	for key, value := range raw {
		if nullableField(key) && string(value) == "null" {
			decoded.nulls = append(decoded.nulls, key)
		}
	}
	sort.Strings(decoded.nulls)

	*r = RecipeRequest(decoded)
	return nil
}

func nullableField(key string) bool {
	switch key {
	case "title", "time_minutes", "price", "description", "link", "tags", "ingredients":
		return true
	}
	return false
}

// Validate applies the rules struct tags cannot express. full is true for
// create and PUT, where the required scalar fields must be present.
func (r RecipeRequest) Validate(full bool) map[string]string {
	errs := map[string]string{}
	if full {
		if r.Title == nil {
			errs["title"] = "This field is required."
		}
		if r.TimeMinutes == nil {
			errs["time_minutes"] = "This field is required."
		}
		if r.Price == nil {
			errs["price"] = "This field is required."
		}
	}
	for _, field := range r.nulls {
		errs[field] = "This field may not be null."
	}
	if r.Link != nil && *r.Link != "" {
		if u, err := url.ParseRequestURI(*r.Link); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs["link"] = "Enter a valid URL."
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Names returns the trimmed names of attrs
func Names(attrs []AttributeRequest) []string {
	names := make([]string, 0, len(attrs))
	for _, a := range attrs {
		names = append(names, strings.TrimSpace(a.Name))
	}
	return names
}

// RecipeResponse is the list representation of a recipe
type RecipeResponse struct {
	ID          uint                `json:"id"`
	Title       string              `json:"title"`
	TimeMinutes int                 `json:"time_minutes"`
	Price       models.Price        `json:"price"`
	Link        string              `json:"link"`
	Tags        []AttributeResponse `json:"tags"`
	Ingredients []AttributeResponse `json:"ingredients"`
}

// RecipeDetailResponse adds the fields only shown for a single recipe
type RecipeDetailResponse struct {
	RecipeResponse
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

// RecipeImageResponse is returned by the image upload endpoint
type RecipeImageResponse struct {
	ID    uint   `json:"id"`
	Image string `json:"image"`
}

// NewRecipeResponse converts a recipe with its tags and ingredients loaded
func NewRecipeResponse(r *models.Recipe) RecipeResponse {
	resp := RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        make([]AttributeResponse, 0, len(r.Tags)),
		Ingredients: make([]AttributeResponse, 0, len(r.Ingredients)),
	}
	for _, t := range r.Tags {
		resp.Tags = append(resp.Tags, AttributeResponse{ID: t.ID, Name: t.Name})
	}
	for _, i := range r.Ingredients {
		resp.Ingredients = append(resp.Ingredients, AttributeResponse{ID: i.ID, Name: i.Name})
	}
	return resp
}

// NewRecipeDetailResponse converts a recipe; imageURL is the resolved image location, if any
func NewRecipeDetailResponse(r *models.Recipe, imageURL *string) RecipeDetailResponse {
	return RecipeDetailResponse{
		RecipeResponse: NewRecipeResponse(r),
		Description:    r.Description,
		Image:          imageURL,
	}
}

// NewAttributeResponses converts tags or ingredients read through the shared shape
func NewAttributeResponses(attrs []models.Attribute) []AttributeResponse {
	out := make([]AttributeResponse, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, AttributeResponse{ID: a.ID, Name: a.Name})
	}
	return out
}
