package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// AttributeHandler serves tags or ingredients, depending on its service
type AttributeHandler struct {
	attributeService service.IAttributeService
}

func NewAttributeHandler(attributeService service.IAttributeService) *AttributeHandler {
	return &AttributeHandler{attributeService: attributeService}
}

// List returns the user's rows; ?assigned_only=1 limits them to rows used by a recipe
func (h *AttributeHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	assignedOnly := false
	if raw := c.Query("assigned_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			validationFailed(c, map[string]string{"assigned_only": "Must be 0 or 1."})
			return
		}
		assignedOnly = v
	}

	attrs, err := h.attributeService.List(c.Request.Context(), userID, assignedOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.NewAttributeResponses(attrs))
}

// Update renames a row. PUT and PATCH both require the name.
func (h *AttributeHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req types.AttributeRequest
	if !bindJSON(c, &req) {
		return
	}

	attr, err := h.attributeService.Update(c.Request.Context(), userID, id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.AttributeResponse{ID: attr.ID, Name: attr.Name})
}

func (h *AttributeHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.attributeService.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
