package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// ProfileHandler serves the authenticated user's own account
type ProfileHandler struct {
	profileService service.IProfileService
}

func NewProfileHandler(profileService service.IProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.NewUserResponse(user))
}

// ReplaceProfile handles PUT, which must carry every field
func (h *ProfileHandler) ReplaceProfile(c *gin.Context) {
	h.updateProfile(c, true)
}

// UpdateProfile handles PATCH
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	h.updateProfile(c, false)
}

func (h *ProfileHandler) updateProfile(c *gin.Context, full bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if full {
		if missing := req.MissingForReplace(); len(missing) > 0 {
			fields := make(map[string]string, len(missing))
			for _, f := range missing {
				fields[f] = msgRequired
			}
			validationFailed(c, fields)
			return
		}
	}

	user, err := h.profileService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.NewUserResponse(user))
}
