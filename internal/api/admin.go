package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/recipe-app-api/backend/internal/middleware"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

// AdminHandler serves user management for staff
type AdminHandler struct {
	adminService service.IAdminService
}

func NewAdminHandler(adminService service.IAdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]types.AdminUserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, types.NewAdminUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.adminService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.NewAdminUserResponse(user))
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req types.AdminCreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if (req.IsStaff || req.IsSuperuser) && !actingSuperuser(c) {
		forbidden(c)
		return
	}

	user, err := h.adminService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.NewAdminUserResponse(user))
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req types.AdminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if !actingSuperuser(c) {
		if req.IsStaff != nil || req.IsSuperuser != nil {
			forbidden(c)
			return
		}
		target, err := h.adminService.GetUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if target.IsSuperuser {
			forbidden(c)
			return
		}
	}

	user, err := h.adminService.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.NewAdminUserResponse(user))
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Role flags and superuser accounts are only managed by superusers.
func actingSuperuser(c *gin.Context) bool {
	user, ok := middleware.GetUser(c)
	return ok && user.IsSuperuser
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this action"})
}
