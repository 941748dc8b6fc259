package handler

import (
	"net/http"
	"strconv"

	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the /admin endpoints. Routes are mounted behind the
// admin role check.
type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// SetRoleRequest is the body of PUT /admin/users/:id/role.
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListUsers returns one page of users, ?page= (1-based) and ?size=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	users, err := h.adminService.ListUsers(c.Request.Context(), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", users)
}

func (h *AdminHandler) SetUserRole(c *gin.Context) {
	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "role is required")
		return
	}
	actor := currentUser(c)
	user, err := h.adminService.SetUserRole(c.Request.Context(), actor, c.Param("id"), req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	if actor != nil {
		log.Infof("[AdminHandler] %s set role of %s to %s", actor.Email, user.ID, user.Role)
	}
	success(c, http.StatusOK, "Role updated successfully", user)
}

// Conversations lists recent conversations of all users, or of ?userId=.
func (h *AdminHandler) Conversations(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRecentLimit)))
	if err != nil || limit <= 0 {
		limit = defaultRecentLimit
	}
	conversations, err := h.adminService.RecentConversations(c.Request.Context(), c.Query("userId"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "success", conversations)
}
