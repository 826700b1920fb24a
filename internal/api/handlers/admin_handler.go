package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobsphere/internal/services"
	"github.com/yoockh/jobsphere/internal/utils"
)

type AdminHandler struct {
	admin    services.AdminService
	jobs     services.JobService
	apps     services.ApplicationService
	contacts services.ContactService
}

func NewAdminHandler(admin services.AdminService, jobs services.JobService, apps services.ApplicationService, contacts services.ContactService) *AdminHandler {
	return &AdminHandler{admin: admin, jobs: jobs, apps: apps, contacts: contacts}
}

func (h *AdminHandler) Overview(c *gin.Context) {
	o, err := h.admin.Overview(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var in services.AdminUserUpdate
	if !bindJSON(c, "AdminHandler.UpdateUser", &in) {
		return
	}
	u, err := h.admin.UpdateUser(c.Request.Context(), actor.UserID, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), actor.UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *AdminHandler) Jobs(c *gin.Context) {
	jobs, err := h.jobs.AdminList(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *AdminHandler) UpdateJob(c *gin.Context) {
	const op = "AdminHandler.UpdateJob"

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req struct {
		IsApproved *bool `json:"isApproved"`
	}
	if !bindJSON(c, op, &req) {
		return
	}
	if req.IsApproved == nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "isApproved must be a boolean", nil))
		return
	}
	j, err := h.jobs.SetApproval(c.Request.Context(), actor, c.Param("id"), *req.IsApproved)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": j})
}

func (h *AdminHandler) DeleteJob(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job deleted"})
}

func (h *AdminHandler) Applications(c *gin.Context) {
	apps, err := h.apps.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *AdminHandler) Audit(c *gin.Context) {
	events, err := h.admin.AuditLog(c.Request.Context(), queryLimit(c, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *AdminHandler) ContactMessages(c *gin.Context) {
	msgs, err := h.contacts.List(c.Request.Context(), int64(queryLimit(c, 100)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
