package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/services"
	"github.com/yoockh/jobsphere/internal/utils"
)

type JobHandler struct {
	jobs services.JobService
	apps services.ApplicationService
}

func NewJobHandler(jobs services.JobService, apps services.ApplicationService) *JobHandler {
	return &JobHandler{jobs: jobs, apps: apps}
}

func (h *JobHandler) Search(c *gin.Context) {
	var f models.JobFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "JobHandler.Search", "invalid query", err))
		return
	}
	jobs, err := h.jobs.Search(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *JobHandler) Get(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": j})
}

func (h *JobHandler) Mine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	jobs, err := h.jobs.Mine(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *JobHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var in services.JobInput
	if !bindJSON(c, "JobHandler.Create", &in) {
		return
	}
	j, err := h.jobs.Create(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job": j})
}

func (h *JobHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var in services.JobPatch
	if !bindJSON(c, "JobHandler.Update", &in) {
		return
	}
	j, err := h.jobs.Update(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": j})
}

func (h *JobHandler) Approve(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	j, err := h.jobs.SetApproval(c.Request.Context(), actor, c.Param("id"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": j})
}

func (h *JobHandler) Delete(c *gin.Context) {
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

func (h *JobHandler) Apply(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var body struct {
		CoverLetter *string `json:"coverLetter"`
	}
	// the body is optional
	if c.Request.ContentLength > 0 && !bindJSON(c, "JobHandler.Apply", &body) {
		return
	}
	a, err := h.apps.Apply(c.Request.Context(), userID, services.ApplyInput{JobID: c.Param("id"), CoverLetter: body.CoverLetter})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": a})
}
