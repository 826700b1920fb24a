package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobsphere/internal/services"
	"github.com/yoockh/jobsphere/internal/utils"
)

type AuthHandler struct {
	svc services.AccountService
}

func NewAuthHandler(svc services.AccountService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register accepts JSON, or multipart/form-data when a resume file is attached.
func (h *AuthHandler) Register(c *gin.Context) {
	const op = "AuthHandler.Register"

	var in services.RegisterInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if _, err := c.MultipartForm(); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid multipart form", err))
			return
		}
		form := func(k string) string { return c.PostForm(k) }
		in = services.RegisterInput{
			Name:        form("name"),
			Email:       form("email"),
			Password:    form("password"),
			Role:        form("role"),
			Skills:      form("skills"),
			Bio:         form("bio"),
			ResumeURL:   form("resumeUrl"),
			CompanyName: form("companyName"),
			Website:     form("website"),
			Description: form("description"),
		}
		fh, err := c.FormFile("resume")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid resume upload", err))
			return
		default:
			file, err := fh.Open()
			if err != nil {
				writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
				return
			}
			defer file.Close()
			in.Resume = resumeFrom(fh, file)
		}
	} else if !bindJSON(c, op, &in) {
		return
	}

	res, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, "AuthHandler.Login", &req) {
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if !bindJSON(c, "AuthHandler.VerifyEmail", &req) {
		return
	}
	res, err := h.svc.VerifyEmail(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !bindJSON(c, "AuthHandler.ResendVerification", &req) {
		return
	}
	msg, err := h.svc.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func resumeFrom(fh *multipart.FileHeader, f multipart.File) *services.ResumeUpload {
	return &services.ResumeUpload{FileName: fh.Filename, Size: fh.Size, Body: f}
}
