package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobsphere/internal/api/middleware"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/services"
	"github.com/yoockh/jobsphere/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get(middleware.CtxUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

// requireActor reads the authenticated user and role set by JWTAuth.
func requireActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	raw, _ := c.Get(middleware.CtxRole)
	s, _ := raw.(string)
	role, err := models.ParseRole(s)
	if err != nil {
		writeError(c, utils.E(utils.CodeForbidden, "Auth", "forbidden", err))
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Role: role}, true
}

func bindJSON(c *gin.Context, op string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return false
	}
	return true
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
