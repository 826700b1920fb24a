package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/jobsphere/internal/api/middleware"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

func decode(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var out APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   utils.Code
		msg    string
	}{
		{"app error", utils.E(utils.CodeConflict, "op", "already applied", errors.New("dup")), http.StatusConflict, utils.CodeConflict, "already applied"},
		{"rate limited", utils.E(utils.CodeTooManyRequests, "op", "slow down", nil), http.StatusTooManyRequests, utils.CodeTooManyRequests, "slow down"},
		{"plain error hides detail", errors.New("pq: connection refused"), http.StatusInternalServerError, utils.CodeInternal, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			got := decode(t, w)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.msg, got.Message)
		})
	}
}

func TestRequireActor(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, ok := requireActor(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, "u1")
	c.Set(middleware.CtxRole, "company")
	actor, ok := requireActor(c)
	require.True(t, ok)
	assert.Equal(t, "u1", actor.UserID)
	assert.Equal(t, models.RoleCompany, actor.Role)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, "u1")
	c.Set(middleware.CtxRole, "janitor")
	_, ok = requireActor(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQueryLimit(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x?limit=25", nil)
	assert.Equal(t, 25, queryLimit(c, 100))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request =httptest.NewRequest(http.MethodGet, "/x?limit=-3", nil)
	assert.Equal(t, 100, queryLimit(c, 100))
}

func TestRegisterRejectsBrokenMultipart(t *testing.T) {
	r := gin.New()
	r.POST("/register", NewAuthHandler(nil).Register)

	// the resume part is cut off before its closing boundary
	body := "--B\r\nContent-Disposition: form-data; name=\"email\"\r\n\r\njane@x.io\r\n" +
		"--B\r\nContent-Disposition: form-data; name=\"resume\"; filename=\"cv.pdf\"\r\n" +
		"Content-Type: application/pdf\r\n\r\n%PDF-1.4 truncated"
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=B")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeInvalidArgument, decode(t, w).Code)
}
