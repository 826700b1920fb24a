package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/jobsphere/internal/auth"
	"github.com/yoockh/jobsphere/internal/models"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(issuer *auth.SessionIssuer, roles ...models.Role) *gin.Engine {
	r := gin.New()
	r.GET("/x", JWTAuth(issuer), RequireRole(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(CtxUserID), "role": c.GetString(CtxRole)})
	})
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthAndRole(t *testing.T) {
	issuer := auth.NewSessionIssuer("secret", 0)
	student, err := issuer.Issue(&models.User{ID: "s1", Role: models.RoleStudent})
	require.NoError(t, err)
	company, err := issuer.Issue(&models.User{ID: "c1", Role: models.RoleCompany})
	require.NoError(t, err)

	r := newRouter(issuer, models.RoleStudent)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)
	assert.Equal(t, http.StatusForbidden, do(r, company.Token).Code)

	w := do(r, student.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"s1"`)
}

func TestRateLimiterPerKey(t *testing.T) {
	log, hook := test.NewNullLogger()
	rl := NewRateLimiter(0.001, 2, log)

	r := gin.New()
	r.POST("/auth/login", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "rate limit exceeded", hook.LastEntry().Message)
}

func TestRateLimiterSweepsIdleKeysPeriodically(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rl.limiter("a", start)
	rl.limiter("b", start)
	require.Len(t, rl.limiters, 2)

	// past the idle window but inside the sweep interval: nothing is walked
	rl.lastSweep = start.Add(rl.idle)
	rl.limiter("c", start.Add(rl.idle+time.Minute))
	assert.Len(t, rl.limiters, 3)

	rl.limiter("c", start.Add(rl.idle+rl.idle/2))
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "c")
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://app.example.com"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, http.StatusTeapot, hook.LastEntry().Data["status"])
	assert.Equal(t, "/x", hook.LastEntry().Data["route"])
}
