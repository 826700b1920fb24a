package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/jobsphere/internal/api/handlers"
	"github.com/yoockh/jobsphere/internal/api/middleware"
	"github.com/yoockh/jobsphere/internal/auth"
	"github.com/yoockh/jobsphere/internal/mail"
	"github.com/yoockh/jobsphere/internal/repositories/memory"
	"github.com/yoockh/jobsphere/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

const adminEmail = "admin@jobsphere.test"

type mailbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (m *mailbox) Dispatch(_ context.Context, msg mail.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
}

func (m *mailbox) Send(ctx context.Context, msg mail.Message) error {
	m.Dispatch(ctx, msg)
	return nil
}

var sixDigits = regexp.MustCompile(`>(\d{6})<`)

func (m *mailbox) code(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].To == to {
			if got := sixDigits.FindStringSubmatch(m.msgs[i].HTML); len(got) == 2 {
				return got[1]
			}
		}
	}
	t.Fatalf("no code for %s", to)
	return ""
}

type server struct {
	t    *testing.T
	h    http.Handler
	mail *mailbox
}

func newServer(t *testing.T) *server {
	t.Helper()
	log, _ := test.NewNullLogger()
	box := &mailbox{}
	sessions := auth.NewSessionIssuer("routes-secret", time.Hour)
	d := services.Deps{
		Store:    memory.New(),
		Sessions: sessions,
		Outbox:   box,
		Sender:   box,
		Policy:   services.Policy{AdminEmail: adminEmail},
		Logger:   log,
	}
	accounts := services.NewAccountService(d)
	require.NoError(t, accounts.EnsurePrimaryAdmin(context.Background(), "Admin", "admin-pass"))
	jobs := services.NewJobService(d)
	apps := services.NewApplicationService(d)
	contacts := services.NewContactService(d, "")

	r := gin.New()
	RegisterRoutes(r, Deps{
		Sessions:     sessions,
		Limiter:      middleware.NewRateLimiter(1000, 1000, log),
		Auth:         handlers.NewAuthHandler(accounts),
		Me:           handlers.NewMeHandler(accounts),
		Jobs:         handlers.NewJobHandler(jobs, apps),
		Applications: handlers.NewApplicationHandler(apps),
		Admin:        handlers.NewAdminHandler(services.NewAdminService(d), jobs, apps, contacts),
		Contact:      handlers.NewContactHandler(contacts),
	})
	return &server{t: t, h: r, mail: box}
}

func (s *server) call(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *server) serve(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (s *server) login(email, password string) string {
	s.t.Helper()
	w, out := s.call(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return out["token"].(string)
}

func userID(t *testing.T, out map[string]any) string {
	t.Helper()
	u, ok := out["user"].(map[string]any)
	require.True(t, ok)
	return u["id"].(string)
}

// activate verifies and approves an account through the API.
func (s *server) activate(adminToken, email string) {
	s.t.Helper()
	w, out := s.call(http.MethodPost, "/api/auth/verify-email", "", gin.H{"email": email, "code": s.mail.code(s.t, email)})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	w, _ = s.call(http.MethodPatch, "/api/admin/users/"+userID(s.t, out), adminToken, gin.H{"isApproved": true})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
}

func TestMarketplaceFlow(t *testing.T) {
	s := newServer(t)
	admin := s.login(adminEmail, "admin-pass")

	w, _ := s.call(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, out := s.call(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Acme HR", "email": "hr@acme.io", "password": "secret1", "role": "COMPANY", "companyName": "Acme",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, out["needsVerification"])

	w, out = s.call(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Jane", "email": "jane@example.com", "password": "secret1", "role": "student",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, out = s.call(http.MethodPost, "/api/auth/login", "", gin.H{"email": "jane@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", out["code"])

	s.activate(admin, "hr@acme.io")
	s.activate(admin, "jane@example.com")
	company := s.login("hr@acme.io", "secret1")
	student := s.login("JANE@example.com", "secret1")

	w, _ = s.call(http.MethodPost, "/api/jobs", student, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, out = s.call(http.MethodPost, "/api/jobs", company, gin.H{
		"title": "Go Intern", "type": "INTERNSHIP", "location": "Remote", "description": "Write Go",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	jobID := out["job"].(map[string]any)["id"].(string)

	w, out = s.call(http.MethodGet, "/api/jobs?type=internship&location=remote", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["jobs"], 1)

	w, _ = s.call(http.MethodGet, "/api/jobs/"+jobID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.call(http.MethodPost, "/api/jobs/"+jobID+"/apply", student, gin.H{"coverLetter": "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, out = s.call(http.MethodPost, "/api/jobs/"+jobID+"/apply", student, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", out["code"])

	w, out = s.call(http.MethodGet, "/api/jobs/mine", company, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := out["jobs"].([]any)
	require.Len(t, mine, 1)
	assert.EqualValues(t, 1, mine[0].(map[string]any)["application_count"])

	w, out = s.call(http.MethodGet, "/api/company/applications", company, nil)
	require.Equal(t, http.StatusOK, w.Code)
	appID := out["applications"].([]any)[0].(map[string]any)["id"].(string)

	w, out = s.call(http.MethodPatch, "/api/applications/"+appID+"/status", company, gin.H{"status": "reviewed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "reviewed", out["application"].(map[string]any)["status"])

	w, out = s.call(http.MethodGet, "/api/student/applications", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["applications"], 1)

	w, _ = s.call(http.MethodGet, "/api/admin/overview", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, out = s.call(http.MethodGet, "/api/admin/overview", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, out["users"])
	assert.EqualValues(t, 1, out["applications"])

	w, out = s.call(http.MethodPatch, "/api/admin/jobs/"+jobID, admin, gin.H{"isApproved": "yes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.call(http.MethodPatch, "/api/admin/jobs/"+jobID, admin, gin.H{"isApproved": false})
	require.Equal(t, http.StatusOK, w.Code)

	w, out = s.call(http.MethodGet, "/api/jobs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, out["jobs"])
	w, _ = s.call(http.MethodGet, "/api/jobs/"+jobID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.call(http.MethodPatch, "/api/jobs/"+jobID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, out = s.call(http.MethodGet, "/api/admin/audit", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, out["events"])

	w, _ = s.call(http.MethodDelete, "/api/jobs/"+jobID, company, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, out = s.call(http.MethodGet, "/api/admin/applications", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, out["applications"])
}

func TestProtectedAdminOverHTTP(t *testing.T) {
	s := newServer(t)
	admin := s.login(adminEmail, "admin-pass")

	w, out := s.call(http.MethodGet, "/api/me", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := userID(t, out)

	w, out = s.call(http.MethodPatch, "/api/admin/users/"+id, admin, gin.H{"role": "STUDENT"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", out["code"])

	w, _ = s.call(http.MethodDelete, "/api/admin/users/"+id, admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.call(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterMultipartWithoutStorage(t *testing.T) {
	s := newServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{"name": "Sam", "email": "sam@x.io", "password": "secret1", "role": "STUDENT"} {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("resume", "cv.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4\nbody"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, out := s.serve(req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	assert.Equal(t, "UNAVAILABLE", out["code"])

	// without the file the same form registers
	body.Reset()
	mw = multipart.NewWriter(&body)
	for k, v := range map[string]string{"name": "Sam", "email": "sam@x.io", "password": "secret1", "role": "STUDENT"} {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/auth/register", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, _ = s.serve(req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestContactEndpoint(t *testing.T) {
	s := newServer(t)

	w, _ := s.call(http.MethodPost, "/api/contact", "", gin.H{"name": "V", "email": "v@x.io", "message": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, s.mail.msgs, 2)

	w, out := s.call(http.MethodPost, "/api/contact", "", gin.H{"name": "V", "email": "nope", "message": "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", out["code"])

	w, _ = s.call(http.MethodPost, "/api/auth/resend-verification", "", gin.H{"email": "ghost@x.io"})
	assert.Equal(t, http.StatusOK, w.Code)
}
