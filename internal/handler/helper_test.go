package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fusecpt/ats/internal/auth"
	"github.com/fusecpt/ats/internal/config"
	"github.com/fusecpt/ats/internal/handler"
	"github.com/fusecpt/ats/internal/middleware"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/service"
	"github.com/fusecpt/ats/internal/storage"
)

const testPassword = "correct-horse"

type fakeMail struct {
	mu       sync.Mutex
	payloads []model.MailTaskPayload
}

func (f *fakeMail) EnqueueMail(_ context.Context, p *model.MailTaskPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, *p)
	return nil
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return m.GetPublicURL(key), nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) GetPublicURL(key string) string {
	return "https://files.example.com/" + key
}

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	store   *storage.Store
	issuer  *auth.Issuer
	mail    *fakeMail
	objects *memoryObjects
	users   map[model.Role]*model.User
}

// setupApp wires the same routes as the server against an in-memory database.
// Redis is absent, so rate limits are not enforced.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	store, err := storage.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	issuer := auth.NewIssuer(&config.JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15,
		RefreshTTL:    24,
	})
	mail := &fakeMail{}
	objects := &memoryObjects{objects: make(map[string][]byte)}
	validate := validator.New()

	authService := service.NewAuthService(store, issuer, mail, nil)
	h := &handler.Handlers{
		Auth:       handler.NewAuthHandler(authService, validate, config.CookieConfig{SameSite: "Lax"}, issuer.AccessTTL(), issuer.RefreshTTL()),
		Candidates: handler.NewCandidateHandler(service.NewCandidateService(store, nil, nil), validate),
		Jobs:       handler.NewJobHandler(service.NewJobService(store, objects, nil), validate),
		Users:      handler.NewUserHandler(service.NewUserService(store, mail, nil), validate),
		Uploads:    handler.NewUploadHandler(service.NewUploadService(objects, nil), validate),
	}

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler(nil)})
	handler.RegisterRoutes(app, h, handler.RouteOptions{
		Auth:    middleware.NewAuthMiddleware(issuer),
		Limiter: middleware.NewRateLimiter(nil, nil),
	})

	ta := &testApp{
		app:     app,
		store:   store,
		issuer:  issuer,
		mail:    mail,
		objects: objects,
		users:   make(map[model.Role]*model.User),
	}
	ta.seedUser(t, "u-super", "Sam Super", "sam@example.com", model.RoleSuperAdmin)
	ta.seedUser(t, "u-admin", "Ada Admin", "ada@example.com", model.RoleAdmin)
	ta.seedUser(t, "u-user", "Rita Recruiter", "rita@example.com", model.RoleUser)
	return ta
}

func (ta *testApp) seedUser(t *testing.T, id, name, email string, role model.Role) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{ID: id, Name: name, Email: email, Role: role, PasswordHash: string(hash)}
	require.NoError(t, ta.store.CreateUser(context.Background(), u))
	ta.users[role] = u
}

func (ta *testApp) tokenFor(t *testing.T, role model.Role) string {
	t.Helper()
	token, err := ta.issuer.IssueAccess(ta.users[role])
	require.NoError(t, err)
	return token
}

// do performs a JSON request as a user holding role. An empty role sends no
// credentials.
func (ta *testApp) do(t *testing.T, role model.Role, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+ta.tokenFor(t, role))
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type formFile struct {
	field, name, contentType string
	content                  []byte
}

// doMultipart posts a multipart form as a user holding role.
func (ta *testApp) doMultipart(t *testing.T, role model.Role, path string, fields map[string][]string, files ...formFile) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(name, v))
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		header.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ta.tokenFor(t, role))
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func decodeData(t *testing.T, resp *http.Response, dst interface{}) envelope {
	t.Helper()
	env := decode(t, resp)
	require.True(t, env.Success, "message: %s", env.Message)
	require.NoError(t, json.Unmarshal(env.Data, dst))
	return env
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if strings.EqualFold(c.Name, name) {
			return c.Value
		}
	}
	return ""
}
