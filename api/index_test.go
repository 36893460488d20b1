package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"content-planner-backend/pkg/auth"
	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/handlers"
	"content-planner-backend/pkg/middleware"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	deps   Deps
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.NewLocalDatabase(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		Environment:          "test",
		UseLocalDB:           true,
		JWTSecret:            "api-test-secret",
		AllowedOrigins:       []string{"*"},
		RequestTimeout:       5 * time.Second,
		WorkspaceIdleTimeout: time.Minute,
	}
	workspaces := NewWorkspaceCache(cfg, db)
	t.Cleanup(workspaces.Close)

	deps := Deps{
		Config:     cfg,
		Logger:     zerolog.Nop(),
		DB:         db,
		Provider:   auth.NewProvider(cfg, db),
		Verifier:   auth.VerifierFor(cfg),
		Workspaces: workspaces,
	}
	return &testServer{deps: deps, router: NewRouter(deps)}
}

func (s *testServer) call(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(handlers.ViewIDHeader, "tab-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestRouterEndToEnd(t *testing.T) {
	s := newTestServer(t)

	code, env := s.call(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "writer@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, code)
	var session struct {
		models.Session
		RedirectTo string `json:"redirect_to"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.AccessToken)
	assert.Equal(t, auth.DefaultRedirect, session.RedirectTo)
	token := session.AccessToken

	code, _ = s.call(t, http.MethodGet, "/api/ideas", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.call(t, http.MethodPost, "/api/ideas", token, map[string]interface{}{
		"title": "First idea", "content_type": "thread", "tags": []string{"launch"},
	})
	require.Equal(t, http.StatusCreated, code)
	var idea models.Idea
	require.NoError(t, json.Unmarshal(env.Data, &idea))
	assert.Equal(t, session.User.ID, idea.UserID)

	code, env = s.call(t, http.MethodGet, "/api/ideas/", token, nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.Idea
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)

	code, _ = s.call(t, http.MethodPost, "/api/ideas/"+idea.ID+"/favorite", token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.call(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"ideas_captured":1`)

	assert.Equal(t, 1, s.deps.Workspaces.Len())
	code, _ = s.call(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, s.deps.Workspaces.Len(), "logout drops the user's workspace")
}

func TestRouterLoginAndRefresh(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"email": "a@example.com", "password": "secret123", "redirectTo": "/ideas"}

	code, _ := s.call(t, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, code)

	code, env := s.call(t, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, code)
	var session struct {
		models.Session
		RedirectTo string `json:"redirect_to"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "/ideas", session.RedirectTo)

	code, env = s.call(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@example.com", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid login credentials", env.Error.Message)

	code, _ = s.call(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": session.RefreshToken})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.call(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": session.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, code)

	// 刷新令牌不能当访问令牌用
	code, _ = s.call(t, http.MethodGet, "/api/ideas", session.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouterPasswordReset(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.call(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "r@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, code)

	code, env := s.call(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "r@example.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), handlers.MsgResetSent)

	code, env = s.call(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, code, "unknown addresses look the same")
	assert.Contains(t, string(env.Data), handlers.MsgResetSent)

	code, _ = s.call(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": ""})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.call(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func (s *testServer) callback(t *testing.T, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	return rec
}

func TestRouterAuthCallback(t *testing.T) {
	s := newTestServer(t)
	code, env := s.call(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "cb@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, code)
	var session models.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))

	rec := s.callback(t, url.Values{})
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	rec = s.callback(t, url.Values{"code": {"bogus"}})
	assert.Equal(t, "/auth/login?error=Authentication%20failed", rec.Header().Get("Location"))

	rec = s.callback(t, url.Values{"code": {session.AccessToken}})
	assert.Equal(t, "/auth/login?error=Authentication%20failed", rec.Header().Get("Location"), "an access token is not a session code")

	sessionCode, err := utils.NewJWTService(s.deps.Config.JWTSecret).GenerateSessionCode(session.User.ID, session.User.Email)
	require.NoError(t, err)
	rec = s.callback(t, url.Values{"code": {sessionCode}, "next": {"/auth/update-password"}})
	assert.Equal(t, "/auth/update-password", rec.Header().Get("Location"))

	var access *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AccessTokenCookie {
			access = c
		}
	}
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)

	// the cookie alone authenticates API calls
	req := httptest.NewRequest(http.MethodGet, "/api/ideas", nil)
	req.AddCookie(&http.Cookie{Name: access.Name, Value: access.Value})
	apiRec := httptest.NewRecorder()
	s.router.ServeHTTP(apiRec, req)
	assert.Equal(t, http.StatusOK, apiRec.Code, apiRec.Body.String())

	rec = s.callback(t, url.Values{"code": {sessionCode}, "next": {"https://evil.example"}})
	assert.Equal(t, auth.DefaultRedirect, rec.Header().Get("Location"))
}

func TestRouterFallbacks(t *testing.T) {
	s := newTestServer(t)

	code, env := s.call(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	code, env = s.call(t, http.MethodDelete, "/api/content-types", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Code)

	code, env = s.call(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"database":"local"`)
}

func TestWorkspacesForRebindsOnNewStore(t *testing.T) {
	cfg := &config.Config{WorkspaceIdleTimeout: time.Minute}
	a, err := database.NewLocalDatabase(filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer a.Close()
	b, err := database.NewLocalDatabase(filepath.Join(t.TempDir(), "b.db"))
	require.NoError(t, err)
	defer b.Close()

	first := workspacesFor(cfg, a)
	assert.Same(t, first, workspacesFor(cfg, a))

	ws := first.Get("u1", "tab-1")
	second := workspacesFor(cfg, b)
	assert.NotSame(t, first, second)
	assert.True(t, ws.Collection().Disposed())
	second.Close()
}
