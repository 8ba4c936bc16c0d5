package userservice

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/user-service/internal/cache"
	"github.com/magabrotheeeer/user-service/internal/config"
	"github.com/magabrotheeeer/user-service/internal/lib/jwt"
	"github.com/magabrotheeeer/user-service/internal/lib/query"
	"github.com/magabrotheeeer/user-service/internal/metrics"
	"github.com/magabrotheeeer/user-service/internal/models"
	authservice "github.com/magabrotheeeer/user-service/internal/services/auth"
	usersservice "github.com/magabrotheeeer/user-service/internal/services/users"
	"github.com/magabrotheeeer/user-service/internal/storage"
)

// memoryRepo хранилище пользователей в памяти.
type memoryRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*models.User)}
}

func (r *memoryRepo) Ping(context.Context) error { return nil }

func (r *memoryRepo) CreateUser(_ context.Context, in models.NewUser) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == in.Email {
			return nil, storage.ErrUserExists
		}
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now(),
	}
	r.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *memoryRepo) find(match func(u *models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if !u.IsDeleted && match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (r *memoryRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *memoryRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *memoryRepo) GetUserByResetToken(_ context.Context, hash string, now time.Time) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == hash &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
	})
}

func (r *memoryRepo) update(id string, fn func(u *models.User)) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.IsDeleted {
		return nil, storage.ErrUserNotFound
	}
	fn(u)
	u.Version++
	cp := *u
	return &cp, nil
}

func (r *memoryRepo) SetPasswordResetToken(_ context.Context, id, hash string, expires time.Time) error {
	_, err := r.update(id, func(u *models.User) {
		u.PasswordResetToken = &hash
		u.PasswordResetExpires = &expires
	})
	return err
}

func (r *memoryRepo) UpdatePassword(_ context.Context, id, hash string, changedAt time.Time) error {
	_, err := r.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.PasswordChangedAt = &changedAt
		u.PasswordResetToken = nil
		u.PasswordResetExpires = nil
	})
	return err
}

func (r *memoryRepo) UpdateProfile(_ context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	return r.update(id, func(u *models.User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Email != nil {
			u.Email = *upd.Email
		}
	})
}

func (r *memoryRepo) SoftDeleteUser(_ context.Context, id string) (*models.User, error) {
	return r.update(id, func(u *models.User) { u.IsDeleted = true })
}

func (r *memoryRepo) ListUsers(context.Context, query.Query) ([]map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]map[string]any, 0, len(r.users))
	for _, u := range r.users {
		if u.IsDeleted {
			continue
		}
		rows = append(rows, map[string]any{"id": u.ID, "name": u.Name, "email": u.Email, "role": u.Role})
	}
	return rows, nil
}

type mailbox struct {
	mu   sync.Mutex
	urls map[string]string
}

func (m *mailbox) SendPasswordReset(to, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls[to] = resetURL
	return nil
}

type testApp struct {
	router http.Handler
	repo   *memoryRepo
	mail   *mailbox
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	userCache, err := cache.InitServer(context.Background(), config.RedisConnection{
		AddressRedis: mr.Addr(),
		CacheTTL:     time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = userCache.Close() })

	cfg := &config.Config{}
	cfg.BodyLimit = 10 * 1024
	cfg.Cookie = config.Cookie{ExpiresInDays: 90}
	cfg.PasswordReset = config.PasswordReset{FrontendURL: "http://front.test/reset", ExposeToken: true}

	repo := newMemoryRepo()
	mail := &mailbox{urls: make(map[string]string)}
	jwtMaker := jwt.NewJWTMaker("routes-test-secret", time.Hour)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, Deps{
		Auth:    authservice.NewAuthService(logger, repo, userCache, jwtMaker, mail, cfg.PasswordReset.FrontendURL),
		Users:   usersservice.NewUsersService(logger, repo, userCache),
		DB:      repo,
		Metrics: metrics.New(prometheus.NewRegistry()),
	})
	return &testApp{router: router, repo: repo, mail: mail}
}

func (a *testApp) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/user/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	t.Fatal("login response has no token cookie")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPasswordResetFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/user/auth/signup",
		`{"name":"  Alice ","email":"Alice@Example.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cookie := app.login(t, "alice@example.com", "secret1")
	assert.True(t, cookie.HttpOnly)

	rec = app.do(t, http.MethodGet, "/api/user/getMe", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "alice", me["name"])
	assert.Equal(t, "alice@example.com", me["email"])
	assert.Equal(t, "user", me["role"])
	assert.NotContains(t, me, "password")

	rec = app.do(t, http.MethodPost, "/api/user/auth/forgotPassword", `{"email":"alice@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token_for_test"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "http://front.test/reset/"+token, app.mail.urls["alice@example.com"])

	rec = app.do(t, http.MethodPatch, "/api/user/auth/resetPassword/"+token, `{"password":"newsecret"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPatch, "/api/user/auth/resetPassword/"+token, `{"password":"another1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/user/auth/login", `{"email":"alice@example.com","password":"secret1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	fresh := app.login(t, "alice@example.com", "newsecret")
	rec = app.do(t, http.MethodGet, "/api/user/getMe", "", fresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)

	for _, body := range []string{
		`{"name":"root","email":"root@example.com","password":"secret1","role":"admin"}`,
		`{"name":"bob","email":"bob@example.com","password":"secret1"}`,
	} {
		rec := app.do(t, http.MethodPost, "/api/user/auth/signup", body, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	admin := app.login(t, "root@example.com", "secret1")
	user := app.login(t, "bob@example.com", "secret1")

	rec := app.do(t, http.MethodGet, "/api/user/", "", user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have permission", decode(t, rec)["message"])

	rec = app.do(t, http.MethodGet, "/api/user/", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode(t, rec)["users"].([]any)
	assert.Len(t, users, 2)

	bob, err := app.repo.GetUserByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)

	rec = app.do(t, http.MethodPatch, "/api/user/"+bob.ID, `{"name":"Robert"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "robert", decode(t, rec)["user"].(map[string]any)["name"])

	rec = app.do(t, http.MethodDelete, "/api/user/"+bob.ID, "", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/user/"+bob.ID, "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/user/getMe", "", user)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedRouteWithoutCookie(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/user/getMe", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", decode(t, rec)["status"])
}

func TestSignupRejectsOverlongPassword(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/user/auth/signup",
		`{"name":"carol","email":"carol@example.com","password":"`+strings.Repeat("x", 80)+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fail", decode(t, rec)["status"])
	assert.Equal(t, authservice.MsgPasswordTooLong, decode(t, rec)["message"])
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Can't find /api/nothing on this server!", decode(t, rec)["message"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}

func TestOpsRoutes(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_service_http_requests_total")
}
