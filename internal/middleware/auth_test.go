package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/model"
	"artiefy_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": user.UserID(), "role": user.Role})
	})
	r.GET("/private", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.JWTConfig{Secret: testSecret}
	r := newRouter(AuthMiddleware(cfg))

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)

	wrongKey, err := util.GenerateJWT("u1", model.Student, "another-secret-another-secret-xx", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, wrongKey).Code)

	expired, err := util.GenerateJWT("u1", model.Student, testSecret, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, expired).Code)

	// 只接受 HS256
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, unsigned).Code)

	ok, err := util.GenerateJWT("u1", model.Educator, testSecret, time.Hour)
	require.NoError(t, err)
	rec := do(r, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":"u1"`)
	assert.Contains(t, rec.Body.String(), `"role":"educador"`)
}

func TestRoleMiddleware(t *testing.T) {
	cfg := &config.JWTConfig{Secret: testSecret}
	r := newRouter(AuthMiddleware(cfg), RoleMiddleware(model.Educator))

	tests := []struct {
		role model.UserRole
		want int
	}{
		{model.Student, http.StatusForbidden},
		{model.Educator, http.StatusOK},
		{model.Admin, http.StatusOK},
		{model.SuperAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			token, err := util.GenerateJWT("u1", tt.role, testSecret, time.Hour)
			require.NoError(t, err)
			assert.Equal(t, tt.want, do(r, token).Code)
		})
	}
}

type fakeSyncRepo struct {
	mu    sync.Mutex
	users []model.User
	done  chan struct{}
}

func (f *fakeSyncRepo) Sync(user *model.User) error {
	f.mu.Lock()
	f.users = append(f.users, *user)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func TestActivityMiddlewareSyncsUser(t *testing.T) {
	repo := &fakeSyncRepo{done: make(chan struct{}, 1)}
	r := newRouter(AuthMiddleware(&config.JWTConfig{Secret: testSecret}), ActivityMiddleware(repo))

	token, err := util.GenerateJWT("u9", model.Student, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(r, token).Code)

	select {
	case <-repo.done:
	case <-time.After(2 * time.Second):
		t.Fatal("user was not synced")
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.users, 1)
	assert.Equal(t, "u9", repo.users[0].ID)
	assert.Equal(t, model.Student, repo.users[0].Role)
}

func TestRequestIDPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}
