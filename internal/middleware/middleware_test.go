package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/testutil"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/me", AuthMiddleware(), func(ctx *gin.Context) {
		user := ctx.MustGet(types.ContextUserKey).(AuthenticatedUser)
		ctx.JSON(http.StatusOK, gin.H{"id": user.ID, "role": user.Role})
	})
	r.GET("/admin", AuthMiddleware(), RequireRole(types.RoleAdmin), func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})

	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	testutil.SetupTestDB(t)
	r := newRouter()
	user := testutil.CreateUser(t, "Pat", "pat@example.edu", types.RoleGraduated)
	token := testutil.Token(t, user)

	cases := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"malformed header", "Token " + token, "", http.StatusUnauthorized},
		{"invalid token", "Bearer not-a-jwt", "", http.StatusUnauthorized},
		{"bearer token", "Bearer " + token, "", http.StatusOK},
		{"cookie token", "", token, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: tc.cookie})
			}

			assert.Equal(t, tc.status, serve(r, req).Code)
		})
	}
}

func TestAuthMiddleware_DeletedAndInactiveUsers(t *testing.T) {
	testutil.SetupTestDB(t)
	r := newRouter()
	inactive := testutil.CreateUser(t, "Quinn", "quinn@example.edu", types.RoleGraduating)
	deleted := testutil.CreateUser(t, "Rex", "rex@example.edu", types.RoleGraduating)

	inactiveToken, deletedToken := testutil.Token(t, inactive), testutil.Token(t, deleted)
	require.NoError(t, db.DB.Model(&inactive).Update("is_active", false).Error)
	require.NoError(t, db.DB.Unscoped().Delete(&deleted).Error)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+inactiveToken)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+deletedToken)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestRequireRole(t *testing.T) {
	testutil.SetupTestDB(t)
	r := newRouter()
	admin := testutil.CreateUser(t, "Sol", "sol@example.edu", types.RoleAdmin)
	student := testutil.CreateUser(t, "Tam", "tam@example.edu", types.RoleGraduated)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, student))
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, admin))
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)

	standalone := gin.New()
	standalone.GET("/admin", RequireRole(types.RoleAdmin), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusUnauthorized, serve(standalone, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ok", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.GET("/boom", func(ctx *gin.Context) { ctx.Status(http.StatusInternalServerError) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = serve(r, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "req-123", entry.Data["request_id"])
	assert.Equal(t, "/boom", entry.Data["path"])
	assert.Equal(t, http.StatusInternalServerError, entry.Data["status"])
}
