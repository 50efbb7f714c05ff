package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cas-gradtrack/gradtrack/internal/middleware"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg services.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// useMailer swaps the package mailer for the duration of the test.
func useMailer(t *testing.T) *mockMailer {
	t.Helper()

	mailer := new(mockMailer)
	services.SetMailer(mailer)
	t.Cleanup(func() { services.SetMailer(services.LogMailer{}) })

	return mailer
}

func setupHandlerTest(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	testutil.SetupTestDB(t)

	return gin.New()
}

// authed is the handler chain prefix for routes behind the token check.
func authed(roles ...string) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{middleware.AuthMiddleware()}
	if len(roles) > 0 {
		chain = append(chain, middleware.RequireRole(roles...))
	}
	return chain
}

func route(r *gin.Engine, method, path string, handler gin.HandlerFunc, roles ...string) {
	r.Handle(method, path, append(authed(roles...), handler)...)
}

func performRequest(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())

	return body
}
