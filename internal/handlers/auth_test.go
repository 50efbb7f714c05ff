package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/testutil"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(email, role string) map[string]interface{} {
	return map[string]interface{}{
		"name":             "Ana Cruz",
		"email":            email,
		"password":         "supersecret",
		"confirm_password": "supersecret",
		"role":             role,
		"student_number":   "2020-00001",
	}
}

func TestRegisterUser(t *testing.T) {
	r := setupHandlerTest(t)
	r.POST("/register", RegisterUser)

	w := performRequest(t, r, http.MethodPost, "/register", "", registerBody(" Ana@Example.edu ", types.RoleGraduating))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ana@example.edu", user["email"])
	assert.Equal(t, types.RoleGraduating, user["role"])
	assert.Contains(t, w.Header().Get("Set-Cookie"), "token=")

	var profile models.Profile
	require.NoError(t, db.DB.Where("user_id = ?", uint(user["id"].(float64))).First(&profile).Error)
	assert.Equal(t, types.VerificationPending, profile.VerificationStatus)
	assert.Equal(t, "2020-00001", profile.StudentNumber)

	var logs int64
	require.NoError(t, db.DB.Model(&models.SystemLog{}).Where("action = ?", "user.register").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestRegisterUser_Rejections(t *testing.T) {
	r := setupHandlerTest(t)
	r.POST("/register", RegisterUser)
	testutil.CreateUser(t, "Existing", "taken@example.edu", types.RoleGraduated)

	t.Run("admin role", func(t *testing.T) {
		w := performRequest(t, r, http.MethodPost, "/register", "", registerBody("new@example.edu", types.RoleAdmin))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		w := performRequest(t, r, http.MethodPost, "/register", "", registerBody("new@example.edu", "alumni"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		w := performRequest(t, r, http.MethodPost, "/register", "", registerBody("TAKEN@example.edu", types.RoleGraduated))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Email already exists", decodeBody(t, w)["error"])
	})

	t.Run("invalid email", func(t *testing.T) {
		w := performRequest(t, r, http.MethodPost, "/register", "", registerBody("  not-an-address ", types.RoleGraduated))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "email must be a valid email address", decodeBody(t, w)["error"])
	})

	t.Run("password mismatch", func(t *testing.T) {
		body := registerBody("new@example.edu", types.RoleGraduated)
		body["confirm_password"] = "different"
		w := performRequest(t, r, http.MethodPost, "/register", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "confirm_password must match password", decodeBody(t, w)["error"])
	})
}

func TestRegisterUser_EmailDomainCheck(t *testing.T) {
	r := setupHandlerTest(t)
	r.POST("/register", RegisterUser)

	previous := lookupEmailDomain
	CheckEmailDomain = true
	lookupEmailDomain = func(_ context.Context, domain string) error {
		if domain == "nomail.example" {
			return errors.New("no MX records")
		}
		return nil
	}
	t.Cleanup(func() {
		CheckEmailDomain = false
		lookupEmailDomain = previous
	})

	w := performRequest(t, r, http.MethodPost, "/register", "", registerBody("ana@nomail.example", types.RoleGraduating))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email domain cannot receive mail", decodeBody(t, w)["error"])

	w = performRequest(t, r, http.MethodPost, "/register", "", registerBody("ana@example.edu", types.RoleGraduating))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLoginUser(t *testing.T) {
	r := setupHandlerTest(t)
	r.POST("/login", LoginUser)
	user := testutil.CreateUser(t, "Ben", "ben@example.edu", types.RoleGraduated)

	t.Run("success", func(t *testing.T) {
		w := performRequest(t, r, http.MethodPost, "/login", "", map[string]string{
			"email": "BEN@example.edu", "password": testutil.TestPassword, "role": types.RoleGraduated,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		claims, err := auth.VerifyJWT(decodeBody(t, w)["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)

		var reloaded models.User
		require.NoError(t, db.DB.First(&reloaded, user.ID).Error)
		assert.NotNil(t, reloaded.LastLoginAt)
	})

	t.Run("padded email", func(t *testing.T) {
		w := performRequest(t, r, http.MethodPost, "/login", "", map[string]string{
			"email": "  ben@example.edu ", "password": testutil.TestPassword,
		})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("wrong password", func(t *testing.T) {
		w := performRequest(t, r, http.MethodPost, "/login", "", map[string]string{"email": "ben@example.edu", "password": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid email or password", decodeBody(t, w)["error"])
	})

	t.Run("role mismatch", func(t *testing.T) {
		w := performRequest(t, r, http.MethodPost, "/login", "", map[string]string{
			"email": "ben@example.edu", "password": testutil.TestPassword, "role": types.RoleGraduating,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "This account is registered as graduated", decodeBody(t, w)["error"])
	})

	t.Run("deactivated", func(t *testing.T) {
		require.NoError(t, db.DB.Model(&user).Update("is_active", false).Error)
		t.Cleanup(func() { db.DB.Model(&user).Update("is_active", true) })

		w := performRequest(t, r, http.MethodPost, "/login", "", map[string]string{"email": "ben@example.edu", "password": testutil.TestPassword})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMeAndLogout(t *testing.T) {
	r := setupHandlerTest(t)
	route(r, http.MethodGet, "/me", Me)
	route(r, http.MethodPost, "/logout", LogoutUser)
	user := testutil.CreateUser(t, "Cara", "cara@example.edu", types.RoleAdmin)
	token := testutil.Token(t, user)

	w := performRequest(t, r, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cara@example.edu", decodeBody(t, w)["user"].(map[string]interface{})["email"])

	w = performRequest(t, r, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(t, r, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestUpdateUser_PasswordChangeClearsFlag(t *testing.T) {
	r := setupHandlerTest(t)
	route(r, http.MethodPatch, "/me", UpdateUser)
	user := testutil.CreateUser(t, "Dan", "dan@example.edu", types.RoleGraduating)
	require.NoError(t, db.DB.Model(&user).Update("must_change_password", true).Error)
	token := testutil.Token(t, user)

	w := performRequest(t, r, http.MethodPatch, "/me", token, map[string]string{"new_password": "newpassword1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(t, r, http.MethodPatch, "/me", token, map[string]string{
		"current_password": "wrong", "new_password": "newpassword1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(t, r, http.MethodPatch, "/me", token, map[string]string{
		"name": "Daniel", "current_password": testutil.TestPassword, "new_password": "newpassword1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded models.User
	require.NoError(t, db.DB.First(&reloaded, user.ID).Error)
	assert.Equal(t, "Daniel", reloaded.Name)
	assert.False(t, reloaded.MustChangePassword)
	assert.True(t, auth.CheckPassword(reloaded.PasswordHash, "newpassword1"))
}

func TestDeleteUser(t *testing.T) {
	r := setupHandlerTest(t)
	route(r, http.MethodDelete, "/me", DeleteUser)
	user := testutil.CreateUser(t, "Eve", "eve@example.edu", types.RoleGraduated)
	token := testutil.Token(t, user)

	w := performRequest(t, r, http.MethodDelete, "/me", token, map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(t, r, http.MethodDelete, "/me", token, map[string]string{"password": testutil.TestPassword})
	require.Equal(t, http.StatusOK, w.Code)

	var users, profiles int64
	require.NoError(t, db.DB.Unscoped().Model(&models.User{}).Where("id = ?", user.ID).Count(&users).Error)
	require.NoError(t, db.DB.Model(&models.Profile{}).Where("user_id = ?", user.ID).Count(&profiles).Error)
	assert.Zero(t, users)
	assert.Zero(t, profiles)
}
