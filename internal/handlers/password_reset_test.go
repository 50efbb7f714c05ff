package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/testutil"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resetRouter(t *testing.T) *gin.Engine {
	r := setupHandlerTest(t)

	group := r.Group("/reset", ResetCORS())
	group.OPTIONS("/request", ResetCORS())
	group.POST("/request", RequestPasswordReset)
	group.POST("/verify", VerifyResetCode)
	group.POST("/confirm", ConfirmPasswordReset)

	return r
}

func TestResetCORS_Preflight(t *testing.T) {
	r := resetRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/reset/request", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestRequestPasswordReset_Validation(t *testing.T) {
	r := resetRouter(t)
	mailer := useMailer(t)

	w := performRequest(t, r, http.MethodPost, "/reset/request", "", map[string]string{"email": "a@example.edu"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Email and code are required", body["error"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = performRequest(t, r, http.MethodPost, "/reset/request", "", map[string]string{"email": "a@example.edu", "code": "12ab"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Code must be 6 digits", decodeBody(t, w)["error"])

	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	r := resetRouter(t)
	mailer := useMailer(t)

	w := performRequest(t, r, http.MethodPost, "/reset/request", "", map[string]string{"email": "ghost@example.edu", "code": "123456"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])

	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	var codes int64
	require.NoError(t, db.DB.Model(&models.ResetCode{}).Count(&codes).Error)
	assert.Zero(t, codes)
}

func TestRequestPasswordReset_MailFailure(t *testing.T) {
	r := resetRouter(t)
	mailer := useMailer(t)
	testutil.CreateUser(t, "Fay", "fay@example.edu", types.RoleGraduated)

	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	w := performRequest(t, r, http.MethodPost, "/reset/request", "", map[string]string{"email": "fay@example.edu", "code": "654321"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to send email", decodeBody(t, w)["error"])
	mailer.AssertExpectations(t)
}

// expectResetMail accepts one reset mail to email and records the token
// carried by its link.
func expectResetMail(mailer *mockMailer, email string) *string {
	token := new(string)

	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg services.Message) bool {
		return msg.To == email
	})).Run(func(args mock.Arguments) {
		*token = resetTokenFromBody(args.Get(1).(services.Message).Body)
	}).Return(nil).Once()

	return token
}

func resetTokenFromBody(body string) string {
	_, after, found := strings.Cut(body, "&token=")
	if !found {
		return ""
	}
	return strings.Fields(after)[0]
}

func TestPasswordResetFlow(t *testing.T) {
	r := resetRouter(t)
	mailer := useMailer(t)
	user := testutil.CreateUser(t, "Gus", "gus@example.edu", types.RoleGraduating)

	ExposeResetCode = true
	t.Cleanup(func() { ExposeResetCode = false })

	firstToken := expectResetMail(mailer, "gus@example.edu")
	w := performRequest(t, r, http.MethodPost, "/reset/request", "", map[string]string{"email": "Gus@example.edu", "code": "111111"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token := expectResetMail(mailer, "gus@example.edu")
	w = performRequest(t, r, http.MethodPost, "/reset/request", "", map[string]string{"email": "Gus@example.edu", "code": "111111"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Reset code sent successfully", body["message"])
	assert.Equal(t, "111111", body["code"])
	assert.NotContains(t, w.Body.String(), *token)
	mailer.AssertExpectations(t)

	require.NotEmpty(t, *token)
	assert.NotEqual(t, *firstToken, *token)

	var stored []models.ResetCode
	require.NoError(t, db.DB.Where("email = ?", "gus@example.edu").Find(&stored).Error)
	require.Len(t, stored, 1, "a new request replaces unused codes")
	assert.Equal(t, auth.HashResetToken(*token), stored[0].TokenHash)

	w = performRequest(t, r, http.MethodPost, "/reset/verify", "", map[string]string{"email": "gus@example.edu", "code": "111111", "token": *firstToken})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(t, r, http.MethodPost, "/reset/verify", "", map[string]string{"email": "gus@example.edu", "code": "222222", "token": *token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(t, r, http.MethodPost, "/reset/verify", "", map[string]string{"email": "gus@example.edu", "code": "111111", "token": *token})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(t, r, http.MethodPost, "/reset/confirm", "", map[string]string{
		"email": "gus@example.edu", "code": "111111", "token": *token, "new_password": "brandnewpass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded models.User
	require.NoError(t, db.DB.First(&reloaded, user.ID).Error)
	assert.True(t, auth.CheckPassword(reloaded.PasswordHash, "brandnewpass"))

	w = performRequest(t, r, http.MethodPost, "/reset/confirm", "", map[string]string{
		"email": "gus@example.edu", "code": "111111", "token": *token, "new_password": "anotherpass1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "codes are single use")
}

func TestConfirmPasswordReset_RequiresMailedToken(t *testing.T) {
	r := resetRouter(t)
	mailer := useMailer(t)
	user := testutil.CreateUser(t, "Ivy", "ivy@example.edu", types.RoleGraduated)

	expectResetMail(mailer, "ivy@example.edu")
	w := performRequest(t, r, http.MethodPost, "/reset/request", "", map[string]string{"email": "ivy@example.edu", "code": "000000"})
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(t, r, http.MethodPost, "/reset/confirm", "", map[string]string{
		"email": "ivy@example.edu", "code": "000000", "new_password": "takenover1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(t, r, http.MethodPost, "/reset/confirm", "", map[string]string{
		"email": "ivy@example.edu", "code": "000000", "token": "guessed-token", "new_password": "takenover1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired code", decodeBody(t, w)["error"])

	var reloaded models.User
	require.NoError(t, db.DB.First(&reloaded, user.ID).Error)
	assert.False(t, auth.CheckPassword(reloaded.PasswordHash, "takenover1"))
}

func TestVerifyResetCode_AttemptLimit(t *testing.T) {
	r := resetRouter(t)
	mailer := useMailer(t)
	testutil.CreateUser(t, "Jo", "jo@example.edu", types.RoleGraduated)

	token := expectResetMail(mailer, "jo@example.edu")
	w := performRequest(t, r, http.MethodPost, "/reset/request", "", map[string]string{"email": "jo@example.edu", "code": "123456"})
	require.Equal(t, http.StatusOK, w.Code)

	for i := 0; i < MaxResetAttempts; i++ {
		w = performRequest(t, r, http.MethodPost, "/reset/verify", "", map[string]string{"email": "jo@example.edu", "code": "999999", "token": *token})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	var stored models.ResetCode
	require.NoError(t, db.DB.Where("email = ?", "jo@example.edu").First(&stored).Error)
	assert.Equal(t, MaxResetAttempts, stored.Attempts)

	w = performRequest(t, r, http.MethodPost, "/reset/verify", "", map[string]string{"email": "jo@example.edu", "code": "123456", "token": *token})
	assert.Equal(t, http.StatusBadRequest, w.Code, "an exhausted code stays locked")
}

func TestVerifyResetCode_Expired(t *testing.T) {
	r := resetRouter(t)
	testutil.CreateUser(t, "Hal", "hal@example.edu", types.RoleGraduated)

	require.NoError(t, db.DB.Create(&models.ResetCode{
		Email:     "hal@example.edu",
		Code:      "333333",
		TokenHash: auth.HashResetToken("expired"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)

	w := performRequest(t, r, http.MethodPost, "/reset/verify", "", map[string]string{"email": "hal@example.edu", "code": "333333", "token": "expired"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired code", decodeBody(t, w)["error"])
}
