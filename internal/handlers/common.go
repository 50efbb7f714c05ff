package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/cas-gradtrack/gradtrack/internal/health"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/cas-gradtrack/gradtrack/internal/middleware"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/storage"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// emailTag validates an address the way it is stored: surrounding spaces are
// dropped before the check.
const emailTag = "email_addr"

var emailValidator = validator.New()

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation(emailTag, validEmailAddress); err != nil {
			panic(err)
		}
	}
}

func validEmailAddress(fl validator.FieldLevel) bool {
	return emailValidator.Var(strings.TrimSpace(fl.Field().String()), "email") == nil
}

var (
	Domain                        = ""
	SiteURL                       = "http://localhost:5173"
	ResetCodeTTL                  = 15 * time.Minute
	ExposeResetCode               = false
	MaxResetAttempts              = 5
	CheckEmailDomain              = false
	ExposeTemporaryPassword       = true
	MaxUploadBytes          int64 = 5 << 20
	DependencyChecks        []config.DependencyCheck

	Storage storage.Connector

	lookupEmailDomain = health.CheckMX
)

// Configure copies the settings handlers depend on.
func Configure(cfg *config.Config, connector storage.Connector) {
	Domain = cfg.Server.Domain
	SiteURL = cfg.Auth.SiteURL
	ResetCodeTTL = cfg.Auth.ResetCodeTTL
	ExposeResetCode = cfg.Auth.ExposeResetCode
	MaxResetAttempts = cfg.Auth.ResetMaxAttempts
	CheckEmailDomain = cfg.Auth.CheckEmailDomain
	ExposeTemporaryPassword = cfg.Mail.Provider == config.MailProviderLog
	MaxUploadBytes = cfg.Storage.MaxUploadBytes
	DependencyChecks = cfg.Health.Checks
	Storage = connector
}

func internalError(ctx *gin.Context, msg string, err error) {
	logger.LogError(msg, err)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func setTokenCookie(ctx *gin.Context, token string) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   Domain,
		MaxAge:   60 * 60 * 24 * 7,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearTokenCookie(ctx *gin.Context) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   Domain,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func toUserResponse(user models.User) types.UserResponse {
	response := types.UserResponse{
		ID:                 user.ID,
		Name:               user.Name,
		Email:              user.Email,
		Role:               user.Role,
		IsActive:           user.IsActive,
		MustChangePassword: user.MustChangePassword,
		LastLoginAt:        user.LastLoginAt,
	}

	if user.StudentNumber != nil {
		response.StudentNumber = *user.StudentNumber
	}

	return response
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// background detaches follow-up work (webhooks, events) from the request.
func background(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

// bindingMessage turns a binding error into a message naming the offending field.
func bindingMessage(err error) string {
	var validationErrors validator.ValidationErrors

	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return "Invalid request"
	}

	fe := validationErrors[0]
	field := snakeCase(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email", emailTag:
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, snakeCase(fe.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func snakeCase(name string) string {
	var b strings.Builder

	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(rune(name[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

var errNoStorage = errors.New("storage is not configured")

func formatMB(bytes int64) string {
	return fmt.Sprintf("%d MB", bytes>>20)
}
