package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	resetAllowOrigin  = "*"
	resetAllowHeaders = "authorization, x-client-info, apikey, content-type"
)

var errInvalidResetCode = errors.New("invalid or expired code")

type ResetCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyResetCodeRequest carries the code together with the token from the
// mailed reset link.
type VerifyResetCodeRequest struct {
	Email string `json:"email" binding:"required,email_addr"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
	Token string `json:"token" binding:"required"`
}

type ConfirmPasswordResetRequest struct {
	Email       string `json:"email" binding:"required,email_addr"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ResetCORS applies the open CORS policy of the password reset endpoints and
// answers preflight requests itself.
func ResetCORS() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", resetAllowOrigin)
		ctx.Header("Access-Control-Allow-Headers", resetAllowHeaders)
		ctx.Header("Access-Control-Allow-Methods", "POST, OPTIONS")

		if ctx.Request.Method == http.MethodOptions {
			ctx.String(http.StatusOK, "ok")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

func resetError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"success": false, "error": message})
}

// RequestPasswordReset stores a reset code for the account and mails the recovery link.
func RequestPasswordReset(ctx *gin.Context) {
	var req ResetCodeRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		resetError(ctx, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Email == "" || req.Code == "" {
		resetError(ctx, http.StatusBadRequest, "Email and code are required")
		return
	}

	if !auth.IsResetCode(req.Code) {
		resetError(ctx, http.StatusBadRequest, "Code must be 6 digits")
		return
	}

	email := utils.NormalizeEmail(req.Email)

	response := gin.H{"success": true, "message": "Reset code sent successfully"}
	if ExposeResetCode {
		response["code"] = req.Code
	}

	var user models.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.LogError("Failed to look up reset email", err)
		}
		ctx.JSON(http.StatusOK, response)
		return
	}

	token, tokenHash, err := auth.GenerateResetToken()
	if err != nil {
		logger.LogError("Failed to generate reset token", err)
		resetError(ctx, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := services.SendMail(ctx.Request.Context(), services.ResetCodeMessage(email, SiteURL, req.Code, token, ResetCodeTTL)); err != nil {
		logger.LogError("Failed to send reset email", err)
		resetError(ctx, http.StatusInternalServerError, "Failed to send email")
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND used_at IS NULL", email).Delete(&models.ResetCode{}).Error; err != nil {
			return err
		}

		return tx.Create(&models.ResetCode{
			Email:     email,
			Code:      req.Code,
			TokenHash: tokenHash,
			ExpiresAt: time.Now().Add(ResetCodeTTL),
		}).Error
	})

	if err != nil {
		logger.LogError("Failed to store reset code", err)
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &user.ID,
		Action:    "password.reset_request",
		Entity:    "user",
		EntityID:  &user.ID,
		IPAddress: ctx.ClientIP(),
	})

	ctx.JSON(http.StatusOK, response)
}

// checkResetCode loads the newest usable code for email and matches both the
// code and the mailed token against it. Every mismatch spends one of the
// code's MaxResetAttempts.
func checkResetCode(tx *gorm.DB, email, code, token string) (models.ResetCode, error) {
	var resetCode models.ResetCode

	err := tx.
		Where("email = ? AND used_at IS NULL AND expires_at > ? AND attempts < ?", email, time.Now(), MaxResetAttempts).
		Order("created_at DESC").
		First(&resetCode).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return resetCode, errInvalidResetCode
	}
	if err != nil {
		return resetCode, err
	}

	codeMatches := subtle.ConstantTimeCompare([]byte(resetCode.Code), []byte(code)) == 1
	if codeMatches && auth.ResetTokenMatches(resetCode.TokenHash, token) {
		return resetCode, nil
	}

	if err := tx.Model(&resetCode).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
		return resetCode, err
	}

	return resetCode, errInvalidResetCode
}

func VerifyResetCode(ctx *gin.Context) {
	var req VerifyResetCodeRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		resetError(ctx, http.StatusBadRequest, bindingMessage(err))
		return
	}

	_, err := checkResetCode(db.DB, utils.NormalizeEmail(req.Email), req.Code, req.Token)

	if errors.Is(err, errInvalidResetCode) {
		resetError(ctx, http.StatusBadRequest, "Invalid or expired code")
		return
	}

	if err != nil {
		logger.LogError("Failed to verify reset code", err)
		resetError(ctx, http.StatusInternalServerError, "Internal server error")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Code verified"})
}

func ConfirmPasswordReset(ctx *gin.Context) {
	var req ConfirmPasswordResetRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		resetError(ctx, http.StatusBadRequest, bindingMessage(err))
		return
	}

	email := utils.NormalizeEmail(req.Email)

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.LogError("Failed to hash new password", err)
		resetError(ctx, http.StatusInternalServerError, "Internal server error")
		return
	}

	var user models.User

	// Checked outside the transaction so a failed attempt stays counted.
	resetCode, err := checkResetCode(db.DB, email, req.Code, req.Token)
	if err == nil {
		err = db.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errInvalidResetCode
				}
				return err
			}

			result := tx.Model(&models.ResetCode{}).
				Where("id = ? AND used_at IS NULL", resetCode.ID).
				Update("used_at", time.Now())
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return errInvalidResetCode
			}

			return tx.Model(&user).Updates(map[string]interface{}{
				"password_hash":        passwordHash,
				"must_change_password": false,
			}).Error
		})
	}

	if errors.Is(err, errInvalidResetCode) {
		resetError(ctx, http.StatusBadRequest, "Invalid or expired code")
		return
	}

	if err != nil {
		logger.LogError("Failed to reset password", err)
		resetError(ctx, http.StatusInternalServerError, "Internal server error")
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &user.ID,
		Action:    "password.reset",
		Entity:    "user",
		EntityID:  &user.ID,
		IPAddress: ctx.ClientIP(),
	})

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated successfully"})
}
