package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/cas-gradtrack/gradtrack/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email_addr"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Role            string `json:"role" binding:"required"`
	StudentNumber   string `json:"student_number"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email_addr"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email" binding:"omitempty,email_addr"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"omitempty,min=8"`
}

func RegisterUser(ctx *gin.Context) {
	var req RegisterRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	if req.Role == types.RoleAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Admin accounts cannot be self-registered"})
		return
	}

	if !types.IsStudentRole(req.Role) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "role must be one of: graduating graduated"})
		return
	}

	req.Email = utils.NormalizeEmail(req.Email)
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)

	if CheckEmailDomain {
		domain, err := utils.EmailDomain(req.Email)
		if err == nil {
			err = lookupEmailDomain(ctx.Request.Context(), domain)
		}
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email domain cannot receive mail"})
			return
		}
	}

	var existingUser models.User

	err := db.DB.Where("email = ?", req.Email).First(&existingUser).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(ctx, "Database error when checking existing user", err)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)

	if err != nil {
		internalError(ctx, "Failed to hash password", err)
		return
	}

	newUser := models.User{
		Name:          strings.TrimSpace(req.Name),
		Email:         req.Email,
		PasswordHash:  passwordHash,
		Role:          req.Role,
		StudentNumber: optionalString(req.StudentNumber),
		IsActive:      true,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newUser).Error; err != nil {
			return err
		}

		return tx.Create(&models.Profile{
			UserID:             newUser.ID,
			StudentNumber:      req.StudentNumber,
			EmploymentStatus:   types.EmploymentNotTracked,
			VerificationStatus: types.VerificationPending,
		}).Error
	})

	if err != nil {
		if db.IsUniqueViolation(err) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email or student number already exists"})
			return
		}
		internalError(ctx, "Failed to create user", err)
		return
	}

	token, err := auth.GenerateJWT(newUser.ID, newUser.Email, newUser.Role)

	if err != nil {
		internalError(ctx, "Failed to generate JWT", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &newUser.ID,
		Action:    "user.register",
		Entity:    "user",
		EntityID:  &newUser.ID,
		IPAddress: ctx.ClientIP(),
	})

	BroadcastRefresh()
	setTokenCookie(ctx, token)

	ctx.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  toUserResponse(newUser),
	})
}

func LoginUser(ctx *gin.Context) {
	var req LoginUserRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	var existingUser models.User

	err := db.DB.Where("email = ?", utils.NormalizeEmail(req.Email)).First(&existingUser).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
			return
		}
		internalError(ctx, "Database error when fetching user", err)
		return
	}

	if !auth.CheckPassword(existingUser.PasswordHash, req.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
		return
	}

	if !existingUser.IsActive {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Account is deactivated"})
		return
	}

	if req.Role != "" && req.Role != existingUser.Role {
		ctx.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("This account is registered as %s", existingUser.Role)})
		return
	}

	now := time.Now()
	if err := db.DB.Model(&existingUser).Update("last_login_at", now).Error; err != nil {
		internalError(ctx, "Failed to update last login", err)
		return
	}
	existingUser.LastLoginAt = &now

	token, err := auth.GenerateJWT(existingUser.ID, existingUser.Email, existingUser.Role)

	if err != nil {
		internalError(ctx, "Failed to generate JWT", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &existingUser.ID,
		Action:    "user.login",
		Entity:    "user",
		EntityID:  &existingUser.ID,
		IPAddress: ctx.ClientIP(),
	})

	setTokenCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  toUserResponse(existingUser),
	})
}

func Me(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, userID).Error; err != nil {
		internalError(ctx, "Failed to fetch user", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func LogoutUser(ctx *gin.Context) {
	if userID, err := utils.GetCurrentUserID(ctx); err == nil {
		services.Audit(ctx.Request.Context(), services.AuditEntry{
			UserID:    &userID,
			Action:    "user.logout",
			Entity:    "user",
			EntityID:  &userID,
			IPAddress: ctx.ClientIP(),
		})
	}

	clearTokenCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func UpdateUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var dbUser models.User
	if err := db.DB.First(&dbUser, currentUser.ID).Error; err != nil {
		internalError(ctx, "Failed to fetch user", err)
		return
	}

	var updateReq UpdateUserRequest
	if err := ctx.ShouldBindJSON(&updateReq); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	updates := make(map[string]interface{})

	if name := strings.TrimSpace(updateReq.Name); name != "" {
		updates["name"] = name
	}

	if updateReq.Email != "" {
		newEmail := utils.NormalizeEmail(updateReq.Email)

		if newEmail != dbUser.Email {
			var existingUser models.User
			err := db.DB.Where("email = ? AND id != ?", newEmail, dbUser.ID).First(&existingUser).Error
			if err == nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
				return
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				internalError(ctx, "Database error when checking existing email", err)
				return
			}
		}

		updates["email"] = newEmail
	}

	if updateReq.NewPassword != "" {
		if updateReq.CurrentPassword == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is required to change password"})
			return
		}

		if !auth.CheckPassword(dbUser.PasswordHash, updateReq.CurrentPassword) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
			return
		}

		passwordHash, err := auth.HashPassword(updateReq.NewPassword)
		if err != nil {
			internalError(ctx, "Failed to hash new password", err)
			return
		}

		updates["password_hash"] = passwordHash
		updates["must_change_password"] = false
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	if err := db.DB.Model(&dbUser).Updates(updates).Error; err != nil {
		internalError(ctx, "Failed to update user", err)
		return
	}

	if err := db.DB.First(&dbUser, dbUser.ID).Error; err != nil {
		internalError(ctx, "Failed to refresh user data", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &dbUser.ID,
		Action:    "user.update",
		Entity:    "user",
		EntityID:  &dbUser.ID,
		IPAddress: ctx.ClientIP(),
	})

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    toUserResponse(dbUser),
	})
}

func DeleteUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var dbUser models.User
	if err := db.DB.First(&dbUser, currentUser.ID).Error; err != nil {
		internalError(ctx, "Failed to fetch user", err)
		return
	}

	var deleteReq struct {
		Password string `json:"password" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&deleteReq); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Password is required for account deletion"})
		return
	}

	if !auth.CheckPassword(dbUser.PasswordHash, deleteReq.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect password"})
		return
	}

	// Unscoped: the profile, records and notifications cascade with the row.
	if err := db.DB.Unscoped().Delete(&dbUser).Error; err != nil {
		internalError(ctx, "Failed to delete user", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &dbUser.ID,
		Action:    "user.delete",
		Entity:    "user",
		EntityID:  &dbUser.ID,
		IPAddress: ctx.ClientIP(),
	})

	BroadcastRefresh()
	clearTokenCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
