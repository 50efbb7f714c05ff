package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/cas-gradtrack/gradtrack/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type IssueAccountRequest struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email_addr"`
	Role          string `json:"role" binding:"required,oneof=graduating graduated admin"`
	StudentNumber string `json:"student_number"`
}

type UpdateUserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type VerificationRequest struct {
	Status  string `json:"status" binding:"required,oneof=verified rejected pending"`
	Remarks string `json:"remarks"`
}

type AdminProfileRow struct {
	models.Profile
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

const maxListLimit = 200

// IssueAccount creates an account on behalf of a student or another admin.
func IssueAccount(ctx *gin.Context) {
	adminID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req IssueAccountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	issued, err := services.IssueAccount(ctx.Request.Context(), db.DB, services.IssueAccountInput{
		Name:          req.Name,
		Email:         req.Email,
		Role:          req.Role,
		StudentNumber: req.StudentNumber,
	})

	if errors.Is(err, services.ErrAccountExists) {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Email or student number already exists"})
		return
	}

	if err != nil {
		internalError(ctx, "Failed to issue account", err)
		return
	}

	emailSent := true
	msg := services.AccountIssuedMessage(issued.User.Name, issued.User.Email, issued.TemporaryPassword, SiteURL)
	if err := services.SendMail(ctx.Request.Context(), msg); err != nil {
		logger.LogError("Failed to send account credentials", err)
		emailSent = false
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &adminID,
		Action:    "account.issue",
		Entity:    "user",
		EntityID:  &issued.User.ID,
		Details:   issued.User.Role,
		IPAddress: ctx.ClientIP(),
	})

	BroadcastRefresh()

	userID, role := issued.User.ID, issued.User.Role
	background(func(bgCtx context.Context) {
		services.PublishEvent(bgCtx, services.EventAccountIssued, gin.H{"user_id": userID, "role": role, "issued_by": adminID})
	})

	body := gin.H{
		"message":    "Account issued successfully",
		"user":       toUserResponse(issued.User),
		"email_sent": emailSent,
	}
	if ExposeTemporaryPassword {
		body["temporary_password"] = issued.TemporaryPassword
	}

	ctx.JSON(http.StatusCreated, body)
}

func ListUsers(ctx *gin.Context) {
	page, pageSize := utils.GetPagination(ctx)

	query := db.DB.Model(&models.User{})

	if role := ctx.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	if active := ctx.Query("active"); active != "" {
		isActive, err := strconv.ParseBool(active)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "active must be true or false"})
			return
		}
		query = query.Where("is_active = ?", isActive)
	}

	if q := strings.TrimSpace(ctx.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(student_number) LIKE ?)", like, like, like)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		internalError(ctx, "Failed to count users", err)
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		internalError(ctx, "Failed to list users", err)
		return
	}

	response := make([]types.UserResponse, 0, len(users))
	for _, user := range users {
		response = append(response, toUserResponse(user))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users":     response,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func UpdateUserStatus(ctx *gin.Context) {
	adminID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	userID, err := utils.GetUintParam(ctx, "user_id", "User ID")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req UpdateUserStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	if userID == adminID && !*req.IsActive {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "You cannot deactivate your own account"})
		return
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			internalError(ctx, "Failed to fetch user", err)
		}
		return
	}

	if err := db.DB.Model(&user).Update("is_active", *req.IsActive).Error; err != nil {
		internalError(ctx, "Failed to update user status", err)
		return
	}

	action := "user.deactivate"
	if *req.IsActive {
		action = "user.activate"
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &adminID,
		Action:    action,
		Entity:    "user",
		EntityID:  &user.ID,
		IPAddress: ctx.ClientIP(),
	})

	BroadcastRefresh()

	ctx.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func ListProfiles(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	if limit < 1 || limit > maxListLimit {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := db.DB.Model(&models.Profile{}).
		Joins("JOIN users ON users.id = profiles.user_id AND users.deleted_at IS NULL")

	if status := ctx.Query("verification_status"); status != "" {
		query = query.Where("profiles.verification_status = ?", status)
	}

	if role := ctx.Query("role"); role != "" {
		query = query.Where("users.role = ?", role)
	}

	if program := ctx.Query("program"); program != "" {
		query = query.Where("profiles.program = ?", program)
	}

	if year := ctx.Query("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "year must be a number"})
			return
		}
		query = query.Where("(profiles.year_graduated = ? OR profiles.expected_graduation_year = ?)", y, y)
	}

	if q := strings.TrimSpace(ctx.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"(LOWER(profiles.first_name) LIKE ? OR LOWER(profiles.last_name) LIKE ? OR LOWER(profiles.student_number) LIKE ? OR LOWER(users.email) LIKE ?)",
			like, like, like, like,
		)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		internalError(ctx, "Failed to count profiles", err)
		return
	}

	var profiles []models.Profile
	if err := query.
		Select("profiles.*").
		Preload("User").
		Order("profiles.submitted_at IS NULL, profiles.submitted_at DESC, profiles.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&profiles).Error; err != nil {
		internalError(ctx, "Failed to list profiles", err)
		return
	}

	rows := make([]AdminProfileRow, 0, len(profiles))
	for _, profile := range profiles {
		rows = append(rows, AdminProfileRow{
			Profile: profile,
			Name:    profile.User.Name,
			Email:   profile.User.Email,
			Role:    profile.User.Role,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"profiles": rows,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func loadProfileByParam(ctx *gin.Context) (models.Profile, bool) {
	var profile models.Profile

	profileID, err := utils.GetUintParam(ctx, "profile_id", "Profile ID")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return profile, false
	}

	err = db.DB.
		Preload("User").
		Preload("EmploymentRecords", func(tx *gorm.DB) *gorm.DB { return tx.Order("start_date DESC") }).
		First(&profile, profileID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		} else {
			internalError(ctx, "Failed to fetch profile", err)
		}
		return profile, false
	}

	return profile, true
}

func GetProfileByID(ctx *gin.Context) {
	profile, ok := loadProfileByParam(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"profile": profile,
		"user":    toUserResponse(profile.User),
	})
}

func UpdateVerification(ctx *gin.Context) {
	admin, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req VerificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	req.Remarks = strings.TrimSpace(req.Remarks)
	if req.Status == types.VerificationRejected && req.Remarks == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "remarks are required when rejecting a profile"})
		return
	}

	profile, ok := loadProfileByParam(ctx)
	if !ok {
		return
	}

	updates := map[string]interface{}{
		"verification_status":  req.Status,
		"verification_remarks": req.Remarks,
		"verified_by":          nil,
		"verified_at":          nil,
	}
	if req.Status != types.VerificationPending {
		updates["verified_by"] = admin.ID
		updates["verified_at"] = time.Now()
	}

	title, message := verificationNotice(req.Status, req.Remarks)

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&profile).Updates(updates).Error; err != nil {
			return err
		}
		return services.Notify(tx, []uint{profile.UserID}, title, message, types.NotificationVerification)
	})

	if err != nil {
		internalError(ctx, "Failed to update verification", err)
		return
	}

	profile.VerificationStatus = req.Status
	profile.VerificationRemarks = req.Remarks

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &admin.ID,
		Action:    "profile.verify",
		Entity:    "profile",
		EntityID:  &profile.ID,
		Details:   req.Status,
		IPAddress: ctx.ClientIP(),
	})

	BroadcastRefresh()

	owner, decided, reviewer := profile.User, profile, admin.Name
	background(func(bgCtx context.Context) {
		if err := services.SendVerificationAlert(owner, decided, reviewer); err != nil {
			logger.LogError("Failed to send verification alert", err)
		}
		services.PublishEvent(bgCtx, services.EventProfileVerified, gin.H{
			"profile_id": decided.ID,
			"user_id":    decided.UserID,
			"status":     decided.VerificationStatus,
		})
	})

	if err := db.DB.First(&profile, profile.ID).Error; err != nil {
		internalError(ctx, "Failed to reload profile", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"profile": profile})
}

func verificationNotice(status, remarks string) (string, string) {
	switch status {
	case types.VerificationVerified:
		return "Profile verified", "Your profile has been verified."
	case types.VerificationRejected:
		return "Profile needs changes", fmt.Sprintf("Your profile was not approved: %s", remarks)
	default:
		return "Profile under review", "Your profile has been returned to pending review."
	}
}

func ListSystemLogs(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "100"))
	if limit < 1 || limit > maxListLimit {
		limit = 100
	}

	query := db.DB.Model(&models.SystemLog{})

	if action := ctx.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	if userID := ctx.Query("user_id"); userID != "" {
		id, err := strconv.ParseUint(userID, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid User ID"})
			return
		}
		query = query.Where("user_id = ?", id)
	}

	var logs []models.SystemLog
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		internalError(ctx, "Failed to list system logs", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"logs": logs})
}
