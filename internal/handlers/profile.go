package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
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

const dateLayout = "2006-01-02"

type PersonalSectionRequest struct {
	FirstName  string `json:"first_name" binding:"required"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name" binding:"required"`
	Sex        string `json:"sex" binding:"required,oneof=male female other"`
	BirthDate  string `json:"birth_date"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
}

type AcademicSectionRequest struct {
	StudentNumber          string `json:"student_number" binding:"required"`
	Program                string `json:"program" binding:"required"`
	Major                  string `json:"major"`
	YearGraduated          *int   `json:"year_graduated" binding:"omitempty,gte=1950,lte=2100"`
	ExpectedGraduationYear *int   `json:"expected_graduation_year" binding:"omitempty,gte=1950,lte=2100"`
	Honors                 string `json:"honors"`
}

type EmploymentSectionRequest struct {
	EmploymentStatus string `json:"employment_status" binding:"required,oneof=employed self-employed unemployed further-studies not-tracked"`
	CurrentJobTitle  string `json:"current_job_title"`
	CurrentEmployer  string `json:"current_employer"`
}

// loadOwnProfile fetches the current user's profile or writes the error response.
func loadOwnProfile(ctx *gin.Context) (models.Profile, bool) {
	var profile models.Profile

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return profile, false
	}

	if err := db.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		} else {
			internalError(ctx, "Failed to fetch profile", err)
		}
		return profile, false
	}

	return profile, true
}

// withReview resets a decided profile back to pending when its data changes.
func withReview(profile models.Profile, updates map[string]interface{}) map[string]interface{} {
	if profile.VerificationStatus != types.VerificationPending {
		updates["verification_status"] = types.VerificationPending
		updates["verification_remarks"] = ""
		updates["verified_by"] = nil
		updates["verified_at"] = nil
	}
	return updates
}

func respondWithProfile(ctx *gin.Context, profileID uint, message string) {
	var profile models.Profile

	err := db.DB.Preload("EmploymentRecords", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("start_date DESC")
	}).First(&profile, profileID).Error

	if err != nil {
		internalError(ctx, "Failed to reload profile", err)
		return
	}

	body := gin.H{"profile": profile}
	if message != "" {
		body["message"] = message
	}

	ctx.JSON(http.StatusOK, body)
}

func GetProfile(ctx *gin.Context) {
	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	respondWithProfile(ctx, profile.ID, "")
}

func UpdatePersonalSection(ctx *gin.Context) {
	var req PersonalSectionRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	var birthDate *time.Time
	if req.BirthDate != "" {
		parsed, err := time.Parse(dateLayout, req.BirthDate)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "birth_date must be formatted YYYY-MM-DD"})
			return
		}
		if parsed.After(time.Now()) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "birth_date cannot be in the future"})
			return
		}
		birthDate = &parsed
	}

	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	updates := withReview(profile, map[string]interface{}{
		"first_name":  strings.TrimSpace(req.FirstName),
		"middle_name": strings.TrimSpace(req.MiddleName),
		"last_name":   strings.TrimSpace(req.LastName),
		"sex":         req.Sex,
		"birth_date":  birthDate,
		"phone":       strings.TrimSpace(req.Phone),
		"address":     strings.TrimSpace(req.Address),
	})

	if err := db.DB.Model(&profile).Updates(updates).Error; err != nil {
		internalError(ctx, "Failed to save personal section", err)
		return
	}

	auditProfile(ctx, profile.ID, "profile.update_personal")
	respondWithProfile(ctx, profile.ID, "Personal information saved")
}

func UpdateAcademicSection(ctx *gin.Context) {
	var req AcademicSectionRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if currentUser.Role == types.RoleGraduated && req.YearGraduated == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "year_graduated is required"})
		return
	}

	if currentUser.Role == types.RoleGraduating && req.ExpectedGraduationYear == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "expected_graduation_year is required"})
		return
	}

	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	studentNumber := strings.TrimSpace(req.StudentNumber)

	updates := withReview(profile, map[string]interface{}{
		"student_number":           studentNumber,
		"program":                  strings.TrimSpace(req.Program),
		"major":                    strings.TrimSpace(req.Major),
		"year_graduated":           req.YearGraduated,
		"expected_graduation_year": req.ExpectedGraduationYear,
		"honors":                   strings.TrimSpace(req.Honors),
	})

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&profile).Updates(updates).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("student_number", studentNumber).Error
	})

	if err != nil {
		if db.IsUniqueViolation(err) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Student number already exists"})
			return
		}
		internalError(ctx, "Failed to save academic section", err)
		return
	}

	auditProfile(ctx, profile.ID, "profile.update_academic")
	BroadcastRefresh()
	respondWithProfile(ctx, profile.ID, "Academic information saved")
}

func UpdateEmploymentSection(ctx *gin.Context) {
	var req EmploymentSectionRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	req.CurrentJobTitle = strings.TrimSpace(req.CurrentJobTitle)
	req.CurrentEmployer = strings.TrimSpace(req.CurrentEmployer)

	switch req.EmploymentStatus {
	case types.EmploymentEmployed:
		if req.CurrentJobTitle == "" || req.CurrentEmployer == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "current_job_title and current_employer are required when employed"})
			return
		}
	case types.EmploymentSelfEmployed:
		if req.CurrentJobTitle == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "current_job_title is required when self-employed"})
			return
		}
	default:
		req.CurrentJobTitle = ""
		req.CurrentEmployer = ""
	}

	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	updates := withReview(profile, map[string]interface{}{
		"employment_status": req.EmploymentStatus,
		"current_job_title": req.CurrentJobTitle,
		"current_employer":  req.CurrentEmployer,
	})

	if err := db.DB.Model(&profile).Updates(updates).Error; err != nil {
		internalError(ctx, "Failed to save employment section", err)
		return
	}

	auditProfile(ctx, profile.ID, "profile.update_employment")
	BroadcastRefresh()
	respondWithProfile(ctx, profile.ID, "Employment information saved")
}

// missingSections lists the sections that must be filled before submission.
func missingSections(profile models.Profile, role string) []string {
	var missing []string

	if profile.FirstName == "" || profile.LastName == "" {
		missing = append(missing, "personal")
	}

	academicDone := profile.StudentNumber != "" && profile.Program != ""
	if role == types.RoleGraduated && profile.YearGraduated == nil {
		academicDone = false
	}
	if role == types.RoleGraduating && profile.ExpectedGraduationYear == nil {
		academicDone = false
	}
	if !academicDone {
		missing = append(missing, "academic")
	}

	if role == types.RoleGraduated && profile.EmploymentStatus == types.EmploymentNotTracked {
		missing = append(missing, "employment")
	}

	return missing
}

func SubmitProfile(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	if missing := missingSections(profile, currentUser.Role); len(missing) > 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   fmt.Sprintf("Complete the %s section(s) before submitting", strings.Join(missing, ", ")),
			"missing": missing,
		})
		return
	}

	now := time.Now()
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		updates := withReview(profile, map[string]interface{}{
			"submitted_at":        now,
			"verification_status": types.VerificationPending,
		})

		if err := tx.Model(&profile).Updates(updates).Error; err != nil {
			return err
		}

		_, err := services.NotifyRoles(tx, []string{types.RoleAdmin},
			"Profile submitted",
			fmt.Sprintf("%s submitted a profile for verification.", name),
			types.NotificationVerification,
		)
		return err
	})

	if err != nil {
		internalError(ctx, "Failed to submit profile", err)
		return
	}

	if err := db.DB.First(&profile, profile.ID).Error; err != nil {
		internalError(ctx, "Failed to reload profile", err)
		return
	}

	auditProfile(ctx, profile.ID, "profile.submit")
	BroadcastRefresh()

	user := models.User{Name: currentUser.Name, Email: currentUser.Email, Role: currentUser.Role}
	submitted := profile

	background(func(bgCtx context.Context) {
		if err := services.SendProfileSubmittedAlert(user, submitted); err != nil {
			logger.LogError("Failed to send profile submitted alert", err)
		}
		services.PublishEvent(bgCtx, services.EventProfileSubmitted, gin.H{
			"profile_id": submitted.ID,
			"user_id":    submitted.UserID,
			"role":       user.Role,
		})
	})

	respondWithProfile(ctx, profile.ID, "Profile submitted for verification")
}

func auditProfile(ctx *gin.Context, profileID uint, action string) {
	userID, _ := utils.GetCurrentUserID(ctx)

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &userID,
		Action:    action,
		Entity:    "profile",
		EntityID:  &profileID,
		IPAddress: ctx.ClientIP(),
	})
}
