package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/cas-gradtrack/gradtrack/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EmploymentRecordRequest struct {
	CompanyName        string `json:"company_name" binding:"required"`
	JobTitle           string `json:"job_title" binding:"required"`
	EmploymentType     string `json:"employment_type" binding:"required,oneof=full-time part-time contract self-employed internship"`
	Industry           string `json:"industry"`
	Location           string `json:"location"`
	MonthlySalaryRange string `json:"monthly_salary_range"`
	StartDate          string `json:"start_date" binding:"required"`
	EndDate            string `json:"end_date"`
	IsCurrent          bool   `json:"is_current"`
	IsRelatedToDegree  bool   `json:"is_related_to_degree"`
}

// toRecord validates the request dates and copies it onto record.
func (req EmploymentRecordRequest) toRecord(record *models.EmploymentRecord) error {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return errors.New("start_date must be formatted YYYY-MM-DD")
	}

	var end *time.Time
	if req.EndDate != "" {
		parsed, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return errors.New("end_date must be formatted YYYY-MM-DD")
		}
		if parsed.Before(start) {
			return errors.New("end_date cannot be before start_date")
		}
		if req.IsCurrent {
			return errors.New("current employment cannot have an end_date")
		}
		end = &parsed
	}

	record.CompanyName = strings.TrimSpace(req.CompanyName)
	record.JobTitle = strings.TrimSpace(req.JobTitle)
	record.EmploymentType = req.EmploymentType
	record.Industry = strings.TrimSpace(req.Industry)
	record.Location = strings.TrimSpace(req.Location)
	record.MonthlySalaryRange = strings.TrimSpace(req.MonthlySalaryRange)
	record.StartDate = start
	record.EndDate = end
	record.IsCurrent = end == nil
	record.IsRelatedToDegree = req.IsRelatedToDegree

	return nil
}

// applyCurrentRecord copies a current record into the profile's employment summary.
func applyCurrentRecord(tx *gorm.DB, profile models.Profile, record models.EmploymentRecord) error {
	if !record.IsCurrent {
		return nil
	}

	status := types.EmploymentEmployed
	if record.EmploymentType == "self-employed" {
		status = types.EmploymentSelfEmployed
	}

	return tx.Model(&profile).Updates(withReview(profile, map[string]interface{}{
		"employment_status": status,
		"current_job_title": record.JobTitle,
		"current_employer":  record.CompanyName,
	})).Error
}

func ListEmploymentRecords(ctx *gin.Context) {
	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	var records []models.EmploymentRecord

	if err := db.DB.Where("profile_id = ?", profile.ID).Order("start_date DESC").Find(&records).Error; err != nil {
		internalError(ctx, "Failed to list employment records", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"employment_records": records})
}

func CreateEmploymentRecord(ctx *gin.Context) {
	var req EmploymentRecordRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	record := models.EmploymentRecord{}
	if err := req.toRecord(&record); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}
	record.ProfileID = profile.ID

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return applyCurrentRecord(tx, profile, record)
	})

	if err != nil {
		internalError(ctx, "Failed to create employment record", err)
		return
	}

	auditRecord(ctx, record.ID, "employment.create")
	BroadcastRefresh()

	ctx.JSON(http.StatusCreated, gin.H{"employment_record": record})
}

// loadOwnRecord fetches a record of the current user's profile or writes the error response.
func loadOwnRecord(ctx *gin.Context, profile models.Profile) (models.EmploymentRecord, bool) {
	var record models.EmploymentRecord

	recordID, err := utils.GetUintParam(ctx, "record_id", "Record ID")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return record, false
	}

	if err := db.DB.Where("id = ? AND profile_id = ?", recordID, profile.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Employment record not found"})
		} else {
			internalError(ctx, "Failed to fetch employment record", err)
		}
		return record, false
	}

	return record, true
}

func UpdateEmploymentRecord(ctx *gin.Context) {
	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	record, ok := loadOwnRecord(ctx, profile)
	if !ok {
		return
	}

	var req EmploymentRecordRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	if err := req.toRecord(&record); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&record).Error; err != nil {
			return err
		}
		return applyCurrentRecord(tx, profile, record)
	})

	if err != nil {
		internalError(ctx, "Failed to update employment record", err)
		return
	}

	auditRecord(ctx, record.ID, "employment.update")
	BroadcastRefresh()

	ctx.JSON(http.StatusOK, gin.H{"employment_record": record})
}

func DeleteEmploymentRecord(ctx *gin.Context) {
	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	record, ok := loadOwnRecord(ctx, profile)
	if !ok {
		return
	}

	if err := db.DB.Delete(&record).Error; err != nil {
		internalError(ctx, "Failed to delete employment record", err)
		return
	}

	auditRecord(ctx, record.ID, "employment.delete")
	BroadcastRefresh()

	ctx.JSON(http.StatusOK, gin.H{"message": "Employment record deleted successfully"})
}

func auditRecord(ctx *gin.Context, recordID uint, action string) {
	userID, _ := utils.GetCurrentUserID(ctx)

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &userID,
		Action:    action,
		Entity:    "employment_record",
		EntityID:  &recordID,
		IPAddress: ctx.ClientIP(),
	})
}
