package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/cas-gradtrack/gradtrack/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SurveyRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	TargetRole  string                  `json:"target_role" binding:"required,oneof=graduating graduated all"`
	Questions   []models.SurveyQuestion `json:"questions" binding:"required,min=1,dive"`
	IsOpen      bool                    `json:"is_open"`
	OpensAt     *time.Time              `json:"opens_at"`
	ClosesAt    *time.Time              `json:"closes_at"`
}

type SurveyResponseRequest struct {
	Answers map[string]interface{} `json:"answers" binding:"required"`
}

type StudentSurvey struct {
	models.Survey
	Answered bool `json:"answered"`
}

func (req SurveyRequest) validate() error {
	seen := make(map[string]bool, len(req.Questions))

	for _, q := range req.Questions {
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true

		if (q.Type == "choice" || q.Type == "multi") && len(q.Options) == 0 {
			return fmt.Errorf("question %q needs options", q.ID)
		}
	}

	if req.OpensAt != nil && req.ClosesAt != nil && req.ClosesAt.Before(*req.OpensAt) {
		return errors.New("closes_at cannot be before opens_at")
	}

	return nil
}

// isAvailable reports whether survey accepts responses at now.
func isAvailable(survey models.Survey, now time.Time) bool {
	if !survey.IsOpen {
		return false
	}
	if survey.OpensAt != nil && now.Before(*survey.OpensAt) {
		return false
	}
	if survey.ClosesAt != nil && now.After(*survey.ClosesAt) {
		return false
	}
	return true
}

// validateAnswers checks answers against the question list.
func validateAnswers(questions []models.SurveyQuestion, answers map[string]interface{}) error {
	known := make(map[string]models.SurveyQuestion, len(questions))
	for _, q := range questions {
		known[q.ID] = q
	}

	for id := range answers {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("unknown question %q", id)
		}
	}

	for _, q := range questions {
		answer, present := answers[q.ID]

		if !present || isBlank(answer) {
			if q.Required {
				return fmt.Errorf("question %q is required", q.Text)
			}
			continue
		}

		if err := checkAnswerType(q, answer); err != nil {
			return err
		}
	}

	return nil
}

func isBlank(answer interface{}) bool {
	switch v := answer.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	}
	return false
}

func checkAnswerType(q models.SurveyQuestion, answer interface{}) error {
	invalid := fmt.Errorf("invalid answer for question %q", q.Text)

	switch q.Type {
	case "text":
		if _, ok := answer.(string); !ok {
			return invalid
		}
	case "choice":
		s, ok := answer.(string)
		if !ok || !contains(q.Options, s) {
			return invalid
		}
	case "multi":
		values, ok := answer.([]interface{})
		if !ok {
			return invalid
		}
		for _, v := range values {
			s, ok := v.(string)
			if !ok || !contains(q.Options, s) {
				return invalid
			}
		}
	case "rating":
		n, ok := answer.(float64)
		if !ok || n < 1 || n > 5 || n != float64(int(n)) {
			return invalid
		}
	case "boolean":
		if _, ok := answer.(bool); !ok {
			return invalid
		}
	}

	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func loadSurvey(ctx *gin.Context) (models.Survey, bool) {
	var survey models.Survey

	surveyID, err := utils.GetUintParam(ctx, "survey_id", "Survey ID")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return survey, false
	}

	if err := db.DB.First(&survey, surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Survey not found"})
		} else {
			internalError(ctx, "Failed to fetch survey", err)
		}
		return survey, false
	}

	return survey, true
}

func targetsRole(survey models.Survey, role string) bool {
	return survey.TargetRole == types.TargetAll || survey.TargetRole == role
}

// ListSurveys returns the open surveys addressed to the current student.
func ListSurveys(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	now := time.Now()
	var surveys []models.Survey

	if err := db.DB.
		Where("is_open = ? AND target_role IN ?", true, []string{currentUser.Role, types.TargetAll}).
		Where("opens_at IS NULL OR opens_at <= ?", now).
		Where("closes_at IS NULL OR closes_at >= ?", now).
		Order("created_at DESC").
		Find(&surveys).Error; err != nil {
		internalError(ctx, "Failed to list surveys", err)
		return
	}

	var answeredIDs []uint
	if err := db.DB.Model(&models.SurveyResponse{}).
		Where("user_id = ?", currentUser.ID).
		Pluck("survey_id", &answeredIDs).Error; err != nil {
		internalError(ctx, "Failed to list survey responses", err)
		return
	}

	answered := make(map[uint]bool, len(answeredIDs))
	for _, id := range answeredIDs {
		answered[id] = true
	}

	result := make([]StudentSurvey, 0, len(surveys))
	for _, survey := range surveys {
		result = append(result, StudentSurvey{Survey: survey, Answered: answered[survey.ID]})
	}

	ctx.JSON(http.StatusOK, gin.H{"surveys": result})
}

func GetSurvey(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	survey, ok := loadSurvey(ctx)
	if !ok {
		return
	}

	if !targetsRole(survey, currentUser.Role) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Survey not found"})
		return
	}

	var count int64
	if err := db.DB.Model(&models.SurveyResponse{}).
		Where("survey_id = ? AND user_id = ?", survey.ID, currentUser.ID).
		Count(&count).Error; err != nil {
		internalError(ctx, "Failed to check survey response", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"survey": StudentSurvey{Survey: survey, Answered: count > 0}})
}

func SubmitSurveyResponse(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	survey, ok := loadSurvey(ctx)
	if !ok {
		return
	}

	if !targetsRole(survey, currentUser.Role) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Survey not found"})
		return
	}

	if !isAvailable(survey, time.Now()) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Survey is closed"})
		return
	}

	var req SurveyResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	questions, err := survey.ParsedQuestions()
	if err != nil {
		internalError(ctx, "Failed to parse survey questions", err)
		return
	}

	if err := validateAnswers(questions, req.Answers); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answers, err := json.Marshal(req.Answers)
	if err != nil {
		internalError(ctx, "Failed to encode answers", err)
		return
	}

	response := models.SurveyResponse{
		SurveyID:    survey.ID,
		UserID:      currentUser.ID,
		Answers:     datatypes.JSON(answers),
		SubmittedAt: time.Now(),
	}

	if err := db.DB.Create(&response).Error; err != nil {
		if db.IsUniqueViolation(err) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "You have already answered this survey"})
			return
		}
		internalError(ctx, "Failed to save survey response", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &currentUser.ID,
		Action:    "survey.respond",
		Entity:    "survey",
		EntityID:  &survey.ID,
		IPAddress: ctx.ClientIP(),
	})

	BroadcastRefresh()

	surveyID, userID := survey.ID, currentUser.ID
	background(func(bgCtx context.Context) {
		services.PublishEvent(bgCtx, services.EventSurveyResponded, gin.H{"survey_id": surveyID, "user_id": userID})
	})

	ctx.JSON(http.StatusCreated, gin.H{"message": "Survey response submitted", "response": response})
}

// Admin

func ListAllSurveys(ctx *gin.Context) {
	var surveys []models.Survey

	query := db.DB.Order("created_at DESC")
	if target := ctx.Query("target_role"); target != "" {
		query = query.Where("target_role = ?", target)
	}

	if err := query.Find(&surveys).Error; err != nil {
		internalError(ctx, "Failed to list surveys", err)
		return
	}

	type surveyRow struct {
		SurveyID uint
		Count    int64
	}

	var rows []surveyRow
	if err := db.DB.Model(&models.SurveyResponse{}).
		Select("survey_id, COUNT(*) AS count").
		Group("survey_id").
		Scan(&rows).Error; err != nil {
		internalError(ctx, "Failed to count survey responses", err)
		return
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.SurveyID] = row.Count
	}

	result := make([]gin.H, 0, len(surveys))
	for _, survey := range surveys {
		result = append(result, gin.H{"survey": survey, "response_count": counts[survey.ID]})
	}

	ctx.JSON(http.StatusOK, gin.H{"surveys": result})
}

func CreateSurvey(ctx *gin.Context) {
	adminID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req SurveyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	if err := req.validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions, err := json.Marshal(req.Questions)
	if err != nil {
		internalError(ctx, "Failed to encode questions", err)
		return
	}

	survey := models.Survey{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		TargetRole:  req.TargetRole,
		Questions:   datatypes.JSON(questions),
		IsOpen:      req.IsOpen,
		OpensAt:     req.OpensAt,
		ClosesAt:    req.ClosesAt,
		CreatedBy:   adminID,
	}

	var notified int

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&survey).Error; err != nil {
			return err
		}

		if !survey.IsOpen {
			return nil
		}

		var err error
		notified, err = services.NotifyRoles(tx, types.TargetRoles(survey.TargetRole),
			"New survey",
			fmt.Sprintf("A new survey \"%s\" is available.", survey.Title),
			types.NotificationSurvey,
		)
		return err
	})

	if err != nil {
		internalError(ctx, "Failed to create survey", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &adminID,
		Action:    "survey.create",
		Entity:    "survey",
		EntityID:  &survey.ID,
		IPAddress: ctx.ClientIP(),
	})

	ctx.JSON(http.StatusCreated, gin.H{"survey": survey, "notified": notified})
}

func UpdateSurvey(ctx *gin.Context) {
	adminID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	survey, ok := loadSurvey(ctx)
	if !ok {
		return
	}

	var req SurveyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	if err := req.validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions, err := json.Marshal(req.Questions)
	if err != nil {
		internalError(ctx, "Failed to encode questions", err)
		return
	}

	wasOpen := survey.IsOpen

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&survey).Updates(map[string]interface{}{
			"title":       strings.TrimSpace(req.Title),
			"description": strings.TrimSpace(req.Description),
			"target_role": req.TargetRole,
			"questions":   datatypes.JSON(questions),
			"is_open":     req.IsOpen,
			"opens_at":    req.OpensAt,
			"closes_at":   req.ClosesAt,
		}).Error; err != nil {
			return err
		}

		if wasOpen || !req.IsOpen {
			return nil
		}

		_, err := services.NotifyRoles(tx, types.TargetRoles(req.TargetRole),
			"New survey",
			fmt.Sprintf("A new survey \"%s\" is available.", strings.TrimSpace(req.Title)),
			types.NotificationSurvey,
		)
		return err
	})

	if err != nil {
		internalError(ctx, "Failed to update survey", err)
		return
	}

	if err := db.DB.First(&survey, survey.ID).Error; err != nil {
		internalError(ctx, "Failed to reload survey", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &adminID,
		Action:    "survey.update",
		Entity:    "survey",
		EntityID:  &survey.ID,
		IPAddress: ctx.ClientIP(),
	})

	ctx.JSON(http.StatusOK, gin.H{"survey": survey})
}

func DeleteSurvey(ctx *gin.Context) {
	adminID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	survey, ok := loadSurvey(ctx)
	if !ok {
		return
	}

	if err := db.DB.Delete(&survey).Error; err != nil {
		internalError(ctx, "Failed to delete survey", err)
		return
	}

	services.Audit(ctx.Request.Context(), services.AuditEntry{
		UserID:    &adminID,
		Action:    "survey.delete",
		Entity:    "survey",
		EntityID:  &survey.ID,
		IPAddress: ctx.ClientIP(),
	})

	BroadcastRefresh()

	ctx.JSON(http.StatusOK, gin.H{"message": "Survey deleted successfully"})
}

type SurveyResponseRow struct {
	ID          uint           `json:"id"`
	UserID      uint           `json:"user_id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	Answers     datatypes.JSON `json:"answers"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

func ListSurveyResponses(ctx *gin.Context) {
	survey, ok := loadSurvey(ctx)
	if !ok {
		return
	}

	var rows []SurveyResponseRow

	if err := db.DB.Table("survey_responses").
		Select("survey_responses.id, survey_responses.user_id, users.name, users.email, users.role, survey_responses.answers, survey_responses.submitted_at").
		Joins("JOIN users ON users.id = survey_responses.user_id").
		Where("survey_responses.survey_id = ?", survey.ID).
		Order("survey_responses.submitted_at DESC").
		Scan(&rows).Error; err != nil {
		internalError(ctx, "Failed to list survey responses", err)
		return
	}

	if rows == nil {
		rows = []SurveyResponseRow{}
	}

	ctx.JSON(http.StatusOK, gin.H{"survey": survey, "responses": rows})
}
