package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/services"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Job names
const (
	JobPurgeResetCodes = "purge-reset-codes"
	JobCloseSurveys    = "close-surveys"
	JobSurveyReminders = "survey-reminders"
)

// ReminderInterval is the minimum gap between two reminders for the same survey.
const ReminderInterval = 24 * time.Hour

type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time) error
}

type Scheduler struct {
	jobs   map[string]*runningJob
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type runningJob struct {
	job    Job
	ticker *time.Ticker
	cancel context.CancelFunc
}

// NewScheduler initializes a new Scheduler instance
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[string]*runningJob),
		ctx:    ctx,
		cancel: cancel,
	}
}

// DefaultJobs returns the housekeeping jobs the server runs.
func DefaultJobs() []Job {
	return []Job{
		{Name: JobPurgeResetCodes, Interval: 10 * time.Minute, Run: PurgeResetCodes},
		{Name: JobCloseSurveys, Interval: 5 * time.Minute, Run: CloseExpiredSurveys},
		{Name: JobSurveyReminders, Interval: time.Hour, Run: SendSurveyReminders},
	}
}

// Start schedules every job in jobs.
func (s *Scheduler) Start(jobs []Job) {
	for _, job := range jobs {
		s.AddJob(job)
	}

	logger.LogInfo(fmt.Sprintf("Scheduler started with %d jobs", len(jobs)))
}

// Stop cancels every job and waits for running executions to return.
func (s *Scheduler) Stop() {
	s.cancel()

	s.mu.Lock()
	for _, job := range s.jobs {
		job.ticker.Stop()
		job.cancel()
	}
	s.jobs = make(map[string]*runningJob)
	s.mu.Unlock()

	s.wg.Wait()
	logger.LogInfo("Scheduler stopped")
}

// AddJob starts job, replacing a job with the same name.
func (s *Scheduler) AddJob(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.jobs[job.Name]; exists {
		existing.ticker.Stop()
		existing.cancel()
	}

	jobCtx, jobCancel := context.WithCancel(s.ctx)
	running := &runningJob{
		job:    job,
		ticker: time.NewTicker(job.Interval),
		cancel: jobCancel,
	}
	s.jobs[job.Name] = running

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(jobCtx, job)
		s.run(jobCtx, running)
	}()
}

func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[name]; exists {
		job.ticker.Stop()
		job.cancel()
		delete(s.jobs, name)
	}
}

func (s *Scheduler) run(ctx context.Context, running *runningJob) {
	defer running.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-running.ticker.C:
			s.execute(ctx, running.job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	entry := logger.L().WithField("job", job.Name)

	if err := job.Run(ctx, start); err != nil {
		entry.WithError(err).Error("Scheduled job failed")
		return
	}

	entry.WithFields(logrus.Fields{"duration_ms": time.Since(start).Milliseconds()}).Debug("Scheduled job finished")
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}

	return map[string]interface{}{
		"jobs":    names,
		"running": s.ctx.Err() == nil,
	}
}

// PurgeResetCodes deletes reset codes that expired or were used.
func PurgeResetCodes(ctx context.Context, now time.Time) error {
	result := db.DB.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", now).
		Delete(&models.ResetCode{})

	if result.Error != nil {
		return fmt.Errorf("failed to purge reset codes: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		logger.L().WithField("count", result.RowsAffected).Info("Purged reset codes")
	}

	return nil
}

// CloseExpiredSurveys closes open surveys whose closes_at has passed.
func CloseExpiredSurveys(ctx context.Context, now time.Time) error {
	result := db.DB.WithContext(ctx).
		Model(&models.Survey{}).
		Where("is_open = ? AND closes_at IS NOT NULL AND closes_at < ?", true, now).
		Update("is_open", false)

	if result.Error != nil {
		return fmt.Errorf("failed to close surveys: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		logger.L().WithField("count", result.RowsAffected).Info("Closed expired surveys")
	}

	return nil
}

// SendSurveyReminders notifies targeted users who have not answered an open
// survey, at most once per ReminderInterval for each survey. Surveys past
// closes_at get no reminder even before close-surveys has run.
func SendSurveyReminders(ctx context.Context, now time.Time) error {
	tx := db.DB.WithContext(ctx)

	var surveys []models.Survey
	if err := tx.
		Where("is_open = ?", true).
		Where("opens_at IS NULL OR opens_at <= ?", now).
		Where("closes_at IS NULL OR closes_at > ?", now).
		Where("last_reminder_at IS NULL OR last_reminder_at <= ?", now.Add(-ReminderInterval)).
		Find(&surveys).Error; err != nil {
		return fmt.Errorf("failed to load surveys: %w", err)
	}

	for _, survey := range surveys {
		err := tx.Transaction(func(tx *gorm.DB) error {
			var userIDs []uint

			if err := tx.Model(&models.User{}).
				Where("role IN ? AND is_active = ?", types.TargetRoles(survey.TargetRole), true).
				Where("id NOT IN (?)", tx.Model(&models.SurveyResponse{}).Select("user_id").Where("survey_id = ?", survey.ID)).
				Pluck("id", &userIDs).Error; err != nil {
				return err
			}

			message := fmt.Sprintf("Please answer the survey \"%s\".", survey.Title)
			if err := services.Notify(tx, userIDs, "Survey reminder", message, types.NotificationSurvey); err != nil {
				return err
			}

			return tx.Model(&survey).Update("last_reminder_at", now).Error
		})

		if err != nil {
			return fmt.Errorf("failed to remind survey %d: %w", survey.ID, err)
		}
	}

	return nil
}

// Global scheduler instance
var globalScheduler *Scheduler

// Initialize creates and starts the global scheduler
func Initialize() {
	globalScheduler = NewScheduler()
	globalScheduler.Start(DefaultJobs())
}

// Shutdown stops the global scheduler
func Shutdown() {
	if globalScheduler != nil {
		globalScheduler.Stop()
	}
}
