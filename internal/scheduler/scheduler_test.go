package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/testutil"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJobImmediatelyAndStops(t *testing.T) {
	var calls int32
	s := NewScheduler()

	s.Start([]Job{{
		Name:     "count",
		Interval: time.Hour,
		Run: func(context.Context, time.Time) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	}})

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"count"}, s.GetStatus()["jobs"])

	s.Stop()
	assert.Equal(t, false, s.GetStatus()["running"])
}

func TestPurgeResetCodes(t *testing.T) {
	testutil.SetupTestDB(t)
	now := time.Now()
	used := now.Add(-time.Minute)

	require.NoError(t, db.DB.Create(&[]models.ResetCode{
		{Email: "a@example.edu", Code: "111111", ExpiresAt: now.Add(-time.Minute)},
		{Email: "b@example.edu", Code: "222222", ExpiresAt: now.Add(10 * time.Minute), UsedAt: &used},
		{Email: "c@example.edu", Code: "333333", ExpiresAt: now.Add(10 * time.Minute)},
	}).Error)

	require.NoError(t, PurgeResetCodes(context.Background(), now))

	var remaining []models.ResetCode
	require.NoError(t, db.DB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "c@example.edu", remaining[0].Email)
}

func TestCloseExpiredSurveys(t *testing.T) {
	testutil.SetupTestDB(t)
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := models.Survey{Title: "Old", TargetRole: types.TargetAll, IsOpen: true, ClosesAt: &past}
	running := models.Survey{Title: "New", TargetRole: types.TargetAll, IsOpen: true, ClosesAt: &future}
	require.NoError(t, db.DB.Create(&expired).Error)
	require.NoError(t, db.DB.Create(&running).Error)

	require.NoError(t, CloseExpiredSurveys(context.Background(), now))

	require.NoError(t, db.DB.First(&expired, expired.ID).Error)
	require.NoError(t, db.DB.First(&running, running.ID).Error)
	assert.False(t, expired.IsOpen)
	assert.True(t, running.IsOpen)
}

func TestSendSurveyReminders(t *testing.T) {
	testutil.SetupTestDB(t)

	ana := testutil.CreateUser(t, "Ana", "ana@example.edu", types.RoleGraduated)
	ben := testutil.CreateUser(t, "Ben", "ben@example.edu", types.RoleGraduated)
	testutil.CreateUser(t, "Cy", "cy@example.edu", types.RoleGraduating)

	survey := models.Survey{Title: "Tracer", TargetRole: types.RoleGraduated, IsOpen: true}
	require.NoError(t, db.DB.Create(&survey).Error)
	require.NoError(t, db.DB.Create(&models.SurveyResponse{SurveyID: survey.ID, UserID: ana.ID, SubmittedAt: time.Now()}).Error)

	now := time.Now()
	require.NoError(t, SendSurveyReminders(context.Background(), now))

	var notifications []models.Notification
	require.NoError(t, db.DB.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, ben.ID, notifications[0].UserID)

	// Within the reminder interval nobody is notified again.
	require.NoError(t, SendSurveyReminders(context.Background(), now.Add(time.Hour)))

	var count int64
	require.NoError(t, db.DB.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, SendSurveyReminders(context.Background(), now.Add(ReminderInterval+time.Minute)))
	require.NoError(t, db.DB.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSendSurveyReminders_SkipsPastDeadline(t *testing.T) {
	testutil.SetupTestDB(t)
	testutil.CreateUser(t, "Dee", "dee@example.edu", types.RoleGraduated)

	now := time.Now()
	closesAt := now.Add(-time.Minute)
	survey := models.Survey{Title: "Late", TargetRole: types.TargetAll, IsOpen: true, ClosesAt: &closesAt}
	require.NoError(t, db.DB.Create(&survey).Error)

	require.NoError(t, SendSurveyReminders(context.Background(), now))

	var count int64
	require.NoError(t, db.DB.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)

	var reloaded models.Survey
	require.NoError(t, db.DB.First(&reloaded, survey.ID).Error)
	assert.Nil(t, reloaded.LastReminderAt)
}
