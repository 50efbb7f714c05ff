// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/stretchr/testify/require"
)

const (
	TestJWTSecret = "test-secret-key-for-gradtrack"
	TestPassword  = "password123"
)

// SetupTestDB points db.DB at a fresh migrated in-memory sqlite database.
func SetupTestDB(t *testing.T) {
	t.Helper()

	require.NoError(t, db.ConnectDatabase(config.DatabaseSettings{Type: config.SqliteDbType, DSN: ":memory:"}))
	require.NoError(t, db.MigrateDatabase())
	require.NoError(t, auth.InitJWT(TestJWTSecret, time.Hour))

	t.Cleanup(func() {
		_ = db.Close()
		db.DB = nil
	})
}

// CreateUser inserts an active user with TestPassword. Students also get an empty pending profile.
func CreateUser(t *testing.T, name, email, role string) models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	require.NoError(t, err)

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.DB.Create(&user).Error)

	if types.IsStudentRole(role) {
		profile := models.Profile{
			UserID:             user.ID,
			EmploymentStatus:   types.EmploymentNotTracked,
			VerificationStatus: types.VerificationPending,
		}
		require.NoError(t, db.DB.Create(&profile).Error)
	}

	return user
}

// Token returns a valid JWT for user.
func Token(t *testing.T, user models.User) string {
	t.Helper()

	token, err := auth.GenerateJWT(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	return token
}

func IntPtr(v int) *int { return &v }
