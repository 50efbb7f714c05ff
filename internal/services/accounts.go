package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"gorm.io/gorm"
)

var ErrAccountExists = errors.New("email or student number already exists")

type IssueAccountInput struct {
	Name          string
	Email         string
	Role          string
	StudentNumber string
}

type IssuedAccount struct {
	User              models.User
	TemporaryPassword string
}

// IssueAccount creates a user with a temporary password that must be changed
// on first login, an empty profile for student roles and a welcome notification.
func IssueAccount(ctx context.Context, tx *gorm.DB, in IssueAccountInput) (IssuedAccount, error) {
	var issued IssuedAccount

	if in.Role != types.RoleAdmin && !types.IsStudentRole(in.Role) {
		return issued, fmt.Errorf("invalid role %q", in.Role)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	studentNumber := strings.TrimSpace(in.StudentNumber)

	var count int64
	if err := tx.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return issued, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return issued, ErrAccountExists
	}

	password, err := auth.GenerateTemporaryPassword()
	if err != nil {
		return issued, fmt.Errorf("failed to generate temporary password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return issued, fmt.Errorf("failed to hash temporary password: %w", err)
	}

	user := models.User{
		Name:               strings.TrimSpace(in.Name),
		Email:              email,
		PasswordHash:       hash,
		Role:               in.Role,
		IsActive:           true,
		MustChangePassword: true,
	}
	if studentNumber != "" {
		user.StudentNumber = &studentNumber
	}

	err = tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if types.IsStudentRole(user.Role) {
			if err := tx.Create(&models.Profile{
				UserID:             user.ID,
				StudentNumber:      studentNumber,
				EmploymentStatus:   types.EmploymentNotTracked,
				VerificationStatus: types.VerificationPending,
			}).Error; err != nil {
				return err
			}
		}

		return Notify(tx, []uint{user.ID},
			"Welcome to GradTrack",
			"Your account has been created. Please change your temporary password and complete your profile.",
			types.NotificationAccount,
		)
	})

	if err != nil {
		if db.IsUniqueViolation(err) {
			return issued, ErrAccountExists
		}
		return issued, fmt.Errorf("failed to issue account: %w", err)
	}

	return IssuedAccount{User: user, TemporaryPassword: password}, nil
}
