package services

import (
	"context"
	"fmt"

	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"gorm.io/gorm"
)

const recentLogLimit = 10

type labelCount struct {
	Label string
	Count int64
}

func toMap(rows []labelCount) map[string]int64 {
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Label] = row.Count
	}
	return counts
}

// graduateProfiles scopes a query to profiles owned by active graduated users.
func graduateProfiles(tx *gorm.DB) *gorm.DB {
	return tx.Table("profiles").
		Joins("JOIN users ON users.id = profiles.user_id AND users.deleted_at IS NULL").
		Where("users.role = ?", types.RoleGraduated)
}

// LoadDashboardInput gathers the counts feeding ComputeDashboard.
func LoadDashboardInput(ctx context.Context, tx *gorm.DB) (DashboardInput, error) {
	tx = tx.WithContext(ctx)
	var in DashboardInput

	var roles []labelCount
	if err := tx.Model(&models.User{}).
		Select("role AS label, COUNT(*) AS count").
		Group("role").
		Scan(&roles).Error; err != nil {
		return in, fmt.Errorf("failed to count users: %w", err)
	}
	in.UsersByRole = toMap(roles)

	var verification []labelCount
	if err := tx.Table("profiles").
		Joins("JOIN users ON users.id = profiles.user_id AND users.deleted_at IS NULL").
		Where("users.role IN ?", []string{types.RoleGraduating, types.RoleGraduated}).
		Select("profiles.verification_status AS label, COUNT(*) AS count").
		Group("profiles.verification_status").
		Scan(&verification).Error; err != nil {
		return in, fmt.Errorf("failed to count profiles: %w", err)
	}
	in.ProfilesByVerification = toMap(verification)

	var employment []labelCount
	if err := graduateProfiles(tx).
		Select("profiles.employment_status AS label, COUNT(*) AS count").
		Group("profiles.employment_status").
		Scan(&employment).Error; err != nil {
		return in, fmt.Errorf("failed to count employment status: %w", err)
	}
	in.EmploymentByStatus = toMap(employment)

	if err := graduateProfiles(tx).
		Select(
			"profiles.year_graduated AS year, COUNT(*) AS total, "+
				"SUM(CASE WHEN profiles.employment_status IN (?, ?) THEN 1 ELSE 0 END) AS employed",
			types.EmploymentEmployed, types.EmploymentSelfEmployed,
		).
		Where("profiles.year_graduated IS NOT NULL AND profiles.employment_status <> ?", types.EmploymentNotTracked).
		Group("profiles.year_graduated").
		Scan(&in.Years).Error; err != nil {
		return in, fmt.Errorf("failed to compute yearly employment: %w", err)
	}

	var programs []labelCount
	if err := graduateProfiles(tx).
		Select("profiles.program AS label, COUNT(*) AS count").
		Where("profiles.program <> ''").
		Group("profiles.program").
		Scan(&programs).Error; err != nil {
		return in, fmt.Errorf("failed to count programs: %w", err)
	}
	in.Programs = toMap(programs)

	if err := tx.Model(&models.EmploymentRecord{}).
		Where("is_current = ?", true).
		Count(&in.CurrentRecords).Error; err != nil {
		return in, fmt.Errorf("failed to count employment records: %w", err)
	}

	if err := tx.Model(&models.EmploymentRecord{}).
		Where("is_current = ? AND is_related_to_degree = ?", true, true).
		Count(&in.RelatedToDegree).Error; err != nil {
		return in, fmt.Errorf("failed to count related employment: %w", err)
	}

	if err := tx.Order("created_at DESC").Limit(recentLogLimit).Find(&in.RecentLogs).Error; err != nil {
		return in, fmt.Errorf("failed to load recent logs: %w", err)
	}

	return in, nil
}
