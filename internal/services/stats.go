package services

import (
	"math"
	"sort"

	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/types"
)

type PercentageBar struct {
	Label      string  `json:"label"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type YearEmployment struct {
	Year     int   `json:"year"`
	Total    int64 `json:"total"`
	Employed int64 `json:"employed"`
}

type YearRate struct {
	Year     int     `json:"year"`
	Total    int64   `json:"total"`
	Employed int64   `json:"employed"`
	Rate     float64 `json:"rate"`
}

// DashboardInput holds the raw counts the admin dashboard is computed from.
type DashboardInput struct {
	UsersByRole            map[string]int64
	ProfilesByVerification map[string]int64
	EmploymentByStatus     map[string]int64
	Years                  []YearEmployment
	Programs               map[string]int64
	RelatedToDegree        int64
	CurrentRecords         int64
	RecentLogs             []models.SystemLog
}

type Dashboard struct {
	TotalUsers           int64              `json:"total_users"`
	UsersByRole          []PercentageBar    `json:"users_by_role"`
	TotalProfiles        int64              `json:"total_profiles"`
	ProfilesByStatus     []PercentageBar    `json:"profiles_by_status"`
	EmploymentStatus     []PercentageBar    `json:"employment_status"`
	EmploymentRate       float64            `json:"employment_rate"`
	EmploymentRateByYear []YearRate         `json:"employment_rate_by_year"`
	TopPrograms          []PercentageBar    `json:"top_programs"`
	RelatedToDegreeRatio float64            `json:"related_to_degree_ratio"`
	RecentLogs           []models.SystemLog `json:"recent_logs"`
}

const topProgramLimit = 5

// Percentage returns count/total as a percentage rounded to one decimal. A zero total yields 0.
func Percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)*1000/float64(total)) / 10
}

// Bars turns counts into percentage bars in the order of labels. Counts for
// labels not listed are still part of the total.
func Bars(labels []string, counts map[string]int64) []PercentageBar {
	total := sum(counts)
	bars := make([]PercentageBar, 0, len(labels))

	for _, label := range labels {
		bars = append(bars, PercentageBar{
			Label:      label,
			Count:      counts[label],
			Percentage: Percentage(counts[label], total),
		})
	}

	return bars
}

// TopBars returns the limit largest counts, ties broken by label.
func TopBars(counts map[string]int64, limit int) []PercentageBar {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}

	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	if len(labels) > limit {
		labels = labels[:limit]
	}

	total := sum(counts)
	bars := make([]PercentageBar, 0, len(labels))
	for _, label := range labels {
		bars = append(bars, PercentageBar{Label: label, Count: counts[label], Percentage: Percentage(counts[label], total)})
	}

	return bars
}

// EmploymentRate counts employed and self-employed graduates over every tracked
// status. Graduates who have not reported yet are left out.
func EmploymentRate(byStatus map[string]int64) float64 {
	employed := byStatus[types.EmploymentEmployed] + byStatus[types.EmploymentSelfEmployed]
	return Percentage(employed, sum(byStatus)-byStatus[types.EmploymentNotTracked])
}

func ComputeDashboard(in DashboardInput) Dashboard {
	years := make([]YearRate, 0, len(in.Years))
	for _, y := range in.Years {
		years = append(years, YearRate{Year: y.Year, Total: y.Total, Employed: y.Employed, Rate: Percentage(y.Employed, y.Total)})
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })

	logs := in.RecentLogs
	if logs == nil {
		logs = []models.SystemLog{}
	}

	return Dashboard{
		TotalUsers:           sum(in.UsersByRole),
		UsersByRole:          Bars([]string{types.RoleGraduating, types.RoleGraduated, types.RoleAdmin}, in.UsersByRole),
		TotalProfiles:        sum(in.ProfilesByVerification),
		ProfilesByStatus:     Bars([]string{types.VerificationPending, types.VerificationVerified, types.VerificationRejected}, in.ProfilesByVerification),
		EmploymentStatus:     Bars(types.EmploymentStatuses, in.EmploymentByStatus),
		EmploymentRate:       EmploymentRate(in.EmploymentByStatus),
		EmploymentRateByYear: years,
		TopPrograms:          TopBars(in.Programs, topProgramLimit),
		RelatedToDegreeRatio: Percentage(in.RelatedToDegree, in.CurrentRecords),
		RecentLogs:           logs,
	}
}

func sum(counts map[string]int64) int64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	return total
}
