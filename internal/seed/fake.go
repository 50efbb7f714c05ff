package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"gorm.io/gorm"
)

const (
	fakeEmailDomain = "graduates.example.edu"
	fakeBatchSize   = 50
)

var (
	fakePrograms = []string{
		"BS Computer Science",
		"BS Information Technology",
		"BS Mathematics",
		"BS Biology",
		"BA Communication",
		"BA Political Science",
	}
	fakeEmploymentTypes = []string{"full-time", "part-time", "contract", "self-employed", "internship"}
	fakeSalaryRanges    = []string{"below 15,000", "15,000 - 29,999", "30,000 - 49,999", "50,000 and above"}
	fakeIndustries      = []string{"Information Technology", "Education", "Government", "Healthcare", "Finance", "Retail"}
)

type FakeOptions struct {
	Count    int
	Password string
	// Seed makes the generated data reproducible when non-zero.
	Seed int64
	Now  time.Time
}

// FakeGraduates creates Count graduated users with verified profiles and a
// mix of employment histories, for demos and dashboard testing.
func FakeGraduates(ctx context.Context, tx *gorm.DB, opts FakeOptions) (Result, error) {
	var res Result

	if opts.Count <= 0 {
		return res, nil
	}
	if opts.Password == "" {
		opts.Password = "password123"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	faker := gofakeit.New(opts.Seed)

	hash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return res, fmt.Errorf("failed to hash password: %w", err)
	}

	for start := 0; start < opts.Count; start += fakeBatchSize {
		end := min(start+fakeBatchSize, opts.Count)

		err := tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for i := start; i < end; i++ {
				records, err := fakeGraduate(tx, faker, hash, opts.Now)
				if err != nil {
					return err
				}
				res.Users++
				res.Records += records
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("failed to save fake graduates: %w", err)
		}
	}

	return res, nil
}

func fakeGraduate(tx *gorm.DB, faker *gofakeit.Faker, hash string, now time.Time) (int, error) {
	first, last := faker.FirstName(), faker.LastName()
	year := faker.Number(now.Year()-8, now.Year()-1)
	studentNumber := fmt.Sprintf("%d-%05d", year-4, faker.Number(0, 99999))

	user := models.User{
		Name:          first + " " + last,
		Email:         fakeEmail(faker, first, last),
		PasswordHash:  hash,
		Role:          types.RoleGraduated,
		StudentNumber: &studentNumber,
		IsActive:      true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", user.Email, err)
	}

	birth := time.Date(year-faker.Number(21, 24), time.Month(faker.Number(1, 12)), faker.Number(1, 28), 0, 0, 0, 0, time.UTC)
	submitted := now.Add(-time.Duration(faker.Number(1, 90)) * 24 * time.Hour)

	profile := models.Profile{
		UserID:             user.ID,
		FirstName:          first,
		LastName:           last,
		Sex:                faker.RandomString([]string{"male", "female"}),
		BirthDate:          &birth,
		Phone:              faker.Phone(),
		Address:            faker.City(),
		StudentNumber:      studentNumber,
		Program:            faker.RandomString(fakePrograms),
		YearGraduated:      &year,
		EmploymentStatus:   types.EmploymentNotTracked,
		VerificationStatus: types.VerificationVerified,
		VerifiedAt:         &submitted,
		SubmittedAt:        &submitted,
	}

	switch faker.Number(1, 10) {
	case 1:
		profile.EmploymentStatus = types.EmploymentUnemployed
	case 2:
		profile.EmploymentStatus = types.EmploymentFurtherStudies
	}

	if err := tx.Create(&profile).Error; err != nil {
		return 0, fmt.Errorf("failed to create profile for %s: %w", user.Email, err)
	}

	if profile.EmploymentStatus != types.EmploymentNotTracked {
		return 0, nil
	}

	count := faker.Number(1, 3)
	jobStart := time.Date(year, time.Month(faker.Number(6, 12)), 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		if jobStart.After(now) {
			jobStart = now
		}

		record := models.EmploymentRecord{
			ProfileID:          profile.ID,
			CompanyName:        faker.Company(),
			JobTitle:           faker.JobTitle(),
			EmploymentType:     faker.RandomString(fakeEmploymentTypes),
			Industry:           faker.RandomString(fakeIndustries),
			Location:           faker.City(),
			MonthlySalaryRange: faker.RandomString(fakeSalaryRanges),
			StartDate:          jobStart,
			IsRelatedToDegree:  faker.Bool(),
		}

		if i == count-1 {
			record.IsCurrent = true
		} else {
			jobEnd := jobStart.AddDate(0, faker.Number(6, 18), 0)
			if !jobEnd.Before(now) {
				jobEnd = now
			}
			record.EndDate = &jobEnd
			jobStart = jobEnd.AddDate(0, 1, 0)
		}

		if err := tx.Create(&record).Error; err != nil {
			return 0, fmt.Errorf("failed to create employment record for %s: %w", user.Email, err)
		}

		if record.IsCurrent {
			status := types.EmploymentEmployed
			if record.EmploymentType == "self-employed" {
				status = types.EmploymentSelfEmployed
			}
			if err := tx.Model(&profile).Updates(map[string]interface{}{
				"employment_status": status,
				"current_job_title": record.JobTitle,
				"current_employer":  record.CompanyName,
			}).Error; err != nil {
				return 0, fmt.Errorf("failed to update profile for %s: %w", user.Email, err)
			}
		}
	}

	return count, nil
}

func fakeEmail(faker *gofakeit.Faker, first, last string) string {
	local := strings.ToLower(strings.Join(strings.Fields(first+" "+last), "."))
	return fmt.Sprintf("%s.%s@%s", local, faker.LetterN(6), fakeEmailDomain)
}
