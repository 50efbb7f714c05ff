// Package seed loads demo and bootstrap data into the database.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cas-gradtrack/gradtrack/internal/auth"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type Fixtures struct {
	Admins  []AdminFixture  `yaml:"admins"`
	Surveys []SurveyFixture `yaml:"surveys"`
}

type AdminFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type SurveyFixture struct {
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	TargetRole  string            `yaml:"target_role"`
	Open        bool              `yaml:"open"`
	Questions   []QuestionFixture `yaml:"questions"`
}

type QuestionFixture struct {
	ID       string   `yaml:"id"`
	Text     string   `yaml:"text"`
	Type     string   `yaml:"type"`
	Options  []string `yaml:"options"`
	Required bool     `yaml:"required"`
}

// Result counts what a seeding run created. Existing rows are skipped.
type Result struct {
	Admins  int
	Surveys int
	Users   int
	Records int
	Skipped int
}

func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures file: %w", err)
	}
	return ParseFixtures(data)
}

func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("unmarshalling fixtures: %w", err)
	}

	for i, a := range fx.Admins {
		if strings.TrimSpace(a.Email) == "" || strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("admin #%d: name and email are required", i+1)
		}
		if len(a.Password) < 6 {
			return nil, fmt.Errorf("admin %s: password must be at least 6 characters", a.Email)
		}
	}

	for i, s := range fx.Surveys {
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("survey #%d: title is required", i+1)
		}
		switch s.TargetRole {
		case types.RoleGraduating, types.RoleGraduated, types.TargetAll:
		case "":
			fx.Surveys[i].TargetRole = types.TargetAll
		default:
			return nil, fmt.Errorf("survey %q: invalid target_role %q", s.Title, s.TargetRole)
		}
		if len(s.Questions) == 0 {
			return nil, fmt.Errorf("survey %q: at least one question is required", s.Title)
		}
	}

	return &fx, nil
}

// Apply inserts the fixtures. Admins are matched by email and surveys by
// title, so applying the same file twice is a no-op.
func Apply(ctx context.Context, tx *gorm.DB, fx *Fixtures) (Result, error) {
	var res Result

	err := tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var adminID uint

		for _, a := range fx.Admins {
			email := strings.ToLower(strings.TrimSpace(a.Email))

			var existing models.User
			err := tx.Where("email = ?", email).First(&existing).Error
			if err == nil {
				res.Skipped++
				if existing.Role == types.RoleAdmin && adminID == 0 {
					adminID = existing.ID
				}
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up %s: %w", email, err)
			}

			hash, err := auth.HashPassword(a.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", email, err)
			}

			user := models.User{
				Name:         strings.TrimSpace(a.Name),
				Email:        email,
				PasswordHash: hash,
				Role:         types.RoleAdmin,
				IsActive:     true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create admin %s: %w", email, err)
			}
			if adminID == 0 {
				adminID = user.ID
			}
			res.Admins++
		}

		for _, s := range fx.Surveys {
			var count int64
			if err := tx.Model(&models.Survey{}).Where("title = ?", s.Title).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to look up survey %q: %w", s.Title, err)
			}
			if count > 0 {
				res.Skipped++
				continue
			}

			questions := make([]models.SurveyQuestion, 0, len(s.Questions))
			for _, q := range s.Questions {
				questions = append(questions, models.SurveyQuestion{
					ID:       q.ID,
					Text:     q.Text,
					Type:     q.Type,
					Options:  q.Options,
					Required: q.Required,
				})
			}
			raw, err := json.Marshal(questions)
			if err != nil {
				return fmt.Errorf("failed to encode questions for %q: %w", s.Title, err)
			}

			survey := models.Survey{
				Title:       s.Title,
				Description: s.Description,
				TargetRole:  s.TargetRole,
				Questions:   raw,
				IsOpen:      s.Open,
				CreatedBy:   adminID,
			}
			if err := tx.Create(&survey).Error; err != nil {
				return fmt.Errorf("failed to create survey %q: %w", s.Title, err)
			}
			res.Surveys++
		}

		return nil
	})

	return res, err
}
