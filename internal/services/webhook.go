package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/types"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	ColorRed    = 16711680 // rejected
	ColorGreen  = 65280    // verified
	ColorOrange = 16753920 // pending review

	Username = "GradTrack"
)

var (
	webhookMu     sync.RWMutex
	webhookConfig config.WebhookSettings
	webhookClient = &http.Client{Timeout: 10 * time.Second}
)

func ConfigureWebhooks(settings config.WebhookSettings) {
	webhookMu.Lock()
	defer webhookMu.Unlock()
	webhookConfig = settings
}

func currentWebhooks() config.WebhookSettings {
	webhookMu.RLock()
	defer webhookMu.RUnlock()
	return webhookConfig
}

// SendProfileSubmittedAlert tells the admin channels that a profile awaits review.
func SendProfileSubmittedAlert(user models.User, profile models.Profile) error {
	hooks := currentWebhooks()
	name := displayName(user, profile)

	if hooks.DiscordURL != "" {
		payload := DiscordWebhookRequest{
			Username: Username,
			Embeds: []DiscordEmbed{
				{
					Title:       "📝 **PROFILE SUBMITTED**",
					Description: fmt.Sprintf("**%s** submitted a profile for verification.", name),
					Color:       ColorOrange,
					Fields: []DiscordWebhookField{
						{Name: "Role", Value: user.Role, Inline: true},
						{Name: "Program", Value: valueOrUnknown(profile.Program), Inline: true},
						{Name: "Student Number", Value: valueOrUnknown(profile.StudentNumber), Inline: true},
						{Name: "Employment", Value: valueOrUnknown(profile.EmploymentStatus), Inline: true},
					},
					Footer:    &DiscordFooter{Text: "GradTrack | Profile review"},
					Timestamp: time.Now().Format(time.RFC3339),
				},
			},
		}

		if err := sendDiscordWebhook(hooks.DiscordURL, payload); err != nil {
			return fmt.Errorf("discord: %w", err)
		}
	}

	if hooks.SlackURL != "" {
		payload := SlackWebhookRequest{
			Username:  Username,
			IconEmoji: ":memo:",
			Text:      ":memo: *PROFILE SUBMITTED*",
			Attachments: []SlackAttachment{
				{
					Color: "warning",
					Title: fmt.Sprintf("%s submitted a profile for verification", name),
					Fields: []SlackField{
						{Title: "Role", Value: user.Role, Short: true},
						{Title: "Program", Value: valueOrUnknown(profile.Program), Short: true},
						{Title: "Student Number", Value: valueOrUnknown(profile.StudentNumber), Short: true},
						{Title: "Employment", Value: valueOrUnknown(profile.EmploymentStatus), Short: true},
					},
					Footer:    "GradTrack",
					Timestamp: time.Now().Unix(),
				},
			},
		}

		if err := sendSlackWebhook(hooks.SlackURL, payload); err != nil {
			return fmt.Errorf("slack: %w", err)
		}
	}

	return nil
}

// SendVerificationAlert reports an admin verification decision.
func SendVerificationAlert(user models.User, profile models.Profile, reviewer string) error {
	hooks := currentWebhooks()
	name := displayName(user, profile)

	color, slackColor, icon := ColorOrange, "warning", "⏳"
	switch profile.VerificationStatus {
	case types.VerificationVerified:
		color, slackColor, icon = ColorGreen, "good", "✅"
	case types.VerificationRejected:
		color, slackColor, icon = ColorRed, "danger", "❌"
	}

	status := strings.ToUpper(profile.VerificationStatus)

	if hooks.DiscordURL != "" {
		payload := DiscordWebhookRequest{
			Username: Username,
			Embeds: []DiscordEmbed{
				{
					Title:       fmt.Sprintf("%s **PROFILE %s**", icon, status),
					Description: fmt.Sprintf("**%s** was marked %s by %s.", name, profile.VerificationStatus, reviewer),
					Color:       color,
					Fields: []DiscordWebhookField{
						{Name: "Role", Value: user.Role, Inline: true},
						{Name: "Program", Value: valueOrUnknown(profile.Program), Inline: true},
						{Name: "Remarks", Value: valueOrUnknown(profile.VerificationRemarks), Inline: false},
					},
					Footer:    &DiscordFooter{Text: "GradTrack | Profile review"},
					Timestamp: time.Now().Format(time.RFC3339),
				},
			},
		}

		if err := sendDiscordWebhook(hooks.DiscordURL, payload); err != nil {
			return fmt.Errorf("discord: %w", err)
		}
	}

	if hooks.SlackURL != "" {
		payload := SlackWebhookRequest{
			Username: Username,
			Text:     fmt.Sprintf("%s *PROFILE %s*", icon, status),
			Attachments: []SlackAttachment{
				{
					Color: slackColor,
					Title: fmt.Sprintf("%s was marked %s by %s", name, profile.VerificationStatus, reviewer),
					Text:  profile.VerificationRemarks,
					Fields: []SlackField{
						{Title: "Role", Value: user.Role, Short: true},
						{Title: "Program", Value: valueOrUnknown(profile.Program), Short: true},
					},
					Footer:    "GradTrack",
					Timestamp: time.Now().Unix(),
				},
			},
		}

		if err := sendSlackWebhook(hooks.SlackURL, payload); err != nil {
			return fmt.Errorf("slack: %w", err)
		}
	}

	return nil
}

func displayName(user models.User, profile models.Profile) string {
	full := strings.TrimSpace(strings.Join([]string{profile.FirstName, profile.LastName}, " "))
	if full != "" {
		return full
	}
	return user.Name
}

func valueOrUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}
	return value
}

func sendDiscordWebhook(webhookURL string, payload DiscordWebhookRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	resp, err := webhookClient.Post(webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Discord webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func sendSlackWebhook(webhookURL string, payload SlackWebhookRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	resp, err := webhookClient.Post(webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send Slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}
