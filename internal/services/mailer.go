package services

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cas-gradtrack/gradtrack/internal/config"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/sirupsen/logrus"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the logger instead of delivering them.
type LogMailer struct {
	From string
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	logger.L().WithFields(logrus.Fields{
		"from":    m.From,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Body)
	return nil
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))

	if err := smtp.SendMail(addr, auth, m.From, []string{msg.To}, m.render(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}

	return nil
}

func (m SMTPMailer) render(msg Message) []byte {
	var b strings.Builder

	b.WriteString("From: " + m.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)

	return []byte(b.String())
}

// NewMailer builds the mailer selected by settings.Provider.
func NewMailer(settings config.MailSettings) Mailer {
	if settings.Provider == config.MailProviderSMTP {
		return SMTPMailer{
			Host:     settings.Host,
			Port:     settings.Port,
			Username: settings.Username,
			Password: settings.Password,
			From:     settings.From,
		}
	}

	return LogMailer{From: settings.From}
}

var (
	mailerMu      sync.RWMutex
	currentMailer Mailer = LogMailer{}
)

func SetMailer(m Mailer) {
	mailerMu.Lock()
	defer mailerMu.Unlock()
	currentMailer = m
}

func SendMail(ctx context.Context, msg Message) error {
	mailerMu.RLock()
	m := currentMailer
	mailerMu.RUnlock()

	return m.Send(ctx, msg)
}

// ResetCodeMessage is the password recovery email carrying the reset link.
// The token only ever leaves the server inside this link.
func ResetCodeMessage(email, siteURL, code, token string, ttl time.Duration) Message {
	link := fmt.Sprintf("%s/reset-password?code=%s&token=%s", strings.TrimRight(siteURL, "/"), code, token)

	return Message{
		To:      email,
		Subject: "Your GradTrack password reset code",
		Body: fmt.Sprintf(
			"We received a request to reset your password.\n\nYour reset code is %s. It expires in %d minutes.\n\nOpen this link to choose a new password: %s\n\nIf you did not request this, ignore this email.\n",
			code, int(ttl.Minutes()), link,
		),
	}
}

// AccountIssuedMessage carries the credentials of an account created by an admin.
func AccountIssuedMessage(name, email, temporaryPassword, siteURL string) Message {
	return Message{
		To:      email,
		Subject: "Your GradTrack account",
		Body: fmt.Sprintf(
			"Hello %s,\n\nAn account has been created for you.\n\nEmail: %s\nTemporary password: %s\n\nSign in at %s/login and change your password.\n",
			name, email, temporaryPassword, strings.TrimRight(siteURL, "/"),
		),
	}
}
