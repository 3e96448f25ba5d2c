package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/snakr/snakr-api/config"
)

// EmailService отправляет письма-приглашения по SMTP. При пустом SMTPHost
// сервис работает вхолостую и пишет ссылку в лог: удобно для разработки
// и не ломает поток создания приглашения.
type EmailService struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewEmailService(cfg *config.Config, logger *slog.Logger) *EmailService {
	return &EmailService{cfg: cfg, logger: logger}
}

var inviteEmailTemplate = template.Must(template.New("invite").Parse(`
<p>Вас пригласили в домохозяйство <b>{{.HouseholdName}}</b>.</p>
<p><a href="{{.InviteLink}}">Принять приглашение</a></p>
<p>Ссылка действует до {{.ExpiresAt}}.</p>
`))

func (s *EmailService) SendInvitationEmail(email, householdName, inviteLink string, expiresAt time.Time) error {
	if s.cfg.SMTPHost == "" {
		s.logger.Info("SMTP is not configured, invitation link available in log",
			slog.String("email", email),
			slog.String("invite_link", inviteLink))
		return nil
	}

	data := struct {
		HouseholdName string
		InviteLink    string
		ExpiresAt     string
	}{
		HouseholdName: householdName,
		InviteLink:    inviteLink,
		ExpiresAt:     expiresAt.Format("02.01.2006 15:04 MST"),
	}

	var body bytes.Buffer
	if err := inviteEmailTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("ошибка генерации тела письма-приглашения: %w", err)
	}

	subject := fmt.Sprintf("Приглашение в домохозяйство %s", householdName)
	return s.sendEmail([]string{email}, subject, body.String())
}

func (s *EmailService) sendEmail(to []string, subject, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("ошибка TLS соединения: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("ошибка соединения SMTP: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("ошибка команды STARTTLS: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("ошибка аутентификации SMTP: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("ошибка MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("ошибка RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("ошибка команды DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("ошибка записи сообщения: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия DATA: %w", err)
	}

	return nil
}
