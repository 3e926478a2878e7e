// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

type NotificationService struct {
	config *config.Config
	log    *logrus.Entry
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	return &NotificationService{
		config: cfg,
		log:    logrus.WithField("service", "notification"),
	}
}

// SendEmailConfirmation mails the activation link after registration.
// Registration rolls back when this fails, so the error must be real.
func (s *NotificationService) SendEmailConfirmation(user *models.User, token string) error {
	tmpl := s.getEmailTemplate("email_confirmation")

	data := map[string]interface{}{
		"Name":       user.DisplayName(),
		"ConfirmURL": fmt.Sprintf("%s/confirm-email?token=%s", s.config.Site.FrontendURL, token),
		"SiteName":   s.config.Site.Name,
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, tmpl.Subject, body)
}

// SendOrderReceipt is best effort; payment reconciliation never depends
// on it succeeding.
func (s *NotificationService) SendOrderReceipt(user *models.User, order *models.Order) error {
	tmpl := s.getEmailTemplate("order_receipt")

	data := map[string]interface{}{
		"Name":      user.DisplayName(),
		"OrderCode": order.Code,
		"Total":     order.Total.StringFixed(2),
		"Currency":  string(order.Currency),
		"OrderURL":  fmt.Sprintf("%s/orders/%s", s.config.Site.FrontendURL, order.ID),
		"SiteName":  s.config.Site.Name,
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, fmt.Sprintf("%s (Order %s)", tmpl.Subject, order.Code), body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		s.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email not configured, skipping send")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.config.Email.FromName, s.config.Email.FromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"email_confirmation": {
			Subject: "Confirm your email",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Thanks for creating an account at {{.SiteName}}. Confirm your email address to activate it:</p>
	<a href="{{.ConfirmURL}}">Confirm Email</a>
	<p>The link is valid for 24 hours. If you did not sign up, ignore this message.</p>
	<p>The {{.SiteName}} Team</p>
</body>
</html>`,
		},
		"order_receipt": {
			Subject: "Payment received",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>We received your payment of {{.Total}} {{.Currency}} for order {{.OrderCode}}.</p>
	<p>We will start working on it right away. You can follow progress here:</p>
	<a href="{{.OrderURL}}">View Order</a>
	<p>The {{.SiteName}} Team</p>
</body>
</html>`,
		},
	}

	if tmpl, exists := templates[templateType]; exists {
		return tmpl
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
