package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/rs/zerolog/log"

	"finportal/internal/mailer"
	"finportal/internal/models"
	"finportal/internal/notify"
	"finportal/internal/receipt"
	"finportal/internal/utils"
)

var (
	ErrInvalidNotification = errors.New("invalid notification request")
	ErrUnknownTemplate     = errors.New("unknown email template")
)

// NotificationRequest carries exactly one content source: HTML, Text, or Template with Data.
type NotificationRequest struct {
	To       []string
	Subject  string
	HTML     string
	Text     string
	Template string
	Data     map[string]any
	Receipt  *models.ReceiptData
	UserID   string
	Category string
}

type SendResult struct {
	ReceiptAttached bool
	ReceiptNumber   string
}

type NotificationLog interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
}

type NotificationService struct {
	mailer     mailer.Mailer
	log        NotificationLog
	alerter    notify.Alerter
	bestEffort *BestEffortRunner
	company    string
	clock      Clock
}

func NewNotificationService(m mailer.Mailer, nl NotificationLog, alerter notify.Alerter, bestEffort *BestEffortRunner, company string, clock Clock) *NotificationService {
	if clock == nil {
		clock = SystemClock
	}
	return &NotificationService{
		mailer:     m,
		log:        nl,
		alerter:    alerter,
		bestEffort: bestEffort,
		company:    company,
		clock:      clock,
	}
}

// Send renders and delivers one email. Only the provider's error is returned; receipt rendering,
// the in-app log entry and admin alerts never change the outcome.
func (s *NotificationService) Send(ctx context.Context, req NotificationRequest) (*SendResult, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	msg, err := s.render(req)
	if err != nil {
		return nil, err
	}

	res := &SendResult{}
	if req.Receipt != nil {
		if html, number, err := s.renderReceipt(*req.Receipt); err != nil {
			log.Warn().Err(err).Strs("to", req.To).Msg("[notify][send] receipt skipped")
		} else {
			msg.HTML = appendReceipt(msg, html)
			res.ReceiptAttached = true
			res.ReceiptNumber = number
		}
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Strs("to", req.To).Str("subject", msg.Subject).Msg("[notify][send] failed")
		return nil, err
	}
	log.Info().Strs("to", req.To).Str("subject", msg.Subject).Bool("receipt", res.ReceiptAttached).Msg("[notify][send] sent")

	s.afterSend(ctx, req, msg.Subject)
	return res, nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	return s.log.ListByUser(ctx, userID, limit)
}

func (s *NotificationService) validate(req *NotificationRequest) error {
	if len(req.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalidNotification)
	}
	to := make([]string, 0, len(req.To))
	for _, addr := range req.To {
		norm := utils.NormalizeEmail(addr)
		if !utils.IsEmail(norm) {
			return fmt.Errorf("%w: invalid recipient %q", ErrInvalidNotification, addr)
		}
		to = append(to, norm)
	}
	req.To = to

	sources := 0
	for _, set := range []bool{req.HTML != "", req.Text != "", req.Template != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("%w: exactly one of html, text or template is required", ErrInvalidNotification)
	}

	if req.Template != "" {
		tpl, ok := mailTemplates[req.Template]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTemplate, req.Template)
		}
		for _, key := range tpl.required {
			if v, ok := req.Data[key]; !ok || v == nil {
				return fmt.Errorf("%w: template %s needs %s", ErrInvalidNotification, req.Template, key)
			}
		}
	} else if strings.TrimSpace(req.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidNotification)
	}
	return nil
}

func (s *NotificationService) render(req NotificationRequest) (mailer.Message, error) {
	msg := mailer.Message{To: req.To, Subject: req.Subject, HTML: req.HTML, Text: req.Text}
	if req.Template == "" {
		return msg, nil
	}

	tpl := mailTemplates[req.Template]
	var body bytes.Buffer
	if err := tpl.body.Execute(&body, req.Data); err != nil {
		return msg, fmt.Errorf("%w: render %s: %v", ErrInvalidNotification, req.Template, err)
	}
	var page bytes.Buffer
	err := layoutTmpl.Execute(&page, struct {
		Company string
		Body    template.HTML
	}{s.company, template.HTML(body.String())})
	if err != nil {
		return msg, fmt.Errorf("render layout: %w", err)
	}
	msg.HTML = page.String()
	if msg.Subject == "" {
		msg.Subject = s.defaultSubject(tpl, req.Data)
	}
	return msg, nil
}

func (s *NotificationService) defaultSubject(tpl mailTemplate, data map[string]any) string {
	status := toString(data["Status"])
	if status == "" {
		status = "update"
	}
	r := strings.NewReplacer("{{company}}", s.company, "{{status}}", status)
	return r.Replace(tpl.subject)
}

func (s *NotificationService) renderReceipt(d models.ReceiptData) (string, string, error) {
	r, err := receipt.Normalize(d, s.clock.Now())
	if err != nil {
		return "", "", err
	}
	html, err := receipt.RenderHTML(s.company, r)
	if err != nil {
		return "", "", err
	}
	return html, r.ReceiptNumber, nil
}

func appendReceipt(msg mailer.Message, receiptHTML string) string {
	if msg.HTML == "" {
		return "<pre style=\"font-family:inherit;white-space:pre-wrap\">" + template.HTMLEscapeString(msg.Text) + "</pre>" + receiptHTML
	}
	if i := strings.LastIndex(strings.ToLower(msg.HTML), "</body>"); i >= 0 {
		return msg.HTML[:i] + receiptHTML + msg.HTML[i:]
	}
	return msg.HTML + receiptHTML
}

func (s *NotificationService) afterSend(ctx context.Context, req NotificationRequest, subject string) {
	if req.UserID != "" && s.log != nil {
		n := &models.Notification{
			UserID:   req.UserID,
			Title:    subject,
			Message:  summary(req),
			Category: req.Category,
		}
		s.bestEffort.Go(ctx, BestEffort{
			Name: "notification.log",
			Run:  func(ctx context.Context) error { return s.log.Create(ctx, n) },
		})
	}

	if s.alerter != nil && isMoneyCategory(req.Category) {
		text := fmt.Sprintf("<b>%s</b>\n%s\nto: %s",
			notify.Escape(strings.ToUpper(req.Category)), notify.Escape(subject), notify.Escape(strings.Join(req.To, ", ")))
		if req.Receipt != nil {
			text += fmt.Sprintf("\namount: %s %s", receipt.FormatAmount(req.Receipt.Amount), notify.Escape(req.Receipt.Currency))
		}
		s.bestEffort.Go(ctx, BestEffort{
			Name: "admin.alert",
			Run:  func(ctx context.Context) error { return s.alerter.Alert(ctx, text) },
		})
	}
}

func isMoneyCategory(c string) bool {
	switch c {
	case models.CategoryDeposit, models.CategoryWithdrawal, models.CategoryTrade:
		return true
	}
	return false
}

func summary(req NotificationRequest) string {
	if req.Text != "" {
		return truncate(req.Text, 280)
	}
	if req.Template != "" {
		return req.Template
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
