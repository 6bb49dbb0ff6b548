package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"net/url"
	"strings"
	"time"
	"topper-backend/config"

	"github.com/dustin/go-humanize"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// InvitationEmail is everything needed to tell a sender about their invitation.
type InvitationEmail struct {
	ToEmail       string
	ToName        string
	OrganiserName string
	StoryTitle    string
	RevealDate    time.Time
	Token         string
	ExpiresAt     time.Time
}

// Notifier delivers invitation emails. Implementations report failures; the
// caller decides what to do with them.
type Notifier interface {
	NotifyInvitation(ctx context.Context, email InvitationEmail) error
	NotifyReminder(ctx context.Context, email InvitationEmail) error
}

// ============================================================
// EMAIL NOTIFICATIONS via SendGrid
// ============================================================

type SendGridNotifier struct {
	client    *sendgrid.Client
	fromEmail string
	appName   string
	appURL    string
	now       func() time.Time
}

func NewSendGridNotifier(cfg *config.Config) *SendGridNotifier {
	n := &SendGridNotifier{
		fromEmail: cfg.SendGridFrom,
		appName:   cfg.AppName,
		appURL:    strings.TrimRight(cfg.AppURL, "/"),
		now:       time.Now,
	}
	if cfg.SendGridAPIKey != "" {
		n.client = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	return n
}

func (n *SendGridNotifier) NotifyInvitation(ctx context.Context, email InvitationEmail) error {
	subject := fmt.Sprintf("%s invited you to add to \"%s\"", fallback(email.OrganiserName, "Someone"), email.StoryTitle)
	body, err := n.render(invitationTemplate, email)
	if err != nil {
		return err
	}
	return n.send(ctx, email, subject, body)
}

func (n *SendGridNotifier) NotifyReminder(ctx context.Context, email InvitationEmail) error {
	subject := fmt.Sprintf("Reminder: \"%s\" is waiting for your message", email.StoryTitle)
	body, err := n.render(reminderTemplate, email)
	if err != nil {
		return err
	}
	return n.send(ctx, email, subject, body)
}

func (n *SendGridNotifier) send(ctx context.Context, email InvitationEmail, subject, htmlBody string) error {
	if n.client == nil {
		log.Printf("⚠️  SendGrid API key not set, skipping email to %s", email.ToEmail)
		return nil
	}

	from := mail.NewEmail(n.appName, n.fromEmail)
	to := mail.NewEmail(email.ToName, email.ToEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	log.Printf("✅ Email sent to %s", email.ToEmail)
	return nil
}

func (n *SendGridNotifier) acceptURL(token string) string {
	return n.appURL + "/accept?token=" + url.QueryEscape(token)
}

func (n *SendGridNotifier) render(tmpl *template.Template, email InvitationEmail) (string, error) {
	data := map[string]interface{}{
		"AppName":       n.appName,
		"SenderName":    email.ToName,
		"OrganiserName": fallback(email.OrganiserName, "Someone"),
		"StoryTitle":    email.StoryTitle,
		"RevealDate":    email.RevealDate.Format("Monday, 2 January 2006"),
		"AcceptURL":     n.acceptURL(email.Token),
		"ExpiresIn":     "",
	}
	if !email.ExpiresAt.IsZero() {
		data["ExpiresIn"] = humanize.RelTime(email.ExpiresAt, n.now(), "ago", "from now")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ============================================================
// EMAIL TEMPLATES
// ============================================================

var invitationTemplate = template.Must(template.New("invitation").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #d63384; margin-top: 0;">🎂 You're invited!</h2>
		<p>Hi <strong>{{.SenderName}}</strong>,</p>
		<p><strong>{{.OrganiserName}}</strong> is putting together <strong>"{{.StoryTitle}}"</strong>, revealed on {{.RevealDate}}, and would love a photo, video or message from you.</p>
		<div style="margin: 24px 0;">
			<a href="{{.AcceptURL}}" style="background: #d63384; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">Add your message</a>
		</div>
		{{if .ExpiresIn}}<p style="color: #666;">This link expires {{.ExpiresIn}}.</p>{{end}}
		<p style="color: #999; font-size: 12px; margin-top: 24px;">Sent with {{.AppName}}</p>
	</div>
</body>
</html>`))

var reminderTemplate = template.Must(template.New("reminder").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #d63384; margin-top: 0;">⏰ Don't miss the reveal</h2>
		<p>Hi <strong>{{.SenderName}}</strong>,</p>
		<p><strong>{{.OrganiserName}}</strong> is still hoping to include you in <strong>"{{.StoryTitle}}"</strong> before {{.RevealDate}}.</p>
		<div style="margin: 24px 0;">
			<a href="{{.AcceptURL}}" style="background: #d63384; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">Add your message</a>
		</div>
		{{if .ExpiresIn}}<p style="color: #666;">This link expires {{.ExpiresIn}}.</p>{{end}}
		<p style="color: #999; font-size: 12px; margin-top: 24px;">Sent with {{.AppName}}</p>
	</div>
</body>
</html>`))
