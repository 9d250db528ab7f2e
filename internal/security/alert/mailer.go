// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package alert

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
)

// # Notification Delivery

// Notifier defines the contract for delivering an alert to the operator.
type Notifier interface {
	// Notify delivers one alert. Implementations must bound their own
	// latency; the dispatcher will not wait forever.
	Notify(ctx context.Context, alert *Alert) error
}

// sendTimeout bounds one SMTP delivery, dial included.
const sendTimeout = 10 * time.Second

// SMTPNotifier delivers alerts as HTML email over SMTP.
type SMTPNotifier struct {
	client     *mail.Client
	from       string
	adminEmail string
}

// SMTPConfig holds the delivery settings for the operator mailbox.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	AdminEmail string
}

// NewSMTPNotifier constructs an SMTP-backed [Notifier].
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(sendTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("alert_smtp_client_failed: %w", err)
	}

	return &SMTPNotifier{
		client:     client,
		from:       cfg.Username,
		adminEmail: cfg.AdminEmail,
	}, nil
}

/*
Notify renders and sends one alert to the operator mailbox.

Parameters:
  - ctx: context.Context
  - alert: *Alert

Returns:
  - error: Rendering or SMTP delivery failures
*/
func (notifier *SMTPNotifier) Notify(ctx context.Context, alert *Alert) error {

	body, err := renderBody(alert)
	if err != nil {
		return fmt.Errorf("alert_render_failed: %w", err)
	}

	message := mail.NewMsg()
	if err := message.From(notifier.from); err != nil {
		return fmt.Errorf("alert_from_failed: %w", err)
	}
	if err := message.To(notifier.adminEmail); err != nil {
		return fmt.Errorf("alert_to_failed: %w", err)
	}

	message.Subject(subjectFor(alert))
	message.SetBodyString(mail.TypeTextHTML, body)

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := notifier.client.DialAndSendWithContext(sendCtx, message); err != nil {
		return fmt.Errorf("alert_smtp_send_failed: %w", err)
	}

	return nil
}

// subjectFor maps an alert kind to its operator-facing subject line.
func subjectFor(alert *Alert) string {
	switch alert.Kind {
	case KindLockout:
		return fmt.Sprintf("[Facegate] Account locked: %s", alert.Email)
	case KindSuspiciousLogin:
		return fmt.Sprintf("[Facegate] Suspicious login activity: %s", alert.Email)
	case KindSuccessInfo:
		return fmt.Sprintf("[Facegate] Login succeeded after repeated failures: %s", alert.Email)
	default:
		return fmt.Sprintf("[Facegate] Security alert: %s", alert.Email)
	}
}

// # HTML Rendering

// bodyTemplate renders the operator notice. Evidence captures are embedded
// as data URIs so the email is self-contained.
var bodyTemplate = template.Must(template.New("alert").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2 style="color: {{if .Locked}}#c0392b{{else}}#e67e22{{end}};">{{.Title}}</h2>
  <p>{{.Message}}</p>
  <table style="border-collapse: collapse;">
    <tr><td style="padding: 4px 12px 4px 0;"><b>Account</b></td><td>{{.Email}}</td></tr>
    <tr><td style="padding: 4px 12px 4px 0;"><b>Time</b></td><td>{{.Timestamp}}</td></tr>
  </table>
  {{if .Evidence}}
  <h3>Captured images</h3>
  {{range .Evidence}}
  <img src="{{.}}" alt="capture" style="max-width: 240px; margin: 4px; border: 1px solid #999;"/>
  {{end}}
  {{end}}
  <p style="color: #777; font-size: 12px;">Automated notice from the Facegate authentication gate.</p>
</body>
</html>`))

type bodyData struct {
	Title     string
	Message   string
	Email     string
	Timestamp string
	Locked    bool
	Evidence  []template.URL
}

// renderBody produces the HTML notice for an alert.
func renderBody(alert *Alert) (string, error) {
	title := "Suspicious login activity detected"
	locked := false
	switch alert.Kind {
	case KindLockout:
		title = "Account locked after repeated failures"
		locked = true
	case KindSuccessInfo:
		title = "Login succeeded during a suspicious episode"
	}

	// Captures are stored as raw base64; the data-URI form has to be marked
	// trusted or the template sanitizer strips it.
	evidence := make([]template.URL, 0, len(alert.Evidence))
	for _, capture := range alert.Evidence {
		evidence = append(evidence, template.URL("data:image/jpeg;base64,"+capture))
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, bodyData{
		Title:     title,
		Message:   alert.Message,
		Email:     alert.Email,
		Timestamp: alert.CreatedAt.Format(time.RFC1123),
		Locked:    locked,
		Evidence:  evidence,
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
