// Package email delivers notification emails over SMTP via go-mail.
// Delivery is best-effort; a failed email never affects the state
// transition it announces.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers a rendered notification email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, title, body, ctaURL string) error
}

// SMTPSender implements Sender using a direct SMTP connection.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

var notificationTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2430;">
  <h2>{{.Title}}</h2>
  <p>{{.Body}}</p>
  {{if .CTAURL}}<p><a href="{{.CTAURL}}" style="display:inline-block;padding:10px 18px;background:#2f6fed;color:#ffffff;text-decoration:none;border-radius:6px;">View in the app</a></p>{{end}}
</body>
</html>`))

type notificationData struct {
	Title  string
	Body   string
	CTAURL string
}

// Send renders the notification template and delivers it.
func (s *SMTPSender) Send(ctx context.Context, toEmail, subject, title, body, ctaURL string) error {
	var content bytes.Buffer
	err := notificationTemplate.Execute(&content, notificationData{Title: title, Body: body, CTAURL: ctaURL})
	if err != nil {
		return fmt.Errorf("render notification email: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, content.String())

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
