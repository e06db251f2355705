// Package email implements an SMTP-based email notifier
package email

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/notifier"
)

const timeLayout = "2006-01-02 15:04:05"

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	e.host = notifier.StringParam(cfg.Params, "host", e.host)
	e.port = notifier.IntParam(cfg.Params, "port", e.port)
	e.username = notifier.StringParam(cfg.Params, "username", e.username)
	e.password = notifier.StringParam(cfg.Params, "password", e.password)
	e.from = notifier.StringParam(cfg.Params, "from", e.from)
	if to := notifier.StringsParam(cfg.Params, "to"); len(to) > 0 {
		e.to = to
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	return nil
}

func (e *Email) Send(alert core.Alert) error {
	subject := fmt.Sprintf("pipboard alert: %s", strings.ToUpper(alert.Pair))
	return e.sendEmail(subject, e.formatAlert(alert))
}

func (e *Email) SendBatch(alerts []core.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	subject := fmt.Sprintf("pipboard: %d alerts for %s", len(alerts), strings.ToUpper(alerts[0].Pair))
	if len(alerts) == 1 {
		subject = fmt.Sprintf("pipboard alert: %s", strings.ToUpper(alerts[0].Pair))
	}

	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString(fmt.Sprintf("<h2>%s alerts</h2>", html.EscapeString(strings.ToUpper(alerts[0].Pair))))
	sb.WriteString(fmt.Sprintf("<p>Generated at: %s</p>", alerts[0].At.UTC().Format(timeLayout)))
	sb.WriteString("<hr>")

	for _, alert := range alerts {
		sb.WriteString(e.formatAlertHTML(alert))
		sb.WriteString("<hr>")
	}

	sb.WriteString("</body></html>")

	return e.sendEmail(subject, sb.String())
}

func (e *Email) formatAlert(alert core.Alert) string {
	return fmt.Sprintf(`
%s

Pair: %s
Strategy: %s
Kind: %s
Time: %s UTC
`,
		alert.Message,
		strings.ToUpper(alert.Pair),
		alert.Strategy,
		alert.Kind,
		alert.At.UTC().Format(timeLayout),
	)
}

func (e *Email) formatAlertHTML(alert core.Alert) string {
	color := "#6c757d" // grey for threshold rules
	switch alert.Kind {
	case core.AlertWinStreak:
		color = "#28a745"
	case core.AlertLossStreak:
		color = "#dc3545"
	}

	return fmt.Sprintf(`
<div style="margin: 10px 0;">
  <h3 style="color: %s;">%s</h3>
  <p><strong>Strategy:</strong> %s</p>
  <p><small>%s UTC</small></p>
</div>
`,
		color,
		html.EscapeString(alert.Message),
		html.EscapeString(alert.Strategy),
		alert.At.UTC().Format(timeLayout),
	)
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	contentType := "text/plain"
	if strings.Contains(body, "<html>") {
		contentType = "text/html"
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Date: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		time.Now().Format(time.RFC1123Z),
		contentType,
		body,
	)

	if err := e.send(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
