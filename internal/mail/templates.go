package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.5;">
  <h2>Verify your email</h2>
  <p>Use this code to verify your account:</p>
  <p style="font-size:20px;font-weight:bold;letter-spacing:2px;">{{.Code}}</p>
  <p>This code expires in {{.Minutes}} minutes.</p>
</div>`))

	contactNotificationTmpl = template.Must(template.New("contact").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.5;">
  <h2>New contact message</h2>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  <p><strong>Message:</strong></p>
  <p>{{range $i, $line := .Lines}}{{if $i}}<br/>{{end}}{{$line}}{{end}}</p>
</div>`))

	contactAutoReplyTmpl = template.Must(template.New("autoreply").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.5;">
  <p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
  <p>Thanks for reaching out! We received your message and will get back to you shortly.</p>
  <p>JobSphere Team</p>
</div>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func VerificationEmail(to, code string, minutes int) (Message, error) {
	html, err := render(verificationTmpl, struct {
		Code    string
		Minutes int
	}{code, minutes})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Verify your email", HTML: html}, nil
}

// ContactNotification goes to staff with Reply-To set to the sender.
func ContactNotification(to, name, email, message string) (Message, error) {
	html, err := render(contactNotificationTmpl, struct {
		Name, Email string
		Lines       []string
	}{name, email, strings.Split(message, "\n")})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "New contact message from " + name,
		HTML:    html,
		ReplyTo: email,
	}, nil
}

func ContactAutoReply(to, name string) (Message, error) {
	html, err := render(contactAutoReplyTmpl, struct{ Name string }{name})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "We received your message", HTML: html}, nil
}
