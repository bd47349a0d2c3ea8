package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"cv-intake/internal/application"
)

// Message is one outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

var funcs = template.FuncMap{"join": func(s []string) string { return strings.Join(s, ", ") }}

var adminNotice = template.Must(template.New("admin").Funcs(funcs).Parse(`<h2>New Job Application Received</h2>
<p><strong>Name:</strong> {{.FullName}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Country:</strong> {{.Country}}</p>
<p><strong>Experience:</strong> {{.YearsOfExperience}} years</p>
<p><strong>Skills:</strong> {{join .PrimarySkills}}</p>
<p><strong>Portfolio:</strong> <a href="{{.PortfolioURL}}">{{.PortfolioURL}}</a></p>
<p><strong>Cover Letter:</strong></p>
<p>{{.CoverLetter}}</p>
{{if .ResumeLink}}<p><a href="{{.ResumeLink}}">Download resume ({{.ResumeOriginalName}})</a></p>{{end}}
<p><em>Submitted at {{.Submitted}}</em></p>
`))

var applicantConfirmation = template.Must(template.New("applicant").Parse(`<h2>Thank you for your application, {{.FullName}}!</h2>
<p>We have received your application and our team will review it shortly.</p>
<p>If your profile matches what we are looking for, we will contact you at {{.Email}}.</p>
<p>Best regards,<br>The Recruitment Team</p>
`))

type templateData struct {
	application.Application
	ResumeLink string
	Submitted  string
}

// Compose renders the admin notice and the applicant confirmation for app.
// The admin notice is omitted when adminEmail is empty.
func Compose(app application.Application, adminEmail, baseURL string) ([]Message, error) {
	data := templateData{
		Application: app,
		Submitted:   app.CreatedAt.UTC().Format(time.RFC1123),
	}
	if app.ResumeURL != "" {
		data.ResumeLink = strings.TrimRight(baseURL, "/") + app.ResumeURL
	}

	var out []Message
	if adminEmail != "" {
		body, err := render(adminNotice, data)
		if err != nil {
			return nil, err
		}
		out = append(out, Message{To: adminEmail, Subject: "New Application: " + app.FullName, HTML: body})
	}
	body, err := render(applicantConfirmation, data)
	if err != nil {
		return nil, err
	}
	out = append(out, Message{To: app.Email, Subject: "Application Received - Thank You!", HTML: body})
	return out, nil
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// WriteMIME encodes m as a single-part text/html message from sender.
func WriteMIME(w io.Writer, from string, m Message, now time.Time) error {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("parse from address: %w", err)
	}
	toAddr, err := mail.ParseAddress(m.To)
	if err != nil {
		return fmt.Errorf("parse to address: %w", err)
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", []*mail.Address{toAddr})
	h.SetSubject(m.Subject)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("message id: %w", err)
	}

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("create mail writer: %w", err)
	}
	if _, err := io.WriteString(body, m.HTML); err != nil {
		return fmt.Errorf("write mail body: %w", err)
	}
	return body.Close()
}
