package mailqueue

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Rendered struct {
	To      string
	Subject string
	HTML    string
}

type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// Render decodes a queued message and fills in the template for its type.
func Render(body []byte) (*Rendered, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode mail message: %w", err)
	}
	if env.To == "" {
		return nil, fmt.Errorf("mail message has no recipient")
	}

	var (
		subject string
		name    string
		data    any
	)

	switch env.Type {
	case domain.MailTypeWelcome:
		var d domain.WelcomeMailData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", env.Type, err)
		}
		subject, name, data = "Welcome to NUST Timetable Manager", "welcome.html", d
	case domain.MailTypeShareSchedule:
		var d domain.ShareScheduleMailData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", env.Type, err)
		}
		subject = fmt.Sprintf("%s shared a timetable with you", d.SenderName)
		name, data = "share_schedule.html", d
	default:
		return nil, fmt.Errorf("unsupported mail type %q", env.Type)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	return &Rendered{To: env.To, Subject: subject, HTML: buf.String()}, nil
}
