// Package templates turns notification events into rendered email messages.
package templates

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"hiring-notifier/internal/common/errors"
	"hiring-notifier/internal/models"
	"hiring-notifier/pkg/registry"
)

// Data is the value every template is executed against.
type Data struct {
	JobID          string
	JobTitle       string
	ApplicantName  string
	ApplicantEmail string
	NewStatus      string
}

// RenderedMessage is the subject and HTML body produced for one event.
type RenderedMessage struct {
	Subject string
	HTML    string
}

// Resolver renders events. It is safe for concurrent use and performs no I/O.
type Resolver struct {
	subjects map[models.EventKind]*texttemplate.Template
	bodies   map[models.EventKind]*htmltemplate.Template
}

var sampleData = Data{
	JobID:          "sample-job",
	JobTitle:       "Sample Role",
	ApplicantName:  "Sample Applicant",
	ApplicantEmail: "applicant@example.com",
	NewStatus:      "reviewed",
}

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() map[models.EventKind]models.NotificationTemplate {
	return map[models.EventKind]models.NotificationTemplate{
		models.KindApplicationSubmitted: {
			Kind:    models.KindApplicationSubmitted,
			Subject: "Application Received - {{.JobTitle}}",
			HTMLBody: `<h2>Thank you for your application!</h2>
<p>Hi {{.ApplicantName}},</p>
<p>We have received your application for <strong>{{.JobTitle}}</strong>.</p>
<p>Our team will review it and get back to you soon.</p>
<p>Best regards,<br>The Hiring Team</p>`,
			Version: "1",
		},
		models.KindStatusChanged: {
			Kind:    models.KindStatusChanged,
			Subject: "Application Status Update - {{.JobTitle}}",
			HTMLBody: `<h2>Application Status Update</h2>
<p>Hi {{.ApplicantName}},</p>
<p>The status of your application for <strong>{{.JobTitle}}</strong> has been updated to: <strong>{{.NewStatus}}</strong>.</p>
<p>Best regards,<br>The Hiring Team</p>`,
			Version: "1",
		},
	}
}

// NewResolver compiles entries into a Resolver. It fails unless every event
// kind has a subject and body that parse and execute against sample data.
func NewResolver(entries map[models.EventKind]models.NotificationTemplate) (*Resolver, error) {
	r := &Resolver{
		subjects: make(map[models.EventKind]*texttemplate.Template, len(entries)),
		bodies:   make(map[models.EventKind]*htmltemplate.Template, len(entries)),
	}

	var problems []string
	for _, kind := range models.Kinds() {
		entry, ok := entries[kind]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: no template", kind))
			continue
		}
		if strings.TrimSpace(entry.Subject) == "" || strings.TrimSpace(entry.HTMLBody) == "" {
			problems = append(problems, fmt.Sprintf("%s: subject and htmlBody are required", kind))
			continue
		}

		subject, err := texttemplate.New(string(kind) + ".subject").Option("missingkey=error").Parse(entry.Subject)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: subject: %v", kind, err))
			continue
		}
		body, err := htmltemplate.New(string(kind) + ".body").Option("missingkey=error").Parse(entry.HTMLBody)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: body: %v", kind, err))
			continue
		}

		r.subjects[kind] = subject
		r.bodies[kind] = body
		if _, err := r.render(kind, sampleData); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", kind, err))
		}
	}

	if len(problems) > 0 {
		return nil, errors.NewTemplateRegistryInvalidError(strings.Join(problems, "; "))
	}
	return r, nil
}

// MustNewDefaultResolver returns a Resolver over DefaultTemplates.
func MustNewDefaultResolver() *Resolver {
	r, err := NewResolver(DefaultTemplates())
	if err != nil {
		panic(err)
	}
	return r
}

// FromRegistryFile builds a Resolver from a registry file. An empty path
// yields the built-in templates; a file replaces them entirely.
func FromRegistryFile(path string) (*Resolver, error) {
	if path == "" {
		return NewResolver(DefaultTemplates())
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, errors.NewTemplateRegistryInvalidError(err.Error())
	}
	return NewResolver(reg.ByKind())
}

// Resolve renders the message for event.
func (r *Resolver) Resolve(event models.Event) (RenderedMessage, error) {
	data, err := dataFor(event)
	if err != nil {
		return RenderedMessage{}, err
	}
	return r.render(event.Kind(), data)
}

func (r *Resolver) render(kind models.EventKind, data Data) (RenderedMessage, error) {
	subject, okSubject := r.subjects[kind]
	body, okBody := r.bodies[kind]
	if !okSubject || !okBody {
		return RenderedMessage{}, errors.NewTemplateNotFoundError(string(kind))
	}

	var subjectBuf, bodyBuf bytes.Buffer
	if err := subject.Execute(&subjectBuf, data); err != nil {
		return RenderedMessage{}, errors.NewTemplateRenderFailedError(string(kind), err)
	}
	if err := body.Execute(&bodyBuf, data); err != nil {
		return RenderedMessage{}, errors.NewTemplateRenderFailedError(string(kind), err)
	}

	return RenderedMessage{
		Subject: singleLine(subjectBuf.String()),
		HTML:    bodyBuf.String(),
	}, nil
}

func dataFor(event models.Event) (Data, error) {
	var status string
	switch e := event.(type) {
	case models.ApplicationSubmitted:
	case *models.ApplicationSubmitted:
		if e == nil {
			return Data{}, errors.NewTemplateRenderFailedError(string(models.KindApplicationSubmitted), fmt.Errorf("nil event"))
		}
	case models.StatusChanged:
		status = e.NewStatus
	case *models.StatusChanged:
		if e == nil {
			return Data{}, errors.NewTemplateRenderFailedError(string(models.KindStatusChanged), fmt.Errorf("nil event"))
		}
		status = e.NewStatus
	default:
		return Data{}, errors.NewTemplateRenderFailedError(string(event.Kind()), fmt.Errorf("unsupported event type %T", event))
	}

	job := event.JobRef()
	recipient := event.Recipient()
	return Data{
		JobID:          job.JobID,
		JobTitle:       job.JobTitle,
		ApplicantName:  recipient.Name,
		ApplicantEmail: recipient.Email,
		NewStatus:      status,
	}, nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// singleLine keeps header values on one line. Other whitespace is preserved.
func singleLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}
