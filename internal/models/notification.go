// internal/models/notification.go
package models

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"hiring-notifier/internal/common/errors"
)

// EventKind is the wire discriminant of a notification event.
type EventKind string

const (
	KindApplicationSubmitted EventKind = "new_application"
	KindStatusChanged        EventKind = "status_update"
)

// Kinds returns every event kind a template registry must cover.
func Kinds() []EventKind {
	return []EventKind{KindApplicationSubmitted, KindStatusChanged}
}

type JobRef struct {
	JobID    string `json:"jobId,omitempty"`
	JobTitle string `json:"jobTitle"`
}

type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Event is a hiring-pipeline occurrence that warrants a message to the
// applicant. The set of implementations is closed.
type Event interface {
	Kind() EventKind
	JobRef() JobRef
	Recipient() Recipient
	Validate() error
	// CorrelationKey derives the idempotency key used when the caller
	// supplies none.
	CorrelationKey() string
	isEvent()
}

// ApplicationSubmitted is raised once when an applicant applies to a job.
type ApplicationSubmitted struct {
	Job       JobRef
	Applicant Recipient
}

func (e ApplicationSubmitted) Kind() EventKind      { return KindApplicationSubmitted }
func (e ApplicationSubmitted) JobRef() JobRef       { return e.Job }
func (e ApplicationSubmitted) Recipient() Recipient { return e.Applicant }
func (ApplicationSubmitted) isEvent()               {}

func (e ApplicationSubmitted) Validate() error {
	return toValidationError(commonRules(e.Job, e.Applicant))
}

func (e ApplicationSubmitted) CorrelationKey() string {
	return fmt.Sprintf("%s:%s:submitted", jobKey(e.Job), strings.ToLower(strings.TrimSpace(e.Applicant.Email)))
}

// StatusChanged is raised when a reviewer moves an application to a new status.
type StatusChanged struct {
	Job       JobRef
	Applicant Recipient
	NewStatus string
}

func (e StatusChanged) Kind() EventKind      { return KindStatusChanged }
func (e StatusChanged) JobRef() JobRef       { return e.Job }
func (e StatusChanged) Recipient() Recipient { return e.Applicant }
func (StatusChanged) isEvent()               {}

func (e StatusChanged) Validate() error {
	errs := commonRules(e.Job, e.Applicant)
	errs["newStatus"] = validation.Validate(strings.TrimSpace(e.NewStatus), validation.Required)
	return toValidationError(errs)
}

func (e StatusChanged) CorrelationKey() string {
	return fmt.Sprintf("%s:%s:status:%s", jobKey(e.Job), strings.ToLower(strings.TrimSpace(e.Applicant.Email)),
		strings.TrimSpace(e.NewStatus))
}

func commonRules(job JobRef, r Recipient) validation.Errors {
	return validation.Errors{
		"jobTitle":       validation.Validate(strings.TrimSpace(job.JobTitle), validation.Required),
		"applicantName":  validation.Validate(strings.TrimSpace(r.Name), validation.Required),
		"applicantEmail": validation.Validate(strings.TrimSpace(r.Email), validation.Required, is.EmailFormat),
	}
}

func toValidationError(errs validation.Errors) error {
	err := errs.Filter()
	if err == nil {
		return nil
	}
	stdErr := errors.NewValidationError(err.Error())
	if fieldErrs, ok := err.(validation.Errors); ok {
		fields := make(map[string]interface{}, len(fieldErrs))
		for name, fieldErr := range fieldErrs {
			fields[name] = fieldErr.Error()
		}
		stdErr.Metadata = map[string]interface{}{"fields": fields}
	}
	return stdErr
}

func jobKey(job JobRef) string {
	if id := strings.TrimSpace(job.JobID); id != "" {
		return id
	}
	return strings.TrimSpace(job.JobTitle)
}

// EventPayload is the JSON body accepted by the ingress endpoint and the
// variables carried by send-notification jobs.
type EventPayload struct {
	Type           string `json:"type"`
	JobID          string `json:"jobId,omitempty"`
	JobTitle       string `json:"jobTitle"`
	ApplicantName  string `json:"applicantName"`
	ApplicantEmail string `json:"applicantEmail"`
	NewStatus      string `json:"newStatus,omitempty"`
	CorrelationKey string `json:"correlationKey,omitempty"`
}

// ToEvent converts the payload into a validated Event. A newStatus sent with
// a new_application payload is ignored.
func (p EventPayload) ToEvent() (Event, error) {
	job := JobRef{JobID: strings.TrimSpace(p.JobID), JobTitle: strings.TrimSpace(p.JobTitle)}
	applicant := Recipient{Name: strings.TrimSpace(p.ApplicantName), Email: strings.TrimSpace(p.ApplicantEmail)}

	var event Event
	switch EventKind(strings.TrimSpace(p.Type)) {
	case KindApplicationSubmitted:
		event = ApplicationSubmitted{Job: job, Applicant: applicant}
	case KindStatusChanged:
		event = StatusChanged{Job: job, Applicant: applicant, NewStatus: strings.TrimSpace(p.NewStatus)}
	default:
		return nil, errors.NewUnsupportedEventTypeError(p.Type)
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// DeliveryRecord is the persisted and published summary of one dispatch.
type DeliveryRecord struct {
	NotificationID string    `json:"notificationId"`
	CorrelationKey string    `json:"correlationKey"`
	Kind           EventKind `json:"kind"`
	JobID          string    `json:"jobId,omitempty"`
	JobTitle       string    `json:"jobTitle"`
	RecipientEmail string    `json:"recipientEmail"`
	Status         string    `json:"status"` // delivered | skipped | failed
	Reason         string    `json:"reason,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	MessageID      string    `json:"messageId,omitempty"`
	Attempts       int       `json:"attempts"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NotificationTemplate is one registry entry: the subject and HTML body
// templates for an event kind.
type NotificationTemplate struct {
	Kind     EventKind `json:"kind" yaml:"kind"`
	Subject  string    `json:"subject" yaml:"subject"`
	HTMLBody string    `json:"htmlBody" yaml:"htmlBody"`
	Version  string    `json:"version,omitempty" yaml:"version,omitempty"`
}
