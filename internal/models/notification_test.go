package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-notifier/internal/common/errors"
)

func validPayload(kind EventKind) EventPayload {
	return EventPayload{
		Type:           string(kind),
		JobID:          "42",
		JobTitle:       "Barista",
		ApplicantName:  "Ana",
		ApplicantEmail: "ana@x.io",
	}
}

func TestEventPayload_ToEvent(t *testing.T) {
	t.Run("new application", func(t *testing.T) {
		event, err := validPayload(KindApplicationSubmitted).ToEvent()
		require.NoError(t, err)

		submitted, ok := event.(ApplicationSubmitted)
		require.True(t, ok)
		assert.Equal(t, "Barista", submitted.Job.JobTitle)
		assert.Equal(t, "ana@x.io", submitted.Applicant.Email)
		assert.Equal(t, KindApplicationSubmitted, event.Kind())
	})

	t.Run("status update", func(t *testing.T) {
		p := validPayload(KindStatusChanged)
		p.NewStatus = " accepted "

		event, err := p.ToEvent()
		require.NoError(t, err)

		changed, ok := event.(StatusChanged)
		require.True(t, ok)
		assert.Equal(t, "accepted", changed.NewStatus)
	})

	t.Run("new application ignores newStatus", func(t *testing.T) {
		p := validPayload(KindApplicationSubmitted)
		p.NewStatus = "accepted"

		event, err := p.ToEvent()
		require.NoError(t, err)
		assert.IsType(t, ApplicationSubmitted{}, event)
	})

	t.Run("job id is optional", func(t *testing.T) {
		p := validPayload(KindApplicationSubmitted)
		p.JobID = ""

		_, err := p.ToEvent()
		assert.NoError(t, err)
	})
}

func TestEventPayload_ToEvent_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *EventPayload)
		code   errors.ErrorCode
		field  string
	}{
		{"unknown type", func(p *EventPayload) { p.Type = "interview_scheduled" }, errors.ErrCodeUnsupportedEventType, ""},
		{"missing title", func(p *EventPayload) { p.JobTitle = "  " }, errors.ErrCodeValidationFailed, "jobTitle"},
		{"missing name", func(p *EventPayload) { p.ApplicantName = "" }, errors.ErrCodeValidationFailed, "applicantName"},
		{"bad email", func(p *EventPayload) { p.ApplicantEmail = "not-an-email" }, errors.ErrCodeValidationFailed, "applicantEmail"},
		{"status update without status", func(p *EventPayload) {
			p.Type = string(KindStatusChanged)
			p.NewStatus = " "
		}, errors.ErrCodeValidationFailed, "newStatus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload(KindApplicationSubmitted)
			tt.mutate(&p)

			event, err := p.ToEvent()
			require.Error(t, err)
			assert.Nil(t, event)

			stdErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			if tt.field != "" {
				fields, ok := stdErr.Metadata["fields"].(map[string]interface{})
				require.True(t, ok)
				assert.Contains(t, fields, tt.field)
			}
		})
	}
}

func TestCorrelationKey(t *testing.T) {
	submitted := ApplicationSubmitted{
		Job:       JobRef{JobID: "42", JobTitle: "Barista"},
		Applicant: Recipient{Name: "Ana", Email: "Ana@X.io"},
	}
	assert.Equal(t, "42:ana@x.io:submitted", submitted.CorrelationKey())

	changed := StatusChanged{Job: submitted.Job, Applicant: submitted.Applicant, NewStatus: "accepted"}
	assert.Equal(t, "42:ana@x.io:status:accepted", changed.CorrelationKey())

	noID := ApplicationSubmitted{Job: JobRef{JobTitle: "Barista"}, Applicant: submitted.Applicant}
	assert.Equal(t, "Barista:ana@x.io:submitted", noID.CorrelationKey())

	other := StatusChanged{Job: submitted.Job, Applicant: submitted.Applicant, NewStatus: "rejected"}
	assert.NotEqual(t, changed.CorrelationKey(), other.CorrelationKey())
}

func TestKinds(t *testing.T) {
	assert.ElementsMatch(t, []EventKind{KindApplicationSubmitted, KindStatusChanged}, Kinds())
}
