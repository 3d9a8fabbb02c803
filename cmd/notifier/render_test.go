package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hiring-notifier/internal/common/errors"
	"hiring-notifier/internal/models"
	"hiring-notifier/internal/notification/templates"
)

func TestRenderEvent(t *testing.T) {
	var out bytes.Buffer
	err := renderEvent(&out, templates.MustNewDefaultResolver(), models.EventPayload{
		Type:           "status_update",
		JobTitle:       "Welder",
		ApplicantName:  "R. Singh",
		ApplicantEmail: "r@example.com",
		NewStatus:      "interview",
	})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "To: r@example.com")
	assert.Contains(t, got, "Subject: Application Status Update - Welder")
	assert.Contains(t, got, "Correlation-Key: Welder:r@example.com:status:interview")
	assert.Contains(t, got, "interview")
}

func TestRenderEvent_InvalidPayload(t *testing.T) {
	var out bytes.Buffer
	err := renderEvent(&out, templates.MustNewDefaultResolver(), models.EventPayload{
		Type:           "status_update",
		JobTitle:       "Welder",
		ApplicantName:  "R. Singh",
		ApplicantEmail: "r@example.com",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	assert.Empty(t, out.String())
}

func TestPrintHistory(t *testing.T) {
	created := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer

	err := printHistory(&out, []models.DeliveryRecord{
		{Kind: models.KindApplicationSubmitted, RecipientEmail: "a@example.com", Status: "delivered",
			Attempts: 1, Provider: "resend", MessageID: "re_123", CreatedAt: created},
		{Kind: models.KindStatusChanged, RecipientEmail: "r@example.com", Status: "failed",
			Attempts: 3, Provider: "resend", Error: "DELIVERY_FAILED: 502", CreatedAt: created},
		{Kind: models.KindStatusChanged, RecipientEmail: "r@example.com", Status: "skipped",
			Attempts: 1, Provider: "resend", Reason: "provider not configured", CreatedAt: created},
	})
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "RECIPIENT")
	assert.Contains(t, string(lines[1]), "re_123")
	assert.Contains(t, string(lines[2]), "DELIVERY_FAILED: 502")
	assert.Contains(t, string(lines[3]), "provider not configured")
	assert.Contains(t, string(lines[1]), "2026-05-04T12:00:00Z")
}

func TestExportDefaultsThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "templates.yaml")

	require.NoError(t, exportDefaults(path, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	var out bytes.Buffer
	require.NoError(t, validateRegistry(&out, path))
	assert.Contains(t, out.String(), "validation passed")
}

func TestValidateRegistry_Incomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"version":"1","templates":[{"kind":"new_application","subject":"Hi","htmlBody":"<p>Hi</p>"}]}`), 0o600))

	err := validateRegistry(io.Discard, path)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTemplateRegistryInvalid))
}
