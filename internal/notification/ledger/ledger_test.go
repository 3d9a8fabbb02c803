package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hiring-notifier/internal/common/errors"
	"hiring-notifier/internal/models"
)

var createdAt = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func sampleRecord() models.DeliveryRecord {
	return models.DeliveryRecord{
		NotificationID: "6f1c1f8e-1a43-4a63-a0a4-6b1f4c7b8a10",
		CorrelationKey: "42:ana@x.io:status:accepted",
		Kind:           models.KindStatusChanged,
		JobID:          "42",
		JobTitle:       "Barista",
		RecipientEmail: "ana@x.io",
		Status:         "delivered",
		Provider:       "resend",
		MessageID:      "re_1",
		Attempts:       2,
		CreatedAt:      createdAt,
	}
}

func TestLedger_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := sampleRecord()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_log")).
		WithArgs(rec.NotificationID, rec.CorrelationKey, "status_update", "42", "Barista", "ana@x.io",
			"delivered", "", "resend", "re_1", 2, "", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, New(db).Record(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO notification_log").WillReturnError(errors.New("connection refused"))

	err = New(db).Record(context.Background(), sampleRecord())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLedgerWriteFailed))
}

func TestLedger_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS notification_log").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, New(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Recent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	columns := []string{"notification_id", "correlation_key", "kind", "job_id", "job_title", "recipient_email",
		"status", "reason", "provider", "message_id", "attempts", "error", "created_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("n-2", "42:ana@x.io:status:accepted", "status_update", "42", "Barista", "ana@x.io",
			"failed", "", "resend", "", 3, "DELIVERY_FAILED", createdAt).
		AddRow("n-1", "42:ana@x.io:submitted", "new_application", "42", "Barista", "ana@x.io",
			"skipped", "provider not configured", "resend", "", 1, "", createdAt.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM notification_log").WithArgs(5).WillReturnRows(rows)

	recs, err := New(db).Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.KindStatusChanged, recs[0].Kind)
	assert.Equal(t, 3, recs[0].Attempts)
	assert.Equal(t, "provider not configured", recs[1].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecentDefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM notification_log").WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"notification_id"}))

	recs, err := New(db).Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
