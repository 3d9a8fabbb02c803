// Package ledger persists a row per terminal dispatch in PostgreSQL.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"hiring-notifier/internal/common/errors"
	"hiring-notifier/internal/models"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS notification_log (
	notification_id  UUID PRIMARY KEY,
	correlation_key  TEXT        NOT NULL,
	kind             TEXT        NOT NULL,
	job_id           TEXT        NOT NULL DEFAULT '',
	job_title        TEXT        NOT NULL,
	recipient_email  TEXT        NOT NULL,
	status           TEXT        NOT NULL,
	reason           TEXT        NOT NULL DEFAULT '',
	provider         TEXT        NOT NULL DEFAULT '',
	message_id       TEXT        NOT NULL DEFAULT '',
	attempts         INTEGER     NOT NULL,
	error            TEXT        NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS notification_log_correlation_key_idx ON notification_log (correlation_key);
CREATE INDEX IF NOT EXISTS notification_log_created_at_idx ON notification_log (created_at DESC);`

const insertSQL = `
INSERT INTO notification_log (
	notification_id, correlation_key, kind, job_id, job_title, recipient_email,
	status, reason, provider, message_id, attempts, error, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (notification_id) DO NOTHING`

const recentSQL = `
SELECT notification_id, correlation_key, kind, job_id, job_title, recipient_email,
	status, reason, provider, message_id, attempts, error, created_at
FROM notification_log
ORDER BY created_at DESC
LIMIT $1`

type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureSchema creates the table and indexes when missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create notification_log: %w", err)
	}
	return nil
}

// Record inserts rec. Re-recording the same notification ID is a no-op.
func (l *Ledger) Record(ctx context.Context, rec models.DeliveryRecord) error {
	_, err := l.db.ExecContext(ctx, insertSQL,
		rec.NotificationID, rec.CorrelationKey, string(rec.Kind), rec.JobID, rec.JobTitle, rec.RecipientEmail,
		rec.Status, rec.Reason, rec.Provider, rec.MessageID, rec.Attempts, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return errors.NewLedgerWriteFailedError(err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]models.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.QueryContext(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query notification_log: %w", err)
	}
	defer rows.Close()

	var out []models.DeliveryRecord
	for rows.Next() {
		var rec models.DeliveryRecord
		var kind string
		if err := rows.Scan(
			&rec.NotificationID, &rec.CorrelationKey, &kind, &rec.JobID, &rec.JobTitle, &rec.RecipientEmail,
			&rec.Status, &rec.Reason, &rec.Provider, &rec.MessageID, &rec.Attempts, &rec.Error, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification_log: %w", err)
		}
		rec.Kind = models.EventKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}
