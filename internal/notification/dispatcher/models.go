package dispatcher

import (
	"time"

	"hiring-notifier/internal/models"
	"hiring-notifier/internal/notification/delivery"
)

// ReasonInProgress is the skip reason for a duplicate whose first request
// has not finished.
const ReasonInProgress = "duplicate request in progress"

type Request struct {
	Event models.Event
	// CorrelationKey overrides the key derived from Event when non-empty.
	CorrelationKey string
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the terminal state of one dispatch. A Failed delivery is a
// Result, not an error.
type Result struct {
	NotificationID string           `json:"notificationId"`
	CorrelationKey string           `json:"correlationKey"`
	Kind           models.EventKind `json:"kind"`
	Status         delivery.Status  `json:"status"`
	Reason         string           `json:"reason,omitempty"`
	Provider       string           `json:"provider,omitempty"`
	MessageID      string           `json:"messageId,omitempty"`
	Attempts       int              `json:"attempts"`
	Duplicate      bool             `json:"duplicate"`
	Error          *ErrorInfo       `json:"error,omitempty"`
	CompletedAt    time.Time        `json:"completedAt"`
}

// NotConfigured reports whether delivery was skipped for lack of provider
// credentials.
func (r *Result) NotConfigured() bool {
	return r.Status == delivery.StatusSkipped && r.Reason == delivery.ReasonNotConfigured
}

func (r *Result) record(event models.Event) models.DeliveryRecord {
	job := event.JobRef()
	rec := models.DeliveryRecord{
		NotificationID: r.NotificationID,
		CorrelationKey: r.CorrelationKey,
		Kind:           r.Kind,
		JobID:          job.JobID,
		JobTitle:       job.JobTitle,
		RecipientEmail: event.Recipient().Email,
		Status:         string(r.Status),
		Reason:         r.Reason,
		Provider:       r.Provider,
		MessageID:      r.MessageID,
		Attempts:       r.Attempts,
		CreatedAt:      r.CompletedAt,
	}
	if r.Error != nil {
		rec.Error = r.Error.Code + ": " + r.Error.Message
	}
	return rec
}
