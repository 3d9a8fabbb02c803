// internal/workers/application/send-notification/models.go
package sendnotification

import "hiring-notifier/internal/models"

// Input is the job variable document; it matches the ingress body.
type Input = models.EventPayload

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "delivered", "skipped", "failed"
	Reason         string `json:"reason,omitempty"`
	Attempts       int    `json:"attempts"`
	Duplicate      bool   `json:"duplicate"`
	ErrorCode      string `json:"errorCode,omitempty"`
}
