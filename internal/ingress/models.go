package ingress

import "hiring-notifier/internal/notification/dispatcher"

const messageNotConfigured = "Email not configured"

// Response is the body of every 200 reply.
type Response struct {
	Success       bool                  `json:"success"`
	Message       string                `json:"message,omitempty"`
	Status        string                `json:"status,omitempty"`
	Attempts      int                   `json:"attempts,omitempty"`
	DeliveryError *dispatcher.ErrorInfo `json:"deliveryError,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
