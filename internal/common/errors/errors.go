// Package errors provides the standardized error taxonomy shared by the HTTP
// ingress, the dispatcher and the Zeebe job worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Caller-visible input errors
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidPayload       ErrorCode = "INVALID_PAYLOAD"
	ErrCodeUnsupportedEventType ErrorCode = "UNSUPPORTED_EVENT_TYPE"
	ErrCodeMethodNotAllowed     ErrorCode = "METHOD_NOT_ALLOWED"

	// Template errors
	ErrCodeTemplateNotFound        ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateRenderFailed    ErrorCode = "TEMPLATE_RENDER_FAILED"
	ErrCodeTemplateRegistryInvalid ErrorCode = "TEMPLATE_REGISTRY_INVALID"

	// Delivery errors
	ErrCodeDeliveryFailed   ErrorCode = "DELIVERY_FAILED"
	ErrCodeDeliveryTimeout  ErrorCode = "DELIVERY_TIMEOUT"
	ErrCodeDeliveryRejected ErrorCode = "DELIVERY_REJECTED"

	// Supporting infrastructure
	ErrCodeDedupUnavailable     ErrorCode = "DEDUP_UNAVAILABLE"
	ErrCodeLedgerWriteFailed    ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeOutcomePublishFailed ErrorCode = "OUTCOME_PUBLISH_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// As extracts a *StandardError from anywhere in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a non-retryable event validation error.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Notification event failed validation", details, false, nil)
}

// NewInvalidPayloadError creates a non-retryable error for undecodable input.
func NewInvalidPayloadError(err error) *StandardError {
	return newError(ErrCodeInvalidPayload, "Request payload could not be decoded", err.Error(), false, err)
}

func NewUnsupportedEventTypeError(eventType string) *StandardError {
	return newError(ErrCodeUnsupportedEventType, "Unsupported notification type",
		fmt.Sprintf("type: %q", eventType), false, nil)
}

func NewMethodNotAllowedError(method string) *StandardError {
	return newError(ErrCodeMethodNotAllowed, "Method not allowed", fmt.Sprintf("method: %s", method), false, nil)
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(kind string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Template not found in registry", fmt.Sprintf("kind: %s", kind), false, nil)
}

func NewTemplateRenderFailedError(kind string, err error) *StandardError {
	return newError(ErrCodeTemplateRenderFailed, "Template rendering failed",
		fmt.Sprintf("kind: %s, error: %s", kind, err.Error()), false, err)
}

func NewTemplateRegistryInvalidError(details string) *StandardError {
	return newError(ErrCodeTemplateRegistryInvalid, "Template registry is incomplete or invalid", details, false, nil)
}

// NewDeliveryFailedError creates a retryable provider error.
func NewDeliveryFailedError(provider string, err error) *StandardError {
	return newError(ErrCodeDeliveryFailed, "Notification delivery failed",
		fmt.Sprintf("provider: %s, error: %s", provider, err.Error()), true, err)
}

// NewDeliveryTimeoutError creates a retryable provider timeout error.
func NewDeliveryTimeoutError(provider string, err error) *StandardError {
	return newError(ErrCodeDeliveryTimeout, "Notification delivery timed out",
		fmt.Sprintf("provider: %s, error: %s", provider, err.Error()), true, err)
}

// NewDeliveryRejectedError creates a non-retryable error for a message the
// provider can never accept, such as a malformed address.
func NewDeliveryRejectedError(provider string, err error) *StandardError {
	return newError(ErrCodeDeliveryRejected, "Notification rejected by provider",
		fmt.Sprintf("provider: %s, error: %s", provider, err.Error()), false, err)
}

func NewDedupUnavailableError(err error) *StandardError {
	return newError(ErrCodeDedupUnavailable, "Deduplication store unavailable", err.Error(), true, err)
}

func NewLedgerWriteFailedError(err error) *StandardError {
	return newError(ErrCodeLedgerWriteFailed, "Notification log write failed", err.Error(), true, err)
}

func NewOutcomePublishFailedError(err error) *StandardError {
	return newError(ErrCodeOutcomePublishFailed, "Outcome event publish failed", err.Error(), true, err)
}

// NewInternalError wraps an unexpected fault.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Mapping
// ==========================

// HTTPStatus maps an error code to the status returned by the ingress endpoint.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidPayload, ErrCodeUnsupportedEventType:
		return http.StatusBadRequest
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// BPMNErrorMapping maps internal error codes to the BPMN codes modelled in
// the hiring process definitions.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:        "NOTIFICATION_VALIDATION_FAILED",
	ErrCodeInvalidPayload:          "NOTIFICATION_VALIDATION_FAILED",
	ErrCodeUnsupportedEventType:    "NOTIFICATION_VALIDATION_FAILED",
	ErrCodeTemplateNotFound:        "NOTIFICATION_TEMPLATE_ERROR",
	ErrCodeTemplateRenderFailed:    "NOTIFICATION_TEMPLATE_ERROR",
	ErrCodeTemplateRegistryInvalid: "NOTIFICATION_TEMPLATE_ERROR",
	ErrCodeDeliveryFailed:          "NOTIFICATION_SEND_FAILED",
	ErrCodeDeliveryTimeout:         "NOTIFICATION_SEND_FAILED",
	ErrCodeDeliveryRejected:        "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns how many job retries Zeebe should grant for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDeliveryFailed, ErrCodeDeliveryTimeout:
		return 3
	case ErrCodeDedupUnavailable, ErrCodeLedgerWriteFailed, ErrCodeOutcomePublishFailed:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	code, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		code = string(stdErr.Code)
	}
	return &BPMNError{
		Code:           code,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        GetRetryCount(stdErr.Code),
		ErrorVariables: stdErr.Metadata,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	s := string(code)
	switch {
	case strings.HasPrefix(s, "TEMPLATE_"):
		return "template"
	case strings.HasPrefix(s, "DELIVERY_"):
		return "delivery"
	case code == ErrCodeValidationFailed, code == ErrCodeInvalidPayload,
		code == ErrCodeUnsupportedEventType, code == ErrCodeMethodNotAllowed:
		return "input"
	case code == ErrCodeDedupUnavailable, code == ErrCodeLedgerWriteFailed, code == ErrCodeOutcomePublishFailed:
		return "infrastructure"
	default:
		return "internal"
	}
}
