package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hiring-notifier/internal/common/errors"
	"hiring-notifier/internal/common/logger"
	"hiring-notifier/internal/models"
	"hiring-notifier/internal/notification/delivery"
	"hiring-notifier/internal/notification/dispatcher"
)

// IdempotencyKeyHeader overrides the body correlationKey when present.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxBodyBytes = 64 << 10

// Dispatcher is the part of *dispatcher.Dispatcher the endpoint needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatcher.Request) (*dispatcher.Result, error)
}

type Handler struct {
	dispatcher Dispatcher
	timeout    time.Duration
	logger     logger.Logger
}

func NewHandler(d Dispatcher, timeout time.Duration, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		dispatcher: d,
		timeout:    timeout,
		logger:     log.WithFields(map[string]interface{}{"component": "ingress"}),
	}
}

// Notify handles POST on the notification endpoint.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeFailure(w, r, errors.NewInvalidPayloadError(err))
		return
	}

	payload, err := decodePayload(body)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	event, err := payload.ToEvent()
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		key = payload.CorrelationKey
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.dispatcher.Dispatch(ctx, dispatcher.Request{Event: event, CorrelationKey: key})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, responseFor(result))
}

// Options answers preflight and bare OPTIONS requests with 200 and an empty
// body. The CORS middleware has already set headers for allowed origins.
func (h *Handler) Options(w http.ResponseWriter, _ *http.Request) {
	header := w.Header()
	if header.Get("Access-Control-Allow-Origin") == "" {
		header.Set("Access-Control-Allow-Origin", "*")
	}
	if header.Get("Access-Control-Allow-Methods") == "" {
		header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	}
	if header.Get("Access-Control-Allow-Headers") == "" {
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+IdempotencyKeyHeader)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeFailure(w, r, errors.NewMethodNotAllowedError(r.Method))
}

func decodePayload(body []byte) (models.EventPayload, error) {
	var payload models.EventPayload

	res, err := payloadSchema.Validate(body)
	if err != nil {
		return payload, errors.NewInvalidPayloadError(err)
	}
	if !res.Valid {
		fields := make(map[string]string, len(res.Errors))
		parts := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			// if/then failures repeat the underlying required error
			if strings.HasPrefix(e.Code, "condition_") {
				continue
			}
			fields[e.Field] = e.Message
			if e.Code == "required" {
				parts = append(parts, e.Message)
			} else {
				parts = append(parts, e.Field+": "+e.Message)
			}
		}
		stdErr := errors.NewValidationError(strings.Join(parts, "; "))
		stdErr.Metadata = map[string]interface{}{"fields": fields}
		return payload, stdErr
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, errors.NewInvalidPayloadError(err)
	}
	return payload, nil
}

func responseFor(result *dispatcher.Result) Response {
	switch {
	case result.NotConfigured():
		return Response{Success: true, Message: messageNotConfigured}
	case result.Status == delivery.StatusFailed:
		return Response{
			Success:       true,
			Status:        string(result.Status),
			Attempts:      result.Attempts,
			DeliveryError: result.Error,
		}
	default:
		return Response{Success: true}
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	status := errors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"status":    status,
		"path":      r.URL.Path,
	}
	if status >= http.StatusInternalServerError {
		fields["details"] = stdErr.Details
		h.logger.WithError(err).Error("notification request failed", fields)
		writeError(w, status, stdErr.Message)
		return
	}

	h.logger.Warn("notification request rejected", fields)
	msg := stdErr.Message
	if stdErr.Details != "" {
		msg = fmt.Sprintf("%s: %s", stdErr.Message, stdErr.Details)
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
