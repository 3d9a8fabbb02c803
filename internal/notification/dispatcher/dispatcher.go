// Package dispatcher validates notification events and drives them through
// deduplication, rendering and delivery with bounded retry.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"hiring-notifier/internal/common/errors"
	"hiring-notifier/internal/common/logger"
	"hiring-notifier/internal/common/metrics"
	"hiring-notifier/internal/common/observability"
	"hiring-notifier/internal/models"
	"hiring-notifier/internal/notification/dedup"
	"hiring-notifier/internal/notification/delivery"
	"hiring-notifier/internal/notification/templates"
)

// Resolver renders an event into a message.
type Resolver interface {
	Resolve(event models.Event) (templates.RenderedMessage, error)
}

// Recorder receives every terminal result. Errors are logged and never
// change the result.
type Recorder interface {
	Record(ctx context.Context, record models.DeliveryRecord) error
}

type Dependencies struct {
	Resolver      Resolver
	Client        delivery.Client
	Store         dedup.Store // nil means a process-local store
	Recorders     []Recorder
	Logger        logger.Logger
	Observability *observability.Observability
}

type Dispatcher struct {
	resolver  Resolver
	client    delivery.Client
	store     dedup.Store
	recorders []Recorder
	logger    logger.Logger
	obs       *observability.Observability
	config    Config

	newID func() string
	now   func() time.Time
}

func New(deps Dependencies, cfg Config) (*Dispatcher, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("dispatcher: resolver is required")
	}
	if deps.Client == nil {
		return nil, fmt.Errorf("dispatcher: delivery client is required")
	}
	if deps.Store == nil {
		deps.Store = dedup.NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}

	return &Dispatcher{
		resolver:  deps.Resolver,
		client:    deps.Client,
		store:     deps.Store,
		recorders: deps.Recorders,
		logger:    deps.Logger.WithFields(map[string]interface{}{"component": "dispatcher"}),
		obs:       deps.Observability,
		config:    cfg.withDefaults(),
		newID:     func() string { return uuid.New().String() },
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Dispatch processes one event. It returns an error only for invalid input
// (a VALIDATION_FAILED StandardError) or an internal fault; every delivery
// outcome, including failure after retries, is a Result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if req.Event == nil {
		return nil, errors.NewValidationError("event is required")
	}
	if err := req.Event.Validate(); err != nil {
		return nil, err
	}

	event := req.Event
	key := strings.TrimSpace(req.CorrelationKey)
	if key == "" {
		key = event.CorrelationKey()
	}
	kind := string(event.Kind())
	log := d.logger.WithFields(map[string]interface{}{"correlationKey": key, "kind": kind})

	ctx, span := d.obs.StartSpan(ctx, "notification.dispatch",
		attribute.String("notification.kind", kind),
		attribute.String("notification.correlation_key", key),
	)
	defer span.End()
	started := time.Now()

	reserved, prior, err := d.store.Reserve(ctx, key, d.config.DedupTTL)
	storeAvailable := err == nil
	if err != nil {
		log.Warn("dedup store unavailable; dispatching without idempotency", map[string]interface{}{"error": err})
		reserved = true
	}
	if !reserved {
		return d.duplicate(key, event, prior, log), nil
	}

	msg, err := d.resolver.Resolve(event)
	if err != nil {
		if storeAvailable {
			d.release(ctx, key, log)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}

	outcome, attempts := d.deliver(ctx, delivery.Message{
		To:      event.Recipient().Email,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}, log)

	result := &Result{
		NotificationID: d.newID(),
		CorrelationKey: key,
		Kind:           event.Kind(),
		Status:         outcome.Status,
		Reason:         outcome.Reason,
		Provider:       outcome.Provider,
		MessageID:      outcome.MessageID,
		Attempts:       attempts,
		CompletedAt:    d.now(),
	}
	if outcome.Status == delivery.StatusFailed {
		stdErr := errors.Normalize(outcome.Err)
		message := stdErr.Message
		if stdErr.Details != "" {
			message += ": " + stdErr.Details
		}
		result.Error = &ErrorInfo{Code: string(stdErr.Code), Message: message}
		span.SetStatus(codes.Error, "delivery failed")
	}

	// bookkeeping must survive caller cancellation
	bgCtx := context.WithoutCancel(ctx)
	if storeAvailable {
		d.finalize(bgCtx, key, result, log)
	}
	d.record(bgCtx, event, result, log)

	elapsed := time.Since(started)
	metrics.NotificationsDispatched.WithLabelValues(kind, string(result.Status)).Inc()
	metrics.DispatchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	d.obs.RecordDispatch(ctx, kind, string(result.Status), elapsed)
	span.SetAttributes(
		attribute.String("notification.status", string(result.Status)),
		attribute.Int("notification.attempts", attempts),
	)

	fields := map[string]interface{}{
		"notificationId": result.NotificationID,
		"status":         string(result.Status),
		"attempts":       attempts,
		"provider":       result.Provider,
		"durationMs":     elapsed.Milliseconds(),
	}
	switch result.Status {
	case delivery.StatusFailed:
		fields["errorCode"] = result.Error.Code
		log.Error("notification delivery failed", fields)
	case delivery.StatusSkipped:
		fields["reason"] = result.Reason
		log.Warn("notification skipped", fields)
	default:
		fields["messageId"] = result.MessageID
		log.Info("notification delivered", fields)
	}

	return result, nil
}

// deliver sends msg, retrying Failed outcomes with exponential backoff until
// MaxAttempts or the budget is exhausted. Delivered, Skipped and rejected
// outcomes end at once.
func (d *Dispatcher) deliver(ctx context.Context, msg delivery.Message, log logger.Logger) (delivery.Outcome, int) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Budget)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.config.InitialBackoff
	b.MaxInterval = d.config.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = d.config.Jitter

	var last delivery.Outcome
	attempts := 0

	_, _ = backoff.Retry(ctx, func() (delivery.Outcome, error) {
		attempts++
		last = d.client.Send(ctx, msg)
		metrics.DeliveryAttempts.WithLabelValues(d.client.Name(), string(last.Status)).Inc()

		if last.Status != delivery.StatusFailed {
			return last, nil
		}
		if last.Err == nil {
			last.Err = errors.NewDeliveryFailedError(d.client.Name(), fmt.Errorf("provider reported failure"))
		} else if _, ok := errors.As(last.Err); !ok {
			last.Err = errors.NewDeliveryFailedError(d.client.Name(), last.Err)
		}
		if errors.HasCode(last.Err, errors.ErrCodeDeliveryRejected) {
			return last, backoff.Permanent(last.Err)
		}
		return last, last.Err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.config.MaxAttempts)),
		backoff.WithMaxElapsedTime(d.config.Budget),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("delivery attempt failed; retrying", map[string]interface{}{
				"attempt": attempts,
				"error":   err,
				"retryIn": next.String(),
			})
		}),
	)

	return last, attempts
}

func (d *Dispatcher) duplicate(key string, event models.Event, prior []byte, log logger.Logger) *Result {
	metrics.DuplicateRequests.WithLabelValues(string(event.Kind())).Inc()

	if prior != nil {
		var previous Result
		err := json.Unmarshal(prior, &previous)
		if err == nil {
			previous.Duplicate = true
			log.Info("duplicate request answered from dedup store", map[string]interface{}{
				"notificationId": previous.NotificationID,
				"status":         string(previous.Status),
			})
			return &previous
		}
		log.Warn("unreadable dedup entry; reporting in progress", map[string]interface{}{"error": err})
	}

	log.Info("duplicate request while first is in flight", nil)
	return &Result{
		CorrelationKey: key,
		Kind:           event.Kind(),
		Status:         delivery.StatusSkipped,
		Reason:         ReasonInProgress,
		Duplicate:      true,
		CompletedAt:    d.now(),
	}
}

// finalize stores successful results for replay and releases failed ones so
// a caller retry may re-attempt delivery.
func (d *Dispatcher) finalize(ctx context.Context, key string, result *Result, log logger.Logger) {
	if result.Status == delivery.StatusFailed {
		d.release(ctx, key, log)
		return
	}

	value, err := json.Marshal(result)
	if err != nil {
		log.Error("marshal dispatch result", map[string]interface{}{"error": err})
		d.release(ctx, key, log)
		return
	}
	if err := d.store.Complete(ctx, key, value, d.config.DedupTTL); err != nil {
		log.Warn("dedup store complete failed", map[string]interface{}{"error": err})
	}
}

func (d *Dispatcher) release(ctx context.Context, key string, log logger.Logger) {
	if err := d.store.Release(ctx, key); err != nil {
		log.Warn("dedup store release failed", map[string]interface{}{"error": err})
	}
}

func (d *Dispatcher) record(ctx context.Context, event models.Event, result *Result, log logger.Logger) {
	if len(d.recorders) == 0 {
		return
	}
	rec := result.record(event)
	for _, r := range d.recorders {
		if err := r.Record(ctx, rec); err != nil {
			log.Warn("outcome recorder failed", map[string]interface{}{
				"error":    err,
				"recorder": fmt.Sprintf("%T", r),
			})
		}
	}
}
