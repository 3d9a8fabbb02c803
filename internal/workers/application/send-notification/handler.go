// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hiring-notifier/internal/common/errors"
	"hiring-notifier/internal/common/logger"
	"hiring-notifier/internal/notification/dispatcher"
)

const (
	TaskType = "send-notification"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatcher.Request) (*dispatcher.Result, error)
}

type Handler struct {
	config       *Config
	dispatcher   Dispatcher
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, d Dispatcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		dispatcher:   d,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job.Variables)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute runs the dispatch for already-parsed variables.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	event, err := input.ToEvent()
	if err != nil {
		return nil, err
	}

	result, err := h.dispatcher.Dispatch(ctx, dispatcher.Request{
		Event:          event,
		CorrelationKey: input.CorrelationKey,
	})
	if err != nil {
		return nil, err
	}

	// a failed delivery completes the job; the process decides on status
	output := &Output{
		NotificationID: result.NotificationID,
		Status:         string(result.Status),
		Reason:         result.Reason,
		Attempts:       result.Attempts,
		Duplicate:      result.Duplicate,
	}
	if result.Error != nil {
		output.ErrorCode = result.Error.Code
	}
	return output, nil
}

func parseInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidPayloadError(fmt.Errorf("parse job variables: %w", err))
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error":  err,
			"jobKey": job.Key,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error":  err,
			"jobKey": job.Key,
		})
		return
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":         job.Key,
		"notificationId": output.NotificationID,
		"status":         output.Status,
		"attempts":       output.Attempts,
		"duplicate":      output.Duplicate,
	})
}
