package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports a failed scheduled job back to Zeebe. Retryable errors
// fail the job so the broker retries it; anything else is thrown as a BPMN
// error so the process can route it.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	retries := RemainingRetries(stdErr, job.Retries)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          stdErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})

	if retries > 0 {
		h.failJob(ctx, client, job, stdErr, retries)
		return
	}
	h.throwError(ctx, client, job, stdErr)
}

// RemainingRetries decides how many retries the broker should still make. The
// job's own remaining count wins when it is lower than the code's budget.
func RemainingRetries(stdErr *StandardError, jobRetries int32) int32 {
	if !stdErr.Retryable || jobRetries <= 1 {
		return 0
	}
	budget := int32(GetRetryCount(stdErr.Code))
	if budget == 0 {
		return 0
	}
	if jobRetries-1 < budget {
		return jobRetries - 1
	}
	return budget
}

func errorVariables(stdErr *StandardError) string {
	vars := map[string]interface{}{
		"errorCode":    string(stdErr.Code),
		"errorMessage": stdErr.Message,
		"errorDetails": stdErr.Details,
		"retryable":    stdErr.Retryable,
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return ""
	}
	return string(b)
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *StandardError, retries int32) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(stdErr.Error())

	if vars := errorVariables(stdErr); vars != "" {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			if _, err := withVars.Send(ctx); err != nil {
				h.logger.Error("failed to send fail job command", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send fail job command", map[string]interface{}{"error": err.Error()})
	}
}

func (h *ErrorHandler) throwError(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *StandardError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(string(stdErr.Code)).
		ErrorMessage(stdErr.Message)

	if vars := errorVariables(stdErr); vars != "" {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			if _, err := withVars.Send(ctx); err != nil {
				h.logger.Error("failed to throw error", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"error": err.Error()})
	}
}
