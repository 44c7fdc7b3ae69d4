package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RateLimitedReply is the fixed user-facing text surfaced when the service
// reports a rate limit.
const RateLimitedReply = "I'm done answering you all for today. Come back tomorrow."

const (
	rateLimitErrorCode = "rate_limit_exceeded"
	defaultInterval    = 1500 * time.Millisecond
)

// ErrRateLimited signals the assistant service rejected the run for quota.
var ErrRateLimited = errors.New("assistant rate limited")

// RunFailedError is any other terminal non-completed run status.
type RunFailedError struct {
	Status string
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("assistant run failed with status %s", e.Status)
}

// ToolCallHandler resolves one requested tool call into its textual output.
type ToolCallHandler func(call ToolCall) (ToolOutput, error)

// Poller drives a run to a terminal state, executing requested tool calls
// through the supplied handler and resubmitting their outputs.
type Poller struct {
	client   *Client
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller builds a poller on the standard 1.5s interval.
func NewPoller(client *Client, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{client: client, interval: defaultInterval, logger: logger}
}

// NewPollerWithInterval overrides the poll interval, used in tests.
func NewPollerWithInterval(client *Client, logger *slog.Logger, interval time.Duration) *Poller {
	p := NewPoller(client, logger)
	p.interval = interval
	return p
}

// Await polls the run until it reaches a terminal state. onToolCall may be
// nil when the caller registered no tools with the assistant; a
// requires_action run then fails.
func (p *Poller) Await(ctx context.Context, threadID, runID string, onToolCall ToolCallHandler) error {
	for {
		status, err := p.client.GetRun(ctx, threadID, runID)
		if err != nil {
			return err
		}
		p.logger.Debug("assistant run polled", "run_id", runID, "status", status.Status)

		switch status.Status {
		case "cancelled", "failed", "expired":
			if status.LastError != nil && status.LastError.Code == rateLimitErrorCode {
				return ErrRateLimited
			}
			return &RunFailedError{Status: status.Status}

		case "requires_action":
			if err := p.handleRequiredAction(ctx, threadID, runID, status.RequiredAction, onToolCall); err != nil {
				return err
			}

		case "completed":
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

func (p *Poller) handleRequiredAction(ctx context.Context, threadID, runID string, action *RequiredAction, onToolCall ToolCallHandler) error {
	if action == nil {
		return errors.New("run requires action but carries none")
	}
	if action.Type != "submit_tool_outputs" {
		return fmt.Errorf("unsupported required action: %s", action.Type)
	}
	if onToolCall == nil {
		return errors.New("run requested tool calls but no handler is registered")
	}

	outputs := make([]ToolOutput, 0, len(action.SubmitToolOutputs.ToolCalls))
	for _, call := range action.SubmitToolOutputs.ToolCalls {
		out, err := onToolCall(call)
		if err != nil {
			return fmt.Errorf("tool call %s: %w", call.Function.Name, err)
		}
		outputs = append(outputs, out)
	}

	p.logger.Info("submitting tool outputs", "run_id", runID, "count", len(outputs))
	return p.client.SubmitToolOutputs(ctx, threadID, runID, outputs)
}
