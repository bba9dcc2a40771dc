package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one tool invocation.
	FieldRunID = "run_id"
	// FieldTool names the tool driving a run (dupes, images, music).
	FieldTool = "tool"
	// FieldStage is the standardized key for pipeline stage names.
	FieldStage = "stage"
	// FieldPath carries the file a record refers to.
	FieldPath = "path"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type runKey struct{}

type runInfo struct {
	id   string
	tool string
}

// WithRun attaches run identity to ctx so WithContext can tag log lines.
func WithRun(ctx context.Context, runID, tool string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runKey{}, runInfo{id: runID, tool: tool})
}

// RunFromContext returns the run id and tool stored by WithRun.
func RunFromContext(ctx context.Context) (string, string, bool) {
	if ctx == nil {
		return "", "", false
	}
	info, ok := ctx.Value(runKey{}).(runInfo)
	if !ok {
		return "", "", false
	}
	return info.id, info.tool, true
}

// WithContext returns a logger augmented with run fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	id, tool, ok := RunFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(String(FieldRunID, id), String(FieldTool, tool))
}
