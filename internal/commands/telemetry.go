package commands

import (
	"context"
	"time"

	"github.com/goliatone/go-bookmarks/internal/logging"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// TelemetryStatus classifies the outcome of a command execution.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo is handed to telemetry callbacks after every execution.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// Telemetry is an optional post-execution hook, typed by message so
// callbacks can inspect the command payload.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry logs each outcome with its duration. Failures carry
// the error as a structured field rather than in the message.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	if logger == nil {
		logger = logging.NoOp()
	}
	return func(_ context.Context, _ T, info TelemetryInfo) {
		entry := logging.WithFields(logger, info.Fields)
		event, args := telemetryEvent(info)
		switch info.Status {
		case TelemetryStatusSuccess:
			entry.Info(event, args...)
		default:
			entry.Error(event, args...)
		}
	}
}

func telemetryEvent(info TelemetryInfo) (string, []any) {
	args := []any{"duration_ms", info.Duration.Milliseconds()}
	switch info.Status {
	case TelemetryStatusSuccess:
		return "command.execute.success", args
	case TelemetryStatusContextError:
		return "command.execute.context_error", append(args, "error", info.Error)
	default:
		return "command.execute.failed", append(args, "error", info.Error)
	}
}
