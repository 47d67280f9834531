package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

type syncRequest struct {
	Filename string
}

func (syncRequest) Type() string { return "bookmarks.test.sync_request" }

func (syncRequest) Validate() error { return nil }

func TestDispatcherRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	attempts := 0
	statuses := []TelemetryStatus{}
	handler := NewHandler(
		func(ctx context.Context, msg syncRequest) error {
			attempts++
			if attempts == 1 {
				return errors.New("remote temporarily unavailable")
			}
			return nil
		},
		WithTimeout[syncRequest](time.Second),
		WithTelemetry[syncRequest](func(_ context.Context, _ syncRequest, info TelemetryInfo) {
			statuses = append(statuses, info.Status)
		}),
	)

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(1))
	t.Cleanup(sub.Unsubscribe)

	if err := dispatcher.Dispatch(context.Background(), syncRequest{Filename: "bookmarks.md"}); err != nil {
		t.Fatalf("dispatch after retry: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if len(statuses) != 2 || statuses[0] != TelemetryStatusFailed || statuses[1] != TelemetryStatusSuccess {
		t.Fatalf("telemetry statuses = %v", statuses)
	}
}

func TestDispatcherSurfacesExhaustedRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	handler := NewHandler(
		func(ctx context.Context, msg syncRequest) error {
			attempts++
			return errors.New("document version conflict")
		},
		WithTimeout[syncRequest](time.Second),
	)

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(2))
	t.Cleanup(sub.Unsubscribe)

	if err := dispatcher.Dispatch(context.Background(), syncRequest{Filename: "bookmarks.md"}); err == nil {
		t.Fatal("expected error after retries were exhausted")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}
