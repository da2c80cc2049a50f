package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestShutdownAllRunsInOrder(t *testing.T) {
	var calls []string
	record := func(name string, err error) Stopper {
		return StopperFunc(func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Fatalf("%s: expected deadline on shutdown context", name)
			}
			calls = append(calls, name)
			return err
		})
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ShutdownAll(logger, time.Second, map[string]Stopper{
		"http": record("http", nil),
		"otel": record("otel", errors.New("exporter gone")),
	}, "http", "grpc", "otel")

	if len(calls) != 2 || calls[0] != "http" || calls[1] != "otel" {
		t.Fatalf("unexpected shutdown order %v", calls)
	}
}
