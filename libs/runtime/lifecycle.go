package runtime

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Stopper is anything with a graceful, deadline-bound shutdown (http.Server, otel providers).
type Stopper interface {
	Shutdown(ctx context.Context) error
}

// ShutdownAll stops each component in order, giving every one its own timeout.
func ShutdownAll(logger *slog.Logger, timeout time.Duration, stoppers map[string]Stopper, order ...string) {
	for _, name := range order {
		s, ok := stoppers[name]
		if !ok || s == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "component", name, "err", err)
		} else {
			logger.Info("stopped", "component", name)
		}
		cancel()
	}
}

// StopperFunc adapts a shutdown function to Stopper.
type StopperFunc func(ctx context.Context) error

func (f StopperFunc) Shutdown(ctx context.Context) error { return f(ctx) }
