package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var moduleNames = []string{"identity", "notification", "project"}

func (a *App) enabledModules() []string {
	var out []string
	for _, name := range moduleNames {
		if a.config.GetBool("modules." + name + ".enabled") {
			out = append(out, name)
		}
	}
	return out
}

// Start serves HTTP and returns a channel that is closed once the process
// should stop, on SIGINT or SIGTERM or when the listener fails.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})
	var once sync.Once
	stop := func(reason string) {
		once.Do(func() {
			slog.Info("taskdeck stopping", "reason", reason)
			close(done)
		})
	}

	go func() {
		slog.Info("taskdeck listening",
			"address", a.httpServer.Addr,
			"modules", a.enabledModules(),
			"demo", a.config.GetBool("modules.identity.demo.enabled"),
		)

		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen and serve http server", "error", err)
			stop("listener failed")
		}
	}()

	go func() {
		ctx, cancel := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()
		stop("signal")
	}()

	return done
}

// Serve runs the HTTP server on l. Tests use it with an ephemeral port.
func (a *App) Serve(l net.Listener) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- a.httpServer.Serve(l)
		close(errChan)
	}()

	return errChan
}

// Stop drains in-flight requests first, then cancels the consumers and the
// demo reset, waits for them and closes the resources last.
func (a *App) Stop(ctx context.Context) {
	if d := a.config.GetSecond("app.server.http.shutdown_timeout_seconds"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to drain http server", "error", err)
	}

	if a.cancel != nil {
		a.cancel()
	}

	slog.InfoContext(ctx, "waiting for background workers")
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background workers returned errors", "error", err)
	}

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closer.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "taskdeck stopped")
}
