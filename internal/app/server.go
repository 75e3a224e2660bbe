package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start serves HTTP in the background. The returned channel closes on the
// first termination signal or when the listener fails.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})
	sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening",
			"address", a.httpServer.Addr,
			"campaign_enabled", a.config.GetBool("modules.campaign.enabled"),
			"recipients_driver", a.config.GetString("recipients.driver"),
		)
		listenErr <- a.httpServer.ListenAndServe()
	}()

	go func() {
		defer close(done)
		defer stop()

		select {
		case <-sigCtx.Done():
			slog.Info("termination signal received")
		case err := <-listenErr:
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to listen and serve http server", "error", err)
			}
		}
	}()

	return done
}

// Stop drains the server before releasing anything a request may use: an
// in-flight send keeps its recipients, mail client and publisher until it
// has finished.
func (a *App) Stop(ctx context.Context) {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to drain http server", "error", err)
	}

	// Background workers such as the recipient sweeper stop with a.ctx.
	a.cancel()
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background worker ended with error", "error", err)
	}

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closer.name, "error", err)
			continue
		}
		slog.DebugContext(ctx, "resource closed", "name", closer.name)
	}
	slog.InfoContext(ctx, "application stopped")
}
