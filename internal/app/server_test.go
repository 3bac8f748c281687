package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goroutine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bareApp(t *testing.T, yaml string, handler http.Handler) *App {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &App{
		ctx:        ctx,
		cancel:     cancel,
		config:     cfg,
		goroutine:  goroutine.NewManager(4),
		httpServer: &http.Server{Addr: "127.0.0.1:99999", Handler: handler, ReadHeaderTimeout: time.Second},
	}
}

func TestApp_Lifecycle(t *testing.T) {
	t.Run("EnabledModules", func(t *testing.T) {
		a := bareApp(t, "modules:\n  identity:\n    enabled: true\n  project:\n    enabled: true\n", nil)

		assert.Equal(t, []string{"identity", "project"}, a.enabledModules())
	})

	t.Run("StartStopsWhenListenerFails", func(t *testing.T) {
		a := bareApp(t, "app:\n  name: taskdeck\n", nil)

		done := a.Start()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("start did not report the failed listener")
		}
	})

	t.Run("StopDrainsBeforeCancelingWorkers", func(t *testing.T) {
		// Arrange
		release := make(chan struct{})
		entered := make(chan struct{})
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			close(entered)
			<-release
			w.WriteHeader(http.StatusNoContent)
		})
		a := bareApp(t, "app:\n  server:\n    http:\n      shutdown_timeout_seconds: 5\n", handler)

		srv := httptest.NewUnstartedServer(nil)
		a.Serve(srv.Listener)

		var order []string
		workerDone := make(chan struct{})
		require.True(t, a.goroutine.Go(a.ctx, func(ctx context.Context) error {
			<-ctx.Done()
			order = append(order, "worker stopped")
			close(workerDone)
			return nil
		}))

		respDone := make(chan int, 1)
		go func() {
			resp, err := http.Get("http://" + srv.Listener.Addr().String())
			if err != nil {
				respDone <- 0
				return
			}
			resp.Body.Close()
			respDone <- resp.StatusCode
		}()
		<-entered

		// Act
		stopped := make(chan struct{})
		go func() {
			a.Stop(context.Background())
			close(stopped)
		}()

		select {
		case <-workerDone:
			t.Fatal("worker canceled while a request was in flight")
		case <-time.After(100 * time.Millisecond):
		}
		order = append(order, "request released")
		close(release)

		// Assert
		assert.Equal(t, http.StatusNoContent, <-respDone)
		<-stopped
		assert.Equal(t, []string{"request released", "worker stopped"}, order)
		assert.True(t, errors.Is(a.ctx.Err(), context.Canceled))
	})
}
