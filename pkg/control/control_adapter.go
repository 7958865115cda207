// Package control exposes the behavior-configuration surface over HTTP.
//
// It is the only interface an operator (or the ftpctl CLI) needs: a snapshot
// read of every command's behavior, a per-command write, a reset, and a
// pollable feed of recent log entries.
package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/vfs"
)

// ControlAdapter implements adapter.Adapter for the HTTP control surface.
type ControlAdapter struct {
	config Config
	logs   *LogBuffer

	server   *http.Server
	port     atomic.Int32
	ready    chan struct{}
	stopOnce sync.Once
}

// New creates a control adapter. The log buffer starts collecting
// immediately so entries logged during startup are visible.
func New(config Config) *ControlAdapter {
	config.applyDefaults()

	logs := NewLogBuffer(config.LogBufferSize)
	logs.Attach()

	a := &ControlAdapter{
		config: config,
		logs:   logs,
		ready:  make(chan struct{}),
	}
	a.port.Store(int32(config.listenPort()))
	return a
}

// SetStores wires the behavior table into the HTTP handlers. The filesystem
// is not exposed.
func (a *ControlAdapter) SetStores(fs *vfs.FileSystem, behaviors *behavior.Store) {
	a.server = &http.Server{
		Handler:      NewHandler(behaviors, a.logs),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Serve listens until ctx is cancelled.
func (a *ControlAdapter) Serve(ctx context.Context) error {
	if a.server == nil {
		return fmt.Errorf("control adapter: SetStores must be called before Serve")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.listenPort()))
	if err != nil {
		return fmt.Errorf("failed to create control listener on port %d: %w", a.config.listenPort(), err)
	}
	a.port.Store(int32(ln.Addr().(*net.TCPAddr).Port))
	close(a.ready)

	logger.Info("Control API listening on port %d", a.Port())

	errChan := make(chan error, 1)
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		return a.Stop(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			// Stop() was called directly.
			return nil
		}
		return fmt.Errorf("control API failed: %w", err)
	}
}

// Stop gracefully shuts the HTTP server down and detaches the log buffer.
func (a *ControlAdapter) Stop(ctx context.Context) error {
	var stopErr error
	a.stopOnce.Do(func() {
		a.logs.Detach()
		if a.server == nil {
			return
		}
		if err := a.server.Shutdown(ctx); err != nil {
			stopErr = fmt.Errorf("control API shutdown error: %w", err)
			return
		}
		logger.Info("Control API stopped")
	})
	return stopErr
}

// Logs returns the buffer backing GET /api/logs.
func (a *ControlAdapter) Logs() *LogBuffer {
	return a.logs
}

// Ready is closed once the listener is bound.
func (a *ControlAdapter) Ready() <-chan struct{} {
	return a.ready
}

// URL returns the base URL for local clients.
func (a *ControlAdapter) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", a.Port())
}

// Port returns the HTTP port; after Ready it is the bound port.
func (a *ControlAdapter) Port() int {
	return int(a.port.Load())
}

// Protocol returns "Control".
func (a *ControlAdapter) Protocol() string {
	return "Control"
}

func normalizeCommand(command string) string {
	return strings.ToUpper(strings.TrimSpace(command))
}
