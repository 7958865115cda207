// Package server runs the protocol adapters that share one VirtualFilesystem
// and one BehaviorStore.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/adapter"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/vfs"
)

// DefaultStopTimeout bounds each adapter's Stop call during shutdown.
const DefaultStopTimeout = 30 * time.Second

// Server manages the lifecycle of the adapters.
//
// The filesystem and behavior table are constructed by the caller and handed
// by reference to every adapter, so a behavior written through the control
// adapter is seen by the next command of every FTP session.
//
// Example usage:
//
//	srv := server.New(vfs.New(), behavior.NewStore())
//	srv.AddAdapter(ftp.New(ftpConfig, nil))
//	srv.AddAdapter(control.New(controlConfig))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type Server struct {
	fs        *vfs.FileSystem
	behaviors *behavior.Store

	mu       sync.Mutex
	adapters []adapter.Adapter
	served   bool

	// StopTimeout bounds each adapter's Stop during shutdown.
	StopTimeout time.Duration
}

// New creates a Server. Panics if either store is nil.
func New(fs *vfs.FileSystem, behaviors *behavior.Store) *Server {
	if fs == nil {
		panic("filesystem cannot be nil")
	}
	if behaviors == nil {
		panic("behavior store cannot be nil")
	}

	return &Server{
		fs:          fs,
		behaviors:   behaviors,
		adapters:    make([]adapter.Adapter, 0, 2),
		StopTimeout: DefaultStopTimeout,
	}
}

// AddAdapter injects the shared stores into a and registers it.
//
// Returns an error for a duplicate protocol or a port already taken by
// another adapter. Port 0 (OS-assigned) never conflicts.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return fmt.Errorf("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetStores(s.fs, s.behaviors)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts all adapters and blocks until ctx is cancelled or one of them
// fails. Every adapter is stopped, in reverse registration order, before
// Serve returns.
//
// Returns ctx.Err() after a requested shutdown, or the first adapter failure.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return fmt.Errorf("Serve() has already been called")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting DittoFTP with %d adapter(s)", len(adapters))

	// Adapters see a child context so a failing adapter can take the rest down.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			err := a.Serve(runCtx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
			case errors.Is(err, context.Canceled) || runCtx.Err() != nil:
				logger.Debug("%s adapter stopped: %v", protocol, err)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()
	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed - initiating shutdown of all adapters", adapterErr.protocol)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	cancel()
	s.stopAllAdapters(adapters)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("DittoFTP stopped")
	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop on each adapter in reverse registration order.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.StopTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}

// Adapters returns a copy of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]adapter.Adapter, len(s.adapters))
	copy(out, s.adapters)
	return out
}

// Behaviors returns the shared behavior table.
func (s *Server) Behaviors() *behavior.Store {
	return s.behaviors
}

// FileSystem returns the shared filesystem.
func (s *Server) FileSystem() *vfs.FileSystem {
	return s.fs
}
