// Package ftp implements the simulated FTP control/data protocol adapter.
//
// Every command a session processes first consults the shared behavior.Store
// and may be delayed or answered with an injected error before its normal
// semantics run against the shared vfs.FileSystem.
package ftp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/metrics"
	"github.com/marmos91/dittoftp/pkg/vfs"
)

// FTPAdapter implements adapter.Adapter for the simulated FTP server.
//
// Architecture:
// FTPAdapter owns the control listener and the connection lifecycle. Each
// accepted connection gets its own Session goroutine, so a session sleeping
// through an injected delay or waiting on a passive peer never blocks the
// accept loop or any other session.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections)
//  3. shutdownCtx cancelled (aborts delays and passive accepts)
//  4. Wait for sessions to finish (up to ShutdownTimeout)
//  5. Force-close any remaining control connections
type FTPAdapter struct {
	config FTPConfig

	listener net.Listener

	fs        *vfs.FileSystem
	behaviors *behavior.Store

	// metrics is never nil; a no-op is used when disabled
	metrics metrics.FTPMetrics

	activeConns  sync.WaitGroup
	shutdownOnce sync.Once
	shutdown     chan struct{}
	connCount    atomic.Int32

	// connSemaphore is nil when MaxConnections is 0
	connSemaphore chan struct{}

	// shutdownCtx is the parent of every session context
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// activeConnections maps session id to net.Conn for forced closure
	activeConnections sync.Map

	// port is the bound port once ready is closed
	port  atomic.Int32
	ready chan struct{}
}

// New creates an FTPAdapter. Call SetStores() before Serve().
//
// Panics if config validation fails.
func New(config FTPConfig, ftpMetrics metrics.FTPMetrics) *FTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid FTP config: %v", err))
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("FTP connection limit: %d", config.MaxConnections)
	} else {
		logger.Debug("FTP connection limit: unlimited")
	}

	if ftpMetrics == nil {
		ftpMetrics = metrics.NewNoopFTPMetrics()
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	a := &FTPAdapter{
		config:         config,
		metrics:        ftpMetrics,
		shutdown:       make(chan struct{}),
		connSemaphore:  connSemaphore,
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
		ready:          make(chan struct{}),
	}
	a.port.Store(int32(config.listenPort()))
	return a
}

// SetStores injects the shared filesystem and behavior table.
func (s *FTPAdapter) SetStores(fs *vfs.FileSystem, behaviors *behavior.Store) {
	s.fs = fs
	s.behaviors = behaviors
	logger.Debug("FTP stores configured")
}

// Serve accepts control connections until ctx is cancelled.
func (s *FTPAdapter) Serve(ctx context.Context) error {
	if s.fs == nil || s.behaviors == nil {
		return fmt.Errorf("FTP adapter: SetStores must be called before Serve")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.listenPort()))
	if err != nil {
		return fmt.Errorf("failed to create FTP listener on port %d: %w", s.config.listenPort(), err)
	}

	s.listener = listener
	s.port.Store(int32(listener.Addr().(*net.TCPAddr).Port))
	close(s.ready)

	logger.Info("FTP server listening on port %d", s.Port())
	logger.Debug("FTP config: max_connections=%d idle_timeout=%v data_timeout=%v require_auth=%v",
		s.config.MaxConnections, s.config.IdleTimeout, s.config.DataTimeout, s.config.RequireAuth)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("FTP shutdown signal received: %v", ctx.Err())
		case <-s.shutdown:
		}
		s.initiateShutdown()
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting FTP connection: %v", err)
				continue
			}
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)

		session := NewSession(s, tcpConn)
		s.activeConnections.Store(session.ID(), tcpConn)

		s.metrics.RecordConnectionAccepted()
		currentConns := s.connCount.Load()
		s.metrics.SetActiveConnections(currentConns)

		logger.Debug("FTP connection accepted from %s (active: %d)", tcpConn.RemoteAddr(), currentConns)

		go func(sess *Session, tcp net.Conn) {
			defer func() {
				s.activeConnections.Delete(sess.ID())

				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}

				s.metrics.RecordConnectionClosed()
				currentConns := s.connCount.Load()
				s.metrics.SetActiveConnections(currentConns)

				logger.Debug("FTP connection closed from %s (active: %d)", tcp.RemoteAddr(), currentConns)
			}()

			sess.Serve(s.shutdownCtx)
		}(session, tcpConn)
	}
}

// initiateShutdown closes the listener and cancels every session context.
// Safe to call multiple times.
func (s *FTPAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("FTP shutdown initiated")

		close(s.shutdown)

		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing FTP listener: %v", err)
			}
		}

		s.cancelRequests()
	})
}

// gracefulShutdown waits for sessions, force-closing them after
// ShutdownTimeout.
func (s *FTPAdapter) gracefulShutdown() error {
	activeCount := s.connCount.Load()
	logger.Info("FTP graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		activeCount, s.config.ShutdownTimeout)

	if s.waitSessions(s.config.ShutdownTimeout) {
		logger.Info("FTP graceful shutdown complete: all connections closed")
		return nil
	}

	remaining := s.connCount.Load()
	logger.Warn("FTP shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
		remaining, s.config.ShutdownTimeout)
	s.forceCloseConnections()

	return fmt.Errorf("FTP shutdown timeout: %d connections force-closed", remaining)
}

func (s *FTPAdapter) waitSessions(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *FTPAdapter) forceCloseConnections() {
	closedCount := 0
	s.activeConnections.Range(func(key, value any) bool {
		id := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing FTP connection %s: %v", id, err)
		} else {
			closedCount++
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closedCount > 0 {
		logger.Info("Force-closed %d FTP connection(s)", closedCount)
	}
}

// Stop initiates shutdown and waits for sessions until ctx is done.
func (s *FTPAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("FTP shutdown context cancelled: %d connection(s) still active: %v", remaining, ctx.Err())
		return ctx.Err()
	}
}

func (s *FTPAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			logger.Info("FTP metrics: active_connections=%d", s.connCount.Load())
		}
	}
}

// GetActiveConnections returns the current number of control connections.
func (s *FTPAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Ready is closed once the control listener is bound.
func (s *FTPAdapter) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the control address for local clients ("127.0.0.1:port").
func (s *FTPAdapter) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", s.Port())
}

// Port returns the control port; after Ready it is the bound port.
func (s *FTPAdapter) Port() int {
	return int(s.port.Load())
}

// Protocol returns "FTP".
func (s *FTPAdapter) Protocol() string {
	return "FTP"
}
