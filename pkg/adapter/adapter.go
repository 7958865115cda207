package adapter

import (
	"context"

	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/vfs"
)

// Adapter represents a protocol-specific server that can be managed by
// server.Server.
//
// Every adapter shares the same VirtualFilesystem and BehaviorStore, so a
// behavior set through the control surface is observed by the next FTP
// command on any session.
//
// Lifecycle:
//  1. Creation: adapter is created with its own configuration
//  2. Store injection: SetStores() provides the shared state
//  3. Startup: Serve() starts the server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// SetStores() is called once before Serve(); Stop() may be called
// concurrently with Serve().
type Adapter interface {
	// Serve starts the server and blocks until ctx is cancelled or an
	// unrecoverable error occurs.
	//
	// Returns nil (or context.Canceled) on graceful shutdown. If Serve returns
	// before ctx is cancelled, the server treats it as fatal and stops every
	// other adapter.
	Serve(ctx context.Context) error

	// SetStores injects the shared filesystem and behavior table.
	SetStores(fs *vfs.FileSystem, behaviors *behavior.Store)

	// Stop initiates graceful shutdown. Must be idempotent and safe to call
	// concurrently with Serve().
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name, e.g. "FTP".
	Protocol() string

	// Port returns the TCP port the adapter listens on. Before Serve binds it
	// this is the configured port.
	Port() int
}
