// Package behavior holds the live per-command fault-injection table.
//
// A single Store is constructed by the process's top-level composition and
// handed by reference to every FTP session and to the control surface. Sets
// take effect for the next command any session processes; a session already
// sleeping through a delay is not affected.
package behavior

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/marmos91/dittoftp/internal/logger"
)

// MaxDelaySeconds is the upper bound of a command delay. Values outside
// [0, MaxDelaySeconds] are clamped, never rejected.
const MaxDelaySeconds = 10

// Commands lists every command name the FTP session engine supports, in the
// order the control surface displays them.
var Commands = []string{"USER", "PASS", "PWD", "TYPE", "PASV", "LIST", "CWD", "QUIT", "STOR"}

// ErrUnknownCommand is returned by Set for names outside Commands.
var ErrUnknownCommand = errors.New("unknown command")

// CommandBehavior is the injected behavior of one command.
type CommandBehavior struct {
	// ErrorEnabled makes the command reply with its error code and skip all
	// side effects
	ErrorEnabled bool `json:"error" yaml:"error" mapstructure:"error"`

	// DelaySeconds is slept before the reply, in [0, MaxDelaySeconds]
	DelaySeconds int `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// Persister durably records behaviors. Implementations must be safe for use
// from Store, which serializes calls to Save.
type Persister interface {
	// Load returns every persisted behavior keyed by upper-case command name
	Load(ctx context.Context) (map[string]CommandBehavior, error)

	// Save records one command's behavior
	Save(ctx context.Context, command string, b CommandBehavior) error

	// Close releases the underlying resources
	Close() error
}

// Store is a concurrency-safe table mapping command name to CommandBehavior.
//
// Thread safety:
// Get and ListAll take a read lock; Set and Reset take the write lock. The
// persister (if any) is written while the write lock is held so the durable
// order matches the in-memory order.
type Store struct {
	mu        sync.RWMutex
	behaviors map[string]CommandBehavior
	persister Persister
}

// NewStore creates a store with every supported command at its default
// {ErrorEnabled: false, DelaySeconds: 0}.
func NewStore() *Store {
	s := &Store{behaviors: make(map[string]CommandBehavior, len(Commands))}
	for _, cmd := range Commands {
		s.behaviors[cmd] = CommandBehavior{}
	}
	return s
}

// NewPersistentStore creates a store backed by p. Previously persisted
// behaviors for supported commands are loaded; unknown names are ignored.
func NewPersistentStore(ctx context.Context, p Persister) (*Store, error) {
	s := NewStore()

	saved, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted behaviors: %w", err)
	}

	for name, b := range saved {
		cmd := normalize(name)
		if _, ok := s.behaviors[cmd]; !ok {
			logger.Warn("Ignoring persisted behavior for unknown command %q", name)
			continue
		}
		s.behaviors[cmd] = clamp(b)
	}

	s.persister = p
	logger.Debug("Loaded %d persisted command behavior(s)", len(saved))
	return s, nil
}

// Get returns the current behavior of command. Unknown names (including
// commands the session engine does not implement) yield the zero behavior.
func (s *Store) Get(command string) CommandBehavior {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.behaviors[normalize(command)]
}

// Set updates command's behavior. DelaySeconds is clamped to
// [0, MaxDelaySeconds]; the effective value is returned.
func (s *Store) Set(ctx context.Context, command string, errorEnabled bool, delaySeconds int) (CommandBehavior, error) {
	cmd := normalize(command)
	b := clamp(CommandBehavior{ErrorEnabled: errorEnabled, DelaySeconds: delaySeconds})

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.behaviors[cmd]; !ok {
		return CommandBehavior{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	if s.persister != nil {
		if err := s.persister.Save(ctx, cmd, b); err != nil {
			return CommandBehavior{}, fmt.Errorf("failed to persist behavior for %s: %w", cmd, err)
		}
	}

	s.behaviors[cmd] = b
	logger.Info("Behavior for %s set: error=%v delay=%ds", cmd, b.ErrorEnabled, b.DelaySeconds)
	return b, nil
}

// ListAll returns a snapshot copy of every command's behavior.
func (s *Store) ListAll() map[string]CommandBehavior {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]CommandBehavior, len(s.behaviors))
	for k, v := range s.behaviors {
		out[k] = v
	}
	return out
}

// Entry is one row of an ordered snapshot.
type Entry struct {
	Command         string `json:"command" yaml:"command"`
	CommandBehavior `yaml:",inline"`
}

// Snapshot returns every behavior ordered as in Commands.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(Commands))
	for _, cmd := range Commands {
		entries = append(entries, Entry{Command: cmd, CommandBehavior: s.behaviors[cmd]})
	}
	return entries
}

// Reset restores every command to the default behavior.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for cmd := range s.behaviors {
		if s.persister != nil {
			if err := s.persister.Save(ctx, cmd, CommandBehavior{}); err != nil {
				return fmt.Errorf("failed to persist reset of %s: %w", cmd, err)
			}
		}
		s.behaviors[cmd] = CommandBehavior{}
	}
	logger.Info("All command behaviors reset")
	return nil
}

// Close closes the persister, if any.
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

// IsSupported reports whether command is in Commands.
func IsSupported(command string) bool {
	cmd := normalize(command)
	for _, c := range Commands {
		if c == cmd {
			return true
		}
	}
	return false
}

func normalize(command string) string {
	return strings.ToUpper(strings.TrimSpace(command))
}

func clamp(b CommandBehavior) CommandBehavior {
	if b.DelaySeconds < 0 {
		b.DelaySeconds = 0
	}
	if b.DelaySeconds > MaxDelaySeconds {
		b.DelaySeconds = MaxDelaySeconds
	}
	return b
}
