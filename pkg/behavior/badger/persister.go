// Package badger persists command behaviors in BadgerDB so fault-injection
// scenarios survive restarts.
//
// Key layout: "behavior:<COMMAND>" → JSON-encoded behavior.CommandBehavior.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/behavior"
)

const keyPrefix = "behavior:"

// Config configures the Badger persister.
type Config struct {
	// DBPath is the directory holding the database files
	DBPath string `mapstructure:"db_path"`

	// InMemory runs Badger without touching disk (tests only)
	InMemory bool `mapstructure:"in_memory"`
}

// Persister implements behavior.Persister on top of BadgerDB.
type Persister struct {
	db *badgerdb.DB
}

var _ behavior.Persister = (*Persister)(nil)

// New opens (or creates) the database described by cfg.
func New(cfg Config) (*Persister, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger behavior persister: db_path is required")
		}
		opts = badgerdb.DefaultOptions(cfg.DBPath)
	}
	opts = opts.WithLoggingLevel(badgerdb.WARNING)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug("Badger behavior persister opened (path=%q in_memory=%v)", cfg.DBPath, cfg.InMemory)
	return &Persister{db: db}, nil
}

// Load reads every persisted behavior.
func (p *Persister) Load(ctx context.Context) (map[string]behavior.CommandBehavior, error) {
	out := make(map[string]behavior.CommandBehavior)

	err := p.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			cmd := strings.TrimPrefix(string(item.Key()), keyPrefix)

			var b behavior.CommandBehavior
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &b)
			}); err != nil {
				return fmt.Errorf("decode behavior %s: %w", cmd, err)
			}
			out[cmd] = b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes one command's behavior.
func (p *Persister) Save(ctx context.Context, command string, b behavior.CommandBehavior) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	val, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode behavior %s: %w", command, err)
	}

	return p.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyPrefix+command), val)
	})
}

// Close closes the database.
func (p *Persister) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}
