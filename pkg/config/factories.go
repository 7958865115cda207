package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/behavior/badger"
	"github.com/mitchellh/mapstructure"
)

// CreateBehaviorStore creates the behavior table based on configuration.
//
// The persistence Type selects the backend, then the type-specific options
// map is decoded and passed to the backend's constructor. Initial command
// behaviors from the config are applied last, so they win over persisted
// values.
//
// Supported types:
//   - "memory": behaviors live only as long as the process
//   - "badger": behaviors are persisted with pkg/behavior/badger
func CreateBehaviorStore(ctx context.Context, cfg *BehaviorsConfig) (*behavior.Store, error) {
	var (
		store *behavior.Store
		err   error
	)

	switch cfg.Persistence.Type {
	case "", "memory":
		store = behavior.NewStore()
	case "badger":
		store, err = createBadgerBehaviorStore(ctx, cfg.Persistence.Badger)
	default:
		return nil, fmt.Errorf("unknown behavior persistence type: %q", cfg.Persistence.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := applyInitialBehaviors(ctx, store, cfg.Commands); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

// createBadgerBehaviorStore opens a Badger-backed behavior table.
func createBadgerBehaviorStore(ctx context.Context, options map[string]any) (*behavior.Store, error) {
	var persisterCfg badger.Config
	if err := mapstructure.Decode(options, &persisterCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger behavior persistence config: %w", err)
	}

	if persisterCfg.DBPath == "" && !persisterCfg.InMemory {
		return nil, fmt.Errorf("badger behavior persistence: db_path is required")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	persister, err := badger.New(persisterCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger behavior persister: %w", err)
	}

	store, err := behavior.NewPersistentStore(ctx, persister)
	if err != nil {
		_ = persister.Close()
		return nil, err
	}

	logger.Info("Behavior persistence: badger (path=%s)", persisterCfg.DBPath)
	return store, nil
}

// applyInitialBehaviors sets every configured command behavior in name order.
func applyInitialBehaviors(ctx context.Context, store *behavior.Store, commands map[string]behavior.CommandBehavior) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := commands[name]
		applied, err := store.Set(ctx, name, b.ErrorEnabled, b.DelaySeconds)
		if err != nil {
			return fmt.Errorf("behaviors.commands.%s: %w", name, err)
		}
		logger.Info("Initial behavior %s: error=%v delay=%ds", name, applied.ErrorEnabled, applied.DelaySeconds)
	}

	return nil
}
