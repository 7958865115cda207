package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittoftp/pkg/adapter/ftp"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/control"
)

func TestCreateBehaviorStore_Memory(t *testing.T) {
	cfg := &BehaviorsConfig{Persistence: PersistenceConfig{Type: "memory"}}

	store, err := CreateBehaviorStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create memory behavior store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if got := len(store.ListAll()); got != len(behavior.Commands) {
		t.Errorf("Expected %d commands, got %d", len(behavior.Commands), got)
	}
}

func TestCreateBehaviorStore_InitialCommands(t *testing.T) {
	cfg := &BehaviorsConfig{
		Persistence: PersistenceConfig{Type: "memory"},
		Commands: map[string]behavior.CommandBehavior{
			"list": {ErrorEnabled: true},
			"STOR": {DelaySeconds: 3},
		},
	}

	store, err := CreateBehaviorStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create behavior store: %v", err)
	}

	if !store.Get("LIST").ErrorEnabled {
		t.Error("Expected LIST error enabled")
	}
	if store.Get("STOR").DelaySeconds != 3 {
		t.Errorf("Expected STOR delay 3, got %d", store.Get("STOR").DelaySeconds)
	}
	if store.Get("PWD") != (behavior.CommandBehavior{}) {
		t.Error("Expected PWD to keep the default behavior")
	}
}

func TestCreateBehaviorStore_UnknownInitialCommand(t *testing.T) {
	cfg := &BehaviorsConfig{
		Persistence: PersistenceConfig{Type: "memory"},
		Commands:    map[string]behavior.CommandBehavior{"MKD": {ErrorEnabled: true}},
	}

	_, err := CreateBehaviorStore(context.Background(), cfg)
	if !errors.Is(err, behavior.ErrUnknownCommand) {
		t.Fatalf("Expected ErrUnknownCommand, got %v", err)
	}
}

func TestCreateBehaviorStore_UnknownType(t *testing.T) {
	cfg := &BehaviorsConfig{Persistence: PersistenceConfig{Type: "etcd"}}

	if _, err := CreateBehaviorStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown persistence type")
	}
}

func TestCreateBehaviorStore_BadgerMissingPath(t *testing.T) {
	cfg := &BehaviorsConfig{
		Persistence: PersistenceConfig{Type: "badger", Badger: map[string]any{}},
	}

	if _, err := CreateBehaviorStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error when db_path is missing")
	}
}

func TestCreateBehaviorStore_BadgerSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "behaviors")
	cfg := &BehaviorsConfig{
		Persistence: PersistenceConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": dbPath},
		},
	}

	store, err := CreateBehaviorStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create badger behavior store: %v", err)
	}
	if _, err := store.Set(ctx, "CWD", true, 2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := CreateBehaviorStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to reopen badger behavior store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	want := behavior.CommandBehavior{ErrorEnabled: true, DelaySeconds: 2}
	if got := reopened.Get("CWD"); got != want {
		t.Errorf("Expected persisted %+v, got %+v", want, got)
	}
}

func TestCreateBehaviorStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &BehaviorsConfig{
		Persistence: PersistenceConfig{
			Type:   "badger",
			Badger: map[string]any{"in_memory": true},
		},
	}

	if _, err := CreateBehaviorStore(ctx, cfg); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 2 {
		t.Fatalf("Expected 2 adapters, got %d", len(adapters))
	}
	if _, ok := adapters[0].(*ftp.FTPAdapter); !ok {
		t.Errorf("Expected FTP adapter first, got %T", adapters[0])
	}
	if _, ok := adapters[1].(*control.ControlAdapter); !ok {
		t.Errorf("Expected control adapter second, got %T", adapters[1])
	}

	// The control adapter subscribes to the logger on creation
	_ = adapters[1].Stop(context.Background())
}

func TestCreateAdapters_NoneEnabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.FTP.Enabled = false
	cfg.Adapters.Control.Enabled = false

	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Fatal("Expected error when no adapters are enabled")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig())

	if result.Server != nil {
		t.Error("Expected nil metrics server when disabled")
	}
	if result.FTPMetrics == nil {
		t.Error("Expected no-op FTP metrics when disabled")
	}
}
