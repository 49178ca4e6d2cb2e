package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/network"
	"github.com/nvandessel/iac/internal/store"
)

func TestNewServer(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &Config{
		Name:    "test-server",
		Version: "v1.0.0",
		Root:    tmpDir,
	}

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.store == nil {
		t.Error("Server.store is nil")
	}
	if server.root != tmpDir {
		t.Errorf("Server.root = %q, want %q", server.root, tmpDir)
	}
	if server.model != iac.DefaultConfig() {
		t.Errorf("zero Model should select defaults, got %+v", server.model)
	}

	if _, err := os.Stat(filepath.Join(store.DataDir(tmpDir), "iac.db")); err != nil {
		t.Errorf("expected database under .iac: %v", err)
	}
}

func TestNewServer_CustomModel(t *testing.T) {
	model := iac.DefaultConfig()
	model.Inhibition = 0.04

	server := newServer(&Config{Name: "t", Version: "v0", Root: t.TempDir(), Model: model}, store.NewInMemoryNetworkStore())
	defer server.Close()

	_, out, err := server.handleIACRun(context.Background(), nil, IACRunInput{Probes: []string{"Jets"}, Steps: 1})
	if err != nil {
		t.Fatalf("handleIACRun failed: %v", err)
	}
	if out.Config.Inhibition != 0.04 {
		t.Errorf("run used Inhibition %v, want server default 0.04", out.Config.Inhibition)
	}
}

func TestNewServer_SQLiteStoredNetwork(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	// Import a network the way the CLI does, then serve it.
	s, err := store.NewSQLiteNetworkStore(tmpDir)
	if err != nil {
		t.Fatalf("NewSQLiteNetworkStore failed: %v", err)
	}
	pair := network.New([]network.Block{{Name: "pair", Members: []string{"x", "y"}}}, nil)
	if err := s.SaveNetwork(ctx, "pair", "test", pair); err != nil {
		t.Fatalf("SaveNetwork failed: %v", err)
	}
	s.Close()

	server, err := NewServer(&Config{Name: "t", Version: "v0", Root: tmpDir})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	_, out, err := server.handleIACRun(ctx, nil, IACRunInput{Network: "pair", Probes: []string{"x"}, Steps: 20})
	if err != nil {
		t.Fatalf("handleIACRun failed: %v", err)
	}
	if out.Count != 2 || out.Activations[0].ID != "x" {
		t.Errorf("expected x most active, got %+v", out.Activations)
	}
}
