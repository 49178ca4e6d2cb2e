package simulation

import (
	"context"
	"testing"

	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/network"
	"github.com/nvandessel/iac/internal/store"
)

// Runner orchestrates simulation experiments against a real network store
// and engine.
type Runner struct {
	t     *testing.T
	store *store.SQLiteNetworkStore
}

// NewRunner creates a simulation runner with an isolated SQLite store
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteNetworkStore(tmpDir)
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Store returns the runner's network store.
func (r *Runner) Store() *store.SQLiteNetworkStore {
	return r.store
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()

	// Phase 1: Build the network.
	net := r.buildNetwork(ctx, scenario)

	// Phase 2: Configure the engine.
	config := iac.DefaultConfig()
	if scenario.Config != nil {
		config = *scenario.Config
	}
	engine, err := iac.NewEngine(net.Excitation, net.Inhibition, scenario.Probes, config)
	if err != nil {
		r.t.Fatalf("%s: NewEngine: %v", scenario.Name, err)
	}

	steps := scenario.Steps
	if steps == 0 {
		steps = iac.DefaultSteps
	}

	// Phase 3: Run, snapshotting as configured.
	snapshots := []Snapshot{{Step: 0, Activations: engine.Activations()}}
	for step := 1; step <= steps; step++ {
		if scenario.BeforeStep != nil {
			scenario.BeforeStep(step, engine)
		}

		record := step == steps || (scenario.SnapshotEvery > 0 && step%scenario.SnapshotEvery == 0)
		var before map[string]float64
		if record {
			before = engine.Activations()
		}
		engine.UpdateActivations()
		if record {
			acts := engine.Activations()
			snapshots = append(snapshots, Snapshot{
				Step:        step,
				Activations: acts,
				MaxDelta:    iac.MaxDelta(before, acts),
			})
		}
	}

	return SimulationResult{
		Network:   net,
		Config:    config,
		Snapshots: snapshots,
		Final:     engine.Activations(),
	}
}

// buildNetwork copies the scenario's network, applies its links, and
// optionally round-trips it through the store.
func (r *Runner) buildNetwork(ctx context.Context, scenario Scenario) *network.Network {
	r.t.Helper()

	var net *network.Network
	if scenario.Network != nil {
		net = scenario.Network.Clone()
	} else {
		net = network.JetsAndSharks()
	}

	for _, l := range scenario.Links {
		if err := net.Link(l[0], l[1]); err != nil {
			r.t.Fatalf("%s: %v", scenario.Name, err)
		}
	}
	if err := network.Validate(net); err != nil {
		r.t.Fatalf("%s: invalid network: %v", scenario.Name, err)
	}

	if !scenario.Persist {
		return net
	}

	name := scenario.Name
	if name == "" {
		name = "scenario"
	}
	if err := r.store.SaveNetwork(ctx, name, "simulation", net); err != nil {
		r.t.Fatalf("%s: SaveNetwork: %v", scenario.Name, err)
	}
	loaded, err := r.store.LoadNetwork(ctx, name)
	if err != nil {
		r.t.Fatalf("%s: LoadNetwork: %v", scenario.Name, err)
	}
	return loaded
}
