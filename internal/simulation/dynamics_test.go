package simulation

import (
	"testing"

	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/network"
)

func TestNoProbe_SettlesAtRest(t *testing.T) {
	r := NewRunner(t)
	result := r.Run(Scenario{
		Name:   "no-input",
		Probes: []string{"nobody"},
	})

	AssertAllNear(t, result, iac.DefaultConfig().Rest, 1e-6)
}

func TestSettles(t *testing.T) {
	r := NewRunner(t)
	result := r.Run(Scenario{
		Name:          "lance-settles",
		Probes:        []string{"Lance"},
		Steps:         1000,
		SnapshotEvery: 100,
	})

	if len(result.Snapshots) != 11 {
		t.Fatalf("got %d snapshots, want 11 (step 0 and every 100 steps)", len(result.Snapshots))
	}
	for i, snap := range result.Snapshots {
		if snap.Step != i*100 {
			t.Errorf("snapshot %d is step %d, want %d", i, snap.Step, i*100)
		}
	}
	if first, last := result.Snapshots[1], result.Snapshots[10]; last.MaxDelta >= first.MaxDelta {
		t.Errorf("step %d moved %g, step %d moved %g: want the network to slow down",
			first.Step, first.MaxDelta, last.Step, last.MaxDelta)
	}
	AssertSettled(t, result, 1e-6)
}

func TestWithinSoftBounds(t *testing.T) {
	config := iac.DefaultConfig()

	for _, probes := range [][]string{{"Jets"}, {"Lance"}, {"Jets", "Sharks"}} {
		r := NewRunner(t)
		result := r.Run(Scenario{
			Name:          "bounds",
			Probes:        probes,
			SnapshotEvery: 1,
		})
		AssertWithinBounds(t, result, config.MinActivation, config.MaxActivation)
	}
}

func TestBeforeStep(t *testing.T) {
	r := NewRunner(t)

	var calls []int
	r.Run(Scenario{
		Name:   "hook",
		Probes: []string{"Jets"},
		Steps:  5,
		BeforeStep: func(step int, e *iac.Engine) {
			if e.Steps() != step-1 {
				t.Errorf("BeforeStep(%d) saw engine at step %d", step, e.Steps())
			}
			calls = append(calls, step)
		},
	})

	if len(calls) != 5 || calls[0] != 1 || calls[4] != 5 {
		t.Errorf("BeforeStep calls = %v, want 1..5", calls)
	}
}

func TestPersistedNetworkRunsIdentically(t *testing.T) {
	r := NewRunner(t)

	direct := r.Run(Scenario{
		Name:   "direct",
		Probes: []string{"Jets", "20s"},
	})
	stored := r.Run(Scenario{
		Name:    "stored",
		Probes:  []string{"Jets", "20s"},
		Persist: true,
	})

	AssertSameActivations(t, direct, stored, 1e-12)

	loaded, err := r.Store().LoadNetwork(t.Context(), "stored")
	if err != nil {
		t.Fatalf("stored network not kept: %v", err)
	}
	if err := network.Validate(loaded); err != nil {
		t.Errorf("stored network is invalid: %v", err)
	}
}

func TestParallelWorkersMatchSequential(t *testing.T) {
	r := NewRunner(t)

	sequential := r.Run(Scenario{
		Name:   "sequential",
		Probes: []string{"Sharks"},
		Steps:  200,
	})

	config := iac.DefaultConfig()
	config.Workers = 4
	parallel := r.Run(Scenario{
		Name:   "parallel",
		Probes: []string{"Sharks"},
		Steps:  200,
		Config: &config,
	})

	AssertSameActivations(t, sequential, parallel, 0)
}
