package simulation

import (
	"math"

	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/network"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name string

	// Network is probed by the scenario. Nil selects the built-in Jets and
	// Sharks dataset. The runner works on a copy, so scenarios may share one.
	Network *network.Network

	// Links are extra symmetric excitatory connections applied before the run.
	Links [][2]string

	Probes []string
	Steps  int         // 0 = iac.DefaultSteps
	Config *iac.Config // nil = iac.DefaultConfig()

	// SnapshotEvery records the activations every N steps. 0 records only
	// the initial and final states.
	SnapshotEvery int

	// Persist round-trips the network through the SQLite store before the
	// run, so the scenario runs on exactly what a stored network loads as.
	Persist bool

	// BeforeStep, when non-nil, is called with the upcoming step number and
	// the engine before each update.
	BeforeStep func(step int, e *iac.Engine)
}

// Snapshot captures the activations after a step. Step 0 is the initial
// state.
type Snapshot struct {
	Step        int
	Activations map[string]float64
	MaxDelta    float64 // largest change made by this step
}

// SimulationResult captures the snapshots and final state of a run.
type SimulationResult struct {
	Network   *network.Network
	Config    iac.Config
	Snapshots []Snapshot
	Final     map[string]float64
}

// Activation returns the final activation of id, or NaN if the network has
// no such node.
func (r SimulationResult) Activation(id string) float64 {
	act, ok := r.Final[id]
	if !ok {
		return math.NaN()
	}
	return act
}

// Winner returns the most active member of block in the final state, or ""
// if the block does not exist. Ties go to the member listed first.
func (r SimulationResult) Winner(block string) string {
	b, ok := r.Network.Block(block)
	if !ok {
		return ""
	}
	winner := ""
	best := math.Inf(-1)
	for _, id := range b.Members {
		if act := r.Final[id]; act > best {
			winner, best = id, act
		}
	}
	return winner
}
