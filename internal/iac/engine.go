// Package iac implements an Interactive Activation and Competition network.
// Nodes excite their neighbors in an excitation adjacency list and inhibit
// every other member of their category block, which is encoded as a ring of
// "next" pointers. Activations are integrated in discrete synchronous steps
// until the network settles into a stable interpretation of the probe.
package iac

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultSteps is the number of update steps applied by a standard run.
const DefaultSteps = 500

var (
	// ErrEmptyProbeSet is returned when no node receives external input.
	ErrEmptyProbeSet = errors.New("probe set may not be empty")

	// ErrMappingSizeMismatch is returned when the excitation and inhibition
	// mappings disagree on the number of nodes.
	ErrMappingSizeMismatch = errors.New("excitation and inhibition mappings differ in size")

	// ErrEmptyModel is returned when the model has no nodes.
	ErrEmptyModel = errors.New("model may not be empty")
)

// Config holds the constants of the IAC update rule.
// Defaults follow McClelland & Rumelhart's Jets and Sharks simulation.
type Config struct {
	// ProbeWeight (p) is the external input added to probed nodes each step. Default: 0.2.
	ProbeWeight float64 `json:"probe_weight" yaml:"probe_weight"`

	// Excitation (E) scales the summed excitatory input. Default: 0.05.
	Excitation float64 `json:"excitation" yaml:"excitation"`

	// Inhibition (I) scales the summed inhibitory input. Default: 0.03.
	Inhibition float64 `json:"inhibition" yaml:"inhibition"`

	// MaxActivation (M) is the soft upper bound. Default: 1.0.
	MaxActivation float64 `json:"max_activation" yaml:"max_activation"`

	// MinActivation (m) is the soft lower bound and the initial activation. Default: -0.2.
	MinActivation float64 `json:"min_activation" yaml:"min_activation"`

	// Decay (D) is the fraction of the distance from Rest removed each step. Default: 0.05.
	Decay float64 `json:"decay" yaml:"decay"`

	// Rest (R) is the activation a node settles to without input. Default: -0.1.
	Rest float64 `json:"rest" yaml:"rest"`

	// Workers is the number of goroutines computing a step. 0 or 1 runs
	// sequentially. The result does not depend on this value.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// DefaultConfig returns the standard IAC constants.
func DefaultConfig() Config {
	return Config{
		ProbeWeight:   0.2,
		Excitation:    0.05,
		Inhibition:    0.03,
		MaxActivation: 1.0,
		MinActivation: -0.2,
		Decay:         0.05,
		Rest:          -0.1,
	}
}

// Engine simulates an IAC network over a fixed set of nodes.
// The mappings and probe set are immutable after construction; only the
// activation map changes, and it is replaced wholesale on every step.
type Engine struct {
	config     Config
	excitation map[string][]string
	inhibition map[string]string
	probes     map[string]bool
	nodes      []string

	activations map[string]float64
	steps       int
}

// NewEngine validates its inputs and returns an engine with every node at
// the configured minimum activation. The mappings are copied, so later
// changes by the caller do not affect the engine.
func NewEngine(excitation map[string][]string, inhibition map[string]string, probes []string, config Config) (*Engine, error) {
	if len(probes) == 0 {
		return nil, ErrEmptyProbeSet
	}
	if len(excitation) != len(inhibition) {
		return nil, fmt.Errorf("%w: %d excitation nodes, %d inhibition nodes",
			ErrMappingSizeMismatch, len(excitation), len(inhibition))
	}
	if len(excitation) == 0 {
		return nil, ErrEmptyModel
	}

	e := &Engine{
		config:      config,
		excitation:  make(map[string][]string, len(excitation)),
		inhibition:  make(map[string]string, len(inhibition)),
		probes:      make(map[string]bool, len(probes)),
		nodes:       make([]string, 0, len(excitation)),
		activations: make(map[string]float64, len(excitation)),
	}
	for id, neighbors := range excitation {
		e.excitation[id] = append([]string(nil), neighbors...)
		e.nodes = append(e.nodes, id)
		e.activations[id] = config.MinActivation
	}
	for id, next := range inhibition {
		e.inhibition[id] = next
	}
	for _, id := range probes {
		e.probes[id] = true
	}
	sort.Strings(e.nodes)

	return e, nil
}

// UpdateActivations advances the network by one synchronous step. Every new
// activation is computed from the previous step's values; the new map is
// swapped in only once it is complete.
func (e *Engine) UpdateActivations() {
	next := make(map[string]float64, len(e.activations))
	if e.config.Workers > 1 {
		e.updateParallel(next)
	} else {
		for _, id := range e.nodes {
			next[id] = e.nextActivation(id)
		}
	}
	e.activations = next
	e.steps++
}

// Run applies exactly steps updates. There is no convergence check; callers
// that want to stop early should drive UpdateActivations themselves.
func (e *Engine) Run(steps int) {
	for i := 0; i < steps; i++ {
		e.UpdateActivations()
	}
}

// RunContext is Run for long simulations: it checks ctx between steps and
// returns ctx.Err() once ctx is done, leaving the steps applied so far.
func (e *Engine) RunContext(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.UpdateActivations()
	}
	return nil
}

// Activations returns a copy of the current activation of every node.
func (e *Engine) Activations() map[string]float64 {
	out := make(map[string]float64, len(e.activations))
	for id, act := range e.activations {
		out[id] = act
	}
	return out
}

// Activation returns the current activation of a single node.
func (e *Engine) Activation(id string) (float64, bool) {
	act, ok := e.activations[id]
	return act, ok
}

// Nodes returns the node ids in sorted order.
func (e *Engine) Nodes() []string {
	return append([]string(nil), e.nodes...)
}

// Steps returns the number of updates applied since construction.
func (e *Engine) Steps() int {
	return e.steps
}

// Config returns the constants the engine was built with.
func (e *Engine) Config() Config {
	return e.config
}

// nextActivation applies the IAC update rule to a single node, reading only
// from the current activation map.
func (e *Engine) nextActivation(id string) float64 {
	act := e.activation(id)
	input := e.netInput(id)

	var effect float64
	if input >= 0 {
		effect = (e.config.MaxActivation - act) * input
	} else {
		effect = (act - e.config.MinActivation) * input
	}

	return act + effect - e.config.Decay*(act-e.config.Rest)
}

// netInput combines probe, excitatory and inhibitory input for a node.
func (e *Engine) netInput(id string) float64 {
	var probe float64
	if e.probes[id] {
		probe = e.config.ProbeWeight
	}
	return probe + e.config.Excitation*e.excitationSum(id) - e.config.Inhibition*e.inhibitionSum(id)
}

// excitationSum adds up the non-negative activations of a node's
// excitatory neighbors.
func (e *Engine) excitationSum(id string) float64 {
	var sum float64
	for _, neighbor := range e.excitation[id] {
		if act := e.activation(neighbor); act >= 0 {
			sum += act
		}
	}
	return sum
}

// inhibitionSum walks the inhibition ring from the node's successor back to
// the node itself, adding up non-negative activations. The node never
// inhibits itself.
func (e *Engine) inhibitionSum(id string) float64 {
	var sum float64
	hops := 0
	for cur := e.ringNext(id); cur != id; cur = e.ringNext(cur) {
		if hops++; hops > len(e.nodes) {
			panic(fmt.Sprintf("iac: inhibition ring from %q does not return to it", id))
		}
		if act := e.activation(cur); act >= 0 {
			sum += act
		}
	}
	return sum
}

// activation looks up a node that the mappings reference. A missing node
// means the mappings are inconsistent, which is a caller error.
func (e *Engine) activation(id string) float64 {
	act, ok := e.activations[id]
	if !ok {
		panic(fmt.Sprintf("iac: unknown node %q", id))
	}
	return act
}

func (e *Engine) ringNext(id string) string {
	next, ok := e.inhibition[id]
	if !ok {
		panic(fmt.Sprintf("iac: node %q has no inhibition successor", id))
	}
	return next
}

// MaxDelta returns the largest absolute difference between two activation
// snapshots over the nodes of a. Nodes missing from b count as unchanged.
func MaxDelta(a, b map[string]float64) float64 {
	var max float64
	for id, act := range a {
		prev, ok := b[id]
		if !ok {
			continue
		}
		if d := math.Abs(act - prev); d > max {
			max = d
		}
	}
	return max
}
