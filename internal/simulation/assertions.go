package simulation

import (
	"math"
	"sort"
	"testing"
)

// AssertWinner asserts that want is the most active member of block in the
// final state.
func AssertWinner(t *testing.T, result SimulationResult, block, want string) {
	t.Helper()
	got := result.Winner(block)
	if got == "" {
		t.Errorf("AssertWinner: block %s not found", block)
		return
	}
	if got != want {
		t.Errorf("AssertWinner: block %s won by %s (%.4f), want %s (%.4f)",
			block, got, result.Activation(got), want, result.Activation(want))
	}
}

// AssertWinners asserts AssertWinner for every block in wants.
func AssertWinners(t *testing.T, result SimulationResult, wants map[string]string) {
	t.Helper()
	blocks := make([]string, 0, len(wants))
	for block := range wants {
		blocks = append(blocks, block)
	}
	sort.Strings(blocks)
	for _, block := range blocks {
		AssertWinner(t, result, block, wants[block])
	}
}

// AssertMoreActive asserts that node a ends more active than node b.
func AssertMoreActive(t *testing.T, result SimulationResult, a, b string) {
	t.Helper()
	actA, actB := result.Activation(a), result.Activation(b)
	if math.IsNaN(actA) || math.IsNaN(actB) {
		t.Errorf("AssertMoreActive: unknown node in %s, %s", a, b)
		return
	}
	if actA <= actB {
		t.Errorf("AssertMoreActive: %s = %.6f is not above %s = %.6f", a, actA, b, actB)
	}
}

// AssertActiveAbove asserts that node id ends with activation above threshold.
func AssertActiveAbove(t *testing.T, result SimulationResult, id string, threshold float64) {
	t.Helper()
	act := result.Activation(id)
	if math.IsNaN(act) {
		t.Errorf("AssertActiveAbove: node %s not found", id)
		return
	}
	if act <= threshold {
		t.Errorf("AssertActiveAbove: %s = %.6f, want above %.4f", id, act, threshold)
	}
}

// AssertSuppressed asserts that node id ends with negative activation, so it
// passes nothing to its neighbors or competitors.
func AssertSuppressed(t *testing.T, result SimulationResult, id string) {
	t.Helper()
	act := result.Activation(id)
	if math.IsNaN(act) {
		t.Errorf("AssertSuppressed: node %s not found", id)
		return
	}
	if act >= 0 {
		t.Errorf("AssertSuppressed: %s = %.6f, want negative", id, act)
	}
}

// AssertAllNear asserts that every node ends within tol of want.
func AssertAllNear(t *testing.T, result SimulationResult, want, tol float64) {
	t.Helper()
	for _, id := range result.Network.Nodes {
		if act := result.Final[id]; math.Abs(act-want) > tol {
			t.Errorf("AssertAllNear: %s = %.6f, want %.4f ± %g", id, act, want, tol)
		}
	}
}

// AssertSettled asserts that the last step changed no activation by more
// than epsilon.
func AssertSettled(t *testing.T, result SimulationResult, epsilon float64) {
	t.Helper()
	if len(result.Snapshots) < 2 {
		t.Fatal("AssertSettled: no steps were run")
	}
	last := result.Snapshots[len(result.Snapshots)-1]
	if last.MaxDelta > epsilon {
		t.Errorf("AssertSettled: step %d still moved %.3g (epsilon %.3g)", last.Step, last.MaxDelta, epsilon)
	}
}

// AssertWithinBounds asserts that every activation in every snapshot stays
// within [lo, hi].
func AssertWithinBounds(t *testing.T, result SimulationResult, lo, hi float64) {
	t.Helper()
	for _, snap := range result.Snapshots {
		for id, act := range snap.Activations {
			if act < lo || act > hi {
				t.Errorf("AssertWithinBounds: step %d: %s = %.6f not in [%.4f, %.4f]", snap.Step, id, act, lo, hi)
				return
			}
		}
	}
}

// AssertSameActivations asserts that two runs end in the same state, node
// for node, within tol.
func AssertSameActivations(t *testing.T, a, b SimulationResult, tol float64) {
	t.Helper()
	if len(a.Final) != len(b.Final) {
		t.Fatalf("AssertSameActivations: %d nodes vs %d", len(a.Final), len(b.Final))
	}
	for id, actA := range a.Final {
		actB, ok := b.Final[id]
		if !ok {
			t.Errorf("AssertSameActivations: node %s missing from second run", id)
			continue
		}
		if math.Abs(actA-actB) > tol {
			t.Errorf("AssertSameActivations: %s = %.9f vs %.9f", id, actA, actB)
		}
	}
}
