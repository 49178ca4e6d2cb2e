// Package simulation provides a test harness for validating the emergent
// dynamics of IAC networks.
//
// The simulation exercises the real Engine, network builder, and
// SQLiteNetworkStore with no mocks. Scenarios name a network, its probes,
// and the model constants, then run the update rule while capturing
// activation snapshots for property-based assertions.
//
// Each runner gets an isolated SQLite database via t.TempDir() and a
// sandboxed HOME to prevent touching user data.
//
// Usage:
//
//	func TestRetrieveLance(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:   "retrieve-lance",
//	        Probes: []string{"Lance"},
//	    })
//	    simulation.AssertWinner(t, result, "occupations", "Burglar")
//	}
package simulation
