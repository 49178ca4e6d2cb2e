package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/network"
	"github.com/nvandessel/iac/internal/ratelimit"
	"github.com/nvandessel/iac/internal/store"
)

// setupTestServer builds a server on an in-memory store rooted in a temp dir.
func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	tmpDir := t.TempDir()
	server := newServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		Root:    tmpDir,
	}, store.NewInMemoryNetworkStore())
	t.Cleanup(func() { server.Close() })
	return server, tmpDir
}

func floatPtr(f float64) *float64 { return &f }

func TestHandleIACNetworks(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleIACNetworks(ctx, nil, IACNetworksInput{})
	if err != nil {
		t.Fatalf("handleIACNetworks failed: %v", err)
	}
	if out.Count != 1 || out.Networks[0].Name != network.JetsAndSharksName {
		t.Fatalf("expected only the built-in network, got %+v", out.Networks)
	}
	if out.Networks[0].Origin != "builtin" || out.Networks[0].Nodes != 68 || out.Networks[0].Blocks != 7 {
		t.Errorf("unexpected built-in summary %+v", out.Networks[0])
	}

	small := network.New([]network.Block{{Name: "pair", Members: []string{"x", "y"}}}, nil)
	if err := server.store.SaveNetwork(ctx, "pair", "test", small); err != nil {
		t.Fatalf("SaveNetwork failed: %v", err)
	}

	_, out, err = server.handleIACNetworks(ctx, nil, IACNetworksInput{})
	if err != nil {
		t.Fatalf("handleIACNetworks failed: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("Count = %d, want 2", out.Count)
	}
	stored := out.Networks[0]
	if stored.Name != "pair" || stored.Origin != "stored" || stored.Source != "test" || stored.CreatedAt == nil {
		t.Errorf("unexpected stored summary %+v", stored)
	}

	// A stored network shadows the built-in of the same name.
	if err := server.store.SaveNetwork(ctx, network.JetsAndSharksName, "edited", small); err != nil {
		t.Fatalf("SaveNetwork failed: %v", err)
	}
	_, out, _ = server.handleIACNetworks(ctx, nil, IACNetworksInput{})
	for _, n := range out.Networks {
		if n.Origin == "builtin" {
			t.Errorf("shadowed built-in still listed: %+v", n)
		}
	}
}

func TestHandleIACRun_JetsProbe(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleIACRun(ctx, nil, IACRunInput{
		Probes:        []string{"Jets"},
		Inhibition:    floatPtr(0.04),
		ExcludeBlocks: []string{network.InstanceBlock, network.NameBlock},
	})
	if err != nil {
		t.Fatalf("handleIACRun failed: %v", err)
	}

	if out.Network != network.JetsAndSharksName {
		t.Errorf("Network = %q, want default %q", out.Network, network.JetsAndSharksName)
	}
	if out.Steps != iac.DefaultSteps {
		t.Errorf("Steps = %d, want %d", out.Steps, iac.DefaultSteps)
	}
	if out.Config.Inhibition != 0.04 || out.Config.Excitation != iac.DefaultConfig().Excitation {
		t.Errorf("override not applied over defaults: %+v", out.Config)
	}
	// 2 gangs + 3 ages + 3 education + 3 marital + 3 occupations.
	if out.Count != 14 || len(out.Activations) != 14 {
		t.Fatalf("Count = %d, want 14 property nodes", out.Count)
	}

	acts := make(map[string]float64)
	for i, a := range out.Activations {
		if a.Block == network.InstanceBlock || a.Block == network.NameBlock {
			t.Errorf("excluded block leaked: %+v", a)
		}
		if i > 0 && a.Activation > out.Activations[i-1].Activation {
			t.Errorf("activations not sorted at %d: %v > %v", i, a.Activation, out.Activations[i-1].Activation)
		}
		acts[a.ID] = a.Activation
	}
	if acts["Jets"] <= acts["Sharks"] {
		t.Errorf("Jets (%v) should beat Sharks (%v)", acts["Jets"], acts["Sharks"])
	}
	if acts["Sharks"] >= 0 {
		t.Errorf("Sharks should be suppressed below zero, got %v", acts["Sharks"])
	}
}

func TestHandleIACRun_Options(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleIACRun(ctx, nil, IACRunInput{
		Network: network.JetsAndSharksName,
		Probes:  []string{" Jets ", "Nobody", ""},
		Steps:   50,
		Top:     3,
		Workers: 4,
	})
	if err != nil {
		t.Fatalf("handleIACRun failed: %v", err)
	}
	if out.Steps != 50 {
		t.Errorf("Steps = %d, want 50", out.Steps)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3 with top=3", out.Count)
	}
	if strings.Join(out.Probes, ",") != "Jets,Nobody" {
		t.Errorf("Probes = %v, want trimmed [Jets Nobody]", out.Probes)
	}
	if len(out.IgnoredProbes) != 1 || out.IgnoredProbes[0] != "Nobody" {
		t.Errorf("IgnoredProbes = %v, want [Nobody]", out.IgnoredProbes)
	}
	if out.Config.Workers != 4 {
		t.Errorf("Workers = %d, want 4", out.Config.Workers)
	}
}

func TestHandleIACRun_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args IACRunInput
		want string
	}{
		{"negative steps", IACRunInput{Probes: []string{"Jets"}, Steps: -1}, "non-negative"},
		{"too many steps", IACRunInput{Probes: []string{"Jets"}, Steps: maxRunSteps + 1}, "at most"},
		{"negative top", IACRunInput{Probes: []string{"Jets"}, Top: -2}, "top"},
		{"negative workers", IACRunInput{Probes: []string{"Jets"}, Workers: -1}, "workers"},
		{"unknown network", IACRunInput{Network: "nowhere", Probes: []string{"Jets"}}, "not found"},
		{"inverted bounds", IACRunInput{Probes: []string{"Jets"}, MinActivation: floatPtr(2)}, "max_activation"},
		{"bad decay", IACRunInput{Probes: []string{"Jets"}, Decay: floatPtr(3)}, "decay"},
		{"no probes", IACRunInput{Probes: []string{" "}}, "probe set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleIACRun(ctx, nil, tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}

	_, _, err := server.handleIACRun(ctx, nil, IACRunInput{Probes: nil})
	if !errors.Is(err, iac.ErrEmptyProbeSet) {
		t.Errorf("empty probes error = %v, want ErrEmptyProbeSet", err)
	}
	_, _, err = server.handleIACRun(ctx, nil, IACRunInput{Network: "nowhere", Probes: []string{"x"}})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown network error = %v, want ErrNotFound", err)
	}
}

func TestHandleIACRun_Budget(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()
	server.budgets = ratelimit.ToolBudgets{"iac_run": ratelimit.NewBudget(0, 68*100)}

	if _, _, err := server.handleIACRun(ctx, nil, IACRunInput{Probes: []string{"Jets"}, Steps: 100}); err != nil {
		t.Fatalf("first run within budget failed: %v", err)
	}
	_, _, err := server.handleIACRun(ctx, nil, IACRunInput{Probes: []string{"Jets"}, Steps: 1})
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected rate limit error, got %v", err)
	}
	_, _, err = server.handleIACRun(ctx, nil, IACRunInput{Probes: []string{"Jets"}, Steps: 101})
	if err == nil || !strings.Contains(err.Error(), "more than the limit") {
		t.Errorf("expected oversize error, got %v", err)
	}
}

func TestHandleIACRun_Cancelled(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := server.handleIACRun(ctx, nil, IACRunInput{Probes: []string{"Jets"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestHandleIACRun_StoredNetwork(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	pair := network.New([]network.Block{
		{Name: "left", Members: []string{"a", "b"}},
		{Name: "right", Members: []string{"c", "d"}},
	}, map[string][]string{"a": {"c"}, "c": {"a"}, "b": {"d"}, "d": {"b"}})
	if err := server.store.SaveNetwork(ctx, "pairs", "test", pair); err != nil {
		t.Fatalf("SaveNetwork failed: %v", err)
	}

	_, out, err := server.handleIACRun(ctx, nil, IACRunInput{Network: "pairs", Probes: []string{"a"}, Steps: 200})
	if err != nil {
		t.Fatalf("handleIACRun failed: %v", err)
	}
	if out.Count != 4 || out.Activations[0].ID != "a" || out.Activations[1].ID != "c" {
		t.Errorf("expected a then c most active, got %+v", out.Activations)
	}

	pair.Inhibition["b"] = "c"
	if err := server.store.SaveNetwork(ctx, "broken", "test", pair); err != nil {
		t.Fatalf("SaveNetwork failed: %v", err)
	}
	_, _, err = server.handleIACRun(ctx, nil, IACRunInput{Network: "broken", Probes: []string{"a"}})
	if err == nil || !strings.Contains(err.Error(), "network broken is not valid") {
		t.Errorf("expected a validation error for a broken stored network, got %v", err)
	}
}

func TestHandleIACRun_CSV(t *testing.T) {
	server, root := setupTestServer(t)
	ctx := context.Background()

	matrix := `,_a,_b,Jets,Sharks,a,b
_a,0,0,1,0,1,0
_b,0,0,0,1,0,1
Jets,1,0,0,0,0,0
Sharks,0,1,0,0,0,0
a,1,0,0,0,0,0
b,0,1,0,0,0,0
`
	if err := os.WriteFile(filepath.Join(root, "small.csv"), []byte(matrix), 0600); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "small.csv")
	if err := os.WriteFile(outside, []byte(matrix), 0600); err != nil {
		t.Fatal(err)
	}
	blocks := []string{"instances:2", "gangs:2", "names:2"}

	_, out, err := server.handleIACRun(ctx, nil, IACRunInput{CSV: "small.csv", Blocks: blocks, Probes: []string{"a"}, Steps: 50})
	if err != nil {
		t.Fatalf("handleIACRun failed: %v", err)
	}
	if out.Network != "small.csv" || out.Count != 6 {
		t.Fatalf("expected the 6-node CSV network, got %s with %d nodes", out.Network, out.Count)
	}
	acts := make(map[string]float64)
	for _, a := range out.Activations {
		acts[a.ID] = a.Activation
	}
	if acts["Jets"] <= acts["Sharks"] {
		t.Errorf("expected Jets above Sharks when probing a, got %v", acts)
	}

	_, out, err = server.handleIACRun(ctx, nil, IACRunInput{CSV: "small.csv", Blocks: []string{"2", "2", "2"}, Probes: []string{"a"}, Steps: 50})
	if err != nil {
		t.Fatalf("handleIACRun with unnamed blocks failed: %v", err)
	}
	if out.Count != 6 || out.Activations[0].Block == "" {
		t.Errorf("expected 6 nodes in generated blocks, got %+v", out.Activations)
	}

	tests := []struct {
		name string
		args IACRunInput
		want string
	}{
		{"repeated block", IACRunInput{CSV: "small.csv", Blocks: []string{"x:2", "x:2", "y:2"}, Probes: []string{"a"}}, "used more than once"},
		{"outside root", IACRunInput{CSV: outside, Blocks: blocks, Probes: []string{"a"}}, "outside"},
		{"missing file", IACRunInput{CSV: "nope.csv", Blocks: blocks, Probes: []string{"a"}}, "cannot open"},
		{"no blocks", IACRunInput{CSV: "small.csv", Probes: []string{"a"}}, "blocks are required"},
		{"bad block", IACRunInput{CSV: "small.csv", Blocks: []string{"gangs:x"}, Probes: []string{"a"}}, "invalid block"},
		{"short layout", IACRunInput{CSV: "small.csv", Blocks: blocks[:2], Probes: []string{"a"}}, "small.csv"},
		{"network and csv", IACRunInput{Network: "jets-sharks", CSV: "small.csv", Blocks: blocks, Probes: []string{"a"}}, "not both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleIACRun(ctx, nil, tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestHandleIACValidate(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleIACValidate(ctx, nil, IACValidateInput{Network: network.JetsAndSharksName})
	if err != nil {
		t.Fatalf("handleIACValidate failed: %v", err)
	}
	if !out.Valid || len(out.Problems) != 0 || out.Nodes != 68 || out.Blocks != 7 {
		t.Errorf("built-in should validate cleanly, got %+v", out)
	}

	broken := network.New([]network.Block{{Name: "trio", Members: []string{"a", "b", "c"}}}, nil)
	broken.Inhibition["b"] = "a"
	broken.Excitation["a"] = []string{"ghost"}
	if err := server.store.SaveNetwork(ctx, "broken", "", broken); err != nil {
		t.Fatalf("SaveNetwork failed: %v", err)
	}

	_, out, err = server.handleIACValidate(ctx, nil, IACValidateInput{Network: "broken"})
	if err != nil {
		t.Fatalf("handleIACValidate failed: %v", err)
	}
	if out.Valid {
		t.Fatal("broken network reported valid")
	}
	if len(out.Problems) != 2 {
		t.Errorf("expected 2 problems (dangling link, short ring), got %v", out.Problems)
	}

	if _, _, err := server.handleIACValidate(ctx, nil, IACValidateInput{}); err == nil {
		t.Error("expected error for missing network name")
	}
}

func TestHandlers_WriteAuditLog(t *testing.T) {
	server, tmpDir := setupTestServer(t)
	ctx := context.Background()

	server.handleIACNetworks(ctx, nil, IACNetworksInput{})
	server.handleIACRun(ctx, nil, IACRunInput{Network: "nowhere", Probes: []string{"x"}})
	server.Close()

	data, err := os.ReadFile(filepath.Join(store.DataDir(tmpDir), "audit.jsonl"))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d: %s", len(lines), data)
	}
	if !strings.Contains(lines[0], `"tool":"iac_networks"`) || !strings.Contains(lines[0], `"status":"success"`) {
		t.Errorf("unexpected first entry: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"tool":"iac_run"`) || !strings.Contains(lines[1], `"status":"error"`) {
		t.Errorf("unexpected second entry: %s", lines[1])
	}
}
