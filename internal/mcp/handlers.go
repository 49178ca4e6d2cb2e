package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/network"
	"github.com/nvandessel/iac/internal/pathutil"
	"github.com/nvandessel/iac/internal/ratelimit"
	"github.com/nvandessel/iac/internal/store"
	"github.com/nvandessel/iac/internal/visualization"
)

// maxRunSteps bounds a single iac_run call independently of the budget.
const maxRunSteps = 100_000

// registerTools registers all iac MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "iac_networks",
		Description: "List the networks available for simulation: stored networks and built-in datasets",
	}, s.handleIACNetworks)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "iac_run",
		Description: "Probe an interactive activation and competition network and return the settled activations",
	}, s.handleIACRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "iac_validate",
		Description: "Check a network for structural problems (dangling links, broken inhibition rings, unassigned nodes)",
	}, s.handleIACValidate)
}

func (s *Server) handleIACNetworks(ctx context.Context, req *sdk.CallToolRequest, args IACNetworksInput) (_ *sdk.CallToolResult, _ IACNetworksOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("iac_networks", start, retErr, summarizeParams(map[string]interface{}{}))
	}()

	if err := ratelimit.Check(s.budgets, "iac_networks", 1); err != nil {
		return nil, IACNetworksOutput{}, err
	}

	infos, err := s.store.ListNetworks(ctx)
	if err != nil {
		return nil, IACNetworksOutput{}, fmt.Errorf("failed to list networks: %w", err)
	}

	networks := make([]NetworkSummary, 0, len(infos))
	stored := make(map[string]bool, len(infos))
	for _, info := range infos {
		createdAt := info.CreatedAt
		networks = append(networks, NetworkSummary{
			Name:      info.Name,
			Origin:    "stored",
			Nodes:     info.Nodes,
			Blocks:    info.Blocks,
			Source:    info.Source,
			CreatedAt: &createdAt,
		})
		stored[info.Name] = true
	}

	// Built-ins shadowed by a stored network of the same name are not
	// reachable by name, so they are left out.
	for _, name := range network.BuiltinNames() {
		if stored[name] {
			continue
		}
		n, err := network.Builtin(name)
		if err != nil {
			return nil, IACNetworksOutput{}, err
		}
		networks = append(networks, NetworkSummary{
			Name:   name,
			Origin: "builtin",
			Nodes:  len(n.Nodes),
			Blocks: len(n.Blocks),
		})
	}

	return nil, IACNetworksOutput{
		Networks: networks,
		Count:    len(networks),
	}, nil
}

func (s *Server) handleIACRun(ctx context.Context, req *sdk.CallToolRequest, args IACRunInput) (_ *sdk.CallToolResult, _ IACRunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("iac_run", start, retErr, summarizeParams(map[string]interface{}{
			"network":        args.Network,
			"csv":            args.CSV,
			"blocks":         args.Blocks,
			"probes":         args.Probes,
			"steps":          args.Steps,
			"exclude_blocks": args.ExcludeBlocks,
			"top":            args.Top,
			"workers":        args.Workers,
			"probe_weight":   args.ProbeWeight,
			"excitation":     args.Excitation,
			"inhibition":     args.Inhibition,
			"max_activation": args.MaxActivation,
			"min_activation": args.MinActivation,
			"decay":          args.Decay,
			"rest":           args.Rest,
		}))
	}()

	steps := args.Steps
	switch {
	case steps < 0:
		return nil, IACRunOutput{}, fmt.Errorf("steps must be non-negative, got %d", steps)
	case steps == 0:
		steps = iac.DefaultSteps
	case steps > maxRunSteps:
		return nil, IACRunOutput{}, fmt.Errorf("steps must be at most %d, got %d", maxRunSteps, steps)
	}
	if args.Top < 0 {
		return nil, IACRunOutput{}, fmt.Errorf("top must be non-negative, got %d", args.Top)
	}

	net, name, err := s.runNetwork(ctx, args)
	if err != nil {
		return nil, IACRunOutput{}, err
	}

	cfg, err := s.runConfig(args)
	if err != nil {
		return nil, IACRunOutput{}, err
	}

	if err := ratelimit.Check(s.budgets, "iac_run", float64(len(net.Nodes)*steps)); err != nil {
		return nil, IACRunOutput{}, err
	}

	probes := make([]string, 0, len(args.Probes))
	var ignored []string
	for _, p := range args.Probes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		probes = append(probes, p)
		if !net.Has(p) {
			ignored = append(ignored, p)
		}
	}

	engine, err := iac.NewEngine(net.Excitation, net.Inhibition, probes, cfg)
	if err != nil {
		return nil, IACRunOutput{}, fmt.Errorf("failed to build engine for %s: %w", name, err)
	}
	if err := engine.RunContext(ctx, steps); err != nil {
		return nil, IACRunOutput{}, fmt.Errorf("run interrupted after %d steps: %w", engine.Steps(), err)
	}

	items := visualization.Collect(net, engine.Activations(), args.ExcludeBlocks)
	visualization.SortByActivation(items)
	if args.Top > 0 && args.Top < len(items) {
		items = items[:args.Top]
	}

	s.logger.Debug("iac_run finished", "network", name, "steps", steps, "probes", probes, "ignored", ignored)

	return nil, IACRunOutput{
		Network:       name,
		Probes:        probes,
		IgnoredProbes: ignored,
		Steps:         engine.Steps(),
		Config:        cfg,
		Activations:   items,
		Count:         len(items),
	}, nil
}

// runNetwork loads the network a run request names: a CSV file under the
// project root, or a stored or built-in network.
func (s *Server) runNetwork(ctx context.Context, args IACRunInput) (*network.Network, string, error) {
	if args.CSV == "" {
		name := args.Network
		if name == "" {
			name = network.JetsAndSharksName
		}
		net, err := store.Lookup(ctx, s.store, name)
		if err != nil {
			return nil, "", err
		}
		if err := network.Validate(net); err != nil {
			return nil, "", fmt.Errorf("network %s is not valid: %w", name, err)
		}
		return net, name, nil
	}

	if args.Network != "" {
		return nil, "", fmt.Errorf("give either network or csv, not both")
	}
	if len(args.Blocks) == 0 {
		return nil, "", fmt.Errorf("blocks are required with csv")
	}
	specs, err := network.ParseBlockSpecs(args.Blocks)
	if err != nil {
		return nil, "", err
	}

	path, err := pathutil.Resolve(args.CSV, s.root)
	if err != nil {
		return nil, "", fmt.Errorf("csv: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("csv: cannot open %s", pathutil.Redact(path))
	}
	defer f.Close()

	m, err := network.ReadMatrixCSV(f)
	if err != nil {
		return nil, "", fmt.Errorf("csv %s: %w", args.CSV, err)
	}
	net, err := network.FromMatrix(m, specs)
	if err != nil {
		return nil, "", fmt.Errorf("csv %s: %w", args.CSV, err)
	}
	if err := network.Validate(net); err != nil {
		return nil, "", fmt.Errorf("csv %s: invalid network: %w", args.CSV, err)
	}
	return net, args.CSV, nil
}

// runConfig applies the overrides of a run request to the server's model
// constants and checks the result.
func (s *Server) runConfig(args IACRunInput) (iac.Config, error) {
	cfg := s.model
	overrides := []struct {
		value *float64
		field *float64
	}{
		{args.ProbeWeight, &cfg.ProbeWeight},
		{args.Excitation, &cfg.Excitation},
		{args.Inhibition, &cfg.Inhibition},
		{args.MaxActivation, &cfg.MaxActivation},
		{args.MinActivation, &cfg.MinActivation},
		{args.Decay, &cfg.Decay},
		{args.Rest, &cfg.Rest},
	}
	for _, o := range overrides {
		if o.value != nil {
			*o.field = *o.value
		}
	}
	if args.Workers < 0 {
		return iac.Config{}, fmt.Errorf("workers must be non-negative, got %d", args.Workers)
	}
	if args.Workers > 0 {
		cfg.Workers = args.Workers
	}

	if cfg.MaxActivation <= cfg.MinActivation {
		return iac.Config{}, fmt.Errorf("max_activation (%v) must be greater than min_activation (%v)",
			cfg.MaxActivation, cfg.MinActivation)
	}
	if cfg.Decay < 0 || cfg.Decay >= 2 {
		return iac.Config{}, fmt.Errorf("decay must be in [0, 2), got %v", cfg.Decay)
	}
	return cfg, nil
}

func (s *Server) handleIACValidate(ctx context.Context, req *sdk.CallToolRequest, args IACValidateInput) (_ *sdk.CallToolResult, _ IACValidateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("iac_validate", start, retErr, summarizeParams(map[string]interface{}{
			"network": args.Network,
		}))
	}()

	if args.Network == "" {
		return nil, IACValidateOutput{}, fmt.Errorf("network is required")
	}
	if err := ratelimit.Check(s.budgets, "iac_validate", 1); err != nil {
		return nil, IACValidateOutput{}, err
	}

	net, err := store.Lookup(ctx, s.store, args.Network)
	if err != nil {
		return nil, IACValidateOutput{}, err
	}

	out := IACValidateOutput{
		Network: args.Network,
		Valid:   true,
		Nodes:   len(net.Nodes),
		Blocks:  len(net.Blocks),
	}
	if err := network.Validate(net); err != nil {
		out.Valid = false
		out.Problems = problemList(err)
	}
	return nil, out, nil
}

// problemList flattens a joined validation error into one message per
// problem.
func problemList(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var problems []string
		for _, e := range joined.Unwrap() {
			problems = append(problems, e.Error())
		}
		return problems
	}
	return []string{err.Error()}
}
