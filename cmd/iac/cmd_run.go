package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nvandessel/iac/internal/config"
	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/logging"
	"github.com/nvandessel/iac/internal/network"
	"github.com/nvandessel/iac/internal/store"
	"github.com/nvandessel/iac/internal/visualization"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [probe...]",
		Short: "Probe a network and print the settled activations",
		Long: `Run an IAC simulation: give the probe nodes external input, apply the
update rule for a fixed number of steps, and print the final activation of
every node.

The network defaults to the configured source (the built-in Jets and Sharks
dataset unless changed). Probes are given as arguments or with --probe.

Examples:
  iac run Jets                                   # who are the Jets?
  iac run Jets 20s --exclude-block instances     # Jets in their 20s
  iac run --csv jets.csv --blocks instances:27,gangs:2,ages:3,education:3,marital:3,occupations:3,names:27 Art
  iac run Lance --until-stable 1e-6 --steps 5000
  iac run Jets --format dot | dot -Tsvg > jets.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}

			probes, _ := cmd.Flags().GetStringArray("probe")
			probes = append(probes, args...)
			if len(probes) == 0 {
				probes = cfg.Run.Probes
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			formatName, _ := cmd.Flags().GetString("format")
			if jsonOut {
				formatName = string(visualization.FormatJSON)
			}
			format, err := visualization.ParseFormat(formatName)
			if err != nil {
				return err
			}

			net, source, err := loadNetwork(cmd, cfg)
			if err != nil {
				return err
			}
			if err := network.Validate(net); err != nil {
				return fmt.Errorf("network %s is not valid:\n%w", source, err)
			}
			for _, p := range probes {
				if !net.Has(p) {
					logger.Warn("probe is not a node of the network; ignored", "probe", p, "network", source)
				}
			}

			engine, err := iac.NewEngine(net.Excitation, net.Inhibition, probes, cfg.Model)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}

			root, _ := cmd.Flags().GetString("root")
			trace := logging.NewTraceLogger(store.DataDir(root), cfg.Logging.Level)
			defer trace.Close()

			epsilon, _ := cmd.Flags().GetFloat64("until-stable")
			result, err := simulate(commandContext(cmd), engine, simulation{
				steps:      cfg.Run.Steps,
				epsilon:    epsilon,
				traceEvery: cfg.Run.TraceEvery,
				trace:      trace,
				logger:     logger,
			})
			if err != nil {
				return err
			}
			logger.Info("run finished",
				"network", source,
				"steps", result.steps,
				"max_delta", result.maxDelta,
				"converged", result.converged)

			exclude, _ := cmd.Flags().GetStringSlice("exclude-block")
			items := visualization.Collect(net, engine.Activations(), exclude)
			if sorted, _ := cmd.Flags().GetBool("sort"); sorted {
				visualization.SortByActivation(items)
			}

			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			width, _ := cmd.Flags().GetInt("width")
			return writeRunOutput(out, format, runReport{
				source:  source,
				probes:  probes,
				network: net,
				engine:  engine,
				items:   items,
				result:  result,
				width:   width,
			})
		},
	}

	addNetworkFlags(cmd)
	cmd.Flags().StringArray("probe", nil, "Probe node (repeatable; may also be given as arguments)")
	cmd.Flags().Int("steps", iac.DefaultSteps, "Number of update steps (the maximum with --until-stable)")
	cmd.Flags().Float64("until-stable", 0, "Stop early once no activation changes by more than this between steps")
	cmd.Flags().Int("trace-every", 0, "With --log-level debug, trace every N steps to .iac/trace.jsonl")
	cmd.Flags().Int("workers", 0, "Goroutines per update step (0 or 1: sequential)")

	defaults := iac.DefaultConfig()
	cmd.Flags().Float64("probe-weight", defaults.ProbeWeight, "External input to each probe node")
	cmd.Flags().Float64("excitation", defaults.Excitation, "Weight of excitatory input")
	cmd.Flags().Float64("inhibition", defaults.Inhibition, "Weight of inhibitory input")
	cmd.Flags().Float64("max-activation", defaults.MaxActivation, "Upper activation bound")
	cmd.Flags().Float64("min-activation", defaults.MinActivation, "Lower activation bound and initial activation")
	cmd.Flags().Float64("decay", defaults.Decay, "Decay rate toward rest")
	cmd.Flags().Float64("rest", defaults.Rest, "Resting activation")

	cmd.Flags().String("format", string(visualization.FormatText), "Output format: text, json, dot, or html")
	cmd.Flags().StringP("output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().StringSlice("exclude-block", nil, "Blocks to leave out of the output, e.g. instances,names")
	cmd.Flags().Bool("sort", false, "Order output by activation, most active first")
	cmd.Flags().Int("width", visualization.DefaultBarWidth, "Bar width on each side of the axis (text format)")

	return cmd
}

// applyRunFlags copies explicitly set run flags over the configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.IACConfig) error {
	floats := map[string]*float64{
		"probe-weight":   &cfg.Model.ProbeWeight,
		"excitation":     &cfg.Model.Excitation,
		"inhibition":     &cfg.Model.Inhibition,
		"max-activation": &cfg.Model.MaxActivation,
		"min-activation": &cfg.Model.MinActivation,
		"decay":          &cfg.Model.Decay,
		"rest":           &cfg.Model.Rest,
	}
	for name, field := range floats {
		if cmd.Flags().Changed(name) {
			*field, _ = cmd.Flags().GetFloat64(name)
		}
	}

	ints := map[string]*int{
		"workers":     &cfg.Model.Workers,
		"steps":       &cfg.Run.Steps,
		"trace-every": &cfg.Run.TraceEvery,
	}
	for name, field := range ints {
		if cmd.Flags().Changed(name) {
			*field, _ = cmd.Flags().GetInt(name)
		}
	}

	if eps, _ := cmd.Flags().GetFloat64("until-stable"); eps < 0 {
		return fmt.Errorf("--until-stable must be non-negative, got %v", eps)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid run settings: %w", err)
	}
	return nil
}

// simulation describes how a run is driven.
type simulation struct {
	steps      int
	epsilon    float64 // stop once the largest change is at most epsilon; 0 disables
	traceEvery int
	trace      *logging.TraceLogger
	logger     *slog.Logger
}

// simulationResult summarizes a finished run.
type simulationResult struct {
	steps     int
	maxDelta  float64 // largest change in the last step, when measured
	converged bool
}

// simulate drives engine for at most sim.steps updates. Snapshots are only
// taken when a stopping condition or trace needs the per-step change.
func simulate(ctx context.Context, engine *iac.Engine, sim simulation) (simulationResult, error) {
	sim.trace.Log(map[string]any{
		"event":  "run_start",
		"steps":  sim.steps,
		"config": engine.Config(),
		"nodes":  len(engine.Nodes()),
	})

	measure := sim.epsilon > 0 || sim.trace.PerStep() || (sim.trace != nil && sim.traceEvery > 0)
	if !measure {
		if err := engine.RunContext(ctx, sim.steps); err != nil {
			return simulationResult{}, fmt.Errorf("run interrupted after %d steps: %w", engine.Steps(), err)
		}
		res := simulationResult{steps: engine.Steps()}
		sim.trace.Log(map[string]any{"event": "run_end", "steps": res.steps, "activations": engine.Activations()})
		return res, nil
	}

	var res simulationResult
	for i := 1; i <= sim.steps; i++ {
		if err := ctx.Err(); err != nil {
			return simulationResult{}, fmt.Errorf("run interrupted after %d steps: %w", engine.Steps(), err)
		}
		prev := engine.Activations()
		engine.UpdateActivations()
		acts := engine.Activations()
		res.maxDelta = iac.MaxDelta(prev, acts)

		if sim.trace.PerStep() || (sim.traceEvery > 0 && i%sim.traceEvery == 0) {
			event := map[string]any{"event": "step", "step": engine.Steps(), "max_delta": res.maxDelta}
			if sim.trace.PerStep() {
				event["activations"] = acts
			}
			sim.trace.Log(event)
		}

		if sim.epsilon > 0 && res.maxDelta <= sim.epsilon {
			res.converged = true
			sim.logger.Debug("network settled", "step", engine.Steps(), "max_delta", res.maxDelta)
			break
		}
	}
	res.steps = engine.Steps()

	sim.trace.Log(map[string]any{
		"event":       "run_end",
		"steps":       res.steps,
		"max_delta":   res.maxDelta,
		"converged":   res.converged,
		"activations": engine.Activations(),
	})
	return res, nil
}

// runReport is everything the output formats draw from.
type runReport struct {
	source  string
	probes  []string
	network *network.Network
	engine  *iac.Engine
	items   []visualization.NodeActivation
	result  simulationResult
	width   int
}

func writeRunOutput(w io.Writer, format visualization.Format, r runReport) error {
	switch format {
	case visualization.FormatJSON:
		out := visualization.RenderJSON(r.items)
		out["network"] = r.source
		out["probes"] = r.probes
		out["steps"] = r.result.steps
		out["config"] = r.engine.Config()
		if r.result.converged {
			out["converged"] = true
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil

	case visualization.FormatDOT:
		_, err := fmt.Fprint(w, visualization.RenderDOT(r.network, r.engine.Activations()))
		return err

	case visualization.FormatHTML:
		title := fmt.Sprintf("%s: probe %s after %d steps", r.source, strings.Join(r.probes, ", "), r.result.steps)
		html, err := visualization.RenderHTML(title, r.items)
		if err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
		_, err = w.Write(html)
		return err

	default:
		fmt.Fprintf(w, "Network %s, probe %s, %d steps", r.source, strings.Join(r.probes, ", "), r.result.steps)
		if r.result.converged {
			fmt.Fprintf(w, " (settled, max change %.2g)", r.result.maxDelta)
		}
		fmt.Fprint(w, "\n\n")
		return visualization.RenderBars(w, r.items, r.width)
	}
}
