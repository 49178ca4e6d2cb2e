package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nvandessel/iac/internal/config"
	"github.com/nvandessel/iac/internal/network"
	"github.com/nvandessel/iac/internal/store"
	"github.com/spf13/cobra"
)

// addNetworkFlags registers the flags that select and correct a network.
func addNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String("network", "", "Stored network or built-in dataset, by name")
	cmd.Flags().String("builtin", "", "Built-in dataset, e.g. "+network.JetsAndSharksName)
	cmd.Flags().String("csv", "", "CSV adjacency matrix to build the network from")
	cmd.Flags().StringSlice("blocks", nil, "Block layout of the CSV columns as name:size pairs, e.g. gangs:2,ages:3")
	cmd.Flags().StringArray("link", nil, "Extra symmetric link as a:b (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("network", "builtin", "csv")
}

// networkSource returns the source selected by flags, falling back to the
// configured one.
func networkSource(cmd *cobra.Command, cfg *config.IACConfig) string {
	if name, _ := cmd.Flags().GetString("network"); name != "" {
		return name
	}
	if name, _ := cmd.Flags().GetString("builtin"); name != "" {
		return store.BuiltinPrefix + name
	}
	if path, _ := cmd.Flags().GetString("csv"); path != "" {
		return path
	}
	return cfg.Network.Source
}

// loadNetwork builds the network selected by cmd's flags and cfg, then
// applies the configured and --link corrections. It returns the network and
// its source.
func loadNetwork(cmd *cobra.Command, cfg *config.IACConfig) (*network.Network, string, error) {
	root, _ := cmd.Flags().GetString("root")
	source := networkSource(cmd, cfg)

	specs := cfg.Network.Blocks
	if cmd.Flags().Changed("blocks") {
		raw, _ := cmd.Flags().GetStringSlice("blocks")
		parsed, err := network.ParseBlockSpecs(raw)
		if err != nil {
			return nil, "", err
		}
		specs = parsed
	}

	var n *network.Network
	var err error
	if path, _ := cmd.Flags().GetString("csv"); path != "" {
		n, err = readMatrixFile(path, specs)
	} else {
		n, err = resolveSource(commandContext(cmd), root, source, specs)
	}
	if err != nil {
		return nil, "", err
	}

	links := append([][]string{}, cfg.Network.Links...)
	rawLinks, _ := cmd.Flags().GetStringArray("link")
	for _, l := range rawLinks {
		pair, err := parseLink(l)
		if err != nil {
			return nil, "", err
		}
		links = append(links, pair)
	}
	for _, l := range links {
		if err := n.Link(l[0], l[1]); err != nil {
			return nil, "", err
		}
	}

	return n, source, nil
}

// resolveSource loads a network by source string. The store is consulted
// only when a database already exists under root, so running built-ins and
// CSV files leaves no files behind.
func resolveSource(ctx context.Context, root, source string, specs []network.BlockSpec) (*network.Network, error) {
	var s store.NetworkStore
	if _, err := os.Stat(store.DatabasePath(root)); err == nil {
		sqlStore, err := store.NewSQLiteNetworkStore(root)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		defer sqlStore.Close()
		s = sqlStore
	}

	n, ok, err := store.Resolve(ctx, s, source)
	if !ok {
		return readMatrixFile(source, specs)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// readMatrixFile builds a network from a CSV adjacency matrix.
func readMatrixFile(path string, specs []network.BlockSpec) (*network.Network, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%s: a block layout is required for CSV networks (use --blocks or network.blocks in the config)", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix: %w", err)
	}
	defer f.Close()

	m, err := network.ReadMatrixCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	n, err := network.FromMatrix(m, specs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// parseLink parses an a:b link.
func parseLink(raw string) ([]string, error) {
	a, b, found := strings.Cut(raw, ":")
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if !found || a == "" || b == "" {
		return nil, fmt.Errorf("invalid link %q: want a:b", raw)
	}
	return []string{a, b}, nil
}
