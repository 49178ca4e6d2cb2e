// Package visualization renders the final activations of a simulation run
// in various output formats.
package visualization

import (
	"fmt"
	"sort"

	"github.com/nvandessel/iac/internal/network"
)

// Format specifies the output format for rendering activations.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatDOT, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: text, json, dot, html)", s)
	}
}

// NodeActivation is the activation of one node, labeled with its block.
type NodeActivation struct {
	ID         string  `json:"id"`
	Block      string  `json:"block"`
	Activation float64 `json:"activation"`
}

// Collect pairs the nodes of net with their activations, in network order.
// Nodes in an excluded block, and nodes without an activation, are left out.
func Collect(net *network.Network, acts map[string]float64, exclude []string) []NodeActivation {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	blockOf := make(map[string]string, len(net.Nodes))
	for _, b := range net.Blocks {
		for _, id := range b.Members {
			blockOf[id] = b.Name
		}
	}

	items := make([]NodeActivation, 0, len(net.Nodes))
	for _, id := range net.Nodes {
		block := blockOf[id]
		if skip[block] {
			continue
		}
		a, ok := acts[id]
		if !ok {
			continue
		}
		items = append(items, NodeActivation{ID: id, Block: block, Activation: a})
	}
	return items
}

// SortByActivation orders items from most to least active. Ties keep
// their relative order.
func SortByActivation(items []NodeActivation) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Activation > items[j].Activation
	})
}

// RenderJSON produces a JSON-ready representation of the activations.
func RenderJSON(items []NodeActivation) map[string]interface{} {
	if items == nil {
		items = []NodeActivation{}
	}
	return map[string]interface{}{
		"nodes":      items,
		"node_count": len(items),
	}
}
