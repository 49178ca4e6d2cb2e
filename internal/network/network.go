// Package network builds the data structures an IAC engine consumes: an
// excitation adjacency list and an inhibition ring over category blocks.
// Networks can be built from a labeled adjacency matrix (CSV), from a table
// of records, or taken from the built-in datasets.
package network

import (
	"fmt"
	"strconv"
	"strings"
)

// Block is a set of mutually exclusive nodes. Every member inhibits every
// other member.
type Block struct {
	Name    string   `json:"name" yaml:"name"`
	Members []string `json:"members" yaml:"members"`
}

// BlockSpec describes a block by name and size, for splitting an ordered
// list of labels into consecutive blocks.
type BlockSpec struct {
	Name string `json:"name" yaml:"name"`
	Size int    `json:"size" yaml:"size"`
}

// Network is the output of the builder: the node order, the category
// blocks, and the two mappings the engine runs on.
type Network struct {
	Nodes      []string            `json:"nodes"`
	Blocks     []Block             `json:"blocks"`
	Excitation map[string][]string `json:"excitation"`
	Inhibition map[string]string   `json:"inhibition"`
}

// New assembles a network from blocks and an excitation mapping. The node
// order is the concatenation of the blocks and the inhibition ring is
// derived from them. Nodes without an excitation entry get an empty one.
func New(blocks []Block, excitation map[string][]string) *Network {
	n := &Network{
		Blocks:     blocks,
		Excitation: make(map[string][]string),
		Inhibition: Ring(blocks),
	}
	for _, b := range blocks {
		for _, id := range b.Members {
			n.Nodes = append(n.Nodes, id)
			n.Excitation[id] = append([]string{}, excitation[id]...)
		}
	}
	return n
}

// Clone returns a deep copy of n.
func (n *Network) Clone() *Network {
	out := &Network{
		Nodes:      append([]string(nil), n.Nodes...),
		Blocks:     make([]Block, len(n.Blocks)),
		Excitation: make(map[string][]string, len(n.Excitation)),
		Inhibition: make(map[string]string, len(n.Inhibition)),
	}
	for i, b := range n.Blocks {
		out.Blocks[i] = Block{Name: b.Name, Members: append([]string(nil), b.Members...)}
	}
	for id, neighbors := range n.Excitation {
		out.Excitation[id] = append([]string{}, neighbors...)
	}
	for id, next := range n.Inhibition {
		out.Inhibition[id] = next
	}
	return out
}

// Ring links each block's members into a single cycle: every member points
// at the next one and the last points back at the first. A block with a
// single member points at itself.
func Ring(blocks []Block) map[string]string {
	ring := make(map[string]string)
	for _, b := range blocks {
		for i, id := range b.Members {
			ring[id] = b.Members[(i+1)%len(b.Members)]
		}
	}
	return ring
}

// SplitBlocks partitions labels into consecutive blocks of the given sizes.
func SplitBlocks(labels []string, specs []BlockSpec) ([]Block, error) {
	total := 0
	for _, s := range specs {
		if s.Size <= 0 {
			return nil, fmt.Errorf("block %q has non-positive size %d", s.Name, s.Size)
		}
		total += s.Size
	}
	if total != len(labels) {
		return nil, fmt.Errorf("block sizes sum to %d, but there are %d labels", total, len(labels))
	}

	blocks := make([]Block, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	start := 0
	for i, s := range specs {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("block%d", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("block name %q is used more than once", name)
		}
		seen[name] = true
		members := append([]string(nil), labels[start:start+s.Size]...)
		blocks = append(blocks, Block{Name: name, Members: members})
		start += s.Size
	}
	return blocks, nil
}

// ParseBlockSpecs parses block layouts written as name:size. A bare size
// gives an unnamed block.
func ParseBlockSpecs(raw []string) ([]BlockSpec, error) {
	specs := make([]BlockSpec, 0, len(raw))
	for _, r := range raw {
		name, sizeStr, found := strings.Cut(strings.TrimSpace(r), ":")
		if !found {
			name, sizeStr = "", name
		}
		size, err := strconv.Atoi(strings.TrimSpace(sizeStr))
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid block %q: want name:size with a positive size", r)
		}
		specs = append(specs, BlockSpec{Name: strings.TrimSpace(name), Size: size})
	}
	return specs, nil
}

// BlockOf returns the name of the block containing id.
func (n *Network) BlockOf(id string) (string, bool) {
	for _, b := range n.Blocks {
		for _, m := range b.Members {
			if m == id {
				return b.Name, true
			}
		}
	}
	return "", false
}

// Block returns the block with the given name.
func (n *Network) Block(name string) (Block, bool) {
	for _, b := range n.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return Block{}, false
}

// Has reports whether id is a node of the network.
func (n *Network) Has(id string) bool {
	_, ok := n.Excitation[id]
	return ok
}

// Link adds a symmetric excitatory connection between a and b, unless it
// already exists. It is used for ad hoc corrections of a dataset.
func (n *Network) Link(a, b string) error {
	if !n.Has(a) {
		return fmt.Errorf("link %s-%s: unknown node %q", a, b, a)
	}
	if !n.Has(b) {
		return fmt.Errorf("link %s-%s: unknown node %q", a, b, b)
	}
	n.Excitation[a] = appendUnique(n.Excitation[a], b)
	n.Excitation[b] = appendUnique(n.Excitation[b], a)
	return nil
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}
