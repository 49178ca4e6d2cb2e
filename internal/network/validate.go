package network

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants the engine relies on without
// re-checking them on every step:
//   - the excitation and inhibition mappings have the same key set
//   - every excitation neighbor is a node
//   - every node belongs to exactly one block, and block names are unique
//   - following the inhibition ring from any block member visits every other
//     member of its block exactly once before returning
//
// All problems found are returned joined together.
func Validate(n *Network) error {
	if n == nil {
		return errors.New("network is nil")
	}

	var errs []error

	if len(n.Excitation) == 0 {
		errs = append(errs, errors.New("network has no nodes"))
	}

	for _, id := range n.Nodes {
		if _, ok := n.Excitation[id]; !ok {
			errs = append(errs, fmt.Errorf("node %q has no excitation entry", id))
		}
	}
	for id := range n.Excitation {
		if _, ok := n.Inhibition[id]; !ok {
			errs = append(errs, fmt.Errorf("node %q has no inhibition successor", id))
		}
	}
	for id := range n.Inhibition {
		if _, ok := n.Excitation[id]; !ok {
			errs = append(errs, fmt.Errorf("inhibition entry %q is not a node", id))
		}
	}
	if len(n.Nodes) != len(n.Excitation) {
		errs = append(errs, fmt.Errorf("node list has %d entries, excitation mapping has %d", len(n.Nodes), len(n.Excitation)))
	}

	for id, neighbors := range n.Excitation {
		for _, nb := range neighbors {
			if _, ok := n.Excitation[nb]; !ok {
				errs = append(errs, fmt.Errorf("node %q excites unknown node %q", id, nb))
			}
		}
	}

	owner := make(map[string]string)
	names := make(map[string]bool, len(n.Blocks))
	for _, b := range n.Blocks {
		if names[b.Name] {
			errs = append(errs, fmt.Errorf("block name %q is used more than once", b.Name))
		}
		names[b.Name] = true
		if len(b.Members) == 0 {
			errs = append(errs, fmt.Errorf("block %q is empty", b.Name))
			continue
		}
		for _, id := range b.Members {
			if prev, dup := owner[id]; dup {
				errs = append(errs, fmt.Errorf("node %q is in blocks %q and %q", id, prev, b.Name))
				continue
			}
			owner[id] = b.Name
		}
		if err := checkRing(n.Inhibition, b); err != nil {
			errs = append(errs, err)
		}
	}
	for id := range n.Excitation {
		if _, ok := owner[id]; !ok {
			errs = append(errs, fmt.Errorf("node %q is in no block", id))
		}
	}

	return errors.Join(errs...)
}

// checkRing verifies that the ring restricted to a block is one simple
// cycle through all of its members.
func checkRing(ring map[string]string, b Block) error {
	members := make(map[string]bool, len(b.Members))
	for _, id := range b.Members {
		members[id] = true
	}

	start := b.Members[0]
	visited := map[string]bool{start: true}
	cur := start
	for {
		next, ok := ring[cur]
		if !ok {
			return fmt.Errorf("block %q: ring breaks at %q", b.Name, cur)
		}
		if !members[next] {
			return fmt.Errorf("block %q: ring leaves the block from %q to %q", b.Name, cur, next)
		}
		if next == start {
			break
		}
		if visited[next] {
			return fmt.Errorf("block %q: ring loops at %q without returning to %q", b.Name, next, start)
		}
		visited[next] = true
		cur = next
	}

	if len(visited) != len(members) {
		return fmt.Errorf("block %q: ring visits %d of %d members", b.Name, len(visited), len(members))
	}
	return nil
}
