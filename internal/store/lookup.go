package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/iac/internal/network"
)

// Source prefixes accepted by Resolve.
const (
	BuiltinPrefix = "builtin:"
	StorePrefix   = "store:"
)

// Lookup returns the network stored under name, falling back to the
// built-in dataset of that name. Stored networks shadow built-ins.
func Lookup(ctx context.Context, s NetworkStore, name string) (*network.Network, error) {
	if s != nil {
		n, err := s.LoadNetwork(ctx, name)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	n, err := network.Builtin(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return n, nil
}

// Resolve interprets a network source of the form "builtin:<name>" or
// "store:<name>". A bare name is looked up with Lookup. Resolve reports
// false for anything else, which callers treat as a file path.
func Resolve(ctx context.Context, s NetworkStore, source string) (*network.Network, bool, error) {
	switch {
	case strings.HasPrefix(source, BuiltinPrefix):
		n, err := network.Builtin(strings.TrimPrefix(source, BuiltinPrefix))
		return n, true, err
	case strings.HasPrefix(source, StorePrefix):
		if s == nil {
			return nil, true, fmt.Errorf("no store available for %s", source)
		}
		n, err := s.LoadNetwork(ctx, strings.TrimPrefix(source, StorePrefix))
		return n, true, err
	case strings.ContainsAny(source, `/\.`):
		return nil, false, nil
	default:
		n, err := Lookup(ctx, s, source)
		return n, true, err
	}
}
