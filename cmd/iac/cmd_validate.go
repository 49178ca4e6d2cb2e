package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nvandessel/iac/internal/network"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [name]",
		Short: "Check a network's structure",
		Long: `Check that a network is well formed: every node has an excitation entry
and an inhibition successor, neighbors exist, and each block's inhibition
ring visits all of its members exactly once.

The network is selected by name or with the same flags as run.
Exits with an error when problems are found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := cmd.Flags().Set("network", args[0]); err != nil {
					return err
				}
			}

			net, source, err := loadNetwork(cmd, cfg)
			if err != nil {
				return err
			}

			var problems []string
			if verr := network.Validate(net); verr != nil {
				problems = splitErrors(verr)
			}

			if jsonOut {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"network":  source,
					"valid":    len(problems) == 0,
					"problems": append([]string{}, problems...),
					"nodes":    len(net.Nodes),
					"blocks":   len(net.Blocks),
				}); err != nil {
					return err
				}
			} else if len(problems) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d nodes in %d blocks\n", source, len(net.Nodes), len(net.Blocks))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has %d problem(s):\n", source, len(problems))
				for _, p := range problems {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", p)
				}
			}

			if len(problems) > 0 {
				return fmt.Errorf("network %s is not valid", source)
			}
			return nil
		},
	}

	addNetworkFlags(cmd)

	return cmd
}

// splitErrors flattens an errors.Join result into messages.
func splitErrors(err error) []string {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
