package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nvandessel/iac/internal/store"
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			if _, err := os.Stat(store.DatabasePath(root)); err != nil {
				return fmt.Errorf("%w: %s (no networks stored under %s)", store.ErrNotFound, name, root)
			}

			s, err := store.NewSQLiteNetworkStore(root)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			if err := s.DeleteNetwork(commandContext(cmd), name); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return err
				}
				return fmt.Errorf("delete network: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"status": "deleted",
					"name":   name,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
			return nil
		},
	}
}
