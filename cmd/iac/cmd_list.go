package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvandessel/iac/internal/network"
	"github.com/nvandessel/iac/internal/store"
	"github.com/spf13/cobra"
)

// listEntry is one network in the output of iac list.
type listEntry struct {
	Name   string `json:"name"`
	Origin string `json:"origin"` // "stored" or "builtin"
	Nodes  int    `json:"nodes"`
	Blocks int    `json:"blocks"`
	Source string `json:"source,omitempty"`
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored networks and built-in datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			entries := []listEntry{}
			stored := make(map[string]bool)

			if _, err := os.Stat(store.DatabasePath(root)); err == nil {
				s, err := store.NewSQLiteNetworkStore(root)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer s.Close()

				infos, err := s.ListNetworks(commandContext(cmd))
				if err != nil {
					return err
				}
				for _, info := range infos {
					entries = append(entries, listEntry{
						Name:   info.Name,
						Origin: "stored",
						Nodes:  info.Nodes,
						Blocks: info.Blocks,
						Source: info.Source,
					})
					stored[info.Name] = true
				}
			}

			for _, name := range network.BuiltinNames() {
				if stored[name] {
					continue
				}
				n, err := network.Builtin(name)
				if err != nil {
					return err
				}
				entries = append(entries, listEntry{
					Name:   name,
					Origin: "builtin",
					Nodes:  len(n.Nodes),
					Blocks: len(n.Blocks),
				})
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"networks": entries,
					"count":    len(entries),
				})
			}

			w := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(w, "%-20s %-8s %5d nodes %3d blocks", e.Name, e.Origin, e.Nodes, e.Blocks)
				if e.Source != "" {
					fmt.Fprintf(w, "  (%s)", e.Source)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}
