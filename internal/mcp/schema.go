package mcp

import (
	"time"

	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/visualization"
)

// IACNetworksInput defines the input for the iac_networks tool.
type IACNetworksInput struct{}

// IACNetworksOutput defines the output for the iac_networks tool.
type IACNetworksOutput struct {
	Networks []NetworkSummary `json:"networks" jsonschema:"Stored and built-in networks"`
	Count    int              `json:"count" jsonschema:"Number of networks"`
}

// NetworkSummary describes a network available to iac_run.
type NetworkSummary struct {
	Name      string     `json:"name"`
	Origin    string     `json:"origin"` // "stored" or "builtin"
	Nodes     int        `json:"nodes"`
	Blocks    int        `json:"blocks"`
	Source    string     `json:"source,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// IACRunInput defines the input for the iac_run tool. Unset model
// constants keep the server's defaults.
type IACRunInput struct {
	Network       string   `json:"network,omitempty" jsonschema:"Network to run: a stored network or a built-in dataset (default: jets-sharks)"`
	CSV           string   `json:"csv,omitempty" jsonschema:"CSV adjacency matrix inside the project root to build the network from, instead of network"`
	Blocks        []string `json:"blocks,omitempty" jsonschema:"Block layout of the CSV columns as name:size pairs in column order, e.g. gangs:2"`
	Probes        []string `json:"probes" jsonschema:"Nodes receiving external input, e.g. Jets and 20s"`
	Steps         int      `json:"steps,omitempty" jsonschema:"Number of update steps (default: 500)"`
	ExcludeBlocks []string `json:"exclude_blocks,omitempty" jsonschema:"Blocks left out of the result, e.g. instances and names"`
	Top           int      `json:"top,omitempty" jsonschema:"Return only the N most active nodes (default: all)"`
	Workers       int      `json:"workers,omitempty" jsonschema:"Goroutines per update step (default: sequential)"`

	ProbeWeight   *float64 `json:"probe_weight,omitempty" jsonschema:"External input to each probe node"`
	Excitation    *float64 `json:"excitation,omitempty" jsonschema:"Weight of excitatory input"`
	Inhibition    *float64 `json:"inhibition,omitempty" jsonschema:"Weight of inhibitory input"`
	MaxActivation *float64 `json:"max_activation,omitempty" jsonschema:"Upper activation bound M"`
	MinActivation *float64 `json:"min_activation,omitempty" jsonschema:"Lower activation bound m and the initial activation"`
	Decay         *float64 `json:"decay,omitempty" jsonschema:"Decay rate toward rest"`
	Rest          *float64 `json:"rest,omitempty" jsonschema:"Resting activation"`
}

// IACRunOutput defines the output for the iac_run tool.
type IACRunOutput struct {
	Network       string                         `json:"network" jsonschema:"Network that was run"`
	Probes        []string                       `json:"probes" jsonschema:"Probe nodes"`
	IgnoredProbes []string                       `json:"ignored_probes,omitempty" jsonschema:"Probes that are not nodes of the network"`
	Steps         int                            `json:"steps" jsonschema:"Update steps applied"`
	Config        iac.Config                     `json:"config" jsonschema:"Model constants used"`
	Activations   []visualization.NodeActivation `json:"activations" jsonschema:"Final activations, most active first"`
	Count         int                            `json:"count" jsonschema:"Number of activations returned"`
}

// IACValidateInput defines the input for the iac_validate tool.
type IACValidateInput struct {
	Network string `json:"network" jsonschema:"Stored network or built-in dataset to check"`
}

// IACValidateOutput defines the output for the iac_validate tool.
type IACValidateOutput struct {
	Network  string   `json:"network" jsonschema:"Network that was checked"`
	Valid    bool     `json:"valid" jsonschema:"Whether the network is safe to run"`
	Problems []string `json:"problems,omitempty" jsonschema:"Structural problems found"`
	Nodes    int      `json:"nodes" jsonschema:"Number of nodes"`
	Blocks   int      `json:"blocks" jsonschema:"Number of blocks"`
}
