package network

import (
	"fmt"
	"sort"
)

// Names of the blocks FromRecords creates around the property blocks.
const (
	InstanceBlock = "instances"
	NameBlock     = "names"
)

// InstancePrefix marks the hidden instance node that ties a record's name to
// its properties.
const InstancePrefix = "_"

// Record is one row of a table: a named individual and its value in each
// category.
type Record struct {
	Name       string
	Attributes map[string]string
}

// Category is a column of the table. Values lists the possible values in
// display order; when empty, the values found in the records are used in
// sorted order.
type Category struct {
	Name   string
	Values []string
}

// FromRecords builds a network with one instance node per record, one node
// per category value and one name node per record. Each instance excites
// and is excited by its name and its values. The blocks are ordered
// instances, the categories in the given order, then names.
func FromRecords(records []Record, categories []Category) (*Network, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records")
	}

	instances := Block{Name: InstanceBlock}
	names := Block{Name: NameBlock}
	excitation := make(map[string][]string)
	seen := make(map[string]bool)

	blocks := make([]Block, 0, len(categories)+2)
	blocks = append(blocks, instances)
	for _, c := range categories {
		values := c.Values
		if len(values) == 0 {
			values = distinctValues(records, c.Name)
		}
		for _, v := range values {
			if seen[v] {
				return nil, fmt.Errorf("category %q: value %q is already a node", c.Name, v)
			}
			seen[v] = true
		}
		blocks = append(blocks, Block{Name: c.Name, Members: append([]string(nil), values...)})
	}

	for _, r := range records {
		inst := InstancePrefix + r.Name
		if seen[inst] || seen[r.Name] {
			return nil, fmt.Errorf("record %q: duplicate node", r.Name)
		}
		seen[inst] = true
		seen[r.Name] = true

		instances.Members = append(instances.Members, inst)
		names.Members = append(names.Members, r.Name)
		excitation[inst] = append(excitation[inst], r.Name)
		excitation[r.Name] = append(excitation[r.Name], inst)

		for _, c := range categories {
			v, ok := r.Attributes[c.Name]
			if !ok || v == "" {
				// A missing value leaves the instance unconnected in that category.
				continue
			}
			if !contains(blocks, c.Name, v) {
				return nil, fmt.Errorf("record %q: %s value %q is not listed", r.Name, c.Name, v)
			}
			excitation[inst] = append(excitation[inst], v)
			excitation[v] = append(excitation[v], inst)
		}
	}

	blocks[0] = instances
	blocks = append(blocks, names)
	return New(blocks, excitation), nil
}

func distinctValues(records []Record, category string) []string {
	set := make(map[string]bool)
	for _, r := range records {
		if v := r.Attributes[category]; v != "" {
			set[v] = true
		}
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func contains(blocks []Block, name, value string) bool {
	for _, b := range blocks {
		if b.Name != name {
			continue
		}
		for _, m := range b.Members {
			if m == value {
				return true
			}
		}
	}
	return false
}
