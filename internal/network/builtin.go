package network

import (
	"fmt"
	"sort"
)

// JetsAndSharksName is the name of the built-in Jets and Sharks dataset.
const JetsAndSharksName = "jets-sharks"

var jetsAndSharksCategories = []Category{
	{Name: "gangs", Values: []string{"Jets", "Sharks"}},
	{Name: "ages", Values: []string{"20s", "30s", "40s"}},
	{Name: "education", Values: []string{"JH", "HS", "College"}},
	{Name: "marital", Values: []string{"Single", "Married", "Divorced"}},
	{Name: "occupations", Values: []string{"Pusher", "Burglar", "Bookie"}},
}

// name, gang, age, education, marital status, occupation
var jetsAndSharksTable = [][6]string{
	{"Art", "Jets", "40s", "JH", "Single", "Pusher"},
	{"Al", "Jets", "30s", "JH", "Married", "Burglar"},
	{"Sam", "Jets", "20s", "College", "Single", "Bookie"},
	{"Clyde", "Jets", "40s", "JH", "Single", "Bookie"},
	{"Mike", "Jets", "30s", "JH", "Single", "Bookie"},
	{"Jim", "Jets", "20s", "JH", "Divorced", "Burglar"},
	{"Greg", "Jets", "20s", "HS", "Married", "Pusher"},
	{"John", "Jets", "20s", "JH", "Married", "Burglar"},
	{"Doug", "Jets", "30s", "HS", "Single", "Bookie"},
	{"Lance", "Jets", "20s", "JH", "Married", "Burglar"},
	{"George", "Jets", "20s", "JH", "Divorced", "Burglar"},
	{"Pete", "Jets", "20s", "HS", "Single", "Bookie"},
	{"Fred", "Jets", "20s", "HS", "Single", "Pusher"},
	{"Gene", "Jets", "20s", "College", "Single", "Pusher"},
	{"Ralph", "Jets", "30s", "JH", "Single", "Pusher"},
	{"Phil", "Sharks", "30s", "College", "Married", "Pusher"},
	{"Ike", "Sharks", "30s", "JH", "Single", "Bookie"},
	{"Nick", "Sharks", "30s", "HS", "Single", "Pusher"},
	{"Don", "Sharks", "30s", "College", "Married", "Burglar"},
	{"Ned", "Sharks", "30s", "College", "Married", "Bookie"},
	{"Karl", "Sharks", "40s", "HS", "Married", "Bookie"},
	{"Ken", "Sharks", "20s", "HS", "Single", "Burglar"},
	{"Earl", "Sharks", "40s", "HS", "Married", "Burglar"},
	{"Rick", "Sharks", "30s", "HS", "Divorced", "Burglar"},
	{"Ol", "Sharks", "30s", "College", "Married", "Pusher"},
	{"Neal", "Sharks", "30s", "HS", "Single", "Bookie"},
	{"Dave", "Sharks", "30s", "HS", "Divorced", "Pusher"},
}

// JetsAndSharksRecords returns the 27 gang members of McClelland's (1981)
// Jets and Sharks example.
func JetsAndSharksRecords() []Record {
	records := make([]Record, 0, len(jetsAndSharksTable))
	for _, row := range jetsAndSharksTable {
		attrs := make(map[string]string, len(jetsAndSharksCategories))
		for i, c := range jetsAndSharksCategories {
			attrs[c.Name] = row[i+1]
		}
		records = append(records, Record{Name: row[0], Attributes: attrs})
	}
	return records
}

// JetsAndSharksCategories returns the property categories of the Jets and
// Sharks table in block order.
func JetsAndSharksCategories() []Category {
	out := make([]Category, len(jetsAndSharksCategories))
	for i, c := range jetsAndSharksCategories {
		out[i] = Category{Name: c.Name, Values: append([]string(nil), c.Values...)}
	}
	return out
}

// JetsAndSharks returns the Jets and Sharks network: 27 instance nodes, the
// gang, age, education, marital and occupation blocks, and 27 name nodes.
func JetsAndSharks() *Network {
	n, err := FromRecords(JetsAndSharksRecords(), jetsAndSharksCategories)
	if err != nil {
		panic(fmt.Sprintf("network: built-in %s dataset: %v", JetsAndSharksName, err))
	}
	return n
}

var builtins = map[string]func() *Network{
	JetsAndSharksName: JetsAndSharks,
}

// Builtin returns a fresh copy of the named built-in network.
func Builtin(name string) (*Network, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown built-in network %q (available: %v)", name, BuiltinNames())
	}
	return build(), nil
}

// BuiltinNames lists the built-in networks in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
