package visualization

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/nvandessel/iac/internal/network"
)

// testNetwork has two blocks: a ring of three people and a single team.
func testNetwork(t *testing.T) *network.Network {
	t.Helper()
	return network.New([]network.Block{
		{Name: "people", Members: []string{"ann", "bob", "cid"}},
		{Name: "teams", Members: []string{"red"}},
	}, map[string][]string{
		"ann": {"red"},
		"bob": {"red"},
		"red": {"ann", "bob"},
	})
}

func testActivations() map[string]float64 {
	return map[string]float64{"ann": 0.6, "bob": -0.15, "cid": -0.2, "red": 0.3}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"dot", FormatDOT, false},
		{"html", FormatHTML, false},
		{"svg", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCollect(t *testing.T) {
	net := testNetwork(t)
	acts := testActivations()

	all := Collect(net, acts, nil)
	if len(all) != 4 {
		t.Fatalf("Collect() returned %d items, want 4", len(all))
	}
	wantOrder := []string{"ann", "bob", "cid", "red"}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Errorf("item %d = %s, want %s", i, all[i].ID, id)
		}
	}
	if all[3].Block != "teams" || all[3].Activation != 0.3 {
		t.Errorf("red = %+v, want block teams, activation 0.3", all[3])
	}

	people := Collect(net, acts, []string{"teams"})
	if len(people) != 3 {
		t.Fatalf("Collect(exclude teams) returned %d items, want 3", len(people))
	}
	for _, it := range people {
		if it.Block != "people" {
			t.Errorf("excluded block leaked: %+v", it)
		}
	}

	delete(acts, "bob")
	if got := Collect(net, acts, nil); len(got) != 3 {
		t.Errorf("nodes without activation should be skipped, got %d items", len(got))
	}
}

func TestSortByActivation(t *testing.T) {
	items := []NodeActivation{
		{ID: "a", Activation: 0.1},
		{ID: "b", Activation: 0.5},
		{ID: "c", Activation: 0.1},
		{ID: "d", Activation: -0.2},
	}
	SortByActivation(items)

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if got := strings.Join(ids, ","); got != "b,a,c,d" {
		t.Errorf("order = %s, want b,a,c,d", got)
	}
}

func TestRenderBars(t *testing.T) {
	items := []NodeActivation{
		{ID: "A", Block: "x", Activation: 0.5},
		{ID: "BB", Block: "x", Activation: -0.25},
		{ID: "C", Block: "y", Activation: 0},
	}

	var buf bytes.Buffer
	if err := RenderBars(&buf, items, 4); err != nil {
		t.Fatalf("RenderBars: %v", err)
	}

	want := "[x]\n" +
		"  A      |####   0.5000\n" +
		"  BB   ##|      -0.2500\n" +
		"\n" +
		"[y]\n" +
		"  C      |       0.0000\n"
	if buf.String() != want {
		t.Errorf("RenderBars output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderBars_NonFinite(t *testing.T) {
	items := []NodeActivation{
		{ID: "A", Block: "x", Activation: 0.5},
		{ID: "B", Block: "x", Activation: math.Inf(1)},
		{ID: "C", Block: "x", Activation: math.NaN()},
		{ID: "D", Block: "x", Activation: math.Inf(-1)},
	}

	var buf bytes.Buffer
	if err := RenderBars(&buf, items, 4); err != nil {
		t.Fatalf("RenderBars: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	if lines[1] != "  A     |####   0.5000" {
		t.Errorf("finite values should keep the full scale, got %q", lines[1])
	}
	for i, want := range []string{"+Inf", "NaN", "-Inf"} {
		line := lines[i+2]
		if !strings.HasSuffix(line, want) || strings.Contains(line, "#") {
			t.Errorf("line %q: want %s without a bar", line, want)
		}
	}
}

func TestRenderHTML_NonFinite(t *testing.T) {
	html, err := RenderHTML("diverged", []NodeActivation{
		{ID: "A", Block: "x", Activation: -0.5},
		{ID: "B", Block: "x", Activation: math.Inf(1)},
	})
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	s := string(html)
	if strings.Contains(s, "NaN%") || strings.Contains(s, "Inf%") {
		t.Errorf("bar widths must stay finite:\n%s", s)
	}
	if !strings.Contains(s, "width: 100.0%") {
		t.Error("largest finite activation should fill its half")
	}
}

func TestRenderBars_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderBars(&buf, nil, 0); err != nil {
		t.Fatalf("RenderBars: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestRenderJSON(t *testing.T) {
	net := testNetwork(t)
	result := RenderJSON(Collect(net, testActivations(), nil))

	if result["node_count"] != 4 {
		t.Errorf("node_count = %v, want 4", result["node_count"])
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Nodes []NodeActivation `json:"nodes"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Nodes) != 4 || decoded.Nodes[0].ID != "ann" || decoded.Nodes[0].Block != "people" {
		t.Errorf("decoded nodes = %+v", decoded.Nodes)
	}

	empty, err := json.Marshal(RenderJSON(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(empty), `"nodes":[]`) {
		t.Errorf("empty render should have an empty nodes array, got %s", empty)
	}
}

func TestRenderDOT(t *testing.T) {
	net := testNetwork(t)
	dot := RenderDOT(net, testActivations())

	if !strings.HasPrefix(dot, "digraph iac {") {
		t.Error("expected digraph header")
	}
	if !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Error("expected closing brace")
	}
	if !strings.Contains(dot, `label="people"`) || !strings.Contains(dot, `label="teams"`) {
		t.Error("expected one cluster per block")
	}

	// Each excitatory pair once.
	if strings.Count(dot, `"ann" -> "red" [dir=none]`)+strings.Count(dot, `"red" -> "ann" [dir=none]`) != 1 {
		t.Errorf("expected a single ann-red edge:\n%s", dot)
	}
	if strings.Count(dot, "dir=none") != 2 {
		t.Errorf("expected 2 excitatory edges, got %d", strings.Count(dot, "dir=none"))
	}

	// Ring edges for the three people; the single team has no self-loop.
	for _, edge := range []string{`"ann" -> "bob" [style=dashed`, `"bob" -> "cid" [style=dashed`, `"cid" -> "ann" [style=dashed`} {
		if !strings.Contains(dot, edge) {
			t.Errorf("missing ring edge %s", edge)
		}
	}
	if strings.Contains(dot, `"red" -> "red"`) {
		t.Error("single-member block should not draw a ring self-loop")
	}

	if !strings.Contains(dot, `fillcolor="0.333 0.600 1.000"`) {
		t.Error("expected green fill for ann")
	}
	if !strings.Contains(dot, `fillcolor="0.000 0.200 1.000"`) {
		t.Error("expected red fill for cid")
	}
}

func TestRenderDOT_MissingActivation(t *testing.T) {
	net := testNetwork(t)
	dot := RenderDOT(net, map[string]float64{"ann": 0.1})
	if !strings.Contains(dot, `"red" [fillcolor="lightgray"]`) {
		t.Errorf("nodes without activation should be gray:\n%s", dot)
	}
}

func TestRenderHTML(t *testing.T) {
	net := testNetwork(t)
	html, err := RenderHTML("Jets <probe>", Collect(net, testActivations(), nil))
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}

	s := string(html)
	if !strings.Contains(s, "<!DOCTYPE html>") {
		t.Error("expected HTML document")
	}
	if strings.Contains(s, "<probe>") || !strings.Contains(s, "Jets &lt;probe&gt;") {
		t.Error("title should be HTML-escaped")
	}
	if strings.Count(s, "<table>") != 2 {
		t.Errorf("expected one table per block, got %d", strings.Count(s, "<table>"))
	}
	if !strings.Contains(s, "width: 100.0%") {
		t.Error("largest activation should fill its half")
	}
	if !strings.Contains(s, "0.6000") || !strings.Contains(s, "-0.1500") {
		t.Error("expected formatted activation values")
	}
}
