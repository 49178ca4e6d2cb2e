package visualization

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
)

// htmlRow is one bar of the HTML chart. Neg and Pos are CSS percentages of
// the half-width on each side of the axis.
type htmlRow struct {
	ID         string
	Activation float64
	Neg        string
	Pos        string
}

type htmlBlock struct {
	Name string
	Rows []htmlRow
}

// htmlTemplateData holds data passed to the HTML template.
type htmlTemplateData struct {
	Title  string
	Blocks []htmlBlock
}

// RenderHTML produces a self-contained HTML page with a bar chart of the
// activations, one table per block.
func RenderHTML(title string, items []NodeActivation) ([]byte, error) {
	tmplBytes, err := templates.ReadFile("templates/activations.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}

	tmpl, err := template.New("activations").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	scale := barScale(items)

	data := htmlTemplateData{Title: title}
	for i, it := range items {
		if i == 0 || it.Block != items[i-1].Block {
			data.Blocks = append(data.Blocks, htmlBlock{Name: it.Block})
		}
		pct := "0"
		if finite(it.Activation) {
			pct = strconv.FormatFloat(math.Abs(it.Activation)/scale*100, 'f', 1, 64)
		}
		row := htmlRow{ID: it.ID, Activation: it.Activation, Neg: "0", Pos: "0"}
		if it.Activation < 0 {
			row.Neg = pct
		} else {
			row.Pos = pct
		}
		last := &data.Blocks[len(data.Blocks)-1]
		last.Rows = append(last.Rows, row)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}
