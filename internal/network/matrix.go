package network

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Matrix is a labeled square adjacency matrix. Cells[i][j] is true when
// the node in row i and the node in column j excite each other.
type Matrix struct {
	Labels []string
	Cells  [][]bool

	index map[string]int
}

// NewMatrix returns an empty matrix over the given labels.
func NewMatrix(labels []string) *Matrix {
	m := &Matrix{
		Labels: append([]string(nil), labels...),
		Cells:  make([][]bool, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		m.Cells[i] = make([]bool, len(labels))
		m.index[l] = i
	}
	return m
}

// ReadMatrixCSV parses an adjacency matrix. The header row holds the column
// labels after an empty (or ignored) first cell, and every following row
// starts with its row label. Rows must list the same labels as the header,
// in any order. A cell is set when its value parses as a number equal to 1.
func ReadMatrixCSV(r io.Reader) (*Matrix, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d columns, want at least 2", len(header))
	}

	m := NewMatrix(header[1:])
	if len(m.index) != len(m.Labels) {
		return nil, fmt.Errorf("header contains duplicate labels")
	}

	seen := make(map[string]bool, len(m.Labels))
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		label := strings.TrimSpace(record[0])
		row, ok := m.index[label]
		if !ok {
			return nil, fmt.Errorf("line %d: row label %q is not a column label", line, label)
		}
		if seen[label] {
			return nil, fmt.Errorf("line %d: duplicate row %q", line, label)
		}
		seen[label] = true

		for col, cell := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, m.Labels[col], err)
			}
			m.Cells[row][col] = v == 1
		}
	}

	if len(seen) != len(m.Labels) {
		return nil, fmt.Errorf("matrix has %d rows, want %d", len(seen), len(m.Labels))
	}
	return m, nil
}

// Set marks a and b as connected in both directions.
func (m *Matrix) Set(a, b string) error {
	i, ok := m.index[a]
	if !ok {
		return fmt.Errorf("unknown label %q", a)
	}
	j, ok := m.index[b]
	if !ok {
		return fmt.Errorf("unknown label %q", b)
	}
	m.Cells[i][j] = true
	m.Cells[j][i] = true
	return nil
}

// Excitation maps every column label to the row labels holding a 1 in that
// column, in row order.
func (m *Matrix) Excitation() map[string][]string {
	exc := make(map[string][]string, len(m.Labels))
	for col, label := range m.Labels {
		neighbors := []string{}
		for row := range m.Labels {
			if m.Cells[row][col] {
				neighbors = append(neighbors, m.Labels[row])
			}
		}
		exc[label] = neighbors
	}
	return exc
}

// FromMatrix builds a network from a matrix whose labels are laid out in
// consecutive category blocks.
func FromMatrix(m *Matrix, specs []BlockSpec) (*Network, error) {
	blocks, err := SplitBlocks(m.Labels, specs)
	if err != nil {
		return nil, err
	}
	return New(blocks, m.Excitation()), nil
}
