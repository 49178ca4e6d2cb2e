package visualization

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// DefaultBarWidth is the number of characters on each side of the axis.
const DefaultBarWidth = 20

// RenderBars writes a horizontal bar chart of the activations to w. Positive
// activations extend right of a zero axis and negative ones extend left; the
// largest finite magnitude fills width characters. Non-finite activations
// are printed without a bar. A header line is written whenever the block
// changes.
func RenderBars(w io.Writer, items []NodeActivation, width int) error {
	if width <= 0 {
		width = DefaultBarWidth
	}

	nameWidth := 0
	for _, it := range items {
		if len(it.ID) > nameWidth {
			nameWidth = len(it.ID)
		}
	}
	scale := barScale(items)

	block := ""
	for i, it := range items {
		if i == 0 || it.Block != block {
			block = it.Block
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "[%s]\n", block); err != nil {
				return err
			}
		}

		var n int
		if finite(it.Activation) {
			n = int(math.Round(math.Abs(it.Activation) / scale * float64(width)))
		}
		var left, right string
		if it.Activation < 0 {
			left = strings.Repeat(" ", width-n) + strings.Repeat("#", n)
			right = strings.Repeat(" ", width)
		} else {
			left = strings.Repeat(" ", width)
			right = strings.Repeat("#", n) + strings.Repeat(" ", width-n)
		}

		if _, err := fmt.Fprintf(w, "  %-*s %s|%s %8.4f\n", nameWidth, it.ID, left, right, it.Activation); err != nil {
			return err
		}
	}
	return nil
}

// barScale returns the largest finite magnitude among items, or 1 when
// there is none.
func barScale(items []NodeActivation) float64 {
	scale := 0.0
	for _, it := range items {
		if finite(it.Activation) {
			scale = math.Max(scale, math.Abs(it.Activation))
		}
	}
	if scale == 0 {
		return 1
	}
	return scale
}

func finite(a float64) bool {
	return !math.IsNaN(a) && !math.IsInf(a, 0)
}
