// Package linemetrics precomputes and caches, for every piece
// sub-range of a long logical line, the layout penalty and rendered
// height that range would incur as a single physical line (spec
// §4.2), grounded on original_source/line.c's line_analyse, which
// walks the same start/end grid before the break optimizer runs.
package linemetrics

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/linebreak"
	"github.com/versetype/versetype/internal/pieceline"
	"github.com/versetype/versetype/layout"
)

// Infeasible marks a sub-range that cannot fit in the column at all.
const Infeasible = -1

// cell is one (start, end) table entry.
type cell struct {
	Feasible bool
	Penalty  int
	Height   layout.Abs
}

// Table holds Cost/Height for every start <= end pair over a line of
// N pieces, the "starts[a][b]" grid named in the specification.
// Indices are stored as starts[a][b] where b ranges over
// [a+1, N]; Table is gob-encodable so a build can be persisted to
// disk and reused by a later run over the same (unchanged) document.
type Table struct {
	N    int
	Grid [][]cell
}

// Build computes the full table by evaluating every (start, end)
// sub-range of line.Pieces exactly once, mirroring line_analyse's
// nested loop. lineSpacing is the leading multiplier CalculateHeight
// expects.
func Build(line *pieceline.Line, columnWidth layout.Abs, reg *fontreg.Registry, dropCharLeftMargin layout.Abs, lineSpacing float64) *Table {
	n := len(line.Pieces)
	t := &Table{N: n, Grid: make([][]cell, n)}
	for a := 0; a < n; a++ {
		t.Grid[a] = make([]cell, n-a)
		for end := a + 1; end <= n; end++ {
			cost := linebreak.SegmentCost(line, a, end, 0, columnWidth, reg, dropCharLeftMargin)
			c := cell{}
			if cost == linebreak.Infeasible {
				c.Feasible = false
			} else {
				c.Feasible = true
				c.Penalty = cost
				c.Height = segmentHeight(line, a, end, lineSpacing)
			}
			t.Grid[a][end-a-1] = c
		}
	}
	return t
}

// segmentHeight measures the height a [start, end) sub-range of
// line.Pieces would occupy as its own physical line, by delegating to
// the same CalculateHeight used for any other line.
func segmentHeight(line *pieceline.Line, start, end int, lineSpacing float64) layout.Abs {
	sub := &pieceline.Line{Pieces: line.Pieces[start:end]}
	sub.CalculateHeight(0, end-start, lineSpacing)
	return sub.LineHeight
}

// At returns the cost and height of the [start, end) sub-range, and
// whether it is feasible at all.
func (t *Table) At(start, end int) (cost int, height layout.Abs, feasible bool) {
	if start < 0 || start >= t.N || end <= start || end-start-1 >= len(t.Grid[start]) {
		return Infeasible, 0, false
	}
	c := t.Grid[start][end-start-1]
	if !c.Feasible {
		return Infeasible, 0, false
	}
	return c.Penalty, c.Height, true
}

// Save gob-encodes the table to w.
func (t *Table) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(t); err != nil {
		return fmt.Errorf("linemetrics: save: %w", err)
	}
	return nil
}

// Load gob-decodes a table previously written by Save.
func Load(r io.Reader) (*Table, error) {
	var t Table
	if err := gob.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("linemetrics: load: %w", err)
	}
	return &t, nil
}
