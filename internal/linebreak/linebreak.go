// Package linebreak implements the per-long-line dynamic-programming
// break optimizer (spec §4.1): given one long logical line of pieces,
// find the split points that minimize total fullness penalty across
// the resulting physical lines, grounded on
// original_source/layout.c's layout_calculate_segment_cost and
// layout_line.
package linebreak

import (
	"fmt"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/piece"
	"github.com/versetype/versetype/internal/pieceline"
	"github.com/versetype/versetype/layout"
)

// Infeasible marks a segment whose width exceeds the column, the
// Go-side equivalent of layout_calculate_segment_cost's -1 sentinel.
const Infeasible = -1

// SegmentCost computes the layout penalty of setting line.Pieces
// [start:end] as one physical line, or reports infeasible if the
// segment cannot fit in columnWidth at all. lineCount is the number
// of physical lines already produced for this long line before this
// segment, used only to decide whether a drop cap at piece 0 is still
// within its own vertical span (line_count < font.LineCount-1) and so
// still entitled to its second-piece hang discount. That check, and
// with it the discount and the dropCharLeftMargin indent, is applied
// only to a segment starting at piece 0, the first physical line;
// later lines the drop cap spans are costed without either.
func SegmentCost(line *pieceline.Line, start, end, lineCount int, columnWidth layout.Abs, reg *fontreg.Registry, dropCharLeftMargin layout.Abs) int {
	var lineWidth layout.Abs

	for i := start; i < end; i++ {
		pieceWidth := line.Pieces[i].NaturalWidth

		if i > start && line.Pieces[i].Font != nil && line.Pieces[i].Font.Nickname == "footnotemark" {
			prev := &line.Pieces[i-1]
			hangText := trailingLowPunctuation(prev.Text)
			var hangWidth layout.Abs
			if hangText != "" {
				hangWidth = reg.TextWidth(prev.Font, hangText)
			}
			allWidth := prev.NaturalWidth
			pieceWidth = allWidth - hangWidth
			if hangWidth > pieceWidth {
				pieceWidth = hangWidth
			}
		}

		lineWidth += pieceWidth
	}

	if len(line.Pieces) > 0 && start == 0 && end-start > 1 {
		first := line.Pieces[0].Font
		if first != nil && first.LineCount > 1 && lineCount < first.LineCount-1 {
			var discount layout.Abs
			footnotemark := line.Pieces[1].Font != nil && line.Pieces[1].Font.Nickname == "footnotemark"
			if footnotemark {
				discount += line.Pieces[1].NaturalWidth
			}
			discount += piece.LeadingHangWidth(line.Pieces[1].Text, line.Pieces[1].Font, reg)
			lineWidth -= discount
			lineWidth += dropCharLeftMargin
		}
	}

	if lineWidth > columnWidth {
		return Infeasible
	}

	fullness := float64(lineWidth) * 100.0 / float64(columnWidth)
	penalty := (100 - fullness) * (100 - fullness)
	return int(penalty)
}

// trailingLowPunctuation returns the longest trailing run of
// IsLowPunctuation characters in s, or "" if there is none.
func trailingLowPunctuation(s string) string {
	o := len(s)
	for o > 0 {
		if !piece.IsLowPunctuation(rune(s[o-1])) {
			break
		}
		o--
	}
	if o == len(s) {
		return ""
	}
	return s[o:]
}

// Break finds the minimum-penalty set of physical lines for a long
// logical line, via the dynamic program in layout_line: costs[b] is
// the cheapest total penalty of any sequence of segments covering
// pieces [0:b], and next[b] records where the final segment of that
// optimum starts. lineCounts[b] is a second DP array (not present in
// the original, which left an equivalent array always zero) that
// propagates the true number of physical lines produced so far and
// passes it to SegmentCost. SegmentCost applies the drop-cap
// adjustment only to the segment starting at piece 0, where that count
// is always 0, so only the first physical line receives it. A candidate split at b is excluded from consideration
// entirely (not merely penalized) whenever piece b-1 is marked
// Nobreak (spec §4.1's non-breakable constraint).
func Break(line *pieceline.Line, columnWidth layout.Abs, reg *fontreg.Registry, dropCharLeftMargin layout.Abs) ([]*pieceline.Line, error) {
	n := len(line.Pieces)
	if n == 0 {
		return nil, nil
	}
	applyNobreakRules(line)

	const infCost = 1 << 30
	costs := make([]int, n+1)
	next := make([]int, n+1)
	lineCounts := make([]int, n+1)
	for i := range costs {
		costs[i] = infCost
		next[i] = -1
	}
	costs[0] = 0

	for a := 0; a < n; a++ {
		if costs[a] == infCost {
			continue
		}
		for b := a + 1; b <= n; b++ {
			segmentCost := SegmentCost(line, a, b, lineCounts[a], columnWidth, reg, dropCharLeftMargin)
			if segmentCost == Infeasible {
				break
			}
			// A break at b ends a physical line right after piece
			// b-1: if that piece forbids a following break (spec
			// §4.1's non-breakable constraint), this candidate must
			// not be chosen, though wider b may still be feasible.
			if b < n && line.Pieces[b-1].Nobreak {
				continue
			}
			if segmentCost+costs[a] < costs[b] {
				costs[b] = segmentCost + costs[a]
				next[b] = a
				lineCounts[b] = lineCounts[a] + 1
			}
		}
	}

	if next[n] == -1 {
		return nil, fmt.Errorf("linebreak: no feasible break sequence for %d pieces at width %v", n, columnWidth)
	}

	// Reconstruct segments by walking backward, then reverse into
	// document order.
	var bounds [][2]int
	pos := n
	for pos > 0 {
		start := next[pos]
		if start < 0 || start >= pos {
			return nil, fmt.Errorf("linebreak: circular break path at position %d", pos)
		}
		bounds = append(bounds, [2]int{start, pos})
		pos = start
	}
	for i, j := 0, len(bounds)-1; i < j; i, j = i+1, j-1 {
		bounds[i], bounds[j] = bounds[j], bounds[i]
	}

	out := make([]*pieceline.Line, 0, len(bounds))
	for _, b := range bounds {
		start, end := b[0], b[1]
		lout := &pieceline.Line{
			// Every physical line split from this logical line keeps its
			// LineUID, so a footnote/cross-reference anchored to it can
			// still be found after line breaking (floats anchor to the
			// logical line, not a physical one).
			LineUID:      line.LineUID,
			Alignment:    line.Alignment,
			MaxLineWidth: line.MaxLineWidth,
			LeftMargin:   line.LeftMargin,
			PoemLevel:    line.PoemLevel,
		}
		lout.Pieces = append(lout.Pieces, line.Pieces[start:end]...)
		out = append(out, lout)
	}
	return out, nil
}

// applyNobreakRules augments whatever Nobreak flags the pieces already
// carry (set externally by paragraph.Builder.AppendCharacters's
// nobreak param) with the boundary rules the breaker itself owns: the
// piece before a footnote mark, and the piece before certain leading
// punctuation, are never eligible for a break immediately after them
// (line_append_piece's nobreak propagation). This runs once over the
// whole logical line before the DP, so the DP's candidate loop can
// treat every such boundary as infeasible rather than merely labelling
// it after a split has already been chosen across it.
func applyNobreakRules(line *pieceline.Line) {
	for i := 1; i < len(line.Pieces); i++ {
		p := &line.Pieces[i]
		if p.Font != nil && p.Font.Nickname == "footnotemark" {
			line.Pieces[i-1].Nobreak = true
			continue
		}
		if len(p.Text) > 0 {
			switch p.Text[0] {
			case ',', '.', '\'':
				line.Pieces[i-1].Nobreak = true
			}
		}
	}
}
