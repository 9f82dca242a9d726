// Package shape performs the emission-time adjustments applied to a
// line immediately before it is drawn: trailing/leading space
// removal, justification stretch, and the horizontal starting offset
// for each alignment (spec §4.6), grounded on
// original_source/line.c's line_emit and its
// line_remove_trailing_space/line_remove_leading_space helpers.
package shape

import (
	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/piece"
	"github.com/versetype/versetype/internal/pieceline"
	"github.com/versetype/versetype/layout"
)

// RemoveTrailingSpace drops any run of empty/space pieces from the
// end of the line, adjusting LineWidthSoFar to match
// (line_remove_trailing_space).
func RemoveTrailingSpace(l *pieceline.Line) {
	for len(l.Pieces) > 0 {
		last := l.Pieces[len(l.Pieces)-1]
		if last.Text != " " && last.Text != "" {
			break
		}
		l.LineWidthSoFar -= last.Width
		l.Pieces = l.Pieces[:len(l.Pieces)-1]
	}
}

// RemoveLeadingSpace drops any run of empty/space pieces from the
// start of the line, adjusting LineWidthSoFar to match
// (line_remove_leading_space). Only justified lines have their
// leading space removed in the original (ragged alignments keep it,
// since it visually sets the indent).
func RemoveLeadingSpace(l *pieceline.Line) {
	i := 0
	for i < len(l.Pieces) && (l.Pieces[i].Text == " " || l.Pieces[i].Text == "") {
		l.LineWidthSoFar -= l.Pieces[i].Width
		i++
	}
	if i > 0 {
		l.Pieces = append([]piece.Piece(nil), l.Pieces[i:]...)
	}
}

// Justify stretches every elastic piece on l by an equal share of the
// slack between l.LineWidthSoFar and l.MaxLineWidth, unless this is
// the paragraph's final line or l isn't justified (line_emit's
// justified-line stretch step). isFinalLine should be true for the
// last line of its paragraph and for any poetry line, both of which
// are exempt from stretch-justification in the original.
func Justify(l *pieceline.Line, isFinalLine bool) {
	if l.Alignment != layout.AlignJustified || isFinalLine {
		return
	}
	pointsToAdd := l.MaxLineWidth - l.LineWidthSoFar
	if pointsToAdd <= 0 {
		return
	}
	elasticCount := 0
	for i := range l.Pieces {
		if l.Pieces[i].Elastic {
			elasticCount++
		}
	}
	if elasticCount == 0 {
		return
	}
	slice := pointsToAdd / layout.Abs(elasticCount)
	for i := range l.Pieces {
		if l.Pieces[i].Elastic {
			l.Pieces[i].Width += slice
		}
	}
	l.LineWidthSoFar = l.MaxLineWidth
}

// StartX computes the horizontal pen position (relative to the
// column's left edge) at which the first piece of l should be drawn,
// for l's alignment, then backs off by LeftHang so hung punctuation
// protrudes into the margin (line_emit's x calculation).
func StartX(l *pieceline.Line) layout.Abs {
	var x layout.Abs
	switch l.Alignment {
	case layout.AlignLeft, layout.AlignJustified, layout.AlignNone:
		x = l.LeftMargin
	case layout.AlignCentred:
		x = (l.MaxLineWidth - l.LineWidthSoFar) / 2
	case layout.AlignRight:
		x = l.MaxLineWidth - l.LineWidthSoFar
	}
	return x - l.LeftHang
}

// Prepare runs the full pre-emission pipeline in the original's
// order: trailing space removal, then leading space removal (justified
// lines only), then hang-width recalculation (every line), then
// justification stretch. reg is required to recompute hang widths after leading
// space changes the line's first piece.
func Prepare(l *pieceline.Line, reg *fontreg.Registry, maxHangSpace layout.Abs, isFinalLine bool) {
	RemoveTrailingSpace(l)
	if l.Alignment == layout.AlignJustified {
		RemoveLeadingSpace(l)
	}
	l.RecalculateWidth(reg, maxHangSpace)
	Justify(l, isFinalLine)
}
