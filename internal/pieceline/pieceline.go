// Package pieceline defines Line, a single physical line of set pieces
// together with its margin, hang and height bookkeeping (spec §3).
package pieceline

import (
	"strings"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/piece"
	"github.com/versetype/versetype/layout"
)

// Nicknames that drive special-cased hang behavior, matching the
// font_nickname string comparisons in original_source/line.c.
const (
	nicknameFootnoteMark = "footnotemark"
	nicknameVerseNumber  = "versenum"
)

// Line is one physical line of already-broken pieces, ready for height
// calculation, hang-width adjustment and emission (spec §3).
type Line struct {
	Pieces []piece.Piece

	Alignment    layout.Alignment
	MaxLineWidth layout.Abs
	LeftMargin   layout.Abs

	// LeftHang and RightHang are the widths, in points, permitted to
	// protrude past MaxLineWidth on either side (hanging punctuation,
	// verse numbers, footnote marks).
	LeftHang  layout.Abs
	RightHang layout.Abs

	// LineWidthSoFar is the sum of piece widths net of LeftHang and
	// RightHang, i.e. the width actually occupied within the column.
	LineWidthSoFar layout.Abs

	// LineHeight, Ascent and Descent are set by CalculateHeight.
	LineHeight layout.Abs
	Ascent     layout.Abs
	Descent    layout.Abs

	// TiedToNextLine forbids a page break between this line and the
	// one following it (e.g. a heading kept with its first line of
	// body text).
	TiedToNextLine bool

	// LineUID identifies this line across paragraph reflows, used by
	// the floats manager to anchor footnote marks to a surviving line
	// even after the paragraph has been re-broken.
	LineUID int

	// PoemLevel is the nesting depth of poetry-mode indentation in
	// effect when this line was built (0 means not in poetry mode).
	PoemLevel int
}

// CalculateHeight sets Ascent, Descent and LineHeight from the fonts of
// pieces[start:end], per line_calculate_height. A piece whose font has
// LineCount > 1 (a drop cap) is excluded from the ascent/descent
// extremes, since its extra height is covered by the following lines
// it occupies; its line gap is likewise excluded. lineSpacing scales
// the resulting line gap (the document's leading multiplier).
func (l *Line) CalculateHeight(start, end int, lineSpacing float64) {
	if len(l.Pieces) == 0 {
		// A pure vspace line: LineHeight was already set directly by
		// its creator, and it has no ascent/descent of its own.
		l.Ascent = l.LineHeight
		l.Descent = 0
		return
	}

	var max, min, lineGap layout.Abs
	for i := start; i < end && i < len(l.Pieces); i++ {
		p := &l.Pieces[i]
		if p.Font == nil || p.Font.LineCount != 1 {
			continue
		}
		ascenderHeight := layout.Abs(p.Font.Ascent) * p.Font.Size / 1000
		descenderDepth := layout.Abs(p.Font.Descent) * p.Font.Size / 1000
		if descenderDepth < 0 {
			descenderDepth = -descenderDepth
		}
		if a := ascenderHeight - p.BaselineDelta; a > max {
			max = a
		}
		if m := p.BaselineDelta - descenderDepth; m < min {
			min = m
		}
		if g := layout.Abs(p.Font.LineGap) * p.Font.Size / 1000; g > lineGap {
			lineGap = g
		}
	}

	l.LineHeight = lineGap * layout.Abs(lineSpacing)
	l.Ascent = max
	l.Descent = -min
}

// ApplyPoetryMargin sets LeftMargin and MaxLineWidth from the poem
// nesting state, per line_apply_poetry_margin. subsequentLine is true
// for every physical line of a wrapped poetry line after its first.
func (l *Line) ApplyPoetryMargin(poemLevel int, subsequentLine bool, poetryLeftMargin, poetryLevelIndent, poetryWrapIndent, pageWidth, leftMargin, rightMargin layout.Abs) {
	if poemLevel == 0 {
		return
	}
	l.PoemLevel = poemLevel
	l.LeftMargin = poetryLeftMargin + layout.Abs(poemLevel-1)*poetryLevelIndent
	if subsequentLine {
		l.LeftMargin += poetryWrapIndent
	}
	l.MaxLineWidth = pageWidth - leftMargin - rightMargin - l.LeftMargin
}

// RecalculateWidth recomputes every piece's justified Width, the
// footnote-mark-over-punctuation hang, the drop-cap second-piece
// discount, the left-hanging verse number and punctuation, and the
// right-hanging punctuation and footnote mark, per
// original_source/line.c's line_recalculate_width. maxHangSpace bounds
// how far punctuation may hang into the right margin before it would
// collide with the cross-reference column.
func (l *Line) RecalculateWidth(reg *fontreg.Registry, maxHangSpace layout.Abs) {
	for i := range l.Pieces {
		l.Pieces[i].Width = l.Pieces[i].NaturalWidth
	}

	for i := range l.Pieces {
		p := &l.Pieces[i]
		if i == 0 || p.Font == nil || p.Font.Nickname != nicknameFootnoteMark {
			continue
		}
		prev := &l.Pieces[i-1]
		hangText := trailingLowPunctuation(prev.Text)
		if hangText == "" {
			continue
		}
		hangWidth := reg.TextWidth(prev.Font, hangText)
		prev.Width = prev.NaturalWidth - hangWidth
		if hangWidth > p.Width {
			p.Width = hangWidth
		}
	}

	// Discount a drop cap's width by whatever left-hangable material
	// (and any footnote mark) the line's second piece brings, since
	// that material tucks under the drop cap's overhang.
	if len(l.Pieces) > 1 && l.Pieces[0].Font != nil && l.Pieces[0].Font.LineCount > 1 {
		i := 1
		var discount layout.Abs
		if l.Pieces[i].Font != nil && l.Pieces[i].Font.Nickname == nicknameFootnoteMark {
			discount += l.Pieces[i].NaturalWidth
			i++
		}
		if i < len(l.Pieces) {
			discount += piece.LeadingHangWidth(l.Pieces[i].Text, l.Pieces[i].Font, reg)
		}
		l.Pieces[0].Width = l.Pieces[0].NaturalWidth - discount
	}

	l.LineWidthSoFar = 0
	for i := range l.Pieces {
		l.LineWidthSoFar += l.Pieces[i].Width
	}

	l.LeftHang = 0
	l.RightHang = 0
	if len(l.Pieces) == 0 {
		return
	}

	leftHangPiece := 0
	first := &l.Pieces[0]
	if first.Font != nil && first.Font.Nickname == nicknameVerseNumber {
		if vn, ok := parseVerseNumber(first.Text); ok && vn < 999 {
			l.LeftHang = first.Width
			leftHangPiece = 1
		}
	}
	if leftHangPiece < len(l.Pieces) {
		p := &l.Pieces[leftHangPiece]
		l.LeftHang += piece.LeadingHangWidth(p.Text, p.Font, reg)
	}

	rightHangPiece := len(l.Pieces) - 1
	for rightHangPiece >= 0 && l.Pieces[rightHangPiece].Text == " " {
		rightHangPiece--
	}

	var hangNoteWidth, hangWidth layout.Abs
	if rightHangPiece >= 0 {
		p := &l.Pieces[rightHangPiece]
		if p.Font != nil && p.Font.Nickname == nicknameFootnoteMark {
			hangNoteWidth = p.NaturalWidth
			l.RightHang = p.Width
			rightHangPiece--
		}
	}

	if rightHangPiece >= 0 && rightHangPiece < len(l.Pieces) {
		p := &l.Pieces[rightHangPiece]
		hangWidth = piece.TrailingHangWidth(p.Text, p.Font, reg)
		if hangWidth > 0 {
			hangWidth -= p.NaturalWidth - p.Width
			if hangWidth+hangNoteWidth <= maxHangSpace {
				l.RightHang = hangNoteWidth + hangWidth
			} else {
				l.RightHang = hangNoteWidth
			}
		}
	}

	l.LineWidthSoFar -= l.LeftHang + l.RightHang
}

// trailingLowPunctuation returns the longest trailing run of
// IsLowPunctuation characters in s (the text a footnote mark is
// allowed to hang over), or "" if s has no such run.
func trailingLowPunctuation(s string) string {
	o := len(s)
	for o > 0 {
		r := rune(s[o-1])
		if !piece.IsLowPunctuation(r) {
			break
		}
		o--
	}
	if o == len(s) {
		return ""
	}
	return s[o:]
}

// parseVerseNumber parses a piece's text as a verse number, tolerating
// any trailing punctuation a verse-number piece might carry.
func parseVerseNumber(s string) (int, bool) {
	digits := strings.TrimFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if digits == "" {
		return 0, false
	}
	n := 0
	for _, r := range digits {
		n = n*10 + int(r-'0')
		if n > 999 {
			return n, true
		}
	}
	return n, true
}
