// Package paragraph assembles pieces into lines and lines into
// paragraphs, tracking the style stack, poetry indentation, drop-cap
// margins and widow control described in spec §3 and §4.6.
package paragraph

import (
	"fmt"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/pieceline"
	"github.com/versetype/versetype/internal/piece"
	"github.com/versetype/versetype/layout"
)

// Paragraph is a committed run of lines sharing one indentation and
// flow context (spec §3). SourceBook/Chapter/Verse identify where in
// the token stream this paragraph began, for diagnostics and for the
// cross-reference table's anchor lookup.
type Paragraph struct {
	Lines []*pieceline.Line

	SourceBook    string
	SourceChapter int
	SourceVerse   int

	// NoIndent suppresses the first-line indent a body paragraph would
	// otherwise receive (used for text continuing after a block quote
	// or heading).
	NoIndent bool

	// FirstCrossrefLine is the index, within Lines, of the first line
	// that may carry a cross-reference entry in the margin.
	FirstCrossrefLine int
}

// Height sums every line's calculated height (paragraph_height).
func (p *Paragraph) Height(lineSpacing float64) layout.Abs {
	var total layout.Abs
	for _, l := range p.Lines {
		l.CalculateHeight(0, len(l.Pieces), lineSpacing)
		total += l.LineHeight
	}
	return total
}

// styleFrame is one entry on the style stack: the font in effect
// before a push, so pop can restore it.
type styleFrame struct {
	font *fontreg.Record
}

// styleSnapshot is a full copy of the style stack plus current font,
// used by StashStyle/FetchStyle to swap style context in and out (the
// generalised form of the fixed two-slot stash the body/footnote
// collection modes used to switch between).
type styleSnapshot struct {
	stack   []styleFrame
	current *fontreg.Record
}

const maxStyleStackDepth = 64

// Builder incrementally assembles paragraphs from append calls driven
// by the token interpreter (spec §4.6). It owns the style stack,
// poetry nesting level, drop-cap margin state and widow bookkeeping
// that used to live as module globals; every caller now threads a
// *Builder explicitly instead (spec §9).
type Builder struct {
	reg *fontreg.Registry

	pageWidth, leftMargin, rightMargin layout.Abs
	maxHangSpace                       layout.Abs
	lineSpacing                        float64

	paragraphs []*Paragraph
	current    *Paragraph
	currentLine *pieceline.Line

	styleStack  []styleFrame
	currentFont *fontreg.Record
	stash       []styleSnapshot

	poemLevel          int
	poemSubsequentLine bool

	dropCharLeftMargin      layout.Abs
	dropCharMarginLineCount int

	lineUID int
}

// NewBuilder creates a builder with font set to defaultFont and no
// paragraph in progress.
func NewBuilder(reg *fontreg.Registry, defaultFont *fontreg.Record, pageWidth, leftMargin, rightMargin, maxHangSpace layout.Abs, lineSpacing float64) *Builder {
	return &Builder{
		reg:          reg,
		pageWidth:    pageWidth,
		leftMargin:   leftMargin,
		rightMargin:  rightMargin,
		maxHangSpace: maxHangSpace,
		lineSpacing:  lineSpacing,
		currentFont:  defaultFont,
	}
}

// Paragraphs returns every paragraph flushed so far.
func (b *Builder) Paragraphs() []*Paragraph { return b.paragraphs }

// CurrentFont is the font style in effect at the top of the stack.
func (b *Builder) CurrentFont() *fontreg.Record { return b.currentFont }

// DropCharLeftMargin is the drop-cap left margin currently in effect
// (zero outside a drop cap's span of lines), the same value line
// breaking and line-metrics costing need to reproduce the narrower
// available width a drop cap's lines are laid out against.
func (b *Builder) DropCharLeftMargin() layout.Abs { return b.dropCharLeftMargin }

// CurrentLineUID returns the UID of the line in progress, starting
// one first if none is open yet. The footnote manager anchors a
// footnote to this value at the moment its mark is inserted into body
// text, so the footnote can still be located after the body
// paragraph is re-broken into different physical lines.
func (b *Builder) CurrentLineUID() int {
	if b.currentLine == nil {
		b.setupNextLine()
	}
	return b.currentLine.LineUID
}

// PushStyle pushes the current font and switches to font, starting a
// new line first if the requested alignment differs from the line in
// progress (paragraph_push_style).
func (b *Builder) PushStyle(alignment layout.Alignment, font *fontreg.Record) error {
	if b.currentLine == nil || (len(b.currentLine.Pieces) > 0 &&
		b.currentLine.Alignment != alignment && b.currentLine.Alignment != layout.AlignNone) {
		b.setupNextLine()
	}
	b.currentLine.Alignment = alignment

	if len(b.styleStack) >= maxStyleStackDepth {
		return fmt.Errorf("paragraph: style stack overflow (depth %d)", maxStyleStackDepth)
	}
	b.styleStack = append(b.styleStack, styleFrame{font: b.currentFont})
	b.currentFont = font
	return nil
}

// PopStyle restores the font beneath the top of the stack
// (paragraph_pop_style). When the popped font is a drop-cap font
// (LineCount > 1), the current line's last piece absorbs the hang
// space its following text is entitled to, matching the original's
// post-dropchar margin widening.
func (b *Builder) PopStyle() error {
	if len(b.styleStack) == 0 {
		return fmt.Errorf("paragraph: style stack underflow")
	}
	if b.currentFont != nil && b.currentFont.LineCount > 1 && b.currentLine != nil && len(b.currentLine.Pieces) > 0 {
		last := &b.currentLine.Pieces[len(b.currentLine.Pieces)-1]
		last.NaturalWidth += b.maxHangSpace
	}
	top := b.styleStack[len(b.styleStack)-1]
	b.styleStack = b.styleStack[:len(b.styleStack)-1]
	b.currentFont = top.font
	return nil
}

// StashStyle saves the current style stack and font onto an internal
// stash, for later restoration by FetchStyle, so styling can be
// suspended and later resumed exactly as it was. The engine does not
// call it: footnote text is collected in a Builder of its own.
func (b *Builder) StashStyle() {
	snap := styleSnapshot{current: b.currentFont}
	snap.stack = append(snap.stack, b.styleStack...)
	b.stash = append(b.stash, snap)
}

// FetchStyle restores the most recently stashed style context,
// falling back to blackletterFont at stack depth zero if the stash is
// empty, mirroring the original's "no enclosing style" default.
func (b *Builder) FetchStyle(blackletterFont *fontreg.Record) {
	if len(b.stash) == 0 {
		b.styleStack = nil
		b.currentFont = blackletterFont
		return
	}
	snap := b.stash[len(b.stash)-1]
	b.stash = b.stash[:len(b.stash)-1]
	b.styleStack = append([]styleFrame(nil), snap.stack...)
	b.currentFont = snap.current
	if len(b.styleStack) == 0 && b.currentFont == nil {
		b.currentFont = blackletterFont
	}
}

// ClearStyleStack discards the style stack entirely and resets to
// blackletterFont (paragraph_clear_style_stack), used at chapter
// boundaries.
func (b *Builder) ClearStyleStack(blackletterFont *fontreg.Record) {
	b.styleStack = nil
	b.currentFont = blackletterFont
}

// SetPoemLevel sets the poetry nesting depth applied to subsequently
// created lines; 0 means prose.
func (b *Builder) SetPoemLevel(level int) {
	b.poemLevel = level
	b.poemSubsequentLine = false
}

// SetDropCharMargin requests that the next n lines created after this
// call receive the given left margin, for a multi-line drop cap; a line
// already in progress keeps its margin.
func (b *Builder) SetDropCharMargin(margin layout.Abs, lines int) {
	b.dropCharLeftMargin = margin
	b.dropCharMarginLineCount = lines
}

// SetWidowCounter ties the current line to the one following it, so a
// page break cannot separate them (paragraph_set_widow_counter).
func (b *Builder) SetWidowCounter() {
	if b.currentLine == nil {
		b.setupNextLine()
	}
	b.currentLine.TiedToNextLine = true
}

// setupNextLine flushes any in-progress line into the paragraph and
// allocates a fresh one, applying drop-cap and poetry margins
// (paragraph_setup_next_line).
func (b *Builder) setupNextLine() {
	if b.currentLine != nil {
		if len(b.currentLine.Pieces) > 0 || b.currentLine.LineHeight != 0 {
			b.appendCurrentLine()
		} else {
			return
		}
	}

	l := &pieceline.Line{LineUID: b.lineUID}
	b.lineUID++

	if b.current != nil && len(b.current.Lines) > 0 {
		l.Alignment = b.current.Lines[len(b.current.Lines)-1].Alignment
	} else {
		l.Alignment = layout.AlignJustified
	}
	l.MaxLineWidth = b.pageWidth - b.leftMargin - b.rightMargin

	if b.dropCharMarginLineCount > 0 {
		l.MaxLineWidth = b.pageWidth - b.leftMargin - b.rightMargin - b.dropCharLeftMargin
		l.LeftMargin = b.dropCharLeftMargin
		b.dropCharMarginLineCount--
		if b.dropCharMarginLineCount > 0 {
			l.TiedToNextLine = true
		}
	}

	if b.poemLevel > 0 {
		l.ApplyPoetryMargin(b.poemLevel, b.poemSubsequentLine, 0, 0, 0, b.pageWidth, b.leftMargin, b.rightMargin)
		b.poemSubsequentLine = true
	}

	b.currentLine = l
}

// appendCurrentLine commits the line in progress to the current
// paragraph (paragraph_append_current_line), starting a paragraph if
// none is open yet.
func (b *Builder) appendCurrentLine() {
	if b.current == nil {
		b.current = &Paragraph{}
	}
	b.current.Lines = append(b.current.Lines, b.currentLine)
	b.currentLine = nil
}

// AppendCharacters appends one indivisible piece of already-sized
// text to the line in progress (paragraph_append_characters). font
// carries both the face and the size this run renders at (emulated
// small caps render a sub-run at a different size than the
// surrounding text, under the same nickname).
func (b *Builder) AppendCharacters(text string, font *fontreg.Record, baselineDelta layout.Abs, forceSpaceAtStartOfLine, nobreak bool, tokenNumber int) {
	if b.currentLine == nil {
		b.setupNextLine()
	}
	if text == " " && len(b.currentLine.Pieces) == 0 && !forceSpaceAtStartOfLine {
		return
	}

	p := piece.New(text, font, b.reg)
	p.BaselineDelta = baselineDelta
	p.Nobreak = nobreak
	p.TokenNumber = tokenNumber
	b.currentLine.Pieces = append(b.currentLine.Pieces, p)
	b.currentLine.PoemLevel = b.poemLevel
}

// AppendText appends a run of text in the current font, splitting it
// into alternating-case sub-pieces when the font requests emulated
// small caps (paragraph_append_text): lowercase runs are rendered
// upper-cased at SmallCapsScale of the font's size, and every other
// run renders at the font's ordinary size, with an internal
// case-change never treated as a break opportunity.
func (b *Builder) AppendText(text string, baselineDelta layout.Abs, forceSpaceAtStartOfLine, nobreak bool, tokenNumber int) {
	font := b.currentFont
	if font == nil || !font.SmallCaps {
		b.AppendCharacters(text, font, baselineDelta, forceSpaceAtStartOfLine, nobreak, tokenNumber)
		return
	}

	runs := splitCaseRuns(text)
	for i, run := range runs {
		nb := nobreak
		if i < len(runs)-1 {
			nb = true
		}
		if run.lower {
			b.AppendCharacters(upper(run.text), font.WithSize(font.Size*layout.Abs(font.SmallCapsScale)), baselineDelta, forceSpaceAtStartOfLine, nb, tokenNumber)
		} else {
			b.AppendCharacters(run.text, font, baselineDelta, forceSpaceAtStartOfLine, nb, tokenNumber)
		}
	}
}

type caseRun struct {
	text  string
	lower bool
}

// splitCaseRuns partitions s into maximal runs of ASCII lowercase
// letters versus everything else, matching the case-change detection
// in paragraph_append_text.
func splitCaseRuns(s string) []caseRun {
	var runs []caseRun
	start := 0
	curLower := isASCIILower(firstByte(s))
	for i := 1; i <= len(s); i++ {
		atEnd := i == len(s)
		lower := !atEnd && isASCIILower(s[i])
		if atEnd || lower != curLower {
			runs = append(runs, caseRun{text: s[start:i], lower: curLower})
			start = i
			curLower = lower
		}
	}
	return runs
}

func firstByte(s string) byte {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

func isASCIILower(b byte) bool { return b >= 'a' && b <= 'z' }

func upper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// AppendSpace appends an ordinary elastic space, unless the line's
// sole piece so far is a drop-cap's chapter-number companion, which
// never takes a following space (paragraph_append_space).
func (b *Builder) AppendSpace(forceSpaceAtStartOfLine, nobreak bool, tokenNumber int) {
	if b.currentLine != nil && len(b.currentLine.Pieces) == 1 &&
		b.currentLine.Pieces[0].Font != nil && b.currentLine.Pieces[0].Font.Nickname == "chapternum" {
		return
	}
	b.AppendCharacters(" ", b.currentFont, 0, forceSpaceAtStartOfLine, nobreak, tokenNumber)
}

// AppendThinSpace appends a non-elastic half-width space
// (paragraph_append_thinspace): an ordinary space is appended and
// then its width is halved and its elasticity cleared, so it never
// grows during justification. The line breaker treats it like any
// other piece as a break point.
func (b *Builder) AppendThinSpace(forceSpaceAtStartOfLine, nobreak bool, tokenNumber int) {
	before := 0
	if b.currentLine != nil {
		before = len(b.currentLine.Pieces)
	}
	b.AppendCharacters(" ", b.currentFont, 0, forceSpaceAtStartOfLine, nobreak, tokenNumber)
	if b.currentLine != nil && len(b.currentLine.Pieces) > before {
		last := &b.currentLine.Pieces[len(b.currentLine.Pieces)-1]
		last.Width /= 2
		last.NaturalWidth /= 2
		last.Elastic = false
	}
}

// InsertVSpace appends a zero-piece line whose LineHeight is the
// requested vertical gap, optionally tied to the following line
// (paragraph_insert_vspace), then immediately flushes it.
func (b *Builder) InsertVSpace(points layout.Abs, tied bool) {
	b.setupNextLine()
	b.currentLine.LineHeight = points
	b.currentLine.TiedToNextLine = tied
	b.appendCurrentLine()
}

// SetLastPieceCrossrefKey attaches key to the piece most recently
// appended to the line in progress, so floats.Registry.RegisterLine
// can later find any cross-reference content registered under it
// (verse-number pieces carry this; every other piece leaves it
// empty).
func (b *Builder) SetLastPieceCrossrefKey(key string) {
	if b.currentLine == nil || len(b.currentLine.Pieces) == 0 {
		return
	}
	b.currentLine.Pieces[len(b.currentLine.Pieces)-1].CrossrefKey = key
}

// Flush closes the line and paragraph in progress (if non-empty) and
// returns the completed paragraph, or nil if there was nothing to
// flush (paragraph_flush).
func (b *Builder) Flush() *Paragraph {
	if b.currentLine != nil && (len(b.currentLine.Pieces) > 0 || b.currentLine.LineHeight != 0) {
		b.appendCurrentLine()
	}
	p := b.current
	b.current = nil
	if p == nil || len(p.Lines) == 0 {
		return nil
	}
	for _, l := range p.Lines {
		l.RecalculateWidth(b.reg, b.maxHangSpace)
	}
	b.paragraphs = append(b.paragraphs, p)
	return p
}
