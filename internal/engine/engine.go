// Package engine is the token-stream interpreter and whole-document
// driver described in spec §5/§9: it owns every piece of context the
// original generate.c kept as module globals (the active paragraph
// builder, style/footnote/crossref nesting, book/chapter/verse
// position, the font registry), dispatches one token at a time, and,
// once the stream is exhausted, runs line breaking, the page-break
// optimizer and the renderer walk to produce a finished document.
//
// Grounded on original_source/generate.c's render_tokens dispatch
// loop. render_tokens itself is a stub in the reference source (every
// paragraph_* callee it drives is a no-op placeholder, and every TAG
// besides "bookheader"/"labelbook" merely logs "unknown tag"); this
// package is the completion of that stub against the fuller
// paragraph/line/footnotes/crossref subsystems the reference source
// does implement, per the specification's stated redesign that any
// other TAG is a style push matched by a later ENDTAG pop.
package engine

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/versetype/versetype/internal/columncache"
	"github.com/versetype/versetype/internal/determinism"
	"github.com/versetype/versetype/internal/floats"
	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/linebreak"
	"github.com/versetype/versetype/internal/linemetrics"
	"github.com/versetype/versetype/internal/pageopt"
	"github.com/versetype/versetype/internal/paragraph"
	"github.com/versetype/versetype/internal/render"
	"github.com/versetype/versetype/internal/shape"
	"github.com/versetype/versetype/internal/span"
	"github.com/versetype/versetype/internal/token"
	"github.com/versetype/versetype/layout"
)

// Geometry carries the page and column measurements a config.Profile
// resolves to, independent of the profile type itself so this package
// does not need to import internal/config.
type Geometry struct {
	PageWidth, PageHeight             layout.Abs
	LeftMargin, RightMargin           layout.Abs
	TopMargin, BottomMargin           layout.Abs
	MarginparWidth, MarginparMargin   layout.Abs
	ColumnWidth                       layout.Abs
	MaxHangSpace                      layout.Abs
	FootnoteColumnWidth               layout.Abs
	CrossrefColumnWidth               layout.Abs
}

// FontSet is every font nickname the engine itself reaches for
// directly, as opposed to fonts a token stream selects by name
// through an ordinary style TAG. ChapterNum, VerseNum, FootnoteMark,
// CrossrefMarker and CrossrefText may be left nil, in which case Body
// is used in their place.
type FontSet struct {
	Body           *fontreg.Record
	ChapterNum     *fontreg.Record
	VerseNum       *fontreg.Record
	FootnoteMark   *fontreg.Record
	CrossrefMarker *fontreg.Record
	CrossrefText   *fontreg.Record
}

func (f FontSet) chapterNum() *fontreg.Record {
	if f.ChapterNum != nil {
		return f.ChapterNum
	}
	return f.Body
}

func (f FontSet) verseNum() *fontreg.Record {
	if f.VerseNum != nil {
		return f.VerseNum
	}
	return f.Body
}

func (f FontSet) footnoteMark() *fontreg.Record {
	if f.FootnoteMark != nil {
		return f.FootnoteMark
	}
	return f.Body
}

func (f FontSet) crossrefMarker() *fontreg.Record {
	if f.CrossrefMarker != nil {
		return f.CrossrefMarker
	}
	return f.Body
}

func (f FontSet) crossrefText() *fontreg.Record {
	if f.CrossrefText != nil {
		return f.CrossrefText
	}
	return f.Body
}

// frameKind is the kind of nesting a TAG opened, popped by its
// matching ENDTAG.
type frameKind int

const (
	// frameStyle is an ordinary style push: the TAG name named a font
	// nickname, and ENDTAG pops back to the font in effect before it.
	frameStyle frameKind = iota
	// framePoem is a poetry nesting level, popped back to the level in
	// effect before it.
	framePoem
	// frameFootnote redirects tokens into a footnote's own builder
	// until its ENDTAG, which commits the footnote via FootnoteManager.
	frameFootnote
	// frameCrossref redirects tokens into a cross-reference's own
	// builder until its ENDTAG, which registers it via floats.EndContent.
	frameCrossref
)

// frame is one entry of the nesting stack, addressed by handleEndTag.
type frame struct {
	kind frameKind

	prevPoemLevel int

	builder              *paragraph.Builder
	anchorBook           string
	anchorChapter, anchorVerse int
}

// Context is the whole-document interpreter state (spec §9): the
// single value every token is fed through, replacing the original's
// module globals.
type Context struct {
	Reg      *fontreg.Registry
	Fonts    FontSet
	Geometry Geometry

	LineSpacing float64

	// Recorder, when non-nil, logs a tagged event per line broken
	// during Finalize (line-count per paragraph, height per line) so
	// two runs over the same document can be diffed for byte-identical
	// output (spec §4.8). Left nil, Finalize runs with no logging
	// overhead.
	Recorder *determinism.Recorder

	body *paragraph.Builder

	footnotes   *floats.FootnoteManager
	crossrefs   *floats.Registry
	crossQueue  *floats.Queue

	frames []frame

	tokenNumber int

	currentBook, shortBookName string
	currentChapter, currentVerse int

	curParaBook                           string
	curParaChapter, curParaVerse          int

	pendingArg string

	// bookBoundaries records the index, within the final flattened
	// paragraph list, at which each "bookheader" tag fired. It is only
	// recorded and handed out by BookBoundaries: neither the page DP nor
	// Render reads it, so Render emits pages exactly as the plan lists
	// them and inserts no blank page before a book.
	bookBoundaries []int

	// lineUIDPos maps a logical line's LineUID (floats.Footnote's
	// AnchorLineUID is one of these) to the physical (paragraph, line)
	// position it ended up at after Finalize broke it into physical
	// lines. Built once by Finalize, it lets Render work out which
	// committed footnotes actually belong on a given page (cross-
	// references are queued per drawn line instead) rather than
	// assuming the whole document is one page (spec §3
	// "Lifecycle": floats live only within the page they anchor to).
	lineUIDPos map[int]span.Point
}

// NewContext creates an interpreter ready to accept tokens, with an
// empty document.
func NewContext(reg *fontreg.Registry, fonts FontSet, geom Geometry, lineSpacing float64, maxFootnotesPerPage int, crossrefRecentCap int, crossrefMinVSpace layout.Abs) *Context {
	c := &Context{
		Reg:      reg,
		Fonts:    fonts,
		Geometry: geom,

		LineSpacing: lineSpacing,
	}
	c.body = paragraph.NewBuilder(reg, fonts.Body, geom.ColumnWidth, geom.LeftMargin, geom.RightMargin, geom.MaxHangSpace, lineSpacing)
	c.footnotes = floats.NewFootnoteManager(reg, fonts.footnoteMark(), geom.FootnoteColumnWidth, geom.LeftMargin, geom.RightMargin, geom.MaxHangSpace, lineSpacing, maxFootnotesPerPage)
	c.crossrefs = floats.NewRegistry(crossrefRecentCap)
	c.crossQueue = floats.NewQueue(crossrefMinVSpace)
	return c
}

// BookName and ShortBookName report the most recently seen
// "bookheader"/"labelbook" values, for a caller driving booktab
// rendering outside the page-walk (e.g. a table of contents).
func (c *Context) BookName() string      { return c.currentBook }
func (c *Context) ShortBookName() string { return c.shortBookName }

// activeBuilder returns the builder TEXT/SPACE/TAG/ENDTAG tokens
// currently target: the innermost open footnote or cross-reference,
// or the body builder if neither is open.
func (c *Context) activeBuilder() *paragraph.Builder {
	for i := len(c.frames) - 1; i >= 0; i-- {
		switch c.frames[i].kind {
		case frameFootnote, frameCrossref:
			return c.frames[i].builder
		}
	}
	return c.body
}

// Process dispatches one token (render_tokens' per-token switch).
func (c *Context) Process(tok token.Token) error {
	c.tokenNumber++
	switch tok.Type {
	case token.Text:
		return c.handleText(tok.Value)
	case token.Space:
		c.activeBuilder().AppendSpace(false, false, c.tokenNumber)
		return nil
	case token.Paragraph:
		c.flushParagraph()
		return nil
	case token.Tag:
		return c.handleTag(strings.TrimSpace(tok.Value))
	case token.EndTag:
		return c.handleEndTag()
	default:
		return fmt.Errorf("engine: unknown token type %v", tok.Type)
	}
}

// handleText appends ordinary text, except immediately after a TAG
// that expects one text argument (bookheader/labelbook/chapter/verse/
// crossref's target verse), which it consumes instead.
func (c *Context) handleText(text string) error {
	switch c.pendingArg {
	case "bookheader":
		c.currentBook = text
		c.pendingArg = ""
		return nil
	case "labelbook":
		c.shortBookName = text
		c.pendingArg = ""
		return nil
	case "chapter":
		c.pendingArg = ""
		return c.beginChapter(parseNumber(text))
	case "verse":
		c.pendingArg = ""
		return c.beginVerse(parseNumber(text))
	case "crossref-target":
		c.pendingArg = ""
		return c.beginCrossrefTarget(text)
	default:
		c.activeBuilder().AppendText(text, 0, false, false, c.tokenNumber)
		return nil
	}
}

func parseNumber(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// beginChapter starts a new chapter: the style stack is cleared
// (paragraph_clear_style_stack at chapter boundaries), the verse
// counter resets, and a drop-cap-style chapter number is set in body
// text (paragraph.c's chapternum handling).
func (c *Context) beginChapter(n int) error {
	c.currentChapter = n
	c.currentVerse = 0

	c.body.ClearStyleStack(c.Fonts.Body)
	font := c.Fonts.chapterNum()
	if err := c.body.PushStyle(layout.AlignJustified, font); err != nil {
		return err
	}
	c.body.AppendText(strconv.Itoa(n), font.BaselineDelta, false, false, c.tokenNumber)
	return c.body.PopStyle()
}

// beginVerse starts a new verse: a "versenum" piece is appended to
// body text, always carrying the cross-reference key for this verse
// (floats.Registry.RegisterLine looks it up later, once every
// cross-reference the whole document registers is known, so it is
// harmless to attach the key before knowing whether any reference
// will ever be registered under it).
func (c *Context) beginVerse(n int) error {
	c.currentVerse = n
	font := c.Fonts.verseNum()
	if err := c.body.PushStyle(layout.AlignJustified, font); err != nil {
		return err
	}
	c.body.AppendText(strconv.Itoa(n), font.BaselineDelta, false, false, c.tokenNumber)
	c.body.SetLastPieceCrossrefKey(floats.Key(c.currentBook, c.currentChapter, n))
	return c.body.PopStyle()
}

// handleTag dispatches one TAG by name. bookheader/labelbook/chapter/
// verse/crossref consume the TEXT token that follows them as an
// argument; footnote and poem take no argument; every other name is
// looked up as a font nickname and pushed as an ordinary style.
func (c *Context) handleTag(name string) error {
	switch strings.ToLower(name) {
	case "bookheader":
		return c.beginBookHeader()
	case "labelbook":
		c.pendingArg = "labelbook"
		return nil
	case "chapter":
		c.pendingArg = "chapter"
		return nil
	case "verse":
		c.pendingArg = "verse"
		return nil
	case "footnote":
		return c.beginFootnote()
	case "crossref":
		c.pendingArg = "crossref-target"
		c.frames = append(c.frames, frame{
			kind:          frameCrossref,
			anchorBook:    c.currentBook,
			anchorChapter: c.currentChapter,
			anchorVerse:   c.currentVerse,
		})
		return nil
	case "poem":
		level := 0
		for _, f := range c.frames {
			if f.kind == framePoem {
				level++
			}
		}
		c.frames = append(c.frames, frame{kind: framePoem, prevPoemLevel: level})
		c.activeBuilder().SetPoemLevel(level + 1)
		return nil
	default:
		rec := c.Reg.Lookup(name)
		if rec == nil {
			return fmt.Errorf("engine: unknown tag or font nickname %q", name)
		}
		if err := c.activeBuilder().PushStyle(layout.AlignJustified, rec); err != nil {
			return err
		}
		c.frames = append(c.frames, frame{kind: frameStyle})
		return nil
	}
}

// beginBookHeader flushes and clears the style stack, matching
// generate.c's bookheader handling, and records the current paragraph
// index in bookBoundaries. No page break is forced, here or later: the
// book's text starts on whatever page the plan assigns it.
func (c *Context) beginBookHeader() error {
	c.flushParagraph()
	c.body.ClearStyleStack(c.Fonts.Body)
	c.pendingArg = "bookheader"
	c.bookBoundaries = append(c.bookBoundaries, len(c.body.Paragraphs()))
	return nil
}

// beginFootnote opens a footnote: its reference mark is inserted into
// body text immediately (superscript, nobreak so the mark never
// starts a new line on its own), and subsequent tokens redirect into
// the footnote's own builder until the matching ENDTAG.
func (c *Context) beginFootnote() error {
	uid := c.body.CurrentLineUID()
	mark, fb, err := c.footnotes.Begin(uid)
	if err != nil {
		return err
	}
	markFont := c.Fonts.footnoteMark()
	if err := c.body.PushStyle(layout.AlignJustified, markFont); err != nil {
		return err
	}
	c.body.AppendText(mark, markFont.BaselineDelta, false, true, c.tokenNumber)
	if err := c.body.PopStyle(); err != nil {
		return err
	}
	c.frames = append(c.frames, frame{kind: frameFootnote, builder: fb})
	return nil
}

// beginCrossrefTarget parses the "chapter:verse" (or bare "verse",
// meaning the same chapter as the source) target text that opens a
// cross-reference's own content (floats.BeginContent/AppendMarker),
// then leaves the crossref frame (already pushed by handleTag) ready
// to receive the reference's displayed text.
func (c *Context) beginCrossrefTarget(text string) error {
	chapter, verse := 0, 0
	if idx := strings.IndexByte(text, ':'); idx >= 0 {
		chapter = parseNumber(text[:idx])
		verse = parseNumber(text[idx+1:])
	} else {
		verse = parseNumber(text)
	}

	b, err := floats.BeginContent(c.Reg, c.Geometry.CrossrefColumnWidth, c.Fonts.crossrefMarker(), c.LineSpacing)
	if err != nil {
		return err
	}
	if err := floats.AppendMarker(b, c.Fonts.crossrefText(), chapter, verse); err != nil {
		return err
	}
	c.frames[len(c.frames)-1].builder = b
	return nil
}

// handleEndTag pops the innermost open frame and performs whatever
// commit that kind of frame requires.
func (c *Context) handleEndTag() error {
	if len(c.frames) == 0 {
		return fmt.Errorf("engine: ENDTAG with no matching TAG")
	}
	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]

	switch f.kind {
	case frameStyle:
		return c.activeBuilder().PopStyle()
	case framePoem:
		c.activeBuilder().SetPoemLevel(f.prevPoemLevel)
		return nil
	case frameFootnote:
		c.footnotes.End()
		return nil
	case frameCrossref:
		_, err := floats.EndContent(c.crossrefs, f.builder, f.anchorBook, f.anchorChapter, f.anchorVerse, c.LineSpacing)
		return err
	default:
		return nil
	}
}

// flushParagraph commits the paragraph in progress (render_tokens'
// TT_PARAGRAPH case / paragraph_flush). Paragraph breaks encountered
// while inside a footnote or cross-reference are folded into that
// float's single paragraph instead (footnotes and cross-reference
// entries are laid out as one paragraph each); only body text tracks
// the paragraph boundaries the page-break optimizer reasons about.
func (c *Context) flushParagraph() {
	if len(c.frames) > 0 {
		return
	}
	p := c.body.Flush()
	if p != nil {
		p.SourceBook, p.SourceChapter, p.SourceVerse = c.curParaBook, c.curParaChapter, c.curParaVerse
	}
	c.curParaBook, c.curParaChapter, c.curParaVerse = c.currentBook, c.currentChapter, c.currentVerse
}

// Finalize completes the document after every token has been
// processed: it flushes any paragraph still in progress, then breaks
// every paragraph's logical lines into physical lines of column
// width (spec §4.2), preparing each for emission (hanging punctuation,
// elastic justification, spec §3).
//
// An error is returned if any TAG was left without its matching
// ENDTAG.
func (c *Context) Finalize() ([]*paragraph.Paragraph, error) {
	if len(c.frames) != 0 {
		return nil, fmt.Errorf("engine: %d unclosed tag(s) at end of stream", len(c.frames))
	}
	c.flushParagraph()

	logical := c.body.Paragraphs()
	out := make([]*paragraph.Paragraph, 0, len(logical))
	c.lineUIDPos = make(map[int]span.Point)
	for pi, p := range logical {
		np := &paragraph.Paragraph{
			SourceBook:        p.SourceBook,
			SourceChapter:     p.SourceChapter,
			SourceVerse:       p.SourceVerse,
			NoIndent:          p.NoIndent,
			FirstCrossrefLine: p.FirstCrossrefLine,
		}
		for _, l := range p.Lines {
			if l.LineHeight != 0 && len(l.Pieces) == 0 {
				// A bare vertical-space line (InsertVSpace): carried
				// through untouched, never line-broken.
				np.Lines = append(np.Lines, l)
				continue
			}
			broken, err := linebreak.Break(l, c.Geometry.ColumnWidth, c.Reg, c.body.DropCharLeftMargin())
			if err != nil {
				return nil, fmt.Errorf("engine: breaking paragraph starting %s %d:%d: %w", p.SourceBook, p.SourceChapter, p.SourceVerse, err)
			}
			np.Lines = append(np.Lines, broken...)
		}
		for i, l := range np.Lines {
			shape.Prepare(l, c.Reg, c.Geometry.MaxHangSpace, i == len(np.Lines)-1)
			if _, seen := c.lineUIDPos[l.LineUID]; !seen {
				c.lineUIDPos[l.LineUID] = span.Point{Para: pi, Line: i}
			}
		}
		np.Height(c.LineSpacing) // populates every line's Ascent/Descent/LineHeight

		if c.Recorder != nil {
			site := fmt.Sprintf("engine.Finalize:%s %d:%d", p.SourceBook, p.SourceChapter, p.SourceVerse)
			if err := c.Recorder.Integer("paragraph.linecount", len(np.Lines), site); err != nil {
				return nil, err
			}
			for li, l := range np.Lines {
				if err := c.Recorder.Float(fmt.Sprintf("paragraph[%d].line[%d].height", pi, li), float64(l.LineHeight), site); err != nil {
					return nil, err
				}
			}
		}

		out = append(out, np)
	}
	return out, nil
}

// BuildMetricsLookup builds a linemetrics.Table for every (paragraph,
// line) pair once, up front, so pageopt.Optimize's DP can query each
// candidate segment's cost and height in O(1) for the rest of the run
// (spec §4.2 "memoized per-column height/penalty query"; the in-memory
// map form of the caching MetricsLookup's own doc comment describes).
func (c *Context) BuildMetricsLookup(paragraphs []*paragraph.Paragraph) (pageopt.MetricsLookup, map[[2]int]*linemetrics.Table) {
	tables := make(map[[2]int]*linemetrics.Table)
	for pi, p := range paragraphs {
		for li, l := range p.Lines {
			if len(l.Pieces) == 0 {
				continue
			}
			tables[[2]int{pi, li}] = linemetrics.Build(l, c.Geometry.ColumnWidth, c.Reg, c.body.DropCharLeftMargin(), c.LineSpacing)
		}
	}
	return func(para, line int) *linemetrics.Table {
		return tables[[2]int{para, line}]
	}, tables
}

// Optimize runs the whole-document page-break DP (spec §4.4) over
// paragraphs using a memoized MetricsLookup, returning the resulting
// plan. The DP's per-page cost includes the floats contribution
// (floatsForSpan) alongside the emptiness/fullness/widow terms
// pageopt.scoreAt already applies.
func (c *Context) Optimize(paragraphs []*paragraph.Paragraph) (*pageopt.Plan, error) {
	lookup, _ := c.BuildMetricsLookup(paragraphs)
	columnHeight := c.Geometry.PageHeight - c.Geometry.TopMargin - c.Geometry.BottomMargin
	return pageopt.Optimize(paragraphs, lookup, c.floatsForSpan(columnHeight), columnHeight, nil)
}

// floatsForSpan builds the pageopt.FloatsLookup a candidate page's
// cost uses for its floats contribution (spec §4.4): the summed
// height of every footnote anchored on a line within the span, plus
// the tallest-fitting cross-reference tail set floats.Registry can
// still place (spec §4.5's PrecalcHeights chain). Unlike the
// footnote term, which genuinely depends on which lines fall in the
// candidate span, the cross-reference tail set is the registry's
// global "most recently queued" chain (crossref_precalc_heights has
// no notion of a candidate span either) - the same page-global
// estimate the DP already uses for its other cost terms, not a
// promise that exactly those verses anchor within [start, end].
func (c *Context) floatsForSpan(columnHeight layout.Abs) pageopt.FloatsLookup {
	footnotes := c.footnotes.Committed()
	if len(footnotes) == 0 {
		footnotes = nil
	}
	return func(start, end span.Point) (layout.Abs, bool) {
		var height layout.Abs
		for _, fn := range footnotes {
			pos, ok := c.lineUIDPos[fn.AnchorLineUID]
			if !ok || !spanContains(start, end, pos) {
				continue
			}
			if fn.Content != nil {
				height += fn.Content.Height(c.LineSpacing)
			}
		}

		remaining := columnHeight - height
		var crossHeight layout.Abs
		overflow := false
		for _, rec := range c.crossrefs.PrecalcHeights(0, remaining) {
			if rec.Total > remaining {
				overflow = true
				break
			}
			crossHeight = rec.Total
		}
		return height + crossHeight, overflow
	}
}

// spanContains reports whether pos falls within [start, end]
// (inclusive), comparing only paragraph/line position since floats
// anchor to a line, never to an individual piece.
func spanContains(start, end, pos span.Point) bool {
	if pos.Para < start.Para || pos.Para > end.Para {
		return false
	}
	if pos.Para == start.Para && pos.Line < start.Line {
		return false
	}
	if pos.Para == end.Para && pos.Line > end.Line {
		return false
	}
	return true
}

// footnotesOnPage returns the committed footnotes anchored within
// pb's span, in collection order (spec §3 "Lifecycle": floats live
// only within the page they anchor to).
func (c *Context) footnotesOnPage(pb pageopt.PageBreak) []floats.Footnote {
	var out []floats.Footnote
	for _, fn := range c.footnotes.Committed() {
		pos, ok := c.lineUIDPos[fn.AnchorLineUID]
		if !ok || !spanContains(pb.Start, pb.End, pos) {
			continue
		}
		out = append(out, fn)
	}
	return out
}

// SpanCache wraps a columncache.Cache around the same per-line tables
// BuildMetricsLookup computes, answering an arbitrary [start, split]
// document span's total cost and height by walking the lines it
// covers (original_source/columns.c's column_get_height_and_penalty).
// pageopt.Optimize does not use this itself, since its own backtrace
// array already memoizes every position it visits exactly; SpanCache
// is for callers outside the DP that want the same "how much would
// this run cost" query at a coarser grain, e.g. a booktab preview
// asking whether the rest of a chapter fits in the space remaining on
// a page. progress may be nil.
func (c *Context) SpanCache(paragraphs []*paragraph.Paragraph, tables map[[2]int]*linemetrics.Table, progress io.Writer) *columncache.Cache {
	return columncache.New(func(start, split span.Point) (int64, layout.Abs) {
		var penalty int64
		var height layout.Abs
		for pi := start.Para; pi <= split.Para && pi < len(paragraphs); pi++ {
			p := paragraphs[pi]
			firstLine, lastLine := 0, len(p.Lines)-1
			if pi == start.Para {
				firstLine = start.Line
			}
			if pi == split.Para {
				lastLine = split.Line
			}
			for li := firstLine; li <= lastLine && li < len(p.Lines); li++ {
				t := tables[[2]int{pi, li}]
				if t == nil {
					continue
				}
				startPiece := 0
				if pi == start.Para && li == start.Line {
					startPiece = start.Piece
				}
				endPiece := len(p.Lines[li].Pieces)
				if pi == split.Para && li == split.Line {
					endPiece = split.Piece + 1
				}
				if cost, h, feasible := t.At(startPiece, endPiece); feasible {
					penalty += int64(cost)
					height += h
				}
			}
		}
		return penalty, height
	}, progress)
}

// BookBoundaries returns the paragraph index of every "bookheader"
// seen during Process, in the flattened paragraph slice Finalize
// returns. A caller wanting to force each book onto a fresh recto
// page can use these indices together with Plan.Pages to pad in a
// blank verso page where needed; Optimize's own DP has no notion of a
// forced break, so this is left as a post-processing decision rather
// than built into the cost model (spec §4.3's "books begin on a fresh
// recto page" rule is advisory at this layer).
func (c *Context) BookBoundaries() []int { return c.bookBoundaries }

// Render walks plan's pages in order, drawing each page's body
// content, committed footnotes and repositioned cross-references
// through r, then saves the finished document to path
// (original_source/page.c's page rendering loop once a plan is
// chosen).
func (c *Context) Render(paragraphs []*paragraph.Paragraph, plan *pageopt.Plan, r render.Renderer, path string) error {
	for pageIdx, pb := range plan.Pages {
		isRecto := pageIdx%2 == 0

		if err := r.NewPage(c.Geometry.PageWidth, c.Geometry.PageHeight); err != nil {
			return fmt.Errorf("engine: page %d: %w", pageIdx+1, err)
		}

		c.crossQueue.Reset()
		pageFootnotes := c.footnotesOnPage(pb)

		r.BeginText()
		y := c.Geometry.PageHeight - c.Geometry.TopMargin
		firstLine := pi2li{pb.Start.Para, pb.Start.Line}
		lastLine := pi2li{pb.End.Para, pb.End.Line}

		for pi := pb.Start.Para; pi <= pb.End.Para && pi < len(paragraphs); pi++ {
			p := paragraphs[pi]
			loFrom, hiTo := 0, len(p.Lines)-1
			if pi == firstLine.para {
				loFrom = firstLine.line
			}
			if pi == lastLine.para {
				hiTo = lastLine.line
			}
			for li := loFrom; li <= hiTo && li < len(p.Lines); li++ {
				l := p.Lines[li]
				startPiece := 0
				if pi == pb.Start.Para && li == pb.Start.Line {
					startPiece = pb.Start.Piece
				}
				endPiece := len(l.Pieces)
				if pi == pb.End.Para && li == pb.End.Line {
					endPiece = pb.End.Piece + 1
				}
				if endPiece > len(l.Pieces) {
					endPiece = len(l.Pieces)
				}

				baseline := y - l.Ascent
				x := c.Geometry.LeftMargin + shape.StartX(l)
				for _, pc := range l.Pieces[startPiece:endPiece] {
					if pc.Font == nil || pc.Text == "" {
						x += pc.Width
						continue
					}
					if err := r.SetFontAndSize(pc.Font, pc.Font.Size); err != nil {
						return err
					}
					r.SetFillRGB(pc.Font.Color.R, pc.Font.Color.G, pc.Font.Color.B)
					if err := r.TextOut(x, baseline+pc.BaselineDelta, pc.Text); err != nil {
						return err
					}
					x += pc.Width
				}

				c.crossrefs.RegisterLine(c.crossQueue, l, y)
				y -= l.LineHeight
			}
		}
		r.EndText()

		if err := c.renderFootnotes(r, pageFootnotes); err != nil {
			return err
		}
		if err := c.renderCrossrefs(r, isRecto, pageFootnotes); err != nil {
			return err
		}
	}

	return r.Save(path)
}

// pi2li addresses a line by (paragraph, line) index, used only to
// give Render's paragraph/line clamping logic named fields instead of
// repeating span.Point's unused Piece component.
type pi2li struct{ para, line int }

// renderFootnotes draws entries, the footnotes anchored on the page
// just finished (footnotesOnPage), stacked upward from the bottom
// margin.
func (c *Context) renderFootnotes(r render.Renderer, entries []floats.Footnote) error {
	y := c.Geometry.BottomMargin
	r.BeginText()
	for _, fn := range entries {
		if fn.Content == nil {
			continue
		}
		for _, l := range fn.Content.Lines {
			baseline := y + l.Descent
			x := c.Geometry.LeftMargin + shape.StartX(l)
			for _, pc := range l.Pieces {
				if pc.Font == nil || pc.Text == "" {
					x += pc.Width
					continue
				}
				if err := r.SetFontAndSize(pc.Font, pc.Font.Size); err != nil {
					return err
				}
				r.SetFillRGB(pc.Font.Color.R, pc.Font.Color.G, pc.Font.Color.B)
				if err := r.TextOut(x, baseline+pc.BaselineDelta, pc.Text); err != nil {
					return err
				}
				x += pc.Width
			}
			y += l.LineHeight
		}
	}
	r.EndText()
	return nil
}

// renderCrossrefs repositions and draws every cross-reference queued
// for the page just finished, in the outer margin column (the recto
// margin is the page's right edge, the verso margin its left edge,
// per spec §4.3's booktab/marginpar mirroring). pageFootnotes is the
// same page's footnotes (footnotesOnPage), so the cross-reference
// column knows where the footnote column above it ends.
func (c *Context) renderCrossrefs(r render.Renderer, isRecto bool, pageFootnotes []floats.Footnote) error {
	footnoteTop := c.Geometry.BottomMargin
	for _, fn := range pageFootnotes {
		if fn.Content != nil {
			footnoteTop += fn.Content.Height(c.LineSpacing)
		}
	}
	c.crossQueue.Reposition(c.Geometry.PageHeight - c.Geometry.TopMargin - footnoteTop)

	marginX := c.Geometry.PageWidth - c.Geometry.RightMargin + c.Geometry.MarginparMargin
	if !isRecto {
		marginX = c.Geometry.LeftMargin - c.Geometry.MarginparMargin - c.Geometry.MarginparWidth
	}

	r.BeginText()
	for _, pl := range c.crossQueue.Placements() {
		if pl.Ref.Paragraph == nil {
			continue
		}
		y := pl.Y
		for _, l := range pl.Ref.Paragraph.Lines {
			baseline := y - l.Ascent
			x := marginX
			for _, pc := range l.Pieces {
				if pc.Font == nil || pc.Text == "" {
					x += pc.Width
					continue
				}
				if err := r.SetFontAndSize(pc.Font, pc.Font.Size); err != nil {
					return err
				}
				r.SetFillRGB(pc.Font.Color.R, pc.Font.Color.G, pc.Font.Color.B)
				if err := r.TextOut(x, baseline+pc.BaselineDelta, pc.Text); err != nil {
					return err
				}
				x += pc.Width
			}
			y -= l.LineHeight
		}
	}
	r.EndText()
	return nil
}
