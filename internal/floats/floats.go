// Package floats manages the two kinds of floating content a page
// can carry alongside its body text: footnotes and margin
// cross-references (spec §4.5, supplemented features), grounded on
// original_source/footnotes.c and crossref.c.
package floats

import (
	"fmt"
	"strings"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/paragraph"
	"github.com/versetype/versetype/internal/pieceline"
	"github.com/versetype/versetype/layout"
)

// FootnoteMark returns the footnote reference mark for the nth
// footnote on a page (0-based): a, b, ..., z, then aa, ab, ..., az,
// ba, ..., exactly the base-26 letter scheme
// generate_footnote_mark/next_footnote_mark produce.
func FootnoteMark(n int) string {
	if n < 26 {
		return string(rune('a' + n))
	}
	n -= 26
	return string([]rune{rune('a' + n/26), rune('a' + n%26)})
}

// footnote is one footnote collected so far on the page in progress.
type footnote struct {
	mark          string
	anchorLineUID int
	builder       *paragraph.Builder
	content       *paragraph.Paragraph
}

// FootnoteManager collects footnotes for the page currently being
// assembled: the Go equivalent of footnotes.c's
// footnote_paragraphs/footnote_line_numbers fixed-size arrays plus
// begin_footnote/end_footnote, generalized to a slice capped at
// MaxPerPage rather than a compile-time array bound.
//
// Not safe for concurrent use.
type FootnoteManager struct {
	maxPerPage int
	entries    []*footnote

	reg                                  *fontreg.Registry
	columnWidth, leftMargin, rightMargin layout.Abs
	maxHangSpace                         layout.Abs
	lineSpacing                          float64
	markFont                             *fontreg.Record
}

// NewFootnoteManager creates a footnote manager that lays out each
// footnote's own text at the given column geometry (the generate.c
// profile's footnote column width and margins), capped at maxPerPage
// footnotes per page (MAX_FOOTNOTES_ON_PAGE).
func NewFootnoteManager(reg *fontreg.Registry, markFont *fontreg.Record, columnWidth, leftMargin, rightMargin, maxHangSpace layout.Abs, lineSpacing float64, maxPerPage int) *FootnoteManager {
	return &FootnoteManager{
		maxPerPage:   maxPerPage,
		reg:          reg,
		columnWidth:  columnWidth,
		leftMargin:   leftMargin,
		rightMargin:  rightMargin,
		maxHangSpace: maxHangSpace,
		lineSpacing:  lineSpacing,
		markFont:     markFont,
	}
}

// Reset discards every footnote collected so far (footnotes_reset),
// called at the start of each new page.
func (m *FootnoteManager) Reset() {
	m.entries = nil
}

// Count returns how many footnotes have been collected on the
// current page so far.
func (m *FootnoteManager) Count() int { return len(m.entries) }

// Begin starts collecting a new footnote anchored to anchorLineUID
// (the body line its reference mark appears on), and returns the mark
// to render in the body text alongside a Builder to append the
// footnote's own body content to (begin_footnote). The caller appends
// the footnote's text to the returned Builder and then calls End.
func (m *FootnoteManager) Begin(anchorLineUID int) (mark string, b *paragraph.Builder, err error) {
	if len(m.entries) >= m.maxPerPage {
		return "", nil, fmt.Errorf("floats: too many footnotes on a single page (limit is %d)", m.maxPerPage)
	}
	mark = FootnoteMark(len(m.entries))

	b = paragraph.NewBuilder(m.reg, m.markFont, m.columnWidth, m.leftMargin, m.rightMargin, m.maxHangSpace, m.lineSpacing)

	// Four ordinary elastic spaces lead every footnote rather than a
	// forced fixed gap, so that when footnotes are set one after
	// another on the same line the separating space still justifies
	// correctly (begin_footnote).
	for i := 0; i < 4; i++ {
		b.AppendSpace(true, false, 0)
	}

	if err := b.PushStyle(layout.AlignJustified, m.markFont); err != nil {
		return "", nil, err
	}
	b.AppendText(mark, 0, false, false, 0)
	if err := b.PopStyle(); err != nil {
		return "", nil, err
	}

	m.entries = append(m.entries, &footnote{mark: mark, anchorLineUID: anchorLineUID, builder: b})
	return mark, b, nil
}

// End flushes and commits the most recently begun footnote's content
// (end_footnote). Call this once the caller has appended the
// footnote's body text to the Builder returned by Begin.
func (m *FootnoteManager) End() {
	if len(m.entries) == 0 {
		return
	}
	last := m.entries[len(m.entries)-1]
	last.content = last.builder.Flush()
}

// Footnote is one committed footnote ready to be laid out at the
// bottom of the page.
type Footnote struct {
	Mark          string
	AnchorLineUID int
	Content       *paragraph.Paragraph
}

// Committed returns every footnote collected on the current page, in
// collection order.
func (m *FootnoteManager) Committed() []Footnote {
	out := make([]Footnote, len(m.entries))
	for i, e := range m.entries {
		out[i] = Footnote{Mark: e.mark, AnchorLineUID: e.anchorLineUID, Content: e.content}
	}
	return out
}

// Key identifies a cross-reference target verse for lookup, the
// string-keyed equivalent of crossref_calc_hash's
// ((chapter<<8)|verse)&0xffff bin index plus crossreference_find's
// book/chapter/verse comparison: a plain Go map already gives exact
// matching with no collision handling to hand-roll, so book is folded
// into the key itself instead of scanning a bin's linked list.
func Key(book string, chapter, verse int) string {
	return fmt.Sprintf("%s|%d:%d", strings.ToLower(book), chapter, verse)
}

// Crossref is one piece of cross-reference content anchored to a
// source verse (crossreference_end's cloned, measured paragraph).
type Crossref struct {
	Book      string
	Chapter   int
	Verse     int
	Paragraph *paragraph.Paragraph
	Height    layout.Abs
}

// Registry indexes cross-reference content by source verse
// (crossref_hash_bins), and separately remembers the most recently
// added entries so PrecalcHeights can answer "how tall would the
// cross-refs from here back to the start of the page be" without
// re-summing from scratch (crossref_precalc_heights' ring buffer of
// recently_added_crossrefs).
type Registry struct {
	entries   map[string]*Crossref
	recent    []*Crossref
	recentCap int
}

// NewRegistry creates an empty registry, remembering at most
// recentCap of the most recently added entries for PrecalcHeights
// (MAX_VERSES_ON_PAGE).
func NewRegistry(recentCap int) *Registry {
	return &Registry{entries: make(map[string]*Crossref), recentCap: recentCap}
}

// Add links a cross-reference content paragraph into the registry,
// keyed by its source verse.
func (r *Registry) Add(c *Crossref) {
	r.entries[Key(c.Book, c.Chapter, c.Verse)] = c
	r.recent = append(r.recent, c)
	if r.recentCap > 0 && len(r.recent) > r.recentCap {
		r.recent = r.recent[len(r.recent)-r.recentCap:]
	}
}

// Find returns the cross-reference content registered for a verse, or
// nil if none was (crossreference_find).
func (r *Registry) Find(book string, chapter, verse int) *Crossref {
	return r.entries[Key(book, chapter, verse)]
}

// BeginContent starts building one cross-reference's own content
// (crossreference_start): the chapter:verse marker in markerFont,
// followed by the reference text itself in refFont. The caller
// appends the reference text to the returned Builder and then calls
// EndContent.
func BeginContent(reg *fontreg.Registry, columnWidth layout.Abs, markerFont *fontreg.Record, lineSpacing float64) (*paragraph.Builder, error) {
	b := paragraph.NewBuilder(reg, markerFont, columnWidth, 0, 0, 0, lineSpacing)
	if err := b.PushStyle(layout.AlignJustified, markerFont); err != nil {
		return nil, err
	}
	return b, nil
}

// AppendMarker appends the "chapter:verse " lead-in to a
// cross-reference's own content, then switches to refFont for the
// reference text that follows (the remainder of
// crossreference_start). chapter of zero omits the "chapter:" prefix,
// matching a reference within the same chapter as its source verse.
func AppendMarker(b *paragraph.Builder, refFont *fontreg.Record, chapter, verse int) error {
	if chapter > 0 {
		b.AppendText(fmt.Sprintf("%d", chapter), 0, true, true, 0)
		b.AppendText(":", 0, true, true, 0)
	}
	b.AppendText(fmt.Sprintf("%d", verse), 0, true, false, 0)
	b.AppendText(" ", 0, true, false, 0)
	if err := b.PopStyle(); err != nil {
		return err
	}
	return b.PushStyle(layout.AlignJustified, refFont)
}

// EndContent flushes the content built via BeginContent/AppendMarker,
// measures it, and registers it so later RegisterLine calls can find
// it by source verse (crossreference_end).
func EndContent(r *Registry, b *paragraph.Builder, book string, chapter, verse int, lineSpacing float64) (*Crossref, error) {
	if err := b.PopStyle(); err != nil {
		return nil, err
	}
	p := b.Flush()
	var height layout.Abs
	if p != nil {
		height = p.Height(lineSpacing)
	}
	c := &Crossref{Book: book, Chapter: chapter, Verse: verse, Paragraph: p, Height: height}
	r.Add(c)
	return c, nil
}

// HeightRecord captures the total height of one contiguous trailing
// run of cross-reference entries, from FirstRef through the most
// recently added entry (crossref_precalc_heights' per-entry
// crossref_height_record list).
type HeightRecord struct {
	FirstRef *Crossref
	Total    layout.Abs
}

// PrecalcHeights returns, for the Registry's most recently added
// entries, one HeightRecord per contiguous trailing run: the first
// record covers the most recent entry alone, and each next one extends
// one entry further back, stopping once the accumulated height
// exceeds maxHeight (the first overflowing record is still included,
// so a caller can identify exactly which verse could not fit).
func (r *Registry) PrecalcHeights(minVSpace, maxHeight layout.Abs) []HeightRecord {
	var out []HeightRecord
	var height layout.Abs
	for j := len(r.recent) - 1; j >= 0; j-- {
		height += r.recent[j].Height + minVSpace
		out = append(out, HeightRecord{FirstRef: r.recent[j], Total: height})
		if height > maxHeight {
			break
		}
	}
	return out
}

// RegisterLine walks one already-laid-out line, queuing any
// cross-reference attached to a verse-number piece (by its
// CrossrefKey) into q at y (crossrefs_register_line). y is the line's
// top in page coordinates.
func (r *Registry) RegisterLine(q *Queue, l *pieceline.Line, y layout.Abs) {
	for i := range l.Pieces {
		p := &l.Pieces[i]
		if p.Font == nil || p.Font.Nickname != "versenum" || p.CrossrefKey == "" {
			continue
		}
		if ref := r.entries[p.CrossrefKey]; ref != nil {
			q.Add(ref, y)
		}
	}
}

// RegisterParagraph walks every line of a laid-out paragraph starting
// at y, queuing any cross-references it carries, and returns the y
// position immediately after the paragraph (crossrefs_register).
func (r *Registry) RegisterParagraph(q *Queue, p *paragraph.Paragraph, y layout.Abs, lineSpacing float64) layout.Abs {
	for _, l := range p.Lines {
		r.RegisterLine(q, l, y)
		l.CalculateHeight(0, len(l.Pieces), lineSpacing)
		y += l.LineHeight
	}
	return y
}

// Placement is one cross-reference queued for the page being
// assembled, carrying the Y it would naturally fall at before
// collision repair.
type Placement struct {
	Ref *Crossref
	Y   layout.Abs
}

// Queue accumulates cross-reference placements for the page currently
// being assembled (crossrefs_queue/crossrefs_y/crossref_count), kept
// separate from Registry since a Registry's content persists across
// pages while a Queue is reset every page.
type Queue struct {
	minVSpace  layout.Abs
	placements []Placement
}

// NewQueue creates an empty queue requiring at least minVSpace
// between consecutive placements (crossref_min_vspace).
func NewQueue(minVSpace layout.Abs) *Queue {
	return &Queue{minVSpace: minVSpace}
}

// Reset discards every placement queued so far (crossrefs_reset),
// called at the start of each new page.
func (q *Queue) Reset() {
	q.placements = nil
}

// Count returns how many cross-references are queued.
func (q *Queue) Count() int { return len(q.placements) }

// Add queues a cross-reference placement at its natural y (skipped
// silently if ref is nil, matching crossref_queue's "if (!p) return"
// guard for verses with no registered cross-reference).
func (q *Queue) Add(ref *Crossref, y layout.Abs) {
	if ref == nil {
		return
	}
	q.placements = append(q.placements, Placement{Ref: ref, Y: y})
}

// Reposition spreads queued cross-references so consecutive entries
// never overlap, exactly mirroring crossrefs_reposition's two passes:
// first top-to-bottom, pushing each entry below the one before it;
// then clamping the last entry above yLimit (the top of the footnote
// column, so cross-references never run into it); then
// bottom-to-top, pulling each entry back above the one following it.
func (q *Queue) Reposition(yLimit layout.Abs) {
	n := len(q.placements)
	if n == 0 {
		return
	}

	for i := 1; i < n; i++ {
		prevBottom := q.placements[i-1].Y + q.placements[i-1].Ref.Height
		thisTop := q.placements[i].Y
		if overlap := prevBottom - thisTop + q.minVSpace; overlap > 0 {
			q.placements[i].Y += overlap
		}
	}

	last := n - 1
	if q.placements[last].Y+q.placements[last].Ref.Height > yLimit-q.minVSpace {
		q.placements[last].Y = yLimit - q.placements[last].Ref.Height - q.minVSpace
	}

	for i := n - 2; i >= 0; i-- {
		thisBottom := q.placements[i].Y + q.placements[i].Ref.Height
		nextTop := q.placements[i+1].Y
		if overlap := thisBottom - nextTop + q.minVSpace; overlap > 0 {
			q.placements[i].Y -= overlap
		}
	}
}

// Placements returns the queued cross-references in the order they
// were added, after any Reposition call has adjusted their Y values.
func (q *Queue) Placements() []Placement {
	return q.placements
}
