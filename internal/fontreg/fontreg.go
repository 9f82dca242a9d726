// Package fontreg resolves font nicknames (as used throughout configuration
// profiles and style tags) to metric records: ascent, descent, linegap and
// cap-height in 1000-units, plus a text-width query. It is the concrete
// realization of the font-metric collaborator described in the external
// interfaces of the specification.
package fontreg

import (
	"fmt"

	"github.com/versetype/versetype/internal/font"
	"github.com/versetype/versetype/layout"
)

// Record is a resolved font entry: a loaded face plus the metric and
// styling attributes a piece of body text needs to reference it by
// nickname (spec §2.1, §3).
type Record struct {
	// Nickname is the key style tags and config values use to refer to
	// this font (e.g. "booktab", "header", "redletter", "blackletter").
	Nickname string

	// Font is the underlying loaded face.
	Font *font.Font

	// Size is the point size this record renders at.
	Size layout.Abs

	// Color is the fill color used when drawing pieces in this font.
	Color layout.Color

	// Ascent, Descent, LineGap and CapHeight are in 1000-units (per
	// mille of em), matching the font-metric collaborator contract.
	Ascent, Descent, LineGap, CapHeight int

	// SmallCaps requests the smallcaps emulation described in the
	// supplemented features (runs of lowercase letters rendered
	// uppercase at SmallCapsScale of Size).
	SmallCaps    bool
	SmallCapsScale float64

	// LineCount is the number of physical lines this font's pieces are
	// expected to span (> 1 marks a drop-cap font per spec §3/§4.1).
	LineCount int

	// BaselineDelta shifts the piece baseline relative to the line's
	// own baseline (used for superscript footnote marks and verse
	// numbers).
	BaselineDelta layout.Abs
}

// Registry resolves nicknames to Records. It is populated once during
// configuration loading and is read-only for the remainder of a run
// (spec §3 "Ownership": the font registry shares fonts with every piece
// read-only).
type Registry struct {
	byNickname map[string]*Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byNickname: make(map[string]*Record)}
}

// Register loads a font file and binds it to nickname with the given
// size and color. Subsequent calls with the same nickname replace the
// prior binding, matching the config reader's "last value for a key
// wins within one profile" behavior.
func (r *Registry) Register(nickname, path string, size layout.Abs, color layout.Color) (*Record, error) {
	faces, err := font.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("fontreg: load %q for %q: %w", path, nickname, err)
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("fontreg: %q contains no usable face", path)
	}
	f := faces[0]

	ascent, descent, lineGap, upem, err := readHHea(f.RawData)
	if err != nil {
		// Fall back to conventional TrueType defaults (common for a
		// 1000-unit-per-em PostScript-flavoured font) rather than
		// failing the whole profile load over a missing metrics table.
		ascent, descent, lineGap, upem = 800, 200, 90, 1000
	}

	scale := 1000.0 / float64(upem)
	rec := &Record{
		Nickname:       nickname,
		Font:           f,
		Size:           size,
		Color:          color,
		Ascent:         int(float64(ascent) * scale),
		Descent:        int(float64(-descent) * scale),
		LineGap:        int(float64(lineGap) * scale),
		CapHeight:      int(float64(ascent) * scale * 0.7),
		SmallCapsScale: 0.8,
		LineCount:      1,
	}
	r.byNickname[nickname] = rec
	return rec, nil
}

// Adopt registers rec directly under rec.Nickname, overwriting any
// existing binding for that nickname. Unlike Register, it does not
// load a font file: it is how a derived record (WithSize against an
// already-registered face, or a synthetic nickname such as
// "chapternum"/"versenum"/"footnotemark" bound by convention rather
// than by a profile key) joins the registry.
func (r *Registry) Adopt(rec *Record) {
	r.byNickname[rec.Nickname] = rec
}

// WithSize returns a shallow copy of rec rendering at size instead of
// rec.Size, used when a single registered face is set at more than one
// size in the same document (emulated small caps render their
// lowercase run at SmallCapsScale of the surrounding size).
func (rec *Record) WithSize(size layout.Abs) *Record {
	clone := *rec
	clone.Size = size
	return &clone
}

// Lookup returns the record for nickname, or nil if it is unregistered.
func (r *Registry) Lookup(nickname string) *Record {
	return r.byNickname[nickname]
}

// TextWidth measures the natural width, in points, of s set in rec's
// font at rec's size. It sums per-rune horizontal advances from the
// face's own hmtx/cmap data, scaled from font units to points; ligature
// formation and kerning are outside this specification's scope (pieces
// are treated as indivisible runs of already-tokenized text, matching
// the Non-goal on complex-script shaping).
func (r *Registry) TextWidth(rec *Record, s string) layout.Abs {
	if rec == nil || rec.Font == nil || rec.Font.Face() == nil {
		return layout.Abs(float64(len(s)) * float64(rec.sizeOrDefault()) * 0.5)
	}
	face := rec.Font.Face()
	upem := face.Font.Upem()
	if upem == 0 {
		upem = 1000
	}
	var total float64
	for _, ru := range s {
		gid, ok := face.GetNominalGlyph(ru)
		if !ok {
			// Tofu fallback: approximate as half an em, matching the
			// teacher's own tofu-glyph width heuristic.
			total += 0.5 * float64(upem)
			continue
		}
		total += float64(face.HorizontalAdvance(gid))
	}
	return layout.Abs(total / float64(upem) * float64(rec.Size))
}

// Metrics is the font-metric collaborator named in the external
// interfaces: per-font ascent/descent/linegap/cap-height in 1000-units,
// plus a text_width query. *Registry implements it directly; it exists
// as an interface so the line breaker, paragraph composer and renderer
// depend only on the query surface they need, not on Registry's
// loading/registration machinery.
type Metrics interface {
	Ascent(rec *Record) int
	Descent(rec *Record) int
	LineGap(rec *Record) int
	CapHeight(rec *Record) int
	TextWidth(rec *Record, s string) layout.Abs
}

// Ascent returns rec's ascent in 1000-units.
func (r *Registry) Ascent(rec *Record) int { return rec.Ascent }

// Descent returns rec's descent in 1000-units.
func (r *Registry) Descent(rec *Record) int { return rec.Descent }

// LineGap returns rec's line gap in 1000-units.
func (r *Registry) LineGap(rec *Record) int { return rec.LineGap }

// CapHeight returns rec's cap-height in 1000-units.
func (r *Registry) CapHeight(rec *Record) int { return rec.CapHeight }

func (rec *Record) sizeOrDefault() layout.Abs {
	if rec == nil || rec.Size == 0 {
		return 12
	}
	return rec.Size
}

// readHHea extracts ascent, descent, lineGap (in font design units) and
// unitsPerEm directly from a raw sfnt font file, by walking the
// standard OpenType table directory to locate the 'hhea' and 'head'
// tables. This mirrors the fixed-offset reads real OpenType tooling
// performs against those two tables rather than depending on an
// unconfirmed accessor method on the shaping library's Face type.
func readHHea(data []byte) (ascent, descent, lineGap int16, unitsPerEm uint16, err error) {
	if len(data) < 12 {
		return 0, 0, 0, 0, fmt.Errorf("fontreg: font data too short")
	}
	numTables := int(be16(data[4:]))
	const recordSize = 16
	dirEnd := 12 + numTables*recordSize
	if dirEnd > len(data) {
		return 0, 0, 0, 0, fmt.Errorf("fontreg: truncated table directory")
	}

	var hhea, head []byte
	for i := 0; i < numTables; i++ {
		rec := data[12+i*recordSize : 12+(i+1)*recordSize]
		tag := string(rec[0:4])
		offset := be32(rec[8:])
		length := be32(rec[12:])
		if int(offset+length) > len(data) {
			continue
		}
		switch tag {
		case "hhea":
			hhea = data[offset : offset+length]
		case "head":
			head = data[offset : offset+length]
		}
	}
	if hhea == nil || len(hhea) < 10 {
		return 0, 0, 0, 0, fmt.Errorf("fontreg: no hhea table")
	}
	ascent = int16(be16(hhea[4:]))
	descent = int16(be16(hhea[6:]))
	lineGap = int16(be16(hhea[8:]))
	unitsPerEm = 1000
	if head != nil && len(head) >= 20 {
		unitsPerEm = be16(head[18:])
	}
	if unitsPerEm == 0 {
		unitsPerEm = 1000
	}
	return ascent, descent, lineGap, unitsPerEm, nil
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
