// Package piece defines the atomic indivisible rendered unit that every
// line, paragraph, line-break and page-break computation in this module
// operates on.
package piece

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/bidi"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/layout"
)

// Piece is an atomic indivisible rendered unit: a string, a font, a
// natural width, an elastic flag, a nobreak flag, an optional baseline
// delta, and an optional attached cross-reference key (spec §3).
type Piece struct {
	// Text is the rendered string content.
	Text string

	// Font is the font record this piece is drawn with.
	Font *fontreg.Record

	// NaturalWidth is the width at construction time; it is never
	// mutated afterward.
	NaturalWidth layout.Abs

	// Width is the current, possibly justified or shrunk-for-hang
	// width.
	Width layout.Abs

	// BaselineDelta shifts this piece's baseline relative to its
	// line's baseline (superscripts, drop caps).
	BaselineDelta layout.Abs

	// Elastic marks pieces whose width may grow during justification:
	// exactly ordinary ASCII spaces and non-breaking spaces.
	Elastic bool

	// Nobreak forbids a line break immediately after this piece.
	Nobreak bool

	// TokenNumber is the index of the source token that produced this
	// piece, used for diagnostics and determinism logging.
	TokenNumber int

	// CrossrefKey is an index/key into the floats manager's
	// cross-reference table (spec §9: break the body-piece/crossref
	// cycle with an index rather than a direct pointer). Empty means
	// no attached cross-reference.
	CrossrefKey string
}

// New creates a piece with its natural width measured from the font
// registry, and determines elasticity from the text itself.
func New(text string, font *fontreg.Record, reg *fontreg.Registry) Piece {
	w := reg.TextWidth(font, text)
	return Piece{
		Text:         text,
		Font:         font,
		NaturalWidth: w,
		Width:        w,
		Elastic:      isElasticText(text),
	}
}

// NewThinSpace creates the supplemented non-elastic half-width space
// piece (grounded on paragraph_append_thinspace): fixed at half the
// width of an ordinary space in the given font, and never grown during
// justification.
func NewThinSpace(font *fontreg.Record, reg *fontreg.Registry) Piece {
	full := reg.TextWidth(font, " ")
	return Piece{
		Text:         " ",
		Font:         font,
		NaturalWidth: full / 2,
		Width:        full / 2,
		Elastic:      false,
	}
}

// isElasticText reports whether a piece's text makes it elastic: exactly
// a single ASCII space or a single non-breaking space (spec §3).
func isElasticText(s string) bool {
	return s == " " || s == " "
}

// IsSpace reports whether this piece is an elastic space (ordinary or
// non-breaking), the shape the line breaker treats as a legal break
// point between words.
func (p *Piece) IsSpace() bool {
	return p.Elastic
}

// IsLowPunctuation reports whether r is one of the "low punctuation"
// marks that a trailing footnote mark is allowed to hang over
// (`. , - ` and the ASCII space), per layout.c's footnote-over-
// punctuation hang rule.
func IsLowPunctuation(r rune) bool {
	switch r {
	case '.', ',', '-', ' ':
		return true
	default:
		return false
	}
}

// IsHangable reports whether r is a code point that may protrude into
// the margin when it begins or ends a line: quotation marks, dashes,
// commas, periods and similar punctuation (spec GLOSSARY "Hangable").
// Classification combines a short explicit list of the classic hanging
// marks with golang.org/x/text/unicode/bidi's neutral/separator class,
// the same dependency the teacher's own breakpoint classifier
// (classifyBreakpoint in layout/inline/linebreak.go) draws on, rather
// than a hand-maintained Unicode table.
func IsHangable(r rune) bool {
	switch r {
	case '"', '\'', '“', '”', '‘', '’',
		'.', ',', ';', ':', '-', '–', '—', '!', '?':
		return true
	}
	if !unicode.IsPunct(r) {
		return false
	}
	props, _ := bidi.LookupRune(r)
	switch props.Class() {
	case bidi.ON, bidi.CS, bidi.ES:
		return true
	default:
		return false
	}
}

// LeadingHangWidth measures the width, in points, of the leading run of
// hangable code points in s, walked one grapheme cluster at a time (via
// uniseg) so that a combining mark riding on a hangable quote is not
// split mid-cluster.
func LeadingHangWidth(s string, font *fontreg.Record, reg *fontreg.Registry) layout.Abs {
	var hang strings.Builder
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		cluster := gr.Runes()
		if len(cluster) == 0 || !IsHangable(cluster[0]) {
			break
		}
		hang.WriteString(gr.Str())
	}
	if hang.Len() == 0 {
		return 0
	}
	return reg.TextWidth(font, hang.String())
}

// TrailingHangWidth measures the width, in points, of the trailing run
// of hangable code points in s, walking backward one grapheme cluster
// at a time.
func TrailingHangWidth(s string, font *fontreg.Record, reg *fontreg.Registry) layout.Abs {
	clusters := graphemeClusters(s)
	end := len(clusters)
	for end > 0 {
		cluster := clusters[end-1]
		runes := []rune(cluster)
		if len(runes) == 0 || !IsHangable(runes[0]) {
			break
		}
		end--
	}
	if end == len(clusters) {
		return 0
	}
	return reg.TextWidth(font, strings.Join(clusters[end:], ""))
}

func graphemeClusters(s string) []string {
	var out []string
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		out = append(out, gr.Str())
	}
	return out
}
