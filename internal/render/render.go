// Package render defines the renderer collaborator named in the
// external interfaces: the engine calls only this narrow surface
// (new_page, begin_text/end_text, set_font_and_size, set_fill_rgb,
// set_text_matrix, text_out, rectangle+fill, save) and never touches
// PDF bytes directly. PDFRenderer is the concrete adapter wiring that
// surface to internal/pdf.
package render

import (
	"fmt"
	"os"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/pdf"
	"github.com/versetype/versetype/layout"
)

// Renderer is the abstract PDF collaborator of the external interfaces.
// The engine drives pagination and layout decisions; Renderer is told
// only where to put ink. Every method that can fail returns an error
// so the engine can treat it as a renderer error and abort the run.
type Renderer interface {
	// NewPage starts a fresh page of the given size, in points,
	// finishing whatever page was previously open.
	NewPage(width, height layout.Abs) error

	// BeginText and EndText bracket a run of text-positioning and
	// text-showing operators (PDF's BT/ET text object).
	BeginText()
	EndText()

	// SetFontAndSize selects font for subsequent TextOut calls on the
	// current page, at size points.
	SetFontAndSize(font *fontreg.Record, size layout.Abs) error

	// SetFillRGB sets the fill color used by TextOut and Fill, with
	// each component in the 0..1 range.
	SetFillRGB(r, g, b float64)

	// SetTextMatrix sets the full text transformation matrix [a b c d
	// x y], used for the rotated booktab labels of spec §3/§4.3.
	SetTextMatrix(a, b, c, d, x, y float64)

	// TextOut places s with its baseline origin at (x, y) in the
	// currently selected font and size.
	TextOut(x, y layout.Abs, s string) error

	// Rectangle stages a filled rectangle at (x, y) sized w by h; Fill
	// paints every rectangle staged since the last Fill.
	Rectangle(x, y, w, h layout.Abs)
	Fill()

	// Save finishes the last open page and writes the complete
	// document to path.
	Save(path string) error
}

// PDFRenderer is the concrete Renderer backed by internal/pdf. It owns
// exactly one in-progress pdf.Document, plus the font manager the
// document's font embedding shares across every page.
type PDFRenderer struct {
	doc     *pdf.Document
	fonts   *pdf.FontManager
	reg     *fontreg.Registry
	pages   []openPage
	builder *pdf.PageBuilder
	cur     *pdf.ContentStream
	curPDF  *pdf.PDFFont
}

// openPage pairs a finished content stream with the page builder
// waiting on it, so resources (which need font refs assigned by
// SubsetFonts/WriteFontObjects) can be attached once, at Save time.
type openPage struct {
	builder *pdf.PageBuilder
	content []byte
}

// NewPDFRenderer creates a renderer with an empty document and font
// manager. reg is stored but not consulted: SetFontAndSize selects the
// PDF font that embeds a record by the record's Font pointer.
func NewPDFRenderer(reg *fontreg.Registry) *PDFRenderer {
	return &PDFRenderer{
		doc:   pdf.NewDocument(pdf.V1_7),
		fonts: pdf.NewFontManager(),
		reg:   reg,
	}
}

func (r *PDFRenderer) NewPage(width, height layout.Abs) error {
	r.finishCurrentPage()
	r.builder = r.doc.AddPage(float64(width), float64(height))
	r.cur = pdf.NewContentStream()
	return nil
}

// finishCurrentPage moves the in-progress page's content stream bytes
// and builder into the pending page list. Attaching the content stream
// object and font resources is deferred to Save, since font refs are
// only assigned once every page has contributed its glyph usage to the
// shared font manager.
func (r *PDFRenderer) finishCurrentPage() {
	if r.builder == nil {
		return
	}
	r.pages = append(r.pages, openPage{builder: r.builder, content: r.cur.Bytes()})
	r.builder = nil
	r.cur = nil
}

func (r *PDFRenderer) BeginText() {
	if r.cur != nil {
		r.cur.BeginText()
	}
}

func (r *PDFRenderer) EndText() {
	if r.cur != nil {
		r.cur.EndText()
	}
}

func (r *PDFRenderer) SetFontAndSize(f *fontreg.Record, size layout.Abs) error {
	if f == nil || f.Font == nil {
		return fmt.Errorf("render: nil font record")
	}
	if r.cur == nil {
		return fmt.Errorf("render: SetFontAndSize before NewPage")
	}
	pdfFont := r.fonts.GetOrCreateFont(f.Font)
	r.curPDF = pdfFont
	r.cur.SetFont("/"+pdfFont.Name, size)
	return nil
}

func (r *PDFRenderer) SetFillRGB(red, green, blue float64) {
	if r.cur != nil {
		r.cur.SetFillColorRGB(red, green, blue)
	}
}

func (r *PDFRenderer) SetTextMatrix(a, b, c, d, x, y float64) {
	if r.cur != nil {
		r.cur.SetTextMatrix(a, b, c, d, x, y)
	}
}

// TextOut shapes s against the currently selected font, recording each
// glyph used with the font manager (so subsetting embeds exactly what
// was drawn) and emitting an Identity-H hex string positioned at (x,
// y). If no face is available (a font record with no loaded glyph
// source), s is emitted as a literal string against the Type1 fallback
// writeFontObject falls back to for that font.
func (r *PDFRenderer) TextOut(x, y layout.Abs, s string) error {
	if r.cur == nil || r.curPDF == nil {
		return fmt.Errorf("render: TextOut before SetFontAndSize")
	}
	r.cur.SetTextMatrixPos(x, y)

	face := r.curPDF.Font.Face()
	if face == nil {
		r.cur.ShowText(s)
		return nil
	}

	glyphs := make([]uint16, 0, len(s))
	for _, ru := range s {
		gid, ok := face.GetNominalGlyph(ru)
		if !ok {
			continue
		}
		id := uint16(gid)
		r.fonts.AddGlyph(r.curPDF.Font, id)
		glyphs = append(glyphs, id)
	}
	r.cur.ShowHexText(pdf.EncodeGlyphString(glyphs))
	return nil
}

func (r *PDFRenderer) Rectangle(x, y, w, h layout.Abs) {
	if r.cur != nil {
		r.cur.Rectangle(x, y, w, h)
	}
}

func (r *PDFRenderer) Fill() {
	if r.cur != nil {
		r.cur.Fill()
	}
}

// Save finishes the last open page, subsets and embeds every font
// used across the whole document, attaches the shared font resources
// to every page, and writes the finished PDF to path.
func (r *PDFRenderer) Save(path string) error {
	r.finishCurrentPage()

	if err := r.fonts.SubsetFonts(); err != nil {
		return fmt.Errorf("render: subset fonts: %w", err)
	}
	if err := r.fonts.WriteFontObjects(r.doc.Writer()); err != nil {
		return fmt.Errorf("render: write font objects: %w", err)
	}

	fontResources := r.fonts.BuildFontResources()
	for _, p := range r.pages {
		contentRef := r.doc.AddContentStream(p.content)
		p.builder.SetContents(contentRef)
		for name, ref := range fontResources {
			if asRef, ok := ref.(pdf.Ref); ok {
				p.builder.Resources().AddFont(name, asRef)
			}
		}
		p.builder.Finish()
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create %q: %w", path, err)
	}
	defer f.Close()

	if err := r.doc.Finish(f); err != nil {
		return fmt.Errorf("render: write %q: %w", path, err)
	}
	return nil
}
