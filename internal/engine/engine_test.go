package engine

import (
	"testing"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/render"
	"github.com/versetype/versetype/internal/token"
)

func testFonts() FontSet {
	mk := func(nick string) *fontreg.Record {
		return &fontreg.Record{Nickname: nick, Size: 10, Ascent: 800, Descent: 200, LineGap: 90, LineCount: 1}
	}
	return FontSet{
		Body:           mk("booktab"),
		ChapterNum:     mk("chapternum"),
		VerseNum:       mk("versenum"),
		FootnoteMark:   mk("footnotemark"),
		CrossrefMarker: mk("crossrefmarker"),
		CrossrefText:   mk("crossrefref"),
	}
}

func testGeometry() Geometry {
	return Geometry{
		PageWidth: 432, PageHeight: 648,
		LeftMargin: 72, RightMargin: 72,
		TopMargin: 72, BottomMargin: 72,
		MarginparWidth: 72, MarginparMargin: 8,
		ColumnWidth:         288,
		MaxHangSpace:        5,
		FootnoteColumnWidth: 288,
		CrossrefColumnWidth: 72,
	}
}

func testContext(t *testing.T) *Context {
	t.Helper()
	reg := fontreg.NewRegistry()
	fonts := testFonts()
	for _, r := range []*fontreg.Record{fonts.Body, fonts.ChapterNum, fonts.VerseNum, fonts.FootnoteMark, fonts.CrossrefMarker, fonts.CrossrefText} {
		reg.Adopt(r)
	}
	return NewContext(reg, fonts, testGeometry(), 1.0, 10, 50, 18)
}

func feed(t *testing.T, c *Context, toks ...token.Token) {
	t.Helper()
	for _, tok := range toks {
		if err := c.Process(tok); err != nil {
			t.Fatalf("Process(%+v): %v", tok, err)
		}
	}
}

func TestBasicTextAndSpaceAccumulateIntoOneParagraph(t *testing.T) {
	c := testContext(t)
	feed(t, c,
		token.Token{Type: token.Text, Value: "hello"},
		token.Token{Type: token.Space},
		token.Token{Type: token.Text, Value: "world"},
	)
	paragraphs, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(paragraphs) != 1 {
		t.Fatalf("expected 1 paragraph, got %d", len(paragraphs))
	}
	if len(paragraphs[0].Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(paragraphs[0].Lines))
	}
}

func TestUnknownTagPushesFontNicknameStyle(t *testing.T) {
	c := testContext(t)
	feed(t, c,
		token.Token{Type: token.Tag, Value: "crossrefmarker"},
		token.Token{Type: token.Text, Value: "styled"},
		token.Token{Type: token.EndTag},
	)
	paragraphs, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	pc := paragraphs[0].Lines[0].Pieces[0]
	if pc.Font == nil || pc.Font.Nickname != "crossrefmarker" {
		t.Fatalf("expected the piece to carry the crossrefmarker font, got %+v", pc.Font)
	}
}

func TestHandleTagRejectsUnregisteredNickname(t *testing.T) {
	c := testContext(t)
	if err := c.Process(token.Token{Type: token.Tag, Value: "nosuchfont"}); err == nil {
		t.Fatal("expected an error for an unregistered tag/font nickname")
	}
}

func TestChapterAndVerseInsertNumbersAndCrossrefKey(t *testing.T) {
	c := testContext(t)
	feed(t, c,
		token.Token{Type: token.Tag, Value: "bookheader"},
		token.Token{Type: token.Text, Value: "Genesis"},
		token.Token{Type: token.Tag, Value: "chapter"},
		token.Token{Type: token.Text, Value: "1"},
		token.Token{Type: token.Tag, Value: "verse"},
		token.Token{Type: token.Text, Value: "1"},
		token.Token{Type: token.Text, Value: "In the beginning"},
	)
	if c.BookName() != "Genesis" {
		t.Fatalf("expected bookheader to set BookName, got %q", c.BookName())
	}
	paragraphs, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(c.BookBoundaries()) != 1 {
		t.Fatalf("expected one recorded book boundary, got %d", len(c.BookBoundaries()))
	}
	firstLine := paragraphs[0].Lines[0]
	if len(firstLine.Pieces) < 2 {
		t.Fatalf("expected at least a chapter number and verse number piece, got %d pieces", len(firstLine.Pieces))
	}
	verseNumPiece := firstLine.Pieces[1]
	if verseNumPiece.CrossrefKey == "" {
		t.Fatal("expected the verse-number piece to carry a non-empty CrossrefKey")
	}
}

func TestFootnoteBeginEndInsertsMarkAndCommitsContent(t *testing.T) {
	c := testContext(t)
	feed(t, c,
		token.Token{Type: token.Text, Value: "word"},
		token.Token{Type: token.Tag, Value: "footnote"},
		token.Token{Type: token.Text, Value: "a note"},
		token.Token{Type: token.EndTag},
		token.Token{Type: token.Text, Value: "more"},
	)
	if _, err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	committed := c.footnotes.Committed()
	if len(committed) != 1 {
		t.Fatalf("expected one committed footnote, got %d", len(committed))
	}
	if committed[0].Content == nil || len(committed[0].Content.Lines) == 0 {
		t.Fatal("expected the footnote's content to be non-empty")
	}
}

func TestFootnotesSurviveRenderAndAreSelectedPerPage(t *testing.T) {
	c := testContext(t)
	feed(t, c,
		token.Token{Type: token.Text, Value: "word"},
		token.Token{Type: token.Tag, Value: "footnote"},
		token.Token{Type: token.Text, Value: "a note"},
		token.Token{Type: token.EndTag},
		token.Token{Type: token.Paragraph},
	)
	paragraphs, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := len(c.footnotes.Committed()); got != 1 {
		t.Fatalf("expected one committed footnote before Render, got %d", got)
	}

	plan, err := c.Optimize(paragraphs)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(plan.Pages) == 0 {
		t.Fatal("expected at least one page in the plan")
	}
	onFirstPage := c.footnotesOnPage(plan.Pages[0])
	if len(onFirstPage) != 1 {
		t.Fatalf("expected the footnote anchored on the first page, got %d entries", len(onFirstPage))
	}

	r := render.NewPDFRenderer(c.Reg)
	path := t.TempDir() + "/out.pdf"
	if err := c.Render(paragraphs, plan, r, path); err != nil {
		t.Fatalf("Render: %v", err)
	}

	// Render must not discard every committed footnote before any page
	// ever draws it (the per-page loop used to call footnotes.Reset()
	// unconditionally at the top of every page, including page one).
	if got := len(c.footnotes.Committed()); got != 1 {
		t.Fatalf("expected the committed footnote to survive Render, got %d", got)
	}
}

func TestCrossrefBeginEndRegistersAgainstAnchor(t *testing.T) {
	c := testContext(t)
	feed(t, c,
		token.Token{Type: token.Tag, Value: "bookheader"},
		token.Token{Type: token.Text, Value: "John"},
		token.Token{Type: token.Tag, Value: "chapter"},
		token.Token{Type: token.Text, Value: "3"},
		token.Token{Type: token.Tag, Value: "verse"},
		token.Token{Type: token.Text, Value: "16"},
		token.Token{Type: token.Text, Value: "For God so loved"},
		token.Token{Type: token.Tag, Value: "crossref"},
		token.Token{Type: token.Text, Value: "17"},
		token.Token{Type: token.Text, Value: "see also"},
		token.Token{Type: token.EndTag},
	)
	if _, err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	ref := c.crossrefs.Find("John", 3, 16)
	if ref == nil {
		t.Fatal("expected a cross-reference registered against John 3:16")
	}
	if ref.Paragraph == nil || len(ref.Paragraph.Lines) == 0 {
		t.Fatal("expected the cross-reference's own content to be non-empty")
	}
}

func TestFinalizeRejectsUnclosedTag(t *testing.T) {
	c := testContext(t)
	feed(t, c, token.Token{Type: token.Tag, Value: "footnote"})
	if _, err := c.Finalize(); err == nil {
		t.Fatal("expected an error for an unclosed footnote at end of stream")
	}
}

func TestEndTagWithoutOpenTagFails(t *testing.T) {
	c := testContext(t)
	if err := c.Process(token.Token{Type: token.EndTag}); err == nil {
		t.Fatal("expected an error for an ENDTAG with nothing open")
	}
}

func TestOptimizeAndRenderSmokeTest(t *testing.T) {
	c := testContext(t)
	feed(t, c,
		token.Token{Type: token.Tag, Value: "bookheader"},
		token.Token{Type: token.Text, Value: "Psalms"},
		token.Token{Type: token.Tag, Value: "chapter"},
		token.Token{Type: token.Text, Value: "23"},
		token.Token{Type: token.Tag, Value: "verse"},
		token.Token{Type: token.Text, Value: "1"},
		token.Token{Type: token.Text, Value: "The Lord is my shepherd"},
		token.Token{Type: token.Paragraph},
	)
	paragraphs, err := c.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	plan, err := c.Optimize(paragraphs)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(plan.Pages) == 0 {
		t.Fatal("expected at least one page in the plan")
	}

	r := render.NewPDFRenderer(c.Reg)
	path := t.TempDir() + "/out.pdf"
	if err := c.Render(paragraphs, plan, r, path); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestFontSetFallsBackToBodyWhenUnset(t *testing.T) {
	fonts := FontSet{Body: &fontreg.Record{Nickname: "booktab"}}
	if fonts.chapterNum() != fonts.Body {
		t.Error("expected chapterNum() to fall back to Body")
	}
	if fonts.verseNum() != fonts.Body {
		t.Error("expected verseNum() to fall back to Body")
	}
	if fonts.footnoteMark() != fonts.Body {
		t.Error("expected footnoteMark() to fall back to Body")
	}
	if fonts.crossrefMarker() != fonts.Body {
		t.Error("expected crossrefMarker() to fall back to Body")
	}
	if fonts.crossrefText() != fonts.Body {
		t.Error("expected crossrefText() to fall back to Body")
	}
}
