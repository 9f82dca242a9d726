package paragraph

import (
	"testing"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/layout"
)

func testBuilder() *Builder {
	body := &fontreg.Record{Nickname: "booktab", Size: 10, Ascent: 800, Descent: 200, LineGap: 90, LineCount: 1}
	reg := fontreg.NewRegistry()
	return NewBuilder(reg, body, 400, 36, 36, 40, 1.0)
}

func TestAppendTextThenFlushProducesOneParagraph(t *testing.T) {
	b := testBuilder()
	b.AppendText("hello", 0, false, false, 1)
	b.AppendSpace(false, false, 2)
	b.AppendText("world", 0, false, false, 3)
	p := b.Flush()
	if p == nil {
		t.Fatal("expected a non-nil paragraph")
	}
	if len(p.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(p.Lines))
	}
	if len(p.Lines[0].Pieces) != 3 {
		t.Fatalf("expected 3 pieces (hello, space, world), got %d", len(p.Lines[0].Pieces))
	}
}

func TestFlushWithNothingAppendedReturnsNil(t *testing.T) {
	b := testBuilder()
	if p := b.Flush(); p != nil {
		t.Fatalf("expected nil paragraph from an empty builder, got %+v", p)
	}
}

func TestAppendSpaceAtStartOfLineIsDropped(t *testing.T) {
	b := testBuilder()
	b.AppendSpace(false, false, 1)
	b.AppendText("word", 0, false, false, 2)
	p := b.Flush()
	if p == nil || len(p.Lines[0].Pieces) != 1 {
		t.Fatalf("expected the leading space to be dropped, leaving 1 piece")
	}
}

func TestAppendThinSpaceHalvesWidthAndClearsElasticity(t *testing.T) {
	b := testBuilder()
	b.AppendText("word", 0, true, false, 1)
	full := b.reg.TextWidth(b.CurrentFont(), " ")
	b.AppendThinSpace(true, false, 2)
	ts := b.currentLine.Pieces[len(b.currentLine.Pieces)-1]
	if ts.Elastic {
		t.Fatal("thin space must not be elastic")
	}
	if ts.Width != full/2 {
		t.Fatalf("thin space width = %v, want half a full space (%v)", ts.Width, full/2)
	}
}

func TestPushPopStyleRestoresFont(t *testing.T) {
	b := testBuilder()
	original := b.CurrentFont()
	italic := &fontreg.Record{Nickname: "italic", Size: 10, LineCount: 1}

	if err := b.PushStyle(layout.AlignJustified, italic); err != nil {
		t.Fatalf("PushStyle: %v", err)
	}
	if b.CurrentFont() != italic {
		t.Fatal("expected current font to be italic after push")
	}
	if err := b.PopStyle(); err != nil {
		t.Fatalf("PopStyle: %v", err)
	}
	if b.CurrentFont() != original {
		t.Fatal("expected current font restored after pop")
	}
}

func TestPopStyleUnderflowErrors(t *testing.T) {
	b := testBuilder()
	if err := b.PopStyle(); err == nil {
		t.Fatal("expected an error popping an empty style stack")
	}
}

func TestStashAndFetchStyleRoundTrips(t *testing.T) {
	b := testBuilder()
	italic := &fontreg.Record{Nickname: "italic", Size: 10, LineCount: 1}
	b.PushStyle(layout.AlignJustified, italic)

	b.StashStyle()
	blackletter := &fontreg.Record{Nickname: "blackletter", Size: 12, LineCount: 1}
	b.ClearStyleStack(blackletter)
	if b.CurrentFont() != blackletter {
		t.Fatal("expected blackletter after clear")
	}

	b.FetchStyle(blackletter)
	if b.CurrentFont() != italic {
		t.Fatalf("expected stashed font (italic) restored, got %+v", b.CurrentFont())
	}
}

func TestSetWidowCounterTiesCurrentLine(t *testing.T) {
	b := testBuilder()
	b.AppendText("word", 0, false, false, 1)
	b.SetWidowCounter()
	if !b.currentLine.TiedToNextLine {
		t.Fatal("expected current line tied to next line")
	}
}

func TestInsertVSpaceFlushesAZeroPieceLine(t *testing.T) {
	b := testBuilder()
	b.AppendText("word", 0, false, false, 1)
	b.InsertVSpace(12, true)
	b.AppendText("more", 0, false, false, 2)
	p := b.Flush()
	if p == nil || len(p.Lines) != 3 {
		t.Fatalf("expected 3 lines (word, vspace, more), got %v", p)
	}
	if len(p.Lines[1].Pieces) != 0 || p.Lines[1].LineHeight != 12 {
		t.Fatalf("expected a 12pt zero-piece vspace line, got %+v", p.Lines[1])
	}
	if !p.Lines[1].TiedToNextLine {
		t.Fatal("expected vspace line tied to next line")
	}
}

func TestSmallCapsSplitsRunsByCase(t *testing.T) {
	b := testBuilder()
	b.currentFont = &fontreg.Record{Nickname: "dropcapsc", Size: 14, SmallCaps: true, SmallCapsScale: 0.8, LineCount: 1}
	b.AppendText("InTheBeginning", 0, true, false, 1)
	p := b.Flush()
	if p == nil {
		t.Fatal("expected a paragraph")
	}
	if len(p.Lines[0].Pieces) < 2 {
		t.Fatalf("expected multiple case-split pieces, got %d", len(p.Lines[0].Pieces))
	}
}
