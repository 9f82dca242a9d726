package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/versetype/versetype/internal/font"
	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/layout"
)

func testRecord(family string) *fontreg.Record {
	return &fontreg.Record{
		Nickname: family,
		Font:     &font.Font{Info: font.FontInfo{Family: family}},
		Size:     12,
	}
}

func TestPDFRendererSinglePage(t *testing.T) {
	r := NewPDFRenderer(fontreg.NewRegistry())

	if err := r.NewPage(432, 648); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	r.BeginText()
	if err := r.SetFontAndSize(testRecord("Body"), 12); err != nil {
		t.Fatalf("SetFontAndSize: %v", err)
	}
	r.SetFillRGB(0, 0, 0)
	if err := r.TextOut(72, 700, "hello"); err != nil {
		t.Fatalf("TextOut: %v", err)
	}
	r.EndText()

	r.Rectangle(72, 72, 100, 2)
	r.Fill()

	path := filepath.Join(t.TempDir(), "out.pdf")
	if err := r.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "%PDF-1.7\n") {
		t.Errorf("expected PDF-1.7 header, got %q", out[:20])
	}
	if !strings.Contains(out, "/Type /Page") {
		t.Error("expected a page object")
	}
	if !strings.Contains(out, "/Font") {
		t.Error("expected a font resource entry")
	}
	if !strings.Contains(out, "trailer") {
		t.Error("expected a trailer")
	}
}

func TestPDFRendererMultiplePages(t *testing.T) {
	r := NewPDFRenderer(fontreg.NewRegistry())

	for i := 0; i < 3; i++ {
		if err := r.NewPage(432, 648); err != nil {
			t.Fatalf("NewPage %d: %v", i, err)
		}
		r.BeginText()
		if err := r.SetFontAndSize(testRecord("Body"), 12); err != nil {
			t.Fatalf("SetFontAndSize: %v", err)
		}
		if err := r.TextOut(72, 700, "page"); err != nil {
			t.Fatalf("TextOut: %v", err)
		}
		r.EndText()
	}

	path := filepath.Join(t.TempDir(), "out.pdf")
	if err := r.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.Count(string(data), "/Type /Page"); got < 3 {
		t.Errorf("expected at least 3 page objects, got %d", got)
	}
	if got := r.fonts.Fonts(); len(got) != 1 {
		t.Errorf("expected the single shared font to be reused across pages, got %d entries", len(got))
	}
}

func TestPDFRendererRejectsTextOutBeforeFont(t *testing.T) {
	r := NewPDFRenderer(fontreg.NewRegistry())
	if err := r.NewPage(432, 648); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := r.TextOut(0, 0, "x"); err == nil {
		t.Error("expected an error for TextOut before SetFontAndSize")
	}
}

func TestPDFRendererRejectsNilFont(t *testing.T) {
	r := NewPDFRenderer(fontreg.NewRegistry())
	if err := r.NewPage(432, 648); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := r.SetFontAndSize(nil, 12); err == nil {
		t.Error("expected an error for a nil font record")
	}
}

func TestPDFRendererSetTextMatrix(t *testing.T) {
	r := NewPDFRenderer(fontreg.NewRegistry())
	if err := r.NewPage(432, 648); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	// Rotated booktab label: should not panic and should accept
	// arbitrary a/b/c/d coefficients, not just axis-aligned ones.
	r.SetTextMatrix(0, 1, -1, 0, float64(layout.Abs(10)), float64(layout.Abs(20)))
}
