package fontreg

import (
	"testing"

	"github.com/versetype/versetype/internal/font"
	"github.com/versetype/versetype/layout"
)

func TestRegistrySatisfiesMetrics(t *testing.T) {
	var _ Metrics = (*Registry)(nil)
}

func TestLookupUnregisteredReturnsNil(t *testing.T) {
	r := NewRegistry()
	if got := r.Lookup("nope"); got != nil {
		t.Errorf("expected nil for an unregistered nickname, got %+v", got)
	}
}

func TestWithSizeCopiesRecord(t *testing.T) {
	rec := &Record{Nickname: "body", Size: 12}
	smaller := rec.WithSize(8)
	if smaller.Size != 8 {
		t.Errorf("WithSize: got %v, want 8", smaller.Size)
	}
	if rec.Size != 12 {
		t.Error("WithSize must not mutate the original record")
	}
	if smaller.Nickname != rec.Nickname {
		t.Error("WithSize should preserve every other field")
	}
}

func TestTextWidthFallsBackWithoutFace(t *testing.T) {
	r := NewRegistry()
	rec := &Record{Nickname: "body", Font: &font.Font{Info: font.FontInfo{Family: "Body"}}, Size: 10}

	width := r.TextWidth(rec, "abc")
	if width <= 0 {
		t.Errorf("expected a positive fallback width, got %v", width)
	}
}

func TestMetricsAccessorsReadRecordFields(t *testing.T) {
	r := NewRegistry()
	rec := &Record{Ascent: 800, Descent: -200, LineGap: 90, CapHeight: 700}

	if r.Ascent(rec) != 800 {
		t.Errorf("Ascent: got %d", r.Ascent(rec))
	}
	if r.Descent(rec) != -200 {
		t.Errorf("Descent: got %d", r.Descent(rec))
	}
	if r.LineGap(rec) != 90 {
		t.Errorf("LineGap: got %d", r.LineGap(rec))
	}
	if r.CapHeight(rec) != 700 {
		t.Errorf("CapHeight: got %d", r.CapHeight(rec))
	}
}

func TestRegisterRejectsMissingFile(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register("body", "/nonexistent/path/font.ttf", 12, layout.Color{}); err == nil {
		t.Error("expected an error registering a nonexistent font file")
	}
}
