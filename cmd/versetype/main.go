// Command versetype is the CLI entry point, grounded on
// original_source/generate.c's main(): read a profile, load its fonts,
// consume a token stream, and write the finished PDF.
//
// Usage:
//
//	versetype generate <profile> <tokens.jsonl>
//
// The markup tokenizer that produces a token stream from source files
// is an external collaborator, interface-only (out of scope per the
// Non-goals this lineage carries forward): tokens.jsonl is a stand-in
// input format, one JSON object per line shaped like token.Token, so
// this command is runnable without that collaborator.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/versetype/versetype/internal/config"
	"github.com/versetype/versetype/internal/engine"
	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/render"
	"github.com/versetype/versetype/internal/token"
	"github.com/versetype/versetype/layout"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		if err := runGenerate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`versetype - Bible-style document typesetting and pagination

Usage:
  versetype generate <profile> <tokens.jsonl>
  versetype help

tokens.jsonl is a stand-in for the markup tokenizer collaborator: one
JSON object per line, e.g. {"type":"TEXT","value":"hello"}.`)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: versetype generate <profile> <tokens.jsonl>")
	}
	profilePath := fs.Arg(0)
	tokensPath := fs.Arg(1)

	fmt.Fprintf(os.Stderr, "About to load profile %s\n", profilePath)
	profile, _, err := config.Load(profilePath)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	reg := fontreg.NewRegistry()
	fonts, err := loadFonts(reg, profile)
	if err != nil {
		return fmt.Errorf("loading fonts: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Loaded fonts")

	geom := geometryFromProfile(profile)
	c := engine.NewContext(reg, fonts, geom, 1.0, 40, 200, 12)

	toks, err := readTokens(tokensPath)
	if err != nil {
		return fmt.Errorf("reading tokens: %w", err)
	}
	for _, tok := range toks {
		if err := c.Process(tok); err != nil {
			return fmt.Errorf("processing token %d: %w", tok.Number, err)
		}
	}

	paragraphs, err := c.Finalize()
	if err != nil {
		return fmt.Errorf("finalizing document: %w", err)
	}

	plan, err := c.Optimize(paragraphs)
	if err != nil {
		return fmt.Errorf("optimizing page breaks: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Chose a %d-page plan, total penalty %d\n", len(plan.Pages), plan.TotalPenalty)

	r := render.NewPDFRenderer(reg)
	if err := c.Render(paragraphs, plan, r, profile.OutputFile); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", profile.OutputFile)
	return nil
}

// loadFonts registers every file-backed font a profile names, then
// derives the engine-only nicknames (chapter/verse numbers, footnote
// marks, cross-reference text) from whichever already-loaded face best
// fits each role, via fontreg.Registry.Adopt rather than a second file
// load: the profile format has no keys of its own for these (spec §6's
// config-reader collaborator owns the wire format; these are an
// engine-internal convention layered on top of it).
func loadFonts(reg *fontreg.Registry, p *config.Profile) (engine.FontSet, error) {
	red, err := parseHexColor(p.Red)
	if err != nil {
		return engine.FontSet{}, err
	}

	booktab, err := reg.Register("booktab", p.BooktabFontfile, layout.Abs(p.BooktabFontsize), layout.Color{})
	if err != nil {
		return engine.FontSet{}, err
	}
	if _, err := reg.Register("header", p.HeaderFontfile, layout.Abs(p.HeaderFontsize), layout.Color{}); err != nil {
		return engine.FontSet{}, err
	}
	blackletter, err := reg.Register("blackletter", p.BlackletterFontfile, layout.Abs(p.BlackletterFontsize), layout.Color{})
	if err != nil {
		return engine.FontSet{}, err
	}
	redletter, err := reg.Register("redletter", p.RedletterFontfile, layout.Abs(p.RedletterFontsize), red)
	if err != nil {
		return engine.FontSet{}, err
	}

	chapterNum := booktab.WithSize(booktab.Size * 2)
	chapterNum.Nickname = "chapternum"
	chapterNum.LineCount = 2
	reg.Adopt(chapterNum)

	verseNum := booktab.WithSize(booktab.Size * 0.7)
	verseNum.Nickname = "versenum"
	reg.Adopt(verseNum)

	footnoteMark := blackletter.WithSize(blackletter.Size * 0.7)
	footnoteMark.Nickname = "footnotemark"
	footnoteMark.BaselineDelta = blackletter.Size * 0.4
	reg.Adopt(footnoteMark)

	crossrefMarker := booktab.WithSize(booktab.Size * 0.8)
	crossrefMarker.Nickname = "crossrefmarker"
	reg.Adopt(crossrefMarker)

	crossrefText := redletter.WithSize(redletter.Size * 0.8)
	crossrefText.Nickname = "crossrefref"
	reg.Adopt(crossrefText)

	return engine.FontSet{
		Body:           blackletter,
		ChapterNum:     chapterNum,
		VerseNum:       verseNum,
		FootnoteMark:   footnoteMark,
		CrossrefMarker: crossrefMarker,
		CrossrefText:   crossrefText,
	}, nil
}

func geometryFromProfile(p *config.Profile) engine.Geometry {
	left := layout.Abs(p.LeftMargin)
	right := layout.Abs(p.RightMargin)
	width := layout.Abs(p.PageWidth)
	columnWidth := (width - left - right - layout.Abs(p.MarginparWidth) - layout.Abs(p.MarginparMargin)) / 2

	return engine.Geometry{
		PageWidth:  width,
		PageHeight: layout.Abs(p.PageHeight),

		LeftMargin:   left,
		RightMargin:  right,
		TopMargin:    layout.Abs(p.TopMargin),
		BottomMargin: layout.Abs(p.BottomMargin),

		MarginparWidth:  layout.Abs(p.MarginparWidth),
		MarginparMargin: layout.Abs(p.MarginparMargin),

		ColumnWidth:         columnWidth,
		MaxHangSpace:        layout.Abs(p.BooktabFontsize) / 2,
		FootnoteColumnWidth: columnWidth,
		CrossrefColumnWidth: layout.Abs(p.MarginparWidth),
	}
}

// parseHexColor parses a "#rrggbb" string (the profile format's Red
// key) into a layout.Color with each component in the 0..1 range.
func parseHexColor(s string) (layout.Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return layout.Color{}, fmt.Errorf("config: %q is not a #rrggbb color", s)
	}
	var r, g, b int
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return layout.Color{}, fmt.Errorf("config: %q is not a #rrggbb color: %w", s, err)
	}
	return layout.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, nil
}

// readTokens reads one JSON object with "type" and "value" fields per
// non-empty line, setting each token's Number to its 1-based line
// number in the file (blank lines are skipped but still counted).
func readTokens(path string) ([]token.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []token.Token
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		var raw struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		typ, err := parseTokenType(raw.Type)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		out = append(out, token.Token{Type: typ, Value: raw.Value, Number: lineNum})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseTokenType(s string) (token.Type, error) {
	switch s {
	case "TEXT":
		return token.Text, nil
	case "TAG":
		return token.Tag, nil
	case "ENDTAG":
		return token.EndTag, nil
	case "PARAGRAPH":
		return token.Paragraph, nil
	case "SPACE":
		return token.Space, nil
	default:
		return 0, fmt.Errorf("unknown token type %q", s)
	}
}
