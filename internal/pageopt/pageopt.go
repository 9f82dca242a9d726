// Package pageopt runs the whole-document page-break dynamic program
// (spec §4.4), grounded on original_source/page.c's
// page_optimal_render_tokens and page_score_at_this_starting_point.
//
// The C source enumerates every (paragraph, line, piece) position a
// page could conceivably start or end at, scores every reachable
// ending from every starting point, and keeps a Dijkstra-like
// backtrace of the cheapest way to reach each ending. This package
// keeps that DP structure but precomputes the position enumeration
// once (enumerate) instead of re-deriving the advance-to-next-position
// logic twice (once for the start loop, once nested for the end
// loop, as the C does).
package pageopt

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"github.com/versetype/versetype/internal/linemetrics"
	"github.com/versetype/versetype/internal/paragraph"
	"github.com/versetype/versetype/internal/span"
	"github.com/versetype/versetype/layout"
)

// Penalty constants from page_end and page_score_at_this_starting_point.
const (
	// UnderfullPagePenaltyMultiplier scales (100-fullness)^2 into the
	// same penalty units as line-break costs (UNDERFULL_PAGE_PENALTY_MULTIPLIER).
	UnderfullPagePenaltyMultiplier = 1
	// WidowPenalty is added once to a finished page whose last line is
	// tied to the line that would have followed it (WIDOW_PENALTY).
	WidowPenalty = 1_000_000

	// emptinessPenaltyInfeasible marks a candidate segment that would
	// overflow the column outright, matching the C constant
	// 100000000 used for the same purpose in the DP's cheaper,
	// in-progress emptiness estimate.
	emptinessPenaltyInfeasible = 100_000_000
)

// MetricsLookup returns the precomputed per-line metrics table for a
// paragraph/line pair, or nil if that paragraph has no lines (an
// empty, vspace-only paragraph). Callers typically back this with an
// in-memory map built while laying out paragraphs, optionally loaded
// from an on-disk cache keyed by confighash.LineCacheSeed.
type MetricsLookup func(para, line int) *linemetrics.Table

// FloatsLookup reports the page-cost contribution of the floating
// content (footnotes, cross-references) that would accompany a
// candidate page spanning [start, end]: the summed height of every
// footnote anchored within that span, plus the tallest-fitting
// cross-reference tail set the float manager can still place,
// matching spec §4.4's "Floats contribution". overflow reports that
// even the best-fitting cross-reference set ran past the page, the
// DP-level equivalent of page_score_at_this_starting_point's
// crossref-overflow branch. A nil FloatsLookup omits the term
// entirely (no footnotes or cross-references configured).
type FloatsLookup func(start, end span.Point) (height layout.Abs, overflow bool)

// PageBreak is one page of the optimal plan: the content spans
// [Start, End] inclusive of both endpoints, matching the original's
// convention of treating the ending position as inclusive.
type PageBreak struct {
	PageNumber int        `toml:"page_number"`
	Start      span.Point `toml:"start"`
	End        span.Point `toml:"end"`
	Penalty    int64      `toml:"penalty"`
	HeightPts  float64    `toml:"height_pts"`
}

// Plan is the full optimizer output, persistable so an unchanged
// document and configuration can skip re-running the DP.
type Plan struct {
	Pages        []PageBreak `toml:"pages"`
	TotalPenalty int64       `toml:"total_penalty"`
}

// Save writes the plan as TOML.
func (p *Plan) Save(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("pageopt: save plan: %w", err)
	}
	return nil
}

// LoadPlan reads a plan previously written by Plan.Save.
func LoadPlan(r io.Reader) (*Plan, error) {
	var p Plan
	if _, err := toml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("pageopt: load plan: %w", err)
	}
	return &p, nil
}

// breakpoint is one linearised candidate page-break position: the Go
// equivalent of a single iteration of page_optimal_render_tokens'
// start/end position advance logic.
type breakpoint struct {
	point    span.Point
	isVSpace bool // an empty paragraph, scored as a free pass-through
}

// enumerate walks paragraphs in document order, producing one
// breakpoint per empty paragraph and one breakpoint per piece of
// every line otherwise, in exactly the order the start and end
// position loops in page_optimal_render_tokens would visit them.
func enumerate(paragraphs []*paragraph.Paragraph) []breakpoint {
	var out []breakpoint
	for pi, p := range paragraphs {
		if len(p.Lines) == 0 {
			out = append(out, breakpoint{point: span.Point{Para: pi}, isVSpace: true})
			continue
		}
		for li, l := range p.Lines {
			n := len(l.Pieces)
			if n == 0 {
				n = 1
			}
			for pc := 0; pc < n; pc++ {
				out = append(out, breakpoint{point: span.Point{Para: pi, Line: li, Piece: pc}})
			}
		}
	}
	return out
}

// option is one backtrace entry: the cheapest way found so far to
// reach this position as the end of a page (struct page_option_record).
type option struct {
	valid     bool
	startIdx  int // index into positions of the previous page's last position (this page starts right after it), or -1 for the first page
	start     span.Point
	pageCount int
	penalty   int64      // cumulative penalty over the whole document through this page
	height    layout.Abs // this page's own height
}

// emptinessPenalty scores how far a candidate page's accumulated
// height falls short of filling the column, the DP's cheap
// in-progress proxy for true page fullness (the
// "Work out penalty for emptiness of page" block in
// page_score_at_this_starting_point).
func emptinessPenalty(thisHeight, avail layout.Abs) int64 {
	if avail <= 0 || thisHeight > avail {
		return emptinessPenaltyInfeasible
	}
	e := int(100 * thisHeight / avail)
	switch {
	case e < 0:
		e = 100
	case e > 100:
		e = 0
	default:
		e = 100 - e
	}
	return int64(16 * e * e)
}

// FullnessPenalty scores a page's departure from 100% full (page_end's
// fullness_penalty). scoreAt adds it to every candidate page on top of
// the emptinessPenalty estimate.
func FullnessPenalty(fullnessPercent float64) int64 {
	d := 100.0 - fullnessPercent
	return int64(d * d * UnderfullPagePenaltyMultiplier)
}

// WidowPenaltyFor returns WidowPenalty when a finished page ends on a
// line tied to the one that should have followed it, zero otherwise
// (page_end's widow_penalty).
func WidowPenaltyFor(tiedToNextLine bool) int64 {
	if tiedToNextLine {
		return WidowPenalty
	}
	return 0
}

// scoreAt evaluates every feasible page that could start at
// positions[startIdx], relaxing backtrace for each ending it reaches,
// mirroring page_score_at_this_starting_point. Beyond the DP's own
// emptiness estimate, every candidate page's thisPenalty also picks up
// the three cost terms spec §4.4 lists alongside it: FullnessPenalty's
// underfull-fraction extra, WidowPenaltyFor when the page would end on
// a line tied to the one that should follow it, and floatsLookup's
// footnote/cross-reference contribution.
func scoreAt(paragraphs []*paragraph.Paragraph, positions []breakpoint, lookup MetricsLookup, floatsLookup FloatsLookup, startIdx int, backtrace []option, columnHeight layout.Abs) {
	start := positions[startIdx].point
	checkpoint := start

	var penalty int
	var height layout.Abs
	var cumulativePenalty int64
	var cumulativeHeight layout.Abs

	var priorPenalty int64
	priorPageCount := 0
	if startIdx > 0 {
		priorPenalty = backtrace[startIdx-1].penalty
		priorPageCount = backtrace[startIdx-1].pageCount
	}

	for endIdx := startIdx; endIdx < len(positions); endIdx++ {
		end := positions[endIdx].point

		if end.Para != checkpoint.Para || end.Line != checkpoint.Line {
			cumulativePenalty += int64(penalty)
			cumulativeHeight += height
			checkpoint = span.Point{Para: end.Para, Line: end.Line}
		}

		if cumulativeHeight > columnHeight {
			break
		}

		table := lookup(checkpoint.Para, checkpoint.Line)
		if table == nil {
			// Empty (vspace) paragraph, or a line with no metrics
			// table yet: pass through with no contribution, exactly
			// as the original's "if (l) {...}" guard skips scoring.
			continue
		}

		cost, segHeight, feasible := table.At(checkpoint.Piece, end.Piece+1)
		if !feasible {
			continue
		}
		penalty = cost
		height = segHeight

		thisHeight := height + cumulativeHeight
		thisPenalty := int64(penalty) + cumulativePenalty + emptinessPenalty(thisHeight, columnHeight)

		fullness := 0.0
		if columnHeight > 0 {
			fullness = 100 * float64(thisHeight) / float64(columnHeight)
		}
		if fullness > 100 {
			fullness = 100
		} else if fullness < 0 {
			fullness = 0
		}
		thisPenalty += FullnessPenalty(fullness)

		if paragraphs[end.Para].Lines[end.Line].TiedToNextLine {
			thisPenalty += WidowPenaltyFor(true)
		}

		if floatsLookup != nil {
			floatsHeight, overflow := floatsLookup(start, end)
			if overflow {
				thisPenalty += emptinessPenaltyInfeasible
			} else {
				thisPenalty += int64(floatsHeight)
			}
		}

		candidate := priorPenalty + thisPenalty
		if !backtrace[endIdx].valid || candidate < backtrace[endIdx].penalty {
			backtrace[endIdx] = option{
				valid:     true,
				startIdx:  startIdx - 1,
				start:     start,
				penalty:   candidate,
				height:    thisHeight,
				pageCount: priorPageCount + 1,
			}
		}
	}
}

// Optimize computes the lowest-penalty way to divide paragraphs
// across pages of columnHeight usable height, by running the DP over
// every candidate starting position (page_optimal_render_tokens' main
// loop). progress, if non-nil, receives periodic position-count
// updates; pass nil to suppress. floatsLookup may be nil if the
// document carries no footnotes or cross-references.
func Optimize(paragraphs []*paragraph.Paragraph, lookup MetricsLookup, floatsLookup FloatsLookup, columnHeight layout.Abs, progress io.Writer) (*Plan, error) {
	positions := enumerate(paragraphs)
	if len(positions) == 0 {
		return &Plan{}, nil
	}

	backtrace := make([]option, len(positions))

	for i := range positions {
		if progress != nil && i%256 == 0 {
			fmt.Fprintf(progress, "\ranalysing page start position %d/%d", i, len(positions))
		}
		if positions[i].isVSpace {
			continue
		}
		scoreAt(paragraphs, positions, lookup, floatsLookup, i, backtrace, columnHeight)
	}
	if progress != nil {
		fmt.Fprintf(progress, "\nanalysed all %d possible page starting positions\n", len(positions))
	}

	last := len(positions) - 1
	if !backtrace[last].valid {
		return nil, fmt.Errorf("pageopt: no feasible page plan covers the whole document (failed at %s)", positions[last].point)
	}

	var order []int
	for pos := last; pos >= 0; {
		if !backtrace[pos].valid {
			return nil, fmt.Errorf("pageopt: no feasible page covers position %d (%s)", pos, positions[pos].point)
		}
		order = append(order, pos)
		next := backtrace[pos].startIdx
		if next >= pos {
			return nil, fmt.Errorf("pageopt: illegal step or loop in page optimisation backtrace at position %d", pos)
		}
		pos = next
	}

	pages := make([]PageBreak, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		end := order[i]
		prevCumulative := int64(0)
		if backtrace[end].startIdx >= 0 {
			prevCumulative = backtrace[backtrace[end].startIdx].penalty
		}
		pages = append(pages, PageBreak{
			PageNumber: len(pages) + 1,
			Start:      backtrace[end].start,
			End:        positions[end].point,
			Penalty:    backtrace[end].penalty - prevCumulative,
			HeightPts:  float64(backtrace[end].height),
		})
	}

	return &Plan{Pages: pages, TotalPenalty: backtrace[last].penalty}, nil
}
