// Package span defines the (paragraph, line, piece) coordinate used to
// address a position within the whole document, the unit both the
// line-metrics cache and the page-break optimizer operate on (spec
// §3, §4.2-§4.4).
package span

import "fmt"

// Point addresses a single piece boundary: paragraph index, line
// index within that paragraph, and piece index within that line.
// Ranges of document content are expressed as a [Start, End) pair of
// Points (original_source/columns.c's six-integer span tuples).
type Point struct {
	Para  int
	Line  int
	Piece int
}

// Less reports whether p sorts strictly before q in document order.
func (p Point) Less(q Point) bool {
	if p.Para != q.Para {
		return p.Para < q.Para
	}
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Piece < q.Piece
}

// String renders the point in "para:line.piece" form, matching the
// diagnostic format used throughout the original column-balancing
// logging.
func (p Point) String() string {
	return fmt.Sprintf("%d:%d.%d", p.Para, p.Line, p.Piece)
}

// Range is a half-open [Start, End) span of document content.
type Range struct {
	Start Point
	End   Point
}

// Empty reports whether the range contains no content.
func (r Range) Empty() bool {
	return !r.Start.Less(r.End)
}
