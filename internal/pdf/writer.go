package pdf

import (
	"fmt"
	"io"
	"sort"
)

// Version identifies the PDF version written in the file header.
type Version int

const (
	V1_4 Version = iota
	V1_5
	V1_6
	V1_7
	V2_0
)

func (v Version) header() string {
	switch v {
	case V1_4:
		return "%PDF-1.4"
	case V1_5:
		return "%PDF-1.5"
	case V1_6:
		return "%PDF-1.6"
	case V2_0:
		return "%PDF-2.0"
	default:
		return "%PDF-1.7"
	}
}

// Writer accumulates indirect objects under allocated references and
// serializes them, in object-number order, as a complete PDF file:
// header, body, cross-reference table and trailer.
type Writer struct {
	version Version
	next    int
	objects map[int]Object
	catalog Ref
	info    Ref
}

// NewWriter creates an empty writer at the given PDF version.
func NewWriter(version Version) *Writer {
	return &Writer{
		version: version,
		objects: make(map[int]Object),
	}
}

// Alloc reserves the next object number without attaching an object to
// it yet, so a reference can be embedded in another object (e.g. a page
// tree's Parent pointer) before the referent itself is written.
func (w *Writer) Alloc() Ref {
	w.next++
	return NewRef(w.next, 0)
}

// allocRef is an unexported alias of Alloc for call sites within this
// package that allocate fresh font-embedding references.
func (w *Writer) allocRef() Ref { return w.Alloc() }

// Write attaches obj to ref, which must have come from Alloc.
func (w *Writer) Write(ref Ref, obj Object) {
	w.objects[ref.Num()] = obj
}

// addObjectWithRef is an unexported alias of Write used by the font
// embedding path, which already has its references pre-allocated.
func (w *Writer) addObjectWithRef(ref Ref, obj Object) { w.Write(ref, obj) }

// SetCatalog records the document's root Catalog reference for the trailer.
func (w *Writer) SetCatalog(ref Ref) { w.catalog = ref }

// SetInfo records the document's Info dictionary reference for the trailer.
func (w *Writer) SetInfo(ref Ref) { w.info = ref }

// Finish serializes every attached object to out as a complete PDF
// file: version header, binary marker (so FTP/mail gateways that sniff
// for text treat the file as binary), each indirect object in number
// order, a cross-reference table recording each object's byte offset,
// and a trailer pointing at the xref table, root and info dictionary.
func (w *Writer) Finish(out io.Writer) error {
	cw := &countingWriter{w: out}

	if _, err := fmt.Fprintf(cw, "%s\n%%\x80\x81\x82\x83\n", w.version.header()); err != nil {
		return err
	}

	nums := make([]int, 0, len(w.objects))
	for n := range w.objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	offsets := make(map[int]int64, len(nums))
	for _, n := range nums {
		offsets[n] = cw.count
		if _, err := fmt.Fprintf(cw, "%d 0 obj\n", n); err != nil {
			return err
		}
		if _, err := w.objects[n].writeTo(cw); err != nil {
			return err
		}
		if _, err := io.WriteString(cw, "\nendobj\n"); err != nil {
			return err
		}
	}

	xrefOffset := cw.count
	maxNum := 0
	if len(nums) > 0 {
		maxNum = nums[len(nums)-1]
	}

	if _, err := fmt.Fprintf(cw, "xref\n0 %d\n", maxNum+1); err != nil {
		return err
	}
	if _, err := io.WriteString(cw, "0000000000 65535 f \n"); err != nil {
		return err
	}
	for n := 1; n <= maxNum; n++ {
		offset, ok := offsets[n]
		if !ok {
			if _, err := io.WriteString(cw, "0000000000 00000 f \n"); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(cw, "%010d 00000 n \n", offset); err != nil {
			return err
		}
	}

	trailer := Dict{
		Name("Size"): Int(maxNum + 1),
	}
	if !w.catalog.IsZero() {
		trailer[Name("Root")] = w.catalog
	}
	if !w.info.IsZero() {
		trailer[Name("Info")] = w.info
	}

	if _, err := io.WriteString(cw, "trailer\n"); err != nil {
		return err
	}
	if _, err := trailer.writeTo(cw); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cw, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return err
}

// countingWriter tracks bytes written so Finish can record object and
// xref-table byte offsets as it streams the file out.
type countingWriter struct {
	w     io.Writer
	count int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += int64(n)
	return n, err
}
