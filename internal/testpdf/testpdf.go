// Package testpdf builds small, deterministic PDF documents for tests.
package testpdf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/digitorus/pdf"
)

// Page describes a single page of a generated document.
type Page struct {
	MediaBox []float64 // omitted when nil
	CropBox  []float64 // omitted when nil
	Rotate   int
	Content  string   // page content stream; no /Contents when empty
	XObjects []string // names of placeholder image XObjects in the page resources
}

// Options controls document generation.
type Options struct {
	Pages []Page
	// InheritedMediaBox is written on the page tree root instead of the pages.
	InheritedMediaBox []float64
	// XrefStream writes a cross-reference stream instead of a classic table.
	XrefStream bool
	// NoInfo omits the document information dictionary.
	NoInfo bool
}

type writer struct {
	buf     bytes.Buffer
	offsets map[int]int
	next    int
}

func (w *writer) alloc() int {
	id := w.next
	w.next++
	return id
}

func (w *writer) object(id int, body string) {
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (w *writer) stream(id int, dict string, data []byte) {
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", id, dict, len(data))
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func rect(r []float64) string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Build renders the document described by opts.
func Build(opts Options) []byte {
	w := &writer{offsets: map[int]int{}, next: 1}
	w.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	catalogID := w.alloc()
	pagesID := w.alloc()
	infoID := 0
	if !opts.NoInfo {
		infoID = w.alloc()
	}

	pageIDs := make([]int, len(opts.Pages))
	for i := range opts.Pages {
		pageIDs[i] = w.alloc()
	}

	w.object(catalogID, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID))

	kids := make([]string, len(pageIDs))
	for i, id := range pageIDs {
		kids[i] = fmt.Sprintf("%d 0 R", id)
	}
	pages := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), len(pageIDs))
	if opts.InheritedMediaBox != nil {
		pages += " /MediaBox " + rect(opts.InheritedMediaBox)
	}
	w.object(pagesID, pages+" >>")

	if infoID != 0 {
		w.object(infoID, "<< /Producer (testpdf) /Title (Fixture) >>")
	}

	for i, p := range opts.Pages {
		var dict strings.Builder
		fmt.Fprintf(&dict, "<< /Type /Page /Parent %d 0 R", pagesID)
		if p.MediaBox != nil {
			dict.WriteString(" /MediaBox " + rect(p.MediaBox))
		}
		if p.CropBox != nil {
			dict.WriteString(" /CropBox " + rect(p.CropBox))
		}
		if p.Rotate != 0 {
			fmt.Fprintf(&dict, " /Rotate %d", p.Rotate)
		}

		if p.Content != "" {
			contentID := w.alloc()
			w.stream(contentID, "", []byte(p.Content))
			fmt.Fprintf(&dict, " /Contents %d 0 R", contentID)
		}

		if len(p.XObjects) > 0 {
			var xobjects []string
			for _, name := range p.XObjects {
				imgID := w.alloc()
				w.stream(imgID, "/Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8", []byte{0})
				xobjects = append(xobjects, fmt.Sprintf("/%s %d 0 R", name, imgID))
			}
			resID := w.alloc()
			w.object(resID, fmt.Sprintf("<< /ProcSet [/PDF /ImageC] /XObject << %s >> >>", strings.Join(xobjects, " ")))
			fmt.Fprintf(&dict, " /Resources %d 0 R", resID)
		} else {
			dict.WriteString(" /Resources << /ProcSet [/PDF] >>")
		}

		dict.WriteString(" >>")
		w.object(pageIDs[i], dict.String())
	}

	trailer := fmt.Sprintf("/Root %d 0 R", catalogID)
	if infoID != 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", infoID)
	}
	trailer += " /ID [<0123456789abcdef0123456789abcdef> <0123456789abcdef0123456789abcdef>]"

	if opts.XrefStream {
		w.writeXrefStream(trailer)
	} else {
		w.writeXrefTable(trailer)
	}
	return w.buf.Bytes()
}

func (w *writer) writeXrefTable(trailer string) {
	start := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", w.next)
	w.buf.WriteString("0000000000 65535 f\r\n")
	for id := 1; id < w.next; id++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n\r\n", w.offsets[id])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", w.next, trailer, start)
}

func (w *writer) writeXrefStream(trailer string) {
	xrefID := w.alloc()
	start := w.buf.Len()
	w.offsets[xrefID] = start

	var rows bytes.Buffer
	row := func(typ byte, field2 uint32, field3 byte) {
		rows.WriteByte(typ)
		var off [4]byte
		binary.BigEndian.PutUint32(off[:], field2)
		rows.Write(off[:])
		rows.WriteByte(field3)
	}
	row(0, 0, 255)
	for id := 1; id < w.next; id++ {
		row(1, uint32(w.offsets[id]), 0)
	}

	var data bytes.Buffer
	zw := zlib.NewWriter(&data)
	zw.Write(rows.Bytes())
	zw.Close()

	fmt.Fprintf(&w.buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 1] /Filter /FlateDecode %s /Length %d >>\nstream\n",
		xrefID, w.next, trailer, data.Len())
	w.buf.Write(data.Bytes())
	fmt.Fprintf(&w.buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", start)
}

// Letter returns a document with n blank 612x792 point pages.
func Letter(n int) []byte {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{
			MediaBox: []float64{0, 0, 612, 792},
			Content:  "0 0 m 10 10 l S",
		}
	}
	return Build(Options{Pages: pages})
}

// Contents returns the decoded content streams of page, joined by newlines.
func Contents(page pdf.Value) ([]byte, error) {
	contents := page.Key("Contents")
	if contents.IsNull() {
		return nil, nil
	}
	if contents.Kind() != pdf.Array {
		return readStream(contents)
	}

	var buf bytes.Buffer
	for i := 0; i < contents.Len(); i++ {
		data, err := readStream(contents.Index(i))
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func readStream(v pdf.Value) ([]byte, error) {
	reader := v.Reader()
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read content stream: %w", err)
	}
	return data, nil
}
