// Package pdfplace places signature images on pages of PDF documents.
//
// Signatures are positioned the way a viewer shows the page: the anchor is
// the centre of the signature, measured from the top-left corner of the
// displayed page, so rotated and cropped pages behave as they look on screen.
// The source document is never rewritten; every placement is appended as an
// incremental update.
//
// Basic usage:
//
//	doc, err := pdfplace.OpenFile("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	img, err := doc.AddImage("signature", pngData)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	doc.Place(img).
//	    Page(1).
//	    Anchor(306, 396).
//	    Scale(0.5)
//
//	result, err := doc.Write(output)
package pdfplace

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/digitorus/pdfplace/images"
	"github.com/digitorus/pdfplace/viewer"
)

// Document represents a PDF document that signatures can be placed on.
type Document struct {
	data     []byte
	renderer *viewer.Renderer

	// Registered resources
	images map[string]*images.Image

	// Staged operations
	pendingPlacements []*PlaceBuilder

	// Document settings
	compressLevel int
	unit          float64
	producer      string
	updateInfo    bool
	validate      bool
}

// Open initializes a Document from an io.ReaderAt (e.g., an open file or
// memory buffer). The size parameter must be the total size of the PDF in
// bytes. The document is read into memory.
func Open(reader io.ReaderAt, size int64) (*Document, error) {
	data, err := io.ReadAll(io.NewSectionReader(reader, 0, size))
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	return OpenBytes(data)
}

// OpenBytes initializes a Document from PDF bytes. data is not modified.
func OpenBytes(data []byte) (*Document, error) {
	r, err := viewer.Open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Document{
		data:          data,
		renderer:      r,
		images:        make(map[string]*images.Image),
		compressLevel: zlib.DefaultCompression,
		unit:          1.0, // Default to PDF points
	}, nil
}

// OpenFile is a convenience method to initialize a Document from a file on
// disk.
func OpenFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return OpenBytes(data)
}

// SetCompression configures the zlib compression level for new objects added to the PDF.
// Supported levels are zlib.NoCompression, zlib.BestSpeed, zlib.BestCompression, or zlib.DefaultCompression.
func (d *Document) SetCompression(level int) {
	d.compressLevel = level
}

// SetUnit sets the scale of anchor coordinates for all subsequent
// placements. By default, the unit is 1.0 (one PDF point = 1/72 inch).
func (d *Document) SetUnit(u float64) {
	d.unit = u
}

// SetProducer records producer in the document information dictionary
// together with a new modification date.
func (d *Document) SetProducer(producer string) {
	d.producer = producer
	d.updateInfo = true
}

// SetValidate enables validation of the written document with pdfcpu.
func (d *Document) SetValidate(validate bool) {
	d.validate = validate
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int {
	return d.renderer.NumPages()
}

// Viewport returns the displayed size of page (1-based) in points.
func (d *Document) Viewport(page int) (viewer.Viewport, error) {
	return d.renderer.RenderPage(context.Background(), page, 1)
}

// Bytes returns the source document. The slice must not be modified.
func (d *Document) Bytes() []byte {
	return d.data
}

// Place begins placing img on the document. It returns a PlaceBuilder for
// fluent configuration; the placement is only written when doc.Write() is
// called.
func (d *Document) Place(img *images.Image) *PlaceBuilder {
	pb := &PlaceBuilder{
		doc:   d,
		img:   img,
		page:  1,
		scale: 1,
		unit:  d.unit, // Inherit from document
	}
	d.pendingPlacements = append(d.pendingPlacements, pb)
	return pb
}

// Reader returns the source document as an io.ReaderAt.
func (d *Document) Reader() io.ReaderAt {
	return bytes.NewReader(d.data)
}
