// Package composite draws a signature image onto a page of an existing PDF.
//
// The source document is never rewritten. The image, the new page content and
// the replaced page dictionary are appended as an incremental update, followed
// by a cross-reference section in the same form (table or stream) as the
// source uses.
package composite

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"time"

	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/images"
	ipdf "github.com/digitorus/pdfplace/internal/pdf"
	"github.com/digitorus/pdfplace/overlay"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Options controls how the updated document is written.
type Options struct {
	// CompressLevel determines compression level (zlib) for stream objects.
	// The zero value writes uncompressed streams.
	CompressLevel int

	// UpdateInfo writes a new document information dictionary with
	// /ModDate set to ModDate (or the current time) and /Producer set to
	// Producer when not empty.
	UpdateInfo bool
	ModDate    time.Time
	Producer   string

	// Validate re-reads the result with pdfcpu in relaxed mode.
	Validate bool
}

// DefaultOptions returns compressed output without Info update or validation.
func DefaultOptions() *Options {
	return &Options{CompressLevel: zlib.DefaultCompression}
}

// Result describes a finished composite.
type Result struct {
	Data   []byte
	Matrix Matrix // image transformation matrix in user space
	Rect   [4]float64
}

// Composite places img on page pageIndex (1-based) of document and returns the
// complete updated document. placement.Anchor is interpreted in the native
// page space of the renderer that reported native.
//
// Missing placement or image is reported before the document is parsed.
func Composite(document []byte, pageIndex int, placement *overlay.Placement, img *images.Image, native geometry.Size, opts *Options) ([]byte, error) {
	res, err := CompositeResult(document, pageIndex, placement, img, native, opts)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// CompositeResult is like Composite but also reports where the image was drawn.
func CompositeResult(document []byte, pageIndex int, placement *overlay.Placement, img *images.Image, native geometry.Size, opts *Options) (res *Result, err error) {
	if placement == nil || img == nil {
		return nil, &IncompleteSignatureError{MissingPlacement: placement == nil, MissingImage: img == nil}
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	// The reader panics on some corrupt input.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &MalformedDocumentError{Err: fmt.Errorf("%v", r)}
		}
	}()

	context, err := newContext(document, opts.CompressLevel)
	if err != nil {
		return nil, &MalformedDocumentError{Err: err}
	}

	total := context.PDFReader.NumPage()
	if pageIndex < 1 || pageIndex > total {
		return nil, &PageIndexOutOfRangeError{Page: pageIndex, Total: total}
	}
	page, err := ipdf.Page(context.PDFReader, pageIndex)
	if err != nil {
		return nil, &MalformedDocumentError{Err: err}
	}

	m, err := context.stamp(page, placement, img, native)
	if err != nil {
		return nil, &MalformedDocumentError{Err: err}
	}

	if opts.UpdateInfo {
		modDate := opts.ModDate
		if modDate.IsZero() {
			modDate = time.Now()
		}
		if err := context.addInfo(modDate, opts.Producer); err != nil {
			return nil, &MalformedDocumentError{Err: err}
		}
	}

	if err := context.writeXref(); err != nil {
		return nil, &MalformedDocumentError{Err: err}
	}

	out := context.Bytes()
	if opts.Validate {
		if err := Validate(out); err != nil {
			return nil, &MalformedDocumentError{Err: err}
		}
	}

	return &Result{Data: out, Matrix: m, Rect: m.Rect()}, nil
}

// Validate checks data with pdfcpu in relaxed mode.
func Validate(data []byte) error {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
