// Package viewer measures PDF pages for display.
//
// A PageRenderer reports the native size of a page, the size it has at zoom
// 1, and the pixel size it is rendered at for a given zoom. The built-in
// Renderer reads the page boxes with github.com/digitorus/pdf; rasterising
// page content is left to the presentation layer.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/digitorus/pdf"
	ipdf "github.com/digitorus/pdfplace/internal/pdf"
)

// Viewport is the measured size of a page.
type Viewport struct {
	PageIndex    int
	NativeWidth  float64
	NativeHeight float64
	Rotate       int

	// Scale is the zoom the page was rendered at; Width and Height are the
	// resulting pixel dimensions.
	Scale  float64
	Width  int
	Height int
}

// PageRenderer renders pages of a single document.
type PageRenderer interface {
	// NumPages returns the number of pages in the document.
	NumPages() int
	// RenderPage renders page pageIndex (1-based) at scale and reports its
	// measurements.
	RenderPage(ctx context.Context, pageIndex int, scale float64) (Viewport, error)
}

// LoadError is returned when a document cannot be parsed.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load document: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// PageRangeError is returned for a page index outside 1..Total.
type PageRangeError struct {
	Page  int
	Total int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("page %d out of range (1-%d)", e.Page, e.Total)
}

// ErrInvalidScale is returned for a non-positive render scale.
var ErrInvalidScale = errors.New("render scale must be positive")

// Renderer is a PageRenderer backed by github.com/digitorus/pdf. It is safe
// for concurrent use.
type Renderer struct {
	// mu guards reader, which caches resolved objects.
	mu     sync.Mutex
	reader *pdf.Reader
	pages  int
}

// Open parses data. The bytes are only read, never modified.
func Open(data []byte) (r *Renderer, err error) {
	// The reader panics on some corrupt input.
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, &LoadError{Err: fmt.Errorf("%v", rec)}
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	pages := rdr.NumPage()
	if pages < 1 {
		return nil, &LoadError{Err: errors.New("document has no pages")}
	}
	return &Renderer{reader: rdr, pages: pages}, nil
}

// OpenRenderer is Open returning the PageRenderer interface.
func OpenRenderer(data []byte) (PageRenderer, error) {
	r, err := Open(data)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// NumPages returns the number of pages.
func (r *Renderer) NumPages() int {
	return r.pages
}

// RenderPage measures page pageIndex. The native size is the displayed page
// size in points, with width and height swapped for quarter-turn rotations.
func (r *Renderer) RenderPage(ctx context.Context, pageIndex int, scale float64) (vp Viewport, err error) {
	if err := ctx.Err(); err != nil {
		return Viewport{}, err
	}
	if pageIndex < 1 || pageIndex > r.pages {
		return Viewport{}, &PageRangeError{Page: pageIndex, Total: r.pages}
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Viewport{}, ErrInvalidScale
	}

	defer func() {
		if rec := recover(); rec != nil {
			vp, err = Viewport{}, &LoadError{Err: fmt.Errorf("page %d: %v", pageIndex, rec)}
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	page, err := ipdf.Page(r.reader, pageIndex)
	if err != nil {
		return Viewport{}, &LoadError{Err: err}
	}
	geo := ipdf.PageGeometry(page)
	w, h := geo.DisplaySize()

	return Viewport{
		PageIndex:    pageIndex,
		NativeWidth:  w,
		NativeHeight: h,
		Rotate:       geo.Rotate,
		Scale:        scale,
		Width:        int(math.Round(w * scale)),
		Height:       int(math.Round(h * scale)),
	}, nil
}
