package pdfplace

import (
	"github.com/digitorus/pdfplace/composite"
	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/images"
)

// Image is a signature image registered with a document.
type Image = images.Image

// Result contains the result of a Write operation.
type Result struct {
	Placements []PlacementInfo
	Document   *Document
	// Size is the number of bytes written.
	Size int64
}

// PlacementInfo describes where a signature was drawn.
type PlacementInfo struct {
	Page  int
	Image string
	// Matrix maps the unit square onto the drawn image in PDF user space.
	Matrix composite.Matrix
	// Rect is the bounding box [llx lly urx ury] in PDF user space.
	Rect [4]float64
}

// PlaceBuilder builds a signature placement.
type PlaceBuilder struct {
	doc *Document
	img *images.Image

	page      int
	anchor    geometry.Point
	hasAnchor bool
	scale     float64
	reference geometry.Size
	unit      float64
}

// Page selects the page (1-based). Default is the first page.
func (b *PlaceBuilder) Page(page int) *PlaceBuilder {
	b.page = page
	return b
}

// Anchor sets the centre of the signature, measured from the top-left corner
// of the displayed page. Without an anchor the signature is centred on the
// page.
func (b *PlaceBuilder) Anchor(x, y float64) *PlaceBuilder {
	b.anchor = geometry.Point{X: x, Y: y}
	b.hasAnchor = true
	return b
}

// Scale sets the signature size relative to its pixel size, clamped to
// [0.1, 2.0]. Default is 1.0.
func (b *PlaceBuilder) Scale(s float64) *PlaceBuilder {
	b.scale = geometry.ClampSizeScale(s)
	return b
}

// Reference declares the displayed page size the anchor was measured
// against, for example the size reported by a different renderer. By default
// the anchor is in the page's own displayed points.
func (b *PlaceBuilder) Reference(width, height float64) *PlaceBuilder {
	b.reference = geometry.Size{Width: width, Height: height}
	return b
}

// Unit sets the coordinate system scale of the anchor.
//
// Example:
//
//	// Place signature at (20mm, 50mm)
//	doc.Place(img).Unit(72 / 25.4).Anchor(20, 50)
func (b *PlaceBuilder) Unit(u float64) *PlaceBuilder {
	b.unit = u
	return b
}
