// Package overlay keeps track of the signature shown on top of a page: which
// signature is used and where, and at what size, it has been placed.
package overlay

import "github.com/digitorus/pdfplace/geometry"

// Placement is a signature position on one page. Anchor is the centre of the
// signature in native page space.
type Placement struct {
	Anchor    geometry.Point
	SizeScale float64
	PageIndex int
}

// Overlay holds the signature source and its current placement. It is not
// safe for concurrent use.
type Overlay struct {
	source    Source
	placement *Placement
	sizeScale float64
	page      int
}

// New returns an overlay for source on page 1.
func New(source Source) *Overlay {
	return &Overlay{
		source:    source,
		sizeScale: geometry.DefaultSizeScale,
		page:      1,
	}
}

// Source returns the active signature source.
func (o *Overlay) Source() Source {
	return o.source
}

// SetSource replaces the signature source. The placement is kept.
func (o *Overlay) SetSource(s Source) {
	o.source = s
}

// Page returns the page the overlay belongs to.
func (o *Overlay) Page() int {
	return o.page
}

// Place anchors the signature at anchor on page, replacing any previous
// placement, and returns it.
func (o *Overlay) Place(anchor geometry.Point, page int) Placement {
	o.page = page
	o.placement = &Placement{
		Anchor:    anchor,
		SizeScale: o.sizeScale,
		PageIndex: page,
	}
	return *o.placement
}

// Placement returns a copy of the current placement or nil.
func (o *Overlay) Placement() *Placement {
	if o.placement == nil {
		return nil
	}
	p := *o.placement
	return &p
}

// SizeScale returns the current size multiplier.
func (o *Overlay) SizeScale() float64 {
	return o.sizeScale
}

// SetSizeScale clamps s to the allowed range and applies it to the current
// placement and to future ones. It returns the value actually used.
func (o *Overlay) SetSizeScale(s float64) float64 {
	o.sizeScale = geometry.ClampSizeScale(s)
	if o.placement != nil {
		o.placement.SizeScale = o.sizeScale
	}
	return o.sizeScale
}

// Clear removes the placement. The source is left untouched. Calling Clear
// repeatedly has no further effect.
func (o *Overlay) Clear() {
	o.placement = nil
}

// PageChanged moves the overlay to page. When the page differs from the
// current one the placement is dropped and a live-drawn signature is reset.
// It reports whether anything was invalidated.
func (o *Overlay) PageChanged(page int) bool {
	if page == o.page {
		return false
	}
	o.page = page
	o.placement = nil
	if o.source.Kind() == LiveDrawn {
		o.source.Pad().Reset()
	}
	return true
}

// Box returns the on-screen preview box at zoom. ok is false when nothing is
// placed or the signature size is unknown.
func (o *Overlay) Box(zoom float64) (box geometry.Box, ok bool) {
	if o.placement == nil {
		return geometry.Box{}, false
	}
	w, h, known := o.source.Size()
	if !known {
		return geometry.Box{}, false
	}
	return geometry.UserSpaceToOverlayBox(o.placement.Anchor, w, h, o.placement.SizeScale, zoom), true
}
