// Package geometry converts between the three coordinate spaces involved in
// placing a signature: screen pixels, the rendered page viewport and the
// native (zoom independent) page space reported by the renderer.
//
// Native space has its origin at the top-left corner of the displayed page and
// uses the same units as the renderer's page width and height at scale 1.
// Conversion into PDF user space happens in the composite package.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinZoom is the smallest zoom factor the viewer accepts.
	MinZoom = 0.3
	// MaxZoom is the largest zoom factor the viewer accepts.
	MaxZoom = 3.0
	// ZoomStep is the increment used by ZoomIn and ZoomOut.
	ZoomStep = 0.2

	// MinSizeScale is the smallest signature size multiplier.
	MinSizeScale = 0.1
	// MaxSizeScale is the largest signature size multiplier.
	MaxSizeScale = 2.0
	// DefaultSizeScale renders the signature at its native pixel size.
	DefaultSizeScale = 1.0
)

// ErrNoContainer is returned when a click arrives before the viewer container
// has a known position on screen.
var ErrNoContainer = errors.New("viewer container is not mounted")

// Point is a position in one of the coordinate spaces.
type Point struct {
	X, Y float64
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Scale returns p multiplied by f.
func (p Point) Scale(f float64) Point {
	return Point{p.X * f, p.Y * f}
}

// Box is an axis aligned rectangle with a top-left origin, as used for the
// on-screen signature preview.
type Box struct {
	Top, Left     float64
	Width, Height float64
}

// Center returns the centre of the box.
func (b Box) Center() Point {
	return Point{b.Left + b.Width/2, b.Top + b.Height/2}
}

// Size is a width/height pair.
type Size struct {
	Width, Height float64
}

// Valid reports whether both dimensions are strictly positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// ScreenToUserSpace converts a pointer position in screen pixels into native
// page space. The position is first made relative to the scrollable container
// (origin is the container's top-left corner on screen, scroll its current
// scroll offset) and the zoom factor is then divided out.
//
// A nil origin means the container is not mounted yet; the click is rejected
// with ErrNoContainer rather than computed against a zero origin.
func ScreenToUserSpace(click Point, origin *Point, scroll Point, zoom float64) (Point, error) {
	if origin == nil {
		return Point{}, ErrNoContainer
	}
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return Point{}, fmt.Errorf("invalid zoom scale %v", zoom)
	}
	rel := click.Sub(*origin).Add(scroll)
	return rel.Scale(1 / zoom), nil
}

// UserSpaceToOverlayBox returns the on-screen box of the signature preview,
// centred on anchor. The signature's native pixel size is multiplied by both
// the user selected size scale and the current zoom.
func UserSpaceToOverlayBox(anchor Point, sigWidth, sigHeight, sizeScale, zoom float64) Box {
	w := sigWidth * sizeScale * zoom
	h := sigHeight * sizeScale * zoom
	return Box{
		Left:   anchor.X*zoom - w/2,
		Top:    anchor.Y*zoom - h/2,
		Width:  w,
		Height: h,
	}
}

// OverlayBoxToUserSpace is the inverse of UserSpaceToOverlayBox: it recovers
// the native-space anchor from a preview box.
func OverlayBoxToUserSpace(box Box, zoom float64) Point {
	return box.Center().Scale(1 / zoom)
}
