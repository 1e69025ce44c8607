package pdfplace

import (
	"fmt"
	"io"
	"time"

	"github.com/digitorus/pdfplace/composite"
	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/overlay"
)

// Write finalizes the document by executing all staged placements and writes
// the resulting bytes to output. If multiple placements were staged, they are
// applied one after another, each as its own incremental update. Without
// staged placements the source document is written unchanged.
func (d *Document) Write(output io.Writer) (*Result, error) {
	result := &Result{
		Placements: make([]PlacementInfo, 0, len(d.pendingPlacements)),
		Document:   d,
	}

	opts := &composite.Options{
		CompressLevel: d.compressLevel,
		UpdateInfo:    d.updateInfo,
		Producer:      d.producer,
		Validate:      d.validate,
	}

	current := d.data
	for _, pb := range d.pendingPlacements {
		anchor, err := pb.resolveAnchor()
		if err != nil {
			return nil, err
		}

		placement := &overlay.Placement{
			Anchor:    anchor,
			SizeScale: pb.scale,
			PageIndex: pb.page,
		}
		if d.updateInfo {
			opts.ModDate = time.Now()
		}

		res, err := composite.CompositeResult(current, pb.page, placement, pb.img, pb.reference, opts)
		if err != nil {
			return nil, err
		}
		current = res.Data

		info := PlacementInfo{
			Page:   pb.page,
			Matrix: res.Matrix,
			Rect:   res.Rect,
		}
		if pb.img != nil {
			info.Image = pb.img.Name
		}
		result.Placements = append(result.Placements, info)
	}

	n, err := output.Write(current)
	if err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	result.Size = int64(n)
	d.pendingPlacements = nil
	return result, nil
}

// resolveAnchor returns the anchor in reference space, defaulting to the
// centre of the page.
func (b *PlaceBuilder) resolveAnchor() (geometry.Point, error) {
	if b.hasAnchor {
		return b.anchor.Scale(b.unit), nil
	}
	if b.reference.Valid() {
		return geometry.Point{X: b.reference.Width / 2, Y: b.reference.Height / 2}, nil
	}
	vp, err := b.doc.Viewport(b.page)
	if err != nil {
		return geometry.Point{}, &composite.PageIndexOutOfRangeError{Page: b.page, Total: b.doc.NumPages()}
	}
	return geometry.Point{X: vp.NativeWidth / 2, Y: vp.NativeHeight / 2}, nil
}
