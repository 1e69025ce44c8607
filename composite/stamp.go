package composite

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"math"
	"strings"

	"github.com/digitorus/pdf"
	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/images"
	ipdf "github.com/digitorus/pdfplace/internal/pdf"
	"github.com/digitorus/pdfplace/overlay"
)

// Matrix is a PDF transformation matrix [a b c d e f]. Applied as the image
// CTM it maps the image unit square onto the page.
type Matrix [6]float64

// Apply maps (x, y) through the matrix.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Rect returns the user space bounding box [llx lly urx ury] of the unit
// square under m.
func (m Matrix) Rect() [4]float64 {
	r := [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.Apply(c[0], c[1])
		r[0], r[1] = math.Min(r[0], x), math.Min(r[1], y)
		r[2], r[3] = math.Max(r[2], x), math.Max(r[3], y)
	}
	return r
}

// layout computes the image matrix for a signature of sigW x sigH pixels
// placed at anchor. The anchor is given in the renderer's native page space,
// whose width is native.Width; the authoritative page size is taken from geo.
// The image is drawn upright as seen on screen, also on rotated pages.
func layout(geo ipdf.Geometry, native geometry.Size, anchor geometry.Point, sizeScale, sigW, sigH float64) Matrix {
	pdfWidth, _ := geo.DisplaySize()
	pdfScale := 1.0
	if native.Width > 0 {
		pdfScale = pdfWidth / native.Width
	}

	w := sigW * pdfScale * sizeScale
	h := sigH * pdfScale * sizeScale
	left := anchor.X*pdfScale - w/2
	top := anchor.Y*pdfScale - h/2

	// Corners of the image in displayed page space: origin, x axis end and
	// y axis end of the image unit square.
	x0, y0 := geo.DisplayToUser(left, top+h)
	x1, y1 := geo.DisplayToUser(left+w, top+h)
	x2, y2 := geo.DisplayToUser(left, top)

	return Matrix{x1 - x0, y1 - y0, x2 - x0, y2 - y0, x0, y0}
}

// addStream appends a content stream object.
func (context *Context) addStream(data []byte) (uint32, error) {
	filter := ""
	if context.CompressLevel != zlib.NoCompression {
		var b bytes.Buffer
		zw, err := zlib.NewWriterLevel(&b, context.CompressLevel)
		if err != nil {
			return 0, err
		}
		if _, err := zw.Write(data); err != nil {
			return 0, err
		}
		if err := zw.Close(); err != nil {
			return 0, err
		}
		data = b.Bytes()
		filter = " /Filter /FlateDecode"
	}

	var obj bytes.Buffer
	fmt.Fprintf(&obj, "<< /Length %d%s >>\nstream\n", len(data), filter)
	obj.Write(data)
	obj.WriteString("\nendstream")
	return context.addObject(obj.Bytes())
}

// stamp draws img onto page and rewrites the page dictionary. The existing
// content is wrapped in q/Q so that an unbalanced graphics state cannot leak
// into the signature drawing.
func (context *Context) stamp(page pdf.Value, placement *overlay.Placement, img *images.Image, native geometry.Size) (Matrix, error) {
	geo := ipdf.PageGeometry(page)
	sigW, sigH := img.Size()
	m := layout(geo, native, placement.Anchor, geometry.ClampSizeScale(placement.SizeScale), sigW, sigH)

	imageID, err := context.addImage(img)
	if err != nil {
		return m, fmt.Errorf("failed to embed signature image: %w", err)
	}
	name := ipdf.UniqueName(ipdf.ResourceNames(page, "XObject"), "Sig")

	refs, err := ipdf.ContentRefs(page)
	if err != nil {
		return m, err
	}

	var contents []string
	var stream bytes.Buffer
	if len(refs) > 0 {
		openID, err := context.addStream([]byte("q\n"))
		if err != nil {
			return m, fmt.Errorf("failed to add content prefix: %w", err)
		}
		contents = append(contents, fmt.Sprintf("%d 0 R", openID))
		for _, ref := range refs {
			contents = append(contents, ref.String())
		}
		stream.WriteString("Q\n")
	}

	nums := make([]string, len(m))
	for i, v := range m {
		nums[i] = formatNumber(v)
	}
	fmt.Fprintf(&stream, "q %s cm %s Do Q\n", strings.Join(nums, " "), pdfName(name))

	stampID, err := context.addStream(stream.Bytes())
	if err != nil {
		return m, fmt.Errorf("failed to add signature content: %w", err)
	}
	contents = append(contents, fmt.Sprintf("%d 0 R", stampID))

	var buf bytes.Buffer
	buf.WriteString("<<")
	writeDictEntries(&buf, page, map[string]bool{"Contents": true, "Resources": true})
	buf.WriteString(" /Contents [" + strings.Join(contents, " ") + "]")
	buf.WriteString(" /Resources ")
	writeResources(&buf, page, name, imageID)
	buf.WriteString(" >>")

	ptr := page.GetPtr()
	if err := context.updateObject(ptr.GetID(), ptr.GetGen(), buf.Bytes()); err != nil {
		return m, fmt.Errorf("failed to update page: %w", err)
	}
	return m, nil
}

// writeResources writes the effective page resources with the signature
// image added to /XObject.
func writeResources(buf *bytes.Buffer, page pdf.Value, name string, imageID uint32) {
	resources := ipdf.Inherited(page, "Resources")

	buf.WriteString("<<")
	if resources.Kind() == pdf.Dict {
		writeDictEntries(buf, resources, map[string]bool{"XObject": true})
	}
	buf.WriteString(" /XObject <<")
	if xobjects := resources.Key("XObject"); xobjects.Kind() == pdf.Dict {
		writeDictEntries(buf, xobjects, nil)
	}
	fmt.Fprintf(buf, " %s %d 0 R >> >>", pdfName(name), imageID)
}
