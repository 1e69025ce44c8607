package pdf

import (
	"fmt"
	"math"

	pdflib "github.com/digitorus/pdf"
)

// letterBox is used when a page carries no usable MediaBox.
var letterBox = [4]float64{0, 0, 612, 792}

// Geometry describes how a page is displayed.
type Geometry struct {
	// Box is the visible region in user space: the CropBox clipped to the
	// MediaBox, normalised so that Box[0] <= Box[2] and Box[1] <= Box[3].
	Box [4]float64
	// Rotate is the clockwise display rotation, one of 0, 90, 180 or 270.
	Rotate int
}

// Width returns the unrotated width of the visible box.
func (g Geometry) Width() float64 {
	return g.Box[2] - g.Box[0]
}

// Height returns the unrotated height of the visible box.
func (g Geometry) Height() float64 {
	return g.Box[3] - g.Box[1]
}

// DisplaySize returns the page size as it appears on screen, with width and
// height swapped for quarter turns.
func (g Geometry) DisplaySize() (float64, float64) {
	if g.Rotate == 90 || g.Rotate == 270 {
		return g.Height(), g.Width()
	}
	return g.Width(), g.Height()
}

// DisplayToUser maps a point given in displayed page coordinates (origin at the
// top-left corner of the page as shown, y growing downwards, unit = 1 point)
// to PDF user space.
func (g Geometry) DisplayToUser(dx, dy float64) (float64, float64) {
	x0, y0, x1, y1 := g.Box[0], g.Box[1], g.Box[2], g.Box[3]
	switch g.Rotate {
	case 90:
		return x0 + dy, y0 + dx
	case 180:
		return x1 - dx, y0 + dy
	case 270:
		return x1 - dy, y1 - dx
	default:
		return x0 + dx, y1 - dy
	}
}

// UserToDisplay is the inverse of DisplayToUser.
func (g Geometry) UserToDisplay(x, y float64) (float64, float64) {
	x0, y0, x1, y1 := g.Box[0], g.Box[1], g.Box[2], g.Box[3]
	switch g.Rotate {
	case 90:
		return y - y0, x - x0
	case 180:
		return x1 - x, y - y0
	case 270:
		return y1 - y, x1 - x
	default:
		return x - x0, y1 - y
	}
}

// Inherited looks up key on the page dictionary and, when absent, on its
// ancestors in the page tree.
func Inherited(page pdflib.Value, key string) pdflib.Value {
	for depth := 0; depth < 64 && !page.IsNull(); depth++ {
		if v := page.Key(key); !v.IsNull() {
			return v
		}
		page = page.Key("Parent")
	}
	return pdflib.Value{}
}

func readRect(v pdflib.Value) ([4]float64, bool) {
	var r [4]float64
	if v.Kind() != pdflib.Array || v.Len() < 4 {
		return r, false
	}
	for i := 0; i < 4; i++ {
		r[i] = v.Index(i).Float64()
	}
	// Normalise corners.
	if r[0] > r[2] {
		r[0], r[2] = r[2], r[0]
	}
	if r[1] > r[3] {
		r[1], r[3] = r[3], r[1]
	}
	if r[2]-r[0] <= 0 || r[3]-r[1] <= 0 {
		return r, false
	}
	return r, true
}

func intersect(a, b [4]float64) ([4]float64, bool) {
	r := [4]float64{
		math.Max(a[0], b[0]),
		math.Max(a[1], b[1]),
		math.Min(a[2], b[2]),
		math.Min(a[3], b[3]),
	}
	if r[2]-r[0] <= 0 || r[3]-r[1] <= 0 {
		return a, false
	}
	return r, true
}

// PageGeometry reads the effective visible box and rotation of a page.
func PageGeometry(page pdflib.Value) Geometry {
	media, ok := readRect(Inherited(page, "MediaBox"))
	if !ok {
		media = letterBox
	}

	box := media
	if crop, ok := readRect(Inherited(page, "CropBox")); ok {
		if clipped, ok := intersect(crop, media); ok {
			box = clipped
		}
	}

	rotate := int(Inherited(page, "Rotate").Int64()) % 360
	if rotate < 0 {
		rotate += 360
	}
	if rotate%90 != 0 {
		rotate = 0
	}

	return Geometry{Box: box, Rotate: rotate}
}

// Page returns the page dictionary for a 1-based page number.
func Page(r *pdflib.Reader, pageNum int) (pdflib.Value, error) {
	if r == nil {
		return pdflib.Value{}, fmt.Errorf("no reader available")
	}
	total := r.NumPage()
	if pageNum < 1 || pageNum > total {
		return pdflib.Value{}, fmt.Errorf("page %d out of range (1-%d)", pageNum, total)
	}
	page := r.Page(pageNum)
	if page.V.IsNull() {
		return pdflib.Value{}, fmt.Errorf("page %d not found", pageNum)
	}
	return page.V, nil
}
