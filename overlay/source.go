package overlay

import "github.com/digitorus/pdfplace/images"

// Kind identifies the variant of a Source.
type Kind int

const (
	// None means no signature is available; the viewer is read-only.
	None Kind = iota
	// StaticImage is a pre-rendered raster signature.
	StaticImage
	// LiveDrawn is a signature drawn on a Pad.
	LiveDrawn
)

func (k Kind) String() string {
	switch k {
	case StaticImage:
		return "static-image"
	case LiveDrawn:
		return "live-drawn"
	default:
		return "none"
	}
}

// Source is the signature that gets placed: nothing, a loaded image or a
// live drawing pad. The zero value is a None source.
type Source struct {
	kind  Kind
	image *images.Image
	pad   *Pad
}

// NoSource returns a None source.
func NoSource() Source {
	return Source{}
}

// Static returns a source backed by a decoded image. A nil image yields a None
// source.
func Static(img *images.Image) Source {
	if img == nil {
		return Source{}
	}
	return Source{kind: StaticImage, image: img}
}

// Live returns a source backed by a drawing pad.
func Live(pad *Pad) Source {
	if pad == nil {
		return Source{}
	}
	return Source{kind: LiveDrawn, pad: pad}
}

// Kind returns the variant.
func (s Source) Kind() Kind {
	return s.kind
}

// Pad returns the drawing pad of a LiveDrawn source.
func (s Source) Pad() *Pad {
	return s.pad
}

// Image returns the raster to embed. It is nil for a None source and for an
// empty pad.
func (s Source) Image() (*images.Image, error) {
	switch s.kind {
	case StaticImage:
		return s.image, nil
	case LiveDrawn:
		return s.pad.Rasterize()
	default:
		return nil, nil
	}
}

// Size returns the native pixel size of the signature. ok is false when the
// size is not known yet.
func (s Source) Size() (w, h float64, ok bool) {
	switch s.kind {
	case StaticImage:
		w, h = s.image.Size()
		return w, h, true
	case LiveDrawn:
		return float64(s.pad.Width), float64(s.pad.Height), true
	default:
		return 0, 0, false
	}
}
