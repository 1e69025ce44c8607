package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/images"
	"golang.org/x/image/vector"
)

// Default pad settings.
const (
	DefaultPadWidth  = 400
	DefaultPadHeight = 200
	DefaultPenWidth  = 2.0
)

// circleSegments is the number of edges used to approximate round caps.
const circleSegments = 16

// Pad captures a hand-drawn signature as a list of strokes in canvas pixel
// coordinates (origin top-left). It is safe for concurrent use.
type Pad struct {
	Width, Height int
	PenWidth      float64
	PenColor      color.Color
	// Background is drawn behind the strokes; nil keeps it transparent.
	Background color.Color

	mu      sync.Mutex
	strokes [][]geometry.Point
	drawing bool
}

// NewPad returns a pad with a 400x200 canvas, a black 2px pen and a
// transparent background.
func NewPad() *Pad {
	return &Pad{
		Width:    DefaultPadWidth,
		Height:   DefaultPadHeight,
		PenWidth: DefaultPenWidth,
		PenColor: color.Black,
	}
}

// BeginStroke starts a new stroke at p.
func (p *Pad) BeginStroke(pt geometry.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strokes = append(p.strokes, []geometry.Point{pt})
	p.drawing = true
}

// AddPoint extends the current stroke. Points outside a stroke are ignored.
func (p *Pad) AddPoint(pt geometry.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.drawing || len(p.strokes) == 0 {
		return
	}
	last := len(p.strokes) - 1
	p.strokes[last] = append(p.strokes[last], pt)
}

// EndStroke finishes the current stroke.
func (p *Pad) EndStroke() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drawing = false
}

// Reset removes all strokes.
func (p *Pad) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strokes = nil
	p.drawing = false
}

// IsEmpty reports whether nothing has been drawn.
func (p *Pad) IsEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.strokes) == 0
}

// Strokes returns a copy of the captured strokes.
func (p *Pad) Strokes() [][]geometry.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]geometry.Point, len(p.strokes))
	for i, s := range p.strokes {
		out[i] = append([]geometry.Point(nil), s...)
	}
	return out
}

// Rasterize renders the strokes into a PNG image. An empty pad yields nil.
func (p *Pad) Rasterize() (*images.Image, error) {
	strokes := p.Strokes()
	if len(strokes) == 0 {
		return nil, nil
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid pad size %dx%d", p.Width, p.Height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	if p.Background != nil {
		fill := vector.NewRasterizer(p.Width, p.Height)
		rect(fill, 0, 0, float32(p.Width), float32(p.Height))
		fill.Draw(dst, dst.Bounds(), image.NewUniform(p.Background), image.Point{})
	}

	penColor := p.PenColor
	if penColor == nil {
		penColor = color.Black
	}
	pen := image.NewUniform(penColor)
	radius := p.PenWidth / 2
	if radius <= 0 {
		radius = DefaultPenWidth / 2
	}

	z := vector.NewRasterizer(p.Width, p.Height)
	for _, stroke := range strokes {
		for i, pt := range stroke {
			z.Reset(p.Width, p.Height)
			disc(z, pt, radius)
			z.Draw(dst, dst.Bounds(), pen, image.Point{})

			if i == 0 {
				continue
			}
			z.Reset(p.Width, p.Height)
			if segment(z, stroke[i-1], pt, radius) {
				z.Draw(dst, dst.Bounds(), pen, image.Point{})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode signature: %w", err)
	}
	return images.Decode("signature.png", buf.Bytes())
}

func rect(z *vector.Rasterizer, x0, y0, x1, y1 float32) {
	z.MoveTo(x0, y0)
	z.LineTo(x1, y0)
	z.LineTo(x1, y1)
	z.LineTo(x0, y1)
	z.ClosePath()
}

// disc adds a polygonal circle around c.
func disc(z *vector.Rasterizer, c geometry.Point, r float64) {
	for i := 0; i < circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		x, y := float32(c.X+r*math.Cos(a)), float32(c.Y+r*math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

// segment adds a quad of width 2r covering the line from a to b. It reports
// false for zero-length segments.
func segment(z *vector.Rasterizer, a, b geometry.Point, r float64) bool {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return false
	}
	nx, ny := -dy/length*r, dx/length*r
	z.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	z.LineTo(float32(b.X+nx), float32(b.Y+ny))
	z.LineTo(float32(b.X-nx), float32(b.Y-ny))
	z.LineTo(float32(a.X-nx), float32(a.Y-ny))
	z.ClosePath()
	return true
}
