package geometry

import "math"

// roundZoom keeps repeated 0.2 steps on two decimals so that 1.0 + 5*0.2
// compares equal to 2.0.
func roundZoom(z float64) float64 {
	return math.Round(z*100) / 100
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return roundZoom(math.Min(MaxZoom, math.Max(MinZoom, z)))
}

// ZoomIn returns the next zoom level, or z itself when already at MaxZoom.
func ZoomIn(z float64) float64 {
	if z >= MaxZoom {
		return ClampZoom(z)
	}
	return ClampZoom(z + ZoomStep)
}

// ZoomOut returns the previous zoom level, or z itself when already at MinZoom.
func ZoomOut(z float64) float64 {
	if z <= MinZoom {
		return ClampZoom(z)
	}
	return ClampZoom(z - ZoomStep)
}

// ClampSizeScale limits s to [MinSizeScale, MaxSizeScale].
func ClampSizeScale(s float64) float64 {
	if math.IsNaN(s) {
		return DefaultSizeScale
	}
	return math.Min(MaxSizeScale, math.Max(MinSizeScale, s))
}

// ClampPage limits a 1-based page index to [1, total]. It reports whether the
// index had to be changed.
func ClampPage(page, total int) (int, bool) {
	if total < 1 {
		return 1, page != 1
	}
	switch {
	case page < 1:
		return 1, true
	case page > total:
		return total, true
	}
	return page, false
}
