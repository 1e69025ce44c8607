package viewer

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned for a measurement that completed after a newer
// one had been requested.
var ErrSuperseded = errors.New("measurement superseded by a newer request")

// Sequencer orders page measurements by request, not by completion: only the
// result of the most recent request is delivered.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
}

// Next registers a new request and returns its sequence number.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// Current reports whether seq is the most recent request.
func (s *Sequencer) Current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.latest
}

// Invalidate makes every outstanding request stale.
func (s *Sequencer) Invalidate() {
	s.Next()
}

// MeasureRequest renders pageIndex through r for request seq, obtained from
// Next, and returns the viewport only if no newer request was registered in
// the meantime. Callers register under their own lock so that request order
// follows the order in which they changed their view.
func (s *Sequencer) MeasureRequest(ctx context.Context, seq uint64, r PageRenderer, pageIndex int, scale float64) (Viewport, error) {
	vp, err := r.RenderPage(ctx, pageIndex, scale)
	if !s.Current(seq) {
		return Viewport{}, ErrSuperseded
	}
	return vp, err
}
