// Package session coordinates a signing attempt: loading a document,
// navigating and zooming, placing a signature, and handing the signed result
// to a saver or a submitter.
//
// All operations are safe for concurrent use. Long running work (fetching,
// parsing, measuring, compositing and uploading) runs without holding the
// session lock. Every Load starts a new generation; results belonging to an
// older generation are dropped and reported as ErrStale.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/digitorus/pdfplace/composite"
	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/images"
	"github.com/digitorus/pdfplace/overlay"
	"github.com/digitorus/pdfplace/viewer"
	"github.com/google/uuid"
)

// Output file name and MIME type handed to the Saver.
const (
	DownloadName = "signed_document.pdf"
	DownloadMIME = "application/pdf"
)

// Fetcher loads the source document.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// ImageLoader loads and decodes a signature image.
type ImageLoader interface {
	Load(ctx context.Context, location string) (*images.Image, error)
}

// Submitter uploads a signed document for an application.
type Submitter interface {
	Submit(ctx context.Context, applicationID int64, document []byte) error
}

// Saver stores a signed document locally.
type Saver interface {
	Save(name, mime string, data []byte) error
}

// RendererFactory opens a renderer over document bytes.
type RendererFactory func(data []byte) (viewer.PageRenderer, error)

// CompositeFunc draws img on page pageIndex of document, see
// composite.Composite.
type CompositeFunc func(document []byte, pageIndex int, placement *overlay.Placement, img *images.Image, native geometry.Size, opts *composite.Options) ([]byte, error)

// Config holds the collaborators of a Session. Only Fetcher is required to
// load documents; Saver and Submitter are needed for Download and Send.
type Config struct {
	Fetcher   Fetcher
	Images    ImageLoader
	Submitter Submitter
	Saver     Saver

	// Renderer defaults to viewer.OpenRenderer.
	Renderer RendererFactory

	// Compositor defaults to composite.Composite.
	Compositor CompositeFunc

	// Composite defaults to composite.DefaultOptions().
	Composite *composite.Options

	// ApplicationID is passed to the Submitter.
	ApplicationID int64

	// Logger defaults to a logger that discards everything.
	Logger *slog.Logger
}

// ViewState is the current page and zoom.
type ViewState struct {
	PageIndex  int
	ZoomScale  float64
	TotalPages int
}

// Session is a single signing attempt.
type Session struct {
	id     string
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	err       error
	token     uint64
	cancel    context.CancelFunc
	url       string
	document  []byte
	renderer  viewer.PageRenderer
	viewport  viewer.Viewport
	view      ViewState
	overlay   *overlay.Overlay
	seq       viewer.Sequencer
	imageSeq  uint64
	completed chan int64
	closed    bool
}

// New returns an idle session.
func New(cfg Config) *Session {
	if cfg.Renderer == nil {
		cfg.Renderer = viewer.OpenRenderer
	}
	if cfg.Compositor == nil {
		cfg.Compositor = composite.Composite
	}
	if cfg.Composite == nil {
		cfg.Composite = composite.DefaultOptions()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		cfg:       cfg,
		logger:    logger.With("session", id),
		state:     Idle,
		view:      ViewState{PageIndex: 1, ZoomScale: 1},
		overlay:   overlay.New(overlay.NoSource()),
		completed: make(chan int64, 1),
	}
}

// ID returns the identifier used in log records.
func (s *Session) ID() string {
	return s.id
}

// transition applies e. Must be called with s.mu held.
func (s *Session) transition(e Event) bool {
	next, ok := Reduce(s.state, e)
	if !ok {
		s.logger.Debug("transition rejected", "state", s.state.String(), "event", e.String())
		return false
	}
	if next != s.state {
		s.logger.Debug("transition", "from", s.state.String(), "to", next.String(), "event", e.String())
	}
	s.state = next
	return true
}

// Load fetches and opens the document at url and measures its first page.
// A Load in progress is abandoned; its result is dropped.
func (s *Session) Load(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	s.token++
	token := s.token
	s.transition(EventLoad)
	s.err = nil
	s.url = url
	s.document = nil
	s.renderer = nil
	s.viewport = viewer.Viewport{}
	s.view = ViewState{PageIndex: 1, ZoomScale: s.view.ZoomScale}
	s.overlay.PageChanged(1)
	s.overlay.Clear()
	s.seq.Invalidate()
	zoom := s.view.ZoomScale
	s.mu.Unlock()

	s.logger.Info("loading document", "url", url)

	var (
		data     []byte
		renderer viewer.PageRenderer
		vp       viewer.Viewport
		err      error
	)
	if s.cfg.Fetcher == nil {
		err = errors.New("no fetcher configured")
	} else {
		data, err = s.cfg.Fetcher.Fetch(ctx, url)
	}
	if err == nil {
		renderer, err = s.cfg.Renderer(data)
	}
	if err == nil {
		vp, err = renderer.RenderPage(ctx, 1, zoom)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.logger.Debug("dropping stale load", "url", url)
		return ErrStale
	}
	if err != nil {
		loadErr := &DocumentLoadError{URL: url, Err: err}
		s.err = loadErr
		s.transition(EventLoadFailed)
		s.logger.Error("failed to load document", "url", url, "error", err)
		return loadErr
	}

	s.document = data
	s.renderer = renderer
	s.viewport = vp
	s.view.TotalPages = renderer.NumPages()
	s.transition(EventLoaded)
	s.logger.Info("document ready", "url", url, "pages", s.view.TotalPages, "width", vp.NativeWidth, "height", vp.NativeHeight)
	return nil
}

// GoToPage shows page n. An index outside the document is clamped to the
// nearest page and logged. Any placement is cleared when the page changes.
func (s *Session) GoToPage(ctx context.Context, n int) error {
	s.mu.Lock()
	if s.state != Ready {
		s.mu.Unlock()
		return ErrNotReady
	}
	page, clamped := geometry.ClampPage(n, s.view.TotalPages)
	if clamped {
		s.logger.Warn("page index clamped", "error", &PageIndexOutOfRangeError{Page: n, Total: s.view.TotalPages}, "page", page)
	}
	if page == s.view.PageIndex {
		s.mu.Unlock()
		return nil
	}
	s.view.PageIndex = page
	if s.overlay.PageChanged(page) {
		s.logger.Debug("placement cleared by page change", "page", page)
	}
	return s.remeasure(ctx)
}

// NextPage moves one page forward; on the last page it does nothing.
func (s *Session) NextPage(ctx context.Context) error {
	return s.step(ctx, 1)
}

// PrevPage moves one page back; on the first page it does nothing.
func (s *Session) PrevPage(ctx context.Context) error {
	return s.step(ctx, -1)
}

func (s *Session) step(ctx context.Context, delta int) error {
	s.mu.Lock()
	if s.state != Ready {
		s.mu.Unlock()
		return ErrNotReady
	}
	page := s.view.PageIndex + delta
	if page < 1 || page > s.view.TotalPages {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.GoToPage(ctx, page)
}

// ZoomIn increases the zoom by one step. The placement is kept in native
// coordinates and therefore unaffected.
func (s *Session) ZoomIn(ctx context.Context) (float64, error) {
	return s.zoom(ctx, geometry.ZoomIn)
}

// ZoomOut decreases the zoom by one step.
func (s *Session) ZoomOut(ctx context.Context) (float64, error) {
	return s.zoom(ctx, geometry.ZoomOut)
}

// SetZoom sets the zoom, clamped to the allowed range.
func (s *Session) SetZoom(ctx context.Context, zoom float64) (float64, error) {
	return s.zoom(ctx, func(float64) float64 { return geometry.ClampZoom(zoom) })
}

func (s *Session) zoom(ctx context.Context, next func(float64) float64) (float64, error) {
	s.mu.Lock()
	if s.renderer == nil {
		zoom := s.view.ZoomScale
		s.mu.Unlock()
		return zoom, ErrNotReady
	}
	zoom := next(s.view.ZoomScale)
	if zoom == s.view.ZoomScale {
		s.mu.Unlock()
		return zoom, nil
	}
	s.view.ZoomScale = zoom
	return zoom, s.remeasure(ctx)
}

// remeasure measures the current page at the current zoom. It is called with
// s.mu held and releases it.
func (s *Session) remeasure(ctx context.Context) error {
	token := s.token
	renderer := s.renderer
	page := s.view.PageIndex
	zoom := s.view.ZoomScale
	url := s.url
	req := s.seq.Next()
	s.mu.Unlock()

	vp, err := s.seq.MeasureRequest(ctx, req, renderer, page, zoom)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token || errors.Is(err, viewer.ErrSuperseded) {
		return ErrStale
	}
	if page != s.view.PageIndex || zoom != s.view.ZoomScale {
		return ErrStale
	}
	if err != nil {
		err = renderError(url, err)
		s.logger.Error("failed to measure page", "page", page, "error", err)
		return err
	}
	s.viewport = vp
	return nil
}

// Click places the signature at a pointer position. screen is the pointer
// position, origin the page container's top-left corner on screen (nil when
// the container is not mounted) and scroll its scroll offset.
func (s *Session) Click(screen geometry.Point, origin *geometry.Point, scroll geometry.Point) (overlay.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return overlay.Placement{}, ErrNotReady
	}
	anchor, err := geometry.ScreenToUserSpace(screen, origin, scroll, s.view.ZoomScale)
	if err != nil {
		return overlay.Placement{}, err
	}
	p := s.overlay.Place(anchor, s.view.PageIndex)
	s.logger.Debug("signature placed", "page", p.PageIndex, "x", p.Anchor.X, "y", p.Anchor.Y)
	return p, nil
}

// SetSizeScale changes the signature size. The value is clamped and applies
// to the current and to any later placement.
func (s *Session) SetSizeScale(scale float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.SetSizeScale(scale)
}

// ClearSignature removes the placement. The signature source is kept.
func (s *Session) ClearSignature() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.Clear()
}

// SetSource replaces the signature source. The placement is kept.
func (s *Session) SetSource(src overlay.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.SetSource(src)
}

// Source returns the signature source.
func (s *Session) Source() overlay.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Source()
}

// LoadSignatureImage loads a static signature image from url and makes it the
// signature source. Of concurrent calls the last one started wins.
func (s *Session) LoadSignatureImage(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.imageSeq++
	seq := s.imageSeq
	s.mu.Unlock()

	if s.cfg.Images == nil {
		return &DocumentLoadError{URL: url, Err: errors.New("no image loader configured")}
	}
	img, err := s.cfg.Images.Load(ctx, url)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.imageSeq || s.closed {
		return ErrStale
	}
	if err != nil {
		s.logger.Error("failed to load signature image", "url", url, "error", err)
		return &DocumentLoadError{URL: url, Err: err}
	}
	s.overlay.SetSource(overlay.Static(img))
	s.logger.Debug("signature image loaded", "url", url, "width", img.Width, "height", img.Height)
	return nil
}

// compose builds the signed document. On success done is applied in the same
// critical section that checks the result is still current, and the
// generation token is returned.
func (s *Session) compose(done Event) ([]byte, uint64, error) {
	s.mu.Lock()
	if s.state != Ready {
		s.mu.Unlock()
		return nil, 0, ErrNotReady
	}
	placement := s.overlay.Placement()
	img, err := s.overlay.Source().Image()
	if err != nil {
		s.mu.Unlock()
		return nil, 0, &MalformedDocumentError{Err: err}
	}
	if placement == nil || img == nil {
		s.mu.Unlock()
		return nil, 0, &IncompleteSignatureError{MissingPlacement: placement == nil, MissingImage: img == nil}
	}

	var native geometry.Size
	if s.viewport.PageIndex == placement.PageIndex {
		native = geometry.Size{Width: s.viewport.NativeWidth, Height: s.viewport.NativeHeight}
	}
	s.transition(EventCompose)
	token := s.token
	document := s.document
	opts := *s.cfg.Composite
	s.mu.Unlock()

	s.logger.Info("compositing signature", "page", placement.PageIndex, "image", img.Name)
	data, err := s.cfg.Compositor(document, placement.PageIndex, placement, img, native, &opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.logger.Debug("dropping stale composite")
		return nil, 0, ErrStale
	}
	if err != nil {
		s.transition(EventComposeFailed)
		err = composeError(err)
		s.logger.Error("failed to composite signature", "error", err)
		return nil, 0, err
	}
	s.transition(done)
	return data, token, nil
}

// Download composites the signature and hands the result to the Saver as
// signed_document.pdf. The session stays interactive afterwards.
func (s *Session) Download(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, _, err := s.compose(EventComposed)
	if err != nil {
		return err
	}

	if s.cfg.Saver == nil {
		return &UploadError{Op: "save", Err: errors.New("no saver configured")}
	}
	if err := s.cfg.Saver.Save(DownloadName, DownloadMIME, data); err != nil {
		s.logger.Error("failed to save document", "error", err)
		return &UploadError{Op: "save", Err: err}
	}
	s.logger.Info("document saved", "name", DownloadName, "bytes", len(data))
	return nil
}

// Send composites the signature and submits the result. On success the
// application id is published on Completed. On failure the session returns
// to Ready and Send may be retried.
func (s *Session) Send(ctx context.Context) error {
	if s.cfg.Submitter == nil {
		return ErrNoSubmitter
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, token, err := s.compose(EventSubmit)
	if err != nil {
		return err
	}
	appID := s.cfg.ApplicationID

	s.logger.Info("submitting document", "application", appID, "bytes", len(data))
	err = s.cfg.Submitter.Submit(ctx, appID, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		return ErrStale
	}
	if err != nil {
		s.transition(EventSubmitFailed)
		s.logger.Error("failed to submit document", "application", appID, "error", err)
		return &UploadError{Op: "submit", ApplicationID: appID, Err: err}
	}
	s.transition(EventSubmitted)
	s.logger.Info("document submitted", "application", appID)
	// Only the latest completion is kept.
	select {
	case <-s.completed:
	default:
	}
	s.completed <- appID
	return nil
}

// Completed receives the application id after a successful Send. It buffers
// a single value: a completion not yet received is replaced by the next one.
// It is closed by Close.
func (s *Session) Completed() <-chan int64 {
	return s.completed
}

// Close abandons any work in flight and returns the session to Idle.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.token++
	s.seq.Invalidate()
	s.transition(EventReset)
	s.closed = true
	s.document = nil
	s.renderer = nil
	close(s.completed)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the session into Error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// View returns the current page and zoom.
func (s *Session) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Viewport returns the latest measurement of the current page.
func (s *Session) Viewport() viewer.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Placement returns a copy of the placement, or nil.
func (s *Session) Placement() *overlay.Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Placement()
}

// PreviewBox returns the on-screen box of the signature preview at the
// current zoom.
func (s *Session) PreviewBox() (geometry.Box, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Box(s.view.ZoomScale)
}

// Document returns the source bytes. They must not be modified.
func (s *Session) Document() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}
