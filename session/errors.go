package session

import (
	"errors"
	"fmt"

	"github.com/digitorus/pdfplace/composite"
	"github.com/digitorus/pdfplace/viewer"
)

var (
	// ErrStale is returned for an operation whose result was discarded
	// because a newer load, navigation or Close happened meanwhile.
	ErrStale = errors.New("session: result superseded")

	// ErrNotReady is returned for an operation that needs a loaded document
	// and an idle session.
	ErrNotReady = errors.New("session: no document ready")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session: closed")

	// ErrNoSubmitter is returned by Send when no Submitter is configured.
	ErrNoSubmitter = errors.New("session: no submitter configured")
)

// DocumentLoadError is returned when a document or signature image could not
// be fetched or parsed.
type DocumentLoadError struct {
	URL string
	Err error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.URL, e.Err)
}

func (e *DocumentLoadError) Unwrap() error {
	return e.Err
}

// PageIndexOutOfRangeError reports a page index outside 1..Total.
type PageIndexOutOfRangeError struct {
	Page  int
	Total int
}

func (e *PageIndexOutOfRangeError) Error() string {
	return fmt.Sprintf("page index %d out of range (1-%d)", e.Page, e.Total)
}

// IncompleteSignatureError is returned when a download or send is requested
// without a placed signature or without a signature image.
type IncompleteSignatureError struct {
	MissingPlacement bool
	MissingImage     bool
}

func (e *IncompleteSignatureError) Error() string {
	switch {
	case e.MissingPlacement && e.MissingImage:
		return "signature is not placed and no signature image is loaded"
	case e.MissingPlacement:
		return "signature is not placed"
	default:
		return "no signature image is loaded"
	}
}

// MalformedDocumentError is returned when the signed document could not be
// prepared.
type MalformedDocumentError struct {
	Err error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("failed to prepare document: %v", e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// UploadError is returned when handing the signed document to the submitter
// or the saver failed. The session stays usable; the action may be retried.
type UploadError struct {
	Op            string // "submit" or "save"
	ApplicationID int64
	Err           error
}

func (e *UploadError) Error() string {
	if e.Op == "save" {
		return fmt.Sprintf("failed to save document: %v", e.Err)
	}
	return fmt.Sprintf("failed to submit document for application %d: %v", e.ApplicationID, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// composeError translates compositor failures into session errors.
func composeError(err error) error {
	var incomplete *composite.IncompleteSignatureError
	if errors.As(err, &incomplete) {
		return &IncompleteSignatureError{MissingPlacement: incomplete.MissingPlacement, MissingImage: incomplete.MissingImage}
	}
	var pageErr *composite.PageIndexOutOfRangeError
	if errors.As(err, &pageErr) {
		return &PageIndexOutOfRangeError{Page: pageErr.Page, Total: pageErr.Total}
	}
	var malformed *composite.MalformedDocumentError
	if errors.As(err, &malformed) {
		return &MalformedDocumentError{Err: malformed.Err}
	}
	return &MalformedDocumentError{Err: err}
}

// renderError translates page measurement failures into session errors.
func renderError(url string, err error) error {
	var rangeErr *viewer.PageRangeError
	if errors.As(err, &rangeErr) {
		return &PageIndexOutOfRangeError{Page: rangeErr.Page, Total: rangeErr.Total}
	}
	return &DocumentLoadError{URL: url, Err: err}
}
