package composite

import "fmt"

// IncompleteSignatureError is returned when a composite is requested without
// a placement or without a signature image.
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

// MalformedDocumentError is returned when the document cannot be parsed or
// the updated document cannot be written.
type MalformedDocumentError struct {
	Err error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document: %v", e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// PageIndexOutOfRangeError is returned for a page number outside 1..Total.
type PageIndexOutOfRangeError struct {
	Page  int
	Total int
}

func (e *PageIndexOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range (1-%d)", e.Page, e.Total)
}
