package pdf

import (
	"fmt"

	pdflib "github.com/digitorus/pdf"
)

// Ref is an indirect object reference.
type Ref struct {
	ID  uint32
	Gen uint16
}

// String formats the reference as it appears in a PDF file.
func (r Ref) String() string {
	return fmt.Sprintf("%d %d R", r.ID, r.Gen)
}

// RefOf returns the reference of an indirectly stored value.
func RefOf(v pdflib.Value) Ref {
	ptr := v.GetPtr()
	return Ref{ID: ptr.GetID(), Gen: ptr.GetGen()}
}

// ContentRefs returns references to the content streams of a page in drawing
// order. A page without /Contents yields an empty slice.
func ContentRefs(page pdflib.Value) ([]Ref, error) {
	contents := page.Key("Contents")
	switch contents.Kind() {
	case pdflib.Null:
		return nil, nil
	case pdflib.Stream:
		return []Ref{RefOf(contents)}, nil
	case pdflib.Array:
		refs := make([]Ref, 0, contents.Len())
		for i := 0; i < contents.Len(); i++ {
			stream := contents.Index(i)
			if stream.Kind() != pdflib.Stream {
				return nil, fmt.Errorf("content entry %d is not a stream", i)
			}
			refs = append(refs, RefOf(stream))
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("unexpected /Contents type %v", contents.Kind())
	}
}
