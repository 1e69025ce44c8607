package pdf

import (
	"fmt"

	pdflib "github.com/digitorus/pdf"
)

// ResourceNames returns the names already used in the given category of a
// page's resource dictionary, such as "XObject" or "Font".
func ResourceNames(page pdflib.Value, category string) map[string]bool {
	names := make(map[string]bool)
	resources := Inherited(page, "Resources")
	if resources.IsNull() {
		return names
	}
	entries := resources.Key(category)
	if entries.Kind() != pdflib.Dict {
		return names
	}
	for _, name := range entries.Keys() {
		names[name] = true
	}
	return names
}

// UniqueName returns prefix followed by the smallest positive number that is
// not yet present in used.
func UniqueName(used map[string]bool, prefix string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if !used[name] {
			return name
		}
	}
}
