package composite

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/digitorus/pdf"
)

// isIndirect reports whether child, read from container, was stored as a
// reference. The reader resolves references transparently; direct children
// carry the object pointer of the object they were read from.
func isIndirect(container, child pdf.Value) bool {
	ptr := child.GetPtr()
	return ptr.GetID() != 0 && !samePtr(container, child)
}

func samePtr(a, b pdf.Value) bool {
	pa, pb := a.GetPtr(), b.GetPtr()
	return pa.GetID() == pb.GetID() && pa.GetGen() == pb.GetGen()
}

// serializeEntry writes a value read from container, emitting a reference
// when the value was stored indirectly.
func serializeEntry(buf *bytes.Buffer, container, value pdf.Value) {
	if isIndirect(container, value) || value.Kind() == pdf.Stream {
		ptr := value.GetPtr()
		fmt.Fprintf(buf, "%d %d R", ptr.GetID(), ptr.GetGen())
		return
	}
	serializeDirect(buf, value)
}

// serializeDirect writes value inline.
func serializeDirect(buf *bytes.Buffer, value pdf.Value) {
	switch value.Kind() {
	case pdf.Null:
		buf.WriteString("null")
	case pdf.Bool:
		buf.WriteString(strconv.FormatBool(value.Bool()))
	case pdf.Integer:
		buf.WriteString(strconv.FormatInt(value.Int64(), 10))
	case pdf.Real:
		buf.WriteString(formatNumber(value.Float64()))
	case pdf.String:
		buf.WriteString("<" + hex.EncodeToString([]byte(value.RawString())) + ">")
	case pdf.Name:
		buf.WriteString(pdfName(value.Name()))
	case pdf.Array:
		buf.WriteString("[")
		for i := 0; i < value.Len(); i++ {
			if i > 0 {
				buf.WriteString(" ")
			}
			serializeEntry(buf, value, value.Index(i))
		}
		buf.WriteString("]")
	case pdf.Dict:
		buf.WriteString("<<")
		writeDictEntries(buf, value, nil)
		buf.WriteString(" >>")
	default:
		buf.WriteString("null")
	}
}

// writeDictEntries writes the entries of dict, skipping the keys in skip.
func writeDictEntries(buf *bytes.Buffer, dict pdf.Value, skip map[string]bool) {
	for _, key := range dict.Keys() {
		if skip[key] {
			continue
		}
		buf.WriteString(" ")
		buf.WriteString(pdfName(key))
		buf.WriteString(" ")
		serializeEntry(buf, dict, dict.Key(key))
	}
}

// pdfName encodes a name object, escaping delimiters and bytes outside the
// printable ASCII range with #xx sequences.
func pdfName(name string) string {
	var b bytes.Buffer
	b.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c < 0x21 || c > 0x7e:
			fmt.Fprintf(&b, "#%02X", c)
		case strings.IndexByte("#()<>[]{}/%", c) >= 0:
			fmt.Fprintf(&b, "#%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// formatNumber writes a real number without exponent notation.
func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
