package composite

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// addInfo writes a new document information dictionary that keeps the
// existing entries and sets /ModDate and, when given, /Producer.
func (context *Context) addInfo(modDate time.Time, producer string) error {
	original := context.PDFReader.Trailer().Key("Info")

	var buf bytes.Buffer
	buf.WriteString("<<")
	for _, key := range original.Keys() {
		if key == "ModDate" || (key == "Producer" && producer != "") {
			continue
		}
		buf.WriteString(" " + pdfName(key) + " ")
		serializeEntry(&buf, original, original.Key(key))
	}
	if producer != "" {
		text, err := pdfString(producer)
		if err != nil {
			return err
		}
		buf.WriteString(" /Producer " + text)
	}
	buf.WriteString(" /ModDate " + pdfDateTime(modDate))
	buf.WriteString(" >>")

	id, err := context.addObject(buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to add info object: %w", err)
	}
	context.infoID = id
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7e {
			return false
		}
	}
	return true
}

// pdfString encodes text as a PDF string literal. Non-ASCII text is written
// as UTF-16BE with a byte order mark.
func pdfString(text string) (string, error) {
	if !isASCII(text) {
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err != nil {
			return "", fmt.Errorf("failed to encode text: %w", err)
		}
		return fmt.Sprintf("<%X>", res), nil
	}

	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, "\r", "\\r")
	return "(" + text + ")", nil
}

func pdfDateTime(date time.Time) string {
	_, offset := date.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("(D:%s%s%02d'%02d')", date.Format("20060102150405"), sign, offset/3600, (offset%3600)/60)
}
