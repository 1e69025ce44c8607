package composite

import (
	"bytes"
	"testing"
	"time"

	"github.com/mattetti/filebuffer"
)

func newTestContext(lastXrefID uint32) *Context {
	return &Context{
		OutputBuffer: &filebuffer.Buffer{
			Buff: new(bytes.Buffer),
		},
		lastXrefID: lastXrefID,
	}
}

func TestWriteIncrXrefTable(t *testing.T) {
	context := newTestContext(100)
	context.updatedXrefEntries = []xrefEntry{
		{ID: 51, Offset: 5678},
		{ID: 50, Offset: 1234},
		{ID: 51, Offset: 6789},
	}
	context.newXrefEntries = []xrefEntry{
		{ID: 101, Offset: 9012},
		{ID: 102, Offset: 3456},
	}

	if err := context.writeIncrXrefTable(); err != nil {
		t.Fatalf("writeIncrXrefTable failed: %v", err)
	}

	// Updates are sorted and only the latest copy of an object is listed.
	expected := "xref\n" +
		"50 1\n" +
		"0000001234 00000 n\r\n" +
		"51 1\n" +
		"0000006789 00000 n\r\n" +
		"101 2\n" +
		"0000009012 00000 n\r\n" +
		"0000003456 00000 n\r\n"

	got := context.OutputBuffer.Buff.String()
	if got != expected {
		t.Errorf("writeIncrXrefTable output mismatch\ngot:\n%s\nwant:\n%s", got, expected)
	}
}

func TestAddObject(t *testing.T) {
	context := newTestContext(10)

	tests := []struct {
		name         string
		object       []byte
		expectedID   uint32
		expectedText string
	}{
		{
			name:         "valid object",
			object:       []byte("test object"),
			expectedID:   11,
			expectedText: "11 0 obj\ntest object\nendobj\n",
		},
		{
			name:         "object with whitespace",
			object:       []byte("  test object  "),
			expectedID:   12,
			expectedText: "12 0 obj\ntest object\nendobj\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := context.OutputBuffer.Buff.Len()
			id, err := context.addObject(tt.object)
			if err != nil {
				t.Fatalf("addObject() error = %v", err)
			}
			if id != tt.expectedID {
				t.Errorf("addObject() id = %d, want %d", id, tt.expectedID)
			}
			got := context.OutputBuffer.Buff.String()[start:]
			if got != tt.expectedText {
				t.Errorf("addObject() wrote %q, want %q", got, tt.expectedText)
			}
			last := context.newXrefEntries[len(context.newXrefEntries)-1]
			if last.Offset != int64(start) {
				t.Errorf("xref offset = %d, want %d", last.Offset, start)
			}
		})
	}
}

func TestUpdateObjectRejectsUnknownIDs(t *testing.T) {
	context := newTestContext(10)
	if err := context.updateObject(0, 0, []byte("<< >>")); err == nil {
		t.Error("expected error for object 0")
	}
	if err := context.updateObject(11, 0, []byte("<< >>")); err == nil {
		t.Error("expected error for object beyond the existing table")
	}
	if err := context.updateObject(5, 2, []byte("<< >>")); err != nil {
		t.Fatalf("updateObject() error = %v", err)
	}
	if got := context.OutputBuffer.Buff.String(); got != "5 2 obj\n<< >>\nendobj\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestPdfName(t *testing.T) {
	tests := map[string]string{
		"Sig1":       "/Sig1",
		"A B":        "/A#20B",
		"Name(1)":    "/Name#281#29",
		"café":       "/caf#C3#A9",
		"Hash#Slash": "/Hash#23Slash",
	}
	for in, want := range tests {
		if got := pdfName(in); got != want {
			t.Errorf("pdfName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		150:       "150",
		-50:       "-50",
		0.5:       "0.5",
		231.125:   "231.125",
		1.0 / 3.0: "0.3333",
		-0.00001:  "0",
		1e9:       "1000000000",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestPdfString(t *testing.T) {
	got, err := pdfString(`a(b)\c`)
	if err != nil {
		t.Fatal(err)
	}
	if got != `(a\(b\)\\c)` {
		t.Errorf("pdfString() = %s", got)
	}

	got, err = pdfString("é")
	if err != nil {
		t.Fatal(err)
	}
	if got != "<FEFF00E9>" {
		t.Errorf("pdfString() = %s, want UTF-16BE with BOM", got)
	}
}

func TestPdfDateTime(t *testing.T) {
	loc := time.FixedZone("", -(5*3600 + 30*60))
	got := pdfDateTime(time.Date(2023, 12, 24, 8, 5, 9, 0, loc))
	if got != "(D:20231224080509-05'30')" {
		t.Errorf("pdfDateTime() = %s", got)
	}
}
