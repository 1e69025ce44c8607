package composite

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// writeXref writes the cross-reference section and trailer in the same form
// as the source document uses.
func (context *Context) writeXref() error {
	switch context.PDFReader.XrefInformation.Type {
	case "stream":
		if err := context.writeXrefStream(); err != nil {
			return fmt.Errorf("failed to write xref stream: %w", err)
		}
	default:
		context.NewXrefStart = context.offset()
		if err := context.writeIncrXrefTable(); err != nil {
			return err
		}
	}
	return context.writeTrailer()
}

// writeIncrXrefTable writes the incremental cross-reference table to the output buffer.
func (context *Context) writeIncrXrefTable() error {
	var buf bytes.Buffer
	buf.WriteString("xref\n")

	// Updated objects each get their own subsection.
	for _, entry := range context.sortedUpdates() {
		fmt.Fprintf(&buf, "%d %d\n", entry.ID, 1)
		fmt.Fprintf(&buf, "%010d %05d n\r\n", entry.Offset, entry.Gen)
	}

	if len(context.newXrefEntries) > 0 {
		fmt.Fprintf(&buf, "%d %d\n", context.lastXrefID+1, len(context.newXrefEntries))
		for _, entry := range context.newXrefEntries {
			fmt.Fprintf(&buf, "%010d 00000 n\r\n", entry.Offset)
		}
	}

	if _, err := context.OutputBuffer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write incremental xref table: %w", err)
	}
	return nil
}

// writeXrefStream writes the cross-reference stream as a new object. The
// stream object lists itself as the last new entry.
func (context *Context) writeXrefStream() error {
	streamID := context.nextID()
	context.NewXrefStart = context.offset()

	var rows bytes.Buffer
	updates := context.sortedUpdates()
	for _, entry := range updates {
		writeXrefStreamLine(&rows, 1, entry.Offset, entry.Gen)
	}
	for _, entry := range context.newXrefEntries {
		writeXrefStreamLine(&rows, 1, entry.Offset, 0)
	}
	writeXrefStreamLine(&rows, 1, context.NewXrefStart, 0)

	streamBytes, err := encodeXrefStream(rows.Bytes(), context.CompressLevel)
	if err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}

	var index []uint32
	for _, entry := range updates {
		index = append(index, entry.ID, 1)
	}
	index = append(index, context.lastXrefID+1, uint32(len(context.newXrefEntries))+1)

	var obj bytes.Buffer
	obj.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(&obj, "  /Length %d\n", len(streamBytes))
	obj.WriteString("  /Filter /FlateDecode\n")
	obj.WriteString("  /W [ 1 4 1 ]\n")
	fmt.Fprintf(&obj, "  /Prev %d\n", context.PDFReader.XrefInformation.StartPos)
	fmt.Fprintf(&obj, "  /Size %d\n", streamID+1)
	obj.WriteString("  /Index [")
	for _, idx := range index {
		fmt.Fprintf(&obj, " %d", idx)
	}
	obj.WriteString(" ]\n")
	context.writeTrailerEntries(&obj)
	obj.WriteString(">>\n")

	if err := writeXrefStreamContent(&obj, streamBytes); err != nil {
		return fmt.Errorf("failed to write xref stream content: %w", err)
	}

	id, err := context.addObject(obj.Bytes())
	if err != nil {
		return fmt.Errorf("failed to add xref stream object: %w", err)
	}
	if id != streamID {
		return fmt.Errorf("xref stream object number mismatch: %d != %d", id, streamID)
	}
	return nil
}

// writeTrailerEntries writes the /Root, /Info and /ID entries shared by the
// classic trailer and the xref stream dictionary.
func (context *Context) writeTrailerEntries(buf *bytes.Buffer) {
	trailer := context.PDFReader.Trailer()

	root := trailer.Key("Root").GetPtr()
	fmt.Fprintf(buf, "  /Root %d %d R\n", root.GetID(), root.GetGen())

	if context.infoID != 0 {
		fmt.Fprintf(buf, "  /Info %d 0 R\n", context.infoID)
	} else if info := trailer.Key("Info"); !info.IsNull() {
		ptr := info.GetPtr()
		if isIndirect(trailer, info) {
			fmt.Fprintf(buf, "  /Info %d %d R\n", ptr.GetID(), ptr.GetGen())
		}
	}

	id := trailer.Key("ID")
	if id.Len() >= 2 {
		id0 := hex.EncodeToString([]byte(id.Index(0).RawString()))
		id1 := hex.EncodeToString([]byte(id.Index(1).RawString()))
		fmt.Fprintf(buf, "  /ID [<%s><%s>]\n", id0, id1)
	} else {
		sum := md5.Sum(context.Input)
		fmt.Fprintf(buf, "  /ID [<%x><%x>]\n", sum, sum)
	}
}

func (context *Context) writeTrailer() error {
	var buf bytes.Buffer
	if context.PDFReader.XrefInformation.Type != "stream" {
		size := context.lastXrefID + 1 + uint32(len(context.newXrefEntries))
		buf.WriteString("trailer\n<<\n")
		fmt.Fprintf(&buf, "  /Size %d\n", size)
		fmt.Fprintf(&buf, "  /Prev %d\n", context.PDFReader.XrefInformation.StartPos)
		context.writeTrailerEntries(&buf)
		buf.WriteString(">>\n")
	}

	buf.WriteString("startxref\n")
	buf.WriteString(strconv.FormatInt(context.NewXrefStart, 10) + "\n")
	buf.WriteString("%%EOF\n")

	if _, err := context.OutputBuffer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write trailer: %w", err)
	}
	return nil
}

// encodeXrefStream compresses the xref rows without a predictor.
func encodeXrefStream(data []byte, level int) ([]byte, error) {
	if level == zlib.NoCompression {
		level = zlib.DefaultCompression
	}
	var b bytes.Buffer
	w, err := zlib.NewWriterLevel(&b, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeXrefStreamContent writes the content of the xref stream.
func writeXrefStreamContent(buffer *bytes.Buffer, streamBytes []byte) error {
	if _, err := io.WriteString(buffer, "stream\n"); err != nil {
		return err
	}
	if _, err := buffer.Write(streamBytes); err != nil {
		return err
	}
	if _, err := io.WriteString(buffer, "\nendstream"); err != nil {
		return err
	}
	return nil
}

// writeXrefStreamLine writes a single line in the xref stream.
func writeXrefStreamLine(b *bytes.Buffer, xreftype byte, offset int64, gen uint16) {
	b.WriteByte(xreftype)

	offsetBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(offsetBytes, uint32(offset))
	b.Write(offsetBytes)

	b.WriteByte(byte(gen))
}
