package composite

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"
)

type xrefEntry struct {
	ID     uint32
	Gen    uint16
	Offset int64
}

// Context holds the state of a single incremental update. The original bytes
// are copied into OutputBuffer first and every new or replaced object is
// appended after them.
type Context struct {
	Input        []byte
	PDFReader    *pdf.Reader
	OutputBuffer *filebuffer.Buffer

	// CompressLevel determines compression level (zlib) for stream objects.
	CompressLevel int

	// NewXrefStart is the offset of the cross-reference section written by
	// writeXref.
	NewXrefStart int64

	infoID uint32

	lastXrefID         uint32
	newXrefEntries     []xrefEntry
	updatedXrefEntries []xrefEntry
}

// newContext parses input and prepares an output buffer holding a copy of it.
func newContext(input []byte, compressLevel int) (*Context, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return nil, err
	}

	size := rdr.Trailer().Key("Size").Int64()
	if rdr.XrefInformation.ItemCount > size {
		size = rdr.XrefInformation.ItemCount
	}
	if size < 1 {
		return nil, fmt.Errorf("invalid cross-reference size %d", size)
	}

	context := &Context{
		Input:         input,
		PDFReader:     rdr,
		OutputBuffer:  filebuffer.New([]byte{}),
		CompressLevel: compressLevel,
		lastXrefID:    uint32(size - 1),
	}

	if _, err := context.OutputBuffer.Write(input); err != nil {
		return nil, err
	}
	// File always needs an empty line after %%EOF.
	if _, err := context.OutputBuffer.Write([]byte("\n")); err != nil {
		return nil, err
	}
	return context, nil
}

func (context *Context) offset() int64 {
	return int64(context.OutputBuffer.Buff.Len())
}

// nextID returns the object number the next addObject call will use.
func (context *Context) nextID() uint32 {
	return context.lastXrefID + 1 + uint32(len(context.newXrefEntries))
}

func (context *Context) writeObject(id uint32, gen uint16, object []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", id, gen)
	buf.Write(bytes.TrimSpace(object))
	buf.WriteString("\nendobj\n")

	if _, err := context.OutputBuffer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write object %d: %w", id, err)
	}
	return nil
}

// addObject appends a new object and returns its object number.
func (context *Context) addObject(object []byte) (uint32, error) {
	id := context.nextID()
	entry := xrefEntry{ID: id, Offset: context.offset()}

	if err := context.writeObject(id, 0, object); err != nil {
		return 0, err
	}
	context.newXrefEntries = append(context.newXrefEntries, entry)
	return id, nil
}

// updateObject appends a replacement for an existing object.
func (context *Context) updateObject(id uint32, gen uint16, object []byte) error {
	if id == 0 || id > context.lastXrefID {
		return fmt.Errorf("cannot update unknown object %d", id)
	}
	entry := xrefEntry{ID: id, Gen: gen, Offset: context.offset()}

	if err := context.writeObject(id, gen, object); err != nil {
		return err
	}
	context.updatedXrefEntries = append(context.updatedXrefEntries, entry)
	return nil
}

// sortedUpdates returns the updated entries in ascending object order, keeping
// only the last replacement of each object.
func (context *Context) sortedUpdates() []xrefEntry {
	latest := make(map[uint32]xrefEntry, len(context.updatedXrefEntries))
	for _, entry := range context.updatedXrefEntries {
		latest[entry.ID] = entry
	}
	entries := make([]xrefEntry, 0, len(latest))
	for _, entry := range latest {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Bytes returns the complete output document.
func (context *Context) Bytes() []byte {
	out := make([]byte, context.OutputBuffer.Buff.Len())
	copy(out, context.OutputBuffer.Buff.Bytes())
	return out
}
