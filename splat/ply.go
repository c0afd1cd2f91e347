package splat

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/mrjoshuak/go-splat/internal/wire"
)

// Parsing limits. Hostile headers can declare absurd structures; these bound
// allocation before a single body byte is read.
const (
	maxHeaderBytes   = 1 << 20 // total header size
	maxElements      = 1 << 10
	maxPropsPerElem  = 1 << 12
	maxVertexCount   = 1<<31 - 1
	preallocCapLimit = 1 << 16 // records preallocated before the body confirms them
)

// plyFormat identifies the PLY body encoding.
type plyFormat uint8

const (
	formatASCII plyFormat = iota
	formatBinaryLE
)

// propType identifies a PLY scalar property type.
type propType uint8

const (
	propChar propType = iota
	propUChar
	propShort
	propUShort
	propInt
	propUInt
	propFloat
	propDouble
)

// size returns the encoded size of the scalar type in a binary body.
func (t propType) size() int {
	switch t {
	case propChar, propUChar:
		return 1
	case propShort, propUShort:
		return 2
	case propInt, propUInt, propFloat:
		return 4
	case propDouble:
		return 8
	}
	return 0
}

// parsePropType maps a PLY type token to a propType. Both the original names
// ("float") and the sized aliases ("float32") are accepted.
func parsePropType(s string) (propType, bool) {
	switch s {
	case "char", "int8":
		return propChar, true
	case "uchar", "uint8":
		return propUChar, true
	case "short", "int16":
		return propShort, true
	case "ushort", "uint16":
		return propUShort, true
	case "int", "int32":
		return propInt, true
	case "uint", "uint32":
		return propUInt, true
	case "float", "float32":
		return propFloat, true
	case "double", "float64":
		return propDouble, true
	}
	return 0, false
}

// plyProperty is one declared property of an element. For list properties,
// countType holds the type of the per-record element count and typ the type
// of the list values.
type plyProperty struct {
	name      string
	typ       propType
	list      bool
	countType propType

	// slot is the gaussian field this property binds to, or -1 when the
	// property is read-and-discarded. Binding happens once, after the
	// header parse, so the per-record path never compares names.
	slot int
}

// plyElement is one declared element with its property layout.
type plyElement struct {
	name  string
	count int
	props []plyProperty
}

// fixedRowSize returns the binary row size in bytes when the element has no
// list properties, or -1 when rows are variable length.
func (e *plyElement) fixedRowSize() int {
	size := 0
	for i := range e.props {
		if e.props[i].list {
			return -1
		}
		size += e.props[i].typ.size()
	}
	return size
}

// minRowSize returns a lower bound on the encoded size of one row, used to
// reject vertex counts that cannot fit in the remaining input.
func (e *plyElement) minRowSize(format plyFormat) int {
	if len(e.props) == 0 {
		return 0
	}
	if format == formatASCII {
		// Each ASCII value is at least one character, with separators
		// between values (the final newline may be absent).
		return 2*len(e.props) - 1
	}
	size := 0
	for i := range e.props {
		if e.props[i].list {
			size += e.props[i].countType.size()
		} else {
			size += e.props[i].typ.size()
		}
	}
	return size
}

// plyHeader is the parsed header with the vertex element located and its
// required properties bound to gaussian slots.
type plyHeader struct {
	format      plyFormat
	elements    []plyElement
	vertexIndex int
}

func (h *plyHeader) vertex() *plyElement {
	return &h.elements[h.vertexIndex]
}

// headerLineReader reads '\n'-terminated header lines from a bufio.Reader,
// tolerating '\r' and enforcing the total header size limit.
type headerLineReader struct {
	br   *bufio.Reader
	read int
}

func (r *headerLineReader) next() (string, error) {
	line, err := r.br.ReadString('\n')
	r.read += len(line)
	if err != nil {
		if err == io.EOF {
			return "", formatErrorf("unexpected end of header")
		}
		return "", err
	}
	if r.read > maxHeaderBytes {
		return "", formatErrorf("header exceeds %d bytes", maxHeaderBytes)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// parsePLYHeader parses the header from br, leaving the read position at the
// first body byte. It validates the format line, collects element and
// property declarations, and binds the vertex element's required properties
// to slots by name. The second result is the number of header bytes
// consumed, so callers with a known input size can bound the body.
func parsePLYHeader(br *bufio.Reader) (*plyHeader, int, error) {
	lr := &headerLineReader{br: br}

	magic, err := lr.next()
	if err != nil {
		return nil, lr.read, err
	}
	if magic != "ply" {
		return nil, lr.read, formatErrorf("missing \"ply\" magic")
	}

	h := &plyHeader{vertexIndex: -1}
	haveFormat := false

	for {
		line, err := lr.next()
		if err != nil {
			return nil, lr.read, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "end_header":
			if !haveFormat {
				return nil, lr.read, formatErrorf("missing format declaration")
			}
			if err := bindVertexElement(h); err != nil {
				return nil, lr.read, err
			}
			return h, lr.read, nil

		case "format":
			if len(fields) != 3 {
				return nil, lr.read, formatErrorf("malformed format line %q", line)
			}
			if fields[2] != "1.0" {
				return nil, lr.read, formatErrorf("unsupported PLY version %q", fields[2])
			}
			switch fields[1] {
			case "ascii":
				h.format = formatASCII
			case "binary_little_endian":
				h.format = formatBinaryLE
			case "binary_big_endian":
				return nil, lr.read, ErrBigEndianUnsupported
			default:
				return nil, lr.read, formatErrorf("unknown format %q", fields[1])
			}
			haveFormat = true

		case "comment", "obj_info":
			// Ignored.

		case "element":
			if len(fields) != 3 {
				return nil, lr.read, formatErrorf("malformed element line %q", line)
			}
			if len(h.elements) >= maxElements {
				return nil, lr.read, formatErrorf("too many elements")
			}
			count, err := strconv.ParseUint(fields[2], 10, 63)
			if err != nil {
				return nil, lr.read, formatErrorf("invalid element count %q", fields[2])
			}
			if count > maxVertexCount {
				return nil, lr.read, formatErrorf("element count %d exceeds limit", count)
			}
			h.elements = append(h.elements, plyElement{
				name:  fields[1],
				count: int(count),
			})
			if fields[1] == "vertex" && h.vertexIndex < 0 {
				h.vertexIndex = len(h.elements) - 1
			}

		case "property":
			if len(h.elements) == 0 {
				return nil, lr.read, formatErrorf("property declared before any element")
			}
			elem := &h.elements[len(h.elements)-1]
			if len(elem.props) >= maxPropsPerElem {
				return nil, lr.read, formatErrorf("too many properties in element %q", elem.name)
			}
			prop, err := parsePropertyLine(fields, line)
			if err != nil {
				return nil, lr.read, err
			}
			elem.props = append(elem.props, prop)

		default:
			// Unknown header keywords are ignored for forward compatibility.
		}
	}
}

func parsePropertyLine(fields []string, line string) (plyProperty, error) {
	if len(fields) >= 2 && fields[1] == "list" {
		if len(fields) != 5 {
			return plyProperty{}, formatErrorf("malformed list property %q", line)
		}
		countType, ok := parsePropType(fields[2])
		if !ok {
			return plyProperty{}, formatErrorf("unknown list count type %q", fields[2])
		}
		if countType == propFloat || countType == propDouble {
			return plyProperty{}, formatErrorf("non-integer list count type %q", fields[2])
		}
		valueType, ok := parsePropType(fields[3])
		if !ok {
			return plyProperty{}, formatErrorf("unknown list value type %q", fields[3])
		}
		return plyProperty{
			name:      fields[4],
			typ:       valueType,
			list:      true,
			countType: countType,
			slot:      -1,
		}, nil
	}

	if len(fields) != 3 {
		return plyProperty{}, formatErrorf("malformed property line %q", line)
	}
	typ, ok := parsePropType(fields[1])
	if !ok {
		return plyProperty{}, formatErrorf("unknown property type %q", fields[1])
	}
	return plyProperty{name: fields[2], typ: typ, slot: -1}, nil
}

// bindVertexElement resolves the required property names to gaussian slots.
// Binding is by name, never by declaration position, so reordered and
// interleaved extra properties cost nothing at decode time.
func bindVertexElement(h *plyHeader) error {
	if h.vertexIndex < 0 {
		return formatErrorf("no vertex element")
	}
	vertex := h.vertex()

	var bound [fieldCount]bool
	for i := range vertex.props {
		prop := &vertex.props[i]
		if prop.list {
			continue
		}
		for slot, name := range requiredProperties {
			if prop.name != name {
				continue
			}
			if bound[slot] {
				return formatErrorf("duplicate vertex property %q", name)
			}
			if prop.typ != propFloat {
				return formatErrorf("vertex property %q must be float", name)
			}
			prop.slot = slot
			bound[slot] = true
			break
		}
	}

	for slot, name := range requiredProperties {
		if !bound[slot] {
			return &MissingPropertyError{Name: name}
		}
	}
	return nil
}

// readGaussians decodes the body from br into one gaussian per vertex.
// bodySize is the number of bytes following the header when known, or -1 for
// unsized sources (compressed streams); when known it rejects vertex counts
// that cannot possibly fit before allocating for them.
func readGaussians(br *bufio.Reader, h *plyHeader, bodySize int64) ([]gaussian, error) {
	vertex := h.vertex()

	if bodySize >= 0 {
		var need int64
		for i := range h.elements {
			elem := &h.elements[i]
			need += int64(elem.count) * int64(elem.minRowSize(h.format))
			if i == h.vertexIndex {
				break
			}
		}
		// minRowSize is a lower bound for both encodings: binary rows have
		// exact fixed sizes, ASCII values need a character plus a separator.
		if need > bodySize {
			return nil, formatErrorf("body too short for %d declared vertices", vertex.count)
		}
	}

	if h.format == formatASCII {
		return readGaussiansASCII(br, h)
	}
	return readGaussiansBinary(br, h)
}

// readGaussiansASCII decodes an ASCII body. PLY ASCII bodies are whitespace
// separated value streams, not strictly line oriented, so decoding tokenizes
// words rather than lines.
func readGaussiansASCII(br *bufio.Reader, h *plyHeader) ([]gaussian, error) {
	sc := bufio.NewScanner(br)
	sc.Buffer(getBuffer(64<<10), 64<<10)
	sc.Split(bufio.ScanWords)

	nextToken := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", formatErrorf("reading ASCII body: %v", err)
			}
			return "", formatErrorf("truncated ASCII body")
		}
		return sc.Text(), nil
	}

	skipValues := func(n int) error {
		for i := 0; i < n; i++ {
			if _, err := nextToken(); err != nil {
				return err
			}
		}
		return nil
	}

	skipElement := func(elem *plyElement) error {
		for row := 0; row < elem.count; row++ {
			for p := range elem.props {
				prop := &elem.props[p]
				if !prop.list {
					if _, err := nextToken(); err != nil {
						return err
					}
					continue
				}
				tok, err := nextToken()
				if err != nil {
					return err
				}
				count, err := parseListCount(tok)
				if err != nil {
					return err
				}
				if err := skipValues(count); err != nil {
					return err
				}
			}
		}
		return nil
	}

	var out []gaussian
	for i := range h.elements {
		elem := &h.elements[i]
		if i != h.vertexIndex {
			if err := skipElement(elem); err != nil {
				return nil, err
			}
			continue
		}

		out = makeGaussianSlice(elem.count)
		for row := 0; row < elem.count; row++ {
			var g gaussian
			for p := range elem.props {
				prop := &elem.props[p]
				if prop.list {
					tok, err := nextToken()
					if err != nil {
						return nil, err
					}
					count, err := parseListCount(tok)
					if err != nil {
						return nil, err
					}
					if err := skipValues(count); err != nil {
						return nil, err
					}
					continue
				}
				tok, err := nextToken()
				if err != nil {
					return nil, err
				}
				if prop.slot < 0 {
					continue
				}
				v, err := strconv.ParseFloat(tok, 32)
				if err != nil {
					return nil, formatErrorf("invalid vertex value %q for property %q", tok, prop.name)
				}
				g[prop.slot] = float32(v)
			}
			out = append(out, g)
		}
		// Elements declared after vertex carry nothing the conversion needs.
		break
	}
	return out, nil
}

// parseListCount parses an ASCII list length token.
func parseListCount(tok string) (int, error) {
	n, err := strconv.ParseUint(tok, 10, 31)
	if err != nil {
		return 0, formatErrorf("invalid list count %q", tok)
	}
	if n > maxPropsPerElem {
		return 0, formatErrorf("list count %d exceeds limit", n)
	}
	return int(n), nil
}

// readGaussiansBinary decodes a binary_little_endian body. Elements without
// list properties decode on a fixed-stride fast path; list-bearing elements
// fall back to sequential per-value reads.
func readGaussiansBinary(br *bufio.Reader, h *plyHeader) ([]gaussian, error) {
	truncated := func(err error) error {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return formatErrorf("truncated binary body")
		}
		return err
	}

	discard := func(n int64) error {
		for n > 0 {
			step := n
			if step > 1<<20 {
				step = 1 << 20
			}
			if _, err := br.Discard(int(step)); err != nil {
				return truncated(err)
			}
			n -= step
		}
		return nil
	}

	readListCount := func(t propType) (int, error) {
		var buf [8]byte
		if _, err := io.ReadFull(br, buf[:t.size()]); err != nil {
			return 0, truncated(err)
		}
		r := wire.NewReader(buf[:t.size()])
		var n int64
		switch t {
		case propChar, propUChar:
			b, _ := r.ReadUint8()
			n = int64(b)
		case propShort, propUShort:
			v, _ := r.ReadUint16()
			n = int64(v)
		default:
			v, _ := r.ReadUint32()
			n = int64(v)
		}
		if n > maxPropsPerElem {
			return 0, formatErrorf("list count %d exceeds limit", n)
		}
		return int(n), nil
	}

	skipElement := func(elem *plyElement) error {
		if stride := elem.fixedRowSize(); stride >= 0 {
			return discard(int64(elem.count) * int64(stride))
		}
		for row := 0; row < elem.count; row++ {
			for p := range elem.props {
				prop := &elem.props[p]
				if !prop.list {
					if err := discard(int64(prop.typ.size())); err != nil {
						return err
					}
					continue
				}
				count, err := readListCount(prop.countType)
				if err != nil {
					return err
				}
				if err := discard(int64(count) * int64(prop.typ.size())); err != nil {
					return err
				}
			}
		}
		return nil
	}

	var out []gaussian
	for i := range h.elements {
		elem := &h.elements[i]
		if i != h.vertexIndex {
			if err := skipElement(elem); err != nil {
				return nil, err
			}
			continue
		}

		out = makeGaussianSlice(elem.count)
		if stride := elem.fixedRowSize(); stride >= 0 {
			// Fast path: fixed-stride rows, slot offsets precomputed.
			offsets := make([]int, 0, fieldCount)
			slots := make([]int, 0, fieldCount)
			off := 0
			for p := range elem.props {
				prop := &elem.props[p]
				if prop.slot >= 0 {
					offsets = append(offsets, off)
					slots = append(slots, prop.slot)
				}
				off += prop.typ.size()
			}

			rowBuf := getBuffer(stride)
			defer putBuffer(rowBuf)
			row := rowBuf[:stride]
			for r := 0; r < elem.count; r++ {
				if _, err := io.ReadFull(br, row); err != nil {
					return nil, truncated(err)
				}
				var g gaussian
				for j, o := range offsets {
					g[slots[j]] = wire.Float32(row[o:])
				}
				out = append(out, g)
			}
			break
		}

		// Variable-stride rows: decode value by value.
		for r := 0; r < elem.count; r++ {
			var g gaussian
			var buf [8]byte
			for p := range elem.props {
				prop := &elem.props[p]
				if prop.list {
					count, err := readListCount(prop.countType)
					if err != nil {
						return nil, err
					}
					if err := discard(int64(count) * int64(prop.typ.size())); err != nil {
						return nil, err
					}
					continue
				}
				size := prop.typ.size()
				if _, err := io.ReadFull(br, buf[:size]); err != nil {
					return nil, truncated(err)
				}
				if prop.slot >= 0 {
					g[prop.slot] = wire.Float32(buf[:4])
				}
			}
			out = append(out, g)
		}
		break
	}
	return out, nil
}

// makeGaussianSlice preallocates record storage, capping the speculative
// capacity so a hostile count cannot allocate ahead of the body proving it.
func makeGaussianSlice(count int) []gaussian {
	capacity := count
	if capacity > preallocCapLimit {
		capacity = preallocCapLimit
	}
	return make([]gaussian, 0, capacity)
}

// sniffCompression inspects the first bytes of the stream for gzip or zstd
// magic. It only peeks; the reader position is unchanged.
func sniffCompression(br *bufio.Reader) (gzipMagic, zstdMagic bool) {
	head, _ := br.Peek(4)
	if len(head) >= 2 && head[0] == 0x1f && head[1] == 0x8b {
		return true, false
	}
	if len(head) >= 4 && bytes.Equal(head, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		return false, true
	}
	return false, false
}
