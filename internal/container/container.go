// Package container demuxes the ISOBMFF-like box framing that JPEG XL
// files optionally wrap a codestream in. A raw codestream (starting with
// the FF 0A signature) needs none of this; Sniff reports which framing
// is present.
package container

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Type is a 4-byte box type code.
type Type uint32

func (t Type) String() string {
	b := []byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
	return string(b)
}

// Box type codes from the JPEG XL container format.
const (
	TypeSignature  Type = 0x4A584C20 // "JXL "
	TypeFileType   Type = 0x66747970 // "ftyp"
	TypeLevel      Type = 0x6A786C6C // "jxll" - level hint, informational
	TypeCodestream Type = 0x6A786C63 // "jxlc" - single codestream
	TypePart       Type = 0x6A786C70 // "jxlp" - codestream part
	TypeIndex      Type = 0x6A786C69 // "jxli" - index, ignored
	TypeBrotli     Type = 0x62726F62 // "brob" - brotli-wrapped box, rejected
)

// Signature is the raw-codestream signature (FF 0A).
var Signature = [2]byte{0xFF, 0x0A}

// ContainerSignature is the 12-byte JXL container signature box.
var ContainerSignature = [12]byte{0x00, 0x00, 0x00, 0x0C, 0x4A, 0x58, 0x4C, 0x20, 0x0D, 0x0A, 0x87, 0x0A}

// Code is the 4-character sentinel error code for container-level failures.
type Code string

const (
	CodeNoSignature  Code = "!exp"
	CodeBadBox       Code = "!box"
	CodeBadFileType  Code = "ftyp"
	CodeBoxTooLarge  Code = "boxx"
	CodeBrotli       Code = "brot"
)

// Error reports a container-level failure.
type Error struct {
	Code Code
}

func (e *Error) Error() string { return fmt.Sprintf("container: %s", string(e.Code)) }

// Box is one parsed ISOBMFF-style box.
type Box struct {
	Type     Type
	Contents []byte
}

// Framing describes which of the two accepted input framings was found.
type Framing int

const (
	FramingRaw Framing = iota
	FramingContainer
)

// Sniff inspects the first bytes of data and reports the framing.
func Sniff(data []byte) (Framing, error) {
	if len(data) >= 12 && bytesEqual(data[:12], ContainerSignature[:]) {
		return FramingContainer, nil
	}
	if len(data) >= 2 && data[0] == Signature[0] && data[1] == Signature[1] {
		return FramingRaw, nil
	}
	return 0, &Error{Code: CodeNoSignature}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// maxBoxSize bounds a single box's contents to guard against corrupt
// length fields demanding unreasonable allocations.
const maxBoxSize = 1 << 30

// reader walks a flat byte slice pulling out boxes.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) readBox() (*Box, error) {
	if r.pos >= len(r.data) {
		return nil, io.EOF
	}
	if r.pos+8 > len(r.data) {
		return nil, &Error{Code: CodeBadBox}
	}
	length := uint64(binary.BigEndian.Uint32(r.data[r.pos : r.pos+4]))
	typ := Type(binary.BigEndian.Uint32(r.data[r.pos+4 : r.pos+8]))
	headerLen := 8
	body := r.pos + 8

	switch length {
	case 1:
		if body+8 > len(r.data) {
			return nil, &Error{Code: CodeBadBox}
		}
		length = binary.BigEndian.Uint64(r.data[body : body+8])
		headerLen = 16
		body += 8
	case 0:
		length = uint64(len(r.data) - r.pos)
	}

	if length < uint64(headerLen) {
		return nil, &Error{Code: CodeBadBox}
	}
	contentLen := length - uint64(headerLen)
	if contentLen > maxBoxSize {
		return nil, &Error{Code: CodeBoxTooLarge}
	}
	end := body + int(contentLen)
	if end > len(r.data) {
		return nil, &Error{Code: CodeBadBox}
	}

	r.pos = end
	return &Box{Type: typ, Contents: r.data[body:end]}, nil
}

// CodestreamSource hands out successive jxlp codestream parts in order,
// implementing bitio.PartSource.
type CodestreamSource struct {
	parts [][]byte
	next  int
}

// NextPart implements bitio.PartSource.
func (s *CodestreamSource) NextPart() []byte {
	if s == nil || s.next >= len(s.parts) {
		return nil
	}
	p := s.parts[s.next]
	s.next++
	return p
}

// Demux walks a JXL container's top-level boxes and returns the
// assembled codestream: the full jxlc box contents, or the concatenation
// of jxlp parts in index order via a CodestreamSource (only the first
// part is returned directly; the rest are fetched lazily through the
// source so a Reader never has to buffer the whole codestream up front).
func Demux(data []byte) (first []byte, source *CodestreamSource, err error) {
	r := &reader{data: data}

	b, err := r.readBox()
	if err != nil {
		return nil, nil, err
	}
	if b.Type != TypeSignature {
		return nil, nil, &Error{Code: CodeNoSignature}
	}

	sawFtyp := false
	jxlpParts := map[uint32][]byte{}
	var jxlpOrder []uint32
	lastSeen := false

	for {
		b, err := r.readBox()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch b.Type {
		case TypeFileType:
			if len(b.Contents) < 8 {
				return nil, nil, &Error{Code: CodeBadFileType}
			}
			brand := Type(binary.BigEndian.Uint32(b.Contents[0:4]))
			if brand != 0x6A786C20 { // "jxl "
				return nil, nil, &Error{Code: CodeBadFileType}
			}
			sawFtyp = true

		case TypeLevel:
			// Informational only.

		case TypeCodestream:
			if !sawFtyp {
				return nil, nil, &Error{Code: CodeBadBox}
			}
			return b.Contents, nil, nil

		case TypePart:
			if !sawFtyp {
				return nil, nil, &Error{Code: CodeBadBox}
			}
			if len(b.Contents) < 4 {
				return nil, nil, &Error{Code: CodeBadBox}
			}
			idxWord := binary.BigEndian.Uint32(b.Contents[0:4])
			idx := idxWord &^ (1 << 31)
			isLast := idxWord&(1<<31) != 0
			jxlpParts[idx] = b.Contents[4:]
			jxlpOrder = append(jxlpOrder, idx)
			if isLast {
				lastSeen = true
			}

		case TypeIndex:
			// Ignored in this core.

		case TypeBrotli:
			return nil, nil, &Error{Code: CodeBrotli}
		}

		if lastSeen && len(jxlpParts) > 0 {
			break
		}
	}

	if len(jxlpParts) == 0 {
		return nil, nil, &Error{Code: CodeBadBox}
	}

	ordered := make([][]byte, len(jxlpOrder))
	for _, idx := range jxlpOrder {
		if int(idx) >= len(ordered) {
			return nil, nil, &Error{Code: CodeBadBox}
		}
		ordered[idx] = jxlpParts[idx]
	}
	if len(ordered) == 0 {
		return nil, nil, &Error{Code: CodeBadBox}
	}
	return ordered[0], &CodestreamSource{parts: ordered[1:]}, nil
}
