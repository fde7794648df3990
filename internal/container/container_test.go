package container

import (
	"bytes"
	"testing"
)

func box(typ Type, contents []byte) []byte {
	var b bytes.Buffer
	length := uint32(8 + len(contents))
	b.Write([]byte{byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length)})
	b.Write([]byte{byte(typ >> 24), byte(typ >> 16), byte(typ >> 8), byte(typ)})
	b.Write(contents)
	return b.Bytes()
}

func ftypBox() []byte {
	return box(TypeFileType, []byte{'j', 'x', 'l', ' ', 0, 0, 0, 0})
}

func TestSniff_Raw(t *testing.T) {
	f, err := Sniff([]byte{0xFF, 0x0A, 0x00})
	if err != nil || f != FramingRaw {
		t.Fatalf("Sniff raw = %v, %v", f, err)
	}
}

func TestSniff_Container(t *testing.T) {
	f, err := Sniff(ContainerSignature[:])
	if err != nil || f != FramingContainer {
		t.Fatalf("Sniff container = %v, %v", f, err)
	}
}

func TestDemux_SingleJxlc(t *testing.T) {
	var data []byte
	data = append(data, ContainerSignature[:]...)
	data = append(data, ftypBox()...)
	codestream := []byte{0xFF, 0x0A, 0x01, 0x02}
	data = append(data, box(TypeCodestream, codestream)...)

	first, source, err := Demux(data)
	if err != nil {
		t.Fatalf("Demux: %v", err)
	}
	if !bytes.Equal(first, codestream) {
		t.Errorf("first = %v, want %v", first, codestream)
	}
	if source != nil {
		t.Errorf("source = %v, want nil for single jxlc", source)
	}
}

func TestDemux_SplitJxlp(t *testing.T) {
	var data []byte
	data = append(data, ContainerSignature[:]...)
	data = append(data, ftypBox()...)

	part0 := []byte{0xFF, 0x0A}
	part1 := []byte{0x01, 0x02, 0x03}

	idx0 := []byte{0, 0, 0, 0}
	idx1 := []byte{0x80, 0, 0, 1} // index 1, last-part bit set

	data = append(data, box(TypePart, append(idx0, part0...))...)
	data = append(data, box(TypePart, append(idx1, part1...))...)

	first, source, err := Demux(data)
	if err != nil {
		t.Fatalf("Demux: %v", err)
	}
	if !bytes.Equal(first, part0) {
		t.Errorf("first = %v, want %v", first, part0)
	}
	if source == nil {
		t.Fatal("expected a CodestreamSource for split jxlp")
	}
	next := source.NextPart()
	if !bytes.Equal(next, part1) {
		t.Errorf("next part = %v, want %v", next, part1)
	}
	if source.NextPart() != nil {
		t.Error("expected nil after all parts consumed")
	}
}

func TestDemux_RejectsBrotli(t *testing.T) {
	var data []byte
	data = append(data, ContainerSignature[:]...)
	data = append(data, ftypBox()...)
	data = append(data, box(TypeBrotli, []byte{0})...)

	_, _, err := Demux(data)
	e, ok := err.(*Error)
	if !ok || e.Code != CodeBrotli {
		t.Errorf("err = %v, want brot", err)
	}
}

func TestDemux_MissingSignature(t *testing.T) {
	_, _, err := Demux([]byte{0, 0, 0, 0})
	if err == nil {
		t.Fatal("expected error for missing signature")
	}
}
