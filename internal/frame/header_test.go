package frame

import (
	"testing"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

func TestReadHeader_AllDefault(t *testing.T) {
	r := bitio.NewReader([]byte{0b00000001}) // AllDefault bit set, rest padding zero.
	h, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if !h.AllDefault || !h.IsModular || !h.IsLast {
		t.Errorf("h = %+v, want all-default regular modular last frame", h)
	}
}

func TestSectionCount_Trivial(t *testing.T) {
	if n := sectionCount(true, 5, 3, 7); n != 1 {
		t.Errorf("sectionCount(trivial) = %d, want 1", n)
	}
}

func TestSectionCount_Full(t *testing.T) {
	// 1 (lf_global) + numLfGroups + 1 (hf_global) + numPasses*numGroups
	n := sectionCount(false, 2, 3, 4)
	want := 1 + 2 + 1 + 3*4
	if n != want {
		t.Errorf("sectionCount() = %d, want %d", n, want)
	}
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{0, 256, 1},
		{1, 256, 1},
		{256, 256, 1},
		{257, 256, 2},
		{512, 256, 2},
	}
	for _, c := range cases {
		if got := ceilDiv(c.a, c.b); got != c.want {
			t.Errorf("ceilDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
