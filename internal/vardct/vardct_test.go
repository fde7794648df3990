package vardct

import (
	"testing"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

func TestInverseIDCT_Unsupported(t *testing.T) {
	_, err := InverseIDCT(nil, 8)
	if err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestReadDequantMatrices_ModesParse(t *testing.T) {
	// Not a golden bitstream check — just confirms 17 headers are read
	// without error from a zeroed-out (all mode 0, which needs a param
	// block) buffer.
	r := bitio.NewReader(make([]byte, 256))
	out, err := ReadDequantMatrices(r)
	if err != nil {
		t.Fatalf("ReadDequantMatrices: %v", err)
	}
	if len(out) != numDequantKinds {
		t.Errorf("len(out) = %d, want %d", len(out), numDequantKinds)
	}
}
