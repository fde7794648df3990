package jxl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testBitWriter packs bits LSB-first within each byte, matching
// bitio.Reader's consumption order: the first bit written is the first
// bit a Reader.u call would consume.
type testBitWriter struct {
	bits []byte
}

func (w *testBitWriter) write(value uint64, n int) {
	for i := 0; i < n; i++ {
		w.bits = append(w.bits, byte((value>>uint(i))&1))
	}
}

func (w *testBitWriter) bytes() []byte {
	out := make([]byte, (len(w.bits)+7)/8)
	for i, b := range w.bits {
		if b != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// buildRawMetadataCodestream assembles a minimal raw (unwrapped) JPEG XL
// codestream covering only the signature and the basic image header that
// DecodeConfig reads: width 5, height 3, bit depth 10, alpha present, no
// ICC profile.
func buildRawMetadataCodestream() []byte {
	w := &testBitWriter{}
	w.write(0xFF, 8) // signature byte 0
	w.write(0x0A, 8) // signature byte 1

	w.write(0, 2) // width selector 0: offset 1, width 9
	w.write(4, 9) // payload 4 -> width = 1+4 = 5

	w.write(0, 2) // height selector 0: offset 1, width 9
	w.write(2, 9) // payload 2 -> height = 1+2 = 3

	w.write(1, 2) // bit depth selector 1: offset 10, width 0 -> 10

	w.write(1, 1) // has_alpha = true
	w.write(0, 1) // have_icc = false

	return w.bytes()
}

func TestDecodeConfig_ReadsBasicMetadata(t *testing.T) {
	data := buildRawMetadataCodestream()

	meta, err := DecodeConfig(data)
	require.NoError(t, err)
	require.Equal(t, 5, meta.Width)
	require.Equal(t, 3, meta.Height)
	require.Equal(t, 10, meta.BitDepth)
	require.True(t, meta.HasAlpha)
	require.Nil(t, meta.ICCProfile)
}

func TestDecodeMetadata_AliasesDecodeConfig(t *testing.T) {
	data := buildRawMetadataCodestream()

	viaConfig, err := DecodeConfig(data)
	require.NoError(t, err)
	viaMetadata, err := DecodeMetadata(data)
	require.NoError(t, err)
	require.Equal(t, viaConfig, viaMetadata)
}

func TestDecodeConfig_RejectsUnsignedInput(t *testing.T) {
	_, err := DecodeConfig([]byte{0x00, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestDecode_FailsPastMetadataWithoutFrameHeader(t *testing.T) {
	// The metadata-only stream above has no frame header bits left for
	// Driver.DecodeFrame to read, so a full Decode should fail rather
	// than fabricate a frame.
	data := buildRawMetadataCodestream()
	_, err := Decode(data, DecodeOptions{})
	require.Error(t, err)
}
