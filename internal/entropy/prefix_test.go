package entropy

import (
	"testing"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

func TestBuildCanonical_RejectsBadKraftSum(t *testing.T) {
	_, err := BuildCanonical([]uint8{1, 1, 1}) // three length-1 codes overfill
	if err == nil {
		t.Fatal("expected Kraft violation to be rejected")
	}
}

func TestPrefixTable_RoundTrip(t *testing.T) {
	// Symbols 0,1,2,3 with lengths 1,2,3,3: codes 0, 10, 110, 111 (canonical,
	// MSB-first before bit-reversal into the LSB-first LUT).
	lengths := []uint8{1, 2, 3, 3}
	table, err := BuildCanonical(lengths)
	if err != nil {
		t.Fatalf("BuildCanonical: %v", err)
	}

	// Pack the four codes back to back, LSB-first within each byte, in the
	// same bit order Decode expects: code bits are written MSB-first in
	// bitio.Reader's LSB-first stream via reverseBits, so we just bit-reverse
	// here as the encoder side would.
	var bits []uint32
	var lens []uint
	codes := []struct{ code uint32; len uint }{
		{0b0, 1},
		{0b10, 2},
		{0b110, 3},
		{0b111, 3},
	}
	for _, c := range codes {
		bits = append(bits, reverseBits(c.code, c.len))
		lens = append(lens, c.len)
	}

	var acc uint64
	var nbits uint
	var buf []byte
	push := func(v uint32, n uint) {
		acc |= uint64(v) << nbits
		nbits += n
		for nbits >= 8 {
			buf = append(buf, byte(acc))
			acc >>= 8
			nbits -= 8
		}
	}
	for i := range bits {
		push(bits[i], lens[i])
	}
	if nbits > 0 {
		buf = append(buf, byte(acc))
	}

	r := bitio.NewReader(buf)
	for sym := uint32(0); sym < 4; sym++ {
		got, err := table.Decode(r)
		if err != nil {
			t.Fatalf("Decode sym %d: %v", sym, err)
		}
		if got != sym {
			t.Errorf("Decode() = %d, want %d", got, sym)
		}
	}
	if r.Err() != nil {
		t.Errorf("unexpected reader error: %v", r.Err())
	}
}

func TestBuildSimple_TwoSymbols(t *testing.T) {
	table, err := BuildSimple([]uint32{5, 9}, false)
	if err != nil {
		t.Fatalf("BuildSimple: %v", err)
	}
	// Both symbols get length 1; 0 -> symbol 5, 1 -> symbol 9 (ascending).
	// The first bit read (LSB of the byte) is 1.
	r := bitio.NewReader([]byte{0b00000001})
	got, err := table.Decode(r)
	if err != nil || got != 9 {
		t.Errorf("Decode() = %d, %v; want 9, nil", got, err)
	}
}

func TestPrefixTable_MultipleOverflowBucketsDecodeIndependently(t *testing.T) {
	// lengths[0]=1 (minUsed=1 -> fastLen=2); symbols 1-4 get length 4 under
	// one fastLen=2 prefix bucket, symbols 5-8 get length 4 under a
	// different bucket. Both buckets hold entries with identical
	// (suffix, bits) sets, so a table that scanned the whole overflow
	// region instead of just the matching bucket would misdecode.
	lengths := []uint8{1, 4, 4, 4, 4, 4, 4, 4, 4}
	table, err := BuildCanonical(lengths)
	if err != nil {
		t.Fatalf("BuildCanonical: %v", err)
	}

	// Canonical code assignment (ascending symbol order within each
	// length class, MSB-first before bit-reversal): symbol 0 -> "0";
	// symbols 1..8 -> "1000".."1111" in order, i.e. symbol k (1<=k<=8)
	// gets code 0b1000+(k-1), length 4.
	for sym := uint32(1); sym <= 8; sym++ {
		code := uint32(0b1000) + (sym - 1)
		bits := reverseBits(code, 4)
		buf := []byte{byte(bits)}
		r := bitio.NewReader(buf)
		got, err := table.Decode(r)
		if err != nil {
			t.Fatalf("Decode sym %d: %v", sym, err)
		}
		if got != sym {
			t.Errorf("Decode() = %d, want %d", got, sym)
		}
	}
}

func TestReadComplexLengths_AllZeroInputSmoke(t *testing.T) {
	// Just exercise that decoding doesn't panic on an all-zero input; the
	// only acceptable error is ErrBadPrefixData. This is a smoke test of
	// the decode loop rather than a golden-bitstream check.
	r := bitio.NewReader(make([]byte, 64))
	_, err := ReadComplexLengths(r, 8)
	if err != nil && err != ErrBadPrefixData {
		t.Fatalf("unexpected error: %v", err)
	}
}
