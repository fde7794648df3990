package entropy

import (
	"testing"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

func TestBuildAliasTable_RejectsBadSum(t *testing.T) {
	freq := make([]uint32, 32)
	freq[0] = 100 // far short of 4096
	_, err := BuildAliasTable(freq)
	if err == nil {
		t.Fatal("expected bad-sum distribution to be rejected")
	}
}

func TestBuildAliasTable_Degenerate(t *testing.T) {
	freq := make([]uint32, 32)
	freq[3] = ransTotal
	table, err := BuildAliasTable(freq)
	if err != nil {
		t.Fatalf("BuildAliasTable: %v", err)
	}
	var state RansState
	r := bitio.NewReader(make([]byte, 32))
	for i := 0; i < 5; i++ {
		if got := state.Decode(r, table); got != 3 {
			t.Errorf("Decode() = %d, want 3", got)
		}
	}
}

func TestBuildAliasTable_AllBucketsCovered(t *testing.T) {
	freq := make([]uint32, 32)
	base := uint32(ransTotal / 32)
	for i := range freq {
		freq[i] = base
	}
	table, err := BuildAliasTable(freq)
	if err != nil {
		t.Fatalf("BuildAliasTable: %v", err)
	}
	for i, s := range table.slots {
		if s.cutoff == 0 {
			t.Errorf("slot %d has zero cutoff", i)
		}
	}
}

func TestRansState_FinishWithoutDecode(t *testing.T) {
	// Encode initialRansState as two little-endian-ish 16-bit reads via
	// bitio's LSB-first convention.
	state32 := uint32(initialRansState)
	buf := []byte{
		byte(state32), byte(state32 >> 8),
		byte(state32 >> 16), byte(state32 >> 24),
	}
	r := bitio.NewReader(buf)
	var state RansState
	if err := state.Finish(r); err != nil {
		t.Errorf("Finish: %v", err)
	}
}

func TestRansState_SharedAcrossTables(t *testing.T) {
	// Two distinct degenerate tables; decoding against both through the
	// same RansState must not desync (each call threads the one shared
	// state, selecting only the table per call).
	freqA := make([]uint32, 32)
	freqA[1] = ransTotal
	tableA, err := BuildAliasTable(freqA)
	if err != nil {
		t.Fatalf("BuildAliasTable(A): %v", err)
	}
	freqB := make([]uint32, 32)
	freqB[7] = ransTotal
	tableB, err := BuildAliasTable(freqB)
	if err != nil {
		t.Fatalf("BuildAliasTable(B): %v", err)
	}

	r := bitio.NewReader(make([]byte, 32))
	var state RansState
	if got := state.Decode(r, tableA); got != 1 {
		t.Errorf("Decode(A) = %d, want 1", got)
	}
	if got := state.Decode(r, tableB); got != 7 {
		t.Errorf("Decode(B) = %d, want 7", got)
	}
	if got := state.Decode(r, tableA); got != 1 {
		t.Errorf("Decode(A) again = %d, want 1", got)
	}
}
