package entropy

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

// ErrBadDistribution reports a normalized distribution that doesn't sum
// to 4096, or an alphabet size outside {32,64,128,256}.
var ErrBadDistribution = fmt.Errorf("entropy: bad rANS distribution (ranp)")

const ransTotal = 1 << 12 // Sigma D == 4096, per spec.md.

// initialRansState is the state an unread rANS stream starts (and must
// end) at; finish() verifies a consumer that never decoded a symbol still
// materializes this value from two 16-bit reads.
const initialRansState = 0x130000

// aliasSlot is one bucket of the alias table: symbol i is returned
// directly when the sub-bucket offset falls below cutoff, otherwise the
// bucket's paired overfull symbol (other) and its offset apply.
type aliasSlot struct {
	cutoff uint32
	other  uint32
	offset uint32
}

// AliasTable is a rANS alias decoder for one normalized distribution.
type AliasTable struct {
	freq            []uint32
	slots           []aliasSlot
	logBucket       uint
	bucketSize      uint32
	numSymbols      uint32
}

// BuildAliasTable constructs an alias table from a normalized
// distribution freq (freq[i] is symbol i's frequency; Sigma freq must
// equal 4096). len(freq) must be one of {32,64,128,256}.
func BuildAliasTable(freq []uint32) (*AliasTable, error) {
	n := uint32(len(freq))
	switch n {
	case 32, 64, 128, 256:
	default:
		return nil, ErrBadDistribution
	}

	var sum uint32
	nonZero := -1
	multiple := false
	for i, f := range freq {
		sum += f
		if f != 0 {
			if nonZero >= 0 {
				multiple = true
			}
			nonZero = i
		}
	}
	if sum != ransTotal {
		return nil, ErrBadDistribution
	}

	bucketSize := ransTotal / n
	logBucket := uint(0)
	for (uint32(1) << logBucket) < bucketSize {
		logBucket++
	}

	t := &AliasTable{
		freq:       append([]uint32(nil), freq...),
		slots:      make([]aliasSlot, n),
		logBucket:  logBucket,
		bucketSize: bucketSize,
		numSymbols: n,
	}

	if !multiple {
		// Degenerate: a single symbol owns every bucket outright.
		for i := uint32(0); i < n; i++ {
			t.slots[i] = aliasSlot{cutoff: 0, other: uint32(nonZero), offset: i * bucketSize}
		}
		return t, nil
	}

	// Vose's alias method: classify each symbol's bucket occupancy
	// relative to bucketSize, then repeatedly pair an overfull bucket
	// with an underfull one until both stacks drain.
	occupancy := append([]uint32(nil), freq...)
	var overfull, underfull []uint32
	for i := uint32(0); i < n; i++ {
		switch {
		case occupancy[i] > bucketSize:
			overfull = append(overfull, i)
		case occupancy[i] < bucketSize:
			underfull = append(underfull, i)
		default:
			t.slots[i] = aliasSlot{cutoff: bucketSize, other: i, offset: 0}
		}
	}

	for len(underfull) > 0 {
		u := underfull[len(underfull)-1]
		underfull = underfull[:len(underfull)-1]

		if len(overfull) == 0 {
			// Rounding residue: seat the remaining underfull bucket on
			// itself; occupancy should already equal bucketSize.
			t.slots[u] = aliasSlot{cutoff: bucketSize, other: u, offset: 0}
			continue
		}
		o := overfull[len(overfull)-1]

		cutoff := occupancy[u]
		t.slots[u] = aliasSlot{cutoff: cutoff, other: o, offset: occupancy[o] - (bucketSize - cutoff)}
		occupancy[o] -= bucketSize - cutoff

		overfull = overfull[:len(overfull)-1]
		switch {
		case occupancy[o] > bucketSize:
			overfull = append(overfull, o)
		case occupancy[o] < bucketSize:
			underfull = append(underfull, o)
		default:
			t.slots[o] = aliasSlot{cutoff: bucketSize, other: o, offset: 0}
		}
	}

	return t, nil
}

// RansState is the running rANS state shared across every rANS-coded
// cluster in one code runtime. spec.md §3 describes exactly one
// "optional rANS state word" per code runtime, not one per cluster, so
// a single RansState threads through every Decode call regardless of
// which cluster's alias table is in play; only the table selection
// changes per context.
type RansState struct {
	state uint32
	used  bool
}

// Decode reads one symbol against table, materializing the shared
// state from the stream on the first Decode call across any table.
func (s *RansState) Decode(r *bitio.Reader, t *AliasTable) uint32 {
	if !s.used {
		s.state = r.U(16) | (r.U(16) << 16)
		s.used = true
	}

	index := s.state & 0xFFF
	i := index >> t.logBucket
	pos := index & (t.bucketSize - 1)

	slot := t.slots[i]
	var symbol, offset uint32
	if pos < slot.cutoff {
		symbol = i
		offset = 0
	} else {
		symbol = slot.other
		offset = slot.offset
	}

	s.state = t.freq[symbol]*(s.state>>12) + offset + pos
	if s.state < (1 << 16) {
		s.state = (s.state << 16) | r.U(16)
	}
	return symbol
}

// Finish asserts the shared state's terminal invariant: it must settle
// at initialRansState once materialized, whether or not any symbol was
// ever decoded against it.
func (s *RansState) Finish(r *bitio.Reader) error {
	if !s.used {
		s.state = r.U(16) | (r.U(16) << 16)
		s.used = true
	}
	if s.state != initialRansState {
		return fmt.Errorf("entropy: rANS stream did not return to initial state (ranf)")
	}
	return nil
}
