package entropy

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

// ErrBadPrefixData reports a malformed prefix code table (code "hufd").
var ErrBadPrefixData = fmt.Errorf("entropy: bad prefix code data (hufd)")

// prefixEntry is a direct-hit LUT slot: (symbol<<16)|len for a match of
// length <= fastLen, or -1 when no code of length <= fastLen matches the
// slot's bit pattern (the overflow region must be scanned instead).
type prefixEntry int32

// PrefixTable is a canonical prefix-code decoder: a flat LUT of
// 2^fastLen direct entries, plus — for LUT slots whose fastLen-bit
// prefix is shared by one or more longer codes — a linearly-scanned
// bucket of that prefix's overflow entries only. Two different
// fastLen-bit prefixes may each overflow, but their entries never
// share a bucket, since canonical codes are only guaranteed
// prefix-free as full codes, not as post-fastLen suffixes alone.
type PrefixTable struct {
	lut       []prefixEntry
	overflow  []overflowEntry // all buckets, concatenated contiguously.
	bucketOff []int32         // per LUT slot: start index into overflow, or -1.
	bucketLen []int32         // per LUT slot: number of entries in its bucket.
	pending   []pendingOverflow
	fastLen   uint
	maxLen    uint
}

type overflowEntry struct {
	suffix uint32 // low `bits` bits, LSB-first, of the code beyond fastLen
	bits   uint
	symbol uint32
	length uint
}

// pendingOverflow is one code recorded by place() before BuildCanonical
// groups codes by their shared fastLen-bit prefix into contiguous
// buckets.
type pendingOverflow struct {
	prefix uint32
	suffix uint32
	bits   uint
	symbol uint32
	length uint
}

// reverseBits reverses the low n bits of v.
func reverseBits(v uint32, n uint) uint32 {
	var out uint32
	for i := uint(0); i < n; i++ {
		out = (out << 1) | (v & 1)
		v >>= 1
	}
	return out
}

// BuildCanonical builds a table from per-symbol code lengths (0 means the
// symbol is unused). fastLen starts at the shortest used length and grows
// one bit at a time until it reaches maxLen or twice the starting length,
// whichever comes first — the growth heuristic from spec.md §4.2 that
// trades a bigger LUT for a shorter mean decode path.
func BuildCanonical(lengths []uint8) (*PrefixTable, error) {
	var maxLen uint
	counts := make(map[uint8]int)
	for _, l := range lengths {
		if l == 0 {
			continue
		}
		counts[l]++
		if uint(l) > maxLen {
			maxLen = uint(l)
		}
	}
	if maxLen == 0 {
		return nil, ErrBadPrefixData
	}

	// Kraft's equality: sum 2^(maxLen-len) over used symbols == 2^maxLen.
	var total uint64
	for l, c := range counts {
		total += uint64(c) << (maxLen - uint(l))
	}
	if total != uint64(1)<<maxLen {
		return nil, ErrBadPrefixData
	}

	minUsed := maxLen
	for l := range counts {
		if uint(l) < minUsed {
			minUsed = uint(l)
		}
	}
	fastLen := minUsed
	for fastLen < maxLen && fastLen < minUsed*2 {
		fastLen++
	}

	t := &PrefixTable{
		lut:     make([]prefixEntry, 1<<fastLen),
		fastLen: fastLen,
		maxLen:  maxLen,
	}
	for i := range t.lut {
		t.lut[i] = -1
	}

	// Assign canonical codes in symbol order within each length class.
	code := uint32(0)
	for l := uint8(1); l <= uint8(maxLen); l++ {
		n := counts[l]
		for sym := 0; sym < len(lengths) && n > 0; sym++ {
			if lengths[sym] != l {
				continue
			}
			t.place(uint32(sym), code, uint(l))
			code++
			n--
		}
		code <<= 1
	}

	t.finalize()
	return t, nil
}

// place records one canonical code, either filling LUT slots directly or
// queuing it as a pending overflow entry, keyed by the bit-reversed code
// so the LUT can be indexed directly by bits read LSB-first from the
// stream. Overflow entries are grouped into per-prefix buckets by
// finalize once every code has been placed.
func (t *PrefixTable) place(symbol, code uint32, length uint) {
	rev := reverseBits(code, length)
	if length <= t.fastLen {
		step := uint32(1) << length
		for i := rev; i < uint32(len(t.lut)); i += step {
			t.lut[i] = prefixEntry(symbol<<16 | uint32(length))
		}
		return
	}

	suffixLen := length - t.fastLen
	prefix := rev & ((uint32(1) << t.fastLen) - 1)
	suffix := rev >> t.fastLen
	t.pending = append(t.pending, pendingOverflow{
		prefix: prefix,
		suffix: suffix,
		bits:   suffixLen,
		symbol: symbol,
		length: length,
	})
}

// finalize groups every pending overflow entry by its fastLen-bit
// prefix into one contiguous run per prefix in t.overflow, recording
// each prefix's run as (bucketOff, bucketLen) so Decode scans only the
// entries that share its actual prefix.
func (t *PrefixTable) finalize() {
	t.bucketOff = make([]int32, len(t.lut))
	t.bucketLen = make([]int32, len(t.lut))
	for i := range t.bucketOff {
		t.bucketOff[i] = -1
	}
	if len(t.pending) == 0 {
		return
	}

	buckets := make(map[uint32][]pendingOverflow, len(t.pending))
	for _, p := range t.pending {
		buckets[p.prefix] = append(buckets[p.prefix], p)
	}
	for prefix, entries := range buckets {
		start := int32(len(t.overflow))
		for _, e := range entries {
			t.overflow = append(t.overflow, overflowEntry{
				suffix: e.suffix,
				bits:   e.bits,
				symbol: e.symbol,
				length: e.length,
			})
		}
		t.bucketOff[prefix] = start
		t.bucketLen[prefix] = int32(len(entries))
	}
	t.pending = nil
}

// MaxLen returns the longest canonical code length in the table.
func (t *PrefixTable) MaxLen() uint { return t.maxLen }

// Decode reads one symbol from r, consuming exactly that symbol's code
// length regardless of how many bits were inspected to find it.
func (t *PrefixTable) Decode(r *bitio.Reader) (uint32, error) {
	if t.maxLen == 0 {
		// Degenerate single-symbol table: zero-bit code.
		return uint32(t.lut[0]) >> 16, nil
	}

	fast := r.Peek(t.fastLen)
	entry := t.lut[fast]
	if entry >= 0 {
		length := uint(entry) & 0xFFFF
		symbol := uint32(entry) >> 16
		r.Advance(length)
		return symbol, nil
	}

	start := t.bucketOff[fast]
	if start < 0 {
		return 0, ErrBadPrefixData
	}
	full := r.Peek(t.maxLen)
	tail := full >> t.fastLen
	count := t.bucketLen[fast]
	for i := int32(0); i < count; i++ {
		e := t.overflow[start+i]
		mask := (uint32(1) << e.bits) - 1
		if tail&mask == e.suffix&mask {
			r.Advance(e.length)
			return e.symbol, nil
		}
	}
	return 0, ErrBadPrefixData
}

// BuildSimple builds a prefix table for the "simple code" case: up to 4
// symbols with explicit ids, using the fixed length templates from
// spec.md §4.2 (nsym 1..3 get trivial templates, nsym 4 picks between two
// four-symbol templates via a tree-select bit). Symbols of equal length
// are assigned in ascending order, per spec.md.
func BuildSimple(symbols []uint32, fourSymTreeSelect bool) (*PrefixTable, error) {
	alphabet := 0
	for _, s := range symbols {
		if int(s)+1 > alphabet {
			alphabet = int(s) + 1
		}
	}
	lengths := make([]uint8, alphabet)

	switch len(symbols) {
	case 1:
		return &PrefixTable{
			lut:     []prefixEntry{prefixEntry(symbols[0] << 16)},
			fastLen: 0,
			maxLen:  0,
		}, nil
	case 2:
		sorted := sortedCopy(symbols)
		lengths[sorted[0]] = 1
		lengths[sorted[1]] = 1
	case 3:
		sorted := sortedCopy(symbols)
		lengths[sorted[0]] = 1
		lengths[sorted[1]] = 2
		lengths[sorted[2]] = 2
	case 4:
		sorted := sortedCopy(symbols)
		if fourSymTreeSelect {
			lengths[sorted[0]] = 1
			lengths[sorted[1]] = 2
			lengths[sorted[2]] = 3
			lengths[sorted[3]] = 3
		} else {
			for _, s := range sorted {
				lengths[s] = 2
			}
		}
	default:
		return nil, ErrBadPrefixData
	}
	return BuildCanonical(lengths)
}

func sortedCopy(s []uint32) []uint32 {
	out := append([]uint32(nil), s...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// layer0Lengths is the hard-wired code used to read the 18 layer-1 code
// lengths of a complex prefix code (spec.md §4.2).
var layer0Lengths = []uint8{2, 4, 3, 2, 2, 4, 5, 5, 3, 3, 4, 5, 6, 6, 5, 4, 4, 3}

// complexZigzag is the fixed read order for layer-1 lengths.
var complexZigzag = []int{1, 2, 3, 4, 0, 5, 17, 6, 16, 7, 8, 9, 10, 11, 12, 13, 14, 15}

// ReadComplexLengths decodes the per-symbol length array for a complex
// prefix code of the given alphabet size.
func ReadComplexLengths(r *bitio.Reader, alphabetSize int) ([]uint8, error) {
	hskip := r.U(2)
	if hskip > 3 {
		return nil, ErrBadPrefixData
	}

	layer0, err := BuildCanonical(layer0Lengths)
	if err != nil {
		return nil, err
	}

	layer1Lengths := make([]uint8, 18)
	var sum uint32
	for i := int(hskip); i < 18 && sum < 32; i++ {
		idx := complexZigzag[i]
		sym, err := layer0.Decode(r)
		if err != nil {
			return nil, err
		}
		layer1Lengths[idx] = uint8(sym)
		if sym != 0 {
			sum += 32 >> sym
		}
	}
	if sum > 32 {
		return nil, ErrBadPrefixData
	}

	layer1, err := BuildCanonical(layer1Lengths)
	if err != nil {
		return nil, err
	}

	lengths := make([]uint8, alphabetSize)
	prevLen := uint8(8)
	// kind tracks which repeat alphabet (16 or 17, 0 for "none yet") was
	// last used, and extraPrev holds its most recent extra-bits value, so a
	// run of the same kind composes additively; a kind change resets both.
	kind := 0
	var extraPrev uint32

	i := 0
	for i < alphabetSize {
		sym, err := layer1.Decode(r)
		if err != nil {
			return nil, err
		}
		switch {
		case sym < 16:
			lengths[i] = uint8(sym)
			i++
			if sym != 0 {
				prevLen = uint8(sym)
			}
			kind = 0
		case sym == 16:
			extra := r.U(2)
			repeat := int(3 + extra)
			if kind == 16 {
				repeat += 4 * int(extraPrev)
			}
			kind, extraPrev = 16, extra
			for k := 0; k < repeat && i < alphabetSize; k++ {
				lengths[i] = prevLen
				i++
			}
		case sym == 17:
			extra := r.U(3)
			repeat := int(3 + extra)
			if kind == 17 {
				repeat += 8 * int(extraPrev)
			}
			kind, extraPrev = 17, extra
			for k := 0; k < repeat && i < alphabetSize; k++ {
				lengths[i] = 0
				i++
			}
		default:
			return nil, ErrBadPrefixData
		}
	}
	return lengths, nil
}
