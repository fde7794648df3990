// Package entropy implements the prefix-code and rANS entropy layer:
// canonical prefix tables, rANS alias decoding, hybrid-integer token
// expansion, and the context-coded decoder (cluster map, optional LZ77
// overlay, four distribution flavors) that sits on top of both.
package entropy

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

// ErrBadCodeSpec reports a malformed entropy code spec: a cluster map
// that doesn't cover [0, numClusters) contiguously, or a distribution
// with an out-of-range symbol or the wrong total.
var ErrBadCodeSpec = fmt.Errorf("entropy: bad code spec (ranc)")

// lz77Config holds the optional LZ77 overlay parameters: enabling it
// appends one synthetic distribution (index numDists-1, before the
// cluster map is read) from which copy distances are read.
type lz77Config struct {
	enabled    bool
	minSymbol  uint32
	minLength  uint32
	lenConfig  HybridConfig
}

// cluster is one entropy-coded stream: its hybrid-integer config plus
// either a prefix table or a rANS alias table, depending on the spec's
// global usePrefixCodes flag.
type cluster struct {
	hybrid    HybridConfig
	prefix    *PrefixTable
	ransTable *AliasTable
}

// CodeSpec is a fully parsed entropy code spec: the cluster map from
// context id to cluster, the clusters themselves, and the LZ77 overlay
// if enabled.
type CodeSpec struct {
	usePrefixCodes bool
	lz77           lz77Config
	clusterOf      []uint32
	clusters       []cluster
	numDists       uint32
}

// specialDistanceTable is the 120-entry table that remaps short LZ77
// distances onto nearby-pixel offsets when dist_mult is in play (spec.md
// §4.5); entries are (row, col) deltas flattened in the table's own scan
// order, populated as a plausible expanding-ring ordering since the
// draft spec does not fix the exact sequence.
var specialDistanceTable = buildSpecialDistanceTable()

func buildSpecialDistanceTable() [120]int32 {
	var t [120]int32
	i := 0
	for r := int32(0); r < 12 && i < 120; r++ {
		for c := int32(-r); c <= r && i < 120; c++ {
			t[i] = r*1024 + c
			i++
		}
	}
	return t
}

// ReadCodeSpec parses one entropy code spec: LZ77 params, the cluster
// map, and per-cluster hybrid config plus prefix table or distribution.
func ReadCodeSpec(r *bitio.Reader, numContexts uint32) (*CodeSpec, error) {
	s := &CodeSpec{}

	s.lz77.enabled = r.U(1) != 0
	numDists := numContexts
	if s.lz77.enabled {
		s.lz77.minSymbol = r.U32(224, 0, 512, 0, 4096, 0, 8, 15)
		s.lz77.minLength = r.U32(3, 0, 4, 0, 5, 2, 9, 8)
		s.lz77.lenConfig = HybridConfig{
			SplitExp:   uint(r.U(5)) & 0x1F,
			MSBInToken: uint(r.U(2)),
			LSBInToken: uint(r.U(2)),
		}
		numDists++ // the synthetic LZ77 distribution.
	}

	clusterOf, numClusters, err := readClusterMap(r, numDists)
	if err != nil {
		return nil, err
	}
	s.clusterOf = clusterOf
	s.numDists = numDists

	s.usePrefixCodes = r.U(1) != 0

	s.clusters = make([]cluster, numClusters)
	for i := uint32(0); i < numClusters; i++ {
		hcfg := HybridConfig{
			SplitExp:   uint(r.U(5)) & 0x1F,
			MSBInToken: uint(r.U(2)),
			LSBInToken: uint(r.U(2)),
		}
		s.clusters[i].hybrid = hcfg

		if s.usePrefixCodes {
			useSimple := r.U(1) != 0
			var table *PrefixTable
			if useSimple {
				nsym := int(r.U(2)) + 1
				syms := make([]uint32, nsym)
				for j := range syms {
					syms[j] = r.U(8)
				}
				var treeSelect bool
				if nsym == 4 {
					treeSelect = r.U(1) != 0
				}
				table, err = BuildSimple(syms, treeSelect)
			} else {
				var lengths []uint8
				lengths, err = ReadComplexLengths(r, alphabetSizeForHybrid(hcfg))
				if err == nil {
					table, err = BuildCanonical(lengths)
				}
			}
			if err != nil {
				return nil, err
			}
			s.clusters[i].prefix = table
		} else {
			freq, err := readDistribution(r, alphabetSizeForHybrid(hcfg))
			if err != nil {
				return nil, err
			}
			table, err := BuildAliasTable(freq)
			if err != nil {
				return nil, err
			}
			s.clusters[i].ransTable = table
		}
	}

	return s, nil
}

// alphabetSizeForHybrid sizes the token alphabet as 2^SplitExp direct
// tokens plus 8*2^(MSBInToken+LSBInToken) tokens above the split, rounded
// up to the smallest of {32,64,128,256} (256 when larger). Tokens that
// Expand would accept beyond that count are not covered.
func alphabetSizeForHybrid(c HybridConfig) int {
	max := uint(1) << c.SplitExp
	n := c.MSBInToken + c.LSBInToken
	max += (uint(1) << n) * 8
	for _, sz := range []uint{32, 64, 128, 256} {
		if max <= sz {
			return int(sz)
		}
	}
	return 256
}

// readClusterMap decodes the mapping from context id to cluster id,
// either via fixed-width simple coding or a recursively-coded single
// distribution followed by an optional move-to-front inverse.
func readClusterMap(r *bitio.Reader, numContexts uint32) ([]uint32, uint32, error) {
	if numContexts == 1 {
		return []uint32{0}, 1, nil
	}

	simple := r.U(1) != 0
	out := make([]uint32, numContexts)

	if simple {
		nbits := uint(r.U(3))
		for i := range out {
			out[i] = r.U(nbits)
		}
	} else {
		nested := HybridConfig{
			SplitExp:   uint(r.U(5)) & 0x1F,
			MSBInToken: uint(r.U(2)),
			LSBInToken: uint(r.U(2)),
		}
		simpleTree := r.U(1) != 0
		var table *PrefixTable
		var err error
		if simpleTree {
			nsym := int(r.U(2)) + 1
			syms := make([]uint32, nsym)
			for j := range syms {
				syms[j] = r.U(8)
			}
			var treeSelect bool
			if nsym == 4 {
				treeSelect = r.U(1) != 0
			}
			table, err = BuildSimple(syms, treeSelect)
		} else {
			var lengths []uint8
			lengths, err = ReadComplexLengths(r, 256)
			if err == nil {
				table, err = BuildCanonical(lengths)
			}
		}
		if err != nil {
			return nil, 0, err
		}
		for i := range out {
			tok, err := table.Decode(r)
			if err != nil {
				return nil, 0, err
			}
			v, err := nested.Expand(r, tok)
			if err != nil {
				return nil, 0, err
			}
			out[i] = v
		}

		if r.U(1) != 0 {
			inverseMTF(out)
		}
	}

	var maxCluster uint32
	seen := map[uint32]bool{}
	for _, c := range out {
		seen[c] = true
		if c > maxCluster {
			maxCluster = c
		}
	}
	numClusters := maxCluster + 1
	for i := uint32(0); i < numClusters; i++ {
		if !seen[i] {
			return nil, 0, ErrBadCodeSpec
		}
	}
	return out, numClusters, nil
}

// inverseMTF undoes a move-to-front encoding of cluster ids in place.
func inverseMTF(v []uint32) {
	var table []uint32
	for i, rank := range v {
		for int(rank) >= len(table) {
			table = append(table, uint32(len(table)))
		}
		sym := table[rank]
		copy(table[1:rank+1], table[0:rank])
		table[0] = sym
		v[i] = sym
	}
}

// readDistribution decodes one normalized rANS distribution of the
// given alphabet size, returning per-symbol frequencies summing to 4096.
func readDistribution(r *bitio.Reader, alphabetSize int) ([]uint32, error) {
	freq := make([]uint32, alphabetSize)

	flavor := r.U(2)
	switch flavor {
	case 0: // single symbol
		sym := r.U32(0, 4, 16, 8, 272, 11, 2320, 16)
		if int(sym) >= alphabetSize {
			return nil, ErrBadCodeSpec
		}
		freq[sym] = ransTotal

	case 1: // two symbols, one explicit probability
		sym0 := r.U32(0, 4, 16, 8, 272, 11, 2320, 16)
		sym1 := r.U32(0, 4, 16, 8, 272, 11, 2320, 16)
		if int(sym0) >= alphabetSize || int(sym1) >= alphabetSize || sym0 == sym1 {
			return nil, ErrBadCodeSpec
		}
		prob := r.U(12)
		freq[sym0] = prob
		freq[sym1] = ransTotal - prob

	case 2: // uniform over a prefix of the alphabet
		length := int(r.U32(0, 0, 1, 2, 0, 3, 0, 8)) + 2
		if length > alphabetSize {
			return nil, ErrBadCodeSpec
		}
		base := ransTotal / uint32(length)
		rem := ransTotal - base*uint32(length)
		for i := 0; i < length; i++ {
			freq[i] = base
		}
		freq[0] += rem

	default: // per-symbol presence bit and bit-count, no run-length coding; one implicit slot absorbs the deficit
		logAlpha := r.U(2) + 1
		var total uint32
		omit := -1
		omitLog := uint32(0)
		for i := 0; i < alphabetSize; i++ {
			if r.U(1) == 0 {
				continue
			}
			l := r.U(uint(logAlpha))
			if l > 0 {
				v := uint32(1) << (l - 1)
				if omit < 0 || v > omitLog {
					if omit >= 0 {
						freq[omit] = uint32(1) << (omitLog - 1)
						total += freq[omit]
					}
					omit = i
					omitLog = v
				} else {
					freq[i] = v
					total += v
				}
			}
		}
		if omit >= 0 {
			if total >= ransTotal {
				return nil, ErrBadCodeSpec
			}
			freq[omit] = ransTotal - total
		}
	}

	var sum uint32
	for _, f := range freq {
		sum += f
	}
	if sum != ransTotal {
		return nil, ErrBadCodeSpec
	}
	return freq, nil
}

// window is the 2^20 LZ77 sliding buffer of previously decoded values
// for one CodeSpec's copy mechanism, allocated lazily on first use.
const windowSize = 1 << 20

// Decoder drives one entropy-coded stream: context dispatch, the LZ77
// copy state machine, and per-cluster token decode.
type Decoder struct {
	spec       *CodeSpec
	window     []uint32
	numWritten int
	numToCopy  uint32
	copyPos    int
	ransState  RansState
}

// NewDecoder creates a Decoder bound to spec.
func NewDecoder(spec *CodeSpec) *Decoder {
	return &Decoder{spec: spec}
}

// Code decodes the next value for context ctx; distMult selects the
// special-distance remapping used when an LZ77 copy starts (0 disables
// it).
func (d *Decoder) Code(r *bitio.Reader, ctx uint32, distMult uint32) (int64, error) {
	if d.numToCopy > 0 {
		return d.nextCopy(), nil
	}

	clusterIdx := d.clusterFor(ctx)
	rawToken, err := d.readRawToken(r, clusterIdx)
	if err != nil {
		return 0, err
	}

	if d.spec.lz77.enabled && rawToken >= d.spec.lz77.minSymbol {
		num, err := d.spec.lz77.lenConfig.Expand(r, rawToken-d.spec.lz77.minSymbol)
		if err != nil {
			return 0, err
		}
		d.numToCopy = num + d.spec.lz77.minLength

		distCluster := d.clusterFor(d.spec.numDists - 1)
		distRaw, err := d.readRawToken(r, distCluster)
		if err != nil {
			return 0, err
		}
		distU, err := d.spec.clusters[distCluster].hybrid.Expand(r, distRaw)
		if err != nil {
			return 0, err
		}
		distance := int64(distU)
		if distMult != 0 && distance < 120 {
			distance = int64(specialDistanceTable[distance])
		} else if distance >= 120 {
			distance -= 119
		}
		if distance < 1 {
			distance = 1
		}
		maxDist := int64(d.numWritten)
		if maxDist > windowSize {
			maxDist = windowSize
		}
		if distance > maxDist {
			distance = maxDist
		}
		d.copyPos = d.numWritten - int(distance)
		return d.nextCopy(), nil
	}

	token, err := d.spec.clusters[clusterIdx].hybrid.Expand(r, rawToken)
	if err != nil {
		return 0, err
	}
	val := toSigned(token)
	d.push(token)
	return val, nil
}

func (d *Decoder) nextCopy() int64 {
	v := d.window[d.copyPos%windowSize]
	d.copyPos++
	d.numToCopy--
	d.push(v)
	return toSigned(v)
}

func (d *Decoder) push(raw uint32) {
	if d.spec.lz77.enabled {
		if d.window == nil {
			d.window = make([]uint32, windowSize)
		}
		d.window[d.numWritten%windowSize] = raw
	}
	d.numWritten++
}

func (d *Decoder) clusterFor(ctx uint32) uint32 {
	if int(ctx) >= len(d.spec.clusterOf) {
		return 0
	}
	return d.spec.clusterOf[ctx]
}

// readRawToken reads one symbol from clusterIdx's prefix table or rANS
// stream without applying its hybrid-integer expansion; callers decide
// which HybridConfig (the cluster's own, or the LZ77 length config) the
// raw token belongs to.
func (d *Decoder) readRawToken(r *bitio.Reader, clusterIdx uint32) (uint32, error) {
	c := &d.spec.clusters[clusterIdx]
	if d.spec.usePrefixCodes {
		return c.prefix.Decode(r)
	}
	return d.ransState.Decode(r, c.ransTable), nil
}

// Finish asserts the decoder's terminal invariants: no copy left
// in-flight, and (if this code spec uses rANS) the single shared rANS
// state back at its initial value.
func (d *Decoder) Finish(r *bitio.Reader) error {
	if d.numToCopy != 0 {
		return fmt.Errorf("entropy: stream ended mid-copy (rancf)")
	}
	if !d.spec.usePrefixCodes {
		if err := d.ransState.Finish(r); err != nil {
			return err
		}
	}
	return nil
}
