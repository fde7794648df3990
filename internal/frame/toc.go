package frame

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
	"github.com/lifthrasiir/j40-sub000/internal/entropy"
)

// ErrBadPermutation reports a Lehmer-code permutation whose digit is out
// of range for its position.
var ErrBadPermutation = fmt.Errorf("frame: bad permutation (perm)")

// permutationContexts is the fixed context count the TOC's permutation
// code spec is read with. readPermutation draws the first Lehmer digit
// from context 0 and every later digit from context 1.
const permutationContexts = 8

// readPermutation decodes a Lehmer-code permutation of n elements:
// successive digits each select (by remaining rank) one of the not-yet-
// placed original indices.
func readPermutation(r *bitio.Reader, n int) ([]int, error) {
	spec, err := entropy.ReadCodeSpec(r, permutationContexts)
	if err != nil {
		return nil, err
	}
	dec := entropy.NewDecoder(spec)

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		ctx := 0
		if i > 0 {
			ctx = 1
		}
		digit, err := dec.Code(r, uint32(ctx), 0)
		if err != nil {
			return nil, err
		}
		if digit < 0 || int(digit) >= len(remaining) {
			return nil, ErrBadPermutation
		}
		out[i] = remaining[digit]
		remaining = append(remaining[:digit], remaining[digit+1:]...)
	}

	if err := dec.Finish(r); err != nil {
		return nil, err
	}
	return out, nil
}

// TOC is the parsed table of contents: section byte sizes in bitstream
// order (after undoing any permutation), with section 0 always
// lf_global.
type TOC struct {
	Sizes []int
}

// sectionCount computes the number of TOC entries for a frame with the
// given group counts: either the trivial single-section form, or
// 1 (lf_global) + numLfGroups + 1 (hf_global) + numPasses*numGroups.
func sectionCount(trivial bool, numLfGroups, numPasses, numGroups int) int {
	if trivial {
		return 1
	}
	return 1 + numLfGroups + 1 + numPasses*numGroups
}

// ReadTOC parses the TOC for a non-trivial frame layout.
func ReadTOC(r *bitio.Reader, numLfGroups, numPasses, numGroups int) (*TOC, error) {
	n := sectionCount(false, numLfGroups, numPasses, numGroups)

	permuted := r.U(1) != 0
	var perm []int
	if permuted {
		var err error
		perm, err = readPermutation(r, n)
		if err != nil {
			return nil, err
		}
	}

	r.ZeroPadToByte()

	sizes := make([]int, n)
	for i := 0; i < n; i++ {
		sizes[i] = int(r.U32(0, 10, 1024, 14, 17408, 22, 4211712, 30))
	}
	r.ZeroPadToByte()

	if permuted {
		out := make([]int, n)
		for i, p := range perm {
			out[p] = sizes[i]
		}
		sizes = out
	}

	return &TOC{Sizes: sizes}, nil
}

// ReadTrivialTOC parses the single-section TOC form.
func ReadTrivialTOC(r *bitio.Reader) (*TOC, error) {
	r.ZeroPadToByte()
	size := int(r.U32(0, 10, 1024, 14, 17408, 22, 4211712, 30))
	r.ZeroPadToByte()
	return &TOC{Sizes: []int{size}}, nil
}
