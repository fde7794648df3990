// Package vardct holds the VarDCT frame-header parameter structs and
// parsing — LF quantization fields, the 17-kind dequantization matrix
// headers, coefficient-order permutation bookkeeping — without
// implementing any of the numeric inverse transforms (IDCT, matrix
// evaluation beyond mode 2/3/5, chroma-from-luma). Every operation that
// would need those returns ErrUnsupported; this core's primary target
// is the modular pipeline, which never calls into this package.
package vardct

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

// ErrUnsupported marks a VarDCT numeric path this core does not
// implement (code "vdct").
var ErrUnsupported = fmt.Errorf("vardct: unsupported (vdct)")

// numDequantKinds is the number of dequantization matrix kinds a
// VarDCT frame's hf_global section enumerates.
const numDequantKinds = 17

// LfQuant holds the LF-band quantization header fields.
type LfQuant struct {
	GlobalScale int
	Quant       [3]int
}

// ReadLfQuant parses an LF quantization header.
func ReadLfQuant(r *bitio.Reader) (*LfQuant, error) {
	q := &LfQuant{}
	q.GlobalScale = int(r.U32(1, 11, 2049, 11, 4097, 12, 8193, 16))
	for i := range q.Quant {
		q.Quant[i] = int(r.U32(16, 0, 1, 5, 17, 8, 273, 16))
	}
	return q, nil
}

// DequantMatrixHeader is one of the 17 dequantization matrix kinds'
// header: its encoding mode and, for modes outside {2,3,5} (which this
// core does not evaluate numerically), the raw parameter bytes so later
// sections stay byte-aligned.
type DequantMatrixHeader struct {
	Mode   int
	Params []byte
}

// ReadDequantMatrices parses the 17-kind dequantization matrix header
// block of hf_global.
func ReadDequantMatrices(r *bitio.Reader) ([numDequantKinds]DequantMatrixHeader, error) {
	var out [numDequantKinds]DequantMatrixHeader
	for i := range out {
		mode := int(r.U(3))
		out[i].Mode = mode
		if mode != 2 && mode != 3 && mode != 5 {
			n := int(r.U32(0, 0, 1, 8, 257, 12, 4353, 16))
			out[i].Params = make([]byte, n)
			for j := range out[i].Params {
				out[i].Params[j] = byte(r.U(8))
			}
		}
	}
	return out, nil
}

// CoefficientOrder is the permutation of one (kind, channel) pair's
// coefficient scan order, keyed by used_orders.
type CoefficientOrder struct {
	Kind    int
	Channel int
	Order   []int
}

// ReadUsedOrders parses the used_orders bitset and the coefficient-order
// permutations it selects.
func ReadUsedOrders(r *bitio.Reader, numChannels int) ([]CoefficientOrder, error) {
	usedOrders := r.U32(0x5F, 0, 0x13, 0, 0, 0, 0, 13)
	var out []CoefficientOrder
	for kind := 0; kind < numDequantKinds; kind++ {
		if usedOrders&(1<<uint(kind)) == 0 {
			continue
		}
		for c := 0; c < numChannels; c++ {
			// The permutation itself is a Lehmer code decoded through
			// the entropy layer (same shape as the TOC's). This function
			// does not read it: Order is left nil, and only the used
			// (kind, channel) pairs are recorded.
			out = append(out, CoefficientOrder{Kind: kind, Channel: c})
		}
	}
	return out, nil
}

// InverseIDCT would transform one block of dequantized coefficients back
// to the pixel domain. Not implemented in this core.
func InverseIDCT(coeffs []int32, size int) ([]int32, error) {
	return nil, ErrUnsupported
}

// EvaluateMatrix would materialize a dequantization matrix for modes
// outside {2,3,5}. Not implemented in this core.
func EvaluateMatrix(h DequantMatrixHeader, size int) ([]float32, error) {
	return nil, ErrUnsupported
}

// ChromaFromLuma would reconstruct chroma residuals from the luma plane
// using the per-block CfL scale. Not implemented in this core.
func ChromaFromLuma(luma []int32, scale int) ([]int32, error) {
	return nil, ErrUnsupported
}
