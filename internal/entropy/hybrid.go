package entropy

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
)

// HybridConfig describes a hybrid-integer expansion: a token below
// 2^SplitExp decodes to itself; tokens at or above that split carry an
// exponent selector in their high bits, MSBInToken+LSBInToken bits riding
// along in the token itself, and the remaining "mid" bits read separately
// from the stream.
type HybridConfig struct {
	SplitExp   uint
	MSBInToken uint
	LSBInToken uint
}

// ErrHybridOverflow is returned when a token implies a mid-bit count
// outside [0,32] or an expanded value wider than 32 bits — the
// conservative resolution to the mid-bit overflow open question from
// spec.md.
var ErrHybridOverflow = fmt.Errorf("entropy: hybrid-integer overflow (%s)", "hybo")

// Expand turns a drawn token into its final integer value, reading
// additional "mid" bits from r when the token is at or above the split.
func (c HybridConfig) Expand(r *bitio.Reader, token uint32) (uint32, error) {
	split := uint32(1) << c.SplitExp
	if token < split {
		return token, nil
	}

	n := c.MSBInToken + c.LSBInToken
	extra := (token - split) >> n
	midbitsSigned := int(c.SplitExp) - int(n) + int(extra)
	if midbitsSigned < 0 || midbitsSigned > 32 {
		return 0, ErrHybridOverflow
	}
	midbits := uint(midbitsSigned)

	hi := (token >> c.LSBInToken) & ((uint32(1) << c.MSBInToken) - 1)
	lo := token & ((uint32(1) << c.LSBInToken) - 1)

	totalShift := midbits + c.LSBInToken
	topBit := totalShift + c.MSBInToken + 1
	if topBit > 32 {
		return 0, ErrHybridOverflow
	}

	mid := r.U(midbits)

	result := ((uint32(1)<<c.MSBInToken | hi) << totalShift) | (mid << c.LSBInToken) | lo
	return result, nil
}

// toSigned converts a hybrid-integer-decoded token into the signed
// residual value used by the modular channel decoder: even values map to
// non-negative integers, odd values to negative ones.
func toSigned(u uint32) int64 {
	if u&1 == 0 {
		return int64(u >> 1)
	}
	return -int64(u>>1) - 1
}
