// Package modular implements the JPEG XL modular channel decoder: the
// per-pixel property/predictor machinery driven by an MA tree, its
// weighted predictor, and the inverse RCT/palette/squeeze transforms
// applied to the decoded channel set.
package modular

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
	"github.com/lifthrasiir/j40-sub000/internal/entropy"
	"github.com/lifthrasiir/j40-sub000/internal/matree"
)

// ErrUnknownPredictor reports a leaf predictor id outside [0,13].
var ErrUnknownPredictor = fmt.Errorf("modular: unknown predictor (pred)")

// ErrPixelOverflow reports a decoded pixel value outside the channel's
// nominal bit-depth range.
var ErrPixelOverflow = fmt.Errorf("modular: pixel overflow (povf)")

// Channel is one decoded plane: either a colour/alpha channel or a meta
// channel feeding a later transform (e.g. a palette table). Width/Height
// already reflect this channel's own shift (hshift/vshift), so a
// chroma-subsampled channel is physically smaller, not merely strided.
type Channel struct {
	Width, Height int
	HShift, VShift int
	IsMeta         bool
	Data           []int32 // row-major, len == Width*Height

	// BitDepth bounds the legal pixel range for overflow checks; signed
	// range is [-2^(BitDepth-1), 2^(BitDepth-1)-1] for buffers wide
	// enough to hold negative residuals (the modular format always
	// stores signed deltas even for nominally unsigned channel data).
	BitDepth int
}

// NewChannel allocates a zeroed channel of the given size.
func NewChannel(width, height, bitDepth int) *Channel {
	return &Channel{Width: width, Height: height, BitDepth: bitDepth, Data: make([]int32, width*height)}
}

func (c *Channel) at(x, y int) int32 {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	return c.Data[y*c.Width+x]
}

func (c *Channel) set(x, y int, v int32) { c.Data[y*c.Width+x] = v }

// neighbors holds the eight named neighbor values spec.md §4.7 reads for
// every pixel, with the left/top/both-missing fallbacks already applied.
type neighbors struct {
	n, w, nw, ne, nn, nee, ww, nww int32
}

func (c *Channel) neighborsAt(x, y int) neighbors {
	hasW := x > 0
	hasN := y > 0

	get := func(dx, dy int) int32 {
		xx, yy := x+dx, y+dy
		hasLeft := xx >= 0
		hasTop := yy >= 0
		switch {
		case hasLeft && hasTop && xx < c.Width && yy < c.Height:
			return c.at(xx, yy)
		case !hasLeft && hasTop:
			return c.at(x, yy) // missing-left falls back to north value
		case hasLeft && !hasTop:
			return c.at(xx, y) // missing-top falls back to west value
		default:
			return 0
		}
	}

	var n neighbors
	if hasN {
		n.n = c.at(x, y-1)
	}
	if hasW {
		n.w = c.at(x-1, y)
	} else if hasN {
		n.w = n.n // missing-left falls back to north value
	}
	if !hasN {
		n.n = n.w // missing-top falls back to west value
	}
	n.nw = get(-1, -1)
	n.ne = get(1, -1)
	n.nn = get(0, -2)
	n.nee = get(2, -1)
	n.ww = get(-2, 0)
	n.nww = get(-2, -1)
	return n
}

// refChannel is a previously decoded same-sized channel consulted by
// properties 16..19+4k.
type refChannel struct {
	ch *Channel
}

func gradient(a, b, c int32) int32 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	v := a + b - c
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floorAvg(a, b int32) int32 {
	// Overflow-safe: widen to int64 before summing.
	return int32((int64(a) + int64(b)) >> 1)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// predict computes predictor id's output given the neighbor set and the
// weighted predictor's own candidate (wp), needed for predictor 6.
func predict(id int, nb neighbors, wp int32) (int32, error) {
	switch id {
	case 0:
		return 0, nil
	case 1:
		return nb.w, nil
	case 2:
		return nb.n, nil
	case 3:
		return floorAvg(nb.w, nb.n), nil
	case 4:
		if abs32(nb.n-nb.nw) < abs32(nb.w-nb.nw) {
			return nb.w, nil
		}
		return nb.n, nil
	case 5:
		return gradient(nb.w, nb.n, nb.nw), nil
	case 6:
		return (wp + 3) >> 3, nil
	case 7:
		return nb.ne, nil
	case 8:
		return nb.nw, nil
	case 9:
		return nb.ww, nil
	case 10:
		return floorAvg(nb.w, nb.nw), nil
	case 11:
		return floorAvg(nb.n, nb.nw), nil
	case 12:
		return floorAvg(nb.n, nb.ne), nil
	case 13:
		v := int64(6)*int64(nb.n) - 2*int64(nb.nn) + 7*int64(nb.w) + int64(nb.ww) + int64(nb.nee) + 3*int64(nb.ne) + 8
		return int32(v >> 4), nil
	default:
		return 0, ErrUnknownPredictor
	}
}

// property returns the value of the given MA tree property selector for
// pixel (x,y) in channel cidx (0-based among non-meta channels), with
// sidx the stream index (0 for the main image, nonzero for extra
// channels) and maxErr the largest-magnitude weighted-predictor error
// among {w,n,nw,ne} for property 15. refs supplies the same-sized
// previous channels property 16+ needs.
func property(sel int, cidx, sidx, x, y int, nb neighbors, maxErr int32, refs []refChannel) int32 {
	switch {
	case sel == 0:
		return int32(cidx)
	case sel == 1:
		return int32(sidx)
	case sel == 2:
		return int32(y)
	case sel == 3:
		return int32(x)
	case sel == 4:
		return abs32(nb.n)
	case sel == 5:
		return abs32(nb.w)
	case sel == 6:
		return nb.n
	case sel == 7:
		return nb.w
	case sel == 8:
		return nb.w - (nb.ww + nb.nw - nb.nww)
	case sel == 9:
		return nb.w + nb.n - nb.nw
	case sel == 10:
		return nb.w - nb.nw
	case sel == 11:
		return nb.nw - nb.n
	case sel == 12:
		return nb.n - nb.ne
	case sel == 13:
		return nb.n - nb.nn
	case sel == 14:
		return nb.w - nb.ww
	case sel == 15:
		return maxErr
	case sel >= 16:
		k := (sel - 16) / 4
		kind := (sel - 16) % 4
		if k >= len(refs) {
			return 0
		}
		ref := refs[k].ch
		refNb := ref.neighborsAt(x, y)
		refC := ref.at(x, y)
		switch kind {
		case 0:
			return refC
		case 1:
			return abs32(refC)
		case 2:
			return refC - gradient(refNb.w, refNb.n, refNb.nw)
		default:
			return abs32(refC - gradient(refNb.w, refNb.n, refNb.nw))
		}
	default:
		return 0
	}
}

// DecodeOptions bundles the per-instance parameters the channel decoder
// needs beyond the tree and code spec themselves.
type DecodeOptions struct {
	Cidx, Sidx int
	MaxWidth   int // dist_mult for the entropy decoder: widest non-meta channel.
	Refs       []refChannel
}

// DecodeChannel fills ch by walking its pixels in row-major order,
// consulting tree for each pixel's (predictor, offset, multiplier, ctx)
// and dec for the residual token.
func DecodeChannel(r *bitio.Reader, ch *Channel, tree *matree.Tree, dec *entropy.Decoder, opt DecodeOptions, wp *WeightedState) error {
	if ch.Width == 0 || ch.Height == 0 {
		return nil
	}
	ownWp := wp == nil
	if ownWp {
		wp = NewWeightedState(ch.Width)
		defer wp.Release()
	}

	lo := int32(-1) << (ch.BitDepth - 1)
	hi := (int32(1) << (ch.BitDepth - 1)) - 1

	for y := 0; y < ch.Height; y++ {
		wp.StartRow()
		for x := 0; x < ch.Width; x++ {
			nb := ch.neighborsAt(x, y)
			wpPred, wpErrMax := wp.Predict(x, nb)

			leaf := tree.Leaf(func(sel int) int32 {
				return property(sel, opt.Cidx, opt.Sidx, x, y, nb, wpErrMax, opt.Refs)
			})

			token, err := dec.Code(r, uint32(leaf.Ctx), uint32(opt.MaxWidth))
			if err != nil {
				return err
			}
			residual := token*int64(leaf.Multiplier) + int64(leaf.Offset)

			predVal, err := predict(leaf.Predictor, nb, wpPred)
			if err != nil {
				return err
			}

			v := int64(predVal) + residual
			if v < int64(lo) || v > int64(hi) {
				return ErrPixelOverflow
			}
			result := int32(v)
			ch.set(x, y, result)
			wp.Update(x, nb, wpPred, result)
		}
	}
	return nil
}
