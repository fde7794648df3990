package modular

// InverseSqueeze undoes one squeeze step: given the low-frequency
// channel (avg) and the residual channel (diff) produced by a forward
// squeeze along one axis, reconstructs the original doubled-size
// channel by inverting each (avg, diff) pair independently with the
// reversible Haar step in unliftPair. No prediction from neighbouring
// samples is applied, and there is no multi-level pyramid.
//
// horizontal selects which axis was halved; inPlace mirrors the source
// flag that controls whether the reconstruction may reuse avg's buffer
// instead of allocating a fresh one — both paths here return a new
// Channel, since Go's GC makes the distinction purely a performance
// concern rather than a correctness one.
func InverseSqueeze(avg, diff *Channel, horizontal bool, inPlace bool) (*Channel, error) {
	_ = inPlace
	if horizontal {
		return inverseSqueezeHorizontal(avg, diff)
	}
	return inverseSqueezeVertical(avg, diff)
}

func inverseSqueezeHorizontal(avg, diff *Channel) (*Channel, error) {
	if avg.Height != diff.Height {
		return nil, ErrBadRCT
	}
	width := avg.Width + diff.Width
	out := NewChannel(width, avg.Height, avg.BitDepth)

	for y := 0; y < avg.Height; y++ {
		for x := 0; x < avg.Width; x++ {
			a := avg.at(x, y)
			var d int32
			if x < diff.Width {
				d = diff.at(x, y)
			}
			lo, hi := unliftPair(a, d)
			out.set(2*x, y, lo)
			if 2*x+1 < width {
				out.set(2*x+1, y, hi)
			}
		}
	}
	return out, nil
}

func inverseSqueezeVertical(avg, diff *Channel) (*Channel, error) {
	if avg.Width != diff.Width {
		return nil, ErrBadRCT
	}
	height := avg.Height + diff.Height
	out := NewChannel(avg.Width, height, avg.BitDepth)

	for x := 0; x < avg.Width; x++ {
		for y := 0; y < avg.Height; y++ {
			a := avg.at(x, y)
			var d int32
			if y < diff.Height {
				d = diff.at(x, y)
			}
			lo, hi := unliftPair(a, d)
			out.set(x, 2*y, lo)
			if 2*y+1 < height {
				out.set(x, 2*y+1, hi)
			}
		}
	}
	return out, nil
}

// unliftPair inverts the reversible Haar step avg = floor((a+b)/2),
// diff = a-b, recovering (a, b) exactly via parity-preserving integer
// division (a+b shares diff's parity, so no information is lost).
func unliftPair(avg, diff int32) (a, b int32) {
	parity := diff & 1
	a = avg + (diff+parity)/2
	b = avg + (parity-diff)/2
	return a, b
}
