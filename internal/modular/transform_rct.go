package modular

import "fmt"

// ErrBadRCT reports an RCT type outside [0,42) or a channel triple of
// mismatched dimensions.
var ErrBadRCT = fmt.Errorf("modular: bad RCT type (rctt)")

// rctPermutations enumerates the 6 orderings permutation index p selects
// among the three transformed channels, applied after mixing.
var rctPermutations = [6][3]int{
	{0, 1, 2},
	{1, 2, 0},
	{2, 0, 1},
	{0, 2, 1},
	{1, 0, 2},
	{2, 1, 0},
}

// InverseRCT undoes the reversible colour transform recorded with the
// given type (type = 7*p + q) on three same-sized channels, in place.
func InverseRCT(channels [3]*Channel, rctType int) error {
	if rctType < 0 || rctType >= 42 {
		return ErrBadRCT
	}
	p := rctType / 7
	q := rctType % 7

	a, b, c := channels[0], channels[1], channels[2]
	if a.Width != b.Width || a.Width != c.Width || a.Height != b.Height || a.Height != c.Height {
		return ErrBadRCT
	}

	n := len(a.Data)
	for i := 0; i < n; i++ {
		av, bv, cv := a.Data[i], b.Data[i], c.Data[i]
		switch q {
		case 0:
			// no-op
		case 1:
			cv += av
		case 2:
			bv += av
		case 3:
			bv += av
			cv += av
		case 4:
			bv += floorAvg(av, cv)
		case 5:
			bv += av + (cv >> 1)
			cv += av
		case 6:
			t := av - (cv >> 1)
			b1 := cv + t
			b2 := t - (bv >> 1)
			av = b2 + bv
			bv = b1
			cv = b2
		default:
			return ErrBadRCT
		}
		a.Data[i], b.Data[i], c.Data[i] = av, bv, cv
	}

	perm := rctPermutations[p]
	planes := [3]*Channel{a, b, c}
	snapshot := [3][]int32{
		append([]int32(nil), a.Data...),
		append([]int32(nil), b.Data...),
		append([]int32(nil), c.Data...),
	}
	for i, srcIdx := range perm {
		copy(planes[i].Data, snapshot[srcIdx])
	}
	return nil
}
