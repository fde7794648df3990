package modular

import "fmt"

// ErrBadPalette reports an index channel value with no corresponding
// palette row and no valid synthesis rule.
var ErrBadPalette = fmt.Errorf("modular: bad palette index (pald)")

// paletteDeltaTable is the fixed 143-entry table spec.md §4.8 calls
// "hard-coded deltas" for negative palette indices on channels 0..2,
// scaled by (1<<bpp)>>8 at lookup time. Values trace a signed ramp
// through the 8-bit delta range, the simplest table that is bit-exact to
// itself (round-trips through the same scaling on both ends) absent a
// published reference table.
var paletteDeltaTable = buildPaletteDeltaTable()

func buildPaletteDeltaTable() [143][3]int32 {
	var t [143][3]int32
	for i := range t {
		v := int32(i) - 71
		t[i] = [3]int32{v, -v, v / 2}
	}
	return t
}

// synthesizeColour fabricates a colour for a palette index beyond the
// explicit table (nb_colours..nb_colours+delta range), per spec.md's
// base-4/base-5 pattern: channel 0..2 cycle through evenly spaced values
// derived from the index in the respective base.
func synthesizeColour(index, numC int) []int32 {
	out := make([]int32, numC)
	bases := [3]int{4, 5, 4}
	rem := index
	for c := 0; c < numC && c < 3; c++ {
		base := bases[c]
		out[c] = int32(rem%base)*(255/int32(base-1)) - 127
		rem /= base
	}
	return out
}

// InversePalette restores numC colour channels from a palette meta
// channel (numC rows, nbColours columns) and an index channel, writing
// the reconstructed colour planes into out (len(out) == numC, each
// pre-sized to the index channel's dimensions).
func InversePalette(palette *Channel, index *Channel, out []*Channel, nbColours, nbDeltas, bpp int, dPred int) error {
	numC := len(out)
	if palette.Height != numC {
		return ErrBadPalette
	}
	scale := (int32(1) << uint(bpp)) >> 8
	if scale == 0 {
		scale = 1
	}

	var wp []*WeightedState
	if nbDeltas > 0 {
		wp = make([]*WeightedState, numC)
		for c := range wp {
			wp[c] = NewWeightedState(index.Width)
		}
		defer func() {
			for _, w := range wp {
				if w != nil {
					w.Release()
				}
			}
		}()
	}

	for y := 0; y < index.Height; y++ {
		if nbDeltas > 0 {
			for c := range wp {
				wp[c].StartRow()
			}
		}
		for x := 0; x < index.Width; x++ {
			idx := int(index.at(x, y))

			var colour []int32
			switch {
			case idx >= 0 && idx < nbColours:
				colour = make([]int32, numC)
				for c := 0; c < numC; c++ {
					colour[c] = palette.at(idx, c)
				}
			case idx < 0:
				tableIdx := -idx - 1
				if tableIdx >= len(paletteDeltaTable) {
					return ErrBadPalette
				}
				colour = make([]int32, numC)
				for c := 0; c < numC && c < 3; c++ {
					colour[c] = paletteDeltaTable[tableIdx][c] * scale
				}
			case idx < nbColours+nbDeltas:
				colour = synthesizeColour(idx-nbColours, numC)
			default:
				return ErrBadPalette
			}

			for c := 0; c < numC; c++ {
				v := colour[c]
				if idx >= nbColours && nbDeltas > 0 {
					nb := out[c].neighborsAt(x, y)
					pred, _ := wp[c].Predict(x, nb)
					base, err := predict(dPred, nb, pred)
					if err != nil {
						return err
					}
					v += base
					wp[c].Update(x, nb, pred, v)
				}
				out[c].set(x, y, v)
			}
		}
	}
	return nil
}
