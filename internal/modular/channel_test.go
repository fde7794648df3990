package modular

import "testing"

func TestChannel_NeighborsAt_EdgeFallbacks(t *testing.T) {
	ch := NewChannel(3, 3, 16)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			ch.set(x, y, int32(y*3+x+1))
		}
	}

	// Top-left corner: both missing-left and missing-top fall back to 0.
	nb := ch.neighborsAt(0, 0)
	if nb.w != 0 || nb.n != 0 || nb.nw != 0 {
		t.Errorf("corner neighbors = %+v, want all zero", nb)
	}

	// Top row, interior column: missing-top falls back to the west value.
	nb = ch.neighborsAt(1, 0)
	if nb.nw != nb.w {
		t.Errorf("top-row nw = %d, want fallback to w = %d", nb.nw, nb.w)
	}

	// Left column, interior row: missing-left falls back to the north value.
	nb = ch.neighborsAt(0, 1)
	if nb.nw != nb.n {
		t.Errorf("left-col nw = %d, want fallback to n = %d", nb.nw, nb.n)
	}
}

func TestGradient_ClampsToRange(t *testing.T) {
	got := gradient(10, 20, 100) // 10+20-100 = -70, clamped to [10,20]
	if got != 10 {
		t.Errorf("gradient() = %d, want 10", got)
	}
	got = gradient(10, 20, -100) // 10+20+100 = 130, clamped to [10,20]
	if got != 20 {
		t.Errorf("gradient() = %d, want 20", got)
	}
}

func TestFloorAvg_NoOverflow(t *testing.T) {
	got := floorAvg(2147483647, 2147483647)
	if got != 2147483647 {
		t.Errorf("floorAvg(max,max) = %d, want max", got)
	}
}

func TestPredict_KnownPredictors(t *testing.T) {
	nb := neighbors{n: 10, w: 20, nw: 5, ne: 7, nn: 1, nee: 2, ww: 3, nww: 4}

	cases := []struct {
		id   int
		want int32
	}{
		{0, 0},
		{1, 20},
		{2, 10},
		{7, 7},
		{8, 5},
		{9, 3},
	}
	for _, c := range cases {
		got, err := predict(c.id, nb, 0)
		if err != nil {
			t.Fatalf("predict(%d): %v", c.id, err)
		}
		if got != c.want {
			t.Errorf("predict(%d) = %d, want %d", c.id, got, c.want)
		}
	}
}

func TestPredict_UnknownPredictorErrors(t *testing.T) {
	_, err := predict(99, neighbors{}, 0)
	if err != ErrUnknownPredictor {
		t.Errorf("err = %v, want ErrUnknownPredictor", err)
	}
}

func TestProperty_ChannelAndSpatialSelectors(t *testing.T) {
	nb := neighbors{}
	if v := property(0, 3, 0, 0, 0, nb, 0, nil); v != 3 {
		t.Errorf("property(0) = %d, want cidx 3", v)
	}
	if v := property(2, 0, 0, 0, 7, nb, 0, nil); v != 7 {
		t.Errorf("property(2) = %d, want y 7", v)
	}
	if v := property(3, 0, 0, 9, 0, nb, 0, nil); v != 9 {
		t.Errorf("property(3) = %d, want x 9", v)
	}
}
