package modular

import "testing"

func TestUnliftPair_RoundTrip(t *testing.T) {
	cases := []struct{ a, b int32 }{
		{10, 4}, {-3, 7}, {0, 0}, {100, 100}, {-5, -5}, {127, -128},
	}
	for _, c := range cases {
		avg := (c.a + c.b) >> 1
		diff := c.a - c.b
		a, b := unliftPair(avg, diff)
		if a != c.a || b != c.b {
			t.Errorf("unliftPair(%d,%d) = (%d,%d), want (%d,%d)", avg, diff, a, b, c.a, c.b)
		}
	}
}

func TestInverseSqueezeHorizontal_Basic(t *testing.T) {
	avg := NewChannel(2, 1, 16)
	diff := NewChannel(2, 1, 16)
	avg.Data[0], avg.Data[1] = 7, 20
	diff.Data[0], diff.Data[1] = -1, 4

	out, err := InverseSqueeze(avg, diff, true, false)
	if err != nil {
		t.Fatalf("InverseSqueeze: %v", err)
	}
	if out.Width != 4 || out.Height != 1 {
		t.Fatalf("out dims = %dx%d, want 4x1", out.Width, out.Height)
	}
	a0, b0 := unliftPair(7, -1)
	a1, b1 := unliftPair(20, 4)
	want := []int32{a0, b0, a1, b1}
	for i, w := range want {
		if out.Data[i] != w {
			t.Errorf("out.Data[%d] = %d, want %d", i, out.Data[i], w)
		}
	}
}
