package modular

import "testing"

func constChannel(v int32, n int) *Channel {
	ch := NewChannel(n, 1, 16)
	for i := range ch.Data {
		ch.Data[i] = v
	}
	return ch
}

func TestInverseRCT_Type7ConstantPlanes(t *testing.T) {
	a := constChannel(100, 4)
	b := constChannel(50, 4)
	c := constChannel(25, 4)

	if err := InverseRCT([3]*Channel{a, b, c}, 7); err != nil {
		t.Fatalf("InverseRCT: %v", err)
	}
	if a.Data[0] != 50 || b.Data[0] != 25 || c.Data[0] != 100 {
		t.Errorf("got (%d,%d,%d), want (50,25,100)", a.Data[0], b.Data[0], c.Data[0])
	}
}

func TestInverseRCT_RejectsOutOfRangeType(t *testing.T) {
	a, b, c := constChannel(1, 1), constChannel(1, 1), constChannel(1, 1)
	if err := InverseRCT([3]*Channel{a, b, c}, 42); err == nil {
		t.Fatal("expected rejection of type 42")
	}
}

func TestInverseRCT_YCgCoIdentityOnZero(t *testing.T) {
	a, b, c := constChannel(0, 1), constChannel(0, 1), constChannel(0, 1)
	if err := InverseRCT([3]*Channel{a, b, c}, 7*0+6); err != nil {
		t.Fatalf("InverseRCT: %v", err)
	}
	if a.Data[0] != 0 || b.Data[0] != 0 || c.Data[0] != 0 {
		t.Errorf("got (%d,%d,%d), want all zero", a.Data[0], b.Data[0], c.Data[0])
	}
}
