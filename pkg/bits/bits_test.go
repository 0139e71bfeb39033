package bits

import "testing"

func TestGetSetAllWidths(t *testing.T) {
	widths := []Width{W1, W2, 3, W4, 5, 7, W8, 12, W16, 24, W32}
	for _, w := range widths {
		a := New(w, 37)
		for i := 0; i < a.Len(); i++ {
			a.Set(i, uint32(i*2654435761)&w.Max())
		}
		for i := 0; i < a.Len(); i++ {
			want := uint32(i*2654435761) & w.Max()
			if got := a.Get(i); got != want {
				t.Fatalf("width %d: Get(%d) = %d, want %d", w, i, got, want)
			}
		}
	}
}

func TestSetDoesNotDisturbNeighbours(t *testing.T) {
	for _, w := range []Width{W1, W2, 3, W4, W8, W16, W32} {
		a := New(w, 9)
		for i := 0; i < 9; i++ {
			a.Set(i, w.Max())
		}
		a.Set(4, 0)
		for i := 0; i < 9; i++ {
			want := w.Max()
			if i == 4 {
				want = 0
			}
			if got := a.Get(i); got != want {
				t.Errorf("width %d: element %d = %d, want %d", w, i, got, want)
			}
		}
	}
}

func TestPromotePreservesValues(t *testing.T) {
	a := New(W2, 100)
	for i := 0; i < 100; i++ {
		a.Set(i, uint32(i%4))
	}
	p, err := a.Promote(W8)
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if p.Width() != W8 {
		t.Fatalf("Width() = %d, want 8", p.Width())
	}
	for i := 0; i < 100; i++ {
		if p.Get(i) != uint32(i%4) {
			t.Fatalf("element %d = %d after promote, want %d", i, p.Get(i), i%4)
		}
	}
	if _, err := p.Promote(W4); err == nil {
		t.Error("expected error promoting to a narrower width")
	}
}

func TestWidthFor(t *testing.T) {
	tests := []struct {
		v    uint32
		want Width
	}{
		{0, W1},
		{1, W1},
		{2, W2},
		{3, W2},
		{4, W4},
		{15, W4},
		{16, W8},
		{255, W8},
		{256, W16},
		{70000, W32},
	}
	for _, tt := range tests {
		if got := WidthFor(tt.v); got != tt.want {
			t.Errorf("WidthFor(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestClearAndClone(t *testing.T) {
	a := New(W4, 10)
	a.Set(3, 9)
	c := a.Clone()
	a.Clear()
	if a.Get(3) != 0 {
		t.Error("Clear did not zero element")
	}
	if c.Get(3) != 9 {
		t.Error("Clone shares storage with original")
	}
}

func TestFromBytes(t *testing.T) {
	a := New(W4, 5)
	a.Set(4, 7)
	b, err := FromBytes(W4, 5, a.Bytes())
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	if b.Get(4) != 7 {
		t.Errorf("Get(4) = %d, want 7", b.Get(4))
	}
	if _, err := FromBytes(W4, 50, a.Bytes()); err == nil {
		t.Error("expected size mismatch error")
	}
}
