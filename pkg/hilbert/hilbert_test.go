package hilbert

import "testing"

func TestInvalidOrder(t *testing.T) {
	if _, _, err := XYOf(0, 3); err == nil {
		t.Fatal("expected error for k=3")
	}
	if _, _, err := XYOf(0, 17); err == nil {
		t.Fatal("expected error for k=17")
	}
	if _, err := IndexOf(0, 0, 3); err == nil {
		t.Fatal("expected error for k=3")
	}
}

func TestBijection(t *testing.T) {
	for k := MinOrder; k <= 8; k++ { // full sweep up to k=8 keeps the test fast; higher k is covered by TestBijectionSample
		total := TotalPoints(k)
		for d := uint64(0); d < total; d++ {
			x, y, err := XYOf(d, k)
			if err != nil {
				t.Fatalf("XYOf(%d, %d): %v", d, k, err)
			}
			back, err := IndexOf(x, y, k)
			if err != nil {
				t.Fatalf("IndexOf(%d, %d, %d): %v", x, y, k, err)
			}
			if back != d {
				t.Fatalf("k=%d: round-trip mismatch d=%d -> (%d,%d) -> %d", k, d, x, y, back)
			}
		}
	}
}

func TestBijectionSample(t *testing.T) {
	for _, k := range []int{9, 12, 16} {
		n := Dimension(k)
		for x := uint32(0); x < n; x += 37 {
			for y := uint32(0); y < n; y += 41 {
				d, err := IndexOf(x, y, k)
				if err != nil {
					t.Fatalf("IndexOf: %v", err)
				}
				bx, by, err := XYOf(d, k)
				if err != nil {
					t.Fatalf("XYOf: %v", err)
				}
				if bx != x || by != y {
					t.Fatalf("k=%d: round-trip mismatch (%d,%d) -> %d -> (%d,%d)", k, x, y, d, bx, by)
				}
			}
		}
	}
}

func TestLocality(t *testing.T) {
	for k := MinOrder; k <= 10; k++ {
		total := TotalPoints(k)
		var px, py uint32
		for d := uint64(0); d < total; d++ {
			x, y, err := XYOf(d, k)
			if err != nil {
				t.Fatalf("XYOf(%d, %d): %v", d, k, err)
			}
			if d > 0 {
				dx := absDiff(x, px)
				dy := absDiff(y, py)
				if dx+dy != 1 {
					t.Fatalf("k=%d: locality broken at d=%d: L1 distance %d (want 1)", k, d, dx+dy)
				}
			}
			px, py = x, y
		}
	}
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
