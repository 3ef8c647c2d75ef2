package coordmap

import (
	"strings"
	"testing"

	"github.com/greywire/curvewatch/pkg/cidrmap"
	"github.com/greywire/curvewatch/pkg/hilbert"
)

func ipOf(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

// S1 — lossless default mapping, k=4.
func TestLosslessDefaultMapping(t *testing.T) {
	const k = 4

	x, y, err := ToCoord(0x00000000, k, nil)
	if err != nil {
		t.Fatalf("ToCoord: %v", err)
	}
	if x != 0 || y != 0 {
		t.Fatalf("to_coord(0,4) = (%d,%d), want (0,0)", x, y)
	}

	x, y, err = ToCoord(0xFFFFFFFF, k, nil)
	if err != nil {
		t.Fatalf("ToCoord: %v", err)
	}
	wx, wy, err := hilbert.XYOf(hilbert.TotalPoints(k)-1, k)
	if err != nil {
		t.Fatalf("XYOf: %v", err)
	}
	if x != wx || y != wy {
		t.Fatalf("to_coord(max,4) = (%d,%d), want xy_of(255,4)=(%d,%d)", x, y, wx, wy)
	}

	x, y, err = ToCoord(ipOf(1, 1, 1, 1), k, nil)
	if err != nil {
		t.Fatalf("ToCoord: %v", err)
	}
	wx, wy, err = hilbert.XYOf(1, k)
	if err != nil {
		t.Fatalf("XYOf: %v", err)
	}
	if x != wx || y != wy {
		t.Fatalf("to_coord(1.1.1.1,4) = (%d,%d), want xy_of(1,4)=(%d,%d)", x, y, wx, wy)
	}
}

func TestLosslessnessProperty(t *testing.T) {
	for _, k := range []int{4, 8, 12, 16} {
		x0, y0, err := ToCoord(0, k, nil)
		if err != nil {
			t.Fatalf("ToCoord: %v", err)
		}
		wx0, wy0, _ := hilbert.XYOf(0, k)
		if x0 != wx0 || y0 != wy0 {
			t.Fatalf("k=%d: ToCoord(0) = (%d,%d), want (%d,%d)", k, x0, y0, wx0, wy0)
		}

		xMax, yMax, err := ToCoord(0xFFFFFFFF, k, nil)
		if err != nil {
			t.Fatalf("ToCoord: %v", err)
		}
		wxMax, wyMax, _ := hilbert.XYOf(hilbert.TotalPoints(k)-1, k)
		if xMax != wxMax || yMax != wyMax {
			t.Fatalf("k=%d: ToCoord(max) = (%d,%d), want (%d,%d)", k, xMax, yMax, wxMax, wyMax)
		}
	}
}

func TestDeterminism(t *testing.T) {
	m, _, err := cidrmap.LoadReader(strings.NewReader("10.0.0.0/8 -5 0 100\n"), 12)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	ip := ipOf(10, 5, 6, 7)
	x1, y1, err := ToCoord(ip, 12, m)
	if err != nil {
		t.Fatalf("ToCoord: %v", err)
	}
	x2, y2, err := ToCoord(ip, 12, m)
	if err != nil {
		t.Fatalf("ToCoord: %v", err)
	}
	if x1 != x2 || y1 != y2 {
		t.Fatalf("ToCoord not deterministic: (%d,%d) vs (%d,%d)", x1, y1, x2, y2)
	}
}

// S3 — longest-prefix CIDR override case.
func TestCIDROverrideCase(t *testing.T) {
	data := "10.0.0.0/8 -5 0 100\n10.1.0.0/16 1 100 200\n"
	m, _, err := cidrmap.LoadReader(strings.NewReader(data), 12)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}

	x, _, err := ToCoord(ipOf(10, 1, 2, 3), 12, m)
	if err != nil {
		t.Fatalf("ToCoord: %v", err)
	}
	if x < 100 || x >= 200 {
		t.Fatalf("expected x in [100,200) for /16 match, got %d", x)
	}

	x, _, err = ToCoord(ipOf(10, 2, 0, 0), 12, m)
	if err != nil {
		t.Fatalf("ToCoord: %v", err)
	}
	if x < 0 || x >= 100 {
		t.Fatalf("expected x in [0,100) for /8 match, got %d", x)
	}
}

func TestInvalidOrderPropagates(t *testing.T) {
	if _, _, err := ToCoord(0, 20, nil); err == nil {
		t.Fatal("expected error for invalid order")
	}
}
