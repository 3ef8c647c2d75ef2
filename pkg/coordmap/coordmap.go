// Package coordmap composes pkg/hilbert and pkg/cidrmap into a single
// locality-preserving IPv4 -> (x, y) mapping.
package coordmap

import (
	"github.com/greywire/curvewatch/pkg/cidrmap"
	"github.com/greywire/curvewatch/pkg/hilbert"
)

// ToCoord maps ip to a cell on the order-k curve.
//
// If m has an entry covering ip (Case 1, spec.md §4.C), the CIDR entry's
// X-range plus the high 16 bits of ip pick an X column and the low 16 bits
// spread Y uniformly — this path has no Hilbert structure, since the X
// axis is already carrying geographic timezone partitioning.
//
// Otherwise (Case 2, the default, primary behavior) ip is losslessly
// scaled into [0, TotalPoints) and run through the Hilbert bijection,
// preserving locality: adjacent IPs land on adjacent curve cells.
func ToCoord(ip uint32, k int, m *cidrmap.Map) (x, y uint32, err error) {
	if err := checkOrder(k); err != nil {
		return 0, 0, err
	}
	n := hilbert.Dimension(k)

	if m != nil {
		if e, ok := m.Find(ip); ok {
			return caseOneCoord(ip, n, e), lowSpread(ip, n), nil
		}
	}
	return caseTwoCoord(ip, k)
}

func checkOrder(k int) error {
	if k < hilbert.MinOrder || k > hilbert.MaxOrder {
		return hilbert.ErrInvalidOrder{K: k}
	}
	return nil
}

func caseOneCoord(ip uint32, n uint32, e *cidrmap.Entry) uint32 {
	width := e.XEnd - e.XStart
	if width == 0 {
		width = 1
	}
	h16 := uint64(ip >> 16)
	x := e.XStart + uint32((h16*uint64(width))>>16)
	if x >= e.XEnd {
		if e.XEnd == 0 {
			x = 0
		} else {
			x = e.XEnd - 1
		}
	}
	return x
}

func lowSpread(ip uint32, n uint32) uint32 {
	l16 := uint64(ip & 0xFFFF)
	return uint32((l16 * uint64(n)) >> 16)
}

func caseTwoCoord(ip uint32, k int) (x, y uint32, err error) {
	total := hilbert.TotalPoints(k)
	d := (uint64(ip) * total) >> 32
	if d >= total {
		d = total - 1
	}
	return hilbert.XYOf(d, k)
}
