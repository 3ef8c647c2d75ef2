// Package mask builds and caches the non-routable IP overlay described in
// spec.md §4.G: a dense bitmap of curve cells reachable by any RFC-reserved
// IPv4 address, used by pkg/compositor to dim traffic that can never be a
// real internet source.
package mask

import (
	"github.com/greywire/curvewatch/pkg/cidrmap"
	"github.com/greywire/curvewatch/pkg/coordmap"
)

// reservedRange is a single RFC-reserved IPv4 block, in CIDR form.
type reservedRange struct {
	network uint32
	mask    uint32
}

func cidr(a, b, c, d byte, prefixLen int) reservedRange {
	network := uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
	var m uint32
	if prefixLen > 0 {
		m = ^uint32(0) << uint(32-prefixLen)
	}
	return reservedRange{network: network & m, mask: m}
}

// reservedRanges enumerates every block spec.md §4.G requires recognizing.
var reservedRanges = []reservedRange{
	cidr(0, 0, 0, 0, 8),
	cidr(10, 0, 0, 0, 8),
	cidr(100, 64, 0, 0, 10),
	cidr(127, 0, 0, 0, 8),
	cidr(169, 254, 0, 0, 16),
	cidr(172, 16, 0, 0, 12),
	cidr(192, 0, 0, 0, 24),
	cidr(192, 0, 2, 0, 24),
	cidr(192, 88, 99, 0, 24),
	cidr(192, 168, 0, 0, 16),
	cidr(198, 18, 0, 0, 15),
	cidr(198, 51, 100, 0, 24),
	cidr(203, 0, 113, 0, 24),
	cidr(224, 0, 0, 0, 4),
	cidr(240, 0, 0, 0, 4),
}

// IsNonRoutable reports whether ip falls in any RFC-reserved range.
func IsNonRoutable(ip uint32) bool {
	for _, r := range reservedRanges {
		if ip&r.mask == r.network {
			return true
		}
	}
	return false
}

// Mask is the dense n^2 byte overlay: Cells[i] is 1 if curve cell i is
// reachable by a sampled non-routable IP, 0 otherwise.
type Mask struct {
	n     uint32
	k     int
	Cells []byte
}

// New wraps a precomputed cell grid as a Mask, for callers (and tests)
// that already have the dense overlay rather than building it from a
// cidrmap.Map via Build.
func New(n uint32, cells []byte) *Mask {
	return &Mask{n: n, k: 0, Cells: cells}
}

// Dimension returns n, the grid's side length.
func (m *Mask) Dimension() uint32 { return m.n }

// At returns 1 if (x, y) is part of the non-routable overlay.
func (m *Mask) At(x, y uint32) byte {
	return m.Cells[int(y)*int(m.n)+int(x)]
}

// samplingStride returns the IP-space stride used to build the mask: a
// denser sample (64) for small curves where a full sweep is cheap, a
// coarser one (256) for larger curves, per spec.md §4.G.
func samplingStride(k int) uint64 {
	if k <= 10 {
		return 64
	}
	return 256
}

// Build enumerates IPv4 space at the sampling stride for order k, maps
// each sampled non-routable address through m (coordmap.ToCoord, which may
// itself consult cm), and marks the resulting cells. 2^32-1 is always
// probed explicitly, matching the Case 2 clamp boundary.
func Build(k int, cm *cidrmap.Map) (*Mask, error) {
	n := uint32(1) << uint(k)
	out := &Mask{n: n, k: k, Cells: make([]byte, int(n)*int(n))}

	stride := samplingStride(k)
	for ip := uint64(0); ip <= 0xFFFFFFFF; ip += stride {
		if err := out.sampleOne(uint32(ip), cm); err != nil {
			return nil, err
		}
	}
	if err := out.sampleOne(0xFFFFFFFF, cm); err != nil {
		return nil, err
	}
	return out, nil
}

func (out *Mask) sampleOne(ip uint32, cm *cidrmap.Map) error {
	if !IsNonRoutable(ip) {
		return nil
	}
	x, y, err := coordmap.ToCoord(ip, out.k, cm)
	if err != nil {
		return err
	}
	out.Cells[int(y)*int(out.n)+int(x)] = 1
	return nil
}
