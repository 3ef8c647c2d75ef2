// Package timebin implements the wall-clock-aligned bucketing of events
// into fixed-duration frames described in spec.md §4.D, plus the bin
// lifecycle state machine of §4.H: absent -> active -> finalized -> emitted.
package timebin

import (
	"fmt"

	"github.com/greywire/curvewatch/pkg/decay"
)

// BinStart floors t to the nearest multiple of binSeconds, the epoch-aligned
// bucket boundary every bin in a run shares (spec.md §4.D).
func BinStart(t, binSeconds int64) int64 {
	return (t / binSeconds) * binSeconds
}

// Bin is a single finalized or in-progress time bucket: a dense heatmap
// grid plus the summary counters spec.md's TimeBin invariants describe.
type Bin struct {
	BinStart, BinEnd int64
	Dimension        uint32
	Heatmap          []uint64
	EventCount       uint64
	UniqueCells      int
	MaxIntensity     uint64
}

func newBin(binStart, binSeconds int64, n uint32) *Bin {
	return &Bin{
		BinStart:  binStart,
		BinEnd:    binStart + binSeconds,
		Dimension: n,
		Heatmap:   make([]uint64, int(n)*int(n)),
	}
}

func (b *Bin) index(x, y uint32) int {
	return int(y)*int(b.Dimension) + int(x)
}

func (b *Bin) inRange(x, y uint32) bool {
	return x < b.Dimension && y < b.Dimension
}

func (b *Bin) increment(x, y uint32) {
	idx := b.index(x, y)
	b.Heatmap[idx]++
	b.EventCount++
	if b.Heatmap[idx] > b.MaxIntensity {
		b.MaxIntensity = b.Heatmap[idx]
	}
}

func (b *Bin) finalizeUniqueCells() {
	count := 0
	for _, v := range b.Heatmap {
		if v > 0 {
			count++
		}
	}
	b.UniqueCells = count
}

func (b *Bin) overlay(contributions []decay.Contribution) {
	for _, c := range contributions {
		if c.Value == 0 || !b.inRange(c.X, c.Y) {
			continue
		}
		idx := b.index(c.X, c.Y)
		b.Heatmap[idx] += c.Value
		if b.Heatmap[idx] > b.MaxIntensity {
			b.MaxIntensity = b.Heatmap[idx]
		}
	}
}

// OrderingError reports an out-of-order event: a timestamp earlier than
// the current bin's start, which the aggregator treats as an anomaly that
// prematurely closes the live bin (spec.md §7 Ordering).
type OrderingError struct {
	Got, CurrentBinStart int64
}

func (e OrderingError) Error() string {
	return fmt.Sprintf("timebin: out-of-order event at t=%d (current bin starts at %d)", e.Got, e.CurrentBinStart)
}

// Manager owns exactly one live bin at a time, plus the decay cache and
// residue map shared across the whole run (spec.md §3 "Ownership summary").
// Frames are handed to onRetire as each bin closes.
type Manager struct {
	BinSeconds   int64
	DecaySeconds int64
	Dimension    uint32
	CompactEvery int

	current *Bin

	decayCache *decay.Cache
	residue    *decay.ResidueMap

	TotalBins   int
	BinsWritten int

	FirstSeenT int64
	LastSeenT  int64
	sawEvent   bool

	onRetire func(*Bin, *decay.ResidueMap)
}

// NewManager constructs a manager for an order-k curve. onRetire is called
// synchronously once per finalized bin, after the decay overlay has been
// applied and UniqueCells computed — i.e. exactly at the finalized->emitted
// transition.
func NewManager(binSeconds, decaySeconds int64, n uint32, onRetire func(*Bin, *decay.ResidueMap)) *Manager {
	if onRetire == nil {
		onRetire = func(*Bin, *decay.ResidueMap) {}
	}
	return &Manager{
		BinSeconds:   binSeconds,
		DecaySeconds: decaySeconds,
		Dimension:    n,
		CompactEvery: decay.CompactEvery,
		decayCache:   decay.NewCache(),
		residue:      decay.NewResidueMap(n),
		onRetire:     onRetire,
	}
}

// DecayCache exposes the manager's decay cache for inspection/testing.
func (m *Manager) DecayCache() *decay.Cache { return m.decayCache }

// Residue exposes the manager's residue map for inspection/testing.
func (m *Manager) Residue() *decay.ResidueMap { return m.residue }

// Current exposes the live bin, or nil if one is not open.
func (m *Manager) Current() *Bin { return m.current }

// Process routes event (t, x, y) into the correct bin, rolling the current
// bin over when t crosses into a new bin_seconds bucket (spec.md §4.D
// process()). Out-of-range (x, y) is silently dropped, per spec.md §4.D
// failure semantics. An OrderingError is returned (not fatal) when t is
// earlier than the current bin's start — the aggregator has already
// treated it as closing the bin by the time the caller sees the error.
func (m *Manager) Process(t int64, x, y uint32) error {
	if !m.sawEvent {
		m.FirstSeenT = t
		m.sawEvent = true
	}
	if t < m.FirstSeenT {
		m.FirstSeenT = t
	}
	if t > m.LastSeenT {
		m.LastSeenT = t
	}

	newStart := BinStart(t, m.BinSeconds)

	var orderingErr error
	if m.current != nil && t < m.current.BinStart {
		orderingErr = OrderingError{Got: t, CurrentBinStart: m.current.BinStart}
	}

	if m.current == nil || newStart != m.current.BinStart {
		m.retireCurrent()
		m.current = newBin(newStart, m.BinSeconds, m.Dimension)
		m.TotalBins++
	}

	if x >= m.Dimension || y >= m.Dimension {
		return orderingErr
	}

	m.decayCache.Update(x, y, t, 1)
	m.residue.Mark(x, y)
	m.current.increment(x, y)

	return orderingErr
}

func (m *Manager) retireCurrent() {
	if m.current == nil {
		return
	}
	contributions := m.decayCache.Overlay(m.current.BinStart, m.DecaySeconds)
	m.current.overlay(contributions)
	m.current.finalizeUniqueCells()
	m.onRetire(m.current, m.residue)
	m.BinsWritten++
	m.decayCache.MaybeCompact(m.current.BinStart, m.DecaySeconds, m.CompactEvery)
	m.current = nil
}

// Finalize closes and emits the last live bin, if any, and returns the
// total observed timestamp span in seconds (0 if fewer than two events were
// ever seen).
func (m *Manager) Finalize() (spanSeconds int64) {
	m.retireCurrent()
	if !m.sawEvent || m.LastSeenT <= m.FirstSeenT {
		return 0
	}
	return m.LastSeenT - m.FirstSeenT
}
