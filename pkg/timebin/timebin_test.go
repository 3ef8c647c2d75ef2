package timebin

import (
	"testing"

	"github.com/greywire/curvewatch/pkg/decay"
)

func TestBinAlignment(t *testing.T) {
	for _, binSeconds := range []int64{1, 60, 300, 3600} {
		for _, ts := range []int64{0, 1, 59, 60, 61, 1700000059, 1700000060} {
			start := BinStart(ts, binSeconds)
			if start%binSeconds != 0 {
				t.Fatalf("binSeconds=%d t=%d: start %d not aligned", binSeconds, ts, start)
			}
			if ts-start < 0 || ts-start >= binSeconds {
				t.Fatalf("binSeconds=%d t=%d: start %d out of range", binSeconds, ts, start)
			}
		}
	}
}

func cloneBin(b *Bin) *Bin {
	c := *b
	c.Heatmap = append([]uint64(nil), b.Heatmap...)
	return &c
}

// S2 — bin alignment seed scenario: events at t=1700000059 and
// t=1700000060 with bin_seconds=60 produce exactly two distinct bins, and
// the first is emitted when the second arrives.
func TestBinAlignmentSeedScenario(t *testing.T) {
	var retired []*Bin
	m := NewManager(60, 10800, 16, func(b *Bin, _ *decay.ResidueMap) {
		retired = append(retired, cloneBin(b))
	})

	if err := m.Process(1700000059, 1, 1); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(retired) != 0 {
		t.Fatalf("expected no bins retired yet, got %d", len(retired))
	}
	if m.current.BinStart != 1700000040 {
		t.Fatalf("expected current bin_start 1700000040, got %d", m.current.BinStart)
	}

	if err := m.Process(1700000060, 2, 2); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(retired) != 1 {
		t.Fatalf("expected exactly 1 bin retired after the second event, got %d", len(retired))
	}
	if retired[0].BinStart != 1700000040 {
		t.Fatalf("expected first retired bin_start 1700000040, got %d", retired[0].BinStart)
	}
	if m.current.BinStart != 1700000060 {
		t.Fatalf("expected new current bin_start 1700000060, got %d", m.current.BinStart)
	}
	if m.TotalBins != 2 {
		t.Fatalf("expected total_bins=2, got %d", m.TotalBins)
	}
}

// Testable property 7 — event conservation: sum of heatmap over a
// finalized bin, before decay overlay, equals the number of accepted
// events in that bin. We verify by using a zero decay window, where the
// overlay contributes nothing and the final sum still equals event_count.
func TestEventConservation(t *testing.T) {
	var retired *Bin
	m := NewManager(60, 0, 16, func(b *Bin, _ *decay.ResidueMap) {
		retired = cloneBin(b)
	})

	const n = 50
	for i := 0; i < n; i++ {
		if err := m.Process(int64(i%60), uint32(i%16), uint32((i/16)%16)); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	m.Finalize()

	if retired == nil {
		t.Fatal("expected a bin to be retired")
	}
	if retired.EventCount != n {
		t.Fatalf("expected event_count=%d, got %d", n, retired.EventCount)
	}
	var sum uint64
	for _, v := range retired.Heatmap {
		sum += v
	}
	if sum != n {
		t.Fatalf("expected heatmap sum=%d (decay_seconds=0 means no overlay), got %d", n, sum)
	}
}

func TestOutOfRangeCoordsDropped(t *testing.T) {
	var retired *Bin
	m := NewManager(60, 3600, 16, func(b *Bin, _ *decay.ResidueMap) {
		retired = cloneBin(b)
	})
	if err := m.Process(0, 1, 1); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := m.Process(0, 100, 100); err != nil { // out of [0,16) range
		t.Fatalf("Process should not error on out-of-range coords: %v", err)
	}
	m.Finalize()
	if retired.EventCount != 1 {
		t.Fatalf("expected only the in-range event to be counted, got %d", retired.EventCount)
	}
}

func TestOutOfOrderEventClosesBinEarly(t *testing.T) {
	m := NewManager(60, 3600, 16, func(*Bin, *decay.ResidueMap) {})
	if err := m.Process(120, 1, 1); err != nil {
		t.Fatalf("Process: %v", err)
	}
	err := m.Process(0, 2, 2)
	if _, ok := err.(OrderingError); !ok {
		t.Fatalf("expected OrderingError, got %v", err)
	}
	if m.current.BinStart != 0 {
		t.Fatalf("expected the out-of-order event to open a new earlier bin, got bin_start=%d", m.current.BinStart)
	}
}

func TestMaxIntensityTracksHeatmap(t *testing.T) {
	var retired *Bin
	m := NewManager(60, 3600, 16, func(b *Bin, _ *decay.ResidueMap) {
		retired = cloneBin(b)
	})
	for i := 0; i < 5; i++ {
		if err := m.Process(0, 3, 3); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	m.Finalize()
	if retired.MaxIntensity != 5 {
		t.Fatalf("expected max_intensity=5, got %d", retired.MaxIntensity)
	}
}

func TestUniqueCellsComputedOnFinalize(t *testing.T) {
	var retired *Bin
	m := NewManager(60, 3600, 16, func(b *Bin, _ *decay.ResidueMap) {
		retired = cloneBin(b)
	})
	coords := [][2]uint32{{0, 0}, {0, 0}, {1, 1}, {2, 2}}
	for _, c := range coords {
		if err := m.Process(0, c[0], c[1]); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	m.Finalize()
	if retired.UniqueCells != 3 {
		t.Fatalf("expected 3 unique cells, got %d", retired.UniqueCells)
	}
}

func TestFinalizeWithoutEventsIsNoop(t *testing.T) {
	called := false
	m := NewManager(60, 3600, 16, func(*Bin, *decay.ResidueMap) { called = true })
	span := m.Finalize()
	if called {
		t.Fatal("expected no retire callback without any events")
	}
	if span != 0 {
		t.Fatalf("expected span 0, got %d", span)
	}
}

func TestResidueSharedAcrossBins(t *testing.T) {
	m := NewManager(60, 3600, 16, func(*Bin, *decay.ResidueMap) {})
	if err := m.Process(0, 1, 1); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := m.Process(60, 1, 1); err != nil { // crosses into a new bin
		t.Fatalf("Process: %v", err)
	}
	if m.Residue().At(1, 1) != 2 {
		t.Fatalf("expected residue to accumulate across bin boundaries, got %d", m.Residue().At(1, 1))
	}
}
