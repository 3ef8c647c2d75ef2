package pipeline

import "testing"

func TestParseDurationForms(t *testing.T) {
	cases := map[string]int64{
		"30":   30,
		"30s":  30,
		"5m":   300,
		"2H":   7200,
		"1h":   3600,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseDuration(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "-5", "0s"} {
		if _, err := ParseDuration(in); err == nil {
			t.Fatalf("ParseDuration(%q) should have failed", in)
		}
	}
}

func TestValidateRejectsOutOfRangeOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HilbertOrder = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected InvalidConfig for hilbert_order=20")
	}
}

func TestNewFallsBackWithoutFatalOnMissingCIDRMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HilbertOrder = 4
	cfg.CIDRMapPath = "/nonexistent/cidr.map"

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(p.Warnings) == 0 {
		t.Fatal("expected an IOError warning for the unreadable cidr map path")
	}
	if p.Warnings[0].Kind != KindIOError {
		t.Fatalf("warning kind = %v, want IOError", p.Warnings[0].Kind)
	}
}

// TestSeedScenarioBinAlignment exercises S2 through the full pipeline:
// two events 1 second apart that straddle a bin boundary produce exactly
// two retired frames once Finalize runs.
func TestSeedScenarioBinAlignment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HilbertOrder = 4
	cfg.BinSeconds = 60
	cfg.VizWidth, cfg.VizHeight = 16, 16

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Process(1700000059, 0x01010101); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := p.Process(1700000060, 0x02020202); err != nil {
		t.Fatalf("Process: %v", err)
	}

	frames, _, err := p.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if frames[0].BinStart != 1700000040 {
		t.Fatalf("frames[0].BinStart = %d, want 1700000040", frames[0].BinStart)
	}
	if frames[1].BinStart != 1700000060 {
		t.Fatalf("frames[1].BinStart = %d, want 1700000060", frames[1].BinStart)
	}
}

func TestFinalizeDerivesAutoScaleOverMultiDaySpan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HilbertOrder = 4
	cfg.BinSeconds = 60
	cfg.VizWidth, cfg.VizHeight = 16, 16
	cfg.AutoScale = true

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base := int64(1700000000)
	if err := p.Process(base, 0x01010101); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := p.Process(base+86400, 0x02020202); err != nil {
		t.Fatalf("Process: %v", err)
	}

	_, params, err := p.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if params.FPS != 3 {
		t.Fatalf("params.FPS = %d, want 3 for a 1-day span", params.FPS)
	}
}

func TestOrderingErrorIsNotFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HilbertOrder = 4
	cfg.BinSeconds = 60
	cfg.VizWidth, cfg.VizHeight = 16, 16

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := p.Process(1700000100, 0x01010101); err != nil {
		t.Fatalf("Process: %v", err)
	}
	err = p.Process(1700000000, 0x02020202)
	if err == nil {
		t.Fatal("expected an Ordering error for the out-of-order event")
	}
	pe, ok := err.(*Error)
	if !ok || pe.Kind != KindOrdering {
		t.Fatalf("err = %v, want *Error{Kind: Ordering}", err)
	}
	if pe.Fatal() {
		t.Fatal("Ordering errors must not be fatal")
	}
	if p.OrderingCount() != 1 {
		t.Fatalf("OrderingCount() = %d, want 1", p.OrderingCount())
	}
}
