package pipeline

import (
	"strconv"
	"strings"

	"github.com/greywire/curvewatch/pkg/hilbert"
)

// CoreConfig is the immutable run configuration spec.md §9 asks for in
// place of the source's single global config plus per-module static
// caches: construct once, pass to New, and every cache the pipeline owns
// lives inside the returned *Pipeline value.
type CoreConfig struct {
	BinSeconds          int64
	HilbertOrder        int
	DecaySeconds        int64
	VizWidth, VizHeight int
	TargetVideoDuration int
	AutoScale           bool
	ShowTimestamp       bool
	CIDRMapPath         string
	FramePrefix         string
	FrameDir            string
}

// DefaultConfig returns spec.md §6's documented defaults.
func DefaultConfig() CoreConfig {
	return CoreConfig{
		BinSeconds:          60,
		HilbertOrder:        12,
		DecaySeconds:        10800,
		VizWidth:            3440,
		VizHeight:           1440,
		TargetVideoDuration: 300,
		AutoScale:           true,
		ShowTimestamp:       false,
		FramePrefix:         "curvewatch",
	}
}

// ParseDuration accepts spec.md §6's textual duration form:
// "<n>[s|m|h]" case-insensitive, or a bare integer meaning seconds.
func ParseDuration(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, newError(KindInvalidConfig, "empty duration", nil)
	}
	lower := strings.ToLower(s)
	mult := int64(1)
	numPart := lower
	switch {
	case strings.HasSuffix(lower, "h"):
		mult = 3600
		numPart = lower[:len(lower)-1]
	case strings.HasSuffix(lower, "m"):
		mult = 60
		numPart = lower[:len(lower)-1]
	case strings.HasSuffix(lower, "s"):
		mult = 1
		numPart = lower[:len(lower)-1]
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil || n <= 0 {
		return 0, newError(KindInvalidConfig, "malformed duration \""+s+"\"", err)
	}
	return n * mult, nil
}

// Validate checks every field against spec.md §6's ranges, returning an
// InvalidConfig error describing the first violation found.
func (c CoreConfig) Validate() error {
	if c.BinSeconds <= 0 {
		return newError(KindInvalidConfig, "bin_seconds must be positive", nil)
	}
	if c.HilbertOrder < hilbert.MinOrder || c.HilbertOrder > hilbert.MaxOrder {
		return newError(KindInvalidConfig, "hilbert_order out of [4,16]", hilbert.ErrInvalidOrder{K: c.HilbertOrder})
	}
	if c.DecaySeconds <= 0 {
		return newError(KindInvalidConfig, "decay_seconds must be positive", nil)
	}
	if c.VizWidth <= 0 || c.VizHeight <= 0 {
		return newError(KindInvalidConfig, "viz_width/viz_height must be positive", nil)
	}
	if c.TargetVideoDuration < 10 || c.TargetVideoDuration > 3600 {
		return newError(KindInvalidConfig, "target_video_duration out of [10,3600]", nil)
	}
	return nil
}
