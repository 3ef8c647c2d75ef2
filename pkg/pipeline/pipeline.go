// Package pipeline wires the Hilbert kernel, CIDR map, time-bin
// aggregator, decay/residue store, compositor, and mask into the single
// re-architected orchestrator spec.md §9 calls for: an immutable
// CoreConfig value, a Pipeline struct owning every cache, and an explicit
// timestamp threaded through Process instead of a signal-driven wall
// clock.
package pipeline

import (
	"time"

	"github.com/greywire/curvewatch/pkg/autoscale"
	"github.com/greywire/curvewatch/pkg/cidrmap"
	"github.com/greywire/curvewatch/pkg/compositor"
	"github.com/greywire/curvewatch/pkg/coordmap"
	"github.com/greywire/curvewatch/pkg/decay"
	"github.com/greywire/curvewatch/pkg/mask"
	"github.com/greywire/curvewatch/pkg/timebin"
)

// RetiredFrame is emitted once per finalized bin: the rendered pixel
// grid plus enough bookkeeping for the driver to name and sequence the
// output file.
type RetiredFrame struct {
	Frame    compositor.Frame
	BinStart int64
	Seq      int
}

// Pipeline owns every cache for a single run: the CIDR map, the
// non-routable mask, and the time-bin manager (which itself owns the
// decay cache and residue map). No package-level state; construct one
// Pipeline per run via New and discard it at the end.
type Pipeline struct {
	cfg CoreConfig

	cidrMap *cidrmap.Map
	mask    *mask.Mask
	manager *timebin.Manager

	frames []RetiredFrame
	seq    int

	Warnings []*Error
	ordering int
}

// OrderingCount reports how many events triggered an early bin closure.
func (p *Pipeline) OrderingCount() int { return p.ordering }

// New constructs a Pipeline from cfg. If cfg.CIDRMapPath is set but
// unreadable or malformed, the mapper falls back to Case 2 of the
// coordmap (pure Hilbert scaling) with a warning rather than a fatal
// error, per spec.md §6.
func New(cfg CoreConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg}

	if cfg.CIDRMapPath != "" {
		m, warnings, err := cidrmap.Load(cfg.CIDRMapPath, cfg.HilbertOrder)
		if err != nil {
			p.warn(newError(KindIOError, "cidr_map_path unreadable, falling back to Case 2", err))
		} else {
			p.cidrMap = m
			for _, w := range warnings {
				p.warn(newError(KindParseWarning, w.String(), nil))
			}
		}
	}

	builtMask, err := mask.Build(cfg.HilbertOrder, p.cidrMap)
	if err != nil {
		return nil, newError(KindResource, "failed to build non-routable mask", err)
	}
	p.mask = builtMask

	n := uint32(1) << uint(cfg.HilbertOrder)
	p.manager = timebin.NewManager(cfg.BinSeconds, cfg.DecaySeconds, n, p.onRetire)

	return p, nil
}

// Process maps srcIP onto the curve at timestamp t and feeds it into the
// time-bin aggregator. Out-of-range coordinates and out-of-order events
// are not fatal; the returned error (if any) is an Ordering warning the
// caller may log and continue past.
func (p *Pipeline) Process(t int64, srcIP uint32) error {
	x, y, err := coordmap.ToCoord(srcIP, p.cfg.HilbertOrder, p.cidrMap)
	if err != nil {
		return newError(KindResource, "coordinate mapping failed", err)
	}

	if err := p.manager.Process(t, x, y); err != nil {
		p.ordering++
		return newError(KindOrdering, "out-of-order event closed the live bin early", err)
	}
	return nil
}

// Finalize drains the last live bin and runs the auto-scale governor
// over the observed timestamp span. It returns the retired frames
// produced during the run (including the one just flushed) and the
// auto-scale parameters the driver should hand to pkg/render for video
// encoding.
func (p *Pipeline) Finalize() ([]RetiredFrame, autoscale.Params, error) {
	spanSeconds := p.manager.Finalize()

	params := autoscale.Params{FPS: autoscale.MinFPS * 3, DecaySeconds: p.cfg.DecaySeconds}
	if p.cfg.AutoScale && spanSeconds > 0 {
		params = autoscale.Derive(spanSeconds)
	}
	return p.frames, params, nil
}

// Frames returns every retired frame produced so far, without
// finalizing the run.
func (p *Pipeline) Frames() []RetiredFrame { return p.frames }

// Mask exposes the pipeline's non-routable mask for callers that render
// independently of onRetire (e.g. a live viewer replaying PPM output).
func (p *Pipeline) Mask() *mask.Mask { return p.mask }

func (p *Pipeline) onRetire(bin *timebin.Bin, residue *decay.ResidueMap) {
	binTime := time.Unix(bin.BinStart, 0).Local()
	in := compositor.InputFromBin(bin, residue, p.mask, p.cfg.VizWidth, p.cfg.VizHeight, p.cfg.ShowTimestamp, binTime)
	frame := compositor.Render(in)
	p.frames = append(p.frames, RetiredFrame{Frame: frame, BinStart: bin.BinStart, Seq: p.seq})
	p.seq++
}

func (p *Pipeline) warn(e *Error) {
	p.Warnings = append(p.Warnings, e)
}
