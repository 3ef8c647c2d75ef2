// Command curvewatch ingests gzip-compressed honeypot/firewall log
// streams and renders them as a sequence of PPM frames (and, optionally,
// an encoded video) on a Hilbert space-filling curve, per spec.md.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/greywire/curvewatch/pkg/autoscale"
	"github.com/greywire/curvewatch/pkg/logsource"
	"github.com/greywire/curvewatch/pkg/pipeline"
	"github.com/greywire/curvewatch/pkg/render"
)

// cli is curvewatch's whole command surface: the config knobs spec.md §6
// enumerates, plus the input/output paths a batch run needs.
var cli struct {
	Input  string `arg:"" help:"Gzip-compressed log file to ingest."`
	Output string `help:"Output directory for PPM frames." default:"./frames"`
	Prefix string `help:"PPM filename prefix." default:"curvewatch"`

	BinSeconds          string `help:"Bin duration, e.g. 60, 60s, 5m, 1h." default:"60"`
	HilbertOrder        int    `help:"Hilbert curve order, 4..16." default:"12"`
	DecaySeconds        string `help:"Decay window, e.g. 10800, 3h." default:"10800"`
	VizWidth            int    `help:"Output frame width." default:"3440"`
	VizHeight           int    `help:"Output frame height." default:"1440"`
	TargetVideoDuration int    `help:"Target encoded video duration in seconds, 10..3600." default:"300"`
	AutoScale           bool   `help:"Derive FPS/decay from the observed timestamp span." default:"true"`
	ShowTimestamp       bool   `help:"Stamp a timestamp strip onto each frame." default:"false"`
	CIDRMapPath         string `help:"Optional CIDR-to-timezone map file; falls back to pure Hilbert scaling if unset or unreadable."`

	Encode     bool   `help:"Pipe frames to ffmpeg and encode a video after the run."`
	VideoOut   string `help:"Output video path, used with --encode." default:"curvewatch.mp4"`
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	kong.Parse(&cli)

	cfg, err := buildConfig()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalf("failed to start pipeline: %v", err)
	}
	for _, w := range p.Warnings {
		log.Printf("warning: %v", w)
	}

	quit := installQuitHandler()

	if err := ingest(p, cli.Input, quit); err != nil {
		log.Fatalf("ingest failed: %v", err)
	}

	frames, params, err := p.Finalize()
	if err != nil {
		log.Fatalf("finalize failed: %v", err)
	}
	log.Printf("run complete: %d frames, %d ordering anomalies, auto-scale fps=%d decay_seconds=%d",
		len(frames), p.OrderingCount(), params.FPS, params.DecaySeconds)

	if err := writeFrames(frames, params); err != nil {
		log.Fatalf("frame output failed: %v", err)
	}
}

func buildConfig() (pipeline.CoreConfig, error) {
	cfg := pipeline.DefaultConfig()

	binSeconds, err := pipeline.ParseDuration(cli.BinSeconds)
	if err != nil {
		return cfg, err
	}
	decaySeconds, err := pipeline.ParseDuration(cli.DecaySeconds)
	if err != nil {
		return cfg, err
	}

	cfg.BinSeconds = binSeconds
	cfg.HilbertOrder = cli.HilbertOrder
	cfg.DecaySeconds = decaySeconds
	cfg.VizWidth = cli.VizWidth
	cfg.VizHeight = cli.VizHeight
	cfg.TargetVideoDuration = cli.TargetVideoDuration
	cfg.AutoScale = cli.AutoScale
	cfg.ShowTimestamp = cli.ShowTimestamp
	cfg.CIDRMapPath = cli.CIDRMapPath
	cfg.FramePrefix = cli.Prefix
	cfg.FrameDir = cli.Output

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// installQuitHandler returns a function that reports whether a
// cooperative quit has been requested, polled between bins per spec.md
// §5's cancellation model: an in-progress bin is discarded, not emitted.
func installQuitHandler() func() bool {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	var quit atomic.Bool
	go func() {
		<-sigCh
		quit.Store(true)
	}()
	return quit.Load
}

func ingest(p *pipeline.Pipeline, path string, quit func() bool) error {
	rc, err := logsource.OpenGzip(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	parseWarnings := 0
	for scanner.Scan() {
		if quit() {
			log.Println("quit requested, discarding in-progress bin")
			break
		}
		line := scanner.Bytes()
		format := logsource.Classify(line)
		ev, ok := logsource.ParseLine(line, format)
		if !ok {
			parseWarnings++
			continue
		}
		if err := p.Process(ev.TimestampSeconds, ev.SrcIP); err != nil {
			log.Printf("warning: %v", err)
		}
	}
	if parseWarnings > 0 {
		log.Printf("warning: %d lines failed to parse", parseWarnings)
	}
	return scanner.Err()
}

func writeFrames(frames []pipeline.RetiredFrame, params autoscale.Params) error {
	driver := &render.Driver{
		FrameDir:      cli.Output,
		FramePrefix:   cli.Prefix,
		WritePPMFiles: true,
	}

	if cli.Encode {
		bitrate := render.Bitrate(cli.TargetVideoDuration, len(frames))
		enc, err := render.NewEncoder(cli.VideoOut, cli.VizWidth, cli.VizHeight, params.FPS, bitrate)
		if err != nil {
			log.Printf("encoder warning: could not start ffmpeg: %v", err)
		} else {
			driver.Encoder = enc
		}
	}

	for _, rf := range frames {
		binTime := time.Unix(rf.BinStart, 0).Local()
		if err := driver.Emit(rf, binTime); err != nil {
			log.Printf("warning: %v", err)
		}
	}

	if err := driver.Close(); err != nil {
		log.Printf("encoder warning: %v", err)
	}
	return nil
}
