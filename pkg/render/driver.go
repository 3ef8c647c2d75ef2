// Package render turns a pipeline.RetiredFrame into bytes on disk and,
// optionally, a live ffmpeg stream — the driver layer spec.md §9 wants
// kept outside the core: failures here (IOError, EncoderFailure) are
// warnings the caller logs and moves past, never something the core
// pipeline itself needs to know about.
package render

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/greywire/curvewatch/pkg/compositor"
	"github.com/greywire/curvewatch/pkg/pipeline"
)

// Driver writes out each retired frame: to a PPM file, to an ffmpeg
// subprocess, or both, following spec.md §6's filename convention and
// PPM framing. It also keeps a live ebiten.Image of the most recent
// frame, the same screen-capture path the teacher's engine uses for its
// viewer and frame-capture hooks, so cmd/heatmap-viewer can reuse it for
// a live preview instead of re-decoding PPM files off disk.
type Driver struct {
	FrameDir      string
	FramePrefix   string
	WritePPMFiles bool
	Encoder       *Encoder

	lastImage *ebiten.Image
	rgbaBuf   []byte
}

// Emit writes one retired frame out. rf.Frame already carries the
// timestamp strip the compositor appends when show_timestamp is enabled
// (spec.md §4.F/§6); Emit just has to write what it's given. binTime
// names the PPM file, per the filename convention.
func (d *Driver) Emit(rf pipeline.RetiredFrame, binTime time.Time) error {
	frame := rf.Frame

	if d.rgbaBuf == nil || len(d.rgbaBuf) != frame.Width*frame.Height*4 {
		d.rgbaBuf = make([]byte, frame.Width*frame.Height*4)
	}
	rgbToRGBA(frame.Pix, d.rgbaBuf)

	if d.lastImage == nil || d.lastImage.Bounds().Dx() != frame.Width || d.lastImage.Bounds().Dy() != frame.Height {
		d.lastImage = ebiten.NewImage(frame.Width, frame.Height)
	}
	d.lastImage.WritePixels(d.rgbaBuf)

	if d.WritePPMFiles {
		if _, err := compositor.WritePPM(frame, d.FrameDir, d.FramePrefix, binTime, rf.Seq); err != nil {
			return fmt.Errorf("render: write ppm: %w", err)
		}
	}

	if d.Encoder != nil {
		if err := d.Encoder.WriteFrame(d.rgbaBuf); err != nil {
			return fmt.Errorf("render: encoder frame: %w", err)
		}
	}
	return nil
}

// LastImage returns the most recently emitted frame as an ebiten.Image,
// or nil if nothing has been emitted yet.
func (d *Driver) LastImage() *ebiten.Image { return d.lastImage }

// Close finalizes the encoder, if one is attached.
func (d *Driver) Close() error {
	if d.Encoder == nil {
		return nil
	}
	return d.Encoder.Close()
}

func rgbToRGBA(rgb, rgba []byte) {
	for i, j := 0, 0; i+2 < len(rgb); i, j = i+3, j+4 {
		rgba[j] = rgb[i]
		rgba[j+1] = rgb[i+1]
		rgba[j+2] = rgb[i+2]
		rgba[j+3] = 255
	}
}
